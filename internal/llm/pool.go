package llm

import "sync"

// CredentialPool rotates across a fixed set of provider API keys. The
// cursor is shared by all callers so concurrent completions interleave
// across the pool instead of each starting from slot 0. Rotation wraps;
// the cursor can never index outside the pool.
type CredentialPool struct {
	mu     sync.Mutex
	keys   []string
	cursor int
}

func NewCredentialPool(keys []string) *CredentialPool {
	clean := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			clean = append(clean, k)
		}
	}
	return &CredentialPool{keys: clean}
}

// Len reports the pool size. The pool is immutable after construction.
func (p *CredentialPool) Len() int { return len(p.keys) }

// Next returns the next key in round-robin order.
func (p *CredentialPool) Next() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := p.keys[p.cursor]
	p.cursor = (p.cursor + 1) % len(p.keys)
	return key
}
