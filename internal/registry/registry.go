// Package registry holds the process-wide mapping from document identifier
// to its sampled text. Entries are replaced whole on re-upload (last write
// wins) and live for the lifetime of the process.
package registry

import (
	"context"
	"time"
)

// StoredDocument is one successfully ingested upload. SampledText is the
// bounded extraction result; SourcePath points at the streamed bytes on
// disk for this session.
type StoredDocument struct {
	Identifier  string    `json:"identifier"`
	SampledText string    `json:"sampled_text"`
	SourcePath  string    `json:"source_path"`
	IngestedAt  time.Time `json:"ingested_at"`
}

// Store abstracts the registry so the concurrency discipline stays local to
// one implementation. Upsert replaces the entire entry atomically; a reader
// racing a re-upload sees either the old or the new document, never a mix.
type Store interface {
	Upsert(ctx context.Context, doc StoredDocument) error
	Get(ctx context.Context, identifier string) (StoredDocument, bool, error)
	List(ctx context.Context) ([]string, error)
}
