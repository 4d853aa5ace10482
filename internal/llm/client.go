// Package llm delivers role-tagged messages to an OpenAI-compatible chat
// completion endpoint, rotating across a credential pool and absorbing
// per-attempt failures. Total exhaustion is a soft failure: the caller gets
// a fixed busy string as ordinary content, never an error.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mandelbrot-ai/neural-engine/config"
)

// Fixed soft-failure strings. Callers detect them by equality but never
// need to special-case an error path.
const (
	NoCredentialsMessage = "System Error: No API credentials configured."
	AllBusyMessage       = "Error: All AI providers are busy."
)

var (
	attemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "neural_completion_attempts_total",
		Help: "Number of network attempts against the completion provider.",
	})
	exhaustionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "neural_completion_exhaustions_total",
		Help: "Number of calls where every credential attempt failed.",
	})
)

// Message is one role-tagged entry in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer is the invoker surface the assembler and workflow engine
// depend on. The second return is the accumulated per-attempt failure
// reasons; it is non-empty whenever any attempt failed.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, []string)
}

// Options overrides per-call generation parameters.
type Options struct {
	Temperature *float64
	MaxTokens   int
}

// Client implements Completer against the configured provider.
type Client struct {
	cfg        config.LLMConfig
	pool       *CredentialPool
	httpClient *http.Client
	logger     *log.Logger
}

func NewClient(cfg config.LLMConfig) *Client {
	return &Client{
		cfg:        cfg,
		pool:       NewCredentialPool(cfg.APIKeys),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     log.New(log.Writer(), "[LLM] ", log.LstdFlags),
	}
}

// Complete sends messages with the configured defaults.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, []string) {
	return c.CompleteWithOptions(ctx, messages, Options{})
}

// CompleteWithOptions tries each pooled credential once, in round-robin
// order, returning the first successful generation. With an empty pool it
// falls back to the single configured credential; with neither it returns
// the fixed no-credentials string without touching the network.
func (c *Client) CompleteWithOptions(ctx context.Context, messages []Message, opts Options) (string, []string) {
	attempts := c.pool.Len()
	if attempts == 0 {
		if c.cfg.FallbackAPIKey == "" {
			return NoCredentialsMessage, nil
		}
		attemptsTotal.Inc()
		text, err := c.sendRequest(ctx, c.cfg.FallbackAPIKey, messages, opts)
		if err != nil {
			c.logger.Printf("fallback credential failed: %v", err)
			exhaustionsTotal.Inc()
			return AllBusyMessage, []string{err.Error()}
		}
		return text, nil
	}

	var failures []string
	for i := 0; i < attempts; i++ {
		key := c.pool.Next()
		attemptsTotal.Inc()
		text, err := c.sendRequest(ctx, key, messages, opts)
		if err == nil {
			return text, failures
		}
		c.logger.Printf("completion attempt %d/%d failed: %v", i+1, attempts, err)
		failures = append(failures, err.Error())
	}
	exhaustionsTotal.Inc()
	return AllBusyMessage, failures
}

// sendRequest issues one bounded network request with one credential.
func (c *Client) sendRequest(ctx context.Context, apiKey string, messages []Message, opts Options) (string, error) {
	temperature := c.cfg.Temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	maxTokens := c.cfg.MaxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}

	body, err := json.Marshal(struct {
		Model       string    `json:"model"`
		Messages    []Message `json:"messages"`
		Temperature float64   `json:"temperature"`
		MaxTokens   int       `json:"max_tokens,omitempty"`
	}{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("provider status %d: %s", resp.StatusCode, snippet)
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return out.Choices[0].Message.Content, nil
}
