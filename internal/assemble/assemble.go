// Package assemble composes a bounded prompt from registry excerpts plus
// the live user query and hands it to the completion invoker.
package assemble

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/mandelbrot-ai/neural-engine/internal/llm"
	"github.com/mandelbrot-ai/neural-engine/internal/registry"
)

const (
	// PerDocumentLimit caps each document's excerpt inside the prompt.
	PerDocumentLimit = 15000
	// TotalBudget caps the whole concatenated context, applied after the
	// per-document cap. Late documents can still be cut short or dropped.
	TotalBudget = 20000

	// EmptyContextMarker keeps the context field non-empty when nothing
	// has been uploaded, so the model is told instead of guessing.
	EmptyContextMarker = "No documents uploaded."
)

const systemPromptTemplate = `You are the Neural Engine document intelligence.

MISSION:
Provide high-precision analysis of the provided documents. Extract actionable insights, summarize complex data, and answer the user's queries with expert-level accuracy.

CONTEXT:
%s

USER QUERY:
%s

INSTRUCTIONS:
1. If relevant information is found, cite the specific file (e.g. [data.csv]).
2. Format the response in clean Markdown (bullet points, bold key terms).
3. If the information is missing, state clearly: "Data not found in context."`

// Assembler reads the registry and delegates to the invoker.
type Assembler struct {
	store  registry.Store
	llm    llm.Completer
	logger *log.Logger
}

func New(store registry.Store, completer llm.Completer) *Assembler {
	return &Assembler{
		store:  store,
		llm:    completer,
		logger: log.New(log.Writer(), "[ASSEMBLE] ", log.LstdFlags),
	}
}

// Answer builds the bounded context for the requested identifiers (all
// registered documents when none are named), submits it with the query, and
// returns the generated text plus how many requested documents were
// actually found. A store failure is the only hard error.
func (a *Assembler) Answer(ctx context.Context, query string, identifiers []string) (string, int, error) {
	targets := identifiers
	if len(targets) == 0 {
		all, err := a.store.List(ctx)
		if err != nil {
			return "", 0, fmt.Errorf("list documents: %w", err)
		}
		targets = all
	}

	var buf strings.Builder
	found := 0
	for _, id := range targets {
		doc, ok, err := a.store.Get(ctx, id)
		if err != nil {
			return "", 0, fmt.Errorf("get document %q: %w", id, err)
		}
		if !ok {
			// Tell the model the referenced document is missing rather
			// than silently omitting it.
			fmt.Fprintf(&buf, "\n=== FILE: %s (Not Found) ===\n", id)
			continue
		}
		fmt.Fprintf(&buf, "\n=== FILE: %s ===\n%s\n", id, truncate(doc.SampledText, PerDocumentLimit))
		found++
	}

	contextBlock := truncate(buf.String(), TotalBudget)
	if strings.TrimSpace(contextBlock) == "" {
		contextBlock = EmptyContextMarker
	}

	messages := []llm.Message{
		{Role: "system", Content: fmt.Sprintf(systemPromptTemplate, contextBlock, query)},
		{Role: "user", Content: query},
	}
	response, failures := a.llm.Complete(ctx, messages)
	if len(failures) > 0 {
		a.logger.Printf("completion degraded after %d failed attempts", len(failures))
	}
	return response, found, nil
}

// truncate cuts s to at most n bytes. When the cut lands inside a
// multi-byte rune it backs off to the rune's start, at most UTFMax-1
// bytes; invalid bytes earlier in the string are left alone.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	for i := 0; i < utf8.UTFMax-1 && len(cut) > 0; i++ {
		// size > 1 means a complete rune, including an encoded U+FFFD.
		if r, size := utf8.DecodeLastRuneInString(cut); r != utf8.RuneError || size > 1 {
			break
		}
		cut = cut[:len(cut)-1]
	}
	return cut
}
