// Package extract derives a bounded text representation ("sample") from an
// uploaded file. Extraction is total: any byte sequence under any filename
// yields a bounded string, never an error. Structured-format failures drop
// to a raw printable-byte salvage tier.
package extract

import (
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Format is the closed set of extraction strategies, chosen by filename
// extension.
type Format int

const (
	FormatUnknown Format = iota
	FormatPDF
	FormatCSV
	FormatSpreadsheet
	FormatText
)

const (
	maxPDFPages       = 50
	maxTableRows      = 500
	maxTextBytes      = 100_000
	maxProbeBytes     = 50_000
	maxSalvageBytes   = 200_000
	minSalvageChars   = 100
	binaryHeaderBytes = 128
	hexDumpBytes      = 50
)

// Truncation markers use fixed wording so downstream consumers can detect a
// truncated sample by substring match.
const (
	PDFTruncationMarker   = "\n...[PDF truncated at 50 pages]..."
	CSVTruncationMarker   = "\n...[CSV truncated at 500 rows]..."
	SheetTruncationMarker = "\n...[Spreadsheet truncated at 500 rows]..."
	TextTruncationMarker  = "\n...[Text truncated at 100KB]..."
	GenericReadMarker     = "\n...[Generic text read]..."

	NoTextWarning  = "[Warning: no text found in document. Possibly scanned pages.]"
	SalvageWarning = "[Warning: file structure corrupted or partial. Recovered raw text]"
)

var logger = log.New(log.Writer(), "[EXTRACT] ", log.LstdFlags)

var salvageTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "neural_extract_salvage_total",
	Help: "Number of extractions that fell back to the raw salvage tier.",
})

var textExtensions = map[string]bool{
	"txt": true, "md": true, "json": true, "js": true, "py": true,
	"go": true, "html": true, "css": true, "xml": true, "yaml": true,
	"yml": true, "log": true,
}

// DetectFormat maps a filename to its extraction strategy by lowercase
// extension. Unlisted extensions fall through to FormatUnknown.
func DetectFormat(filename string) Format {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	switch {
	case ext == "pdf":
		return FormatPDF
	case ext == "csv":
		return FormatCSV
	case ext == "xlsx" || ext == "xls":
		return FormatSpreadsheet
	case textExtensions[ext]:
		return FormatText
	default:
		return FormatUnknown
	}
}

// Extract samples the file at path into bounded text. The filename decides
// the format; path points at the streamed bytes on disk. Parser panics and
// errors both land in the salvage tier, so the result is always non-empty
// and bounded.
func Extract(path, filename string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Printf("extraction panic for %s: %v", filename, r)
			text = salvage(path, fmt.Errorf("parser panic: %v", r))
		}
	}()

	var err error
	switch DetectFormat(filename) {
	case FormatPDF:
		text, err = extractPDF(path)
	case FormatCSV:
		text, err = extractCSV(path)
	case FormatSpreadsheet:
		text, err = extractSpreadsheet(path)
	case FormatText:
		text, err = extractText(path)
	default:
		text, err = extractGeneric(path, filename)
	}
	if err != nil {
		logger.Printf("standard extraction failed for %s: %v, attempting raw salvage", filename, err)
		return salvage(path, err)
	}
	return text
}

// extractText reads the first 100KB as UTF-8, replacing invalid sequences
// rather than failing on them.
func extractText(path string) (string, error) {
	data, truncated, err := readPrefix(path, maxTextBytes)
	if err != nil {
		return "", err
	}
	text := strings.ToValidUTF8(string(data), "�")
	if truncated {
		text += TextTruncationMarker
	}
	return text, nil
}

// extractGeneric handles unrecognized extensions: a strict UTF-8 probe of
// the first 50KB, else binary metadata.
func extractGeneric(path, filename string) (string, error) {
	data, truncated, err := readPrefix(path, maxProbeBytes)
	if err != nil {
		return "", err
	}
	if len(data) > 0 {
		if clean, ok := validUTF8Prefix(data, truncated); ok {
			text := string(clean)
			if truncated {
				text += GenericReadMarker
			}
			return text, nil
		}
	}
	return binaryMetadata(path, filename)
}

// binaryMetadata reports size and a hex header instead of decoding further.
func binaryMetadata(path, filename string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	header, _, err := readPrefix(path, binaryHeaderBytes)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"[Binary file: %s]\nSize: %.2f MB\nHeader (hex): %s\nNote: this file appears to be binary (image/video/executable). Context is limited to metadata.",
		filename, float64(info.Size())/(1024*1024), hex.EncodeToString(header)), nil
}

// salvage keeps printable ASCII plus newline bytes from the first 200KB.
// It recovers readable fragments from truncated PDFs or corrupt containers.
func salvage(path string, cause error) string {
	salvageTotal.Inc()
	data, _, err := readPrefix(path, maxSalvageBytes)
	if err != nil {
		return fmt.Sprintf("[Fatal extraction error: %v | fallback: %v]", cause, err)
	}
	var b strings.Builder
	for _, c := range data {
		if (c >= 32 && c <= 126) || c == '\n' || c == '\r' {
			b.WriteByte(c)
		}
	}
	if b.Len() > minSalvageChars {
		return SalvageWarning + "\n" + b.String()
	}
	dump := data
	if len(dump) > hexDumpBytes {
		dump = dump[:hexDumpBytes]
	}
	return fmt.Sprintf("[Error: no recoverable text found in file header. Hex dump: %s]", hex.EncodeToString(dump))
}

// readPrefix reads at most limit bytes and reports whether the file holds
// more than that.
func readPrefix(path string, limit int) ([]byte, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, int64(limit)+1))
	if err != nil {
		return nil, false, err
	}
	if len(data) > limit {
		return data[:limit], true, nil
	}
	return data, false, nil
}

// validUTF8Prefix reports whether b is valid UTF-8, tolerating a rune cut
// in half by the byte cap when the read was truncated.
func validUTF8Prefix(b []byte, truncated bool) ([]byte, bool) {
	if utf8.Valid(b) {
		return b, true
	}
	if !truncated {
		return b, false
	}
	for cut := 1; cut <= utf8.UTFMax-1 && cut < len(b); cut++ {
		if utf8.Valid(b[:len(b)-cut]) {
			return b[:len(b)-cut], true
		}
	}
	return b, false
}
