package extract

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		filename string
		want     Format
	}{
		{"report.pdf", FormatPDF},
		{"REPORT.PDF", FormatPDF},
		{"data.csv", FormatCSV},
		{"book.xlsx", FormatSpreadsheet},
		{"legacy.xls", FormatSpreadsheet},
		{"notes.txt", FormatText},
		{"index.html", FormatText},
		{"app.log", FormatText},
		{"conf.yaml", FormatText},
		{"archive.zip", FormatUnknown},
		{"noextension", FormatUnknown},
		{"", FormatUnknown},
	}
	for _, tc := range cases {
		if got := DetectFormat(tc.filename); got != tc.want {
			t.Errorf("DetectFormat(%q) = %v, want %v", tc.filename, got, tc.want)
		}
	}
}

func TestExtractTextUnderCap(t *testing.T) {
	content := "hello\nworld\n"
	path := writeFile(t, "small.txt", []byte(content))

	got := Extract(path, "small.txt")
	if got != content {
		t.Errorf("expected full content back, got %q", got)
	}
	if strings.Contains(got, TextTruncationMarker) {
		t.Error("no truncation marker expected under the cap")
	}
}

func TestExtractTextOverCap(t *testing.T) {
	content := bytes.Repeat([]byte("x"), maxTextBytes+500)
	path := writeFile(t, "big.txt", content)

	got := Extract(path, "big.txt")
	if !strings.HasSuffix(got, TextTruncationMarker) {
		t.Fatal("expected truncation marker suffix")
	}
	if strings.Count(got, TextTruncationMarker) != 1 {
		t.Error("expected exactly one truncation marker")
	}
	body := strings.TrimSuffix(got, TextTruncationMarker)
	if len(body) != maxTextBytes {
		t.Errorf("expected %d bytes before the marker, got %d", maxTextBytes, len(body))
	}
	if !strings.HasPrefix(string(content), body) {
		t.Error("truncated content must be a prefix of the original")
	}
}

func TestExtractTextInvalidUTF8(t *testing.T) {
	path := writeFile(t, "bad.txt", []byte{'o', 'k', 0xff, 0xfe, 'e', 'n', 'd'})

	got := Extract(path, "bad.txt")
	if !strings.Contains(got, "�") {
		t.Error("invalid bytes should be replaced, not dropped")
	}
	if !strings.HasPrefix(got, "ok") || !strings.HasSuffix(got, "end") {
		t.Errorf("valid bytes must survive, got %q", got)
	}
}

func TestExtractCSVOverCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("id,name\n")
	for i := 0; i < 1000; i++ {
		fmt.Fprintf(&b, "%d,row%d\n", i, i)
	}
	path := writeFile(t, "report.csv", []byte(b.String()))

	got := Extract(path, "report.csv")
	if !strings.HasSuffix(got, CSVTruncationMarker) {
		t.Fatal("expected CSV truncation marker")
	}
	// header + separator + 500 data rows = 502 table lines
	body := strings.TrimSuffix(got, CSVTruncationMarker)
	lines := strings.Split(body, "\n")
	if len(lines) != maxTableRows+2 {
		t.Errorf("expected %d table lines, got %d", maxTableRows+2, len(lines))
	}
	if !strings.Contains(lines[0], "id") || !strings.Contains(lines[0], "name") {
		t.Errorf("header row missing: %q", lines[0])
	}
	if !strings.Contains(lines[1], "---") {
		t.Errorf("separator row missing: %q", lines[1])
	}
	// The header does not count against the row cap.
	if !strings.Contains(got, "row499") {
		t.Error("data row 500 must still be included")
	}
	if strings.Contains(got, "row500") {
		t.Error("sample must stop after 500 data rows")
	}
}

func TestExtractCSVSanitizesInvalidUTF8(t *testing.T) {
	content := "id,name\n1,bad\xffcell\n2,clean\n"
	path := writeFile(t, "dirty.csv", []byte(content))

	got := Extract(path, "dirty.csv")
	if !utf8.ValidString(got) {
		t.Fatal("sampled table must be valid UTF-8")
	}
	if !strings.Contains(got, "bad�cell") {
		t.Errorf("invalid bytes must be replaced, not dropped: %q", got)
	}
	if !strings.Contains(got, "clean") {
		t.Error("surrounding rows must survive")
	}
}

func TestExtractCSVUnderCap(t *testing.T) {
	path := writeFile(t, "tiny.csv", []byte("a,b\n1,2\n"))

	got := Extract(path, "tiny.csv")
	if strings.Contains(got, CSVTruncationMarker) {
		t.Error("no marker expected under the row cap")
	}
	if !strings.Contains(got, "| a | b |") {
		t.Errorf("expected markdown table, got %q", got)
	}
}

func TestExtractUnknownExtensionText(t *testing.T) {
	content := "plain text in a strange extension"
	path := writeFile(t, "notes.weird", []byte(content))

	got := Extract(path, "notes.weird")
	if got != content {
		t.Errorf("expected content back, got %q", got)
	}
}

func TestExtractUnknownExtensionBinary(t *testing.T) {
	data := []byte{0x89, 0x50, 0x4e, 0x47, 0x00, 0xff, 0x01, 0x02}
	path := writeFile(t, "image.png", data)

	got := Extract(path, "image.png")
	if !strings.Contains(got, "[Binary file: image.png]") {
		t.Errorf("expected binary metadata, got %q", got)
	}
	if !strings.Contains(got, "89504e47") {
		t.Error("expected hex header in metadata")
	}
	if !strings.Contains(got, "Size: 0.00 MB") {
		t.Error("expected size line")
	}
}

func TestExtractZeroByteFile(t *testing.T) {
	path := writeFile(t, "x.bin", nil)

	got := Extract(path, "x.bin")
	if !strings.Contains(got, "[Binary file: x.bin]") {
		t.Fatalf("expected binary metadata for empty file, got %q", got)
	}
	if !strings.Contains(got, "Size: 0.00 MB") {
		t.Error("expected zero size report")
	}
	if !strings.Contains(got, "Header (hex): \n") {
		t.Error("expected empty hex header")
	}
}

func TestExtractCorruptPDFSalvagesText(t *testing.T) {
	// Claims to be a PDF but is not; the parser error should drop to the
	// printable-byte salvage tier.
	content := strings.Repeat("recoverable words here ", 20)
	path := writeFile(t, "broken.pdf", []byte(content))

	before := testutil.ToFloat64(salvageTotal)
	got := Extract(path, "broken.pdf")
	if !strings.Contains(got, SalvageWarning) {
		t.Fatalf("expected salvage warning, got %q", got)
	}
	if !strings.Contains(got, "recoverable words here") {
		t.Error("expected recovered text")
	}
	if testutil.ToFloat64(salvageTotal)-before != 1 {
		t.Error("salvage counter must record the fallback")
	}
}

func TestExtractCorruptPDFNoRecoverableText(t *testing.T) {
	data := []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}
	path := writeFile(t, "junk.pdf", data)

	got := Extract(path, "junk.pdf")
	if !strings.Contains(got, "no recoverable text") {
		t.Fatalf("expected hex-dump error, got %q", got)
	}
	if !strings.Contains(got, "0001020304050607") {
		t.Error("expected hex dump of the header")
	}
}

func TestExtractCorruptSpreadsheetSalvages(t *testing.T) {
	content := strings.Repeat("cell values and more cell values ", 10)
	path := writeFile(t, "fake.xlsx", []byte(content))

	got := Extract(path, "fake.xlsx")
	if !strings.Contains(got, SalvageWarning) {
		t.Fatalf("expected salvage tier for non-zip workbook, got %q", got)
	}
}

func TestExtractIsTotal(t *testing.T) {
	inputs := []struct {
		name string
		data []byte
	}{
		{"empty.txt", nil},
		{"empty.csv", nil},
		{"noext", []byte{0xde, 0xad, 0xbe, 0xef}},
		{"garbage.pdf", bytes.Repeat([]byte{0x13, 0x37}, 64)},
		{"garbage.xlsx", []byte("PK\x03\x04 but not really a zip")},
		{"quote.csv", []byte("\"unclosed,field\nnext,line")},
		{"weird.名前", []byte("unicode filename")},
	}
	for _, in := range inputs {
		path := writeFile(t, "f", in.data)
		got := Extract(path, in.name)
		if got == "" && len(in.data) > 0 {
			t.Errorf("%s: expected non-empty result", in.name)
		}
		if len(got) > maxSalvageBytes+1024 {
			t.Errorf("%s: result not bounded (%d bytes)", in.name, len(got))
		}
	}
}

func TestExtractMissingFile(t *testing.T) {
	got := Extract(filepath.Join(t.TempDir(), "gone.txt"), "gone.txt")
	if !strings.Contains(got, "[Fatal extraction error:") {
		t.Errorf("expected bounded diagnostic for a missing file, got %q", got)
	}
}

func TestRenderMarkdownTableRaggedRows(t *testing.T) {
	got := renderMarkdownTable([][]string{
		{"a", "b", "c"},
		{"1"},
		{"2", "with|pipe", "x", "overflow"},
	})
	lines := strings.Split(got, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), got)
	}
	if !strings.Contains(lines[3], "\\|") {
		t.Error("pipes inside cells must be escaped")
	}
	for i, line := range lines {
		if strings.Count(line, "|")-strings.Count(line, "\\|") != 5 {
			t.Errorf("line %d: expected 5 column separators: %q", i, line)
		}
	}
}

func TestValidUTF8Prefix(t *testing.T) {
	// "é" is 0xc3 0xa9; cut after the first byte at a truncation boundary.
	b := append([]byte("caf"), 0xc3)
	clean, ok := validUTF8Prefix(b, true)
	if !ok {
		t.Fatal("expected truncated rune to be tolerated")
	}
	if string(clean) != "caf" {
		t.Errorf("expected partial rune trimmed, got %q", clean)
	}

	if _, ok := validUTF8Prefix([]byte{0xff, 0x00}, true); ok {
		t.Error("genuinely invalid bytes must not pass")
	}
	if _, ok := validUTF8Prefix(append([]byte("caf"), 0xc3), false); ok {
		t.Error("partial rune without truncation must not pass")
	}
}
