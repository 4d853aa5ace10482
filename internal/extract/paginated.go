package extract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF reads pages in order up to the 50-page cap, prefixing each
// page's text with a page marker. Image-only documents produce a fixed
// warning instead of empty text.
func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	total := r.NumPage()
	for i := 1; i <= total && i <= maxPDFPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// Individual pages may be unextractable; keep going.
			continue
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		fmt.Fprintf(&b, "[Page %d]\n%s\n", i, pageText)
	}

	if strings.TrimSpace(b.String()) == "" {
		return NoTextWarning, nil
	}
	if total > maxPDFPages {
		b.WriteString(PDFTruncationMarker)
	}
	return b.String(), nil
}
