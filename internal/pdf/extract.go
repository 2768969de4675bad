// Package pdf extracts text from PDF documents and opens them in a
// platform viewer.
package pdf

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractText extracts plain text from up to maxPages pages of a PDF.
// maxPages <= 0 means all pages. Individual pages that fail to decode are
// skipped; opening the document is the only hard failure. Regulation and
// policy PDFs routinely contain scanned or malformed pages, and losing one
// page must not lose the document.
func ExtractText(filePath string, maxPages int) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("opening pdf %s: %w", filepath.Base(filePath), err)
	}
	defer f.Close()

	return extractPages(r, maxPages), nil
}

// ExtractTextReader extracts text from an in-memory PDF.
func ExtractTextReader(r io.ReaderAt, size int64, maxPages int) (string, error) {
	pdfReader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("reading pdf: %w", err)
	}

	return extractPages(pdfReader, maxPages), nil
}

func extractPages(r *pdf.Reader, maxPages int) string {
	if maxPages <= 0 || maxPages > r.NumPage() {
		maxPages = r.NumPage()
	}

	var builder strings.Builder
	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}

	return builder.String()
}

// IsPDF reports whether a file name carries a .pdf extension.
func IsPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// List returns the absolute paths of PDF files directly under dir,
// sorted by name for deterministic processing order.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !IsPDF(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)

	return paths, nil
}
