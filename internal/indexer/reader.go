// ABOUTME: Source document readers for plain text and PDF files
// ABOUTME: Decides which files in a corpus directory are indexable
package indexer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Supported reports whether name is an indexable source file.
// Dotfiles and unknown extensions are skipped.
func Supported(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".txt", ".pdf":
		return true
	}
	return false
}

// ReadSource returns the plain text of the file at path
func ReadSource(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return readPDF(path)
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported source file %s", path)
	}
}

func readPDF(path string) (string, error) {
	f, rdr, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	b, err := rdr.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read pdf text %s: %w", path, err)
	}
	if _, err := buf.ReadFrom(b); err != nil {
		return "", fmt.Errorf("failed to read pdf text %s: %w", path, err)
	}
	return buf.String(), nil
}
