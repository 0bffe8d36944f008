// Package extract turns corpus files into plain text for chunking.
package extract

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/docqa/docqa/internal/pkg/errs"
)

// Text extracts plain text from the named reader based on file extension.
// Supported: .pdf, .md, .txt.
func Text(name string, r io.Reader) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return pdfText(r)
	case ".md", ".markdown":
		data, err := io.ReadAll(r)
		if err != nil {
			return "", err
		}
		return markdownText(data), nil
	case ".txt":
		data, err := io.ReadAll(r)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s", errs.ErrUnsupportedFormat, name)
	}
}
