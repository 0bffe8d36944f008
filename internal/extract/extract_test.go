package extract

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docqa/docqa/internal/pkg/errs"
)

func TestTextPlainPassthrough(t *testing.T) {
	out, err := Text("notes.txt", strings.NewReader("plain text content"))
	require.NoError(t, err)
	require.Equal(t, "plain text content", out)
}

func TestTextUnsupportedFormat(t *testing.T) {
	for _, name := range []string{"doc.docx", "image.png", "archive", "data.csv"} {
		_, err := Text(name, strings.NewReader("x"))
		require.True(t, errors.Is(err, errs.ErrUnsupportedFormat), "name: %q", name)
	}
}

func TestTextExtensionCaseInsensitive(t *testing.T) {
	out, err := Text("NOTES.TXT", strings.NewReader("content"))
	require.NoError(t, err)
	require.Equal(t, "content", out)
}

func TestMarkdownExtraction(t *testing.T) {
	src := "# Heading\n\nFirst paragraph with *emphasis* and `code`.\n\n- item one\n- item two\n\n```go\nfunc main() {}\n```\n"
	out, err := Text("doc.md", strings.NewReader(src))
	require.NoError(t, err)
	require.Contains(t, out, "Heading")
	require.Contains(t, out, "First paragraph with")
	require.Contains(t, out, "emphasis")
	require.Contains(t, out, "item one")
	require.Contains(t, out, "func main() {}")
	require.NotContains(t, out, "# Heading")
	require.NotContains(t, out, "```")
}

func TestMarkdownLinksKeepText(t *testing.T) {
	src := "See [the support group](https://example.com) for details."
	out, err := Text("doc.markdown", strings.NewReader(src))
	require.NoError(t, err)
	require.Contains(t, out, "the support group")
	require.NotContains(t, out, "](")
}

func TestPDFInvalidData(t *testing.T) {
	_, err := Text("broken.pdf", strings.NewReader("this is not a pdf"))
	require.Error(t, err)
}
