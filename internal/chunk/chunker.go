// Package chunk splits extracted document text into bounded passages, the
// unit of retrieval. Chunking is a pure transform: same input, same passages.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/docqa/docqa/internal/model"
	"github.com/docqa/docqa/internal/pkg/errs"
)

const DefaultTargetWords = 300

// Chunk splits documentText on word boundaries into contiguous groups of
// targetWords words, no overlap. The last passage may be shorter. Passage
// ids derive from sourceID and position, so re-chunking the same document
// yields identical ids.
func Chunk(documentText, sourceID string, targetWords int) ([]model.Passage, error) {
	if targetWords <= 0 {
		targetWords = DefaultTargetWords
	}
	words := strings.Fields(documentText)
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: %s", errs.ErrEmptyDocument, sourceID)
	}

	passages := make([]model.Passage, 0, (len(words)+targetWords-1)/targetWords)
	for start := 0; start < len(words); start += targetWords {
		end := start + targetWords
		if end > len(words) {
			end = len(words)
		}
		seq := len(passages)
		passages = append(passages, model.Passage{
			ID:             passageID(sourceID, seq),
			Text:           strings.Join(words[start:end], " "),
			SourceDocument: sourceID,
			SequenceIndex:  seq,
		})
	}
	return passages, nil
}

func passageID(sourceID string, seq int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", sourceID, seq)))
	return hex.EncodeToString(sum[:8])
}
