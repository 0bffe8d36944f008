package model

// Passage is the unit of retrieval: a bounded slice of a source document.
// Immutable once created; removed only by a full index rebuild.
type Passage struct {
	ID             string `json:"id"`
	Text           string `json:"text"`
	SourceDocument string `json:"source_document"`
	SequenceIndex  int    `json:"sequence_index"`
}

// ScoredPassage pairs a passage with its similarity score for one query.
type ScoredPassage struct {
	Passage
	Score float32 `json:"score"`
}

// IndexMode selects how ingestion treats an existing index.
type IndexMode int

const (
	IndexCreate IndexMode = iota
	IndexAppend
)
