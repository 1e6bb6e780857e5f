package domain

// QAPair is a stored knowledge-base entry: a past customer question and the
// answer our support staff gave. The embedding is always derived from the
// current question text.
type QAPair struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Embedding []float32 `json:"-"`
}

// VectorRecord is what a vector store persists: an id, the vector, and an
// open metadata mapping carried alongside it (question/answer for QA pairs).
type VectorRecord struct {
	ID       string            `json:"id"`
	Vector   []float32         `json:"vector"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SearchResult is a ranked similarity-search match. Score is cosine
// similarity; higher means more similar.
type SearchResult struct {
	Record VectorRecord `json:"record"`
	Score  float64      `json:"score"`
}

// Metadata keys used for QA records across all store backends.
const (
	MetaQuestion = "question"
	MetaAnswer   = "answer"
)

// QAPairFromRecord rebuilds a QAPair from a stored vector record.
func QAPairFromRecord(r VectorRecord) QAPair {
	return QAPair{
		ID:        r.ID,
		Question:  r.Metadata[MetaQuestion],
		Answer:    r.Metadata[MetaAnswer],
		Embedding: r.Vector,
	}
}
