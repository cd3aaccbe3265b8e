package domain

// Piece is a stored passage of text with its labels.
type Piece struct {
	ID      string   `json:"id"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// QueryResult is a piece matched by a similarity query. Score is 1 - cosine distance.
type QueryResult struct {
	Piece Piece   `json:"piece"`
	Score float64 `json:"score"`
}

// RagResult is a generated answer with the pieces it was grounded on.
type RagResult struct {
	Answer  string        `json:"answer"`
	Sources []QueryResult `json:"sources"`
}

// QueryOptions narrows a similarity query. TopK of zero means the default.
type QueryOptions struct {
	Tags []string
	TopK int
}
