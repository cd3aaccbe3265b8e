package db

import "github.com/kailas-cloud/pieces/internal/domain/filter"

// DistanceField is the pseudo-field FT.SEARCH uses to report a KNN hit's distance.
const DistanceField = "__vector_score"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string // defaults to "vector"
	Where        filter.Filter
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit. Distance is nil when the server omitted the score.
type SearchEntry struct {
	Key      string
	Distance *float64
	Fields   map[string]string
}
