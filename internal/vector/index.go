// Package vector defines the similarity-index contract the matching core
// depends on. Implementations live in subpackages so the core never sees
// a concrete vendor client.
package vector

import "context"

// Metadata is the structured snapshot stored alongside each embedding and
// returned with every query match.
type Metadata struct {
	Name            string   `json:"name"`
	Gender          string   `json:"gender"`
	Age             int      `json:"age"`
	BodyType        string   `json:"bodyType"`
	Ethnicity       string   `json:"ethnicity"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	IsPodcastActive bool     `json:"isPodcastActive"`
}

// Record is one indexed user embedding.
type Record struct {
	ID       int
	Values   []float32
	Metadata Metadata
}

// Match is a ranked query result. Score is cosine similarity in [0,1].
type Match struct {
	ID       int
	Score    float64
	Metadata Metadata
}

// Filter restricts a query to candidates whose metadata matches every
// listed predicate: Equals are exact-match, In are set-membership.
type Filter struct {
	Equals map[string]any
	In     map[string][]string
}

// Index is the similarity-search service the matcher queries. Upsert and
// Delete failures are non-fatal to profile workflows but must be surfaced
// through logs and telemetry by the caller. SetActive flips only the
// stored podcast flag, so group membership changes reach the index
// without re-embedding the profile.
type Index interface {
	Upsert(ctx context.Context, rec Record) error
	Delete(ctx context.Context, id int) error
	Query(ctx context.Context, values []float32, filter Filter, topK int) ([]Match, error)
	Exists(ctx context.Context, id int) (bool, error)
	SetActive(ctx context.Context, id int, active bool) error
}
