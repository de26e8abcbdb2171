package usersbox

import "encoding/json"

// SearchResponse is the provider's JSON envelope. On failure the provider
// answers {status:"error", error:{message}} instead of data.
type SearchResponse struct {
	Status string      `json:"status"`
	Data   SearchData  `json:"data"`
	Error  *APIError   `json:"error,omitempty"`
}

type SearchData struct {
	Count int64          `json:"count"`
	Items []SourceResult `json:"items"`
}

// SourceResult groups the hits found in one upstream database/collection.
type SourceResult struct {
	Source Source `json:"source"`
	Hits   Hits   `json:"hits"`
}

type Source struct {
	Database   string `json:"database"`
	Collection string `json:"collection"`
}

// Hits carries either count or hitsCount depending on the provider endpoint.
type Hits struct {
	Count     int64                    `json:"count"`
	HitsCount int64                    `json:"hitsCount"`
	Items     []map[string]interface{} `json:"items"`
}

// Total returns whichever hit counter the provider populated.
func (h Hits) Total() int64 {
	if h.HitsCount > 0 {
		return h.HitsCount
	}
	return h.Count
}

type APIError struct {
	Message string `json:"message"`
}

// SearchResult is one completed provider exchange: the HTTP status, the raw
// payload as received (stored verbatim in the audit log) and the decoded body.
type SearchResult struct {
	HTTPStatus int
	Raw        json.RawMessage
	Body       SearchResponse
}

// OK reports whether the provider answered with an HTTP success status.
func (r *SearchResult) OK() bool {
	return r.HTTPStatus >= 200 && r.HTTPStatus < 300
}
