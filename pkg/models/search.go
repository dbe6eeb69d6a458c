package models

// SearchStatus discriminates the outcome of a similarity search
type SearchStatus string

const (
	// SearchFound means at least one record matched
	SearchFound SearchStatus = "found"
	// SearchEmpty means the search ran but nothing matched
	SearchEmpty SearchStatus = "empty"
	// SearchFailed means the search could not be performed
	SearchFailed SearchStatus = "failed"
)

// Messages carried by non-found search results.
const (
	NoResultsMessage   = "No results found for your query."
	SearchErrorMessage = "Error reaching the LLM or Vector instance, or other search error."
)

// SearchResult holds the matched records, best match first, or the reason there are none
type SearchResult struct {
	Status  SearchStatus `json:"status"`
	Records []Record     `json:"records,omitempty"`
	Message string       `json:"message,omitempty"`
	Err     error        `json:"-"`
}

// Found builds a result for a search that matched records
func Found(records []Record) SearchResult {
	return SearchResult{Status: SearchFound, Records: records}
}

// Empty builds a result for a search that matched nothing
func Empty() SearchResult {
	return SearchResult{Status: SearchEmpty, Message: NoResultsMessage}
}

// Failed builds a result for a search that could not run
func Failed(err error) SearchResult {
	return SearchResult{Status: SearchFailed, Message: SearchErrorMessage, Err: err}
}
