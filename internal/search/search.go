package search

// Result is a single search hit returned to the caller.
type Result struct {
	ID            string `json:"id"`
	ClientName    string `json:"clientName"`
	Snippet       string `json:"snippet"`
	ProjectNumber string `json:"projectNumber"`
	Status        string `json:"status"`
}

// Query describes a search request over the proposal history.
type Query struct {
	Text         string
	FilterStatus string // empty = all statuses
	Limit        int
	Offset       int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// ProposalRecord is the data we index for a proposal row.
type ProposalRecord struct {
	ID            string `json:"id"`
	ClientName    string `json:"clientName"`
	VenueName     string `json:"venueName"`
	City          string `json:"city"`
	SalesLead     string `json:"salesLead"`
	Status        string `json:"status"`
	ProjectNumber string `json:"projectNumber"`
	SectionText   string `json:"sectionText"`
}
