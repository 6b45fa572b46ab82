package cnki

// searchResponse is the CNKI search API JSON response.
type searchResponse struct {
	Total  int           `json:"total"`
	Papers []paperRecord `json:"papers"`
}

// paperRecord is one CNKI search hit.
type paperRecord struct {
	Title         string         `json:"title"`
	Abstract      string         `json:"abstract"`
	Authors       []authorRecord `json:"authors"`
	Journal       string         `json:"journal"`
	PublishDate   string         `json:"publish_date"` // "2024-01-02"
	DOI           string         `json:"doi"`
	URL           string         `json:"url"`
	CitationCount int            `json:"citation_count"`
	Keywords      []string       `json:"keywords"`
	Relevance     *float64       `json:"relevance,omitempty"`
}

type authorRecord struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation"`
}
