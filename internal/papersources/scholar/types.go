package scholar

// searchResponse is the SerpAPI google_scholar JSON response.
type searchResponse struct {
	SearchInformation searchInformation `json:"search_information"`
	OrganicResults    []organicResult   `json:"organic_results"`
}

type searchInformation struct {
	TotalResults int `json:"total_results"`
}

// organicResult is one Scholar hit.
type organicResult struct {
	Title           string          `json:"title"`
	Link            string          `json:"link"`
	Snippet         string          `json:"snippet"`
	PublicationInfo publicationInfo `json:"publication_info"`
	InlineLinks     *inlineLinks    `json:"inline_links,omitempty"`
}

// publicationInfo carries the free-form author/venue/year summary line.
type publicationInfo struct {
	Summary string `json:"summary"`
}

type inlineLinks struct {
	CitedBy *citedBy `json:"cited_by,omitempty"`
}

type citedBy struct {
	Total int `json:"total"`
}
