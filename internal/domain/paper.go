package domain

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Source identifies where a paper record was fetched from.
type Source string

// Known paper sources.
const (
	SourceLocal   Source = "local"
	SourceCNKI    Source = "cnki"
	SourceScholar Source = "scholar"
	SourceArXiv   Source = "arxiv"
)

// Author represents a paper author.
type Author struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
}

// String returns a formatted string representation of the author.
func (a Author) String() string {
	if a.Affiliation == "" {
		return a.Name
	}
	return a.Name + " (" + a.Affiliation + ")"
}

// Paper represents an academic paper in the central repository.
type Paper struct {
	ID            uuid.UUID
	CanonicalID   string
	Title         string
	Abstract      string
	Authors       []Author
	Journal       string
	PublishDate   *time.Time
	Source        Source
	DOI           string
	SourceURL     string
	CitationCount int
	Keywords      []string
	// Embedding is the dense vector for the paper, nil when not yet computed.
	Embedding []float32
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GenerateCanonicalID generates a stable identity key for a paper.
// Papers with a DOI are keyed by the lowercased DOI; papers without one
// fall back to the normalized title. Returns empty string when neither
// is available.
func GenerateCanonicalID(doi, title string) string {
	if d := strings.TrimSpace(doi); d != "" {
		return "doi:" + strings.ToLower(d)
	}
	if t := NormalizeTitle(title); t != "" {
		return "title:" + t
	}
	return ""
}

// NormalizeTitle lowercases a title, strips punctuation, and collapses
// whitespace runs into single spaces. Used for identity keys and
// duplicate detection.
func NormalizeTitle(title string) string {
	var sb strings.Builder
	sb.Grow(len(title))

	lastSpace := true
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r):
			if !lastSpace {
				sb.WriteRune(' ')
				lastSpace = true
			}
		}
	}

	return strings.TrimSpace(sb.String())
}

// IdentityKey returns the canonical identity key for the paper, deriving
// it from the DOI or title when CanonicalID is unset.
func (p *Paper) IdentityKey() string {
	if p.CanonicalID != "" {
		return p.CanonicalID
	}
	return GenerateCanonicalID(p.DOI, p.Title)
}

// HasEmbedding returns true if the paper has a computed embedding vector.
func (p *Paper) HasEmbedding() bool {
	return len(p.Embedding) > 0
}

// AuthorNames returns the author names in order.
func (p *Paper) AuthorNames() []string {
	names := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		names = append(names, a.Name)
	}
	return names
}

// AgeDays returns the number of days since publication, or -1 when the
// publish date is unknown.
func (p *Paper) AgeDays(now time.Time) int {
	if p.PublishDate == nil {
		return -1
	}
	age := now.Sub(*p.PublishDate)
	if age < 0 {
		return 0
	}
	return int(age.Hours() / 24)
}
