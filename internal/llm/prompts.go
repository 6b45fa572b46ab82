package llm

import (
	"fmt"
	"strings"
)

// BuildIntentPrompt builds the system and user prompts for query intent
// extraction. The system prompt instructs the LLM on its role and
// response format. The user prompt carries the raw query.
func BuildIntentPrompt(query string) (systemPrompt, userPrompt string) {
	var sb strings.Builder

	sb.WriteString("You are an academic search assistant. Your task is to analyze a ")
	sb.WriteString("user's research query and extract structured search intent for ")
	sb.WriteString("querying academic databases.\n\n")

	sb.WriteString("You MUST respond with valid JSON in exactly this format:\n")
	sb.WriteString(`{"core_keywords": ["term1", "term2"], "translated_keywords": ["term1-en"], "extended_keywords": ["related1"], "time_range": "recent_3_years", "doc_types": ["journal"]}`)
	sb.WriteString("\n\n")

	sb.WriteString("Guidelines:\n")
	sb.WriteString("1. core_keywords: 2-5 precise search terms in the query's own language.\n")
	sb.WriteString("2. translated_keywords: the core terms translated to English when the query is not English, or to Chinese when it is. Empty if no useful translation exists.\n")
	sb.WriteString("3. extended_keywords: 2-5 related terms, synonyms, or broader concepts that improve recall.\n")
	sb.WriteString("4. time_range: one of recent_1_year, recent_3_years, recent_5_years, all_time. Infer from phrases like \"latest\" or \"recent\"; default to recent_5_years.\n")
	sb.WriteString("5. doc_types: preferred document types such as journal, conference, review, preprint. Empty when unspecified.\n")

	var ub strings.Builder
	ub.WriteString("Extract search intent from the following query:\n")
	ub.WriteString("---\n")
	ub.WriteString(query)
	ub.WriteString("\n---")

	return sb.String(), ub.String()
}

// BuildScoringPrompt builds the system and user prompts for relevance
// scoring of a candidate batch. Papers are referenced by their batch
// index so scores can be merged back.
func BuildScoringPrompt(query string, papers []PaperSummary) (systemPrompt, userPrompt string) {
	var sb strings.Builder

	sb.WriteString("You are an academic relevance judge. Given a research query and a ")
	sb.WriteString("numbered list of papers, score each paper's relevance to the query ")
	sb.WriteString("on a 0-10 scale with one decimal place.\n\n")

	sb.WriteString("You MUST respond with valid JSON in exactly this format:\n")
	sb.WriteString(`{"scores": [{"paper_index": 0, "score": 8.5, "reason": "directly addresses the queried method"}]}`)
	sb.WriteString("\n\n")

	sb.WriteString("Guidelines:\n")
	sb.WriteString("1. Score every paper in the list, using its paper_index.\n")
	sb.WriteString("2. 8-10: directly on topic. 6-8: clearly related. Below 6: tangential or off topic.\n")
	sb.WriteString("3. Keep each reason under 20 words.\n")

	var ub strings.Builder
	ub.WriteString("Query: ")
	ub.WriteString(query)
	ub.WriteString("\n\nPapers:\n")
	for _, p := range papers {
		ub.WriteString(fmt.Sprintf("[%d] %s", p.Index, p.Title))
		if p.Journal != "" {
			ub.WriteString(fmt.Sprintf(" (%s", p.Journal))
			if p.Year > 0 {
				ub.WriteString(fmt.Sprintf(", %d", p.Year))
			}
			ub.WriteString(")")
		} else if p.Year > 0 {
			ub.WriteString(fmt.Sprintf(" (%d)", p.Year))
		}
		ub.WriteString("\n")
		if p.Abstract != "" {
			ub.WriteString(truncate(p.Abstract, 400))
			ub.WriteString("\n")
		}
	}

	return sb.String(), ub.String()
}

// BuildLabelPrompt builds the system and user prompts for trend cluster
// labeling.
func BuildLabelPrompt(papers []PaperSummary) (systemPrompt, userPrompt string) {
	var sb strings.Builder

	sb.WriteString("You are a research trend analyst. Given a cluster of related paper ")
	sb.WriteString("titles, produce a concise topic label and a one-sentence description ")
	sb.WriteString("of the research direction they represent.\n\n")

	sb.WriteString("You MUST respond with valid JSON in exactly this format:\n")
	sb.WriteString(`{"label": "short topic name", "description": "one sentence", "keywords": ["term1", "term2"]}`)

	var ub strings.Builder
	ub.WriteString("Paper titles in this cluster:\n")
	for _, p := range papers {
		ub.WriteString("- ")
		ub.WriteString(p.Title)
		ub.WriteString("\n")
	}

	return sb.String(), ub.String()
}

// truncate shortens s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	out := make([]rune, 0, len(runes))
	size := 0
	for _, r := range runes {
		size += len(string(r))
		if size > n {
			break
		}
		out = append(out, r)
	}
	return string(out) + "..."
}
