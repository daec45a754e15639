package services

import (
	"fmt"
	"strings"

	"cratedigger/internal/models"
)

// MaxSuggestions bounds the suggestions returned for one batch of candidates.
const MaxSuggestions = 30

const suggestionSystemPrompt = `You are an expert music curator. You review a list of albums and decide which of them reasonably fit the genre provided.

Rules:
- Output valid JSON only.
- Prefer high precision (fewer false positives).
- Return at most 30 suggestions.
- Provide a score between 0 and 1 and a short reason.
- Only include album_ids from the candidate list.
- Do not invent ids.`

// SuggestionPrompt is the system and user message pair for one completion.
type SuggestionPrompt struct {
	System string
	User   string
}

// FormatCandidateLine renders "id | title — artist (year) [genres: a; b]",
// leaving out the year and genre segments when they are unknown.
func FormatCandidateLine(c models.SuggestionCandidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s | %s — %s", c.AlbumID, c.AlbumName, c.ArtistName)
	if c.ReleaseYear != nil {
		fmt.Fprintf(&b, " (%d)", *c.ReleaseYear)
	}
	if len(c.Genres) > 0 {
		fmt.Fprintf(&b, " [genres: %s]", strings.Join(c.Genres, "; "))
	}
	return b.String()
}

func BuildSuggestionPrompt(crate *models.Crate, candidates []models.SuggestionCandidate, exclude []string) SuggestionPrompt {
	description := crate.Description
	if description == "" {
		description = "(none)"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Genre to match: %s\n", crate.Name)
	fmt.Fprintf(&b, "Context: %s\n\n", description)
	b.WriteString("Candidates (format: album_id | title — artist (year) [genres: g1; g2; ...]):\n")
	for i, c := range candidates {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(FormatCandidateLine(c))
	}
	if len(exclude) > 0 {
		fmt.Fprintf(&b, "\nAvoid suggesting these album_ids (already reviewed): %s", strings.Join(exclude, ","))
	}
	b.WriteString("\n\nReturn JSON: {\"suggestions\": [{\"album_id\": \"...\", \"score\": 0.0, \"reason\": \"...\"}]}")

	return SuggestionPrompt{System: suggestionSystemPrompt, User: b.String()}
}
