package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"cratedigger/internal/apperrors"
	"cratedigger/internal/breaker"
	"cratedigger/internal/models"
)

var (
	ErrCompletionNotConfigured = apperrors.Configuration("completion API key is not configured")
	ErrMalformedCompletion     = apperrors.Upstream("LLM returned non-JSON content")
)

// CompletionGateway asks the completion model which candidates fit a crate.
// Results only ever reference ids from the candidates passed in.
type CompletionGateway interface {
	Configured() bool
	SuggestAlbums(ctx context.Context, prompt SuggestionPrompt, candidates []models.SuggestionCandidate) ([]models.Suggestion, error)
}

type CompletionConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type completionGateway struct {
	llm   llms.Model
	model string
	cb    *gobreaker.CircuitBreaker[*llms.ContentResponse]
}

// NewCompletionGateway returns an unconfigured gateway when no API key is set;
// it then fails every call with ErrCompletionNotConfigured.
func NewCompletionGateway(cfg CompletionConfig) (CompletionGateway, error) {
	if cfg.APIKey == "" {
		log.Warn().Msg("Completion API key is not set, crate suggestions are disabled")
		return &completionGateway{model: cfg.Model}, nil
	}
	opts := []openai.Option{openai.WithToken(cfg.APIKey), openai.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI LLM: %w", err)
	}
	return NewCompletionGatewayWithModel(llm, cfg.Model), nil
}

func NewCompletionGatewayWithModel(llm llms.Model, model string) CompletionGateway {
	return &completionGateway{
		llm:   llm,
		model: model,
		cb:    breaker.New[*llms.ContentResponse]("completion-api", 5, nil),
	}
}

func (g *completionGateway) Configured() bool {
	return g.llm != nil
}

// supportsTemperature reports whether model accepts a non-default temperature.
func supportsTemperature(model string) bool {
	return model != "gpt-5-nano"
}

func (g *completionGateway) SuggestAlbums(ctx context.Context, prompt SuggestionPrompt, candidates []models.SuggestionCandidate) ([]models.Suggestion, error) {
	if !g.Configured() {
		return nil, ErrCompletionNotConfigured
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, prompt.System),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt.User),
	}
	opts := []llms.CallOption{llms.WithJSONMode()}
	if supportsTemperature(g.model) {
		opts = append(opts, llms.WithTemperature(0))
	}

	resp, err := breaker.Execute(g.cb, func() (*llms.ContentResponse, error) {
		return g.llm.GenerateContent(ctx, messages, opts...)
	})
	if err != nil {
		log.Error().Err(err).Str("model", g.model).Msg("Completion request failed")
		return nil, apperrors.Upstream(err.Error()).WithCause(err)
	}

	var content string
	if resp != nil && len(resp.Choices) > 0 {
		content = resp.Choices[0].Content
	}
	suggestions, err := parseSuggestions(content, candidates)
	if err != nil {
		log.Error().Err(err).Str("raw_response", content).Msg("Failed to parse completion as JSON")
		return nil, err
	}
	return suggestions, nil
}

type rawSuggestion struct {
	AlbumID json.RawMessage `json:"album_id"`
	Score   json.RawMessage `json:"score"`
	Reason  json.RawMessage `json:"reason"`
}

// parseSuggestions decodes a completion and keeps only entries naming a
// candidate, first occurrence per id, at most MaxSuggestions. Display fields
// come from the candidates, never from the completion.
func parseSuggestions(content string, candidates []models.SuggestionCandidate) ([]models.Suggestion, error) {
	cleaned := stripCodeFences(content)
	if cleaned == "" {
		cleaned = "{}"
	}

	var payload struct {
		Suggestions json.RawMessage `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, ErrMalformedCompletion.WithCause(err)
	}
	var raw []rawSuggestion
	if len(payload.Suggestions) > 0 && !bytes.Equal(payload.Suggestions, []byte("null")) {
		if err := json.Unmarshal(payload.Suggestions, &raw); err != nil {
			return nil, ErrMalformedCompletion.WithCause(err)
		}
	}

	byID := make(map[string]models.SuggestionCandidate, len(candidates))
	for _, c := range candidates {
		byID[c.AlbumID] = c
	}

	suggestions := []models.Suggestion{}
	seen := make(map[string]struct{})
	for _, r := range raw {
		if len(suggestions) == MaxSuggestions {
			break
		}
		var albumID string
		if json.Unmarshal(r.AlbumID, &albumID) != nil {
			continue
		}
		c, ok := byID[albumID]
		if !ok {
			continue
		}
		if _, dup := seen[albumID]; dup {
			continue
		}
		seen[albumID] = struct{}{}

		s := models.Suggestion{
			AlbumID:     albumID,
			AlbumName:   c.AlbumName,
			ArtistName:  c.ArtistName,
			ReleaseYear: c.ReleaseYear,
		}
		var score *float64
		if json.Unmarshal(r.Score, &score) == nil {
			s.Score = score
		}
		var reason string
		if json.Unmarshal(r.Reason, &reason) == nil {
			s.Reason = reason
		}
		suggestions = append(suggestions, s)
	}
	return suggestions, nil
}

func stripCodeFences(content string) string {
	cleaned := strings.TrimSpace(content)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	}
	return strings.TrimSpace(cleaned)
}
