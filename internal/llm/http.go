package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/redactyl/alertlens/internal/types"
)

// Defaults for an OpenAI-compatible endpoint.
const (
	DefaultEndpoint = "https://api.openai.com/v1"
	DefaultModel    = "gpt-4o-mini"
	DefaultTimeout  = 60 * time.Second
)

// Config configures an HTTPProvider.
type Config struct {
	Endpoint    string
	Model       string
	APIKey      string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
	// Reference is appended to the system prompt, typically the combined
	// focus-area summary from the context documents.
	Reference string
	Client    *http.Client
	Logger    zerolog.Logger
}

// HTTPProvider talks to a chat-completions endpoint.
type HTTPProvider struct {
	cfg    Config
	system string
	client *http.Client
}

var (
	_ Provider     = (*HTTPProvider)(nil)
	_ Describer    = (*HTTPProvider)(nil)
	_ RiskReviewer = (*HTTPProvider)(nil)
)

// NewHTTPProvider returns a provider for cfg, filling unset fields with
// defaults.
func NewHTTPProvider(cfg Config) (*HTTPProvider, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
	}
	sys, err := render("system", promptData{Reference: cfg.Reference})
	if err != nil {
		return nil, fmt.Errorf("llm: system prompt: %w", err)
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPProvider{cfg: cfg, system: sys, client: client}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends one system+user exchange and returns the reply text.
func (p *HTTPProvider) Complete(ctx context.Context, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: p.system},
			{Role: "user", Content: user},
		},
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	url := strings.TrimRight(p.cfg.Endpoint, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}
	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("llm: read response: %w", err)
	}
	p.cfg.Logger.Debug().Int("status", resp.StatusCode).Dur("took", time.Since(start)).Str("model", p.cfg.Model).Msg("chat completion")
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("llm: status %d: %s", resp.StatusCode, truncate(strings.TrimSpace(string(raw)), 200, "..."))
	}
	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return "", fmt.Errorf("llm: decode response: %w", err)
	}
	if len(cr.Choices) == 0 || strings.TrimSpace(cr.Choices[0].Message.Content) == "" {
		return "", ErrNoContent
	}
	return cr.Choices[0].Message.Content, nil
}

// Classify asks the model for the bundle's focus area.
func (p *HTTPProvider) Classify(ctx context.Context, b types.ArtifactBundle) (types.ClassificationResult, error) {
	prompt, err := render("classify", bundlePrompt(b, ""))
	if err != nil {
		return types.ClassificationResult{}, err
	}
	reply, err := p.Complete(ctx, prompt)
	if err != nil {
		return types.ClassificationResult{}, err
	}
	return parseClassification(reply)
}

// AnalyzeSummary asks the model to read the bundle's summary data.
func (p *HTTPProvider) AnalyzeSummary(ctx context.Context, b types.ArtifactBundle, area types.FocusArea) (Analysis, error) {
	prompt, err := render("analyze", bundlePrompt(b, area))
	if err != nil {
		return Analysis{}, err
	}
	reply, err := p.Complete(ctx, prompt)
	if err != nil {
		return Analysis{}, err
	}
	return parseAnalysis(reply)
}

// DescribeFinding asks the model for a title, description and business
// impact. Missing fields fall back to the alert name and findings summary.
func (p *HTTPProvider) DescribeFinding(ctx context.Context, b types.ArtifactBundle, area types.FocusArea, a Analysis) (Description, error) {
	d := bundlePrompt(b, area)
	d.Analysis = analysisJSON(a)
	prompt, err := render("describe", d)
	if err != nil {
		return Description{}, err
	}
	reply, err := p.Complete(ctx, prompt)
	if err != nil {
		return Description{}, err
	}
	desc, err := parseDescription(reply)
	if err != nil {
		return Description{}, err
	}
	if desc.Title == "" {
		desc.Title = b.AlertName
	}
	if desc.Description == "" {
		desc.Description = a.FindingsSummary
	}
	return desc, nil
}

// ReviewRisk asks the model for an independent risk estimate.
func (p *HTTPProvider) ReviewRisk(ctx context.Context, b types.ArtifactBundle, area types.FocusArea, a Analysis) (RiskReview, error) {
	d := bundlePrompt(b, area)
	d.Analysis = analysisJSON(a)
	prompt, err := render("risk", d)
	if err != nil {
		return RiskReview{}, err
	}
	reply, err := p.Complete(ctx, prompt)
	if err != nil {
		return RiskReview{}, err
	}
	return parseRiskReview(reply)
}
