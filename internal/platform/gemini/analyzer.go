// Package gemini implements the analysis.Analyzer interface using Google's
// Gemini API. One batched GenerateContent call covers an entire group of
// samples; retry policy is owned by the caller, so this package only
// classifies failures as transient or permanent.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"google.golang.org/genai"

	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/analysis"
	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/config"
)

// Analyzer calls the Gemini API to enrich locally extracted sample features
// with vibe, genre and era analysis.
type Analyzer struct {
	logger         *slog.Logger
	client         *genai.Client
	model          string
	promptTemplate *template.Template
}

// NewAnalyzer creates an Analyzer with the provided configuration.
func NewAnalyzer(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Analyzer, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", analysis.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", analysis.ErrInvalidConfig)
	}

	promptTemplate, err := template.New("sample_analysis").Parse(defaultPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v",
			analysis.ErrInvalidConfig, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			analysis.ErrInvalidConfig, err)
	}

	return &Analyzer{
		logger:         logger.With("component", "gemini_analyzer", "model", cfg.ModelName),
		client:         client,
		model:          cfg.ModelName,
		promptTemplate: promptTemplate,
	}, nil
}

// AnalyzeBatch issues a single JSON-mode call covering every item and maps
// the response back to item fingerprints. API transport errors are wrapped
// as transient; malformed or blocked responses are permanent.
func (a *Analyzer) AnalyzeBatch(
	ctx context.Context,
	items []analysis.ItemFeatures,
) ([]analysis.ItemResult, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	prompt, err := a.buildPrompt(items)
	if err != nil {
		return nil, err
	}
	a.logger.Info("calling Gemini for sample group",
		"item_count", len(items),
		"prompt_length", len(prompt))

	resp, err := a.client.Models.GenerateContent(ctx, a.model, genai.Text(prompt),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
		})
	if err != nil {
		// Transport and quota failures may resolve on retry.
		return nil, fmt.Errorf("%w: %v", analysis.ErrTransientFailure, err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no content generated", analysis.ErrInvalidResponse)
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return nil, fmt.Errorf("%w: group blocked by safety filters", analysis.ErrContentBlocked)
	}

	results, err := parseResponse(resp.Text(), items)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Gemini call succeeded", "result_count", len(results))
	return results, nil
}

// promptItem is the per-sample data exposed to the prompt template.
type promptItem struct {
	Filename     string
	Format       string
	SizeBytes    int64
	BPM          int
	KeySignature string
}

const defaultPromptTemplate = `You are an expert sample librarian for SP-404 style beatmaking.
Analyze the following audio samples based on their metadata and return a JSON
array with exactly one object per sample, in any order, with the fields:
filename, vibe, genre, era, instruments (array of strings), confidence (0-1),
notes.

Samples:
{{range .}}- filename: {{.Filename}}, format: {{.Format}}, size_bytes: {{.SizeBytes}}{{if .BPM}}, bpm: {{.BPM}}{{end}}{{if .KeySignature}}, key: {{.KeySignature}}{{end}}
{{end}}
Respond with only the JSON array.`

// buildPrompt renders the analysis prompt for one group of items.
func (a *Analyzer) buildPrompt(items []analysis.ItemFeatures) (string, error) {
	data := make([]promptItem, 0, len(items))
	for _, item := range items {
		data = append(data, promptItem{
			Filename:     item.Features.Filename,
			Format:       item.Features.Format,
			SizeBytes:    item.Features.SizeBytes,
			BPM:          item.Features.BPM,
			KeySignature: item.Features.KeySignature,
		})
	}

	var buf bytes.Buffer
	if err := a.promptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}

// responseItem is one element of the JSON array the model returns.
type responseItem struct {
	Filename    string   `json:"filename"`
	Vibe        string   `json:"vibe"`
	Genre       string   `json:"genre"`
	Era         string   `json:"era"`
	Instruments []string `json:"instruments"`
	Confidence  float64  `json:"confidence"`
	Notes       string   `json:"notes"`
}

// parseResponse decodes the model output and maps each entry back to the
// fingerprint of the item it belongs to. Every input item must be covered;
// a response missing items is malformed and fails the whole call.
func parseResponse(text string, items []analysis.ItemFeatures) ([]analysis.ItemResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response text", analysis.ErrInvalidResponse)
	}

	var parsed []responseItem
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v",
			analysis.ErrInvalidResponse, err)
	}

	byFilename := make(map[string]responseItem, len(parsed))
	for _, entry := range parsed {
		byFilename[entry.Filename] = entry
	}

	results := make([]analysis.ItemResult, 0, len(items))
	for _, item := range items {
		entry, ok := byFilename[item.Features.Filename]
		if !ok {
			return nil, fmt.Errorf("%w: response missing sample %s",
				analysis.ErrInvalidResponse, item.Features.Filename)
		}
		results = append(results, analysis.ItemResult{
			Fingerprint: item.Item.Fingerprint,
			Analysis:    domainAnalysis(entry),
		})
	}
	return results, nil
}
