// Package gemini implements llm.Analyzer on Google's Gemini models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"aichecker-backend/internal/llm"
)

const DefaultModel = "gemini-1.5-flash"

type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Analyzer sends detection prompts to a Gemini model.
type Analyzer struct {
	client *genai.Client
	model  string
	gen    generator
}

// NewAnalyzer dials Gemini with apiKey. Close releases the client.
func NewAnalyzer(ctx context.Context, apiKey, model string) (*Analyzer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	m := cl.GenerativeModel(model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: ptrFloat32(0),
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(llm.SystemPrompt)},
	}
	return &Analyzer{client: cl, model: model, gen: m}, nil
}

// Close releases the underlying client.
func (a *Analyzer) Close() error {
	if a == nil || a.client == nil {
		return nil
	}
	return a.client.Close()
}

func (a *Analyzer) Analyze(ctx context.Context, input llm.Input, progress llm.ProgressFunc) (string, error) {
	if a == nil || a.gen == nil {
		return "", errors.New("gemini: analyzer is not initialised")
	}
	progress.Report(10, "sending text to "+a.model)

	resp, err := a.gen.GenerateContent(ctx, genai.Text(llm.UserPrompt(input)))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	txt := strings.TrimSpace(firstText(resp))
	if txt == "" {
		return "", errors.New("gemini: empty response")
	}
	progress.Report(90, "analysis received")
	return txt, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }

var _ llm.Analyzer = (*Analyzer)(nil)
