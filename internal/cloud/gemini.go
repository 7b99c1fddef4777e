package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/muqeet1001/shikshasetu/internal/config"
	"github.com/muqeet1001/shikshasetu/pkg/types"
)

// GeminiClient talks to the Google Generative Language API
type GeminiClient struct {
	apiKey  string
	baseURL string
	model   string
	cfg     config.GeminiConfig
	client  *http.Client
}

// NewGeminiClient creates a Gemini client from config
func NewGeminiClient(cfg config.GeminiConfig, timeout time.Duration) *GeminiClient {
	return &GeminiClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		model:   cfg.Model,
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the provider identifier
func (c *GeminiClient) Name() string { return string(types.SourceGemini) }

// Configured reports whether an API key is present
func (c *GeminiClient) Configured() bool { return c.apiKey != "" }

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		TotalTokenCount int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends one prompt to Gemini and maps the reply to a result
func (c *GeminiClient) Generate(ctx context.Context, message string, sctx *types.StudentContext) (*types.Result, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: buildPrompt(message, sctx)}}},
		},
		GenerationConfig: geminiGenConfig{
			Temperature:     c.cfg.Temperature,
			MaxOutputTokens: c.cfg.MaxTokens,
			TopP:            0.95,
			TopK:            40,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if parsed.Error.Message != "" {
			return nil, fmt.Errorf("gemini API error (%d): %s", resp.StatusCode, parsed.Error.Message)
		}
		return nil, fmt.Errorf("gemini API error: status %d", resp.StatusCode)
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	candidate := parsed.Candidates[0]
	text := strings.TrimSpace(candidate.Content.Parts[0].Text)
	if text == "" {
		return nil, fmt.Errorf("gemini returned empty text")
	}

	return &types.Result{
		Text:        text,
		Source:      types.SourceGemini,
		Confidence:  geminiConfidence(candidate.FinishReason),
		TokensUsed:  parsed.UsageMetadata.TotalTokenCount,
		HasCitation: hasCitation(text),
	}, nil
}

// geminiConfidence maps a finish reason to a confidence score. A reply
// cut off by safety filters or the token limit is trusted less.
func geminiConfidence(finishReason string) float64 {
	switch finishReason {
	case "SAFETY":
		return 0.3
	case "MAX_TOKENS":
		return 0.7
	default:
		return 0.9
	}
}
