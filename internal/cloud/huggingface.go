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

// hfConfidence is the flat confidence assigned to Hugging Face replies;
// the inference API reports no usable quality signal.
const hfConfidence = 0.8

// HuggingFaceClient talks to the Hugging Face inference API
type HuggingFaceClient struct {
	apiKey  string
	baseURL string
	model   string
	cfg     config.HuggingFaceConfig
	client  *http.Client
}

// NewHuggingFaceClient creates a Hugging Face client from config
func NewHuggingFaceClient(cfg config.HuggingFaceConfig, timeout time.Duration) *HuggingFaceClient {
	return &HuggingFaceClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		model:   cfg.Model,
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the provider identifier
func (c *HuggingFaceClient) Name() string { return string(types.SourceHuggingFace) }

// Configured reports whether an API key is present
func (c *HuggingFaceClient) Configured() bool { return c.apiKey != "" }

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	DoSample       bool    `json:"do_sample"`
	ReturnFullText bool    `json:"return_full_text"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

// Generate sends one prompt to the inference API and maps the reply
func (c *HuggingFaceClient) Generate(ctx context.Context, message string, sctx *types.StudentContext) (*types.Result, error) {
	reqBody := hfRequest{
		Inputs: buildPrompt(message, sctx),
		Parameters: hfParameters{
			MaxNewTokens:   c.cfg.MaxTokens,
			Temperature:    c.cfg.Temperature,
			DoSample:       true,
			ReturnFullText: false,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/" + c.model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("huggingface request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("huggingface API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var generations []hfGeneration
	if err := json.Unmarshal(body, &generations); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if len(generations) == 0 {
		return nil, fmt.Errorf("huggingface returned no generations")
	}

	text := strings.TrimSpace(generations[0].GeneratedText)
	if text == "" {
		return nil, fmt.Errorf("huggingface returned empty text")
	}

	return &types.Result{
		Text:        text,
		Source:      types.SourceHuggingFace,
		Confidence:  hfConfidence,
		HasCitation: hasCitation(text),
	}, nil
}
