package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inkwell/inkwell-backend/internal/config"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini calls Google's generateContent API for summarization.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	log     *logrus.Entry
}

// NewGemini creates a Gemini-backed summarizer. A missing API key is a
// configuration error.
func NewGemini(cfg config.SummarizerConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, config.ErrMissingSummarizerKey
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Gemini{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     logrus.WithField("component", "summarize.gemini"),
	}, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	CandidateCount  int     `json:"candidateCount"`
}

type geminiSafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
	SafetySettings   []geminiSafetySetting  `json:"safetySettings"`
}

type geminiResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Summarize implements Summarizer
func (g *Gemini) Summarize(ctx context.Context, req Request) (string, error) {
	temperature := 0.5
	topK := 40
	if req.ForceNew {
		// Widen the sampling band so a retried summary of the same text
		// is not pinned to the previous output.
		temperature = 0.5 + rand.Float64()*0.4
		topK = 40 + rand.Intn(20)
	}

	body := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: Prompt(req.Text)}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     temperature,
			TopP:            0.95,
			TopK:            topK,
			MaxOutputTokens: 200,
			CandidateCount:  1,
		},
		SafetySettings: []geminiSafetySetting{
			{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_ONLY_HIGH"},
			{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_ONLY_HIGH"},
			{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_ONLY_HIGH"},
			{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_ONLY_HIGH"},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("summarization API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("summarization API request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		g.log.WithField("status", resp.StatusCode).Error("upstream returned non-success status")
		return "", &UpstreamError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", ErrInvalidResponse
	}
	if len(parsed.Candidates) == 0 || parsed.Candidates[0].Content == nil || len(parsed.Candidates[0].Content.Parts) == 0 {
		g.log.Error("upstream response missing candidate content")
		return "", ErrInvalidResponse
	}

	summary := parsed.Candidates[0].Content.Parts[0].Text
	if summary == "" {
		return "", ErrInvalidResponse
	}

	return summary, nil
}
