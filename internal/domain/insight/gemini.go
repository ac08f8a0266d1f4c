package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"groundops/internal/platform/apperror"
)

const (
	msgMissingKey  = "ERROR: API Configuration Missing. Please ensure INSIGHT_API_KEY is set."
	msgInvalidKey  = "ERROR: Invalid API Key. Please check your credentials."
	msgRateLimited = "ERROR: Rate limit exceeded. Please try again in a minute."
)

// Generator turns a bundle into narrative text.
type Generator interface {
	Generate(ctx context.Context, bundle Bundle) (string, error)
}

type GeminiClient struct {
	APIKey  string
	BaseURL string
	Model   string
	HTTP    *http.Client
}

func NewGeminiClient(apiKey, baseURL, model string, timeout time.Duration) *GeminiClient {
	return &GeminiClient{
		APIKey:  apiKey,
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"topP"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func Prompt(bundle Bundle) (string, error) {
	data, err := json.Marshal(bundle)
	if err != nil {
		return "", err
	}
	return `You are a senior HR consultant for an international airport ground handling company.
Analyze the following employee data and provide:
1. A 2-sentence executive summary of their performance.
2. One specific area for improvement based on their observations/notes.
3. A predicted "Retention Risk" level (Low, Medium, High).

DATA:
` + string(data), nil
}

func (c *GeminiClient) Generate(ctx context.Context, bundle Bundle) (string, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return "", failure(nil, msgMissingKey)
	}
	prompt, err := Prompt(bundle)
	if err != nil {
		return "", failure(err, "ERROR: Analysis failed: "+err.Error())
	}
	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{Temperature: 0.7, TopP: 0.95},
	})
	if err != nil {
		return "", failure(err, "ERROR: Analysis failed: "+err.Error())
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.BaseURL, url.PathEscape(c.Model), url.QueryEscape(c.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", failure(err, "ERROR: Analysis failed: "+err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		// the key is in the query string; never echo the url
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return "", failure(err, "ERROR: Analysis failed: "+err.Error())
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", failure(fmt.Errorf("status %d", resp.StatusCode), msgInvalidKey)
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", failure(fmt.Errorf("status %d", resp.StatusCode), msgRateLimited)
	case resp.StatusCode >= 300:
		detail := http.StatusText(resp.StatusCode)
		var parsed generateResponse
		if json.Unmarshal(raw, &parsed) == nil && parsed.Error != nil && parsed.Error.Message != "" {
			detail = parsed.Error.Message
		}
		return "", failure(fmt.Errorf("status %d", resp.StatusCode), "ERROR: Analysis failed: "+detail)
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", failure(err, "ERROR: Analysis failed: malformed response")
	}
	var text strings.Builder
	for _, cand := range parsed.Candidates {
		for _, p := range cand.Content.Parts {
			text.WriteString(p.Text)
		}
		if text.Len() > 0 {
			break
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", failure(errors.New("empty response"), "ERROR: Analysis failed: empty response from insight service")
	}
	return text.String(), nil
}

func failure(err error, message string) error {
	appErr := apperror.External(err, message)
	appErr.Code = "insight_failed"
	return appErr
}
