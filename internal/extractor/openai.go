// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"leakaudit/internal/span"
)

const (
	DefaultOpenAIBaseURL = "https://openrouter.ai/api/v1"
	DefaultOpenAIModel   = "openai/gpt-oss-20b"
	DefaultTemperature   = 0.2
)

// DefaultAPIKeyEnvs are consulted in order when no key is configured.
var DefaultAPIKeyEnvs = []string{"OPENROUTER_API_KEY", "OPENAI_API_KEY"}

// OpenAIConfig configures the OpenAI-compatible adapter.
type OpenAIConfig struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float64
	MaxTokens   int
	// Sent as HTTP-Referer and X-Title, which OpenRouter uses for attribution.
	Referer string
	Title   string

	HTTPClient *http.Client
}

// OpenAI classifies spans through any /chat/completions endpoint
// (OpenRouter, OpenAI, vLLM, llama.cpp).
type OpenAI struct {
	cfg      OpenAIConfig
	contract Contract
	endpoint string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content          string `json:"content"`
			Reasoning        string `json:"reasoning"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// APIKeyFromEnv returns the first non-empty variable among names.
func APIKeyFromEnv(names ...string) string {
	if len(names) == 0 {
		names = DefaultAPIKeyEnvs
	}
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

// NewOpenAI creates the adapter, filling unset fields with defaults.
func NewOpenAI(cfg OpenAIConfig, contract Contract) *OpenAI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.APIKey == "" {
		cfg.APIKey = APIKeyFromEnv()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &OpenAI{
		cfg:      cfg,
		contract: contract,
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
	}
}

func (o *OpenAI) Name() string { return "openai:" + o.cfg.Model }

// Extract sends the contract and the span text and parses the reply.
func (o *OpenAI) Extract(ctx context.Context, s span.Span) (Opinion, error) {
	req := chatRequest{
		Model: o.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: o.contract.Text},
			{Role: "user", Content: o.contract.UserMessage(s.Text)},
		},
		Temperature: o.cfg.Temperature,
		MaxTokens:   o.cfg.MaxTokens,
	}
	headers := map[string]string{
		"HTTP-Referer": o.cfg.Referer,
		"X-Title":      o.cfg.Title,
	}
	if o.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + o.cfg.APIKey
	}

	var resp chatResponse
	if err := postJSON(ctx, o.cfg.HTTPClient, o.endpoint, headers, req, &resp); err != nil {
		return Opinion{}, fmt.Errorf("openai: %w", err)
	}
	if resp.Error != nil {
		return Opinion{}, fmt.Errorf("openai: %w: upstream error: %s", ErrTransientUnavailable, resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return Opinion{}, fmt.Errorf("openai: %w: no choices", ErrTransientUnavailable)
	}

	msg := resp.Choices[0].Message
	content := strings.TrimSpace(msg.Content)
	if content == "" {
		// Reasoning models sometimes put the whole answer in the reasoning field.
		content = strings.TrimSpace(msg.Reasoning + "\n" + msg.ReasoningContent)
	}
	return opinionFromReply(o.contract.Version, content)
}

// opinionFromReply parses a raw model reply into an opinion.
func opinionFromReply(version, reply string) (Opinion, error) {
	cats, err := ParseReply(reply)
	if err != nil {
		return Opinion{}, err
	}
	op := OpinionFromCategories(version, cats...)
	op.Raw = reply
	for i := range op.Claims {
		op.Claims[i].Note = "model"
	}
	return op, nil
}
