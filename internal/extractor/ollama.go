// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"leakaudit/internal/span"
)

const (
	DefaultOllamaBaseURL = "http://localhost:11434"
	DefaultOllamaModel   = "gpt-oss:20b"
)

// OllamaConfig configures the local Ollama adapter.
type OllamaConfig struct {
	BaseURL     string
	Model       string
	Temperature float64
	HTTPClient  *http.Client
}

// Ollama classifies spans through a local Ollama /api/chat endpoint.
type Ollama struct {
	cfg      OllamaConfig
	contract Contract
	endpoint string
}

type ollamaRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Message struct {
		Content  string `json:"content"`
		Thinking string `json:"thinking"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error"`
}

// NewOllama creates the adapter, filling unset fields with defaults.
func NewOllama(cfg OllamaConfig, contract Contract) *Ollama {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &Ollama{
		cfg:      cfg,
		contract: contract,
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/api/chat",
	}
}

func (o *Ollama) Name() string { return "ollama:" + o.cfg.Model }

// Extract sends the contract as the system message and the span text as the
// user message.
func (o *Ollama) Extract(ctx context.Context, s span.Span) (Opinion, error) {
	req := ollamaRequest{
		Model: o.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: o.contract.Text},
			{Role: "user", Content: o.contract.UserMessage(s.Text)},
		},
		Options: map[string]any{"temperature": o.cfg.Temperature},
	}

	var resp ollamaResponse
	if err := postJSON(ctx, o.cfg.HTTPClient, o.endpoint, nil, req, &resp); err != nil {
		return Opinion{}, fmt.Errorf("ollama: %w", err)
	}
	if resp.Error != "" {
		return Opinion{}, fmt.Errorf("ollama: %w: %s", ErrTransientUnavailable, resp.Error)
	}
	return opinionFromReply(o.contract.Version, resp.Message.Content)
}
