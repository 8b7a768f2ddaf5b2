// Package ollama adapts the unified llm types to a local Ollama server.
// Three endpoints are used: /api/chat for role-tagged calls, /api/generate for
// flattened prompts (compaction and classification), and /api/tags for model
// discovery.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/orchestraai/orchestra/internal/llm"
)

type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
}

type Adapter struct {
	cfg    Config
	client *http.Client
}

const defaultRequestTimeout = 10 * time.Minute

func NewAdapter(cfg Config) *Adapter {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	return &Adapter{
		cfg:    cfg,
		client: &http.Client{Timeout: 0},
	}
}

func (a *Adapter) Name() string { return "ollama" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatBody struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

type generateBody struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

func (a *Adapter) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	msgs := make([]chatMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = chatMessage{Role: string(m.Role), Content: m.Content}
	}
	body := chatBody{Model: req.Model, Messages: msgs, Stream: false}

	raw, err := a.post(ctx, "/api/chat", body)
	if err != nil {
		return llm.Response{}, err
	}
	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return llm.Response{}, llm.NewRejectedError(a.Name(), http.StatusOK, fmt.Sprintf("malformed chat response: %v", err))
	}
	return llm.Response{Provider: a.Name(), Model: req.Model, Content: parsed.Message.Content}, nil
}

func (a *Adapter) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	body := generateBody{Model: req.Model, Prompt: req.Prompt, Stream: false}

	raw, err := a.post(ctx, "/api/generate", body)
	if err != nil {
		return llm.Response{}, err
	}
	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return llm.Response{}, llm.NewRejectedError(a.Name(), http.StatusOK, fmt.Sprintf("malformed generate response: %v", err))
	}
	return llm.Response{Provider: a.Name(), Model: req.Model, Content: parsed.Response}, nil
}

func (a *Adapter) ListModels(ctx context.Context) ([]string, error) {
	requestCtx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(requestCtx, http.MethodGet, a.cfg.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, llm.WrapTransportError(a.Name(), err)
	}
	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, llm.WrapTransportError(a.Name(), err)
	}
	defer resp.Body.Close()

	raw, err := readBody(a.Name(), resp)
	if err != nil {
		return nil, err
	}
	var parsed tagsResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, llm.NewRejectedError(a.Name(), resp.StatusCode, fmt.Sprintf("malformed tags response: %v", err))
	}
	names := make([]string, 0, len(parsed.Models))
	for _, m := range parsed.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

func (a *Adapter) post(ctx context.Context, path string, body any) ([]byte, error) {
	requestCtx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &llm.ConfigurationError{Message: fmt.Sprintf("encode request: %v", err)}
	}
	httpReq, err := http.NewRequestWithContext(requestCtx, http.MethodPost, a.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, llm.WrapTransportError(a.Name(), err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, llm.WrapTransportError(a.Name(), err)
	}
	defer resp.Body.Close()

	return readBody(a.Name(), resp)
}

func readBody(provider string, resp *http.Response) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, llm.WrapTransportError(provider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt := string(raw)
		if len(excerpt) > 512 {
			excerpt = excerpt[:512]
		}
		return nil, llm.NewRejectedError(provider, resp.StatusCode, excerpt)
	}
	return raw, nil
}
