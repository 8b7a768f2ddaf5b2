// Package llm is the unified client for the external text-generation service.
// Provider adapters translate the unified request/response types to a concrete
// wire protocol; the core never speaks HTTP to the backend directly.
package llm

import (
	"context"
	"fmt"
)

// ProviderAdapter is implemented per backend wire protocol.
type ProviderAdapter interface {
	Name() string
	// Complete performs a chat-style call (ordered role-tagged messages).
	Complete(ctx context.Context, req Request) (Response, error)
	// Generate performs a flattened single-prompt call.
	Generate(ctx context.Context, req Request) (Response, error)
	// ListModels returns the model identifiers the backend can serve.
	ListModels(ctx context.Context) ([]string, error)
}

type Client struct {
	providers       map[string]ProviderAdapter
	defaultProvider string
}

func NewClient() *Client {
	return &Client{providers: map[string]ProviderAdapter{}}
}

func (c *Client) Register(adapter ProviderAdapter) {
	if c.providers == nil {
		c.providers = map[string]ProviderAdapter{}
	}
	c.providers[adapter.Name()] = adapter
	if c.defaultProvider == "" {
		c.defaultProvider = adapter.Name()
	}
}

func (c *Client) SetDefaultProvider(name string) {
	c.defaultProvider = name
}

func (c *Client) resolve(req *Request) (ProviderAdapter, error) {
	prov := req.Provider
	if prov == "" {
		prov = c.defaultProvider
	}
	if prov == "" {
		return nil, &ConfigurationError{Message: "no provider specified and no default provider configured"}
	}
	adapter, ok := c.providers[prov]
	if !ok {
		return nil, &ConfigurationError{Message: fmt.Sprintf("unknown provider: %s", prov)}
	}
	req.Provider = prov
	return adapter, nil
}

func (c *Client) Complete(ctx context.Context, req Request) (Response, error) {
	if err := req.Validate(); err != nil {
		return Response{}, err
	}
	adapter, err := c.resolve(&req)
	if err != nil {
		return Response{}, err
	}
	return adapter.Complete(ctx, req)
}

func (c *Client) Generate(ctx context.Context, req Request) (Response, error) {
	if err := req.Validate(); err != nil {
		return Response{}, err
	}
	adapter, err := c.resolve(&req)
	if err != nil {
		return Response{}, err
	}
	return adapter.Generate(ctx, req)
}

// ListModels queries the default provider for its model identifiers.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	if c.defaultProvider == "" {
		return nil, &ConfigurationError{Message: "no default provider configured"}
	}
	return c.providers[c.defaultProvider].ListModels(ctx)
}
