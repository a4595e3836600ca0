package eutils

import (
	"github.com/henrybloomingdale/pubcrawl/internal/ncbi"
)

// Client is a PubMed client for the ESearch and EFetch endpoints.
// It embeds ncbi.BaseClient for shared rate limiting, common parameters,
// and response size guards.
type Client struct {
	*ncbi.BaseClient
}

// NewClient creates a new E-utilities client with the given options.
func NewClient(opts ...ncbi.Option) *Client {
	return &Client{BaseClient: ncbi.NewBaseClient(opts...)}
}

// NewClientWithBase creates a new E-utilities client using an existing base
// client, so several stages can share one rate limiter.
func NewClientWithBase(base *ncbi.BaseClient) *Client {
	return &Client{BaseClient: base}
}
