// Package gemini expands keyword lists into polished service-note
// descriptions using the Generative Language API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/option"
)

// ErrNotConfigured is returned by Generate when no API key was provided at
// startup. Callers surface it as a dismissible notice, never a crash.
var ErrNotConfigured = errors.New("description generation is not configured: set GEMINI_API_KEY")

const model = "models/gemini-2.5-flash"

type Client struct {
	svc *generativelanguage.Service
}

// NewClient builds a generator. An empty API key yields a disabled client
// whose Generate always returns ErrNotConfigured.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return &Client{}, nil
	}
	svc, err := generativelanguage.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create generative language service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// Enabled reports whether an API key was configured.
func (c *Client) Enabled() bool {
	return c != nil && c.svc != nil
}

// Generate turns a comma- or space-separated keyword list into a short
// professional description. Empty keywords return an empty string without
// touching the API.
func (c *Client) Generate(ctx context.Context, keywords string) (string, error) {
	keywords = strings.TrimSpace(keywords)
	if keywords == "" {
		return "", nil
	}
	if !c.Enabled() {
		return "", ErrNotConfigured
	}

	prompt := fmt.Sprintf(
		"Write a brief, professional description of the work performed during a "+
			"consulting session, in Spanish, based on these keywords: %s. "+
			"Answer with the description only, no preamble.", keywords)

	req := &generativelanguage.GenerateContentRequest{
		Contents: []*generativelanguage.Content{
			{Parts: []*generativelanguage.Part{{Text: prompt}}},
		},
	}

	resp, err := c.svc.Models.GenerateContent(model, req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text := strings.TrimSpace(part.Text); text != "" {
				return text, nil
			}
		}
	}
	return "", fmt.Errorf("generate content: empty response")
}
