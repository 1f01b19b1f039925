// Package googleai wraps the Google Gen AI SDK (Gemini API) for embeddings and text generation.
package googleai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

var (
	// ErrEmptyInput is returned when CreateEmbedding or Complete is called with empty input.
	ErrEmptyInput = errors.New("googleai: input text is empty")
	// ErrInvalidDims is returned when dimensions is not positive.
	ErrInvalidDims = errors.New("googleai: embedding dimensions must be positive")
	// ErrNoEmbeddingInResponse is returned when the API response contains no embedding data.
	ErrNoEmbeddingInResponse = errors.New("googleai: no embedding in response")
	// ErrDimensionMismatch is returned when the response embedding length does not match configured dimensions.
	ErrDimensionMismatch = errors.New("googleai: embedding dimension mismatch")
)

const (
	defaultDimension      = 1536
	defaultEmbeddingModel = "gemini-embedding-001"
	defaultChatModel      = "gemini-2.0-flash"
	defaultTemperature    = 0.1
)

// Client calls the Gemini embedding and generate-content APIs.
type Client struct {
	client         *genai.Client
	embeddingModel string
	chatModel      string
	temperature    float32
	dimensions     int
	baseURL        string
	httpClient     *http.Client
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithDimensions sets the requested embedding dimension (must match the store column).
func WithDimensions(dim int) ClientOption {
	return func(c *Client) {
		c.dimensions = dim
	}
}

// WithModel sets the embedding model name (e.g. gemini-embedding-001). Empty uses default.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.embeddingModel = model
		}
	}
}

// WithChatModel sets the generation model name. Empty uses default.
func WithChatModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.chatModel = model
		}
	}
}

// WithTemperature sets the sampling temperature for Complete.
func WithTemperature(t float64) ClientOption {
	return func(c *Client) {
		c.temperature = float32(t)
	}
}

// WithBaseURL overrides the Gemini API endpoint.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a Gemini client.
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	client := &Client{
		embeddingModel: defaultEmbeddingModel,
		chatModel:      defaultChatModel,
		temperature:    defaultTemperature,
		dimensions:     defaultDimension,
	}
	for _, opt := range opts {
		opt(client)
	}

	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: client.httpClient,
	}
	if client.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: client.baseURL}
	}

	genaiClient, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("googleai client: %w", err)
	}

	client.client = genaiClient

	return client, nil
}

// CreateEmbedding returns the embedding vector for the given text using the configured model.
// The returned slice length equals the configured dimensions when OutputDimensionality is supported.
func (c *Client) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}

	if c.dimensions <= 0 || c.dimensions > math.MaxInt32 {
		return nil, ErrInvalidDims
	}

	contents := []*genai.Content{genai.NewContentFromText(input, genai.RoleUser)}
	//nolint:gosec // G115: c.dimensions is bounded above by math.MaxInt32
	dimInt32 := int32(c.dimensions)

	resp, err := c.client.Models.EmbedContent(ctx, c.embeddingModel, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dimInt32,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embedding: %w", err)
	}

	if len(resp.Embeddings) == 0 {
		return nil, ErrNoEmbeddingInResponse
	}

	emb := resp.Embeddings[0].Values
	if len(emb) != c.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(emb), c.dimensions)
	}

	out := make([]float32, len(emb))
	copy(out, emb)

	return out, nil
}

// Complete generates text for prompt and returns the concatenated text parts of the first candidate.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyInput
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.chatModel, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	return resp.Text(), nil
}
