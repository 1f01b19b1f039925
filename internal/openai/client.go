// Package openai wraps the official OpenAI Go SDK for embeddings and chat completions.
// It also serves OpenAI-compatible endpoints (e.g. Groq) through WithBaseURL.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
)

var (
	// ErrEmptyInput is returned when CreateEmbedding or Complete is called with empty input.
	ErrEmptyInput = errors.New("openai: input text is empty")
	// ErrInvalidDims is returned when dimensions is not positive.
	ErrInvalidDims = errors.New("openai: embedding dimensions must be positive")
	// ErrNoEmbeddingInResponse is returned when the API response contains no embedding data.
	ErrNoEmbeddingInResponse = errors.New("openai: no embedding in response")
	// ErrDimensionMismatch is returned when the response embedding length does not match configured dimensions.
	ErrDimensionMismatch = errors.New("openai: embedding dimension mismatch")
	// ErrNoChoices is returned when a chat completion has no choices.
	ErrNoChoices = errors.New("openai: no choices in completion response")
)

const (
	defaultDimension      = 1536
	defaultEmbeddingModel = openaisdk.EmbeddingModelTextEmbedding3Small
	defaultChatModel      = "gpt-4o-mini"
	defaultTemperature    = 0.1
)

// Client calls the OpenAI embeddings and chat completions APIs via the official SDK.
type Client struct {
	sdk            openaisdk.Client
	dimensions     int
	embeddingModel string
	chatModel      string
	temperature    float64
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

// WithEmbeddingModel sets the embedding model. Empty keeps text-embedding-3-small.
func WithEmbeddingModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.embeddingModel = model
		}
	}
}

// WithChatModel sets the chat completion model. Empty keeps the default.
func WithChatModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.chatModel = model
		}
	}
}

// WithTemperature sets the sampling temperature for completions.
func WithTemperature(t float64) ClientOption {
	return func(c *Client) {
		c.temperature = t
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
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

// NewClient creates an OpenAI client using the official SDK.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	client := &Client{
		dimensions:     defaultDimension,
		embeddingModel: defaultEmbeddingModel,
		chatModel:      defaultChatModel,
		temperature:    defaultTemperature,
	}

	for _, opt := range opts {
		opt(client)
	}

	sdkOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if client.baseURL != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(client.baseURL))
	}

	if client.httpClient != nil {
		sdkOpts = append(sdkOpts, option.WithHTTPClient(client.httpClient))
	}

	client.sdk = openaisdk.NewClient(sdkOpts...)

	return client
}

// CreateEmbedding returns the embedding vector for the given text.
// The returned slice length equals the configured dimensions.
func (c *Client) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}

	if c.dimensions <= 0 {
		return nil, ErrInvalidDims
	}

	resp, err := c.sdk.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfString: param.NewOpt(input),
		},
		Model:      c.embeddingModel,
		Dimensions: param.NewOpt(int64(c.dimensions)),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, ErrNoEmbeddingInResponse
	}

	emb := resp.Data[0].Embedding
	if len(emb) != c.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(emb), c.dimensions)
	}

	out := make([]float32, len(emb))
	for i := range emb {
		out[i] = float32(emb[i])
	}

	return out, nil
}

// Complete sends prompt as a single user message and returns the first choice's text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyInput
	}

	resp, err := c.sdk.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.UserMessage(prompt),
		},
		Model:       openaisdk.ChatModel(c.chatModel),
		Temperature: param.NewOpt(c.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	return resp.Choices[0].Message.Content, nil
}
