// Package embeddings provides a deterministic, offline embedding client.
package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"strings"
	"unicode"

	vecmath "github.com/flowbit/nlsql/pkg/embeddings"
)

// ErrEmptyInput is returned when CreateEmbedding is called with empty input.
var ErrEmptyInput = errors.New("embeddings: input text is empty")

const defaultDimensions = 1536

// HashingClient embeds text by feature-hashing its lower-cased word tokens into a
// fixed-length vector. It needs no network access and is deterministic, so identical
// questions always score similarity 1.0 and questions sharing words score higher than
// unrelated ones. It is lexical, not semantic.
type HashingClient struct {
	dimensions int
}

// NewHashingClient creates a hashing client with the given dimensions (<= 0 uses 1536).
func NewHashingClient(dimensions int) *HashingClient {
	if dimensions <= 0 {
		dimensions = defaultDimensions
	}

	return &HashingClient{dimensions: dimensions}
}

// Dimensions returns the length of vectors produced by the client.
func (c *HashingClient) Dimensions() int {
	return c.dimensions
}

// CreateEmbedding returns the unit-length hashed embedding for input.
func (c *HashingClient) CreateEmbedding(_ context.Context, input string) ([]float32, error) {
	tokens := tokenize(input)
	if len(tokens) == 0 {
		return nil, ErrEmptyInput
	}

	vec := make([]float32, c.dimensions)

	for _, tok := range tokens {
		sum := sha256.Sum256([]byte(tok))
		idx := binary.BigEndian.Uint32(sum[:4]) % uint32(c.dimensions) //nolint:gosec // dimensions is positive

		if sum[4]&1 == 0 {
			vec[idx]++
		} else {
			vec[idx]--
		}
	}

	vecmath.NormalizeL2(vec)

	return vec, nil
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
