// Package httpclient builds the retrying HTTP client shared by the completion and embedding providers.
package httpclient

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultRetryMax = 2
)

// Options configures NewRetrying. Zero values use defaults.
type Options struct {
	Timeout  time.Duration // per attempt
	RetryMax int
}

// NewRetrying returns a standard *http.Client backed by go-retryablehttp. It retries
// connection errors and 5xx/429 responses with exponential backoff and honours the
// request context, so provider SDKs can be handed it via their WithHTTPClient options.
func NewRetrying(opts Options) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	retryMax := opts.RetryMax
	if retryMax <= 0 {
		retryMax = defaultRetryMax
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = timeout
	retryClient.RetryMax = retryMax
	retryClient.RetryWaitMin = 250 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil // providers log at the strategy layer

	return retryClient.StandardClient()
}
