package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/flowbit/nlsql/internal/api/response"
)

// DefaultMaxBodyBytes is the body limit for POST /v1/query. Questions are short.
const DefaultMaxBodyBytes = 64 << 10

// RequestBodyTooLargeRecorder records when a request is rejected for exceeding the body limit.
type RequestBodyTooLargeRecorder interface {
	RecordRequestBodyTooLarge(ctx context.Context)
}

// MaxBody limits request bodies to maxBytes and answers 413 when the handler read past the
// limit. The handler's own response (usually a 400 from a truncated decode) is discarded in
// that case. recorder may be nil. maxBytes <= 0 disables the limit.
func MaxBody(maxBytes int64, recorder RequestBodyTooLargeRecorder) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)

				return
			}

			body := &limitedBody{ReadCloser: http.MaxBytesReader(w, r.Body, maxBytes)}
			r.Body = body

			buf := &responseBuffer{header: http.Header{}}
			next.ServeHTTP(buf, r)

			if body.exceeded {
				if recorder != nil {
					recorder.RecordRequestBodyTooLarge(r.Context())
				}

				response.RespondError(w, http.StatusRequestEntityTooLarge,
					"Request Entity Too Large", "request body exceeds maximum allowed size")

				return
			}

			buf.copyTo(w)
		})
	}
}

type limitedBody struct {
	io.ReadCloser

	exceeded bool
}

func (b *limitedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		b.exceeded = true
	}

	return n, err //nolint:wrapcheck // io.Reader contract: io.EOF must not be wrapped
}

// responseBuffer holds the handler's response until the body limit outcome is known.
type responseBuffer struct {
	header http.Header
	status int
	buf    bytes.Buffer
}

func (b *responseBuffer) Header() http.Header { return b.header }

func (b *responseBuffer) WriteHeader(code int) {
	if b.status == 0 {
		b.status = code
	}
}

func (b *responseBuffer) Write(p []byte) (int, error) {
	return b.buf.Write(p) //nolint:wrapcheck // bytes.Buffer writes never fail
}

func (b *responseBuffer) copyTo(w http.ResponseWriter) {
	for k, v := range b.header {
		w.Header()[k] = v
	}

	if b.status != 0 {
		w.WriteHeader(b.status)
	}

	_, _ = b.buf.WriteTo(w)
}
