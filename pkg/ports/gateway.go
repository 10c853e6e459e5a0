package ports

import (
	"context"
	"io"
)

// Gateway performs HTTP requests against the backend API.
//
// Non-2xx responses are returned as *gateway.APIError carrying the status and
// the decoded body.
type Gateway interface {
	// Request sends body (JSON-encoded when not nil) and decodes the response into out (when not nil).
	Request(ctx context.Context, method, path string, body any, out any) error

	// Upload sends a multipart form with a single file field.
	Upload(ctx context.Context, path, field, filename string, content io.Reader, out any) error

	// SetAuthToken sets the bearer token; an empty token removes the header.
	SetAuthToken(token string)
}
