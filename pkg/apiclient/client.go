// Package apiclient talks to the site API: JSON requests against named
// resources returning the {success, data|error} envelope.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Result is the API response envelope.
type Result struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Client sends a request for a resource path such as "bookings" or "users/7".
type Client interface {
	Request(ctx context.Context, method, resource string, body interface{}) (Result, error)
}

// Resource paths understood by the API, relative to /api.
const ResourceBookings = "bookings"

// BookingResource returns "bookings/{id}".
func BookingResource(id string) string { return ResourceBookings + "/" + id }

// ContentResource returns "content/{section}".
func ContentResource(section string) string { return "content/" + section }

// ResourceMedia is the media upload resource.
const ResourceMedia = "media"

// UserResource returns "users/{id}".
func UserResource(id string) string { return "users/" + id }

// HTTP is a Client over net/http.
type HTTP struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTP creates a client for an API rooted at baseURL (e.g. https://example.com/api).
func NewHTTP(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTP {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// WithToken returns a copy of the client that sends a bearer token.
func (h *HTTP) WithToken(token string) *HTTP {
	cp := *h
	cp.token = token
	return &cp
}

// Request sends body as JSON (nil for no body) and decodes the envelope. A
// non-2xx status without an error message is reported as Success false.
func (h *HTTP) Request(ctx context.Context, method, resource string, body interface{}) (Result, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return Result{}, fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, h.url(resource), reader)
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return h.do(req, resource)
}

// Upload posts a single file as multipart form field "file".
func (h *HTTP) Upload(ctx context.Context, resource, filename, contentType string, content io.Reader) (Result, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreatePart(fileHeader(filename, contentType))
	if err != nil {
		return Result{}, fmt.Errorf("create part: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return Result{}, fmt.Errorf("copy file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return Result{}, fmt.Errorf("close multipart: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url(resource), &buf)
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return h.do(req, resource)
}

func (h *HTTP) url(resource string) string {
	return h.baseURL + "/" + strings.TrimLeft(resource, "/")
}

func (h *HTTP) do(req *http.Request, resource string) (Result, error) {
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%s %s: %w", req.Method, resource, err)
	}
	defer resp.Body.Close()

	var res Result
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&res); err != nil && err != io.EOF {
			return Result{}, fmt.Errorf("decode %s response: %w", resource, err)
		}
	} else {
		res.Success = true
	}
	if resp.StatusCode >= 300 {
		res.Success = false
		if res.Error == "" {
			res.Error = http.StatusText(resp.StatusCode)
		}
	}
	h.logger.Debug("api request",
		zap.String("method", req.Method),
		zap.String("resource", resource),
		zap.Int("status", resp.StatusCode),
		zap.Bool("success", res.Success),
	)
	return res, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func fileHeader(filename, contentType string) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+quoteEscaper.Replace(filename)+`"`)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	return h
}
