package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/ezfix/portal/internal/dto"
	"github.com/google/uuid"
)

// maxMediaBytes bounds attachment and image downloads.
const maxMediaBytes = 64 << 20

// TokenSource supplies bearer credentials. RefreshAccess is called once when
// a bearer request comes back 401.
type TokenSource interface {
	AccessToken() string
	RefreshAccess(ctx context.Context) error
}

// Client talks to the ezfix REST backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UseTokens attaches the credential source used by authenticated calls.
func (c *Client) UseTokens(ts TokenSource) {
	c.tokens = ts
}

// hasToken is used by endpoints that work anonymously but accept a bearer.
func (c *Client) hasToken() bool {
	return c.tokens != nil && c.tokens.AccessToken() != ""
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Upload is a file part of a multipart request.
type Upload struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// Media is a downloaded binary resource.
type Media struct {
	ContentType string
	Data        []byte
}

type request struct {
	method string
	path   string
	query  url.Values

	body        []byte
	contentType string

	// auth sends the session's access token; bearer overrides it with a
	// fixed credential and disables the refresh retry.
	auth   bool
	bearer string

	// binary asks for any content type instead of JSON.
	binary bool
}

func jsonRequest(method, path string, payload interface{}) (request, error) {
	req := request{method: method, path: path}
	if payload == nil {
		return req, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return req, fmt.Errorf("encode %s %s: %w", method, path, err)
	}
	req.body = b
	req.contentType = "application/json"
	return req, nil
}

func multipartRequest(method, path string, fields map[string]string, files []Upload) (request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return request{}, fmt.Errorf("write field %s: %w", k, err)
		}
	}
	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Name))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		header.Set("Content-Type", ct)
		part, err := w.CreatePart(header)
		if err != nil {
			return request{}, fmt.Errorf("create part %s: %w", f.Name, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return request{}, fmt.Errorf("write part %s: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return request{}, fmt.Errorf("close multipart: %w", err)
	}
	return request{
		method:      method,
		path:        path,
		body:        buf.Bytes(),
		contentType: w.FormDataContentType(),
	}, nil
}

// do sends req and returns the response body of a 2xx answer.
func (c *Client) do(ctx context.Context, req request) ([]byte, http.Header, error) {
	body, header, err := c.send(ctx, req)
	if err == nil || !req.auth || req.bearer != "" || c.tokens == nil || !IsUnauthorized(err) {
		return body, header, err
	}

	slog.Info("access token rejected, refreshing", "path", req.path)
	if rerr := c.tokens.RefreshAccess(ctx); rerr != nil {
		slog.Warn("token refresh failed", "path", req.path, "error", rerr)
		return nil, nil, err
	}
	return c.send(ctx, req)
}

func (c *Client) send(ctx context.Context, req request) ([]byte, http.Header, error) {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var reader io.Reader
	if req.body != nil {
		reader = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("build %s %s: %w", req.method, req.path, err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("X-Request-ID", requestID)
	if req.binary {
		httpReq.Header.Set("Accept", "*/*")
	} else {
		httpReq.Header.Set("Accept", "application/json")
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if req.auth || req.bearer != "" {
		token := req.bearer
		if token == "" && c.tokens != nil {
			token = c.tokens.AccessToken()
		}
		if token == "" {
			return nil, nil, fmt.Errorf("%s %s: %w", req.method, req.path, ErrNoToken)
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, fmt.Errorf("%s %s: %w", req.method, req.path, ctxErr)
		}
		return nil, nil, fmt.Errorf("%w: %s %s: %v", ErrUnreachable, req.method, req.path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read %s %s: %v", ErrUnreachable, req.method, req.path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: requestID}
		var body dto.ErrorResponse
		if json.Unmarshal(data, &body) == nil {
			apiErr.Message = body.Message
		}
		return nil, nil, apiErr
	}
	return data, resp.Header, nil
}

func decodeJSON(data []byte, v interface{}) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%w: empty body", ErrUnexpectedShape)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	return nil
}

func (c *Client) media(ctx context.Context, path string, auth bool) (*Media, error) {
	data, header, err := c.do(ctx, request{method: http.MethodGet, path: path, auth: auth, binary: true})
	if err != nil {
		return nil, err
	}
	return &Media{ContentType: header.Get("Content-Type"), Data: data}, nil
}
