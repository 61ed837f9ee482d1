// Package gateway talks to the portfolio REST API. Client maps one method to
// one request; Gateway adds the reload-after-write contract on top.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"portfolio/cms/internal/content"
)

// TokenSource supplies the bearer token attached to outgoing requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns itself.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// RequestModifierFunc adjusts a request before it is sent.
type RequestModifierFunc func(*http.Request) *http.Request

// ErrResponseBody marks a 2xx response whose body did not decode. The
// request itself succeeded.
var ErrResponseBody = errors.New("unreadable response body")

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

type ToggleResult struct {
	ProjectID  int64 `json:"project_id"`
	IsFeatured bool  `json:"is_featured"`
}

type Token struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type Client struct {
	baseURL   *url.URL
	http      *http.Client
	tokens    TokenSource
	modifiers []RequestModifierFunc
	logger    *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.http = client }
}

func WithTokenSource(tokens TokenSource) Option {
	return func(c *Client) { c.tokens = tokens }
}

func WithRequestModifier(modifier RequestModifierFunc) Option {
	return func(c *Client) { c.modifiers = append(c.modifiers, modifier) }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("parse base url: %q is not absolute", baseURL)
	}
	c := &Client{
		baseURL: parsed,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) FetchPortfolio(ctx context.Context) (content.Portfolio, error) {
	var out content.Portfolio
	err := c.doJSON(ctx, http.MethodGet, "/", nil, &out)
	return out, err
}

func (c *Client) SaveHero(ctx context.Context, hero content.Hero) (content.Hero, error) {
	var out content.Hero
	err := c.doJSON(ctx, http.MethodPost, "/hero", hero, &out)
	return out, err
}

func (c *Client) CreateProject(ctx context.Context, project content.Project) (content.Project, error) {
	var out content.Project
	err := c.doJSON(ctx, http.MethodPost, "/projects", project, &out)
	return out, err
}

func (c *Client) UpdateProject(ctx context.Context, id int64, project content.Project) (content.Project, error) {
	var out content.Project
	err := c.doJSON(ctx, http.MethodPut, "/projects/"+strconv.FormatInt(id, 10), project, &out)
	return out, err
}

func (c *Client) DeleteProject(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, "/projects/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) ToggleFeatured(ctx context.Context, id int64) (ToggleResult, error) {
	var out ToggleResult
	err := c.doJSON(ctx, http.MethodPatch, "/projects/"+strconv.FormatInt(id, 10)+"/toggle-featured", nil, &out)
	return out, err
}

func (c *Client) CreateExperience(ctx context.Context, experience content.Experience) (content.Experience, error) {
	var out content.Experience
	err := c.doJSON(ctx, http.MethodPost, "/experiences", experience, &out)
	return out, err
}

func (c *Client) UpdateExperience(ctx context.Context, id int64, experience content.Experience) (content.Experience, error) {
	var out content.Experience
	err := c.doJSON(ctx, http.MethodPut, "/experiences/"+strconv.FormatInt(id, 10), experience, &out)
	return out, err
}

func (c *Client) DeleteExperience(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, "/experiences/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) UpdateSettings(ctx context.Context, settings content.Settings) (content.Settings, error) {
	var out content.Settings
	err := c.doJSON(ctx, http.MethodPut, "/settings", settings, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, username, password string) (Token, error) {
	var out Token
	body := map[string]string{"username": username, "password": password}
	err := c.doJSON(ctx, http.MethodPost, "/auth/login", body, &out)
	return out, err
}

func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	body := map[string]string{"refresh_token": refreshToken}
	return c.doJSON(ctx, http.MethodPost, "/auth/logout", body, nil)
}

// Upload sends one file as multipart form data and returns the hosted URL.
func (c *Client) Upload(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(filename))}
	if contentType != "" {
		header["Content-Type"] = []string{contentType}
	}
	part, err := form.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("create form part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("copy upload: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	var out struct {
		Message string `json:"message"`
		FileURL string `json:"file_url"`
	}
	if err := c.do(ctx, http.MethodPost, "/upload", &buf, form.FormDataContentType(), &out); err != nil {
		return "", err
	}
	return out.FileURL, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}
	return c.do(ctx, method, path, reader, "application/json", out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	endpoint := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if err := c.authorize(ctx, req); err != nil {
		return err
	}
	for _, modify := range c.modifiers {
		req = modify(req)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("gateway: request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(started).Milliseconds(),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w: %w", method, path, ErrResponseBody, err)
	}
	return nil
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	if c.tokens == nil {
		return nil
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	token = strings.TrimSpace(token)
	// "true" is the placeholder older dashboards stored after a login without a token.
	if token == "" || token == "true" {
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Code   string          `json:"code"`
		Error  string          `json:"error"`
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		apiErr.Message = strings.TrimSpace(string(raw))
		return apiErr
	}
	apiErr.Code = payload.Code
	apiErr.Message = payload.Error
	if apiErr.Message == "" && len(payload.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(payload.Detail, &detail); err == nil {
			apiErr.Message = detail
		} else {
			apiErr.Message = string(payload.Detail)
		}
	}
	return apiErr
}
