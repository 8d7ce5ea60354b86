// Package deploy routes generated project bundles to hosting providers.
package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/ui-builder/internal/apperr"
	"github.com/jonathan/ui-builder/internal/types"
)

// Deployment target identifiers.
const (
	TargetVercel      = "vercel"
	TargetNetlify     = "netlify"
	TargetRender      = "render"
	TargetGitHubPages = "github-pages"
	TargetDocker      = "docker"
)

// DefaultTimeout bounds a single provider API call.
const DefaultTimeout = 60 * time.Second

// maxErrorBody caps how much of a failed response is kept in the error message.
const maxErrorBody = 512

// Provider deploys a project bundle to one hosting target.
type Provider interface {
	Target() string
	// NeedsRepository reports whether the provider deploys from a source
	// repository rather than from uploaded files.
	NeedsRepository() bool
	Deploy(ctx context.Context, bundle *types.ProjectBundle) (*types.DeploymentResult, error)
}

// ProviderConfig holds the API endpoint and credentials for a provider.
type ProviderConfig struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func (c ProviderConfig) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: DefaultTimeout}
}

// apiClient issues JSON requests against a provider API and classifies failures.
type apiClient struct {
	target  string
	baseURL string
	token   string
	auth    func(req *http.Request, token string)
	http    *http.Client
}

func newAPIClient(target, defaultBase string, cfg ProviderConfig) *apiClient {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBase
	}
	return &apiClient{
		target:  target,
		baseURL: strings.TrimRight(base, "/"),
		token:   cfg.Token,
		auth:    bearerAuth,
		http:    cfg.client(),
	}
}

func bearerAuth(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// do sends body as JSON and decodes a 2xx response into out.
func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return apperr.Internal(err, "%s: failed to encode request", c.target)
		}
	}
	data, err := c.send(ctx, method, path, "application/json", payload, nil)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperr.ProviderUnavailable(err, "%s: malformed response", c.target)
	}
	return nil
}

// send issues a request with a raw payload and returns the 2xx response body.
func (c *apiClient) send(ctx context.Context, method, path, contentType string, payload []byte, header http.Header) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, apperr.Internal(err, "%s: failed to build request", c.target)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", contentType)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	c.auth(req, c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.ProviderUnavailable(err, "%s: request failed", c.target)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.ProviderUnavailable(err, "%s: failed to read response", c.target)
	}
	if err := classifyStatus(c.target, resp.StatusCode, data); err != nil {
		return nil, err
	}
	return data, nil
}

// StatusError carries a provider's non-2xx response.
type StatusError struct {
	Target     string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded %d: %s", e.Target, e.StatusCode, e.Body)
}

func classifyStatus(target string, code int, body []byte) error {
	if code >= 200 && code < 300 {
		return nil
	}
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	cause := &StatusError{Target: target, StatusCode: code, Body: text}
	switch {
	case code == http.StatusTooManyRequests:
		return apperr.RateLimited(cause, "%s rate limit exceeded", target)
	case code >= 500, code == http.StatusRequestTimeout:
		return apperr.ProviderUnavailable(cause, "%s is unavailable", target)
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return apperr.Wrap(apperr.KindInternal, cause, "%s rejected credentials", target)
	default:
		return apperr.Wrap(apperr.KindInvalidInput, cause, "%s rejected the deployment", target)
	}
}

// IsStatus reports whether err carries a provider response with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

func withScheme(u string) string {
	if u == "" || strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return "https://" + u
}

// repoPath extracts "owner/name" from a repository URL.
func repoPath(repoURL string) (string, error) {
	trimmed := strings.TrimSuffix(strings.TrimSuffix(repoURL, "/"), ".git")
	if i := strings.Index(trimmed, "://"); i >= 0 {
		trimmed = trimmed[i+3:]
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) < 3 || parts[len(parts)-2] == "" || parts[len(parts)-1] == "" {
		return "", apperr.InvalidInput("repository url %q is not owner/name shaped", repoURL)
	}
	return parts[len(parts)-2] + "/" + parts[len(parts)-1], nil
}
