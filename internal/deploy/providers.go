package deploy

import (
	"archive/tar"
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonathan/ui-builder/internal/apperr"
	"github.com/jonathan/ui-builder/internal/types"
)

// Vercel deploys inline project files through the Vercel deployments API.
type Vercel struct{ api *apiClient }

func NewVercel(cfg ProviderConfig) *Vercel {
	return &Vercel{api: newAPIClient(TargetVercel, "https://api.vercel.com", cfg)}
}

func (p *Vercel) Target() string        { return TargetVercel }
func (p *Vercel) NeedsRepository() bool { return false }

type vercelFileRef struct {
	File string `json:"file"`
	Data string `json:"data"`
}

func (p *Vercel) Deploy(ctx context.Context, bundle *types.ProjectBundle) (*types.DeploymentResult, error) {
	files := make([]vercelFileRef, 0, len(bundle.Files))
	for _, f := range bundle.Files {
		files = append(files, vercelFileRef{File: f.Path, Data: f.Content})
	}
	req := map[string]any{
		"name":            bundle.Name,
		"files":           files,
		"target":          "production",
		"projectSettings": map[string]string{"framework": "create-react-app"},
	}
	var resp struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := p.api.do(ctx, http.MethodPost, "/v13/deployments", req, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, apperr.ProviderUnavailable(nil, "vercel returned no deployment id")
	}
	return &types.DeploymentResult{Target: TargetVercel, URL: withScheme(resp.URL), ProviderJobID: resp.ID}, nil
}

// Netlify creates a site and uploads the bundle as a zip deploy.
type Netlify struct{ api *apiClient }

func NewNetlify(cfg ProviderConfig) *Netlify {
	return &Netlify{api: newAPIClient(TargetNetlify, "https://api.netlify.com", cfg)}
}

func (p *Netlify) Target() string        { return TargetNetlify }
func (p *Netlify) NeedsRepository() bool { return false }

func (p *Netlify) Deploy(ctx context.Context, bundle *types.ProjectBundle) (*types.DeploymentResult, error) {
	var site struct {
		ID     string `json:"id"`
		SSLURL string `json:"ssl_url"`
	}
	if err := p.api.do(ctx, http.MethodPost, "/api/v1/sites", map[string]string{"name": bundle.Name}, &site); err != nil {
		return nil, err
	}
	archive, err := Zip(bundle)
	if err != nil {
		return nil, apperr.Internal(err, "netlify: failed to archive bundle")
	}
	data, err := p.api.send(ctx, http.MethodPost, "/api/v1/sites/"+url.PathEscape(site.ID)+"/deploys", "application/zip", archive, nil)
	if err != nil {
		return nil, err
	}
	var deploy struct {
		ID           string `json:"id"`
		SSLURL       string `json:"ssl_url"`
		DeploySSLURL string `json:"deploy_ssl_url"`
	}
	if err := json.Unmarshal(data, &deploy); err != nil {
		return nil, apperr.ProviderUnavailable(err, "netlify: malformed deploy response")
	}
	u := deploy.SSLURL
	if u == "" {
		u = site.SSLURL
	}
	return &types.DeploymentResult{Target: TargetNetlify, URL: withScheme(u), ProviderJobID: deploy.ID}, nil
}

// Render creates a static site service that builds from the project repository.
type Render struct{ api *apiClient }

func NewRender(cfg ProviderConfig) *Render {
	return &Render{api: newAPIClient(TargetRender, "https://api.render.com", cfg)}
}

func (p *Render) Target() string        { return TargetRender }
func (p *Render) NeedsRepository() bool { return true }

func (p *Render) Deploy(ctx context.Context, bundle *types.ProjectBundle) (*types.DeploymentResult, error) {
	if bundle.RepositoryURL == "" {
		return nil, apperr.InvalidInput("render deploys require a repository")
	}
	req := map[string]any{
		"type":   "static_site",
		"name":   bundle.Name,
		"repo":   bundle.RepositoryURL,
		"branch": "main",
		"serviceDetails": map[string]string{
			"buildCommand": "npm install && npm run build",
			"publishPath":  "build",
		},
	}
	var resp struct {
		Service struct {
			ID             string `json:"id"`
			ServiceDetails struct {
				URL string `json:"url"`
			} `json:"serviceDetails"`
		} `json:"service"`
		DeployID string `json:"deployId"`
	}
	if err := p.api.do(ctx, http.MethodPost, "/v1/services", req, &resp); err != nil {
		return nil, err
	}
	id := resp.DeployID
	if id == "" {
		id = resp.Service.ID
	}
	return &types.DeploymentResult{
		Target:        TargetRender,
		URL:           withScheme(resp.Service.ServiceDetails.URL),
		ProviderJobID: id,
		RepositoryURL: bundle.RepositoryURL,
	}, nil
}

// GitHubPages enables Pages on the project repository.
type GitHubPages struct{ api *apiClient }

func NewGitHubPages(cfg ProviderConfig) *GitHubPages {
	return &GitHubPages{api: newGitHubClient(TargetGitHubPages, cfg)}
}

func (p *GitHubPages) Target() string        { return TargetGitHubPages }
func (p *GitHubPages) NeedsRepository() bool { return true }

func (p *GitHubPages) Deploy(ctx context.Context, bundle *types.ProjectBundle) (*types.DeploymentResult, error) {
	repo, err := repoPath(bundle.RepositoryURL)
	if err != nil {
		return nil, err
	}
	req := map[string]any{
		"build_type": "workflow",
		"source":     map[string]string{"branch": "main", "path": "/"},
	}
	var resp struct {
		HTMLURL string `json:"html_url"`
		Status  string `json:"status"`
	}
	if err := p.api.do(ctx, http.MethodPost, "/repos/"+repo+"/pages", req, &resp); err != nil {
		return nil, err
	}
	u := resp.HTMLURL
	if u == "" {
		owner, name, _ := strings.Cut(repo, "/")
		u = fmt.Sprintf("https://%s.github.io/%s/", owner, name)
	}
	return &types.DeploymentResult{
		Target:        TargetGitHubPages,
		URL:           u,
		ProviderJobID: "pages:" + repo,
		RepositoryURL: bundle.RepositoryURL,
	}, nil
}

func newGitHubClient(target string, cfg ProviderConfig) *apiClient {
	c := newAPIClient(target, "https://api.github.com", cfg)
	c.auth = func(req *http.Request, token string) {
		bearerAuth(req, token)
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	}
	return c
}

// Docker builds an nginx image through the Docker Engine API and pushes it
// to the configured registry.
type Docker struct {
	api      *apiClient
	registry string
}

// NewDocker targets a Docker Engine endpoint. BaseURL is the engine API
// (for example a TCP socket proxy), Token the registry identity token.
func NewDocker(cfg ProviderConfig, registry string) *Docker {
	c := newAPIClient(TargetDocker, "http://localhost:2375", cfg)
	c.auth = func(*http.Request, string) {}
	return &Docker{api: c, registry: strings.TrimRight(registry, "/")}
}

func (p *Docker) Target() string        { return TargetDocker }
func (p *Docker) NeedsRepository() bool { return false }

// ImageRef is the reference the bundle is tagged with.
func (p *Docker) ImageRef(bundle *types.ProjectBundle) string {
	if p.registry == "" {
		return bundle.Name + ":latest"
	}
	return p.registry + "/" + bundle.Name + ":latest"
}

func (p *Docker) Deploy(ctx context.Context, bundle *types.ProjectBundle) (*types.DeploymentResult, error) {
	buildContext, err := Tar(bundle)
	if err != nil {
		return nil, apperr.Internal(err, "docker: failed to archive build context")
	}
	ref := p.ImageRef(bundle)
	data, err := p.api.send(ctx, http.MethodPost, "/build?t="+url.QueryEscape(ref), "application/x-tar", buildContext, nil)
	if err != nil {
		return nil, err
	}
	imageID, err := scanEngineStream(data)
	if err != nil {
		return nil, err
	}
	if p.registry != "" {
		name, tag, _ := strings.Cut(ref[len(p.registry)+1:], ":")
		path := "/images/" + p.registry + "/" + name + "/push?tag=" + url.QueryEscape(tag)
		header := http.Header{}
		header.Set("X-Registry-Auth", registryAuth(p.api.token))
		out, err := p.api.send(ctx, http.MethodPost, path, "", nil, header)
		if err != nil {
			return nil, err
		}
		if _, err := scanEngineStream(out); err != nil {
			return nil, err
		}
	}
	return &types.DeploymentResult{Target: TargetDocker, URL: ref, ProviderJobID: imageID}, nil
}

func registryAuth(token string) string {
	payload, _ := json.Marshal(map[string]string{"identitytoken": token})
	return base64.URLEncoding.EncodeToString(payload)
}

// scanEngineStream walks the newline-delimited JSON progress stream the
// engine returns and surfaces the first error or the built image id.
func scanEngineStream(data []byte) (string, error) {
	var imageID string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var msg struct {
			Error string `json:"error"`
			Aux   struct {
				ID string `json:"ID"`
			} `json:"aux"`
		}
		if err := json.Unmarshal(line, &msg); err != nil {
			continue
		}
		if msg.Error != "" {
			return "", apperr.InvalidInput("docker: %s", msg.Error)
		}
		if msg.Aux.ID != "" {
			imageID = msg.Aux.ID
		}
	}
	if err := sc.Err(); err != nil {
		return "", apperr.ProviderUnavailable(err, "docker: failed to read engine stream")
	}
	return imageID, nil
}

// Tar archives the bundle files as a build context with paths relative to
// the project root.
func Tar(bundle *types.ProjectBundle) ([]byte, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	modTime := time.Unix(0, 0)
	for _, f := range bundle.Files {
		hdr := &tar.Header{Name: f.Path, Mode: 0o644, Size: int64(len(f.Content)), ModTime: modTime}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("failed to add %s to build context: %w", f.Path, err)
		}
		if _, err := tw.Write([]byte(f.Content)); err != nil {
			return nil, fmt.Errorf("failed to write %s to build context: %w", f.Path, err)
		}
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize build context: %w", err)
	}
	return buf.Bytes(), nil
}

// Credentials configures the built-in providers. BaseURLs overrides the
// API endpoint per target.
type Credentials struct {
	VercelToken    string
	NetlifyToken   string
	RenderAPIKey   string
	GitHubToken    string
	DockerHost     string
	DockerRegistry string
	DockerToken    string
	BaseURLs       map[string]string
	HTTPClient     *http.Client
}

func (c Credentials) config(target, token string) ProviderConfig {
	return ProviderConfig{BaseURL: c.BaseURLs[target], Token: token, HTTPClient: c.HTTPClient}
}

// DefaultProviders builds the providers that have credentials. Docker
// needs an engine endpoint instead of a token.
func DefaultProviders(c Credentials) []Provider {
	var out []Provider
	if c.VercelToken != "" {
		out = append(out, NewVercel(c.config(TargetVercel, c.VercelToken)))
	}
	if c.NetlifyToken != "" {
		out = append(out, NewNetlify(c.config(TargetNetlify, c.NetlifyToken)))
	}
	if c.RenderAPIKey != "" {
		out = append(out, NewRender(c.config(TargetRender, c.RenderAPIKey)))
	}
	if c.GitHubToken != "" {
		out = append(out, NewGitHubPages(c.config(TargetGitHubPages, c.GitHubToken)))
	}
	docker := c.config(TargetDocker, c.DockerToken)
	if docker.BaseURL == "" {
		docker.BaseURL = c.DockerHost
	}
	if docker.BaseURL != "" {
		out = append(out, NewDocker(docker, c.DockerRegistry))
	}
	return out
}
