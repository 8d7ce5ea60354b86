package deploy

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/jonathan/ui-builder/internal/apperr"
	"github.com/jonathan/ui-builder/internal/types"
)

// RepositoryCreator publishes a bundle's files to a new source repository
// and returns its URL.
type RepositoryCreator interface {
	CreateRepository(ctx context.Context, bundle *types.ProjectBundle) (string, error)
}

// GitHubRepositories creates repositories through the GitHub REST API.
type GitHubRepositories struct {
	api *apiClient
	// Org, when set, owns new repositories instead of the token's user.
	Org     string
	Private bool
}

func NewGitHubRepositories(cfg ProviderConfig) *GitHubRepositories {
	return &GitHubRepositories{api: newGitHubClient("github", cfg)}
}

func (g *GitHubRepositories) CreateRepository(ctx context.Context, bundle *types.ProjectBundle) (string, error) {
	path := "/user/repos"
	if g.Org != "" {
		path = "/orgs/" + g.Org + "/repos"
	}
	req := map[string]any{
		"name":        bundle.Name,
		"description": "Generated React project",
		"private":     g.Private,
		"auto_init":   false,
	}
	var repo struct {
		FullName string `json:"full_name"`
		HTMLURL  string `json:"html_url"`
	}
	if err := g.api.do(ctx, http.MethodPost, path, req, &repo); err != nil {
		return "", err
	}
	if repo.FullName == "" {
		return "", apperr.ProviderUnavailable(nil, "github returned no repository name")
	}

	for _, f := range bundle.Files {
		body := map[string]string{
			"message": "Add " + f.Path,
			"content": base64.StdEncoding.EncodeToString([]byte(f.Content)),
			"branch":  "main",
		}
		if err := g.api.do(ctx, http.MethodPut, "/repos/"+repo.FullName+"/contents/"+f.Path, body, nil); err != nil {
			return "", err
		}
	}
	return repo.HTMLURL, nil
}
