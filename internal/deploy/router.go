package deploy

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/ui-builder/internal/apperr"
	"github.com/jonathan/ui-builder/internal/logger"
	"github.com/jonathan/ui-builder/internal/types"
)

// Router maps target identifiers to providers. It performs no retries.
type Router struct {
	mu        sync.RWMutex
	providers map[string]Provider
	store     BundleStore
	repos     RepositoryCreator
	log       logger.Logger
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithBundleStore archives every bundle before dispatch.
func WithBundleStore(s BundleStore) RouterOption {
	return func(r *Router) { r.store = s }
}

// WithRepositoryCreator enables providers that deploy from a repository.
func WithRepositoryCreator(c RepositoryCreator) RouterOption {
	return func(r *Router) { r.repos = c }
}

func WithLogger(l logger.Logger) RouterOption {
	return func(r *Router) { r.log = l }
}

func NewRouter(opts ...RouterOption) *Router {
	r := &Router{providers: map[string]Provider{}, log: logger.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds or replaces the provider for its target.
func (r *Router) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Target()] = p
}

// Targets lists registered target identifiers in sorted order.
func (r *Router) Targets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	for t := range r.providers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Validate fails with unknown_target when no provider serves target.
func (r *Router) Validate(target string) error {
	_, err := r.provider(target)
	return err
}

func (r *Router) provider(target string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[target]
	if !ok {
		return nil, apperr.UnknownTarget(target)
	}
	return p, nil
}

// Deploy archives the bundle, creates a repository when the provider needs
// one, then forwards the bundle to the provider. Archiving and repository
// creation run concurrently.
func (r *Router) Deploy(ctx context.Context, target string, bundle *types.ProjectBundle) (*types.DeploymentResult, error) {
	p, err := r.provider(target)
	if err != nil {
		return nil, err
	}
	if bundle == nil || len(bundle.Files) == 0 {
		return nil, apperr.InvalidInput("deployment bundle is empty")
	}
	if p.NeedsRepository() && r.repos == nil && bundle.RepositoryURL == "" {
		return nil, apperr.ProviderUnavailable(nil, "%s requires a repository service, none is configured", target)
	}

	b := *bundle
	g, gctx := errgroup.WithContext(ctx)
	if r.store != nil {
		g.Go(func() error {
			key, err := r.store.Save(gctx, &b)
			if err != nil {
				return apperr.ProviderUnavailable(err, "failed to archive bundle")
			}
			b.ArchiveKey = key
			return nil
		})
	}
	var repoURL string
	if p.NeedsRepository() && b.RepositoryURL == "" {
		g.Go(func() error {
			u, err := r.repos.CreateRepository(gctx, bundle)
			if err != nil {
				return err
			}
			repoURL = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if repoURL != "" {
		b.RepositoryURL = repoURL
	}

	log := r.log.With(logger.String("target", target), logger.String("bundle", b.Name))
	log.Info("dispatching deployment", logger.Int("files", len(b.Files)), logger.String("archive_key", b.ArchiveKey))
	res, err := p.Deploy(ctx, &b)
	if err != nil {
		log.Warn("deployment failed", logger.Error(err))
		return nil, err
	}
	res.Target = target
	if res.ArchiveKey == "" {
		res.ArchiveKey = b.ArchiveKey
	}
	if res.RepositoryURL == "" {
		res.RepositoryURL = b.RepositoryURL
	}
	log.Info("deployment dispatched", logger.String("url", res.URL), logger.String("provider_job_id", res.ProviderJobID))
	return res, nil
}
