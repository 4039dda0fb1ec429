// Package lifecycle performs zero-downtime, alias-based index migrations and
// creates known collections on first use.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/domain"
	domcol "github.com/kailas-cloud/docsearch/internal/domain/collection"
	"github.com/kailas-cloud/docsearch/internal/engine"
	"github.com/kailas-cloud/docsearch/internal/logger"
	"github.com/kailas-cloud/docsearch/internal/metrics"
)

// DefaultReindexTimeout bounds the blocking copy of a rebuild.
const DefaultReindexTimeout = time.Hour

// lockSlack covers the alias swap and cleanup after the last copy.
const lockSlack = 5 * time.Minute

// LockTTL is how long a cross-process rebuild lock must live for rebuilds
// bounded by reindexTimeout. A legacy promotion runs two copies back to back.
func LockTTL(reindexTimeout time.Duration) time.Duration {
	if reindexTimeout <= 0 {
		reindexTimeout = DefaultReindexTimeout
	}
	return 2*reindexTimeout + lockSlack
}

// RebuildRequest describes one migration of Alias onto NewIndex.
type RebuildRequest struct {
	Alias    string
	NewIndex string
	// Definition holds the new mapping and settings. Nil uses the catalog entry for Alias.
	Definition *engine.IndexDefinition
	// DeleteOld removes the previous backing index after the swap.
	DeleteOld bool
}

// RebuildResult summarizes a completed migration.
type RebuildResult struct {
	Alias      string        `json:"alias"`
	OldIndex   string        `json:"old_index,omitempty"`
	NewIndex   string        `json:"new_index"`
	Promoted   bool          `json:"promoted_legacy"`
	Copied     int64         `json:"copied"`
	DeletedOld bool          `json:"deleted_old"`
	Took       time.Duration `json:"took"`
}

// Service runs rebuilds and bootstrap.
type Service struct {
	repo           Repository
	catalog        Catalog
	locker         Locker
	reindexTimeout time.Duration
	mu             keyedMutex
}

// New creates a lifecycle service. A non-positive reindexTimeout uses DefaultReindexTimeout.
func New(repo Repository, catalog Catalog, reindexTimeout time.Duration) *Service {
	if reindexTimeout <= 0 {
		reindexTimeout = DefaultReindexTimeout
	}
	return &Service{repo: repo, catalog: catalog, reindexTimeout: reindexTimeout}
}

// WithLocker adds a cross-process lock around each rebuild.
func (s *Service) WithLocker(l Locker) *Service {
	s.locker = l
	return s
}

// Resolve reports the current backing of a collection name.
func (s *Service) Resolve(ctx context.Context, alias string) (domcol.Target, error) {
	if err := domcol.ValidateName(alias); err != nil {
		return domcol.Target{}, domain.NewQueryError(err.Error())
	}
	t, err := s.repo.Resolve(ctx, alias)
	if err != nil {
		return domcol.Target{}, fmt.Errorf("resolve collection: %w", err)
	}
	return t, nil
}

// Rebuild migrates req.Alias onto a freshly created req.NewIndex:
// promote a legacy bare index if needed, create the new index, copy the old
// documents, swap the alias atomically and optionally drop the old index.
// Until the swap, the old index keeps serving; any failure before it leaves
// the alias untouched.
func (s *Service) Rebuild(ctx context.Context, req RebuildRequest) (RebuildResult, error) {
	start := time.Now()
	res, err := s.rebuild(ctx, req)
	res.Took = time.Since(start)

	metrics.RebuildDuration.WithLabelValues(req.Alias).Observe(res.Took.Seconds())
	metrics.RebuildRunsTotal.WithLabelValues(req.Alias, rebuildOutcome(err)).Inc()

	log := logger.FromContext(ctx)
	if err != nil {
		log.Error("Rebuild failed",
			zap.String("alias", req.Alias),
			zap.String("new_index", req.NewIndex),
			zap.Duration("took", res.Took),
			zap.Error(err),
		)
		return res, err
	}
	log.Info("Rebuild completed",
		zap.String("alias", res.Alias),
		zap.String("old_index", res.OldIndex),
		zap.String("new_index", res.NewIndex),
		zap.Bool("promoted_legacy", res.Promoted),
		zap.Int64("copied", res.Copied),
		zap.Bool("deleted_old", res.DeletedOld),
		zap.Duration("took", res.Took),
	)
	return res, nil
}

func (s *Service) rebuild(ctx context.Context, req RebuildRequest) (RebuildResult, error) {
	res := RebuildResult{Alias: req.Alias, NewIndex: req.NewIndex}
	def, err := s.validate(req)
	if err != nil {
		return res, err
	}

	unlock := s.mu.Lock(req.Alias)
	defer unlock()
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, req.Alias)
		if err != nil {
			return res, fmt.Errorf("lock rebuild: %w", err)
		}
		defer release()
	}

	log := logger.FromContext(ctx).With(zap.String("alias", req.Alias), zap.String("new_index", req.NewIndex))

	target, err := s.repo.Resolve(ctx, req.Alias)
	if err != nil {
		return res, fmt.Errorf("resolve current target: %w", err)
	}
	if err := s.checkNewIndexFree(ctx, req, target); err != nil {
		return res, err
	}

	var oldIndex string
	switch target.State {
	case domcol.StateAliased:
		oldIndex = target.Index
	case domcol.StateLegacy:
		log.Info("Promoting legacy index behind an alias")
		promoted, err := s.promoteLegacy(ctx, req.Alias, def)
		if err != nil {
			return res, fmt.Errorf("promote legacy index: %w", err)
		}
		oldIndex = promoted
		res.Promoted = true
	case domcol.StateAbsent:
		log.Info("No current target, creating fresh collection")
	}
	res.OldIndex = oldIndex

	if err := s.repo.Create(ctx, req.NewIndex, def); err != nil {
		return res, fmt.Errorf("create new index: %w", err)
	}

	if oldIndex != "" {
		log.Info("Reindexing", zap.String("old_index", oldIndex), zap.Duration("timeout", s.reindexTimeout))
		copied, err := s.repo.Copy(ctx, oldIndex, req.NewIndex, s.reindexTimeout)
		if err != nil {
			return res, fmt.Errorf("reindex %s: %w", oldIndex, err)
		}
		res.Copied = copied.Total
	}

	if err := s.repo.PointAlias(ctx, req.Alias, oldIndex, req.NewIndex); err != nil {
		return res, fmt.Errorf("swap alias: %w", err)
	}

	if req.DeleteOld && oldIndex != "" {
		if err := s.repo.Delete(ctx, oldIndex); err != nil {
			return res, fmt.Errorf("delete old index: %w", err)
		}
		res.DeletedOld = true
	}
	return res, nil
}

// promoteLegacy moves the documents of the bare index alias into
// <alias>_v1, frees the name and points an alias at the copy.
func (s *Service) promoteLegacy(ctx context.Context, alias string, def *engine.IndexDefinition) (string, error) {
	versioned := domcol.LegacyPromotionTarget(alias)
	if err := s.repo.Create(ctx, versioned, def); err != nil {
		return "", fmt.Errorf("create %s: %w", versioned, err)
	}
	if _, err := s.repo.Copy(ctx, alias, versioned, s.reindexTimeout); err != nil {
		// The legacy index is untouched; drop the partial copy so the next
		// rebuild can promote again.
		if derr := s.repo.Delete(context.WithoutCancel(ctx), versioned); derr != nil {
			return "", fmt.Errorf("copy into %s: %w (partial index left behind, delete %s before retrying: %v)",
				versioned, err, versioned, derr)
		}
		return "", fmt.Errorf("copy into %s: %w", versioned, err)
	}
	if err := s.repo.Delete(ctx, alias); err != nil {
		return "", fmt.Errorf("delete legacy index: %w", err)
	}
	if err := s.repo.PointAlias(ctx, alias, "", versioned); err != nil {
		return "", fmt.Errorf("alias %s: %w", versioned, err)
	}
	return versioned, nil
}

// checkNewIndexFree fails with domain.ErrAlreadyExists before any mutation
// when the new index name is taken or would be taken by the legacy promotion.
func (s *Service) checkNewIndexFree(ctx context.Context, req RebuildRequest, target domcol.Target) error {
	if target.State == domcol.StateLegacy && req.NewIndex == domcol.LegacyPromotionTarget(req.Alias) {
		return fmt.Errorf("%w: new index %q is reserved for the legacy promotion of %q",
			domain.ErrAlreadyExists, req.NewIndex, req.Alias)
	}
	exists, err := s.repo.Exists(ctx, req.NewIndex)
	if err != nil {
		return fmt.Errorf("check new index: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: index %q", domain.ErrAlreadyExists, req.NewIndex)
	}
	return nil
}

func (s *Service) validate(req RebuildRequest) (*engine.IndexDefinition, error) {
	if err := domcol.ValidateName(req.Alias); err != nil {
		return nil, domain.NewQueryError(fmt.Sprintf("alias: %v", err))
	}
	if err := domcol.ValidateName(req.NewIndex); err != nil {
		return nil, domain.NewQueryError(fmt.Sprintf("new_index: %v", err))
	}
	if req.NewIndex == req.Alias {
		return nil, domain.Invalidf("new_index must differ from the alias %q", req.Alias)
	}

	def := req.Definition
	if def == nil {
		if s.catalog == nil {
			return nil, domain.Invalidf("no mapping given for %q", req.Alias)
		}
		var err error
		if def, err = s.catalog.Definition(req.Alias); err != nil {
			return nil, domain.Invalidf("%v", err)
		}
	}
	if err := def.Validate(); err != nil {
		return nil, domain.Invalidf("mapping: %v", err)
	}
	return def, nil
}

// Bootstrap creates every catalog collection that does not exist yet as
// <name>_v1 behind the alias <name>. Existing collections, legacy or aliased,
// are left alone. It returns the names it created.
func (s *Service) Bootstrap(ctx context.Context) ([]string, error) {
	if s.catalog == nil {
		return nil, nil
	}
	log := logger.FromContext(ctx)

	var created []string
	for _, name := range s.catalog.Names() {
		ok, err := s.bootstrapOne(ctx, name)
		if err != nil {
			return created, fmt.Errorf("bootstrap %s: %w", name, err)
		}
		if ok {
			log.Info("Created collection", zap.String("collection", name))
			created = append(created, name)
		}
	}
	return created, nil
}

func (s *Service) bootstrapOne(ctx context.Context, name string) (bool, error) {
	target, err := s.repo.Resolve(ctx, name)
	if err != nil {
		return false, err
	}
	if target.State != domcol.StateAbsent {
		return false, nil
	}

	def, err := s.catalog.Definition(name)
	if err != nil {
		return false, err
	}

	unlock := s.mu.Lock(name)
	defer unlock()

	index := domcol.VersionedName(name, 1)
	if err := s.repo.Create(ctx, index, def); err != nil {
		// Another process bootstrapped concurrently.
		if errors.Is(err, domain.ErrAlreadyExists) {
			return false, nil
		}
		return false, err
	}
	if err := s.repo.PointAlias(ctx, name, "", index); err != nil {
		return false, err
	}
	return true, nil
}

// Bootstrapper adapts Bootstrap to engine.Handle's first-use hook.
// newRepo builds the repository on the freshly connected store.
func Bootstrapper(newRepo func(engine.Store) Repository, catalog Catalog) engine.Bootstrapper {
	return func(ctx context.Context, st engine.Store) error {
		_, err := New(newRepo(st), catalog, 0).Bootstrap(ctx)
		return err
	}
}

func rebuildOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrAlreadyExists):
		return "conflict"
	case errors.Is(err, domain.ErrInvalidRequest):
		return "invalid"
	case errors.Is(err, domain.ErrTimeout):
		return "timeout"
	default:
		return "error"
	}
}
