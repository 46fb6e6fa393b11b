// Package recommend provides the content-based course recommendation engine
// and its train/restore/retrain lifecycle.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/internal/registry"
	"github.com/hyperjump/osusume/internal/similarity"
	"github.com/hyperjump/osusume/internal/store"
	"github.com/hyperjump/osusume/internal/vectorizer"
)

// Config holds engine tuning knobs.
type Config struct {
	// ModelName is the registry slot for the fitted vectorizer.
	ModelName string
	// MaxFeatures caps the TF-IDF vocabulary.
	MaxFeatures int
	// DependencyTimeout bounds every store/registry call so a slow
	// dependency degrades the engine instead of hanging the caller.
	DependencyTimeout time.Duration
}

// snapshot is the engine's complete trained state: fitted vectorizer, the
// similarity index built with it, and the course count it was built from.
// The three are created together and swapped together; readers never see a
// mix of old vocabulary and new rows.
type snapshot struct {
	fitted       *vectorizer.Fitted
	index        *similarity.Index
	indexedCount int
}

// Engine recommends courses similar to a reference course by cosine
// similarity over TF-IDF description vectors. It is safe for concurrent use:
// Recommend reads a snapshot pointer under an RLock while train builds a full
// replacement and swaps it in.
type Engine struct {
	store    store.CourseStore
	registry registry.Registry
	cfg      Config
	logger   *zap.Logger

	mu   sync.RWMutex // guards snap
	snap *snapshot

	trainMu sync.Mutex // single-flight for train/restore
}

// NewEngine creates an engine in the empty (not ready) state.
func NewEngine(cs store.CourseStore, reg registry.Registry, cfg Config, logger *zap.Logger) *Engine {
	if cfg.ModelName == "" {
		cfg.ModelName = "course-recommendation"
	}
	if cfg.MaxFeatures <= 0 {
		cfg.MaxFeatures = vectorizer.DefaultMaxFeatures
	}
	if cfg.DependencyTimeout <= 0 {
		cfg.DependencyTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: cs, registry: reg, cfg: cfg, logger: logger}
}

// IsReady reports whether the engine has a trained or restored snapshot.
func (e *Engine) IsReady() bool {
	return e.snapshot() != nil
}

// IndexedCount returns the course count captured at the last successful
// train or restore, 0 when empty.
func (e *Engine) IndexedCount() int {
	if snap := e.snapshot(); snap != nil {
		return snap.indexedCount
	}
	return 0
}

func (e *Engine) snapshot() *snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap
}

func (e *Engine) swap(snap *snapshot) {
	e.mu.Lock()
	e.snap = snap
	e.mu.Unlock()
}

func (e *Engine) depCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.cfg.DependencyTimeout)
}

// Initialize attempts to restore the persisted model, falling back to a
// fresh train; if both fail the engine stays empty and will be retried on
// the next lifecycle call. Never returns an error: recommendation is
// advisory and must not fail application startup.
func (e *Engine) Initialize(ctx context.Context) {
	e.trainMu.Lock()
	defer e.trainMu.Unlock()

	err := e.restore(ctx)
	if err == nil {
		return
	}
	e.logger.Warn("model restore failed, falling back to training", zap.Error(err))
	if err := e.trainLocked(ctx); err != nil {
		e.logger.Warn("training failed, engine remains empty", zap.Error(err))
	}
}

// restore loads the latest fitted vectorizer from the registry and rebuilds
// the index against the current catalog. Only the vectorizer is persisted;
// vectors are always recomputed from live course data.
func (e *Engine) restore(ctx context.Context) error {
	loadCtx, cancel := e.depCtx(ctx)
	blob, err := e.registry.Load(loadCtx, e.cfg.ModelName)
	cancel()
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrRegistryMiss, e.cfg.ModelName)
		}
		return fmt.Errorf("load model artifact: %w", err)
	}

	fitted, err := vectorizer.Decode(blob)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecodeModel, err)
	}

	courses, err := e.listCourses(ctx)
	if err != nil {
		return err
	}
	if len(courses) == 0 {
		return ErrEmptyCorpus
	}

	snap, err := buildSnapshot(fitted, courses)
	if err != nil {
		return err
	}
	e.swap(snap)
	e.logger.Info("recommendation model restored",
		zap.String("model", e.cfg.ModelName),
		zap.Int("courses", snap.indexedCount),
		zap.Int("vocabulary", fitted.Dimensions()))
	return nil
}

// Train fetches the full catalog, fits a fresh vectorizer, atomically swaps
// in the rebuilt index, and persists the fitted vectorizer. Training against
// an empty catalog is a no-op that keeps any existing snapshot and returns
// ErrEmptyCorpus.
func (e *Engine) Train(ctx context.Context) error {
	e.trainMu.Lock()
	defer e.trainMu.Unlock()
	return e.trainLocked(ctx)
}

func (e *Engine) trainLocked(ctx context.Context) error {
	courses, err := e.listCourses(ctx)
	if err != nil {
		return err
	}
	if len(courses) == 0 {
		e.logger.Warn("cannot train recommendation model: no course data available")
		return ErrEmptyCorpus
	}

	docs := make([]string, len(courses))
	for i, c := range courses {
		docs[i] = c.Description
	}
	fitted := vectorizer.New(e.cfg.MaxFeatures).Fit(docs)

	snap, err := buildSnapshot(fitted, courses)
	if err != nil {
		return err
	}
	e.swap(snap)
	e.logger.Info("recommendation model trained",
		zap.Int("courses", snap.indexedCount),
		zap.Int("vocabulary", fitted.Dimensions()))

	// Persistence is best-effort: the engine is already serving the new
	// snapshot; a registry outage only costs the next restart a retrain.
	if blob, err := fitted.Encode(); err != nil {
		e.logger.Warn("model artifact encode failed", zap.Error(err))
	} else {
		saveCtx, cancel := e.depCtx(ctx)
		defer cancel()
		if err := e.registry.Save(saveCtx, e.cfg.ModelName, blob); err != nil {
			e.logger.Warn("model artifact save failed",
				zap.String("model", e.cfg.ModelName), zap.Error(err))
		}
	}
	return nil
}

// RetrainIfNeeded retrains when the catalog has grown past the indexed
// count. Shrinkage and in-place edits do not trigger a retrain; the count
// comparison is a cheap heuristic, not a content-drift detector. Safe under
// racing callers: the staleness check is repeated inside the train lock so
// only one retrain happens per growth.
func (e *Engine) RetrainIfNeeded(ctx context.Context) error {
	countCtx, cancel := e.depCtx(ctx)
	count, err := e.store.CountCourses(countCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("%w: count courses: %v", ErrStoreUnavailable, err)
	}
	if !e.stale(count) {
		return nil
	}

	e.trainMu.Lock()
	defer e.trainMu.Unlock()
	// A racing caller may have finished the retrain while we waited.
	if !e.stale(count) {
		return nil
	}
	e.logger.Info("catalog growth detected, retraining",
		zap.Int64("current", count),
		zap.Int("indexed", e.IndexedCount()))
	return e.trainLocked(ctx)
}

// stale reports whether count exceeds what the current snapshot indexed.
func (e *Engine) stale(count int64) bool {
	snap := e.snapshot()
	if snap == nil {
		return count > 0
	}
	return count > int64(snap.indexedCount)
}

// Recommend returns up to topN courses most similar to the course with the
// given key, descending by cosine similarity. It never returns an error:
// a not-ready engine, an unknown key, or a reference not yet indexed all
// yield an empty list and leave fallback policy to the caller.
func (e *Engine) Recommend(ctx context.Context, key string, topN int) []models.Recommendation {
	if topN <= 0 {
		return nil
	}
	snap := e.snapshot()
	if snap == nil {
		e.logger.Warn("recommendation requested before model is ready", zap.String("key", key))
		return nil
	}

	getCtx, cancel := e.depCtx(ctx)
	reference, err := e.store.GetCourseByKey(getCtx, key)
	cancel()
	if err != nil {
		e.logger.Warn("reference course lookup failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	if reference == nil {
		e.logger.Warn("reference course not found", zap.String("key", key))
		return nil
	}

	pos, ok := snap.index.PositionByKey(key)
	if !ok {
		// Added to the store after the last train; not an error.
		e.logger.Debug("reference course not yet indexed", zap.String("key", key))
		return nil
	}

	query := snap.fitted.TransformOne(reference.Description)
	ranked := snap.index.Rank(query, pos)

	results := make([]models.Recommendation, 0, topN)
	for _, hit := range ranked {
		if len(results) >= topN {
			break
		}
		entry := snap.index.Entry(hit.Position)
		hydrateCtx, cancel := e.depCtx(ctx)
		course, err := e.store.GetCourseByKey(hydrateCtx, entry.CourseKey)
		cancel()
		if err != nil || course == nil {
			// Removed since the last train; skip rather than fail the query.
			continue
		}
		results = append(results, models.Recommendation{
			Title:       course.Title,
			Description: course.Description,
			Key:         course.Key,
			Score:       hit.Score,
		})
	}
	return results
}

func (e *Engine) listCourses(ctx context.Context) ([]*models.Course, error) {
	listCtx, cancel := e.depCtx(ctx)
	defer cancel()
	courses, err := e.store.ListCourses(listCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: list courses: %v", ErrStoreUnavailable, err)
	}
	return courses, nil
}

// buildSnapshot vectorizes courses with fitted and assembles the index.
// Entries and matrix rows are built from the same slice in one pass, so a
// length mismatch can only come from a bug in this function.
func buildSnapshot(fitted *vectorizer.Fitted, courses []*models.Course) (*snapshot, error) {
	entries := make([]similarity.Entry, len(courses))
	docs := make([]string, len(courses))
	for i, c := range courses {
		entries[i] = similarity.Entry{Position: i, CourseID: c.ID, CourseKey: c.Key}
		docs[i] = c.Description
	}
	index, err := similarity.NewIndex(entries, fitted.Transform(docs))
	if err != nil {
		return nil, fmt.Errorf("build similarity index: %w", err)
	}
	return &snapshot{fitted: fitted, index: index, indexedCount: len(courses)}, nil
}
