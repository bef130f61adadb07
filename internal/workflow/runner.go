package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"darkroom/internal/config"
	"darkroom/internal/fetch"
	"darkroom/internal/history"
	"darkroom/internal/items"
	"darkroom/internal/ledger"
	"darkroom/internal/lifecycle"
	"darkroom/internal/logging"
	"darkroom/internal/notifications"
	"darkroom/internal/publish"
	"darkroom/internal/services"
	"darkroom/internal/transform"
)

// Fetcher downloads one item and reports its fingerprint.
type Fetcher interface {
	Fetch(ctx context.Context, item items.Spec) (fetch.Result, error)
}

// Transformer renders a raw artifact into its processed derivative.
type Transformer interface {
	Transform(item items.Spec, srcPath string) (string, error)
}

// Publisher uploads a processed derivative to the remote host.
type Publisher interface {
	Publish(ctx context.Context, localPath, remoteName string) error
}

// Summary tallies the outcome of one sync run.
type Summary struct {
	RunID     string
	Total     int
	Succeeded int
	Skipped   int
	Failed    int
	Duration  time.Duration
}

// Runner executes sync runs.
type Runner struct {
	cfg         *config.Config
	ledger      *ledger.Store
	fetcher     Fetcher
	transformer Transformer
	publisher   Publisher
	lifecycle   *lifecycle.Manager
	history     *history.Store
	notifier    notifications.Service
	logger      *slog.Logger
}

// NewRunner wires a runner from the configuration. The history store
// may be nil, in which case run outcomes are not persisted.
func NewRunner(cfg *config.Config, led *ledger.Store, hist *history.Store, notifier notifications.Service, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Runner{
		cfg:         cfg,
		ledger:      led,
		fetcher:     fetch.NewFetcher(cfg, led, logger),
		transformer: transform.NewTransformer(cfg, logger),
		publisher:   publish.NewPublisher(cfg, logger),
		lifecycle:   lifecycle.NewManager(cfg, logger),
		history:     hist,
		notifier:    notifier,
		logger:      logging.NewComponentLogger(logger, "workflow"),
	}
}

// RunOnce executes a full sync run and returns its summary. Item
// failures are tallied rather than returned; the error covers only
// run-level problems such as context cancellation.
func (r *Runner) RunOnce(ctx context.Context) (Summary, error) {
	start := time.Now()
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	log := r.logger.With(logging.String(logging.FieldRunID, runID))

	log.Info("starting sync run")

	if r.cfg.Retention.CleanupOnStart {
		if removed := r.lifecycle.CleanupWorking(); removed > 0 {
			log.Info("pruned working directories", logging.Int("removed", removed))
		}
	}
	if removed := r.lifecycle.CleanupArchive(); removed > 0 {
		log.Info("pruned archive", logging.Int("removed", removed))
	}

	specs, normErrs := items.NormalizeAll(r.cfg.Images)
	summary := Summary{RunID: runID, Total: len(specs) + len(normErrs)}

	if r.history != nil {
		if err := r.history.BeginRun(ctx, runID, start); err != nil {
			log.Warn("failed to record run start", logging.Error(err))
		}
	}

	for idx, err := range normErrs {
		summary.Failed++
		log.Error("invalid image entry",
			logging.Int("index", idx),
			logging.Error(err))
		r.recordItem(ctx, runID, history.ItemRecord{
			Name:   fmt.Sprintf("images[%d]", idx),
			Status: history.StatusFailed,
			Detail: err.Error(),
		})
	}

	if len(specs) == 0 {
		log.Warn("no images configured for processing")
	} else {
		if err := r.notifier.NotifySyncStarted(ctx, len(specs)); err != nil {
			log.Warn("failed to send start notification", logging.Error(err))
		}
		r.processAll(ctx, runID, specs, &summary)
	}

	if err := r.ledger.Flush(); err != nil {
		logging.ErrorWithContext(log, "failed to flush fingerprint ledger", "ledger_flush_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check archive directory permissions"),
			logging.String(logging.FieldImpact, "unchanged images will be re-downloaded next run"))
		if notifyErr := r.notifier.NotifyError(ctx, err, "fingerprint ledger flush"); notifyErr != nil {
			log.Warn("failed to send error notification", logging.Error(notifyErr))
		}
	}

	summary.Duration = time.Since(start)

	if r.history != nil {
		if err := r.history.FinishRun(ctx, runID, time.Now(), summary.Total, summary.Succeeded, summary.Skipped, summary.Failed); err != nil {
			log.Warn("failed to record run completion", logging.Error(err))
		}
	}
	if err := r.notifier.NotifySyncCompleted(ctx, summary.Succeeded, summary.Skipped, summary.Failed, summary.Duration); err != nil {
		log.Warn("failed to send completion notification", logging.Error(err))
	}

	log.Info("sync run complete",
		logging.Int("total", summary.Total),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
		logging.Duration("duration", summary.Duration))

	return summary, ctx.Err()
}

// processAll feeds the items through a bounded worker pool sized by the
// concurrent upload limit.
func (r *Runner) processAll(ctx context.Context, runID string, specs []items.Spec, summary *Summary) {
	workers := r.cfg.Remote.ConcurrentUploads
	if workers <= 0 {
		workers = 1
	}
	if workers > len(specs) {
		workers = len(specs)
	}

	jobs := make(chan items.Spec)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for spec := range jobs {
				rec := r.processItem(ctx, spec)
				mu.Lock()
				switch rec.Status {
				case history.StatusUploaded:
					summary.Succeeded++
				case history.StatusUnchanged:
					summary.Skipped++
				default:
					summary.Failed++
				}
				mu.Unlock()
				r.recordItem(ctx, runID, rec)
			}
		}()
	}

feed:
	for _, spec := range specs {
		select {
		case jobs <- spec:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
}

// processItem runs one image through fetch, transform, and publish.
func (r *Runner) processItem(ctx context.Context, spec items.Spec) history.ItemRecord {
	start := time.Now()
	ctx = services.WithItem(ctx, spec.Name)
	log := logging.WithContext(ctx, r.logger)

	rec := history.ItemRecord{Name: spec.Name, URL: spec.URL}

	res, err := r.fetcher.Fetch(ctx, spec)
	if err != nil {
		log.Error("download failed", logging.Error(err))
		rec.Status = history.StatusFailed
		rec.Detail = err.Error()
		rec.Duration = time.Since(start)
		return rec
	}

	if res.Unchanged {
		rec.Status = history.StatusUnchanged
		rec.Hash = res.Hash
		rec.Duration = time.Since(start)
		return rec
	}

	if err := r.ledger.Record(spec.URL, res.Hash, time.Now()); err != nil {
		log.Warn("failed to record fingerprint", logging.Error(err))
	}

	processed, err := r.transformer.Transform(spec, res.Path)
	if err != nil {
		log.Error("processing failed", logging.Error(err))
		rec.Status = history.StatusFailed
		rec.Detail = err.Error()
		rec.Hash = res.Hash
		rec.Duration = time.Since(start)
		return rec
	}

	remoteName := spec.BaseName() + ".webp"
	if err := r.publisher.Publish(ctx, processed, remoteName); err != nil {
		log.Error("upload failed", logging.Error(err))
		rec.Status = history.StatusFailed
		rec.Detail = err.Error()
		rec.Hash = res.Hash
		rec.Duration = time.Since(start)
		return rec
	}

	if r.cfg.Retention.DeleteAfterUpload {
		if err := os.Remove(res.Path); err != nil && !os.IsNotExist(err) {
			log.Warn("failed to remove raw artifact", logging.Error(err))
		}
		if _, err := r.lifecycle.Archive(processed); err != nil {
			log.Warn("failed to archive derivative", logging.Error(err))
		}
	}

	rec.Status = history.StatusUploaded
	rec.Hash = res.Hash
	rec.Duration = time.Since(start)
	return rec
}

func (r *Runner) recordItem(ctx context.Context, runID string, rec history.ItemRecord) {
	if r.history == nil {
		return
	}
	if err := r.history.RecordItem(ctx, runID, rec); err != nil {
		r.logger.Warn("failed to record item outcome",
			logging.String(logging.FieldItem, rec.Name),
			logging.Error(err))
	}
}
