package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"darkroom/internal/config"
	"darkroom/internal/fileutil"
	"darkroom/internal/items"
	"darkroom/internal/ledger"
	"darkroom/internal/logging"
	"darkroom/internal/services"
)

// LedgerReader exposes the fingerprint lookups the fetcher needs.
type LedgerReader interface {
	Lookup(url string) (ledger.Entry, bool)
}

// Result describes the outcome of a single fetch.
type Result struct {
	// Path is the location of the raw artifact in the download
	// directory. It is only valid when Unchanged is false.
	Path string
	// Hash is the SHA-256 digest of the downloaded payload.
	Hash string
	// Unchanged reports that the payload matched the ledger
	// fingerprint within the recheck window and was discarded.
	Unchanged bool
}

// Fetcher downloads source images into the download directory.
type Fetcher struct {
	client        *http.Client
	limiter       *rate.Limiter
	ledger        LedgerReader
	failures      *FailureLog
	logger        *slog.Logger
	downloadDir   string
	userAgent     string
	recheckWindow time.Duration
	policy        services.RetryPolicy
}

// NewFetcher builds a fetcher from the runtime configuration.
func NewFetcher(cfg *config.Config, led LedgerReader, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = logging.NewNop()
	}

	limit := rate.Inf
	if cfg.Download.RateLimit > 0 {
		limit = rate.Limit(cfg.Download.RateLimit)
	}

	return &Fetcher{
		client:        &http.Client{Timeout: cfg.DownloadTimeout()},
		limiter:       rate.NewLimiter(limit, 1),
		ledger:        led,
		failures:      NewFailureLog(cfg.FailureLogPath()),
		logger:        logging.NewComponentLogger(logger, "fetch"),
		downloadDir:   cfg.Paths.DownloadDir,
		userAgent:     cfg.Download.UserAgent,
		recheckWindow: cfg.ForceRecheckWindow(),
		policy:        services.RetryPolicy{MaxRetries: cfg.Download.MaxRetries},
	}
}

// Fetch downloads the item, retrying transient failures with backoff.
// When the payload hash matches the ledger entry and that entry is
// newer than the recheck window, the download is discarded and the
// result reports Unchanged.
func (f *Fetcher) Fetch(ctx context.Context, item items.Spec) (Result, error) {
	var result Result

	err := services.Retry(ctx, f.policy, func(attempt int) error {
		if err := f.limiter.Wait(ctx); err != nil {
			return services.Wrap(services.ErrTimeout, "fetch", "rate-limit", "rate limiter wait interrupted", err)
		}

		res, err := f.download(ctx, item)
		if err != nil {
			f.logger.Warn("download attempt failed",
				logging.String(logging.FieldItem, item.Name),
				logging.Int("attempt", attempt+1),
				logging.Error(err))
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		// The failure log tracks exhausted-retry transport failures;
		// validation errors never reached the network.
		if services.Retryable(err) {
			if logErr := f.failures.Append(item.URL, err); logErr != nil {
				f.logger.Warn("failed to record download failure",
					logging.String(logging.FieldItem, item.Name),
					logging.Error(logErr))
			}
		}
		return Result{}, err
	}

	return result, nil
}

func (f *Fetcher) download(ctx context.Context, item items.Spec) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.URL, nil)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "fetch", "request", "build download request", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "fetch", "request", "execute download request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, services.Wrap(services.ErrTransient, "fetch", "request",
			fmt.Sprintf("unexpected status %d for %s", resp.StatusCode, item.URL), nil)
	}

	finalPath := filepath.Join(f.downloadDir, item.BaseName()+".original")
	tmpPath := finalPath + ".tmp"

	hash, err := f.streamToFile(resp.Body, tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return Result{}, err
	}

	if entry, found := f.ledger.Lookup(item.URL); found && entry.Hash == hash {
		if time.Since(entry.Timestamp) < f.recheckWindow {
			os.Remove(tmpPath)
			f.logger.Info("content unchanged, skipping",
				logging.String(logging.FieldItem, item.Name),
				logging.String("hash", hash))
			return Result{Hash: hash, Unchanged: true}, nil
		}
	}

	if err := fileutil.AtomicReplace(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return Result{}, services.Wrap(services.ErrTransient, "fetch", "replace", "promote downloaded artifact", err)
	}

	f.logger.Info("downloaded image",
		logging.String(logging.FieldItem, item.Name),
		logging.String("hash", hash),
		logging.String("path", finalPath))

	return Result{Path: finalPath, Hash: hash}, nil
}

// streamToFile copies body to path while hashing it, returning the
// hex-encoded SHA-256 digest.
func (f *Fetcher) streamToFile(body io.Reader, path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "fetch", "stream", "create download directory", err)
	}

	out, err := os.Create(path)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "fetch", "stream", "create temp file", err)
	}

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(out, hasher), body); err != nil {
		out.Close()
		return "", services.Wrap(services.ErrTransient, "fetch", "stream", "stream payload", err)
	}
	if err := out.Close(); err != nil {
		return "", services.Wrap(services.ErrTransient, "fetch", "stream", "close temp file", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
