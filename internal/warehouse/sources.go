package warehouse

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/config"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/storage"
)

type sourcePaths struct {
	airlines string
	bookings string
}

// resolveSources returns local file paths for both tables. The cleanup func removes
// anything fetched from the object store.
func (r *Registry) resolveSources(ctx context.Context) (sourcePaths, func(), error) {
	noop := func() {}
	if r.cfg.Source == config.SourceLocal {
		paths := sourcePaths{
			airlines: filepath.Join(r.cfg.Dir, r.cfg.AirlinesFile),
			bookings: filepath.Join(r.cfg.Dir, r.cfg.BookingsFile),
		}
		for _, p := range []string{paths.airlines, paths.bookings} {
			if _, err := os.Stat(p); err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return sourcePaths{}, noop, fmt.Errorf("%w: %s", ErrSourceUnavailable, p)
				}
				return sourcePaths{}, noop, fmt.Errorf("stat source %q: %w", p, err)
			}
		}
		return paths, noop, nil
	}

	workDir, err := os.MkdirTemp("", "flightq-sources-")
	if err != nil {
		return sourcePaths{}, noop, fmt.Errorf("create source temp dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(workDir) }

	airlines, err := r.fetch(ctx, workDir, r.cfg.AirlinesFile)
	if err != nil {
		cleanup()
		return sourcePaths{}, noop, err
	}
	bookings, err := r.fetch(ctx, workDir, r.cfg.BookingsFile)
	if err != nil {
		cleanup()
		return sourcePaths{}, noop, err
	}
	return sourcePaths{airlines: airlines, bookings: bookings}, cleanup, nil
}

func (r *Registry) fetch(ctx context.Context, workDir, fileName string) (string, error) {
	key, err := storage.SourceObjectKey(r.cfg.ObjectPrefix, fileName)
	if err != nil {
		return "", err
	}
	localPath := filepath.Join(workDir, filepath.Base(fileName))
	info, err := r.store.Download(ctx, key, localPath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) || errors.Is(err, storage.ErrAccessDenied) {
			return "", fmt.Errorf("%w: object %s: %v", ErrSourceUnavailable, key, err)
		}
		return "", fmt.Errorf("fetch source object %q: %w", key, err)
	}
	r.logger.DebugContext(ctx, "fetched source object",
		"key", info.Key,
		"size", info.Size,
		"etag", info.ETag,
	)
	return localPath, nil
}
