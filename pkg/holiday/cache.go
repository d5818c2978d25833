package holiday

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/raterudder/tou/pkg/calendar"
	"github.com/raterudder/tou/pkg/log"
	"github.com/raterudder/tou/pkg/metrics"
	"github.com/raterudder/tou/pkg/types"
)

// FileCache keeps each year fetched from a source in <dir>/<year>.json. A
// file younger than the TTL is served without asking the source; an older one
// is refetched and only used if the source fails. A zero TTL never expires.
// Reload always asks the source.
type FileCache struct {
	src calendar.HolidaySource
	dir string
	ttl time.Duration
	now func() time.Time

	mu sync.Mutex
}

var _ calendar.ReloadingSource = (*FileCache)(nil)

// NewFileCache wraps src. An empty dir disables caching.
func NewFileCache(src calendar.HolidaySource, dir string, ttl time.Duration) *FileCache {
	return &FileCache{
		src: src,
		dir: dir,
		ttl: ttl,
		now: time.Now,
	}
}

func (c *FileCache) path(year int) string {
	return filepath.Join(c.dir, strconv.Itoa(year)+".json")
}

// Records implements calendar.HolidaySource.
func (c *FileCache) Records(ctx context.Context, year int) ([]types.HolidayRecord, error) {
	if c.dir == "" {
		return c.src.Records(ctx, year)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cached, modTime, err := c.read(year)
	switch {
	case err == nil && (c.ttl == 0 || c.now().Sub(modTime) < c.ttl):
		metrics.HolidayCacheHitsTotal.Inc()
		return cached, nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		log.Ctx(ctx).WarnContext(ctx, "ignoring unreadable holiday cache", slog.Int("year", year), slog.Any("error", err))
		cached = nil
	}
	return c.refetch(ctx, year, cached)
}

// Reload implements calendar.ReloadingSource. The file is only served when
// the source fails.
func (c *FileCache) Reload(ctx context.Context, year int) ([]types.HolidayRecord, error) {
	if c.dir == "" {
		return c.src.Records(ctx, year)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cached, _, err := c.read(year)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Ctx(ctx).WarnContext(ctx, "ignoring unreadable holiday cache", slog.Int("year", year), slog.Any("error", err))
	}
	return c.refetch(ctx, year, cached)
}

// refetch asks the source and rewrites the year file. cached is served if the
// source fails. The caller holds mu.
func (c *FileCache) refetch(ctx context.Context, year int, cached []types.HolidayRecord) ([]types.HolidayRecord, error) {
	records, err := c.src.Records(ctx, year)
	if err != nil {
		if cached != nil {
			log.Ctx(ctx).WarnContext(ctx, "holiday source failed, serving stale cache", slog.Int("year", year), slog.Any("error", err))
			metrics.HolidayCacheHitsTotal.Inc()
			return cached, nil
		}
		return nil, err
	}
	if err := c.write(year, records); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to write holiday cache", slog.Int("year", year), slog.Any("error", err))
	}
	return records, nil
}

func (c *FileCache) read(year int) ([]types.HolidayRecord, time.Time, error) {
	path := c.path(year)
	info, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	records, err := ParseRecords(data)
	if err != nil {
		return nil, time.Time{}, err
	}
	return records, info.ModTime(), nil
}

// write replaces the year file atomically.
func (c *FileCache) write(year int, records []types.HolidayRecord) error {
	data, err := EncodeRecords(records)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(c.dir, strconv.Itoa(year)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), c.path(year))
}
