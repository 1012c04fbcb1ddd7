// Package index keeps one vector index per video on disk and expires
// indexes that have not been used for a configured time.
package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/flarexio/chattube/metrics"
	"github.com/flarexio/chattube/vector"
)

const (
	DefaultTTL = 24 * time.Hour

	collectionName = "transcript"
	indexDir       = "index"
	metadataFile   = "video.yaml"
)

var (
	ErrPathRequired   = errors.New("index path is required")
	ErrInvalidVideoID = errors.New("invalid video ID")
	ErrEmptyIndex     = errors.New("index has no documents")
	ErrStaleIndex     = errors.New("index outlived its TTL")
)

// Video ids name directories under the root, so path elements like ".."
// must never get through.
var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type Config struct {
	Path       string        `yaml:"path"`
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"maxEntries"`
	Compress   bool          `yaml:"compress"`
}

// Opener opens (or creates) the vector database stored in dir.
type Opener func(dir string) (vector.VectorDB, error)

// Payload is what a Loader produces for a video that is not cached yet.
type Payload struct {
	Metadata  map[string]string
	Documents []vector.Document
}

type Loader func(ctx context.Context, videoID string) (*Payload, error)

type Index struct {
	VideoID    string
	Metadata   map[string]string
	Collection vector.Collection

	dir string
}

type Cache struct {
	cfg   Config
	open  Opener
	lru   *expirable.LRU[string, *Index]
	group singleflight.Group

	// building guards directories against removal while they are (re)built.
	mu       sync.Mutex
	building map[string]struct{}
	removals sync.WaitGroup

	// expiries drop adopted entries once their remaining TTL is spent.
	expiries []*time.Timer

	log *zap.Logger
}

func NewCache(cfg Config, open Opener) (*Cache, error) {
	if cfg.Path == "" {
		return nil, ErrPathRequired
	}

	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	if cfg.MaxEntries < 0 {
		cfg.MaxEntries = 0
	}

	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, err
	}

	c := &Cache{
		cfg:      cfg,
		open:     open,
		building: make(map[string]struct{}),
		log: zap.L().With(
			zap.String("component", "index_cache"),
		),
	}

	c.lru = expirable.NewLRU[string, *Index](cfg.MaxEntries, c.onEvict, cfg.TTL)

	if err := c.sweep(); err != nil {
		return nil, err
	}

	return c, nil
}

// sweep drops directories left behind by a previous process that have
// outlived the TTL and adopts the rest without opening them.
func (c *Cache) sweep() error {
	log := c.log.With(
		zap.String("action", "sweep"),
		zap.String("path", c.cfg.Path),
	)

	entries, err := os.ReadDir(c.cfg.Path)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		videoID := entry.Name()
		dir := c.dir(videoID)

		if !videoIDPattern.MatchString(videoID) {
			log.Warn("foreign directory skipped", zap.String("name", videoID))
			continue
		}

		info, err := entry.Info()
		if err != nil {
			log.Error(err.Error())
			continue
		}

		age := time.Since(info.ModTime())
		if age > c.cfg.TTL {
			if err := os.RemoveAll(dir); err != nil {
				log.Error(err.Error(), zap.String("video_id", videoID))
				continue
			}

			log.Info("stale index removed", zap.String("video_id", videoID))
			continue
		}

		idx := &Index{VideoID: videoID, dir: dir}
		c.lru.Add(videoID, idx)

		// Adopted entries expire TTL after their mtime.
		c.expiries = append(c.expiries, time.AfterFunc(c.cfg.TTL-age, func() {
			c.expireAdopted(idx)
		}))
	}

	metrics.IndexCacheEntries.Set(float64(c.lru.Len()))

	log.Info("index cache ready", zap.Int("count", c.lru.Len()))
	return nil
}

// Get returns the index of the video, building it with load when neither
// memory nor disk holds a usable copy. Concurrent calls for the same video
// share a single build.
func (c *Cache) Get(ctx context.Context, videoID string, load Loader) (*Index, error) {
	if !videoIDPattern.MatchString(videoID) {
		return nil, ErrInvalidVideoID
	}

	idx, ok := c.lru.Get(videoID)
	if ok && idx.Collection != nil {
		metrics.IndexCacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.StatusHit).Inc()

		c.touch(idx)
		return idx, nil
	}

	metrics.IndexCacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.StatusMiss).Inc()

	// Shared builds outlive the caller that started them.
	buildCtx := context.WithoutCancel(ctx)

	result, err, shared := c.group.Do(videoID, func() (any, error) {
		return c.load(buildCtx, videoID, load)
	})

	if shared {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
	} else {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()
	}

	if err != nil {
		return nil, err
	}

	return result.(*Index), nil
}

// Evict drops the video from the cache and removes its directory.
func (c *Cache) Evict(videoID string) bool {
	return c.lru.Remove(videoID)
}

func (c *Cache) Len() int {
	return c.lru.Len()
}

// Close waits for pending directory removals. Cached indexes stay on disk.
func (c *Cache) Close() error {
	for _, t := range c.expiries {
		t.Stop()
	}

	c.removals.Wait()
	return nil
}

func (c *Cache) dir(videoID string) string {
	return filepath.Join(c.cfg.Path, videoID)
}

func (c *Cache) touch(idx *Index) {
	c.lru.Add(idx.VideoID, idx)

	now := time.Now()
	if err := os.Chtimes(idx.dir, now, now); err != nil {
		c.log.Warn(err.Error(), zap.String("video_id", idx.VideoID))
	}
}

func (c *Cache) load(ctx context.Context, videoID string, load Loader) (*Index, error) {
	log := c.log.With(
		zap.String("action", "load"),
		zap.String("video_id", videoID),
	)

	c.mu.Lock()
	c.building[videoID] = struct{}{}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.building, videoID)
		c.mu.Unlock()
	}()

	dir := c.dir(videoID)

	idx, err := c.reopen(videoID, dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn("rebuilding unusable index", zap.Error(err))
		}

		if err := os.RemoveAll(dir); err != nil {
			return nil, err
		}

		idx, err = c.build(ctx, videoID, dir, load)
		if err != nil {
			metrics.IndexCacheOperationsTotal.WithLabelValues(metrics.CacheOpBuild, metrics.StatusError).Inc()
			return nil, err
		}

		metrics.IndexCacheOperationsTotal.WithLabelValues(metrics.CacheOpBuild, metrics.StatusSuccess).Inc()
		log.Info("index built", zap.Int("documents", idx.Collection.Count()))
	} else {
		log.Info("index reopened", zap.Int("documents", idx.Collection.Count()))
	}

	c.touch(idx)
	metrics.IndexCacheEntries.Set(float64(c.lru.Len()))

	return idx, nil
}

func (c *Cache) reopen(videoID string, dir string) (*Index, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}

	if time.Since(info.ModTime()) > c.cfg.TTL {
		return nil, ErrStaleIndex
	}

	bs, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		return nil, err
	}

	var metadata map[string]string
	if err := yaml.Unmarshal(bs, &metadata); err != nil {
		return nil, err
	}

	db, err := c.open(filepath.Join(dir, indexDir))
	if err != nil {
		return nil, err
	}

	collection, err := db.Collection(collectionName, metadata)
	if err != nil {
		return nil, err
	}

	if collection.Count() == 0 {
		return nil, ErrEmptyIndex
	}

	return &Index{
		VideoID:    videoID,
		Metadata:   metadata,
		Collection: collection,
		dir:        dir,
	}, nil
}

func (c *Cache) build(ctx context.Context, videoID string, dir string, load Loader) (idx *Index, err error) {
	payload, err := load(ctx, videoID)
	if err != nil {
		return nil, err
	}

	if len(payload.Documents) == 0 {
		return nil, ErrEmptyIndex
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			os.RemoveAll(dir)
		}
	}()

	db, err := c.open(filepath.Join(dir, indexDir))
	if err != nil {
		return nil, err
	}

	collection, err := db.Collection(collectionName, payload.Metadata)
	if err != nil {
		return nil, err
	}

	if err := collection.AddDocuments(ctx, payload.Documents); err != nil {
		return nil, fmt.Errorf("index documents: %w", err)
	}

	bs, err := yaml.Marshal(payload.Metadata)
	if err != nil {
		return nil, err
	}

	// Written last: a directory without metadata is treated as incomplete.
	if err := os.WriteFile(filepath.Join(dir, metadataFile), bs, 0o644); err != nil {
		return nil, err
	}

	return &Index{
		VideoID:    videoID,
		Metadata:   payload.Metadata,
		Collection: collection,
		dir:        dir,
	}, nil
}

// expireAdopted removes an adopted entry that was never opened again.
func (c *Cache) expireAdopted(idx *Index) {
	current, ok := c.lru.Peek(idx.VideoID)
	if !ok || current != idx {
		return
	}

	c.lru.Remove(idx.VideoID)
}

// onEvict runs under the LRU lock, so the removal itself happens elsewhere.
func (c *Cache) onEvict(videoID string, idx *Index) {
	c.removals.Add(1)
	go func() {
		defer c.removals.Done()
		c.remove(videoID)
	}()
}

func (c *Cache) remove(videoID string) {
	log := c.log.With(
		zap.String("action", "evict"),
		zap.String("video_id", videoID),
	)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.building[videoID]; ok {
		return
	}

	if c.lru.Contains(videoID) {
		return
	}

	if err := os.RemoveAll(c.dir(videoID)); err != nil {
		metrics.IndexCacheOperationsTotal.WithLabelValues(metrics.CacheOpEvict, metrics.StatusError).Inc()
		log.Error(err.Error())
		return
	}

	metrics.IndexCacheOperationsTotal.WithLabelValues(metrics.CacheOpEvict, metrics.StatusSuccess).Inc()
	metrics.IndexCacheEntries.Set(float64(c.lru.Len()))

	log.Info("index evicted")
}
