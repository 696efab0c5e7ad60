package discovery

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"

	"splittable/internal/trace"
)

// bump when cachePayload changes shape
const cacheSchemaVersion uint16 = 1

// Digest is a SHA-256 sum.
type Digest [32]byte

// Cache keeps resolver output on disk so unchanged projects skip the
// resolver run. Only raw records are stored; graphs are always rebuilt.
// Safe for concurrent use.
type Cache struct {
	mu   sync.RWMutex
	dir  string
	Jobs int // parallel file hashing; <= 0 means GOMAXPROCS
}

type cachePayload struct {
	Schema  uint16   `msgpack:"schema"`
	Records []Record `msgpack:"records"`
	Files   []string `msgpack:"files"`
	Digests []Digest `msgpack:"digests"`
}

// OpenCache opens the cache under $XDG_CACHE_HOME/<app> (or ~/.cache/<app>).
func OpenCache(app string) (*Cache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return NewCache(filepath.Join(base, app))
}

// NewCache opens a cache rooted at dir, creating it when missing.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

// Key derives the cache key for one resolver invocation.
func Key(dir string, command, entries []string) Digest {
	sorted := append([]string(nil), entries...)
	sort.Strings(sorted)
	h := sha256.New()
	_, _ = io.WriteString(h, dir)
	_, _ = h.Write([]byte{0})
	for _, part := range command {
		_, _ = io.WriteString(h, part)
		_, _ = h.Write([]byte{0})
	}
	_, _ = h.Write([]byte{1})
	for _, e := range sorted {
		_, _ = io.WriteString(h, e)
		_, _ = h.Write([]byte{0})
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

func (c *Cache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "discovery", hex.EncodeToString(key[:])+".mp")
}

// Get returns cached records when every recorded file still has the digest
// it had when the entry was stored. A stale or unreadable entry is a miss.
func (c *Cache) Get(ctx context.Context, key Digest, baseDir string) ([]Record, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	payload, err := c.read(key)
	c.mu.RUnlock()
	if err != nil || payload == nil {
		return nil, false, err
	}
	if payload.Schema != cacheSchemaVersion || len(payload.Files) != len(payload.Digests) {
		return nil, false, nil
	}
	current, err := HashFiles(ctx, baseDir, payload.Files, c.Jobs)
	if err != nil {
		// a vanished file simply invalidates the entry
		return nil, false, nil
	}
	for i := range current {
		if current[i] != payload.Digests[i] {
			return nil, false, nil
		}
	}
	return payload.Records, true, nil
}

func (c *Cache) read(key Digest) (*cachePayload, error) {
	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()
	var payload cachePayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, nil
	}
	return &payload, nil
}

// Put stores records together with the current digest of every module file.
func (c *Cache) Put(ctx context.Context, key Digest, baseDir string, records []Record) error {
	if c == nil {
		return nil
	}
	files := Files(records)
	digests, err := HashFiles(ctx, baseDir, files, c.Jobs)
	if err != nil {
		return err
	}
	payload := cachePayload{
		Schema:  cacheSchemaVersion,
		Records: records,
		Files:   files,
		Digests: digests,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmpName := f.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := msgpack.NewEncoder(f).Encode(&payload); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, p)
}

// DropAll removes every cached entry.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return os.RemoveAll(old)
}

// HashFiles digests files in parallel; relative paths are taken from baseDir.
// Results are index-aligned with files.
func HashFiles(ctx context.Context, baseDir string, files []string, jobs int) ([]Digest, error) {
	out := make([]Digest, len(files))
	if len(files) == 0 {
		return out, nil
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p := file
			if !filepath.IsAbs(p) && baseDir != "" {
				p = filepath.Join(baseDir, p)
			}
			d, err := hashFile(p)
			if err != nil {
				return fmt.Errorf("hash %q: %w", file, err)
			}
			out[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func hashFile(path string) (Digest, error) {
	// #nosec G304 -- path comes from resolver output for this project
	f, err := os.Open(path)
	if err != nil {
		return Digest{}, err
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return Digest{}, err
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d, nil
}

// CachedSource consults Cache before delegating to Inner.
type CachedSource struct {
	Inner   Source
	Cache   *Cache
	Dir     string
	Command []string // part of the cache key
}

// Discover implements Source.
func (s CachedSource) Discover(ctx context.Context, entries []string) ([]Record, error) {
	if s.Cache == nil {
		return s.Inner.Discover(ctx, entries)
	}
	tr := trace.FromContext(ctx)
	key := Key(s.Dir, s.Command, entries)
	if records, ok, err := s.Cache.Get(ctx, key, s.Dir); err == nil && ok {
		trace.Point(tr, trace.ScopeStage, "discovery-cache", "hit")
		return records, nil
	}
	records, err := s.Inner.Discover(ctx, entries)
	if err != nil {
		return nil, err
	}
	if err := s.Cache.Put(ctx, key, s.Dir, records); err != nil {
		trace.Point(tr, trace.ScopeStage, "discovery-cache", "store failed: "+err.Error())
	}
	return records, nil
}
