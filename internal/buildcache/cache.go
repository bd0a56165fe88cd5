// Package buildcache lets a generation run be skipped when nothing it
// depends on has changed.
//
// A run may be skipped only if the effective configuration, every Go source
// of the handler package, every translator plugin and every generated file
// are exactly as they were when the cache was saved. Any mismatch means a full run; there is no
// partial invalidation, because a change to one type can affect any route.
package buildcache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"
)

// SchemaVersion is bumped when the cache format or generated output format
// changes. A mismatch forces a full run.
const SchemaVersion = 1

// FileName is the cache file name inside the output directory.
const FileName = ".typesync-cache"

// Cache records what was true when generation last succeeded.
type Cache struct {
	// V is the schema version. Must match SchemaVersion or cache is invalid.
	V int `json:"v"`

	// ConfigHash fingerprints the effective configuration, flags included.
	ConfigHash string `json:"configHash"`

	// SourcesHash fingerprints the Go sources of the handler package and
	// the translator plugins.
	SourcesHash string `json:"sourcesHash"`

	// Outputs maps each generated file to the hash of its content.
	Outputs map[string]string `json:"outputs"`
}

// CachePath returns the cache file path inside the output directory, so
// removing the output directory also removes the cache.
func CachePath(outDir string) string {
	return filepath.Join(outDir, FileName)
}

// Load reads and parses a cache file from disk.
// Returns nil if the file doesn't exist, is unreadable, or is invalid JSON.
// Callers should treat nil as a cache miss.
func Load(path string) *Cache {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var c Cache
	if err := json.UnmarshalRead(f, &c); err != nil {
		return nil
	}
	return &c
}

// Save writes the cache to disk atomically (write to temp, rename).
// A failed save only means the next run cannot be skipped.
func Save(path string, cache *Cache) error {
	data, err := json.Marshal(cache, jsontext.WithIndent("  "), json.Deterministic(true))
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory %s: %w", dir, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing cache temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming cache file: %w", err)
	}
	return nil
}

// Delete removes the cache file from disk. Errors are ignored (file may not exist).
func Delete(path string) {
	os.Remove(path)
}

// IsValid reports whether the cache allows skipping a run: the schema
// version, the config and source fingerprints match, and every output
// still has the content that was generated.
func (c *Cache) IsValid(configHash, sourcesHash string) bool {
	if c == nil {
		return false
	}
	if c.V != SchemaVersion {
		return false
	}
	if c.ConfigHash != configHash || c.SourcesHash != sourcesHash {
		return false
	}
	if len(c.Outputs) == 0 {
		return false
	}
	for path, want := range c.Outputs {
		if HashFile(path) != want {
			return false
		}
	}
	return true
}

// New creates a cache with the current schema version, hashing outputs as
// they are now.
func New(configHash, sourcesHash string, outputs []string) *Cache {
	c := &Cache{
		V:           SchemaVersion,
		ConfigHash:  configHash,
		SourcesHash: sourcesHash,
		Outputs:     make(map[string]string, len(outputs)),
	}
	for _, path := range outputs {
		c.Outputs[path] = HashFile(path)
	}
	return c
}

// HashBytes returns the hex xxh3 digest of data.
func HashBytes(data []byte) string {
	return strconv.FormatUint(xxh3.Hash(data), 16)
}

// HashFile returns the digest of a file's contents, or "" if the file
// can't be read.
func HashFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return HashBytes(data)
}

// Fingerprint hashes files concurrently and combines the digests in path
// order, so the result does not depend on the order of files. A file that
// can't be read is an error.
func Fingerprint(ctx context.Context, files []string) (string, error) {
	files = slices.Clone(files)
	slices.Sort(files)
	files = slices.Compact(files)

	digests := make([]uint64, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("fingerprinting %s: %w", path, err)
			}
			digests[i] = xxh3.Hash(data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	h := xxh3.New()
	for i, path := range files {
		h.WriteString(path)
		h.Write([]byte{0})
		h.WriteString(strconv.FormatUint(digests[i], 16))
		h.Write([]byte{'\n'})
	}
	return strconv.FormatUint(h.Sum64(), 16), nil
}
