// Package blame resolves the author and date of a single source line.
package blame

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/schema"
)

// currentCacheVersion defines the version of the cached attribution schema
const currentCacheVersion = 1

// cacheTTL is how long a cached attribution stays valid.
const cacheTTL = 7 * 24 * time.Hour

var blameRegex = regexp.MustCompile(`\((.*?) (\d{4}-\d{2}-\d{2}) .*?\)`)

// Attribution is the author and date of the last change to a line.
type Attribution struct {
	Author string // raw, not normalized
	Date   string // YYYY-MM-DD
}

// Repo identifies the repository a file is blamed in.
type Repo struct {
	Root string
	Head string // HEAD commit hash, empty when unknown
}

// Resolver runs one git blame per line with a timeout, optionally backed by a cache.
type Resolver struct {
	client  contract.GitClient
	timeout time.Duration
	store   contract.CacheStore
}

// NewResolver creates a Resolver. The store may be nil.
func NewResolver(client contract.GitClient, timeout time.Duration, store contract.CacheStore) *Resolver {
	return &Resolver{client: client, timeout: timeout, store: store}
}

// Resolve returns the attribution of line (1-based) in path. Failures, timeouts and
// unparseable output all report false.
func (r *Resolver) Resolve(ctx context.Context, repo Repo, path string, line int) (Attribution, bool) {
	relPath := path
	if rel, err := filepath.Rel(repo.Root, path); err == nil && !strings.HasPrefix(rel, "..") {
		relPath = filepath.ToSlash(rel)
	}

	key := ""
	if r.store != nil && repo.Head != "" {
		key = cacheKey(repo.Head, relPath, line)
		if attr, ok := r.checkCacheHit(key); ok {
			return attr, true
		}
	}

	callCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	out, err := r.client.BlameLine(callCtx, repo.Root, relPath, line)
	if err != nil {
		contract.LogInfo("blame %s:%d unresolved: %v", relPath, line, err)
		return Attribution{}, false
	}
	attr, ok := Parse(out)
	if !ok {
		return Attribution{}, false
	}

	if key != "" {
		r.save(key, attr)
	}
	return attr, true
}

// Parse extracts the attribution from one line of git blame output.
func Parse(out []byte) (Attribution, bool) {
	m := blameRegex.FindSubmatch(out)
	if m == nil {
		return Attribution{}, false
	}
	author := strings.TrimSpace(string(m[1]))
	if author == "" {
		return Attribution{}, false
	}
	return Attribution{Author: author, Date: string(m[2])}, true
}

// checkCacheHit attempts to retrieve and validate a cached attribution
func (r *Resolver) checkCacheHit(key string) (Attribution, bool) {
	data, version, ts, err := r.store.Get(key)
	if err != nil || version != currentCacheVersion {
		return Attribution{}, false
	}
	if time.Since(time.Unix(ts, 0)) > cacheTTL {
		return Attribution{}, false
	}
	var entry schema.BlameEntry
	if err := json.Unmarshal(data, &entry); err != nil || entry.Author == "" {
		return Attribution{}, false
	}
	return Attribution{Author: entry.Author, Date: entry.Date}, true
}

// save stores a resolved attribution. Cache failures are ignored.
func (r *Resolver) save(key string, attr Attribution) {
	data, err := json.Marshal(schema.BlameEntry{Author: attr.Author, Date: attr.Date})
	if err != nil {
		return
	}
	_ = r.store.Set(key, data, currentCacheVersion, time.Now().Unix())
}

// cacheKey derives the cache key for one line at one commit.
func cacheKey(head, relPath string, line int) string {
	key := fmt.Sprintf("%s:%s:%d", head, relPath, line)
	return fmt.Sprintf("%x", sha256.Sum256([]byte(key)))
}
