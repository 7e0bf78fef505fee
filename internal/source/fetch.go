// Package source pulls roster files published at a URL (a shared drive
// export, an intranet page) into the inbox directory.
package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"rostercal/internal/config"
	"rostercal/internal/extract"
	appLog "rostercal/internal/log"
)

// maxBody bounds a downloaded roster.
const maxBody = 32 << 20

// Source is a roster published at a URL.
type Source struct {
	// ID names the file written to the inbox (ID + extension).
	ID string
	// URL is the roster download link.
	URL string
}

// FromConfig converts configured sources, dropping entries without a URL.
func FromConfig(cs []config.SourceConfig) []Source {
	out := make([]Source, 0, len(cs))
	for _, c := range cs {
		if c.URL == "" {
			continue
		}
		id := c.ID
		if id == "" {
			sum := sha256.Sum256([]byte(c.URL))
			id = hex.EncodeToString(sum[:4])
		}
		out = append(out, Source{ID: id, URL: c.URL})
	}
	return out
}

// FetchResult is the outcome of fetching a single source.
type FetchResult struct {
	Source Source
	// Path is the inbox file holding the roster.
	Path string
	// Changed is false when the server answered 304 Not Modified.
	Changed bool
}

// cacheEntry holds HTTP cache metadata for a single URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	File         string    `json:"file"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher downloads rosters with conditional requests (ETag /
// Last-Modified) so unchanged files are not rewritten.
type Fetcher struct {
	client   *http.Client
	cacheDir string
	inbox    string
}

// NewFetcher creates a Fetcher writing into inbox and keeping HTTP cache
// metadata under cacheDir.
func NewFetcher(inbox, cacheDir string) *Fetcher {
	if cacheDir == "" {
		cacheDir = filepath.Join(inbox, ".cache")
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		cacheDir: cacheDir,
		inbox:    inbox,
	}
}

// FetchAll fetches every source. Failures are logged and collected; one
// broken link does not stop the others.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) ([]FetchResult, []error) {
	results := make([]FetchResult, 0, len(sources))
	var errs []error

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := f.FetchOne(ctx, src)
		if err != nil {
			errs = append(errs, fmt.Errorf("source %s: %w", src.ID, err))
			appLog.Error("roster fetch failed", err, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		results = append(results, res)
	}

	return results, errs
}

// FetchOne downloads one source into the inbox, honoring ETag and
// Last-Modified from the previous download.
func (f *Fetcher) FetchOne(ctx context.Context, src Source) (FetchResult, error) {
	if src.URL == "" {
		return FetchResult{}, errors.New("source URL is empty")
	}

	cachePath := f.cachePathForURL(src.URL)
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return FetchResult{}, err
	}
	meta, _ := loadCacheMeta(cachePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return FetchResult{}, err
	}

	// Only trust the validators while the inbox copy still exists.
	if meta.File != "" && fileExists(meta.File) {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return FetchResult{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		name, err := inboxName(src, resp)
		if err != nil {
			return FetchResult{}, err
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
		if err != nil {
			return FetchResult{}, err
		}
		if len(body) > maxBody {
			return FetchResult{}, fmt.Errorf("roster larger than %d bytes", maxBody)
		}

		dest := filepath.Join(f.inbox, name)
		if err := config.WriteFileAtomic(dest, body, 0o644); err != nil {
			return FetchResult{}, err
		}

		newMeta := cacheEntry{
			URL:          src.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			File:         dest,
			UpdatedAt:    time.Now().UTC(),
		}
		if err := saveCacheMeta(cachePath, newMeta); err != nil {
			// The roster itself is in place; the next fetch is just unconditional.
			appLog.Error("roster cache save failed", err, "id", src.ID, "url", redactURL(src.URL))
		}

		appLog.Info("roster fetched", "id", src.ID, "url", redactURL(src.URL), "file", dest, "bytes", len(body))
		return FetchResult{Source: src, Path: dest, Changed: true}, nil

	case http.StatusNotModified:
		appLog.Debug("roster not modified", "id", src.ID, "url", redactURL(src.URL))
		return FetchResult{Source: src, Path: meta.File, Changed: false}, nil

	default:
		return FetchResult{}, errors.New(resp.Status)
	}
}

// inboxName picks the file name for a download: the source ID plus the
// extension of the served file name or URL path.
func inboxName(src Source, resp *http.Response) (string, error) {
	ext := ""
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		ext = path.Ext(params["filename"])
	}
	if ext == "" {
		if u, err := url.Parse(src.URL); err == nil {
			ext = path.Ext(u.Path)
		}
	}
	name := strings.NewReplacer("/", "-", `\`, "-").Replace(src.ID) + strings.ToLower(ext)
	if !extract.Supported(name) {
		return "", fmt.Errorf("%w: cannot tell the roster format of %s", extract.ErrUnsupportedFormat, redactURL(src.URL))
	}
	return name, nil
}

func (f *Fetcher) cachePathForURL(u string) string {
	sum := sha256.Sum256([]byte(u))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func saveCacheMeta(cachePath string, meta cacheEntry) error {
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return config.WriteFileAtomic(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// redactURL hides the path and query of a URL for logging; shared-drive
// links usually carry an access token.
func redactURL(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return "url://...(redacted)"
	}
	return parsed.Scheme + "://" + parsed.Host + "/...(redacted)"
}
