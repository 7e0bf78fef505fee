package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rostercal/internal/config"
	"rostercal/internal/extract"
)

const body = "Housekeeping\n,04/03/2024\nJane Doe,9:00-17:00\n"

func TestFetchOneConditional(t *testing.T) {
	var hits, conditional atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			conditional.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	inbox := t.TempDir()
	f := NewFetcher(inbox, "")
	src := Source{ID: "housekeeping", URL: srv.URL + "/export/roster.csv?token=abc"}

	res, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, filepath.Join(inbox, "housekeeping.csv"), res.Path)
	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, body, string(data))

	res, err = f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, filepath.Join(inbox, "housekeeping.csv"), res.Path)
	assert.EqualValues(t, 2, hits.Load())
	assert.EqualValues(t, 1, conditional.Load())

	// A deleted inbox copy forces a full download.
	require.NoError(t, os.Remove(res.Path))
	res, err = f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.FileExists(t, res.Path)
}

func TestFetchAllCollectsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.xlsx":
			w.Header().Set("Content-Disposition", `attachment; filename="Roster March.csv"`)
			_, _ = w.Write([]byte(body))
		case "/noext":
			_, _ = w.Write([]byte(body))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	inbox := t.TempDir()
	f := NewFetcher(inbox, filepath.Join(t.TempDir(), "cache"))
	results, errs := f.FetchAll(context.Background(), []Source{
		{ID: "a", URL: srv.URL + "/ok.xlsx"},
		{ID: "b", URL: srv.URL + "/missing.csv"},
		{ID: "c", URL: srv.URL + "/noext"},
	})

	require.Len(t, results, 1)
	// The served file name wins over the URL path.
	assert.Equal(t, filepath.Join(inbox, "a.csv"), results[0].Path)
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[1], extract.ErrUnsupportedFormat)
}

func TestFromConfig(t *testing.T) {
	got := FromConfig([]config.SourceConfig{
		{ID: "hk", URL: "https://example.com/hk.xlsx"},
		{URL: ""},
		{URL: "https://example.com/other.csv"},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "hk", got[0].ID)
	assert.Len(t, got[1].ID, 8)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://drive.example.com/...(redacted)", redactURL("https://drive.example.com/s/abc?token=secret"))
	assert.Equal(t, "url://...(redacted)", redactURL("not a url"))
}
