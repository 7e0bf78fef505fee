package scheduler

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"rostercal/internal/calendar"
	"rostercal/internal/config"
	"rostercal/internal/extract"
	"rostercal/internal/ics"
	appLog "rostercal/internal/log"
	"rostercal/internal/roster"
)

// markerDir holds one file per exported roster, named by content hash.
const markerDir = ".exported"

// Exporter converts every roster file in an inbox directory into one .ics
// per employee in an output directory.
type Exporter struct {
	inbox  string
	outbox string
	policy roster.Policy
	gen    *calendar.Generator
}

// Report summarizes one inbox scan.
type Report struct {
	Scanned  int
	Exported int
	Skipped  int
	Failed   int
	Files    []string
}

// marker is written after a roster has been fully exported.
type marker struct {
	Roster     string    `json:"roster"`
	Files      []string  `json:"files"`
	Failures   []string  `json:"failures,omitempty"`
	ExportedAt time.Time `json:"exported_at"`
}

// NewExporter returns an Exporter reading inbox and writing outbox.
func NewExporter(inbox, outbox string, policy roster.Policy, gen *calendar.Generator) *Exporter {
	return &Exporter{inbox: inbox, outbox: outbox, policy: policy, gen: gen}
}

// RunOnce scans the inbox once. Rosters already exported (same content) are
// skipped; a broken roster is logged and counted, and the scan moves on.
func (e *Exporter) RunOnce(ctx context.Context) (Report, error) {
	var rep Report

	entries, err := os.ReadDir(e.inbox)
	if err != nil {
		return rep, fmt.Errorf("scan inbox: %w", err)
	}

	for _, ent := range entries {
		name := ent.Name()
		if ent.IsDir() || strings.HasPrefix(name, ".") || !extract.Supported(name) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Scanned++

		files, skipped, err := e.exportFile(ctx, filepath.Join(e.inbox, name))
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return rep, err
		case err != nil:
			rep.Failed++
			appLog.Error("roster export failed", err, "file", name)
		case skipped:
			rep.Skipped++
		default:
			rep.Exported++
			rep.Files = append(rep.Files, files...)
		}
	}

	sort.Strings(rep.Files)
	return rep, nil
}

func (e *Exporter) exportFile(ctx context.Context, path string) ([]string, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	sum := sha256.Sum256(data)
	markerPath := filepath.Join(e.outbox, markerDir, hex.EncodeToString(sum[:]))
	if _, err := os.Stat(markerPath); err == nil {
		appLog.Debug("roster already exported", "file", filepath.Base(path))
		return nil, true, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, err
	}

	grid, err := extract.Read(path, bytes.NewReader(data))
	if err != nil {
		return nil, false, err
	}
	ros, err := roster.New(grid, e.policy)
	if err != nil {
		return nil, false, err
	}

	docs, failures, err := e.gen.GenerateAll(ctx, ros)
	if err != nil {
		return nil, false, err
	}

	files := make([]string, 0, len(docs))
	for _, doc := range docs {
		if err := selfCheck(doc); err != nil {
			return nil, false, fmt.Errorf("%s: %w", doc.Owner, err)
		}
		out := filepath.Join(e.outbox, doc.Filename)
		if err := config.WriteFileAtomic(out, []byte(doc.Text), 0o644); err != nil {
			return nil, false, err
		}
		files = append(files, out)
		if doc.Ignored > 0 {
			appLog.Info("calendar built with unrecognised cells", "employee", doc.Owner, "ignored", doc.Ignored)
		}
	}

	m := marker{Roster: filepath.Base(path), Files: files, ExportedAt: time.Now().UTC()}
	for _, f := range failures {
		m.Failures = append(m.Failures, f.Error())
		appLog.Error("employee calendar failed", f.Err, "file", filepath.Base(path), "employee", f.Name)
	}
	raw, err := json.MarshalIndent(&m, "", "  ")
	if err != nil {
		return nil, false, err
	}
	if err := config.WriteFileAtomic(markerPath, raw, 0o644); err != nil {
		return nil, false, err
	}

	appLog.Info("roster exported", "file", filepath.Base(path), "calendars", len(files), "failures", len(failures))
	return files, false, nil
}

// selfCheck reads a generated document back before it is published.
func selfCheck(doc *calendar.Document) error {
	parsed, err := ics.Inspect([]byte(doc.Text))
	if err != nil {
		return err
	}
	if len(parsed.Events) != len(doc.Events) {
		return fmt.Errorf("calendar has %d events, expected %d", len(parsed.Events), len(doc.Events))
	}
	return nil
}
