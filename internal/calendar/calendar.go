// Package calendar builds per-employee shift calendars from a parsed roster.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"rostercal/internal/ics"
	appLog "rostercal/internal/log"
	"rostercal/internal/model"
	"rostercal/internal/roster"
	"rostercal/internal/shift"
)

// defaultConcurrency bounds GenerateAll when Options.Concurrency is unset.
const defaultConcurrency = 4

// Document is one employee's finished calendar. It is never modified after
// Generate returns it.
type Document struct {
	Owner    string
	Window   model.Window
	Shifts   []model.Shift
	Events   []ics.Event
	Coverage ics.Coverage

	// Ignored counts cells that were neither a shift, empty, nor an off
	// marker: free-text notes or mistyped times.
	Ignored int

	Filename string
	Text     string
}

// Options configures a Generator.
type Options struct {
	// Location is the roster's civil timezone. Required.
	Location *time.Location
	// SummaryPrefix precedes the hours in each event summary.
	SummaryPrefix string
	// Concurrency bounds GenerateAll; <= 0 uses a default.
	Concurrency int
	// Now returns the generation timestamp; defaults to time.Now.
	Now func() time.Time
}

// Generator turns roster rows into calendar documents. It holds no
// per-roster state and is safe for concurrent use.
type Generator struct {
	opts Options
}

// New returns a Generator.
func New(opts Options) (*Generator, error) {
	if opts.Location == nil {
		return nil, errors.New("calendar: timezone location is required")
	}
	if opts.SummaryPrefix == "" {
		opts.SummaryPrefix = ics.DefaultSummaryPrefix
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Generator{opts: opts}, nil
}

// Location returns the timezone documents are built in.
func (g *Generator) Location() *time.Location {
	return g.opts.Location
}

// Generate builds the calendar for one employee of r. The roster itself is
// only read.
func (g *Generator) Generate(r *roster.Roster, name string) (*Document, error) {
	emp, err := r.Employee(name)
	if err != nil {
		return nil, err
	}
	return g.build(r, emp)
}

func (g *Generator) build(r *roster.Roster, emp roster.Employee) (*Document, error) {
	header := r.Header()
	parser := shift.NewParser(g.opts.Location, r.Policy().OffMarkers)

	dates := make([]time.Time, len(header))
	for i, h := range header {
		dates[i] = h.Date
	}
	shifts, ignored := parser.ParseRow(dates, emp.Tokens)
	for _, i := range ignored {
		appLog.Debug("roster cell ignored", "employee", emp.Name, "date", dates[i].Format(time.DateOnly), "cell", emp.Tokens[i])
	}

	stamp := g.opts.Now().UTC()
	window := r.Window()

	events, err := ics.Events(emp.Name, shifts, stamp, g.opts.SummaryPrefix)
	if err != nil {
		return nil, err
	}
	text, err := ics.Encode(emp.Name, events)
	if err != nil {
		return nil, err
	}
	cov, err := ics.Summarize(window, shifts)
	if err != nil {
		return nil, err
	}

	return &Document{
		Owner:    emp.Name,
		Window:   window,
		Shifts:   shifts,
		Events:   events,
		Coverage: cov,
		Ignored:  len(ignored),
		Filename: ics.Filename(emp.Name, window),
		Text:     text,
	}, nil
}

// Failure records an employee whose calendar could not be built.
type Failure struct {
	Name string
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Name, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// GenerateAll builds a calendar for every named employee of r, or only for
// names when given. Failures for individual employees are collected and do
// not stop the others; only ctx cancellation aborts the run. Documents come
// back sorted by owner.
func (g *Generator) GenerateAll(ctx context.Context, r *roster.Roster, names ...string) ([]*Document, []Failure, error) {
	var emps []roster.Employee
	var failures []Failure
	if len(names) == 0 {
		emps = r.Employees()
	} else {
		for _, n := range names {
			e, err := r.Employee(n)
			if err != nil {
				failures = append(failures, Failure{Name: n, Err: err})
				continue
			}
			emps = append(emps, e)
		}
	}

	var mu sync.Mutex
	docs := make([]*Document, 0, len(emps))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.Concurrency)
	for _, emp := range emps {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			doc, err := g.build(r, emp)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, Failure{Name: emp.Name, Err: err})
				return nil
			}
			docs = append(docs, doc)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Owner < docs[j].Owner })
	sort.Slice(failures, func(i, j int) bool { return failures[i].Name < failures[j].Name })
	return docs, failures, nil
}
