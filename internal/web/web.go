package web

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"rostercal/internal/calendar"
	"rostercal/internal/config"
	"rostercal/internal/extract"
	"rostercal/internal/ics"
	appLog "rostercal/internal/log"
	"rostercal/internal/roster"
)

const (
	// maxUploadBytes bounds a multipart roster upload.
	maxUploadBytes = 32 << 20
	// maxCachedRosters bounds the parsed-roster cache; the oldest entry is
	// evicted first.
	maxCachedRosters = 64
)

// Server provides the roster upload and calendar download API.
type Server struct {
	cfg    *config.Config
	gen    *calendar.Generator
	policy roster.Policy
	mux    *http.ServeMux

	// Parsed rosters keyed by the SHA-256 of the uploaded file, so repeated
	// downloads for different employees reuse one Roster.
	rostersMu sync.RWMutex
	rosters   map[string]*rosterEntry
}

type rosterEntry struct {
	name     string
	roster   *roster.Roster
	loadedAt time.Time
}

// embeddedStatic contains the upload page served at /.
//
//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, gen *calendar.Generator) *Server {
	s := &Server{
		cfg:     cfg,
		gen:     gen,
		policy:  cfg.RosterPolicy(),
		mux:     http.NewServeMux(),
		rosters: make(map[string]*rosterEntry),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="rostercal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer serves the API on cfg.Listen until ctx is canceled, then
// shuts down gracefully.
func StartServer(ctx context.Context, cfg *config.Config, gen *calendar.Generator) error {
	s := NewServer(cfg, gen)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("POST /api/rosters", s.handleUpload)
	s.mux.HandleFunc("GET /api/rosters/{id}/names", s.handleNames)
	s.mux.HandleFunc("GET /api/rosters/{id}/calendar", s.handleCalendar)

	// Everything else outside /api/ is the embedded upload page.
	s.mux.Handle("/", s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// staticFileServer serves internal/web/static.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static UI not available", http.StatusServiceUnavailable)
		})
	}

	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Unknown /api/* paths must 404, never fall through to HTML.
		if path == "/api" || strings.HasPrefix(path, "/api/") {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

// uploadResponse is the JSON response shape for POST /api/rosters.
type uploadResponse struct {
	ID    string   `json:"id"`
	Names []string `json:"names"`
	First string   `json:"first"`
	Last  string   `json:"last"`
	Days  int      `json:"days"`
}

// handleUpload parses a roster from the multipart field "file".
//
// POST /api/rosters
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	id, entry, err := s.loadRoster(header.Filename, data)
	if err != nil {
		appLog.Error("roster upload rejected", err, "file", header.Filename)
		writeError(w, statusFor(err), err.Error())
		return
	}

	window := entry.roster.Window()
	appLog.Info("roster uploaded",
		"id", id,
		"file", header.Filename,
		"employees", len(entry.roster.Names()),
		"first", window.First.Format(time.DateOnly),
		"last", window.Last.Format(time.DateOnly),
	)

	writeJSON(w, http.StatusOK, uploadResponse{
		ID:    id,
		Names: nonNil(entry.roster.Names()),
		First: window.First.Format(time.DateOnly),
		Last:  window.Last.Format(time.DateOnly),
		Days:  len(entry.roster.Header()),
	})
}

// loadRoster returns the cached roster for data or parses and caches it.
func (s *Server) loadRoster(name string, data []byte) (string, *rosterEntry, error) {
	sum := sha256.Sum256(data)
	id := hex.EncodeToString(sum[:])

	s.rostersMu.RLock()
	entry, ok := s.rosters[id]
	s.rostersMu.RUnlock()
	if ok {
		return id, entry, nil
	}

	grid, err := extract.Read(name, bytes.NewReader(data))
	if err != nil {
		return "", nil, err
	}
	ros, err := roster.New(grid, s.policy)
	if err != nil {
		return "", nil, err
	}
	entry = &rosterEntry{name: name, roster: ros, loadedAt: time.Now()}

	s.rostersMu.Lock()
	defer s.rostersMu.Unlock()
	if existing, ok := s.rosters[id]; ok {
		return id, existing, nil
	}
	if len(s.rosters) >= maxCachedRosters {
		s.evictOldestLocked()
	}
	s.rosters[id] = entry
	return id, entry, nil
}

func (s *Server) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, e := range s.rosters {
		if oldestID == "" || e.loadedAt.Before(oldest) {
			oldestID, oldest = id, e.loadedAt
		}
	}
	delete(s.rosters, oldestID)
}

func (s *Server) lookup(id string) (*rosterEntry, bool) {
	s.rostersMu.RLock()
	defer s.rostersMu.RUnlock()
	e, ok := s.rosters[id]
	return e, ok
}

// handleNames lists the employees of an uploaded roster.
//
// GET /api/rosters/{id}/names
func (s *Server) handleNames(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown roster")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"names": nonNil(entry.roster.Names())})
}

// eventDTO is a JSON-friendly view of one calendar event.
type eventDTO struct {
	UID     string    `json:"uid"`
	Summary string    `json:"summary"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Hours   float64   `json:"hours"`
}

// calendarResponse is the ?format=json response shape.
type calendarResponse struct {
	Owner    string       `json:"owner"`
	Filename string       `json:"filename"`
	Events   []eventDTO   `json:"events"`
	Coverage ics.Coverage `json:"coverage"`
	Ignored  int          `json:"ignored"`
}

// handleCalendar returns one employee's calendar.
//
// GET /api/rosters/{id}/calendar?name=Jane+Doe[&format=json]
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown roster")
		return
	}
	q := r.URL.Query()
	name := q.Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "query parameter \"name\" is required")
		return
	}

	doc, err := s.gen.Generate(entry.roster, name)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if doc.Ignored > 0 {
		appLog.Info("calendar built with unrecognised cells", "employee", name, "ignored", doc.Ignored)
	}

	if q.Get("format") == "json" {
		events := make([]eventDTO, 0, len(doc.Events))
		for _, ev := range doc.Events {
			events = append(events, eventDTO{
				UID:     ev.UID,
				Summary: ev.Summary,
				Start:   ev.Start,
				End:     ev.End,
				Hours:   ev.Hours,
			})
		}
		writeJSON(w, http.StatusOK, calendarResponse{
			Owner:    doc.Owner,
			Filename: doc.Filename,
			Events:   events,
			Coverage: doc.Coverage,
			Ignored:  doc.Ignored,
		})
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, doc.Text)
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, roster.ErrEmployeeNotFound):
		return http.StatusNotFound
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, roster.ErrMalformedRoster), errors.Is(err, roster.ErrInsufficientSpan):
		return http.StatusBadRequest
	default:
		// Corrupt files surface as library errors from extraction.
		return http.StatusBadRequest
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
