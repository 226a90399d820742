package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/brian-pennington/festwiz/internal/catalog"
	"github.com/brian-pennington/festwiz/internal/config"
	"github.com/brian-pennington/festwiz/internal/conflict"
	"github.com/brian-pennington/festwiz/internal/feed"
	"github.com/brian-pennington/festwiz/internal/layout"
	"github.com/brian-pennington/festwiz/internal/model"
	"github.com/brian-pennington/festwiz/internal/schedimport"
	"github.com/brian-pennington/festwiz/internal/store"
	"github.com/brian-pennington/festwiz/internal/timegrid"

	appLog "github.com/brian-pennington/festwiz/internal/log"
)

// viewCacheTTL bounds how stale a computed day view may be. Derived layout,
// conflict, and grouping results are never persisted; they are recomputed
// whenever the cache misses.
const viewCacheTTL = 30 * time.Second

// Server provides the JSON API consumed by the view layer.
type Server struct {
	cfg    *config.Config
	st     *store.Store
	loader *catalog.Loader
	mux    *http.ServeMux

	// views caches computed day views (events, layout, venue groups) so a
	// rendering client polling several endpoints does not recompute the
	// same derivations on every request.
	views *gocache.Cache
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, st *store.Store, loader *catalog.Loader) *Server {
	s := &Server{
		cfg:    cfg,
		st:     st,
		loader: loader,
		mux:    http.NewServeMux(),
		views:  gocache.New(viewCacheTTL, time.Minute),
	}
	s.registerRoutes()
	// A catalog refresh replaces store contents outside any handler, so the
	// cached views must be dropped when the pipeline completes.
	loader.OnRefresh(s.invalidateViews)
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
	// Empty username or password is treated as disabled.
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
		// /health is always exposed unauthenticated.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="festwiz", charset="UTF-8"`)
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

// StartServer runs the HTTP server bound to cfg.Listen until ctx is
// canceled, then shuts it down gracefully.
func StartServer(ctx context.Context, cfg *config.Config, st *store.Store, loader *catalog.Loader) error {
	s := NewServer(cfg, st, loader)
	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/api/layout", s.handleLayout)
	s.mux.HandleFunc("/api/conflicts", s.handleConflicts)
	s.mux.HandleFunc("/api/now", s.handleNow)
	s.mux.HandleFunc("/api/venues", s.handleVenues)
	s.mux.HandleFunc("/api/ratings", s.handleRatings)
	s.mux.HandleFunc("/api/import", s.handleImport)
	s.mux.HandleFunc("/feed.ics", s.handleFeed)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// ratingFor resolves an event's identity key against the current catalog and
// returns its stored rating.
func (s *Server) ratingFor(ev model.Event) int {
	return s.st.Rating(s.loader.Resolver().EventKey(ev))
}

// invalidateViews drops all cached day views after any store mutation.
func (s *Server) invalidateViews() {
	s.views.Flush()
}

// eventDTO is a JSON-friendly view of an event plus its resolved rating.
type eventDTO struct {
	model.Event
	RatingKey string `json:"rating_key"`
	Rating    int    `json:"rating,omitempty"`
}

func (s *Server) eventDTOs(events []model.Event) []eventDTO {
	res := s.loader.Resolver()
	out := make([]eventDTO, 0, len(events))
	for _, ev := range events {
		key := res.EventKey(ev)
		out = append(out, eventDTO{
			Event:     ev,
			RatingKey: key,
			Rating:    s.st.Rating(key),
		})
	}
	return out
}

// handleEvents returns the merged event collection, optionally filtered to
// one festival day, plus add/delete of user events.
//
//	GET    /api/events?day=2026-03-18
//	POST   /api/events        body: event fields -> adds a user event
//	DELETE /api/events?artist=..&venue=..&day=..&start=..
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleEventsGet(w, r)
	case http.MethodPost:
		s.handleEventsAdd(w, r)
	case http.MethodDelete:
		s.handleEventsDelete(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type eventsResponse struct {
	Day    string     `json:"day,omitempty"`
	Events []eventDTO `json:"events"`
}

func (s *Server) handleEventsGet(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("day")

	cacheKey := "events:" + day
	if cached, ok := s.views.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	var events []model.Event
	if day == "" {
		events = s.st.Events()
	} else {
		events = s.st.EventsForDay(day)
	}

	resp := eventsResponse{Day: day, Events: s.eventDTOs(events)}
	s.views.SetDefault(cacheKey, resp)
	writeJSON(w, http.StatusOK, resp)
}

// userEventRequest is the add-event body. Edits are delete + recreate; there
// is no update endpoint.
type userEventRequest struct {
	ArtistName string `json:"artist_name"`
	Venue      string `json:"venue"`
	Day        string `json:"day"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	NoSetTime  bool   `json:"no_set_time"`
	Admission  string `json:"admission"`
	Website    string `json:"website"`
}

func (s *Server) handleEventsAdd(w http.ResponseWriter, r *http.Request) {
	var req userEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed event body")
		return
	}
	if req.ArtistName == "" || req.Venue == "" || req.Day == "" {
		writeError(w, http.StatusBadRequest, "artist_name, venue and day are required")
		return
	}
	if req.StartTime == "" && !req.NoSetTime {
		writeError(w, http.StatusBadRequest, "start_time is required unless no_set_time is set")
		return
	}
	// An unparseable clock would persist an event every derived view skips.
	if req.StartTime != "" {
		if _, _, err := timegrid.ParseClock(req.StartTime); err != nil {
			writeError(w, http.StatusBadRequest, "start_time must be HH:MM")
			return
		}
	}
	if req.EndTime != "" {
		if _, _, err := timegrid.ParseClock(req.EndTime); err != nil {
			writeError(w, http.StatusBadRequest, "end_time must be HH:MM")
			return
		}
	}

	ev := model.Event{
		ID:         uuid.NewString(),
		ArtistName: req.ArtistName,
		Venue:      req.Venue,
		Day:        req.Day,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		NoSetTime:  req.NoSetTime,
		Admission:  model.Admission(req.Admission),
		Website:    req.Website,
		Source:     model.SourceUser,
	}

	added, _, err := s.st.Add(ev)
	if err != nil {
		appLog.Error("user event persist failed", err)
		writeError(w, http.StatusInternalServerError, "failed to persist event")
		return
	}
	if added == 0 {
		writeError(w, http.StatusConflict, "an event with the same artist, venue, day and start time already exists")
		return
	}

	s.invalidateViews()
	writeJSON(w, http.StatusCreated, s.eventDTOs([]model.Event{ev})[0])
}

func (s *Server) handleEventsDelete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := model.NaturalKey{
		ArtistName: q.Get("artist"),
		Venue:      q.Get("venue"),
		Day:        q.Get("day"),
		StartTime:  q.Get("start"),
	}
	if key.ArtistName == "" || key.Venue == "" || key.Day == "" {
		writeError(w, http.StatusBadRequest, "artist, venue and day are required")
		return
	}

	switch err := s.st.Delete(key); {
	case err == nil:
		s.invalidateViews()
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, store.ErrEventNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	case errors.Is(err, store.ErrImmutableEvent):
		writeError(w, http.StatusForbidden, "catalog events cannot be deleted")
	default:
		appLog.Error("event delete failed", err)
		writeError(w, http.StatusInternalServerError, "failed to delete event")
	}
}

// layoutItem pairs an event with its computed display slot.
type layoutItem struct {
	eventDTO
	layout.Assignment
}

type layoutResponse struct {
	Day   string       `json:"day"`
	Venue string       `json:"venue,omitempty"`
	Items []layoutItem `json:"items"`
}

// handleLayout computes (column, totalColumns) assignments for the events of
// one display track: a single venue's day, or the whole day as a timeline.
//
//	GET /api/layout?day=2026-03-18[&venue=Stubb's]
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	day := q.Get("day")
	venue := q.Get("venue")
	if day == "" {
		writeError(w, http.StatusBadRequest, "day is required")
		return
	}

	cacheKey := "layout:" + day + ":" + venue
	if cached, ok := s.views.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	events := s.st.EventsForDay(day)
	if venue != "" {
		filtered := events[:0]
		for _, ev := range events {
			if ev.Venue == venue {
				filtered = append(filtered, ev)
			}
		}
		events = filtered
	}

	assignments := layout.PackEvents(events, s.loader.Axis())
	dtos := s.eventDTOs(events)
	items := make([]layoutItem, len(events))
	for i := range events {
		items[i] = layoutItem{eventDTO: dtos[i], Assignment: assignments[i]}
	}

	resp := layoutResponse{Day: day, Venue: venue, Items: items}
	s.views.SetDefault(cacheKey, resp)
	writeJSON(w, http.StatusOK, resp)
}

type conflictsResponse struct {
	Day       string             `json:"day"`
	Conflicts []model.NaturalKey `json:"conflicts"`
}

// handleConflicts returns the natural keys of rated events that overlap
// another rated event on the given day.
//
//	GET /api/conflicts?day=2026-03-18
func (s *Server) handleConflicts(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("day")
	if day == "" {
		writeError(w, http.StatusBadRequest, "day is required")
		return
	}

	cacheKey := "conflicts:" + day
	if cached, ok := s.views.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	set := conflict.Detect(s.st.EventsForDay(day), s.ratingFor, s.loader.Axis())
	keys := make([]model.NaturalKey, 0, len(set))
	for _, ev := range s.st.EventsForDay(day) {
		if set[ev.NaturalKey()] {
			keys = append(keys, ev.NaturalKey())
		}
	}

	resp := conflictsResponse{Day: day, Conflicts: keys}
	s.views.SetDefault(cacheKey, resp)
	writeJSON(w, http.StatusOK, resp)
}

type nowResponse struct {
	Day      string     `json:"day"`
	Offset   int        `json:"offset"`
	Current  []eventDTO `json:"current"`
	Imminent []eventDTO `json:"imminent"`
	Upcoming []eventDTO `json:"upcoming"`
}

// handleNow buckets the day's events around a reference instant into
// current / imminent / upcoming. The view layer polls this endpoint on a
// fixed interval while visible and stops polling when hidden; the server
// keeps no per-view timer state.
//
//	GET /api/now[?at=2026-03-18T22:40:00-05:00]
func (s *Server) handleNow(w http.ResponseWriter, r *http.Request) {
	axis := s.loader.Axis()
	at := time.Now().In(s.loader.Location())
	if v := r.URL.Query().Get("at"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "at must be RFC3339")
			return
		}
		at = parsed.In(s.loader.Location())
	}

	day := axis.FestivalDay(at)
	offset := axis.OffsetOf(at)
	view := conflict.ClassifyNow(s.st.EventsForDay(day), offset, axis)

	writeJSON(w, http.StatusOK, nowResponse{
		Day:      day,
		Offset:   offset,
		Current:  s.eventDTOs(view.Current),
		Imminent: s.eventDTOs(view.Imminent),
		Upcoming: s.eventDTOs(view.Upcoming),
	})
}

type venuesResponse struct {
	Day    string                `json:"day"`
	Groups []conflict.VenueGroup `json:"groups"`
}

// handleVenues returns the venue display order for one day: cluster groups
// sorted by the best rating their venues received, ties alphabetical.
//
//	GET /api/venues?day=2026-03-18
func (s *Server) handleVenues(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("day")
	if day == "" {
		writeError(w, http.StatusBadRequest, "day is required")
		return
	}

	cacheKey := "venues:" + day
	if cached, ok := s.views.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	clusters := make([]conflict.Cluster, 0, len(s.cfg.Clusters))
	for _, c := range s.cfg.Clusters {
		clusters = append(clusters, conflict.Cluster{Name: c.Name, Venues: c.Venues})
	}

	groups := conflict.GroupVenues(s.st.EventsForDay(day), clusters, s.ratingFor)
	resp := venuesResponse{Day: day, Groups: groups}
	s.views.SetDefault(cacheKey, resp)
	writeJSON(w, http.StatusOK, resp)
}

// ratingRequest sets or clears a rating for an artist. rating 0 clears.
type ratingRequest struct {
	ArtistName string `json:"artist_name"`
	EntityID   int64  `json:"entity_id"`
	Rating     int    `json:"rating"`
}

// handleRatings reads or writes the attendee's ratings.
//
//	GET  /api/ratings                  -> {key: rating, ...}
//	POST /api/ratings {artist_name | entity_id, rating}
func (s *Server) handleRatings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.st.Ratings())
	case http.MethodPost, http.MethodPut:
		var req ratingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed rating body")
			return
		}
		if req.ArtistName == "" && req.EntityID <= 0 {
			writeError(w, http.StatusBadRequest, "artist_name or entity_id is required")
			return
		}

		key := s.loader.Resolver().ArtistKey(req.ArtistName, req.EntityID)
		if req.Rating == 0 {
			if err := s.st.ClearRating(key); err != nil {
				appLog.Error("rating clear failed", err, "key", key)
				writeError(w, http.StatusInternalServerError, "failed to persist rating")
				return
			}
		} else if err := s.st.SetRating(key, req.Rating); err != nil {
			if errors.Is(err, store.ErrBadRating) {
				writeError(w, http.StatusBadRequest, "rating must be between 1 and 4")
				return
			}
			appLog.Error("rating set failed", err, "key", key)
			writeError(w, http.StatusInternalServerError, "failed to persist rating")
			return
		}

		s.invalidateViews()
		writeJSON(w, http.StatusOK, map[string]any{"key": key, "rating": req.Rating})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type importResponse struct {
	Day     string `json:"day"`
	Parsed  int    `json:"parsed"`
	Added   int    `json:"added"`
	Skipped int    `json:"skipped"`
}

// handleImport ingests a raw venue-by-time schedule grid for one day.
// Duplicates against the existing store are silently dropped; the response
// reports parsed vs. added vs. skipped counts.
//
//	POST /api/import?day=2026-03-18   body: grid text
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	day := r.URL.Query().Get("day")
	if day == "" {
		writeError(w, http.StatusBadRequest, "day is required")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		// The importer itself never fails on shape; an unreadable body is
		// the single user-facing import error.
		writeError(w, http.StatusBadRequest, "could not read schedule text")
		return
	}

	events := schedimport.Parse(string(body), schedimport.Options{
		Day:          day,
		PMCutoffHour: s.cfg.ImportPMCutoffHour,
	})

	added, skipped, err := s.st.Add(events...)
	if err != nil {
		appLog.Error("import persist failed", err, "day", day)
		writeError(w, http.StatusInternalServerError, "failed to persist imported events")
		return
	}

	s.invalidateViews()
	appLog.Info("schedule import", "day", day, "parsed", len(events), "added", added, "skipped", skipped)
	writeJSON(w, http.StatusOK, importResponse{
		Day:     day,
		Parsed:  len(events),
		Added:   added,
		Skipped: skipped,
	})
}

// handleFeed serves the rated schedule as an iCalendar feed.
//
//	GET /feed.ics[?min=3]
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	min := parseIntDefault(r.URL.Query().Get("min"), s.cfg.FeedMinRating)
	if !model.ValidRating(min) {
		min = s.cfg.FeedMinRating
	}

	body := feed.Build(s.st.Events(), s.ratingFor, min, s.loader.Axis(), s.loader.Location())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
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
