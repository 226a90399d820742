package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/brian-pennington/festwiz/internal/config"
	"github.com/brian-pennington/festwiz/internal/identity"
	"github.com/brian-pennington/festwiz/internal/model"
	"github.com/brian-pennington/festwiz/internal/store"
	"github.com/brian-pennington/festwiz/internal/timegrid"

	appLog "github.com/brian-pennington/festwiz/internal/log"
)

// Source ids used in config-derived fetches and logging.
const (
	sourceArtists    = "artists"
	sourceOfficial   = "official-events"
	sourceUnofficial = "unofficial-events"
)

// Loader runs the catalog pipeline: fetch the remote collections, decode
// them, tag identities, union everything into the store, and migrate
// ratings. It keeps the latest identity resolver for the API layer.
type Loader struct {
	cfg     *config.Config
	fetcher *Fetcher
	st      *store.Store
	axis    timegrid.Axis
	loc     *time.Location

	mu        sync.RWMutex
	resolver  *identity.Resolver
	artists   []model.Artist
	onRefresh func()
}

// NewLoader builds a Loader over the given config and store.
func NewLoader(cfg *config.Config, st *store.Store) *Loader {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", cfg.Timezone)
		loc = time.Local
	}
	return &Loader{
		cfg:      cfg,
		fetcher:  NewFetcher(cfg.CacheDir),
		st:       st,
		axis:     timegrid.NewAxis(cfg.DayStartHour),
		loc:      loc,
		resolver: identity.NewResolver(nil),
	}
}

// OnRefresh registers fn to run after every completed Refresh pass, once
// the store and resolver reflect the new catalog. Consumers use it to drop
// derived state computed from the previous generation.
func (l *Loader) OnRefresh(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onRefresh = fn
}

// Axis returns the minute axis for the configured day-start hour.
func (l *Loader) Axis() timegrid.Axis {
	return l.axis
}

// Location returns the festival timezone.
func (l *Loader) Location() *time.Location {
	return l.loc
}

// Resolver returns the identity resolver built from the latest catalog load.
// Never nil; before the first load it resolves name-derived keys only.
func (l *Loader) Resolver() *identity.Resolver {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.resolver
}

// Artists returns the latest catalog artist list.
func (l *Loader) Artists() []model.Artist {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]model.Artist(nil), l.artists...)
}

// Refresh runs one full catalog pipeline pass. A failed optional source is
// treated as an empty collection; only total failure of every configured
// source is reported as an error.
func (l *Loader) Refresh(ctx context.Context) error {
	sources := make([]Source, 0, 3)
	if l.cfg.Catalog.ArtistsURL != "" {
		sources = append(sources, Source{ID: sourceArtists, URL: l.cfg.Catalog.ArtistsURL})
	}
	if l.cfg.Catalog.EventsURL != "" {
		sources = append(sources, Source{ID: sourceOfficial, URL: l.cfg.Catalog.EventsURL})
	}
	if l.cfg.Catalog.UnofficialURL != "" {
		sources = append(sources, Source{ID: sourceUnofficial, URL: l.cfg.Catalog.UnofficialURL})
	}

	results, errs := l.fetcher.FetchAll(ctx, sources)
	if len(sources) > 0 && len(results) == 0 {
		return errors.Join(errs...)
	}

	var (
		artists    []model.Artist
		official   []model.Event
		unofficial []model.Event
	)
	for _, res := range results {
		var perr error
		switch res.Source.ID {
		case sourceArtists:
			artists, perr = ParseArtists(res.Body)
		case sourceOfficial:
			official, perr = ParseEvents(res.Body, model.SourceOfficial)
		case sourceUnofficial:
			unofficial, perr = ParseEvents(res.Body, model.SourceUnofficial)
		}
		if perr != nil {
			appLog.Error("catalog parse failed", perr, "id", res.Source.ID)
		}
	}

	unofficial = append(unofficial, ExpandRecurring(l.cfg.Recurring, l.cfg.Days, l.axis, l.loc)...)

	addedOfficial, err := l.st.ReplaceSource(model.SourceOfficial, official)
	if err != nil {
		appLog.Error("catalog: persisting after official merge failed", err)
	}
	addedUnofficial, err := l.st.ReplaceSource(model.SourceUnofficial, unofficial)
	if err != nil {
		appLog.Error("catalog: persisting after unofficial merge failed", err)
	}

	migrated, err := l.st.MigrateRatings(artists)
	if err != nil {
		appLog.Error("catalog: persisting after rating migration failed", err)
	}

	l.mu.Lock()
	l.resolver = identity.NewResolver(artists)
	l.artists = artists
	notify := l.onRefresh
	l.mu.Unlock()

	if notify != nil {
		notify()
	}

	appLog.Info("catalog refresh completed",
		"artists", len(artists),
		"official_added", addedOfficial,
		"unofficial_added", addedUnofficial,
		"ratings_migrated", migrated,
		"fetch_errors", len(errs),
		"store_events", l.st.Len(),
	)
	return nil
}
