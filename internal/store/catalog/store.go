// Package catalog holds the fetched event collection behind a time-boxed
// cache, plus the ephemeral filter/sort criteria projected over it.
package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tikitihub/tikiti-go/internal/api"
	"github.com/tikitihub/tikiti-go/internal/domain"
	"github.com/tikitihub/tikiti-go/internal/persist"
)

// DefaultCacheDuration is how long a fetched event list stays fresh.
const DefaultCacheDuration = 5 * time.Minute

// snapshotName is the persistence namespace for the serialized cache.
const snapshotName = "event-storage"

type Clock interface{ Now() time.Time }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type snapshot struct {
	Events      []domain.Event `json:"events"`
	Categories  []string       `json:"categories"`
	Locations   []string       `json:"locations"`
	LastFetched *time.Time     `json:"lastFetched"`
}

// Store is the event catalog store. Constructed once per application root.
type Store struct {
	api      *api.Client
	persist  persist.Store
	clock    Clock
	log      zerolog.Logger
	cacheTTL time.Duration

	mu          sync.RWMutex
	events      []domain.Event
	categories  []string
	locations   []string
	lastFetched time.Time
	loading     bool
	errMsg      string

	searchQuery      string
	selectedCategory string
	selectedLocation string
	sortBy           string

	subMu   sync.Mutex
	subs    map[int]func()
	nextSub int
}

// New builds a store. p may be nil to disable persistence, a nil clk uses
// the system clock, and cacheTTL 0 falls back to DefaultCacheDuration.
func New(client *api.Client, p persist.Store, clk Clock, log zerolog.Logger, cacheTTL time.Duration) *Store {
	if clk == nil {
		clk = systemClock{}
	}
	if cacheTTL == 0 {
		cacheTTL = DefaultCacheDuration
	}
	return &Store{
		api:              client,
		persist:          p,
		clock:            clk,
		log:              log,
		cacheTTL:         cacheTTL,
		selectedCategory: domain.FilterAll,
		selectedLocation: domain.FilterAll,
		sortBy:           domain.SortDateAsc,
		subs:             make(map[int]func()),
	}
}

// Subscribe registers fn to run after every state transition and returns an
// unsubscribe func.
func (s *Store) Subscribe(fn func()) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// FetchEvents replaces the held events from GET /events. A non-forced call
// against a fresh, non-empty cache is a no-op. On failure the prior cached
// events stay in place (stale-but-available) and a user-facing error is
// recorded.
func (s *Store) FetchEvents(ctx context.Context, force bool) error {
	s.mu.RLock()
	fresh := !s.lastFetched.IsZero() &&
		len(s.events) > 0 &&
		s.clock.Now().Sub(s.lastFetched) < s.cacheTTL
	s.mu.RUnlock()

	if !force && fresh {
		s.log.Debug().Msg("using cached events")
		return nil
	}

	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()
	s.notify()

	events, err := s.api.ListEvents(ctx)
	if err != nil {
		s.mu.Lock()
		s.loading = false
		s.errMsg = "Failed to load events. Please try again."
		s.mu.Unlock()
		s.log.Error().Err(err).Msg("fetch events failed")
		s.notify()
		return err
	}

	now := s.clock.Now()
	s.mu.Lock()
	s.events = events
	s.lastFetched = now
	s.loading = false
	s.mu.Unlock()
	s.saveSnapshot()
	s.notify()
	return nil
}

// RefreshEvents force-fetches regardless of cache freshness.
func (s *Store) RefreshEvents(ctx context.Context) error {
	return s.FetchEvents(ctx, true)
}

// FetchCategories populates the category set. Failures are logged only; the
// shared error field is reserved for the event list.
func (s *Store) FetchCategories(ctx context.Context) {
	categories, err := s.api.ListCategories(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("fetch categories failed")
		return
	}
	s.mu.Lock()
	s.categories = categories
	s.mu.Unlock()
	s.saveSnapshot()
	s.notify()
}

// FetchLocations populates the location set. Failures are logged only.
func (s *Store) FetchLocations(ctx context.Context) {
	locations, err := s.api.ListLocations(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("fetch locations failed")
		return
	}
	s.mu.Lock()
	s.locations = locations
	s.mu.Unlock()
	s.saveSnapshot()
	s.notify()
}

// GetEventByID looks the event up in the held cache only. Nil when absent.
func (s *Store) GetEventByID(id int) *domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.events {
		if s.events[i].ID == id {
			e := s.events[i]
			return &e
		}
	}
	return nil
}

// FetchEventByID serves from cache first, then falls back to GET
// /events/{id}. Nil on failure, never an error to the caller.
func (s *Store) FetchEventByID(ctx context.Context, id int) *domain.Event {
	if cached := s.GetEventByID(id); cached != nil {
		return cached
	}
	event, err := s.api.GetEvent(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Int("event_id", id).Msg("fetch event failed")
		return nil
	}
	return event
}

// Purchase validates the request, posts it to /ticket/purchase and on
// success force-refreshes the event list so availability reflects server
// truth.
func (s *Store) Purchase(ctx context.Context, req domain.PurchaseRequest) (*domain.TicketConfirmation, error) {
	if verr := domain.Validate(req); verr != nil {
		return nil, verr
	}
	if event := s.GetEventByID(req.EventID); event != nil && req.Quantity > event.AvailableTickets {
		return nil, &domain.ValidationError{
			Message: "Requested quantity exceeds available tickets",
		}
	}

	conf, err := s.api.PurchaseTicket(ctx, req)
	if err != nil {
		msg := api.UserMessage(err, "Failed to purchase ticket. Please try again.")
		s.mu.Lock()
		s.errMsg = msg
		s.mu.Unlock()
		s.notify()
		return nil, err
	}

	if err := s.FetchEvents(ctx, true); err != nil {
		s.log.Warn().Err(err).Msg("post-purchase refresh failed")
	}
	return conf, nil
}

// ClearError clears the error field only.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()
	s.notify()
}

// Events returns a copy of the held events in server order.
func (s *Store) Events() []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.categories))
	copy(out, s.categories)
	return out
}

func (s *Store) Locations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.locations))
	copy(out, s.locations)
	return out
}

func (s *Store) LastFetched() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastFetched
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// Hydrate restores a persisted cache. The restored lastFetched is subject to
// the same freshness check as a runtime one.
func (s *Store) Hydrate(ctx context.Context) {
	if s.persist == nil {
		return
	}
	var snap snapshot
	found, err := s.persist.Load(ctx, snapshotName, &snap)
	if err != nil {
		s.log.Warn().Err(err).Msg("load catalog snapshot failed")
		return
	}
	if !found {
		return
	}

	s.mu.Lock()
	s.events = snap.Events
	s.categories = snap.Categories
	s.locations = snap.Locations
	if snap.LastFetched != nil {
		s.lastFetched = *snap.LastFetched
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Store) saveSnapshot() {
	if s.persist == nil {
		return
	}
	s.mu.RLock()
	snap := snapshot{
		Events:     s.events,
		Categories: s.categories,
		Locations:  s.locations,
	}
	if !s.lastFetched.IsZero() {
		t := s.lastFetched
		snap.LastFetched = &t
	}
	s.mu.RUnlock()

	if err := s.persist.Save(context.Background(), snapshotName, snap); err != nil {
		s.log.Warn().Err(err).Msg("save catalog snapshot failed")
	}
}
