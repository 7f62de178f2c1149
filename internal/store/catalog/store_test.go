package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tikitihub/tikiti-go/internal/api"
	"github.com/tikitihub/tikiti-go/internal/domain"
	"github.com/tikitihub/tikiti-go/internal/persist"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	tt, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return tt.UTC()
}

func sampleEvents(t *testing.T) []domain.Event {
	t.Helper()
	return []domain.Event{
		{
			ID: 1, Name: "Nairobi Jazz Festival", Description: "An evening of live jazz",
			Category: "Music", Location: "Nairobi",
			EventDate: mustTime(t, "2024-03-15T18:00:00Z"),
			PriceKES:  2500, TotalTickets: 500, AvailableTickets: 120,
		},
		{
			ID: 2, Name: "Mombasa Food Fair", Description: "Coastal cuisine showcase",
			Category: "Food", Location: "Mombasa",
			EventDate: mustTime(t, "2024-04-20T10:00:00Z"),
			PriceKES:  1000, TotalTickets: 300, AvailableTickets: 300,
		},
		{
			ID: 3, Name: "Tech Summit", Description: "Developers and startups",
			Category: "Technology", Location: "Nairobi West",
			EventDate: mustTime(t, "2024-03-25T09:00:00Z"),
			PriceKES:  5000, TotalTickets: 200, AvailableTickets: 40,
		},
	}
}

// eventServer serves a mutable event list and counts hits per route.
type eventServer struct {
	mu     sync.Mutex
	events []domain.Event
	fail   bool

	listHits     int
	categoryHits int
	locationHits int
}

func (s *eventServer) router(t *testing.T) chi.Router {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/events", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.listHits++
		if s.fail {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(domain.APIError{Error: "backend down"})
			return
		}
		json.NewEncoder(w).Encode(s.events)
	})
	r.Get("/events/categories", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.categoryHits++
		if s.fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode([]string{"Music", "Food", "Technology"})
	})
	r.Get("/events/locations", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.locationHits++
		json.NewEncoder(w).Encode([]string{"Nairobi", "Mombasa", "Nairobi West"})
	})
	return r
}

func (s *eventServer) setFail(fail bool) {
	s.mu.Lock()
	s.fail = fail
	s.mu.Unlock()
}

func (s *eventServer) hits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listHits
}

func newTestStore(t *testing.T, handler http.Handler, p persist.Store, clk Clock) *Store {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := api.New(srv.URL, 2*time.Second, zerolog.Nop())
	return New(client, p, clk, zerolog.Nop(), 0)
}

func TestFetchEvents_FreshCacheSkipsNetwork(t *testing.T) {
	backend := &eventServer{events: sampleEvents(t)}
	clk := &fakeClock{t: mustTime(t, "2026-03-01T10:00:00Z")}
	st := newTestStore(t, backend.router(t), nil, clk)

	ctx := context.Background()
	require.NoError(t, st.FetchEvents(ctx, false))
	require.Equal(t, 1, backend.hits())
	held := st.Events()

	// Fresh, non-empty cache: repeated non-forced calls are no-ops.
	clk.t = clk.t.Add(DefaultCacheDuration - time.Second)
	require.NoError(t, st.FetchEvents(ctx, false))
	require.NoError(t, st.FetchEvents(ctx, false))
	assert.Equal(t, 1, backend.hits())
	assert.Equal(t, held, st.Events())
}

func TestFetchEvents_ExpiredCacheRefetches(t *testing.T) {
	backend := &eventServer{events: sampleEvents(t)}
	clk := &fakeClock{t: mustTime(t, "2026-03-01T10:00:00Z")}
	st := newTestStore(t, backend.router(t), nil, clk)

	ctx := context.Background()
	require.NoError(t, st.FetchEvents(ctx, false))

	clk.t = clk.t.Add(DefaultCacheDuration + time.Second)
	require.NoError(t, st.FetchEvents(ctx, false))
	assert.Equal(t, 2, backend.hits())
}

func TestFetchEvents_ForceBypassesFreshCache(t *testing.T) {
	backend := &eventServer{events: sampleEvents(t)}
	clk := &fakeClock{t: mustTime(t, "2026-03-01T10:00:00Z")}
	st := newTestStore(t, backend.router(t), nil, clk)

	ctx := context.Background()
	require.NoError(t, st.FetchEvents(ctx, false))
	require.NoError(t, st.FetchEvents(ctx, true))
	assert.Equal(t, 2, backend.hits())

	require.NoError(t, st.RefreshEvents(ctx))
	assert.Equal(t, 3, backend.hits())
}

func TestFetchEvents_EmptyCacheAlwaysFetches(t *testing.T) {
	backend := &eventServer{events: []domain.Event{}}
	clk := &fakeClock{t: mustTime(t, "2026-03-01T10:00:00Z")}
	st := newTestStore(t, backend.router(t), nil, clk)

	ctx := context.Background()
	require.NoError(t, st.FetchEvents(ctx, false))
	// Cache is stamped but empty, so the age check must not short-circuit.
	require.NoError(t, st.FetchEvents(ctx, false))
	assert.Equal(t, 2, backend.hits())
}

func TestFetchEvents_FailureKeepsStaleEvents(t *testing.T) {
	backend := &eventServer{events: sampleEvents(t)}
	clk := &fakeClock{t: mustTime(t, "2026-03-01T10:00:00Z")}
	st := newTestStore(t, backend.router(t), nil, clk)

	ctx := context.Background()
	require.NoError(t, st.FetchEvents(ctx, false))
	held := st.Events()
	require.Len(t, held, 3)

	backend.setFail(true)
	err := st.FetchEvents(ctx, true)
	require.Error(t, err)

	assert.Equal(t, held, st.Events())
	assert.Equal(t, "Failed to load events. Please try again.", st.Error())
	assert.False(t, st.Loading())
}

func TestFetchCategoriesAndLocations(t *testing.T) {
	backend := &eventServer{events: sampleEvents(t)}
	st := newTestStore(t, backend.router(t), nil, nil)

	ctx := context.Background()
	st.FetchCategories(ctx)
	st.FetchLocations(ctx)

	assert.Equal(t, []string{"Music", "Food", "Technology"}, st.Categories())
	assert.Equal(t, []string{"Nairobi", "Mombasa", "Nairobi West"}, st.Locations())
}

func TestFetchCategories_FailureDoesNotSetError(t *testing.T) {
	backend := &eventServer{}
	backend.setFail(true)
	st := newTestStore(t, backend.router(t), nil, nil)

	st.FetchCategories(context.Background())

	assert.Empty(t, st.Error())
	assert.Empty(t, st.Categories())
}

func TestGetEventByID_CacheOnly(t *testing.T) {
	backend := &eventServer{events: sampleEvents(t)}
	st := newTestStore(t, backend.router(t), nil, nil)

	// Nothing fetched yet: lookup must not touch the network.
	assert.Nil(t, st.GetEventByID(1))
	assert.Zero(t, backend.hits())

	require.NoError(t, st.FetchEvents(context.Background(), false))
	event := st.GetEventByID(3)
	require.NotNil(t, event)
	assert.Equal(t, "Tech Summit", event.Name)
	assert.Nil(t, st.GetEventByID(42))
}

func TestFetchEventByID_CacheFirst(t *testing.T) {
	backend := &eventServer{events: sampleEvents(t)}
	r := backend.router(t)
	singleHits := 0
	r.Get("/events/{id}", func(w http.ResponseWriter, _ *http.Request) {
		singleHits++
		json.NewEncoder(w).Encode(domain.Event{ID: 42, Name: "Kisumu Derby"})
	})

	st := newTestStore(t, r, nil, nil)
	ctx := context.Background()
	require.NoError(t, st.FetchEvents(ctx, false))

	// Cached: no extra request.
	event := st.FetchEventByID(ctx, 1)
	require.NotNil(t, event)
	assert.Equal(t, "Nairobi Jazz Festival", event.Name)
	assert.Zero(t, singleHits)

	// Not cached: fetched individually.
	event = st.FetchEventByID(ctx, 42)
	require.NotNil(t, event)
	assert.Equal(t, "Kisumu Derby", event.Name)
	assert.Equal(t, 1, singleHits)
}

func TestFetchEventByID_NilOnFailure(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/events/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	st := newTestStore(t, r, nil, nil)
	assert.Nil(t, st.FetchEventByID(context.Background(), 9))
}

func TestPurchase_Success(t *testing.T) {
	backend := &eventServer{events: sampleEvents(t)}
	r := backend.router(t)
	r.Post("/ticket/purchase", func(w http.ResponseWriter, req *http.Request) {
		var body domain.PurchaseRequest
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		json.NewEncoder(w).Encode(domain.TicketConfirmation{
			TicketCode: "TKT-0001",
			EventName:  "Nairobi Jazz Festival",
			Quantity:   body.Quantity,
			TotalPrice: 5000,
		})
	})

	st := newTestStore(t, r, nil, nil)
	ctx := context.Background()
	require.NoError(t, st.FetchEvents(ctx, false))
	require.Equal(t, 1, backend.hits())

	conf, err := st.Purchase(ctx, domain.PurchaseRequest{
		EventID:     1,
		UserName:    "Amina Wanjiru",
		UserEmail:   "amina@example.com",
		PhoneNumber: "0712345678",
		Quantity:    2,
	})
	require.NoError(t, err)
	assert.Equal(t, "TKT-0001", conf.TicketCode)
	assert.Equal(t, 2, conf.Quantity)

	// Availability is refreshed from the server after purchase.
	assert.Equal(t, 2, backend.hits())
}

func TestPurchase_ValidationSkipsNetwork(t *testing.T) {
	hits := 0
	r := chi.NewRouter()
	r.Post("/ticket/purchase", func(w http.ResponseWriter, _ *http.Request) { hits++ })

	st := newTestStore(t, r, nil, nil)

	_, err := st.Purchase(context.Background(), domain.PurchaseRequest{EventID: 1})
	require.Error(t, err)

	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Zero(t, hits)
	assert.Empty(t, st.Error())
}

func TestPurchase_QuantityBoundedByAvailability(t *testing.T) {
	backend := &eventServer{events: sampleEvents(t)}
	st := newTestStore(t, backend.router(t), nil, nil)
	require.NoError(t, st.FetchEvents(context.Background(), false))

	_, err := st.Purchase(context.Background(), domain.PurchaseRequest{
		EventID:     3, // 40 available
		UserName:    "Amina Wanjiru",
		UserEmail:   "amina@example.com",
		PhoneNumber: "0712345678",
		Quantity:    41,
	})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestPurchase_ServerErrorRecorded(t *testing.T) {
	backend := &eventServer{events: sampleEvents(t)}
	r := backend.router(t)
	r.Post("/ticket/purchase", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(domain.APIError{Error: "Not enough tickets available"})
	})

	st := newTestStore(t, r, nil, nil)

	_, err := st.Purchase(context.Background(), domain.PurchaseRequest{
		EventID:     1,
		UserName:    "Amina Wanjiru",
		UserEmail:   "amina@example.com",
		PhoneNumber: "0712345678",
		Quantity:    2,
	})
	require.Error(t, err)
	assert.Equal(t, "Not enough tickets available", st.Error())
}

func TestClearError(t *testing.T) {
	backend := &eventServer{}
	backend.setFail(true)
	st := newTestStore(t, backend.router(t), nil, nil)

	require.Error(t, st.FetchEvents(context.Background(), false))
	require.NotEmpty(t, st.Error())

	st.ClearError()
	assert.Empty(t, st.Error())
}

func TestHydrate_FreshSnapshotServesWithoutNetwork(t *testing.T) {
	p, err := persist.NewFileStore(t.TempDir())
	require.NoError(t, err)

	backend := &eventServer{events: sampleEvents(t)}
	clk := &fakeClock{t: mustTime(t, "2026-03-01T10:00:00Z")}

	st := newTestStore(t, backend.router(t), p, clk)
	ctx := context.Background()
	require.NoError(t, st.FetchEvents(ctx, false))
	st.FetchCategories(ctx)
	require.Equal(t, 1, backend.hits())

	// Restart: new store over the same persistence, two minutes later.
	clk2 := &fakeClock{t: clk.t.Add(2 * time.Minute)}
	st2 := newTestStore(t, backend.router(t), p, clk2)
	st2.Hydrate(ctx)

	assert.Len(t, st2.Events(), 3)
	assert.Equal(t, []string{"Music", "Food", "Technology"}, st2.Categories())

	// Still fresh, so no fetch happens.
	require.NoError(t, st2.FetchEvents(ctx, false))
	assert.Equal(t, 1, backend.hits())
}

func TestHydrate_StaleSnapshotRefetches(t *testing.T) {
	p, err := persist.NewFileStore(t.TempDir())
	require.NoError(t, err)

	backend := &eventServer{events: sampleEvents(t)}
	clk := &fakeClock{t: mustTime(t, "2026-03-01T10:00:00Z")}

	st := newTestStore(t, backend.router(t), p, clk)
	ctx := context.Background()
	require.NoError(t, st.FetchEvents(ctx, false))
	require.Equal(t, 1, backend.hits())

	clk2 := &fakeClock{t: clk.t.Add(DefaultCacheDuration + time.Minute)}
	st2 := newTestStore(t, backend.router(t), p, clk2)
	st2.Hydrate(ctx)

	require.NoError(t, st2.FetchEvents(ctx, false))
	assert.Equal(t, 2, backend.hits())
}

func TestSubscribe_NotifiesAndUnsubscribes(t *testing.T) {
	backend := &eventServer{events: sampleEvents(t)}
	st := newTestStore(t, backend.router(t), nil, nil)

	calls := 0
	unsub := st.Subscribe(func() { calls++ })

	require.NoError(t, st.FetchEvents(context.Background(), false))
	assert.Greater(t, calls, 0)

	seen := calls
	unsub()
	st.SetSearchQuery("jazz")
	assert.Equal(t, seen, calls)
}
