package catalog

import (
	"sort"
	"strings"

	"github.com/tikitihub/tikiti-go/internal/domain"
)

// SetSearchQuery updates the substring search criterion only.
func (s *Store) SetSearchQuery(query string) {
	s.mu.Lock()
	s.searchQuery = query
	s.mu.Unlock()
	s.notify()
}

// SetSelectedCategory updates the category criterion only.
func (s *Store) SetSelectedCategory(category string) {
	s.mu.Lock()
	s.selectedCategory = category
	s.mu.Unlock()
	s.notify()
}

// SetSelectedLocation updates the location criterion only.
func (s *Store) SetSelectedLocation(location string) {
	s.mu.Lock()
	s.selectedLocation = location
	s.mu.Unlock()
	s.notify()
}

// SetSortBy updates the sort criterion only.
func (s *Store) SetSortBy(sortBy string) {
	s.mu.Lock()
	s.sortBy = sortBy
	s.mu.Unlock()
	s.notify()
}

// ClearFilters resets all four criteria to their defaults in one
// transition.
func (s *Store) ClearFilters() {
	s.mu.Lock()
	s.searchQuery = ""
	s.selectedCategory = domain.FilterAll
	s.selectedLocation = domain.FilterAll
	s.sortBy = domain.SortDateAsc
	s.mu.Unlock()
	s.notify()
}

func (s *Store) SearchQuery() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.searchQuery
}

func (s *Store) SelectedCategory() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedCategory
}

func (s *Store) SelectedLocation() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedLocation
}

func (s *Store) SortBy() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortBy
}

// GetFilteredEvents is a pure projection over the held events: substring
// search across name/location/description (case-insensitive), exact category
// match unless "All", substring location match unless "All", then a stable
// sort per the active criterion. Ties keep server order.
func (s *Store) GetFilteredEvents() []domain.Event {
	s.mu.RLock()
	events := make([]domain.Event, len(s.events))
	copy(events, s.events)
	query := strings.TrimSpace(s.searchQuery)
	category := s.selectedCategory
	location := s.selectedLocation
	sortBy := s.sortBy
	s.mu.RUnlock()

	filtered := events[:0]
	lowered := strings.ToLower(query)
	for _, e := range events {
		if query != "" && !matchesQuery(e, lowered) {
			continue
		}
		if category != domain.FilterAll && e.Category != category {
			continue
		}
		if location != domain.FilterAll && !strings.Contains(e.Location, location) {
			continue
		}
		filtered = append(filtered, e)
	}

	sort.SliceStable(filtered, less(filtered, sortBy))
	return filtered
}

func matchesQuery(e domain.Event, query string) bool {
	return strings.Contains(strings.ToLower(e.Name), query) ||
		strings.Contains(strings.ToLower(e.Location), query) ||
		strings.Contains(strings.ToLower(e.Description), query)
}

func less(events []domain.Event, sortBy string) func(i, j int) bool {
	switch sortBy {
	case domain.SortDateAsc:
		return func(i, j int) bool { return events[i].EventDate.Before(events[j].EventDate) }
	case domain.SortDateDesc:
		return func(i, j int) bool { return events[j].EventDate.Before(events[i].EventDate) }
	case domain.SortPriceAsc:
		return func(i, j int) bool { return events[i].PriceKES < events[j].PriceKES }
	case domain.SortPriceDesc:
		return func(i, j int) bool { return events[j].PriceKES < events[i].PriceKES }
	case domain.SortAvailability:
		return func(i, j int) bool { return events[j].AvailableTickets < events[i].AvailableTickets }
	default:
		return func(i, j int) bool { return false }
	}
}
