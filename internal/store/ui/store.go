// Package ui holds transient presentation state: the toast queue, the named
// modal registry and the global loading flag.
package ui

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type ToastType string

const (
	ToastSuccess ToastType = "success"
	ToastError   ToastType = "error"
	ToastWarning ToastType = "warning"
	ToastInfo    ToastType = "info"
)

// DefaultToastDuration applies when callers pass no explicit duration.
const DefaultToastDuration = 5 * time.Second

type Toast struct {
	ID        int           `json:"id"`
	Message   string        `json:"message"`
	Type      ToastType     `json:"type"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

type modalState struct {
	open bool
	data map[string]any
}

// Store is the UI notification store. Toast timers fire from their own
// goroutines, so all state is mutex-guarded; removal is idempotent so a
// timer firing after a manual removal is harmless.
type Store struct {
	log zerolog.Logger

	mu            sync.Mutex
	toasts        []Toast
	nextToastID   int
	timers        map[int]*time.Timer
	modals        map[string]modalState
	globalLoading bool
	closed        bool

	subMu   sync.Mutex
	subs    map[int]func()
	nextSub int
}

func New(log zerolog.Logger) *Store {
	return &Store{
		log:    log,
		timers: make(map[int]*time.Timer),
		modals: make(map[string]modalState),
		subs:   make(map[int]func()),
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

// ShowToast queues a toast and returns its id so callers can cancel it
// early. A duration <= 0 means the toast persists until removed explicitly.
func (s *Store) ShowToast(message string, typ ToastType, duration time.Duration) int {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0
	}
	s.nextToastID++
	id := s.nextToastID
	s.toasts = append(s.toasts, Toast{
		ID:        id,
		Message:   message,
		Type:      typ,
		Duration:  duration,
		Timestamp: time.Now(),
	})
	if duration > 0 {
		s.timers[id] = time.AfterFunc(duration, func() {
			s.RemoveToast(id)
		})
	}
	s.mu.Unlock()
	s.log.Debug().Int("toast_id", id).Str("type", string(typ)).Msg("toast_shown")
	s.notify()
	return id
}

func (s *Store) ShowSuccess(message string, duration time.Duration) int {
	return s.ShowToast(message, ToastSuccess, duration)
}

func (s *Store) ShowError(message string, duration time.Duration) int {
	return s.ShowToast(message, ToastError, duration)
}

func (s *Store) ShowWarning(message string, duration time.Duration) int {
	return s.ShowToast(message, ToastWarning, duration)
}

func (s *Store) ShowInfo(message string, duration time.Duration) int {
	return s.ShowToast(message, ToastInfo, duration)
}

// RemoveToast removes the toast with the given id and cancels its timer.
// No-op for unknown ids.
func (s *Store) RemoveToast(id int) {
	s.mu.Lock()
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
	removed := false
	for i, t := range s.toasts {
		if t.ID == id {
			s.toasts = append(s.toasts[:i], s.toasts[i+1:]...)
			removed = true
			break
		}
	}
	s.mu.Unlock()
	if removed {
		s.notify()
	}
}

// ClearToasts empties the queue and cancels all pending timers.
func (s *Store) ClearToasts() {
	s.mu.Lock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	s.toasts = nil
	s.mu.Unlock()
	s.notify()
}

// Toasts returns a copy of the queue in display order.
func (s *Store) Toasts() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Toast, len(s.toasts))
	copy(out, s.toasts)
	return out
}

// OpenModal marks the named modal open and replaces its payload.
func (s *Store) OpenModal(name string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	s.mu.Lock()
	s.modals[name] = modalState{open: true, data: data}
	s.mu.Unlock()
	s.notify()
}

// CloseModal marks the named modal closed. The last payload is retained; it
// is only replaced by the next OpenModal.
func (s *Store) CloseModal(name string) {
	s.mu.Lock()
	ms := s.modals[name]
	ms.open = false
	s.modals[name] = ms
	s.mu.Unlock()
	s.notify()
}

// IsModalOpen reports the named modal's visibility, false for unknown
// names.
func (s *Store) IsModalOpen(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modals[name].open
}

// ModalData returns the named modal's last payload, an empty map for
// unknown names.
func (s *Store) ModalData(name string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ms, ok := s.modals[name]; ok && ms.data != nil {
		return ms.data
	}
	return map[string]any{}
}

// SetGlobalLoading flips the process-wide loading flag.
func (s *Store) SetGlobalLoading(loading bool) {
	s.mu.Lock()
	s.globalLoading = loading
	s.mu.Unlock()
	s.notify()
}

func (s *Store) GlobalLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.globalLoading
}

// Close tears the store down: all timers are cancelled and further toasts
// are rejected, so no scheduled callback mutates a torn-down store.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	s.toasts = nil
	s.mu.Unlock()
	s.notify()
}
