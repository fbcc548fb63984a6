// Package view holds UI-facing coordination state that is not derived
// from the event collection itself, such as which event is highlighted.
package view

import (
	"sync"

	"github.com/siasic/seismic-watch/internal/models"
)

// Selection tracks the single highlighted event. Selecting an event
// notifies recenter listeners with its coordinates; selecting it again
// clears the highlight. When a refresh replaces the collection, the
// selection survives only if the same event id is still present.
type Selection struct {
	mu        sync.Mutex
	event     *models.SeismicEvent
	onCenter  []func(models.Coordinates)
	onCleared []func()
}

func NewSelection() *Selection {
	return &Selection{}
}

// OnRecenter registers a listener for selection moves. Listeners run
// with the selection lock held and must not call back into Selection.
func (s *Selection) OnRecenter(fn func(models.Coordinates)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCenter = append(s.onCenter, fn)
}

// OnCleared registers a listener invoked whenever the highlight drops,
// either explicitly or because a refresh removed the event.
func (s *Selection) OnCleared(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCleared = append(s.onCleared, fn)
}

// Select highlights e and reports whether the event is now selected.
// Re-selecting the current event toggles the highlight off.
func (s *Selection) Select(e models.SeismicEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.event != nil && s.event.ID == e.ID {
		s.event = nil
		s.notifyClearedLocked()
		return false
	}

	copied := e
	s.event = &copied
	for _, fn := range s.onCenter {
		fn(copied.Coordinates())
	}
	return true
}

// Clear drops the highlight if one is set.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.event == nil {
		return
	}
	s.event = nil
	s.notifyClearedLocked()
}

// Current returns a copy of the selected event, or nil.
func (s *Selection) Current() *models.SeismicEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.event == nil {
		return nil
	}
	copied := *s.event
	return &copied
}

// Reconcile applies a replaced collection: if the selected id is still
// present the selection is refreshed from the new copy of the event,
// otherwise it is cleared. Recenter listeners are not re-notified for a
// surviving selection.
func (s *Selection) Reconcile(events []models.SeismicEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.event == nil {
		return
	}
	for i := range events {
		if events[i].ID == s.event.ID {
			copied := events[i]
			s.event = &copied
			return
		}
	}
	s.event = nil
	s.notifyClearedLocked()
}

func (s *Selection) notifyClearedLocked() {
	for _, fn := range s.onCleared {
		fn()
	}
}
