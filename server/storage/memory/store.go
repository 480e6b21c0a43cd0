// Package memory provides an in-memory storage.Provider. It is meant for
// tests and small single-node deployments; everything is lost on restart.
package memory

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"github.com/calde-dev/calde/server/storage"
)

// Store keeps all data in maps guarded by a single RWMutex.
type Store struct {
	mu         sync.RWMutex
	principals map[string]*storage.Principal
	calendars  map[string]*storage.Calendar            // key: principalID "/" calendarID
	events     map[string]map[string]*storage.Event    // calendar key -> eventID -> event
	inboxes    map[string][]*storage.SchedulingMessage // principalID -> messages
}

var (
	_ storage.Provider        = (*Store)(nil)
	_ storage.SchedulingInbox = (*Store)(nil)
)

func New() *Store {
	return &Store{
		principals: make(map[string]*storage.Principal),
		calendars:  make(map[string]*storage.Calendar),
		events:     make(map[string]map[string]*storage.Event),
		inboxes:    make(map[string][]*storage.SchedulingMessage),
	}
}

func calKey(principalID, calendarID string) string {
	return principalID + "/" + calendarID
}

// AddPrincipal registers a principal. Seeding helper, not part of the
// Provider contract.
func (s *Store) AddPrincipal(p *storage.Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principals[p.PrincipalID] = p
}

// AddSchedulingMessage appends an iTIP message to a principal's inbox.
func (s *Store) AddSchedulingMessage(principalID string, msg *storage.SchedulingMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inboxes[principalID] = append(s.inboxes[principalID], msg)
}

func (s *Store) GetPrincipal(_ context.Context, principalID string) (*storage.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.principals[principalID]
	if !ok {
		return nil, fmt.Errorf("principal %q: %w", principalID, storage.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *Store) GetCalendar(_ context.Context, principalID, calendarID string) (*storage.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cal, ok := s.calendars[calKey(principalID, calendarID)]
	if !ok {
		return nil, fmt.Errorf("calendar %q: %w", calendarID, storage.ErrNotFound)
	}
	cp := *cal
	return &cp, nil
}

func (s *Store) GetCalendarsForPrincipal(_ context.Context, principalID string) ([]*storage.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*storage.Calendar
	for key, cal := range s.calendars {
		if strings.HasPrefix(key, principalID+"/") {
			cp := *cal
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) CreateCalendar(_ context.Context, principalID string, calendar *storage.Calendar) (*storage.Calendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if calendar.CalendarID == "" {
		calendar.CalendarID = uuid.NewString()
	}
	key := calKey(principalID, calendar.CalendarID)
	if _, exists := s.calendars[key]; exists {
		return nil, fmt.Errorf("calendar %q: %w", calendar.CalendarID, storage.ErrConflict)
	}
	cp := *calendar
	cp.PrincipalID = principalID
	cp.SyncToken = storage.NextSyncToken("")
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.calendars[key] = &cp
	s.events[key] = make(map[string]*storage.Event)
	out := cp
	return &out, nil
}

func (s *Store) UpdateCalendar(_ context.Context, principalID, calendarID string, updates *storage.CalendarUpdate) (*storage.Calendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cal, ok := s.calendars[calKey(principalID, calendarID)]
	if !ok {
		return nil, fmt.Errorf("calendar %q: %w", calendarID, storage.ErrNotFound)
	}
	if updates.DisplayName != nil {
		cal.DisplayName = *updates.DisplayName
	}
	if updates.DisplayNameLang != nil {
		cal.DisplayNameLang = *updates.DisplayNameLang
	}
	if updates.Description != nil {
		cal.Description = *updates.Description
	}
	if updates.DescriptionLang != nil {
		cal.DescriptionLang = *updates.DescriptionLang
	}
	if updates.Timezone != nil {
		cal.Timezone = *updates.Timezone
	}
	if updates.Color != nil {
		cal.Color = *updates.Color
	}
	if updates.Order != nil {
		cal.Order = *updates.Order
	}
	cal.SyncToken = storage.NextSyncToken(cal.SyncToken)
	cp := *cal
	return &cp, nil
}

func (s *Store) DeleteCalendar(_ context.Context, principalID, calendarID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := calKey(principalID, calendarID)
	if _, ok := s.calendars[key]; !ok {
		return fmt.Errorf("calendar %q: %w", calendarID, storage.ErrNotFound)
	}
	delete(s.calendars, key)
	delete(s.events, key)
	return nil
}

func (s *Store) GetEventsForCalendar(_ context.Context, principalID, calendarID string, _ bool) ([]*storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	evs, ok := s.events[calKey(principalID, calendarID)]
	if !ok {
		return nil, fmt.Errorf("calendar %q: %w", calendarID, storage.ErrNotFound)
	}
	var out []*storage.Event
	for _, ev := range evs {
		cp := *ev
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) GetEventsByDate(_ context.Context, principalID, calendarID string, start, end *time.Time, _ bool) ([]*storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	evs, ok := s.events[calKey(principalID, calendarID)]
	if !ok {
		return nil, fmt.Errorf("calendar %q: %w", calendarID, storage.ErrNotFound)
	}
	var out []*storage.Event
	for _, ev := range evs {
		if ev.Deleted() {
			continue
		}
		if overlaps(ev, start, end) {
			cp := *ev
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) GetEvent(_ context.Context, principalID, calendarID, eventID string, _ bool) (*storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	evs, ok := s.events[calKey(principalID, calendarID)]
	if !ok {
		return nil, fmt.Errorf("calendar %q: %w", calendarID, storage.ErrNotFound)
	}
	ev, ok := evs[eventID]
	if !ok || ev.Deleted() {
		return nil, fmt.Errorf("event %q: %w", eventID, storage.ErrNotFound)
	}
	cp := *ev
	return &cp, nil
}

func (s *Store) CreateEvent(_ context.Context, principalID, calendarID string, event *storage.Event) (*storage.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := calKey(principalID, calendarID)
	cal, ok := s.calendars[key]
	if !ok {
		return nil, fmt.Errorf("calendar %q: %w", calendarID, storage.ErrNotFound)
	}
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	cp := *event
	cp.CalendarID = calendarID
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.LastModified = now
	cp.DeletedAt = time.Time{}
	s.events[key][cp.EventID] = &cp
	cal.SyncToken = storage.NextSyncToken(cal.SyncToken)
	out := cp
	return &out, nil
}

func (s *Store) UpdateEvent(_ context.Context, principalID, calendarID string, event *storage.Event) (*storage.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := calKey(principalID, calendarID)
	cal, ok := s.calendars[key]
	if !ok {
		return nil, fmt.Errorf("calendar %q: %w", calendarID, storage.ErrNotFound)
	}
	old, ok := s.events[key][event.EventID]
	if !ok || old.Deleted() {
		return nil, fmt.Errorf("event %q: %w", event.EventID, storage.ErrNotFound)
	}
	cp := *event
	cp.CalendarID = calendarID
	cp.CreatedAt = old.CreatedAt
	cp.LastModified = time.Now().UTC()
	s.events[key][cp.EventID] = &cp
	cal.SyncToken = storage.NextSyncToken(cal.SyncToken)
	out := cp
	return &out, nil
}

func (s *Store) DeleteEvent(_ context.Context, principalID, calendarID, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := calKey(principalID, calendarID)
	cal, ok := s.calendars[key]
	if !ok {
		return fmt.Errorf("calendar %q: %w", calendarID, storage.ErrNotFound)
	}
	ev, ok := s.events[key][eventID]
	if !ok || ev.Deleted() {
		return fmt.Errorf("event %q: %w", eventID, storage.ErrNotFound)
	}
	// Tombstone rather than remove, so sync-collection can report it.
	ev.DeletedAt = time.Now().UTC()
	ev.LastModified = ev.DeletedAt
	cal.SyncToken = storage.NextSyncToken(cal.SyncToken)
	return nil
}

func (s *Store) GetETag(_ context.Context, event *storage.Event) (string, error) {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s-%d", event.EventID, event.LastModified.UnixNano())
	return fmt.Sprintf("%x", h.Sum64()), nil
}

func (s *Store) GetSchedulingMessages(_ context.Context, principalID string) ([]*storage.SchedulingMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.inboxes[principalID]
	out := make([]*storage.SchedulingMessage, 0, len(msgs))
	for _, m := range msgs {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

// overlaps reports whether any occurrence of ev intersects the half-open
// window [start, end). Nil bounds are open. Recurring events expand the
// rule, drop excluded dates and include override start times.
func overlaps(ev *storage.Event, start, end *time.Time) bool {
	if ev.Recurring == nil {
		return spanOverlaps(ev.StartDate, eventEnd(ev), start, end)
	}
	dur := ev.EndDate.Sub(ev.StartDate)
	if dur <= 0 {
		dur = ev.Duration
	}
	excluded := make(map[int64]bool, len(ev.Recurring.ExDates))
	for _, ex := range ev.Recurring.ExDates {
		excluded[ex.UTC().Unix()] = true
	}
	overridden := make(map[int64]bool, len(ev.Recurring.Recurrences))
	for _, rec := range ev.Recurring.Recurrences {
		overridden[rec.RecurrenceID.UTC().Unix()] = true
		if !excluded[rec.RecurrenceID.UTC().Unix()] &&
			spanOverlaps(rec.StartDate, recurrenceEnd(&rec), start, end) {
			return true
		}
	}
	for _, occ := range expandRule(ev) {
		key := occ.UTC().Unix()
		if excluded[key] || overridden[key] {
			continue
		}
		if spanOverlaps(occ, occ.Add(dur), start, end) {
			return true
		}
	}
	return false
}

func expandRule(ev *storage.Event) []time.Time {
	opt := rrule.ROption{
		Freq:    freqFromString(ev.Recurring.Freq),
		Dtstart: ev.StartDate.UTC(),
	}
	if !ev.Recurring.Until.IsZero() {
		opt.Until = ev.Recurring.Until.UTC()
	} else {
		// Unbounded rules are expanded over a fixed horizon.
		opt.Until = ev.StartDate.UTC().AddDate(5, 0, 0)
	}
	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return []time.Time{ev.StartDate}
	}
	return rule.All()
}

func freqFromString(freq string) rrule.Frequency {
	switch strings.ToUpper(freq) {
	case "SECONDLY":
		return rrule.SECONDLY
	case "MINUTELY":
		return rrule.MINUTELY
	case "HOURLY":
		return rrule.HOURLY
	case "DAILY":
		return rrule.DAILY
	case "WEEKLY":
		return rrule.WEEKLY
	case "MONTHLY":
		return rrule.MONTHLY
	default:
		return rrule.YEARLY
	}
}

func eventEnd(ev *storage.Event) time.Time {
	if !ev.EndDate.IsZero() {
		return ev.EndDate
	}
	return ev.StartDate.Add(ev.Duration)
}

func recurrenceEnd(rec *storage.Recurrence) time.Time {
	if !rec.EndDate.IsZero() {
		return rec.EndDate
	}
	return rec.StartDate.Add(rec.Duration)
}

func spanOverlaps(evStart, evEnd time.Time, start, end *time.Time) bool {
	if evEnd.Before(evStart) {
		evEnd = evStart
	}
	if start != nil && !evEnd.After(*start) && !evStart.Equal(*start) {
		return false
	}
	if end != nil && !evStart.Before(*end) {
		return false
	}
	return true
}
