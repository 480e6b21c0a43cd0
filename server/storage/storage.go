// Package storage defines the persistence contract of the CalDAV server.
// Implementations keep protocol details out: they deal in principals,
// calendars and events, never in XML or HTTP.
package storage

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors the server maps to protocol outcomes. Providers wrap
// these with %w so errors.Is still matches.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrConflict           = errors.New("resource conflict")
	ErrInvalidInput       = errors.New("invalid input")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Provider is the storage backend of the CalDAV server. All methods take a
// context for cancellation. The fullData flag on event reads tells the
// provider whether the caller needs serialized iCalendar text or only
// metadata; providers that do not precompute text may ignore it.
type Provider interface {
	GetPrincipal(ctx context.Context, principalID string) (*Principal, error)

	GetCalendar(ctx context.Context, principalID, calendarID string) (*Calendar, error)
	GetCalendarsForPrincipal(ctx context.Context, principalID string) ([]*Calendar, error)
	CreateCalendar(ctx context.Context, principalID string, calendar *Calendar) (*Calendar, error)
	// UpdateCalendar applies every field of updates in one atomic step.
	UpdateCalendar(ctx context.Context, principalID, calendarID string, updates *CalendarUpdate) (*Calendar, error)
	DeleteCalendar(ctx context.Context, principalID, calendarID string) error

	// GetEventsForCalendar returns all events including tombstones.
	GetEventsForCalendar(ctx context.Context, principalID, calendarID string, fullData bool) ([]*Event, error)
	// GetEventsByDate returns live events overlapping [start, end). Nil
	// bounds are open; recurring events match when any occurrence
	// (after exclusions and overrides) falls inside the window.
	GetEventsByDate(ctx context.Context, principalID, calendarID string, start, end *time.Time, fullData bool) ([]*Event, error)
	GetEvent(ctx context.Context, principalID, calendarID, eventID string, fullData bool) (*Event, error)
	CreateEvent(ctx context.Context, principalID, calendarID string, event *Event) (*Event, error)
	UpdateEvent(ctx context.Context, principalID, calendarID string, event *Event) (*Event, error)
	DeleteEvent(ctx context.Context, principalID, calendarID, eventID string) error

	GetETag(ctx context.Context, event *Event) (string, error)
}

// FreeBusyProvider is implemented by providers that can answer free-busy
// queries for an attendee address. Without it the server synthesizes empty
// free-busy responses.
type FreeBusyProvider interface {
	GetFreeBusy(ctx context.Context, attendee string) (string, error)
}

// SchedulingSender is implemented by providers that can deliver outbound
// iTIP messages. Without it outbox posts report every recipient as pending.
type SchedulingSender interface {
	SendSchedulingMessage(ctx context.Context, principalID string, msg OutboundMessage) error
}

// SchedulingInbox is implemented by providers that store inbound iTIP
// messages for a principal.
type SchedulingInbox interface {
	GetSchedulingMessages(ctx context.Context, principalID string) ([]*SchedulingMessage, error)
}
