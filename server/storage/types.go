package storage

import "time"

// Principal is an authenticated calendar user.
type Principal struct {
	PrincipalID string
	// DisplayName is what clients render for the principal. It also serves
	// as the scheduling address when it is itself an email address.
	DisplayName string
	Email       string
}

// Calendar is one event collection owned by a principal.
type Calendar struct {
	CalendarID  string
	PrincipalID string

	DisplayName     string
	DisplayNameLang string
	Description     string
	DescriptionLang string
	// Timezone holds a VTIMEZONE document when the owner set one.
	Timezone string
	Color    string
	Order    int

	ReadOnly bool
	// SyncToken changes on every mutation of the collection or its members.
	SyncToken string

	CreatedAt time.Time
}

// Recurrence is one overridden instance of a recurring event, keyed by the
// start time of the occurrence it replaces.
type Recurrence struct {
	RecurrenceID time.Time

	Summary         string
	Location        string
	Description     string
	HTMLDescription string
	URL             string

	StartDate time.Time
	EndDate   time.Time
	Duration  time.Duration
	Timezone  string

	CreatedAt    time.Time
	LastModified time.Time
}

// Recurring describes the repetition of an event: the rule itself, the
// occurrences excised from it and the occurrences replaced by overrides.
// ExDates and Recurrences are independent: an excluded occurrence vanishes
// even when an override exists for the same instant.
type Recurring struct {
	// Freq is an RFC 5545 frequency: SECONDLY through YEARLY.
	Freq string
	// Until bounds the rule; the zero time means unbounded.
	Until       time.Time
	ExDates     []time.Time
	Recurrences []Recurrence
}

// Event is a calendar object resource holding a single VEVENT, possibly
// recurring. A nonzero DeletedAt marks a tombstone kept for sync-collection
// reporting.
type Event struct {
	EventID    string
	CalendarID string

	Summary         string
	Location        string
	Description     string
	HTMLDescription string
	URL             string
	Categories      []string

	StartDate time.Time
	EndDate   time.Time
	// Duration is used to derive the end when EndDate is zero.
	Duration time.Duration
	Timezone string

	CreatedAt    time.Time
	LastModified time.Time

	// ScheduleTag changes only on semantically significant updates; it
	// falls back to the ETag when empty.
	ScheduleTag string
	// Href, when set, is the canonical URL of the resource and takes
	// precedence over the path derived from IDs.
	Href string

	DeletedAt time.Time

	Recurring *Recurring

	// ICalData carries the raw serialized form when the provider was asked
	// for full data.
	ICalData string
}

// Deleted reports whether the event is a tombstone.
func (e *Event) Deleted() bool { return !e.DeletedAt.IsZero() }

// CalendarUpdate is the atomically-applied property bag of a PROPPATCH or
// MKCALENDAR. Nil fields are untouched.
type CalendarUpdate struct {
	DisplayName     *string
	DisplayNameLang *string
	Description     *string
	DescriptionLang *string
	Timezone        *string
	Color           *string
	Order           *int
}

// SchedulingMessage is one iTIP message stored in a principal's inbox.
type SchedulingMessage struct {
	Href     string
	ETag     string
	ICalData string
}

// OutboundMessage is one iTIP message the engine asks the provider to
// deliver to an attendee.
type OutboundMessage struct {
	Method   string
	Attendee string
	ICalData string
}
