package props

import "github.com/beevik/etree"

// CalendarHomeSet is the CAL:calendar-home-set property.
type CalendarHomeSet struct {
	Href string
}

func (p CalendarHomeSet) Encode() *etree.Element {
	e := CalDAV("calendar-home-set").Element()
	e.AddChild(hrefElement(p.Href))
	return e
}

// CalendarDescription is the CAL:calendar-description property.
type CalendarDescription struct {
	Value string
	Lang  string
}

func (p CalendarDescription) Encode() *etree.Element {
	e := textElement(CalDAV("calendar-description"), p.Value)
	if p.Lang != "" {
		e.CreateAttr("xml:lang", p.Lang)
	}
	return e
}

// CalendarTimezone is the CAL:calendar-timezone property carrying a full
// VTIMEZONE document as text.
type CalendarTimezone struct {
	Value string
}

func (p CalendarTimezone) Encode() *etree.Element {
	return textElement(CalDAV("calendar-timezone"), p.Value)
}

// CalendarData is the CAL:calendar-data property carrying serialized
// iCalendar text.
type CalendarData struct {
	Value string
}

func (p CalendarData) Encode() *etree.Element {
	return textElement(CalDAV("calendar-data"), p.Value)
}

// CalendarUserAddressSet is the CAL:calendar-user-address-set property.
type CalendarUserAddressSet struct {
	Addresses []string
}

func (p CalendarUserAddressSet) Encode() *etree.Element {
	e := CalDAV("calendar-user-address-set").Element()
	for _, a := range p.Addresses {
		e.AddChild(hrefElement(a))
	}
	return e
}

// SupportedCalendarComponentSet is the
// CAL:supported-calendar-component-set property.
type SupportedCalendarComponentSet struct {
	Components []string
}

func (p SupportedCalendarComponentSet) Encode() *etree.Element {
	e := CalDAV("supported-calendar-component-set").Element()
	for _, c := range p.Components {
		comp := CalDAV("comp").Element()
		comp.CreateAttr("name", c)
		e.AddChild(comp)
	}
	return e
}

// ScheduleInboxURL is the CAL:schedule-inbox-URL property.
type ScheduleInboxURL struct {
	Href string
}

func (p ScheduleInboxURL) Encode() *etree.Element {
	e := CalDAV("schedule-inbox-URL").Element()
	e.AddChild(hrefElement(p.Href))
	return e
}

// ScheduleOutboxURL is the CAL:schedule-outbox-URL property.
type ScheduleOutboxURL struct {
	Href string
}

func (p ScheduleOutboxURL) Encode() *etree.Element {
	e := CalDAV("schedule-outbox-URL").Element()
	e.AddChild(hrefElement(p.Href))
	return e
}

// ScheduleCalendarTransp is the CAL:schedule-calendar-transp property.
// Transparent calendars are excluded from free-busy aggregation.
type ScheduleCalendarTransp struct {
	Transparent bool
}

func (p ScheduleCalendarTransp) Encode() *etree.Element {
	e := CalDAV("schedule-calendar-transp").Element()
	if p.Transparent {
		e.AddChild(CalDAV("transparent").Element())
	} else {
		e.AddChild(CalDAV("opaque").Element())
	}
	return e
}

// ScheduleTag is the CAL:schedule-tag property. The value is emitted quoted
// like an ETag.
type ScheduleTag struct {
	Value string
}

func (p ScheduleTag) Encode() *etree.Element {
	return textElement(CalDAV("schedule-tag"), "\""+p.Value+"\"")
}
