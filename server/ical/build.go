// Package ical converts between stored events and RFC 5545 text. Building
// and parsing go through github.com/emersion/go-ical; recurrence rules go
// through github.com/teambition/rrule-go. Output lines are folded at 74
// bytes on rune boundaries.
package ical

import (
	"fmt"
	"strings"
	"time"

	goical "github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"github.com/calde-dev/calde/server/storage"
)

// DefaultProdID identifies this server in generated calendars.
const DefaultProdID = "-//calde//CalDAV Server//EN"

// BuildICS serializes events into a single VCALENDAR. Calendar metadata
// contributes the X-WR-CALNAME header and, when the calendar carries a
// VTIMEZONE document, that component is included verbatim.
func BuildICS(events []*storage.Event, cal *storage.Calendar, prodID string) (string, error) {
	if prodID == "" {
		prodID = DefaultProdID
	}
	out := goical.NewCalendar()
	out.Props.SetText(goical.PropVersion, "2.0")
	out.Props.SetText(goical.PropProductID, prodID)
	if cal != nil && cal.DisplayName != "" {
		out.Props.SetText("X-WR-CALNAME", cal.DisplayName)
	}
	if cal != nil && cal.Timezone != "" {
		if tz := timezoneComponent(cal.Timezone); tz != nil {
			out.Children = append(out.Children, tz)
		}
	}
	for _, ev := range events {
		comps, err := eventComponents(ev)
		if err != nil {
			return "", fmt.Errorf("build event %s: %w", ev.EventID, err)
		}
		out.Children = append(out.Children, comps...)
	}
	var buf strings.Builder
	if err := goical.NewEncoder(&buf).Encode(out); err != nil {
		return "", fmt.Errorf("encode calendar: %w", err)
	}
	return Refold(buf.String()), nil
}

func eventComponents(ev *storage.Event) ([]*goical.Component, error) {
	master := goical.NewEvent()
	master.Props.SetText(goical.PropUID, ev.EventID)
	master.Props.SetText(goical.PropSequence, "0")
	setEventTimes(master.Props, ev.StartDate, ev.EndDate, ev.Duration)
	setStamps(master.Props, ev.CreatedAt, ev.LastModified)
	setTextProps(master.Props, ev.Summary, ev.Location, ev.Description, ev.HTMLDescription, ev.URL)
	if len(ev.Categories) > 0 {
		catProp := goical.NewProp(goical.PropCategories)
		catProp.Value = strings.Join(ev.Categories, ",")
		master.Props.Add(catProp)
	}

	comps := []*goical.Component{master.Component}
	if ev.Recurring == nil {
		return comps, nil
	}

	rule, err := ruleString(ev)
	if err != nil {
		return nil, err
	}
	// RRULE and EXDATE carry structured values; text escaping would
	// mangle their separators.
	rruleProp := goical.NewProp(goical.PropRecurrenceRule)
	rruleProp.Value = rule
	master.Props.Add(rruleProp)
	if len(ev.Recurring.ExDates) > 0 {
		vals := make([]string, len(ev.Recurring.ExDates))
		for i, ex := range ev.Recurring.ExDates {
			vals[i] = ex.UTC().Format(dateTimeFormat)
		}
		exProp := goical.NewProp(goical.PropExceptionDates)
		exProp.Value = strings.Join(vals, ",")
		master.Props.Add(exProp)
	}

	for i := range ev.Recurring.Recurrences {
		rec := &ev.Recurring.Recurrences[i]
		over := goical.NewEvent()
		over.Props.SetText(goical.PropUID, ev.EventID)
		// Overrides supersede the master instance they replace.
		over.Props.SetText(goical.PropSequence, "1")
		over.Props.SetDateTime(goical.PropRecurrenceID, rec.RecurrenceID.UTC())
		setEventTimes(over.Props, rec.StartDate, rec.EndDate, rec.Duration)
		setStamps(over.Props, pick(rec.CreatedAt, ev.CreatedAt), pick(rec.LastModified, ev.LastModified))
		setTextProps(over.Props,
			pickText(rec.Summary, ev.Summary),
			pickText(rec.Location, ev.Location),
			pickText(rec.Description, ev.Description),
			pickText(rec.HTMLDescription, ev.HTMLDescription),
			pickText(rec.URL, ev.URL))
		comps = append(comps, over.Component)
	}
	return comps, nil
}

func ruleString(ev *storage.Event) (string, error) {
	freq, err := freqFromString(ev.Recurring.Freq)
	if err != nil {
		return "", err
	}
	opt := rrule.ROption{Freq: freq}
	if !ev.Recurring.Until.IsZero() {
		opt.Until = ev.Recurring.Until.UTC()
	}
	return opt.String(), nil
}

func setEventTimes(p goical.Props, start, end time.Time, dur time.Duration) {
	p.SetDateTime(goical.PropDateTimeStart, start.UTC())
	switch {
	case !end.IsZero():
		p.SetDateTime(goical.PropDateTimeEnd, end.UTC())
	case dur > 0:
		p.SetText(goical.PropDuration, formatDuration(dur))
	}
}

func setStamps(p goical.Props, created, modified time.Time) {
	now := time.Now().UTC()
	if created.IsZero() {
		created = now
	}
	if modified.IsZero() {
		modified = created
	}
	p.SetDateTime(goical.PropDateTimeStamp, modified.UTC())
	p.SetDateTime(goical.PropCreated, created.UTC())
	p.SetDateTime(goical.PropLastModified, modified.UTC())
}

func setTextProps(p goical.Props, summary, location, description, htmlDescription, url string) {
	if summary != "" {
		p.SetText(goical.PropSummary, summary)
	}
	if location != "" {
		p.SetText(goical.PropLocation, location)
	}
	if description != "" {
		p.SetText(goical.PropDescription, description)
	}
	if htmlDescription != "" {
		alt := goical.NewProp("X-ALT-DESC")
		alt.Params.Set("FMTTYPE", "text/html")
		alt.SetText(htmlDescription)
		p.Add(alt)
	}
	if url != "" {
		p.SetText(goical.PropURL, url)
	}
}

// timezoneComponent extracts the VTIMEZONE component from a stored
// calendar-timezone document. Returns nil when the text does not parse.
func timezoneComponent(doc string) *goical.Component {
	cal, err := goical.NewDecoder(strings.NewReader(Refold(doc))).Decode()
	if err != nil {
		return nil
	}
	for _, child := range cal.Children {
		if child.Name == goical.CompTimezone {
			return child
		}
	}
	return nil
}

func formatDuration(d time.Duration) string {
	secs := int64(d.Seconds())
	neg := ""
	if secs < 0 {
		neg = "-"
		secs = -secs
	}
	days := secs / 86400
	secs %= 86400
	h := secs / 3600
	m := (secs % 3600) / 60
	sec := secs % 60
	var b strings.Builder
	b.WriteString(neg)
	b.WriteString("P")
	if days > 0 {
		fmt.Fprintf(&b, "%dD", days)
	}
	if h > 0 || m > 0 || sec > 0 || days == 0 {
		b.WriteString("T")
		if h > 0 {
			fmt.Fprintf(&b, "%dH", h)
		}
		if m > 0 {
			fmt.Fprintf(&b, "%dM", m)
		}
		if sec > 0 || (h == 0 && m == 0) {
			fmt.Fprintf(&b, "%dS", sec)
		}
	}
	return b.String()
}

func pick(v, fallback time.Time) time.Time {
	if !v.IsZero() {
		return v
	}
	return fallback
}

func pickText(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
