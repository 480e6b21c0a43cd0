package ical

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	goical "github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"github.com/calde-dev/calde/server/storage"
)

const dateTimeFormat = "20060102T150405Z"

var freqFromName = map[string]rrule.Frequency{
	"SECONDLY": rrule.SECONDLY,
	"MINUTELY": rrule.MINUTELY,
	"HOURLY":   rrule.HOURLY,
	"DAILY":    rrule.DAILY,
	"WEEKLY":   rrule.WEEKLY,
	"MONTHLY":  rrule.MONTHLY,
	"YEARLY":   rrule.YEARLY,
}

var freqToName = map[rrule.Frequency]string{
	rrule.SECONDLY: "SECONDLY",
	rrule.MINUTELY: "MINUTELY",
	rrule.HOURLY:   "HOURLY",
	rrule.DAILY:    "DAILY",
	rrule.WEEKLY:   "WEEKLY",
	rrule.MONTHLY:  "MONTHLY",
	rrule.YEARLY:   "YEARLY",
}

func freqFromString(name string) (rrule.Frequency, error) {
	f, ok := freqFromName[strings.ToUpper(name)]
	if !ok {
		return 0, fmt.Errorf("recurrence frequency %q: %w", name, storage.ErrInvalidInput)
	}
	return f, nil
}

// ParseEvent decodes a single calendar object resource. The VEVENT without
// a RECURRENCE-ID is the master; components carrying one become overrides.
func ParseEvent(icsText string) (*storage.Event, error) {
	cal, err := goical.NewDecoder(strings.NewReader(Refold(icsText))).Decode()
	if err != nil {
		return nil, fmt.Errorf("decode calendar object: %w", storage.ErrInvalidInput)
	}
	var master *goical.Component
	var overrides []*goical.Component
	for _, child := range cal.Children {
		if child.Name != goical.CompEvent {
			continue
		}
		if child.Props.Get(goical.PropRecurrenceID) != nil {
			overrides = append(overrides, child)
		} else if master == nil {
			master = child
		}
	}
	if master == nil {
		return nil, fmt.Errorf("no VEVENT component: %w", storage.ErrInvalidInput)
	}

	ev := &storage.Event{}
	ev.EventID = propText(master, goical.PropUID)
	if ev.EventID == "" {
		return nil, fmt.Errorf("VEVENT without UID: %w", storage.ErrInvalidInput)
	}
	ev.Summary = propText(master, goical.PropSummary)
	ev.Location = propText(master, goical.PropLocation)
	ev.Description = propText(master, goical.PropDescription)
	ev.HTMLDescription = propText(master, "X-ALT-DESC")
	ev.URL = propText(master, goical.PropURL)
	if cats := propText(master, goical.PropCategories); cats != "" {
		ev.Categories = strings.Split(cats, ",")
	}

	ev.StartDate, ev.Timezone, err = propTime(master, goical.PropDateTimeStart)
	if err != nil {
		return nil, err
	}
	ev.EndDate, _, err = propTime(master, goical.PropDateTimeEnd)
	if err != nil {
		return nil, err
	}
	if ev.EndDate.IsZero() {
		if durText := propText(master, goical.PropDuration); durText != "" {
			ev.Duration, err = parseDuration(durText)
			if err != nil {
				return nil, err
			}
		}
	}
	ev.CreatedAt, _, _ = propTime(master, goical.PropCreated)
	ev.LastModified, _, _ = propTime(master, goical.PropLastModified)

	rec, err := parseRecurring(master)
	if err != nil {
		return nil, err
	}
	if len(overrides) > 0 && rec == nil {
		rec = &storage.Recurring{}
	}
	for _, comp := range overrides {
		o, err := parseOverride(comp)
		if err != nil {
			return nil, err
		}
		rec.Recurrences = append(rec.Recurrences, *o)
	}
	ev.Recurring = rec
	return ev, nil
}

func parseRecurring(comp *goical.Component) (*storage.Recurring, error) {
	ruleText := propText(comp, goical.PropRecurrenceRule)
	if ruleText == "" {
		return nil, nil
	}
	opt, err := rrule.StrToROption(ruleText)
	if err != nil {
		return nil, fmt.Errorf("RRULE %q: %w", ruleText, storage.ErrInvalidInput)
	}
	rec := &storage.Recurring{Freq: freqToName[opt.Freq], Until: opt.Until}
	for _, prop := range comp.Props.Values(goical.PropExceptionDates) {
		for _, raw := range strings.Split(prop.Value, ",") {
			t, err := parseDateTimeText(strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("EXDATE %q: %w", raw, storage.ErrInvalidInput)
			}
			rec.ExDates = append(rec.ExDates, t)
		}
	}
	return rec, nil
}

func parseOverride(comp *goical.Component) (*storage.Recurrence, error) {
	recurrenceID, _, err := propTime(comp, goical.PropRecurrenceID)
	if err != nil {
		return nil, err
	}
	o := &storage.Recurrence{
		RecurrenceID:    recurrenceID,
		Summary:         propText(comp, goical.PropSummary),
		Location:        propText(comp, goical.PropLocation),
		Description:     propText(comp, goical.PropDescription),
		HTMLDescription: propText(comp, "X-ALT-DESC"),
		URL:             propText(comp, goical.PropURL),
	}
	if o.StartDate, o.Timezone, err = propTime(comp, goical.PropDateTimeStart); err != nil {
		return nil, err
	}
	if o.EndDate, _, err = propTime(comp, goical.PropDateTimeEnd); err != nil {
		return nil, err
	}
	if o.EndDate.IsZero() {
		if durText := propText(comp, goical.PropDuration); durText != "" {
			if o.Duration, err = parseDuration(durText); err != nil {
				return nil, err
			}
		}
	}
	o.CreatedAt, _, _ = propTime(comp, goical.PropCreated)
	o.LastModified, _, _ = propTime(comp, goical.PropLastModified)
	return o, nil
}

func propText(comp *goical.Component, name string) string {
	prop := comp.Props.Get(name)
	if prop == nil {
		return ""
	}
	text, err := prop.Text()
	if err != nil {
		return prop.Value
	}
	return text
}

// propTime resolves a date-time property to UTC and reports the TZID
// parameter the client attached, if any.
func propTime(comp *goical.Component, name string) (time.Time, string, error) {
	prop := comp.Props.Get(name)
	if prop == nil {
		return time.Time{}, "", nil
	}
	tzid := prop.Params.Get("TZID")
	t, err := prop.DateTime(time.UTC)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%s %q: %w", name, prop.Value, storage.ErrInvalidInput)
	}
	return t.UTC(), tzid, nil
}

func parseDateTimeText(raw string) (time.Time, error) {
	for _, layout := range []string{dateTimeFormat, "20060102T150405", "20060102"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date-time %q", raw)
}

// parseDuration handles the RFC 5545 duration grammar: [+-]P[nW][nD][T[nH][nM][nS]].
func parseDuration(raw string) (time.Duration, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	sign := time.Duration(1)
	if strings.HasPrefix(s, "-") {
		sign = -1
		s = s[1:]
	} else {
		s = strings.TrimPrefix(s, "+")
	}
	if !strings.HasPrefix(s, "P") {
		return 0, fmt.Errorf("duration %q: %w", raw, storage.ErrInvalidInput)
	}
	s = s[1:]
	var total time.Duration
	inTime := false
	num := ""
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			num += string(r)
		case r == 'T':
			inTime = true
		default:
			n, err := strconv.Atoi(num)
			if err != nil {
				return 0, fmt.Errorf("duration %q: %w", raw, storage.ErrInvalidInput)
			}
			num = ""
			switch {
			case r == 'W':
				total += time.Duration(n) * 7 * 24 * time.Hour
			case r == 'D':
				total += time.Duration(n) * 24 * time.Hour
			case r == 'H' && inTime:
				total += time.Duration(n) * time.Hour
			case r == 'M' && inTime:
				total += time.Duration(n) * time.Minute
			case r == 'S' && inTime:
				total += time.Duration(n) * time.Second
			default:
				return 0, fmt.Errorf("duration %q: %w", raw, storage.ErrInvalidInput)
			}
		}
	}
	if num != "" {
		return 0, fmt.Errorf("duration %q: %w", raw, storage.ErrInvalidInput)
	}
	return sign * total, nil
}

// ValidateTimezone checks a calendar-timezone document: it must parse as a
// VCALENDAR holding exactly one VTIMEZONE component carrying a TZID.
func ValidateTimezone(doc string) error {
	cal, err := goical.NewDecoder(strings.NewReader(Refold(doc))).Decode()
	if err != nil {
		return fmt.Errorf("timezone document: %w", storage.ErrInvalidInput)
	}
	var tz *goical.Component
	for _, child := range cal.Children {
		if child.Name != goical.CompTimezone {
			continue
		}
		if tz != nil {
			return fmt.Errorf("multiple VTIMEZONE components: %w", storage.ErrInvalidInput)
		}
		tz = child
	}
	if tz == nil {
		return fmt.Errorf("no VTIMEZONE component: %w", storage.ErrInvalidInput)
	}
	if tz.Props.Get(goical.PropTimezoneID) == nil {
		return fmt.Errorf("VTIMEZONE without TZID: %w", storage.ErrInvalidInput)
	}
	return nil
}
