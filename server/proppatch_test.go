package server

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/calde-dev/calde/server/storage"
)

func proppatchBody(sets map[string]string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<D:propertyupdate xmlns:D="DAV:" xmlns:CAL="urn:ietf:params:xml:ns:caldav" xmlns:ICAL="http://apple.com/ns/ical/" xmlns:CS="http://calendarserver.org/ns/"><D:set><D:prop>`)
	for name, value := range sets {
		b.WriteString("<" + name + ">" + value + "</" + name + ">")
	}
	b.WriteString(`</D:prop></D:set></D:propertyupdate>`)
	return b.String()
}

func TestProppatchAppliesAtomically(t *testing.T) {
	h, provider := newTestHandler()
	expectPrincipal(provider)
	expectCalendar(provider, &storage.Calendar{CalendarID: "work"})

	provider.On("UpdateCalendar", mock.Anything, "alice", "work",
		mock.MatchedBy(func(u *storage.CalendarUpdate) bool {
			return u.DisplayName != nil && *u.DisplayName == "Renamed" &&
				u.Color != nil && *u.Color == "#FF0000"
		})).Return(&storage.Calendar{CalendarID: "work"}, nil).Once()

	body := proppatchBody(map[string]string{
		"D:displayname":       "Renamed",
		"ICAL:calendar-color": "#FF0000",
	})
	rec := doRequest(h, "PROPPATCH", "/calendars/alice/work/", body, nil)

	assert.Equal(t, http.StatusMultiStatus, rec.Code)
	out := rec.Body.String()
	assert.Equal(t, 2, strings.Count(out, "200 OK"))
	provider.AssertExpectations(t)
}

func TestProppatchProtectedRejectsAll(t *testing.T) {
	h, provider := newTestHandler()
	expectPrincipal(provider)
	expectCalendar(provider, &storage.Calendar{CalendarID: "work"})

	body := proppatchBody(map[string]string{
		"D:displayname": "Renamed",
		"D:getetag":     "forged",
	})
	rec := doRequest(h, "PROPPATCH", "/calendars/alice/work/", body, nil)

	assert.Equal(t, http.StatusMultiStatus, rec.Code)
	out := rec.Body.String()
	assert.Contains(t, out, "403 Forbidden")
	assert.Contains(t, out, "424 Failed Dependency")
	provider.AssertNotCalled(t, "UpdateCalendar", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProppatchInvalidTimezoneRejectsAll(t *testing.T) {
	h, provider := newTestHandler()
	expectPrincipal(provider)
	expectCalendar(provider, &storage.Calendar{CalendarID: "work"})

	body := proppatchBody(map[string]string{
		"CAL:calendar-timezone": "not a timezone",
		"D:displayname":         "Renamed",
	})
	rec := doRequest(h, "PROPPATCH", "/calendars/alice/work/", body, nil)

	assert.Equal(t, http.StatusMultiStatus, rec.Code)
	out := rec.Body.String()
	assert.Contains(t, out, "409 Conflict")
	assert.Contains(t, out, "424 Failed Dependency")
	assert.NotContains(t, out, "200 OK")
	provider.AssertNotCalled(t, "UpdateCalendar", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProppatchInvalidOrderRejectsAll(t *testing.T) {
	h, provider := newTestHandler()
	expectPrincipal(provider)
	expectCalendar(provider, &storage.Calendar{CalendarID: "work"})

	body := proppatchBody(map[string]string{"ICAL:calendar-order": "first"})
	rec := doRequest(h, "PROPPATCH", "/calendars/alice/work/", body, nil)

	assert.Contains(t, rec.Body.String(), "409 Conflict")
	provider.AssertNotCalled(t, "UpdateCalendar", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProppatchBackendFailure(t *testing.T) {
	h, provider := newTestHandler()
	expectPrincipal(provider)
	expectCalendar(provider, &storage.Calendar{CalendarID: "work"})
	provider.On("UpdateCalendar", mock.Anything, "alice", "work", mock.Anything).
		Return(nil, errors.New("disk on fire"))

	body := proppatchBody(map[string]string{"D:displayname": "Renamed"})
	rec := doRequest(h, "PROPPATCH", "/calendars/alice/work/", body, nil)

	assert.Equal(t, http.StatusMultiStatus, rec.Code)
	assert.Contains(t, rec.Body.String(), "500 Internal Server Error")
}

func TestProppatchReadOnlyCalendar(t *testing.T) {
	h, provider := newTestHandler()
	expectPrincipal(provider)
	expectCalendar(provider, &storage.Calendar{CalendarID: "work", ReadOnly: true})

	body := proppatchBody(map[string]string{"D:displayname": "Renamed"})
	rec := doRequest(h, "PROPPATCH", "/calendars/alice/work/", body, nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	provider.AssertNotCalled(t, "UpdateCalendar", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProppatchLangInheritance(t *testing.T) {
	h, provider := newTestHandler()
	expectPrincipal(provider)
	expectCalendar(provider, &storage.Calendar{CalendarID: "work"})

	provider.On("UpdateCalendar", mock.Anything, "alice", "work",
		mock.MatchedBy(func(u *storage.CalendarUpdate) bool {
			return u.DisplayName != nil && *u.DisplayName == "Arbeit" &&
				u.DisplayNameLang != nil && *u.DisplayNameLang == "de"
		})).Return(&storage.Calendar{CalendarID: "work"}, nil).Once()

	body := `<?xml version="1.0"?>
<D:propertyupdate xmlns:D="DAV:" xml:lang="de">
  <D:set><D:prop><D:displayname>Arbeit</D:displayname></D:prop></D:set>
</D:propertyupdate>`
	rec := doRequest(h, "PROPPATCH", "/calendars/alice/work/", body, nil)

	require.Equal(t, http.StatusMultiStatus, rec.Code)
	provider.AssertExpectations(t)
}

func TestProppatchRemoveClearsValue(t *testing.T) {
	h, provider := newTestHandler()
	expectPrincipal(provider)
	expectCalendar(provider, &storage.Calendar{CalendarID: "work"})

	provider.On("UpdateCalendar", mock.Anything, "alice", "work",
		mock.MatchedBy(func(u *storage.CalendarUpdate) bool {
			return u.Description != nil && *u.Description == ""
		})).Return(&storage.Calendar{CalendarID: "work"}, nil).Once()

	body := `<?xml version="1.0"?>
<D:propertyupdate xmlns:D="DAV:" xmlns:CAL="urn:ietf:params:xml:ns:caldav">
  <D:remove><D:prop><CAL:calendar-description/></D:prop></D:remove>
</D:propertyupdate>`
	rec := doRequest(h, "PROPPATCH", "/calendars/alice/work/", body, nil)

	assert.Equal(t, http.StatusMultiStatus, rec.Code)
	provider.AssertExpectations(t)
}

func TestProppatchPrincipalAllForbidden(t *testing.T) {
	h, provider := newTestHandler()
	expectPrincipal(provider)

	body := proppatchBody(map[string]string{"D:displayname": "New Name"})
	rec := doRequest(h, "PROPPATCH", "/principals/alice/", body, nil)

	assert.Equal(t, http.StatusMultiStatus, rec.Code)
	assert.Contains(t, rec.Body.String(), "403 Forbidden")
	provider.AssertNotCalled(t, "UpdateCalendar", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
