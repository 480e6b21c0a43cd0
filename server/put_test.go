package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/calde-dev/calde/server/storage"
)

const putBody = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//client//EN\r\n" +
	"BEGIN:VEVENT\r\nUID:evt-1\r\nDTSTAMP:20260101T000000Z\r\n" +
	"DTSTART:20260302T090000Z\r\nDTEND:20260302T100000Z\r\n" +
	"SUMMARY:Review\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"

var calHeaders = map[string]string{"Content-Type": "text/calendar; charset=utf-8"}

func TestPutCreatesEvent(t *testing.T) {
	h, provider := newTestHandler()
	expectPrincipal(provider)
	expectCalendar(provider, &storage.Calendar{CalendarID: "work"})

	provider.On("GetEvent", mock.Anything, "alice", "work", "evt-1", false).
		Return(nil, storage.ErrNotFound)
	provider.On("CreateEvent", mock.Anything, "alice", "work",
		mock.MatchedBy(func(ev *storage.Event) bool {
			return ev.EventID == "evt-1" && ev.Summary == "Review" &&
				ev.StartDate.Equal(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
		})).Return(&storage.Event{EventID: "evt-1", CalendarID: "work"}, nil).Once()
	provider.On("GetETag", mock.Anything, mock.Anything).Return("new-tag", nil)

	rec := doRequest(h, http.MethodPut, "/calendars/alice/work/evt-1.ics", putBody, calHeaders)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, `"new-tag"`, rec.Header().Get("ETag"))
	provider.AssertExpectations(t)
}

func TestPutUpdatesEvent(t *testing.T) {
	h, provider := newTestHandler()
	expectPrincipal(provider)
	expectCalendar(provider, &storage.Calendar{CalendarID: "work"})

	existing := &storage.Event{
		EventID:    "evt-1",
		CalendarID: "work",
		CreatedAt:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	provider.On("GetEvent", mock.Anything, "alice", "work", "evt-1", false).Return(existing, nil)
	provider.On("UpdateEvent", mock.Anything, "alice", "work",
		mock.MatchedBy(func(ev *storage.Event) bool {
			// Creation time carries over from the stored event.
			return ev.EventID == "evt-1" && ev.CreatedAt.Equal(existing.CreatedAt)
		})).Return(existing, nil).Once()
	provider.On("GetETag", mock.Anything, mock.Anything).Return("tag-2", nil)

	rec := doRequest(h, http.MethodPut, "/calendars/alice/work/evt-1.ics", putBody, calHeaders)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, `"tag-2"`, rec.Header().Get("ETag"))
	provider.AssertExpectations(t)
}

func TestPutIfNoneMatchConflict(t *testing.T) {
	h, provider := newTestHandler()
	expectPrincipal(provider)
	expectCalendar(provider, &storage.Calendar{CalendarID: "work"})
	provider.On("GetEvent", mock.Anything, "alice", "work", "evt-1", false).
		Return(&storage.Event{EventID: "evt-1", CalendarID: "work"}, nil)

	headers := map[string]string{
		"Content-Type":  "text/calendar",
		"If-None-Match": "*",
	}
	rec := doRequest(h, http.MethodPut, "/calendars/alice/work/evt-1.ics", putBody, headers)

	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	out := rec.Body.String()
	assert.Contains(t, out, "no-uid-conflict")
	assert.Contains(t, out, "/calendars/alice/work/evt-1.ics")
	provider.AssertNotCalled(t, "CreateEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	provider.AssertNotCalled(t, "UpdateEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPutToCollectionUsesUID(t *testing.T) {
	h, provider := newTestHandler()
	expectPrincipal(provider)
	expectCalendar(provider, &storage.Calendar{CalendarID: "work"})

	provider.On("GetEvent", mock.Anything, "alice", "work", "evt-1", false).
		Return(nil, storage.ErrNotFound)
	provider.On("CreateEvent", mock.Anything, "alice", "work", mock.Anything).
		Return(&storage.Event{EventID: "evt-1", CalendarID: "work"}, nil)
	provider.On("GetETag", mock.Anything, mock.Anything).Return("t", nil)

	rec := doRequest(h, http.MethodPut, "/calendars/alice/work/", putBody, calHeaders)

	assert.Equal(t, http.StatusCreated, rec.Code)
	provider.AssertCalled(t, "GetEvent", mock.Anything, "alice", "work", "evt-1", false)
}

func TestPutRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		headers map[string]string
		want    int
	}{
		{
			name:    "empty body",
			body:    "",
			headers: calHeaders,
			want:    http.StatusBadRequest,
		},
		{
			name:    "not icalendar",
			body:    "hello",
			headers: calHeaders,
			want:    http.StatusBadRequest,
		},
		{
			name:    "wrong content type",
			body:    putBody,
			headers: map[string]string{"Content-Type": "application/json"},
			want:    http.StatusUnsupportedMediaType,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, provider := newTestHandler()
			expectPrincipal(provider)
			expectCalendar(provider, &storage.Calendar{CalendarID: "work"})

			rec := doRequest(h, http.MethodPut, "/calendars/alice/work/evt-1.ics", tt.body, tt.headers)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestPutReadOnlyCalendar(t *testing.T) {
	h, provider := newTestHandler()
	expectPrincipal(provider)
	expectCalendar(provider, &storage.Calendar{CalendarID: "work", ReadOnly: true})

	rec := doRequest(h, http.MethodPut, "/calendars/alice/work/evt-1.ics", putBody, calHeaders)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	provider.AssertNotCalled(t, "CreateEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteEvent(t *testing.T) {
	h, provider := newTestHandler()
	expectPrincipal(provider)
	expectCalendar(provider, &storage.Calendar{CalendarID: "work"})
	provider.On("DeleteEvent", mock.Anything, "alice", "work", "evt-1").Return(nil).Once()

	rec := doRequest(h, http.MethodDelete, "/calendars/alice/work/evt-1.ics", "", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	provider.AssertExpectations(t)
}

func TestDeleteEventReadOnly(t *testing.T) {
	h, provider := newTestHandler()
	expectPrincipal(provider)
	expectCalendar(provider, &storage.Calendar{CalendarID: "work", ReadOnly: true})

	rec := doRequest(h, http.MethodDelete, "/calendars/alice/work/evt-1.ics", "", nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	provider.AssertNotCalled(t, "DeleteEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteCalendar(t *testing.T) {
	h, provider := newTestHandler()
	expectPrincipal(provider)
	expectCalendar(provider, &storage.Calendar{CalendarID: "work"})
	provider.On("DeleteCalendar", mock.Anything, "alice", "work").Return(nil).Once()

	rec := doRequest(h, http.MethodDelete, "/calendars/alice/work/", "", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	provider.AssertExpectations(t)
}

func TestDeleteMissingEvent(t *testing.T) {
	h, provider := newTestHandler()
	expectPrincipal(provider)
	expectCalendar(provider, &storage.Calendar{CalendarID: "work"})
	provider.On("DeleteEvent", mock.Anything, "alice", "work", "gone").
		Return(storage.ErrNotFound)

	rec := doRequest(h, http.MethodDelete, "/calendars/alice/work/gone.ics", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMkcalendar(t *testing.T) {
	h, provider := newTestHandler()
	expectPrincipal(provider)

	provider.On("CreateCalendar", mock.Anything, "alice",
		mock.MatchedBy(func(cal *storage.Calendar) bool {
			return cal.CalendarID == "team" && cal.DisplayName == "Team" &&
				cal.Description == "Shared planning"
		})).Return(&storage.Calendar{CalendarID: "team", SyncToken: "s/1"}, nil).Once()

	body := `<?xml version="1.0"?>
<CAL:mkcalendar xmlns:D="DAV:" xmlns:CAL="urn:ietf:params:xml:ns:caldav">
  <D:set><D:prop>
    <D:displayname>Team</D:displayname>
    <CAL:calendar-description>Shared planning</CAL:calendar-description>
  </D:prop></D:set>
</CAL:mkcalendar>`
	rec := doRequest(h, "MKCALENDAR", "/calendars/alice/team/", body, nil)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, `"s/1"`, rec.Header().Get("ETag"))
	provider.AssertExpectations(t)
}

func TestMkcalendarEmptySet(t *testing.T) {
	h, provider := newTestHandler()
	expectPrincipal(provider)

	body := `<?xml version="1.0"?>
<CAL:mkcalendar xmlns:D="DAV:" xmlns:CAL="urn:ietf:params:xml:ns:caldav">
  <D:set><D:prop/></D:set>
</CAL:mkcalendar>`
	rec := doRequest(h, "MKCALENDAR", "/calendars/alice/team/", body, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	provider.AssertNotCalled(t, "CreateCalendar", mock.Anything, mock.Anything, mock.Anything)
}

func TestMkcalendarNoBody(t *testing.T) {
	h, provider := newTestHandler()
	expectPrincipal(provider)

	rec := doRequest(h, "MKCALENDAR", "/calendars/alice/team/", "", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	provider.AssertNotCalled(t, "CreateCalendar", mock.Anything, mock.Anything, mock.Anything)
}

func TestMkcalendarExistingConflict(t *testing.T) {
	h, provider := newTestHandler()
	expectPrincipal(provider)
	provider.On("CreateCalendar", mock.Anything, "alice", mock.Anything).
		Return(nil, storage.ErrConflict)

	body := `<?xml version="1.0"?>
<CAL:mkcalendar xmlns:D="DAV:" xmlns:CAL="urn:ietf:params:xml:ns:caldav">
  <D:set><D:prop><D:displayname>Work</D:displayname></D:prop></D:set>
</CAL:mkcalendar>`
	rec := doRequest(h, "MKCALENDAR", "/calendars/alice/work/", body, nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
}
