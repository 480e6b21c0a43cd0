package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/calde-dev/calde/internal/xml"
	"github.com/calde-dev/calde/internal/xml/props"
	"github.com/calde-dev/calde/server/ical"
	"github.com/calde-dev/calde/server/storage"
)

func (h *CaldavHandler) handleGet(w http.ResponseWriter, r *http.Request, rctx *RequestContext) {
	switch rctx.Resource.Type {
	case ResourceObject:
		h.getObject(w, r, rctx)
	case ResourceCollection:
		h.getCollection(w, r, rctx)
	case ResourceScheduleInbox:
		h.getInbox(w, r, rctx)
	case ResourcePrincipal:
		h.getPrincipal(w, rctx)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// getPrincipal answers GET on the principal URL itself with a one-response
// multistatus naming the current user principal, so clients landing here
// after a redirect can bootstrap.
func (h *CaldavHandler) getPrincipal(w http.ResponseWriter, rctx *RequestContext) {
	resp := xml.NewResponse(rctx.PrincipalURL, xml.StatusOK, []props.Property{
		props.CurrentUserPrincipal{Href: rctx.PrincipalURL},
	})
	h.writeMultistatus(w, xml.Multistatus([]xml.Response{resp}))
}

// getObject serves a single calendar object. Clients asking for XML get a
// one-response multistatus instead of raw iCalendar text.
func (h *CaldavHandler) getObject(w http.ResponseWriter, r *http.Request, rctx *RequestContext) {
	ev, err := h.Provider.GetEvent(r.Context(), rctx.Resource.PrincipalID, rctx.Resource.CalendarID, rctx.Resource.ObjectID, true)
	if err != nil {
		h.writeStorageError(w, err)
		return
	}
	data := ev.ICalData
	if data == "" {
		if data, err = ical.BuildICS([]*storage.Event{ev}, rctx.Calendar, h.prodID()); err != nil {
			h.writeStorageError(w, err)
			return
		}
	}

	if strings.Contains(r.Header.Get("Accept"), "xml") {
		resp := xml.NewResponse(h.objectURL(rctx, ev), xml.StatusOK, []props.Property{
			props.CalendarData{Value: data},
		})
		h.writeMultistatus(w, xml.Multistatus([]xml.Response{resp}))
		return
	}

	etag, err := h.Provider.GetETag(r.Context(), ev)
	if err != nil {
		h.writeStorageError(w, err)
		return
	}
	w.Header().Set("ETag", `"`+etag+`"`)
	h.writeCalendarText(w, r, data)
}

// getCollection serves the whole calendar as one VCALENDAR.
func (h *CaldavHandler) getCollection(w http.ResponseWriter, r *http.Request, rctx *RequestContext) {
	events, err := h.Provider.GetEventsForCalendar(r.Context(), rctx.Resource.PrincipalID, rctx.Resource.CalendarID, true)
	if err != nil {
		h.writeStorageError(w, err)
		return
	}
	live := events[:0]
	for _, ev := range events {
		if !ev.Deleted() {
			live = append(live, ev)
		}
	}
	data, err := ical.BuildICS(live, rctx.Calendar, h.prodID())
	if err != nil {
		h.writeStorageError(w, err)
		return
	}
	h.writeCalendarText(w, r, data)
}

func (h *CaldavHandler) writeCalendarText(w http.ResponseWriter, r *http.Request, data string) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, data); err != nil {
		h.Logger.Error("write calendar body", "error", err)
	}
}
