package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/calde-dev/calde/internal/xml"
	"github.com/calde-dev/calde/server/ical"
	"github.com/calde-dev/calde/server/storage"
)

func (h *CaldavHandler) handlePut(w http.ResponseWriter, r *http.Request, rctx *RequestContext) {
	if rctx.Resource.Type != ResourceObject && rctx.Resource.Type != ResourceCollection {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	if rctx.Calendar.ReadOnly {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "text/calendar") {
		http.Error(w, "Unsupported Media Type", http.StatusUnsupportedMediaType)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	ev, err := ical.ParseEvent(string(body))
	if err != nil {
		h.Logger.Warn("rejecting unparseable calendar object", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	// A PUT against the collection derives the resource name from the UID.
	if rctx.Resource.Type == ResourceObject {
		ev.EventID = rctx.Resource.ObjectID
	}
	ev.CalendarID = rctx.Resource.CalendarID

	existing, err := h.Provider.GetEvent(r.Context(), rctx.Resource.PrincipalID, rctx.Resource.CalendarID, ev.EventID, false)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		h.writeStorageError(w, err)
		return
	}

	if existing != nil && r.Header.Get("If-None-Match") == "*" {
		doc := xml.PreconditionError("no-uid-conflict", h.objectURL(rctx, existing))
		h.writeXML(w, http.StatusPreconditionFailed, doc)
		return
	}

	var saved *storage.Event
	if existing == nil {
		saved, err = h.Provider.CreateEvent(r.Context(), rctx.Resource.PrincipalID, rctx.Resource.CalendarID, ev)
	} else {
		ev.CreatedAt = existing.CreatedAt
		ev.Href = existing.Href
		saved, err = h.Provider.UpdateEvent(r.Context(), rctx.Resource.PrincipalID, rctx.Resource.CalendarID, ev)
	}
	if err != nil {
		h.writeStorageError(w, err)
		return
	}

	etag, err := h.Provider.GetETag(r.Context(), saved)
	if err != nil {
		h.writeStorageError(w, err)
		return
	}
	h.Logger.Info("calendar object stored",
		"calendar", rctx.Resource.CalendarID, "event", saved.EventID,
		"created", existing == nil)
	w.Header().Set("ETag", `"`+etag+`"`)
	w.WriteHeader(http.StatusCreated)
}
