package server

import (
	"net/http"

	"github.com/calde-dev/calde/internal/xml"
	"github.com/calde-dev/calde/internal/xml/props"
	"github.com/calde-dev/calde/server/ical"
	"github.com/calde-dev/calde/server/storage"
)

func (h *CaldavHandler) handleMkcalendar(w http.ResponseWriter, r *http.Request, rctx *RequestContext) {
	if rctx.Resource.Type != ResourceCollection {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	root, err := h.readBodyElement(r)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	cal := &storage.Calendar{CalendarID: rctx.Resource.CalendarID}
	found := false
	if root != nil {
		for _, set := range xml.ChildrenByLocalName(root, "set") {
			for _, prop := range xml.ChildrenByLocalName(set, "prop") {
				for _, elem := range prop.ChildElements() {
					switch props.FromElement(elem) {
					case props.DAV("displayname"):
						cal.DisplayName = elem.Text()
						cal.DisplayNameLang = inheritedLang(elem)
						found = true
					case props.CalDAV("calendar-description"):
						cal.Description = elem.Text()
						cal.DescriptionLang = inheritedLang(elem)
						found = true
					case props.CalDAV("calendar-timezone"):
						if err := ical.ValidateTimezone(elem.Text()); err != nil {
							http.Error(w, "Conflict", http.StatusConflict)
							return
						}
						cal.Timezone = elem.Text()
						found = true
					case props.Apple("calendar-color"):
						cal.Color = elem.Text()
						found = true
					}
				}
			}
		}
	}
	// A MKCALENDAR that sets nothing usable is malformed, body-less
	// requests included.
	if !found {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	created, err := h.Provider.CreateCalendar(r.Context(), rctx.Resource.PrincipalID, cal)
	if err != nil {
		h.writeStorageError(w, err)
		return
	}
	h.Logger.Info("calendar created",
		"principal", rctx.Resource.PrincipalID, "calendar", created.CalendarID)
	// The collection tag doubles as the creation ETag.
	w.Header().Set("ETag", `"`+created.SyncToken+`"`)
	w.WriteHeader(http.StatusCreated)
}
