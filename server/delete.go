package server

import "net/http"

func (h *CaldavHandler) handleDelete(w http.ResponseWriter, r *http.Request, rctx *RequestContext) {
	switch rctx.Resource.Type {
	case ResourceObject:
		if rctx.Calendar.ReadOnly {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if err := h.Provider.DeleteEvent(r.Context(), rctx.Resource.PrincipalID, rctx.Resource.CalendarID, rctx.Resource.ObjectID); err != nil {
			h.writeStorageError(w, err)
			return
		}
		h.Logger.Info("calendar object deleted",
			"calendar", rctx.Resource.CalendarID, "event", rctx.Resource.ObjectID)
	case ResourceCollection:
		if rctx.Calendar.ReadOnly {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if err := h.Provider.DeleteCalendar(r.Context(), rctx.Resource.PrincipalID, rctx.Resource.CalendarID); err != nil {
			h.writeStorageError(w, err)
			return
		}
		h.Logger.Info("calendar deleted", "calendar", rctx.Resource.CalendarID)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
