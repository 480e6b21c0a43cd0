package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/calde-dev/calde/server/storage"
)

// AuthenticateFunc validates basic-auth credentials and returns the
// authenticated principal, or an error wrapping storage.ErrPermissionDenied
// when the credentials are rejected.
type AuthenticateFunc func(ctx context.Context, username, password string) (*storage.Principal, error)

// checkAuth extracts basic-auth credentials and resolves the principal.
// Writes the 401 challenge (or a 5xx) itself when authentication fails.
func (h *CaldavHandler) checkAuth(w http.ResponseWriter, r *http.Request) (*storage.Principal, bool) {
	username, password, ok := r.BasicAuth()
	if !ok {
		h.challenge(w)
		return nil, false
	}

	var principal *storage.Principal
	var err error
	if h.Authenticate != nil {
		principal, err = h.Authenticate(r.Context(), username, password)
	} else {
		principal, err = h.Provider.GetPrincipal(r.Context(), username)
	}
	switch {
	case err == nil && principal != nil:
		return principal, true
	case err == nil,
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, storage.ErrPermissionDenied):
		h.Logger.Info("authentication rejected", "username", username)
		h.challenge(w)
		return nil, false
	default:
		h.Logger.Error("authentication backend failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}
}

func (h *CaldavHandler) challenge(w http.ResponseWriter) {
	realm := h.Realm
	if realm == "" {
		realm = "caldav"
	}
	w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
