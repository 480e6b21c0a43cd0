package server

import (
	"context"
	"fmt"

	"github.com/calde-dev/calde/server/storage"
)

// RequestContext carries everything resolved about one request before the
// method handler runs: the addressed resource, the authenticated principal
// and the URLs referenced by property values. It is built once per request
// and not mutated afterwards.
type RequestContext struct {
	Resource  Resource
	Principal *storage.Principal
	// Calendar is loaded for collection- and object-scoped requests and
	// nil otherwise.
	Calendar *storage.Calendar

	PrincipalURL string
	HomeSetURL   string
	CalendarURL  string
	InboxURL     string
	OutboxURL    string

	Depth int
}

// newRequestContext derives the context URLs from the parsed resource. The
// calendar, when in scope, is loaded by the handler before dispatch.
func (h *CaldavHandler) newRequestContext(ctx context.Context, res Resource, depth int) (*RequestContext, error) {
	principal, err := h.Provider.GetPrincipal(ctx, res.PrincipalID)
	if err != nil {
		return nil, fmt.Errorf("load principal %q: %w", res.PrincipalID, err)
	}
	rctx := &RequestContext{Resource: res, Principal: principal, Depth: depth}

	if rctx.PrincipalURL, err = h.URLConverter.EncodePath(Resource{
		Type: ResourcePrincipal, PrincipalID: res.PrincipalID,
	}); err != nil {
		return nil, err
	}
	if rctx.HomeSetURL, err = h.URLConverter.EncodePath(Resource{
		Type: ResourceHomeSet, PrincipalID: res.PrincipalID,
	}); err != nil {
		return nil, err
	}
	if rctx.InboxURL, err = h.URLConverter.EncodePath(Resource{
		Type: ResourceScheduleInbox, PrincipalID: res.PrincipalID, CalendarID: inboxID,
	}); err != nil {
		return nil, err
	}
	if rctx.OutboxURL, err = h.URLConverter.EncodePath(Resource{
		Type: ResourceScheduleOutbox, PrincipalID: res.PrincipalID, CalendarID: outboxID,
	}); err != nil {
		return nil, err
	}
	if res.CalendarID != "" {
		if rctx.CalendarURL, err = h.URLConverter.EncodePath(Resource{
			Type: ResourceCollection, PrincipalID: res.PrincipalID, CalendarID: res.CalendarID,
		}); err != nil {
			return nil, err
		}
	}
	return rctx, nil
}

// objectURL returns the response href for an event: the stored canonical
// href when the provider set one, otherwise the path derived from IDs.
func (h *CaldavHandler) objectURL(rctx *RequestContext, ev *storage.Event) string {
	if ev.Href != "" {
		return ev.Href
	}
	url, err := h.URLConverter.EncodePath(Resource{
		Type:        ResourceObject,
		PrincipalID: rctx.Resource.PrincipalID,
		CalendarID:  ev.CalendarID,
		ObjectID:    ev.EventID,
	})
	if err != nil {
		return rctx.CalendarURL + ev.EventID + ".ics"
	}
	return url
}
