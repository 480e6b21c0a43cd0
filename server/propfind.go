package server

import (
	"net/http"

	"github.com/beevik/etree"

	"github.com/calde-dev/calde/internal/xml"
	"github.com/calde-dev/calde/internal/xml/props"
)

// defaultPropNames is what an empty-body or allprop PROPFIND asks for.
var defaultPropNames = []props.Name{
	props.DAV("resourcetype"),
	props.DAV("displayname"),
	props.DAV("getcontenttype"),
	props.DAV("getetag"),
	props.DAV("current-user-principal"),
}

func (h *CaldavHandler) handlePropfind(w http.ResponseWriter, r *http.Request, rctx *RequestContext) {
	root, err := h.readBodyElement(r)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	requested := requestedPropNames(root)

	var responses []xml.Response
	switch rctx.Resource.Type {
	case ResourcePrincipal:
		responses, err = h.principalResponses(r, rctx, requested)
	case ResourceHomeSet:
		responses, err = h.homeSetResponses(r, rctx, requested)
	case ResourceCollection:
		responses, err = h.collectionResponses(r, rctx, requested)
	case ResourceObject:
		responses, err = h.objectResponses(r, rctx, requested)
	case ResourceScheduleInbox, ResourceScheduleOutbox:
		responses, err = h.schedulingResponses(r, rctx, requested)
	default:
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.writeStorageError(w, err)
		return
	}
	h.writeMultistatus(w, xml.Multistatus(responses))
}

// requestedPropNames pulls the property names out of a propfind body in
// document order. A nil root or an allprop/propname request maps to the
// default set.
func requestedPropNames(root *etree.Element) []props.Name {
	if root == nil {
		return defaultPropNames
	}
	prop := xml.FirstByLocalName(root, "prop")
	if prop == nil {
		return defaultPropNames
	}
	var names []props.Name
	for _, child := range prop.ChildElements() {
		names = append(names, props.FromElement(child))
	}
	if len(names) == 0 {
		return defaultPropNames
	}
	return names
}

// renderResponse resolves properties for one resource and assembles its
// D:response. Resources where nothing resolved report a 404 propstat.
func renderResponse(env *propEnv, href string, table map[props.Name]Resolver, requested []props.Name) (xml.Response, error) {
	found, missing, err := resolveProps(env, table, requested)
	if err != nil {
		return xml.Response{}, err
	}
	if len(found) == 0 {
		return xml.Response{
			Href:      href,
			PropStats: []xml.PropStat{xml.NotFoundPropStat(missing)},
		}, nil
	}
	return xml.NewResponse(href, xml.StatusOK, found), nil
}

func (h *CaldavHandler) principalResponses(r *http.Request, rctx *RequestContext, requested []props.Name) ([]xml.Response, error) {
	env := &propEnv{ctx: r.Context(), h: h, rctx: rctx}
	resp, err := renderResponse(env, rctx.PrincipalURL, principalResolvers, requested)
	if err != nil {
		return nil, err
	}
	return []xml.Response{resp}, nil
}

func (h *CaldavHandler) homeSetResponses(r *http.Request, rctx *RequestContext, requested []props.Name) ([]xml.Response, error) {
	env := &propEnv{ctx: r.Context(), h: h, rctx: rctx}
	own, err := renderResponse(env, rctx.HomeSetURL, homeSetResolvers, requested)
	if err != nil {
		return nil, err
	}
	responses := []xml.Response{own}
	if rctx.Depth < 1 {
		return responses, nil
	}
	calendars, err := h.Provider.GetCalendarsForPrincipal(r.Context(), rctx.Resource.PrincipalID)
	if err != nil {
		return nil, err
	}
	for _, cal := range calendars {
		href, err := h.URLConverter.EncodePath(Resource{
			Type:        ResourceCollection,
			PrincipalID: rctx.Resource.PrincipalID,
			CalendarID:  cal.CalendarID,
		})
		if err != nil {
			return nil, err
		}
		calEnv := &propEnv{ctx: r.Context(), h: h, rctx: rctx, cal: cal}
		resp, err := renderResponse(calEnv, href, calendarResolvers, requested)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

func (h *CaldavHandler) collectionResponses(r *http.Request, rctx *RequestContext, requested []props.Name) ([]xml.Response, error) {
	env := &propEnv{ctx: r.Context(), h: h, rctx: rctx, cal: rctx.Calendar}
	own, err := renderResponse(env, rctx.CalendarURL, calendarResolvers, requested)
	if err != nil {
		return nil, err
	}
	responses := []xml.Response{own}
	if rctx.Depth < 1 {
		return responses, nil
	}
	fullData := wantsCalendarData(requested)
	events, err := h.Provider.GetEventsForCalendar(r.Context(), rctx.Resource.PrincipalID, rctx.Resource.CalendarID, fullData)
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		if ev.Deleted() {
			continue
		}
		evEnv := &propEnv{ctx: r.Context(), h: h, rctx: rctx, cal: rctx.Calendar, event: ev}
		resp, err := renderResponse(evEnv, h.objectURL(rctx, ev), eventResolvers, requested)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

func (h *CaldavHandler) objectResponses(r *http.Request, rctx *RequestContext, requested []props.Name) ([]xml.Response, error) {
	fullData := wantsCalendarData(requested)
	ev, err := h.Provider.GetEvent(r.Context(), rctx.Resource.PrincipalID, rctx.Resource.CalendarID, rctx.Resource.ObjectID, fullData)
	if err != nil {
		return nil, err
	}
	env := &propEnv{ctx: r.Context(), h: h, rctx: rctx, cal: rctx.Calendar, event: ev}
	resp, err := renderResponse(env, h.objectURL(rctx, ev), eventResolvers, requested)
	if err != nil {
		return nil, err
	}
	return []xml.Response{resp}, nil
}

// wantsCalendarData is computed once per request so every storage fetch in
// the request shares the same fullData flag.
func wantsCalendarData(requested []props.Name) bool {
	target := props.CalDAV("calendar-data")
	for _, n := range requested {
		if n == target {
			return true
		}
	}
	return false
}
