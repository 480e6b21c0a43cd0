package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/calde-dev/calde/internal/xml"
	"github.com/calde-dev/calde/internal/xml/props"
	"github.com/calde-dev/calde/server/storage"
)

const reportTimeFormat = "20060102T150405Z"

func (h *CaldavHandler) handleReport(w http.ResponseWriter, r *http.Request, rctx *RequestContext) {
	root, err := h.readBodyElement(r)
	if err != nil || root == nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if rctx.Resource.Type == ResourcePrincipal {
		h.handlePrincipalReport(w, root, rctx)
		return
	}
	if rctx.Resource.Type != ResourceCollection {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	var responses []xml.Response
	var extra []*etree.Element
	switch root.Tag {
	case "calendar-query":
		responses, err = h.reportCalendarQuery(r, root, rctx)
	case "calendar-multiget":
		responses, err = h.reportCalendarMultiget(r, root, rctx)
	case "sync-collection":
		responses, extra, err = h.reportSyncCollection(r, root, rctx)
	case "expand-property":
		responses = []xml.Response{xml.NewResponse(rctx.Resource.URI, xml.StatusOK, nil)}
	default:
		h.Logger.Warn("unsupported report", "report", root.Tag)
		h.writeXML(w, http.StatusNotFound, xml.NotFound(rctx.Resource.URI))
		return
	}
	if err != nil {
		h.writeStorageError(w, err)
		return
	}
	h.writeMultistatus(w, xml.Multistatus(responses, extra...))
}

func (h *CaldavHandler) reportCalendarQuery(r *http.Request, root *etree.Element, rctx *RequestContext) ([]xml.Response, error) {
	requested := requestedPropNames(root)
	fullData := wantsCalendarData(requested)
	start, end := parseTimeRange(root)
	events, err := h.Provider.GetEventsByDate(r.Context(), rctx.Resource.PrincipalID, rctx.Resource.CalendarID, start, end, fullData)
	if err != nil {
		return nil, err
	}
	return h.eventResponses(r, rctx, events, requested)
}

func (h *CaldavHandler) reportCalendarMultiget(r *http.Request, root *etree.Element, rctx *RequestContext) ([]xml.Response, error) {
	requested := requestedPropNames(root)
	var responses []xml.Response
	for _, hrefElem := range xml.ChildrenByLocalName(root, "href") {
		href := strings.TrimSpace(hrefElem.Text())
		if href == "" {
			continue
		}
		eventID := objectIDFromHref(href)
		ev, err := h.Provider.GetEvent(r.Context(), rctx.Resource.PrincipalID, rctx.Resource.CalendarID, eventID, true)
		if err != nil {
			// Missing members stay in the report as 404 entries.
			responses = append(responses, xml.Response{
				Href:      href,
				PropStats: []xml.PropStat{{Status: xml.StatusNotFound}},
			})
			continue
		}
		env := &propEnv{ctx: r.Context(), h: h, rctx: rctx, cal: rctx.Calendar, event: ev}
		resp, err := renderResponse(env, h.objectURL(rctx, ev), eventResolvers, requested)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

func (h *CaldavHandler) reportSyncCollection(r *http.Request, root *etree.Element, rctx *RequestContext) ([]xml.Response, []*etree.Element, error) {
	requested := requestedPropNames(root)
	fullData := wantsCalendarData(requested)
	events, err := h.Provider.GetEventsForCalendar(r.Context(), rctx.Resource.PrincipalID, rctx.Resource.CalendarID, fullData)
	if err != nil {
		return nil, nil, err
	}
	responses, err := h.eventResponses(r, rctx, events, requested)
	if err != nil {
		return nil, nil, err
	}
	token := etree.NewElement("sync-token")
	token.Space = "D"
	token.SetText(rctx.Calendar.SyncToken)
	return responses, []*etree.Element{token}, nil
}

// eventResponses renders one response per event. Tombstones become bare
// 404 status entries so sync clients drop them.
func (h *CaldavHandler) eventResponses(r *http.Request, rctx *RequestContext, events []*storage.Event, requested []props.Name) ([]xml.Response, error) {
	var responses []xml.Response
	for _, ev := range events {
		href := h.objectURL(rctx, ev)
		if ev.Deleted() {
			responses = append(responses, xml.NewStatusResponse(href, xml.StatusNotFound))
			continue
		}
		env := &propEnv{ctx: r.Context(), h: h, rctx: rctx, cal: rctx.Calendar, event: ev}
		resp, err := renderResponse(env, href, eventResolvers, requested)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

// parseTimeRange digs the first time-range element out of the filter tree,
// wherever the client nested its comp-filters.
func parseTimeRange(root *etree.Element) (start, end *time.Time) {
	tr := xml.FirstByLocalName(xml.FirstByLocalName(root, "filter"), "time-range")
	if tr == nil {
		return nil, nil
	}
	if t, err := time.Parse(reportTimeFormat, tr.SelectAttrValue("start", "")); err == nil {
		start = &t
	}
	if t, err := time.Parse(reportTimeFormat, tr.SelectAttrValue("end", "")); err == nil {
		end = &t
	}
	return start, end
}

func objectIDFromHref(href string) string {
	trimmed := strings.TrimSuffix(href, "/")
	if idx := strings.LastIndexByte(trimmed, '/'); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	return strings.TrimSuffix(trimmed, ".ics")
}

// handlePrincipalReport serves the principal-scoped reports clients use to
// discover searchable properties.
func (h *CaldavHandler) handlePrincipalReport(w http.ResponseWriter, root *etree.Element, rctx *RequestContext) {
	switch root.Tag {
	case "principal-search-property-set":
		h.writeXML(w, http.StatusOK, principalSearchPropertySet())
	case "principal-property-search":
		resp := xml.NewResponse(rctx.PrincipalURL, xml.StatusOK, []props.Property{
			props.DisplayName{Value: rctx.Principal.DisplayName},
		})
		h.writeMultistatus(w, xml.Multistatus([]xml.Response{resp}))
	case "expand-property":
		resp := xml.NewResponse(rctx.PrincipalURL, xml.StatusOK, nil)
		h.writeMultistatus(w, xml.Multistatus([]xml.Response{resp}))
	default:
		h.Logger.Warn("unsupported principal report", "report", root.Tag)
		h.writeXML(w, http.StatusNotFound, xml.NotFound(rctx.Resource.URI))
	}
}

func principalSearchPropertySet() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("principal-search-property-set")
	root.Space = "D"
	props.DeclareNamespaces(root)
	item := etree.NewElement("principal-search-property")
	item.Space = "D"
	prop := etree.NewElement("prop")
	prop.Space = "D"
	prop.AddChild(props.DAV("displayname").Element())
	item.AddChild(prop)
	desc := etree.NewElement("description")
	desc.Space = "D"
	desc.SetText("Display name")
	item.AddChild(desc)
	root.AddChild(item)
	return doc
}
