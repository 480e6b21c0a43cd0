package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/beevik/etree"
	goical "github.com/emersion/go-ical"
	"github.com/samber/mo"

	"github.com/calde-dev/calde/internal/xml"
	"github.com/calde-dev/calde/internal/xml/props"
	"github.com/calde-dev/calde/server/ical"
	"github.com/calde-dev/calde/server/itip"
	"github.com/calde-dev/calde/server/storage"
)

var inboxResolvers = map[props.Name]Resolver{
	props.DAV("resourcetype"): func(env *propEnv) mo.Result[props.Property] {
		return ok(props.ResourceType{Kinds: []props.Name{
			props.DAV("collection"), props.CalDAV("schedule-inbox"),
		}})
	},
	props.DAV("current-user-privilege-set"): func(env *propEnv) mo.Result[props.Property] {
		return ok(props.CurrentUserPrivilegeSet{Privileges: []props.Name{
			props.DAV("read"),
			props.CalDAV("schedule-deliver"),
		}})
	},
	props.DAV("owner"):                  resolveOwner,
	props.DAV("current-user-principal"): resolveCurrentUserPrincipal,
	props.CalDAV("calendar-home-set"):   resolveCalendarHomeSet,
}

var outboxResolvers = map[props.Name]Resolver{
	props.DAV("resourcetype"): func(env *propEnv) mo.Result[props.Property] {
		return ok(props.ResourceType{Kinds: []props.Name{
			props.DAV("collection"), props.CalDAV("schedule-outbox"),
		}})
	},
	props.DAV("current-user-privilege-set"): func(env *propEnv) mo.Result[props.Property] {
		return ok(props.CurrentUserPrivilegeSet{Privileges: []props.Name{
			props.DAV("read"),
			props.CalDAV("schedule-send"),
		}})
	},
	props.DAV("owner"):                  resolveOwner,
	props.DAV("current-user-principal"): resolveCurrentUserPrincipal,
	props.CalDAV("calendar-home-set"):   resolveCalendarHomeSet,
}

// schedulingResponses renders PROPFIND for the inbox and outbox. At depth 1
// the inbox additionally lists its stored iTIP messages.
func (h *CaldavHandler) schedulingResponses(r *http.Request, rctx *RequestContext, requested []props.Name) ([]xml.Response, error) {
	href := rctx.OutboxURL
	table := outboxResolvers
	if rctx.Resource.Type == ResourceScheduleInbox {
		href = rctx.InboxURL
		table = inboxResolvers
	}
	env := &propEnv{ctx: r.Context(), h: h, rctx: rctx}
	own, err := renderResponse(env, href, table, requested)
	if err != nil {
		return nil, err
	}
	responses := []xml.Response{own}

	if rctx.Resource.Type != ResourceScheduleInbox || rctx.Depth < 1 {
		return responses, nil
	}
	inbox, okInbox := h.Provider.(storage.SchedulingInbox)
	if !okInbox {
		return responses, nil
	}
	msgs, err := inbox.GetSchedulingMessages(r.Context(), rctx.Resource.PrincipalID)
	if err != nil {
		return nil, err
	}
	for _, msg := range msgs {
		responses = append(responses, xml.NewResponse(msg.Href, xml.StatusOK, []props.Property{
			props.GetETag{Value: msg.ETag},
			props.GetContentType{Value: "text/calendar; charset=utf-8"},
		}))
	}
	return responses, nil
}

// getInbox serves the stored iTIP messages as one calendar document.
func (h *CaldavHandler) getInbox(w http.ResponseWriter, r *http.Request, rctx *RequestContext) {
	inbox, okInbox := h.Provider.(storage.SchedulingInbox)
	if !okInbox {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	msgs, err := inbox.GetSchedulingMessages(r.Context(), rctx.Resource.PrincipalID)
	if err != nil {
		h.writeStorageError(w, err)
		return
	}
	var b strings.Builder
	for _, msg := range msgs {
		b.WriteString(msg.ICalData)
		if !strings.HasSuffix(msg.ICalData, "\n") {
			b.WriteString("\r\n")
		}
	}
	h.writeCalendarText(w, r, b.String())
}

// handlePost accepts iTIP submissions on the scheduling outbox.
func (h *CaldavHandler) handlePost(w http.ResponseWriter, r *http.Request, rctx *RequestContext) {
	if rctx.Resource.Type != ResourceScheduleOutbox {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil || len(raw) == 0 {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	body := strings.Join(ical.Unfold(string(raw)), "\n")

	var items []*etree.Element
	if itip.IsFreeBusyRequest(body) {
		items, err = h.freeBusyItems(r, body)
	} else {
		items = h.fanOutItems(r, rctx, body)
	}
	if err != nil {
		h.writeStorageError(w, err)
		return
	}
	h.writeXML(w, http.StatusOK, xml.ScheduleResponse(items))
}

// freeBusyItems answers a VFREEBUSY request per attendee. Providers without
// free-busy data get a synthesized empty answer rather than a failure.
func (h *CaldavHandler) freeBusyItems(r *http.Request, body string) ([]*etree.Element, error) {
	msg := itip.Parse(body)
	if len(msg.Attendees) == 0 {
		return nil, storage.ErrInvalidInput
	}
	fb, hasFB := h.Provider.(storage.FreeBusyProvider)
	var items []*etree.Element
	for _, attendee := range msg.Attendees {
		recipient := "mailto:" + attendee
		if !hasFB {
			items = append(items, xml.ScheduleResponseItem(recipient, itip.StatusSuccess, h.emptyFreeBusy(attendee)))
			continue
		}
		data, err := fb.GetFreeBusy(r.Context(), attendee)
		if err != nil {
			h.Logger.Warn("free-busy lookup failed", "attendee", attendee, "error", err)
			items = append(items, xml.ScheduleResponseItem(recipient, itip.StatusNoUserSupport, ""))
			continue
		}
		if data == "" {
			data = h.emptyFreeBusy(attendee)
		}
		items = append(items, xml.ScheduleResponseItem(recipient, itip.StatusSuccess, data))
	}
	return items, nil
}

// fanOutItems delivers an iTIP message to each attendee independently; one
// failed recipient does not affect the rest.
func (h *CaldavHandler) fanOutItems(r *http.Request, rctx *RequestContext, body string) []*etree.Element {
	msg := itip.Parse(body)
	sender, hasSender := h.Provider.(storage.SchedulingSender)
	var items []*etree.Element
	for _, attendee := range msg.Attendees {
		recipient := "mailto:" + attendee
		if !hasSender {
			items = append(items, xml.ScheduleResponseItem(recipient, itip.StatusPending, ""))
			continue
		}
		err := sender.SendSchedulingMessage(r.Context(), rctx.Resource.PrincipalID, storage.OutboundMessage{
			Method:   msg.Method,
			Attendee: attendee,
			ICalData: body,
		})
		if err != nil {
			h.Logger.Warn("scheduling delivery failed", "attendee", attendee, "error", err)
			items = append(items, xml.ScheduleResponseItem(recipient, itip.StatusRecipientFailure, ""))
			continue
		}
		items = append(items, xml.ScheduleResponseItem(recipient, itip.StatusSent, ""))
	}
	return items
}

// emptyFreeBusy synthesizes a no-busy-time reply for an attendee.
func (h *CaldavHandler) emptyFreeBusy(attendee string) string {
	cal := goical.NewCalendar()
	cal.Props.SetText(goical.PropVersion, "2.0")
	cal.Props.SetText(goical.PropProductID, h.prodID())
	cal.Props.SetText(goical.PropMethod, "REPLY")
	fb := &goical.Component{Name: goical.CompFreeBusy, Props: make(goical.Props)}
	fb.Props.SetText(goical.PropAttendee, "mailto:"+attendee)
	cal.Children = append(cal.Children, fb)
	var buf strings.Builder
	if err := goical.NewEncoder(&buf).Encode(cal); err != nil {
		h.Logger.Error("encode empty free-busy", "error", err)
		return ""
	}
	return ical.Refold(buf.String())
}
