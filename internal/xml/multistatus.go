package xml

import (
	"github.com/beevik/etree"

	"github.com/calde-dev/calde/internal/xml/props"
)

// HTTP status lines used inside multistatus bodies.
const (
	StatusOK                  = "HTTP/1.1 200 OK"
	StatusForbidden           = "HTTP/1.1 403 Forbidden"
	StatusNotFound            = "HTTP/1.1 404 Not Found"
	StatusConflict            = "HTTP/1.1 409 Conflict"
	StatusPreconditionFailed  = "HTTP/1.1 412 Precondition Failed"
	StatusFailedDependency    = "HTTP/1.1 424 Failed Dependency"
	StatusInternalServerError = "HTTP/1.1 500 Internal Server Error"
)

// PropStat is one propstat block: a status line plus the properties that
// share it. An entry with no properties encodes an empty D:prop element.
type PropStat struct {
	Status string
	Props  []props.Property
}

// Response is one D:response in a multistatus document. A Response either
// carries PropStats, or a bare Status line (used for tombstones and missing
// multiget members), never both.
type Response struct {
	Href      string
	Status    string
	PropStats []PropStat
}

// NewResponse builds a propstat-style response for href. Properties are
// grouped under a single status line.
func NewResponse(href, status string, properties []props.Property) Response {
	return Response{
		Href:      href,
		PropStats: []PropStat{{Status: status, Props: properties}},
	}
}

// NewStatusResponse builds a response carrying only a status line, with no
// propstat. Deleted resources in sync-collection reports use this form.
func NewStatusResponse(href, status string) Response {
	return Response{Href: href, Status: status}
}

// NotFoundPropStat builds a 404 propstat echoing the requested names as
// empty property elements.
func NotFoundPropStat(names []props.Name) PropStat {
	ps := PropStat{Status: StatusNotFound}
	for _, n := range names {
		ps.Props = append(ps.Props, props.Empty{Name: n})
	}
	return ps
}

func (r Response) encode() *etree.Element {
	e := etree.NewElement("response")
	e.Space = "D"
	href := etree.NewElement("href")
	href.Space = "D"
	href.SetText(r.Href)
	e.AddChild(href)
	if r.Status != "" {
		status := etree.NewElement("status")
		status.Space = "D"
		status.SetText(r.Status)
		e.AddChild(status)
		return e
	}
	for _, ps := range r.PropStats {
		propstat := etree.NewElement("propstat")
		propstat.Space = "D"
		prop := etree.NewElement("prop")
		prop.Space = "D"
		for _, p := range ps.Props {
			prop.AddChild(p.Encode())
		}
		propstat.AddChild(prop)
		status := etree.NewElement("status")
		status.Space = "D"
		status.SetText(ps.Status)
		propstat.AddChild(status)
		e.AddChild(propstat)
	}
	return e
}

// Multistatus assembles a D:multistatus document from responses plus any
// extra trailing elements (e.g. the sync-token of a sync-collection report).
func Multistatus(responses []Response, extra ...*etree.Element) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("multistatus")
	root.Space = "D"
	props.DeclareNamespaces(root)
	for _, r := range responses {
		root.AddChild(r.encode())
	}
	for _, e := range extra {
		root.AddChild(e)
	}
	return doc
}

// NotFound builds the multistatus body reported when the addressed resource
// does not exist: a single response with a bare 404 status.
func NotFound(href string) *etree.Document {
	return Multistatus([]Response{NewStatusResponse(href, StatusNotFound)})
}

// ScheduleResponse wraps per-recipient scheduling results in a multistatus
// carrying a single CAL:schedule-response element.
func ScheduleResponse(items []*etree.Element) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("multistatus")
	root.Space = "D"
	props.DeclareNamespaces(root)
	sr := etree.NewElement("schedule-response")
	sr.Space = "CAL"
	for _, item := range items {
		sr.AddChild(item)
	}
	root.AddChild(sr)
	return doc
}

// ScheduleResponseItem builds one CAL:response element for a scheduling
// recipient: the recipient address, the iTIP request-status code and
// optionally the calendar data delivered for that recipient.
func ScheduleResponseItem(recipient, requestStatus, calendarData string) *etree.Element {
	resp := etree.NewElement("response")
	resp.Space = "CAL"
	rec := etree.NewElement("recipient")
	rec.Space = "CAL"
	href := etree.NewElement("href")
	href.Space = "D"
	href.SetText(recipient)
	rec.AddChild(href)
	resp.AddChild(rec)
	rs := etree.NewElement("request-status")
	rs.Space = "CAL"
	rs.SetText(requestStatus)
	resp.AddChild(rs)
	if calendarData != "" {
		cd := etree.NewElement("calendar-data")
		cd.Space = "CAL"
		cd.SetText(calendarData)
		resp.AddChild(cd)
	}
	return resp
}

// PreconditionError builds the D:error body sent with 412 responses. The
// reason is a CalDAV precondition element name, e.g. "no-uid-conflict".
func PreconditionError(reason, href string) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("error")
	root.Space = "D"
	props.DeclareNamespaces(root)
	cond := etree.NewElement(reason)
	cond.Space = "CAL"
	if href != "" {
		h := etree.NewElement("href")
		h.Space = "D"
		h.SetText(href)
		cond.AddChild(h)
	}
	root.AddChild(cond)
	return doc
}

// Serialize renders a document with two-space indentation.
func Serialize(doc *etree.Document) (string, error) {
	doc.Indent(2)
	return doc.WriteToString()
}
