// Package props defines the typed WebDAV/CalDAV properties the server can
// encode into multistatus responses, together with the qualified names used
// to key the property registry.
package props

import "github.com/beevik/etree"

// Namespace URIs used across CalDAV documents.
const (
	NSDav            = "DAV:"
	NSCalDAV         = "urn:ietf:params:xml:ns:caldav"
	NSCalendarServer = "http://calendarserver.org/ns/"
	NSAppleICal      = "http://apple.com/ns/ical/"
)

// prefixes maps each namespace URI to the prefix declared on document
// roots.
var prefixes = map[string]string{
	NSDav:            "D",
	NSCalDAV:         "CAL",
	NSCalendarServer: "CS",
	NSAppleICal:      "ICAL",
}

// Prefix returns the canonical prefix for a namespace URI, or "" when the
// namespace is not one we declare.
func Prefix(ns string) string {
	return prefixes[ns]
}

// DeclareNamespaces adds xmlns attributes for every known namespace to the
// given root element.
func DeclareNamespaces(root *etree.Element) {
	root.CreateAttr("xmlns:D", NSDav)
	root.CreateAttr("xmlns:CAL", NSCalDAV)
	root.CreateAttr("xmlns:CS", NSCalendarServer)
	root.CreateAttr("xmlns:ICAL", NSAppleICal)
}

// Name is the qualified name of a property: a full namespace URI plus the
// local element name. Two requests for the same local name in different
// namespaces are distinct properties.
type Name struct {
	Space string
	Local string
}

// DAV returns a qualified name in the DAV: namespace.
func DAV(local string) Name { return Name{Space: NSDav, Local: local} }

// CalDAV returns a qualified name in the CalDAV namespace.
func CalDAV(local string) Name { return Name{Space: NSCalDAV, Local: local} }

// CS returns a qualified name in the calendarserver.org namespace.
func CS(local string) Name { return Name{Space: NSCalendarServer, Local: local} }

// Apple returns a qualified name in the Apple iCal namespace.
func Apple(local string) Name { return Name{Space: NSAppleICal, Local: local} }

func (n Name) String() string {
	if p := Prefix(n.Space); p != "" {
		return p + ":" + n.Local
	}
	return "{" + n.Space + "}" + n.Local
}

// Element creates an empty etree element for this name, carrying the
// canonical prefix when the namespace is one the server declares.
func (n Name) Element() *etree.Element {
	e := etree.NewElement(n.Local)
	e.Space = Prefix(n.Space)
	return e
}

// FromElement derives the qualified name of a parsed element, resolving the
// prefix the client used against the namespace declarations in scope.
func FromElement(e *etree.Element) Name {
	return Name{Space: e.NamespaceURI(), Local: e.Tag}
}

// Property is anything that can render itself as a prop child element in a
// multistatus propstat block.
type Property interface {
	Encode() *etree.Element
}

// Empty is a property that renders as a bare element with no content. It is
// used to echo property names back in status-only propstat blocks, e.g. after
// a successful or rejected PROPPATCH.
type Empty struct {
	Name Name
}

func (p Empty) Encode() *etree.Element { return p.Name.Element() }

// Raw wraps a pre-built element so callers can emit properties the typed set
// does not cover.
type Raw struct {
	Elem *etree.Element
}

func (p Raw) Encode() *etree.Element { return p.Elem }

func hrefElement(value string) *etree.Element {
	e := DAV("href").Element()
	e.SetText(value)
	return e
}

func textElement(n Name, value string) *etree.Element {
	e := n.Element()
	e.SetText(value)
	return e
}
