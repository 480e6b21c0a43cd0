// Package xml holds the WebDAV document plumbing shared by the CalDAV
// server: multistatus builders, the error body helpers the protocol
// handlers emit, and namespace-agnostic element lookup.
package xml

import "github.com/beevik/etree"

// FirstByLocalName walks the subtree rooted at e depth-first and returns the
// first element whose local tag matches name, regardless of which namespace
// prefix the client chose. Returns nil when no such element exists.
func FirstByLocalName(e *etree.Element, name string) *etree.Element {
	if e == nil {
		return nil
	}
	if e.Tag == name {
		return e
	}
	for _, child := range e.ChildElements() {
		if found := FirstByLocalName(child, name); found != nil {
			return found
		}
	}
	return nil
}

// ChildrenByLocalName returns the direct child elements of e whose local tag
// matches name, regardless of namespace prefix.
func ChildrenByLocalName(e *etree.Element, name string) []*etree.Element {
	if e == nil {
		return nil
	}
	var out []*etree.Element
	for _, child := range e.ChildElements() {
		if child.Tag == name {
			out = append(out, child)
		}
	}
	return out
}
