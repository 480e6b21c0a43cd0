package props

import (
	"fmt"
	"time"

	"github.com/beevik/etree"
)

// DisplayName is the DAV:displayname property. Lang, when set, is emitted as
// an xml:lang attribute so clients render the value in the language the
// owner stored it in.
type DisplayName struct {
	Value string
	Lang  string
}

func (p DisplayName) Encode() *etree.Element {
	e := textElement(DAV("displayname"), p.Value)
	if p.Lang != "" {
		e.CreateAttr("xml:lang", p.Lang)
	}
	return e
}

// ResourceType is the DAV:resourcetype property. Each entry is rendered as
// an empty child element.
type ResourceType struct {
	Kinds []Name
}

func (p ResourceType) Encode() *etree.Element {
	e := DAV("resourcetype").Element()
	for _, k := range p.Kinds {
		e.AddChild(k.Element())
	}
	return e
}

// GetETag is the DAV:getetag property. The value is emitted quoted.
type GetETag struct {
	Value string
}

func (p GetETag) Encode() *etree.Element {
	return textElement(DAV("getetag"), fmt.Sprintf("%q", p.Value))
}

// GetContentType is the DAV:getcontenttype property.
type GetContentType struct {
	Value string
}

func (p GetContentType) Encode() *etree.Element {
	return textElement(DAV("getcontenttype"), p.Value)
}

// GetLastModified is the DAV:getlastmodified property in RFC 1123 form.
type GetLastModified struct {
	Value time.Time
}

func (p GetLastModified) Encode() *etree.Element {
	return textElement(DAV("getlastmodified"), p.Value.UTC().Format(time.RFC1123))
}

// Owner is the DAV:owner property referencing the principal URL.
type Owner struct {
	Href string
}

func (p Owner) Encode() *etree.Element {
	e := DAV("owner").Element()
	e.AddChild(hrefElement(p.Href))
	return e
}

// CurrentUserPrincipal is the DAV:current-user-principal property.
type CurrentUserPrincipal struct {
	Href string
}

func (p CurrentUserPrincipal) Encode() *etree.Element {
	e := DAV("current-user-principal").Element()
	e.AddChild(hrefElement(p.Href))
	return e
}

// PrincipalURL is the DAV:principal-URL property.
type PrincipalURL struct {
	Href string
}

func (p PrincipalURL) Encode() *etree.Element {
	e := DAV("principal-URL").Element()
	e.AddChild(hrefElement(p.Href))
	return e
}

// PrincipalCollectionSet is the DAV:principal-collection-set property.
type PrincipalCollectionSet struct {
	Href string
}

func (p PrincipalCollectionSet) Encode() *etree.Element {
	e := DAV("principal-collection-set").Element()
	e.AddChild(hrefElement(p.Href))
	return e
}

// SupportedReportSet is the DAV:supported-report-set property. Each report
// name is wrapped in the supported-report/report nesting RFC 3253 requires.
type SupportedReportSet struct {
	Reports []Name
}

func (p SupportedReportSet) Encode() *etree.Element {
	e := DAV("supported-report-set").Element()
	for _, r := range p.Reports {
		sr := DAV("supported-report").Element()
		rep := DAV("report").Element()
		rep.AddChild(r.Element())
		sr.AddChild(rep)
		e.AddChild(sr)
	}
	return e
}

// SyncToken is the DAV:sync-token property.
type SyncToken struct {
	Value string
}

func (p SyncToken) Encode() *etree.Element {
	return textElement(DAV("sync-token"), p.Value)
}

// CurrentUserPrivilegeSet is the DAV:current-user-privilege-set property.
// Each privilege name is wrapped in a D:privilege element.
type CurrentUserPrivilegeSet struct {
	Privileges []Name
}

func (p CurrentUserPrivilegeSet) Encode() *etree.Element {
	e := DAV("current-user-privilege-set").Element()
	for _, priv := range p.Privileges {
		pe := DAV("privilege").Element()
		pe.AddChild(priv.Element())
		e.AddChild(pe)
	}
	return e
}
