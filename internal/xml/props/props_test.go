package props

import (
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, p Property) string {
	t.Helper()
	doc := etree.NewDocument()
	doc.SetRoot(p.Encode())
	out, err := doc.WriteToString()
	require.NoError(t, err)
	return out
}

func TestNameFromElement(t *testing.T) {
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(
		`<x:propfind xmlns:x="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">`+
			`<x:prop><x:displayname/><c:calendar-data/></x:prop></x:propfind>`))

	prop := doc.Root().ChildElements()[0]
	children := prop.ChildElements()
	require.Len(t, children, 2)

	assert.Equal(t, DAV("displayname"), FromElement(children[0]))
	assert.Equal(t, CalDAV("calendar-data"), FromElement(children[1]))
}

func TestNameString(t *testing.T) {
	assert.Equal(t, "D:displayname", DAV("displayname").String())
	assert.Equal(t, "CAL:calendar-data", CalDAV("calendar-data").String())
	assert.Equal(t, "{urn:example}foo", Name{Space: "urn:example", Local: "foo"}.String())
}

func TestDisplayNameLang(t *testing.T) {
	out := render(t, DisplayName{Value: "Arbeit", Lang: "de"})
	assert.Contains(t, out, `xml:lang="de"`)
	assert.Contains(t, out, ">Arbeit<")

	out = render(t, DisplayName{Value: "Work"})
	assert.NotContains(t, out, "xml:lang")
}

func TestResourceTypeKinds(t *testing.T) {
	out := render(t, ResourceType{Kinds: []Name{DAV("collection"), CalDAV("calendar")}})
	assert.Contains(t, out, "<D:collection/>")
	assert.Contains(t, out, "<CAL:calendar/>")
}

func TestGetETagQuoted(t *testing.T) {
	out := render(t, GetETag{Value: "abc"})
	assert.Contains(t, out, `"abc"`)
}

func TestGetLastModifiedFormat(t *testing.T) {
	out := render(t, GetLastModified{Value: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)})
	assert.Contains(t, out, "Mon, 02 Mar 2026 09:00:00 UTC")
}

func TestSupportedReportSetNesting(t *testing.T) {
	out := render(t, SupportedReportSet{Reports: []Name{CalDAV("calendar-query")}})
	assert.Contains(t, out, "<D:supported-report><D:report><CAL:calendar-query/></D:report></D:supported-report>")
}

func TestCurrentUserPrivilegeSet(t *testing.T) {
	out := render(t, CurrentUserPrivilegeSet{Privileges: []Name{DAV("read"), CalDAV("schedule-send")}})
	assert.Contains(t, out, "<D:privilege><D:read/></D:privilege>")
	assert.Contains(t, out, "<D:privilege><CAL:schedule-send/></D:privilege>")
}

func TestHrefProperties(t *testing.T) {
	tests := []struct {
		name string
		prop Property
		tag  string
	}{
		{name: "owner", prop: Owner{Href: "/p/alice/"}, tag: "D:owner"},
		{name: "current-user-principal", prop: CurrentUserPrincipal{Href: "/p/alice/"}, tag: "D:current-user-principal"},
		{name: "calendar-home-set", prop: CalendarHomeSet{Href: "/cal/alice/"}, tag: "CAL:calendar-home-set"},
		{name: "schedule-inbox", prop: ScheduleInboxURL{Href: "/cal/alice/inbox/"}, tag: "CAL:schedule-inbox-URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := render(t, tt.prop)
			assert.Contains(t, out, "<"+tt.tag+">")
			assert.Contains(t, out, "<D:href>")
		})
	}
}

func TestCalendarUserAddressSet(t *testing.T) {
	out := render(t, CalendarUserAddressSet{Addresses: []string{"mailto:a@x.com", "mailto:b@x.com"}})
	assert.Contains(t, out, "<D:href>mailto:a@x.com</D:href>")
	assert.Contains(t, out, "<D:href>mailto:b@x.com</D:href>")
}

func TestSupportedCalendarComponentSet(t *testing.T) {
	out := render(t, SupportedCalendarComponentSet{Components: []string{"VEVENT"}})
	assert.Contains(t, out, `<CAL:comp name="VEVENT"/>`)
}

func TestScheduleCalendarTransp(t *testing.T) {
	assert.Contains(t, render(t, ScheduleCalendarTransp{}), "<CAL:opaque/>")
	assert.Contains(t, render(t, ScheduleCalendarTransp{Transparent: true}), "<CAL:transparent/>")
}

func TestExtensions(t *testing.T) {
	assert.Contains(t, render(t, GetCTag{Value: "c/9"}), "<CS:getctag>c/9</CS:getctag>")
	assert.Contains(t, render(t, CalendarColor{Value: "#00FF00"}), "<ICAL:calendar-color>#00FF00</ICAL:calendar-color>")
	assert.Contains(t, render(t, CalendarOrder{Value: 3}), "<ICAL:calendar-order>3</ICAL:calendar-order>")
	assert.Equal(t, "<CS:allowed-sharing-modes/>", render(t, AllowedSharingModes{}))
}

func TestEmptyEchoesName(t *testing.T) {
	assert.Equal(t, "<CAL:calendar-timezone/>", render(t, Empty{Name: CalDAV("calendar-timezone")}))
}
