package props

import (
	"strconv"

	"github.com/beevik/etree"
)

// GetCTag is the CS:getctag collection tag. It changes whenever any member
// of the collection changes, so it carries the calendar's sync token.
type GetCTag struct {
	Value string
}

func (p GetCTag) Encode() *etree.Element {
	return textElement(CS("getctag"), p.Value)
}

// AllowedSharingModes is the CS:allowed-sharing-modes property. Sharing is
// not offered, so it always encodes empty.
type AllowedSharingModes struct{}

func (p AllowedSharingModes) Encode() *etree.Element {
	return CS("allowed-sharing-modes").Element()
}

// CalendarColor is the ICAL:calendar-color property.
type CalendarColor struct {
	Value string
}

func (p CalendarColor) Encode() *etree.Element {
	return textElement(Apple("calendar-color"), p.Value)
}

// CalendarOrder is the ICAL:calendar-order property.
type CalendarOrder struct {
	Value int
}

func (p CalendarOrder) Encode() *etree.Element {
	return textElement(Apple("calendar-order"), strconv.Itoa(p.Value))
}
