package server

import (
	"fmt"
	"strings"
)

// ResourceType identifies what kind of resource a request URL addresses.
type ResourceType int

const (
	ResourceUnknown ResourceType = iota
	ResourcePrincipal
	ResourceHomeSet
	ResourceCollection
	ResourceObject
	ResourceScheduleInbox
	ResourceScheduleOutbox
)

func (t ResourceType) String() string {
	switch t {
	case ResourcePrincipal:
		return "principal"
	case ResourceHomeSet:
		return "home-set"
	case ResourceCollection:
		return "collection"
	case ResourceObject:
		return "object"
	case ResourceScheduleInbox:
		return "schedule-inbox"
	case ResourceScheduleOutbox:
		return "schedule-outbox"
	default:
		return "unknown"
	}
}

// Resource is the parsed form of a request URL.
type Resource struct {
	PrincipalID string
	CalendarID  string
	ObjectID    string
	// URI is the path as received, used verbatim in response hrefs.
	URI  string
	Type ResourceType
}

// URLConverter translates between request paths and resources. Embedders
// with their own URL scheme supply an implementation; DefaultURLConverter
// covers the stock layout.
type URLConverter interface {
	ParsePath(path string) (Resource, error)
	EncodePath(res Resource) (string, error)
}

// DefaultURLConverter implements the stock layout:
//
//	<principalRoot><principalID>                      principal
//	<calendarRoot><principalID>                       calendar home set
//	<calendarRoot><principalID>/<calendarID>          calendar collection
//	<calendarRoot><principalID>/<calendarID>/<id>.ics calendar object
//
// The calendar IDs "inbox" and "outbox" address the scheduling collections.
type DefaultURLConverter struct {
	CalendarRoot  string
	PrincipalRoot string
}

const (
	inboxID  = "inbox"
	outboxID = "outbox"
)

func (c DefaultURLConverter) ParsePath(path string) (Resource, error) {
	uri := path
	if !strings.HasPrefix(uri, "/") {
		uri = "/" + uri
	}
	res := Resource{URI: uri}

	if rest, ok := strings.CutPrefix(uri, withSlashes(c.PrincipalRoot)); ok {
		parts := splitPath(rest)
		if len(parts) == 1 {
			res.PrincipalID = parts[0]
			res.Type = ResourcePrincipal
			return res, nil
		}
		return res, fmt.Errorf("unrecognized principal path %q", path)
	}

	rest, ok := strings.CutPrefix(uri, withSlashes(c.CalendarRoot))
	if !ok {
		return res, fmt.Errorf("path %q outside calendar and principal roots", path)
	}
	parts := splitPath(rest)
	switch len(parts) {
	case 1:
		res.PrincipalID = parts[0]
		res.Type = ResourceHomeSet
	case 2:
		res.PrincipalID = parts[0]
		res.CalendarID = parts[1]
		res.Type = collectionType(parts[1])
	case 3:
		res.PrincipalID = parts[0]
		res.CalendarID = parts[1]
		res.ObjectID = strings.TrimSuffix(parts[2], ".ics")
		res.Type = ResourceObject
	default:
		return res, fmt.Errorf("unrecognized calendar path %q", path)
	}
	if res.PrincipalID == "" || (len(parts) > 1 && res.CalendarID == "") {
		return res, fmt.Errorf("empty path segment in %q", path)
	}
	return res, nil
}

func (c DefaultURLConverter) EncodePath(res Resource) (string, error) {
	switch res.Type {
	case ResourcePrincipal:
		return withSlashes(c.PrincipalRoot) + res.PrincipalID + "/", nil
	case ResourceHomeSet:
		return withSlashes(c.CalendarRoot) + res.PrincipalID + "/", nil
	case ResourceCollection, ResourceScheduleInbox, ResourceScheduleOutbox:
		return withSlashes(c.CalendarRoot) + res.PrincipalID + "/" + res.CalendarID + "/", nil
	case ResourceObject:
		return withSlashes(c.CalendarRoot) + res.PrincipalID + "/" + res.CalendarID + "/" + res.ObjectID + ".ics", nil
	default:
		return "", fmt.Errorf("cannot encode resource of type %s", res.Type)
	}
}

func collectionType(calendarID string) ResourceType {
	switch calendarID {
	case inboxID:
		return ResourceScheduleInbox
	case outboxID:
		return ResourceScheduleOutbox
	default:
		return ResourceCollection
	}
}

func splitPath(rest string) []string {
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

func withSlashes(root string) string {
	if !strings.HasPrefix(root, "/") {
		root = "/" + root
	}
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}
	return root
}
