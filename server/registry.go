package server

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/samber/mo"

	"github.com/calde-dev/calde/internal/xml/props"
	"github.com/calde-dev/calde/server/ical"
	"github.com/calde-dev/calde/server/storage"
)

// errPropAbsent marks a property that is well-formed but not defined on the
// resource. Absent properties are silently omitted from 200 propstats; any
// other resolver error fails the whole request.
var errPropAbsent = errors.New("property not defined on resource")

// propEnv is the read-only environment a resolver runs in: the request
// context plus the specific calendar or event being rendered.
type propEnv struct {
	ctx  context.Context
	h    *CaldavHandler
	rctx *RequestContext

	// cal is the calendar being rendered, which during home-set listings
	// differs from rctx.Calendar.
	cal   *storage.Calendar
	event *storage.Event

	// etag memoizes the provider ETag for the event.
	etag string
}

// Resolver produces the value of one property. Resolvers never panic; they
// signal absence with errPropAbsent and backend trouble with any other
// error.
type Resolver func(env *propEnv) mo.Result[props.Property]

func (env *propEnv) eventETag() (string, error) {
	if env.etag != "" {
		return env.etag, nil
	}
	tag, err := env.h.Provider.GetETag(env.ctx, env.event)
	if err != nil {
		return "", fmt.Errorf("etag for event %s: %w", env.event.EventID, err)
	}
	env.etag = tag
	return tag, nil
}

func ok(p props.Property) mo.Result[props.Property] {
	return mo.Ok(p)
}

func absent() mo.Result[props.Property] {
	return mo.Err[props.Property](errPropAbsent)
}

func fail(err error) mo.Result[props.Property] {
	return mo.Err[props.Property](err)
}

// resolveProps runs the requested names through a resolver table in request
// order. Unknown or absent properties come back in missing; a resolver
// failure aborts with the error.
func resolveProps(env *propEnv, table map[props.Name]Resolver, requested []props.Name) (found []props.Property, missing []props.Name, err error) {
	for _, name := range requested {
		resolver, known := table[name]
		if !known || resolver == nil {
			missing = append(missing, name)
			continue
		}
		result := resolver(env)
		if result.IsError() {
			if errors.Is(result.Error(), errPropAbsent) {
				missing = append(missing, name)
				continue
			}
			return nil, nil, result.Error()
		}
		found = append(found, result.MustGet())
	}
	return found, missing, nil
}

// Resolvers shared by more than one resource type.

func resolveCurrentUserPrincipal(env *propEnv) mo.Result[props.Property] {
	return ok(props.CurrentUserPrincipal{Href: env.rctx.PrincipalURL})
}

func resolvePrincipalURL(env *propEnv) mo.Result[props.Property] {
	return ok(props.PrincipalURL{Href: env.rctx.PrincipalURL})
}

func resolveOwner(env *propEnv) mo.Result[props.Property] {
	return ok(props.Owner{Href: env.rctx.PrincipalURL})
}

func resolveCalendarHomeSet(env *propEnv) mo.Result[props.Property] {
	return ok(props.CalendarHomeSet{Href: env.rctx.HomeSetURL})
}

func resolveScheduleInboxURL(env *propEnv) mo.Result[props.Property] {
	return ok(props.ScheduleInboxURL{Href: env.rctx.InboxURL})
}

func resolveScheduleOutboxURL(env *propEnv) mo.Result[props.Property] {
	return ok(props.ScheduleOutboxURL{Href: env.rctx.OutboxURL})
}

// resolveCalendarUserAddressSet prefers the display name when it is itself
// an email address, then the stored email. Neither present means an empty
// address set.
func resolveCalendarUserAddressSet(env *propEnv) mo.Result[props.Property] {
	var addrs []string
	p := env.rctx.Principal
	switch {
	case looksLikeEmail(p.DisplayName):
		addrs = []string{"mailto:" + p.DisplayName}
	case p.Email != "":
		addrs = []string{"mailto:" + p.Email}
	}
	return ok(props.CalendarUserAddressSet{Addresses: addrs})
}

func looksLikeEmail(s string) bool {
	at := strings.IndexByte(s, '@')
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t")
}

var principalResolvers = map[props.Name]Resolver{
	props.DAV("displayname"): func(env *propEnv) mo.Result[props.Property] {
		return ok(props.DisplayName{Value: env.rctx.Principal.DisplayName})
	},
	props.DAV("resourcetype"): func(env *propEnv) mo.Result[props.Property] {
		return ok(props.ResourceType{Kinds: []props.Name{
			props.DAV("collection"), props.DAV("principal"),
		}})
	},
	props.DAV("current-user-principal"): resolveCurrentUserPrincipal,
	props.DAV("principal-URL"):          resolvePrincipalURL,
	props.DAV("owner"):                  resolveOwner,
	props.DAV("principal-collection-set"): func(env *propEnv) mo.Result[props.Property] {
		return ok(props.PrincipalCollectionSet{Href: parentCollection(env.rctx.PrincipalURL)})
	},
	props.DAV("supported-report-set"): func(env *propEnv) mo.Result[props.Property] {
		return ok(props.SupportedReportSet{Reports: []props.Name{
			props.DAV("expand-property"),
			props.DAV("principal-search-property-set"),
			props.DAV("principal-property-search"),
		}})
	},
	props.CalDAV("calendar-home-set"):         resolveCalendarHomeSet,
	props.CalDAV("calendar-user-address-set"): resolveCalendarUserAddressSet,
	props.CalDAV("schedule-inbox-URL"):        resolveScheduleInboxURL,
	props.CalDAV("schedule-outbox-URL"):       resolveScheduleOutboxURL,
}

var homeSetResolvers = map[props.Name]Resolver{
	props.DAV("resourcetype"): func(env *propEnv) mo.Result[props.Property] {
		return ok(props.ResourceType{Kinds: []props.Name{props.DAV("collection")}})
	},
	props.DAV("current-user-principal"): resolveCurrentUserPrincipal,
	props.DAV("principal-URL"):          resolvePrincipalURL,
	props.DAV("owner"):                  resolveOwner,
	props.DAV("supported-report-set"): func(env *propEnv) mo.Result[props.Property] {
		return ok(props.SupportedReportSet{Reports: []props.Name{
			props.DAV("sync-collection"),
		}})
	},
	props.CalDAV("calendar-home-set"):         resolveCalendarHomeSet,
	props.CalDAV("calendar-user-address-set"): resolveCalendarUserAddressSet,
	props.CalDAV("schedule-inbox-URL"):        resolveScheduleInboxURL,
	props.CalDAV("schedule-outbox-URL"):       resolveScheduleOutboxURL,
}

var calendarResolvers = map[props.Name]Resolver{
	props.DAV("displayname"): func(env *propEnv) mo.Result[props.Property] {
		return ok(props.DisplayName{Value: env.cal.DisplayName, Lang: env.cal.DisplayNameLang})
	},
	props.DAV("resourcetype"): func(env *propEnv) mo.Result[props.Property] {
		return ok(props.ResourceType{Kinds: []props.Name{
			props.DAV("collection"), props.CalDAV("calendar"),
		}})
	},
	props.DAV("getcontenttype"): func(env *propEnv) mo.Result[props.Property] {
		return ok(props.GetContentType{Value: "text/calendar"})
	},
	props.DAV("owner"):                  resolveOwner,
	props.DAV("current-user-principal"): resolveCurrentUserPrincipal,
	props.DAV("principal-URL"):          resolvePrincipalURL,
	props.DAV("current-user-privilege-set"): func(env *propEnv) mo.Result[props.Property] {
		privileges := []props.Name{
			props.DAV("read"),
			props.DAV("read-acl"),
			props.DAV("read-current-user-privilege-set"),
		}
		if !env.cal.ReadOnly {
			privileges = append(privileges,
				props.DAV("write"),
				props.DAV("write-content"),
				props.DAV("write-properties"),
				props.DAV("bind"),
				props.DAV("unbind"),
			)
		}
		return ok(props.CurrentUserPrivilegeSet{Privileges: privileges})
	},
	props.DAV("supported-report-set"): func(env *propEnv) mo.Result[props.Property] {
		return ok(props.SupportedReportSet{Reports: []props.Name{
			props.CalDAV("calendar-query"),
			props.CalDAV("calendar-multiget"),
			props.DAV("sync-collection"),
			props.DAV("expand-property"),
		}})
	},
	props.DAV("sync-token"): func(env *propEnv) mo.Result[props.Property] {
		return ok(props.SyncToken{Value: env.cal.SyncToken})
	},
	props.CS("getctag"): func(env *propEnv) mo.Result[props.Property] {
		return ok(props.GetCTag{Value: env.cal.SyncToken})
	},
	props.CS("allowed-sharing-modes"): func(env *propEnv) mo.Result[props.Property] {
		return ok(props.AllowedSharingModes{})
	},
	props.CalDAV("calendar-description"): func(env *propEnv) mo.Result[props.Property] {
		if env.cal.Description == "" {
			return absent()
		}
		return ok(props.CalendarDescription{Value: env.cal.Description, Lang: env.cal.DescriptionLang})
	},
	props.CalDAV("calendar-timezone"): func(env *propEnv) mo.Result[props.Property] {
		if env.cal.Timezone == "" {
			return absent()
		}
		return ok(props.CalendarTimezone{Value: env.cal.Timezone})
	},
	props.CalDAV("supported-calendar-component-set"): func(env *propEnv) mo.Result[props.Property] {
		return ok(props.SupportedCalendarComponentSet{Components: []string{"VEVENT"}})
	},
	props.CalDAV("schedule-calendar-transp"): func(env *propEnv) mo.Result[props.Property] {
		return ok(props.ScheduleCalendarTransp{Transparent: false})
	},
	props.Apple("calendar-color"): func(env *propEnv) mo.Result[props.Property] {
		if env.cal.Color == "" {
			return absent()
		}
		return ok(props.CalendarColor{Value: env.cal.Color})
	},
	props.Apple("calendar-order"): func(env *propEnv) mo.Result[props.Property] {
		return ok(props.CalendarOrder{Value: env.cal.Order})
	},
}

var eventResolvers = map[props.Name]Resolver{
	props.DAV("getetag"): func(env *propEnv) mo.Result[props.Property] {
		tag, err := env.eventETag()
		if err != nil {
			return fail(err)
		}
		return ok(props.GetETag{Value: tag})
	},
	props.DAV("getcontenttype"): func(env *propEnv) mo.Result[props.Property] {
		return ok(props.GetContentType{Value: "text/calendar; charset=utf-8; component=VEVENT"})
	},
	props.DAV("getlastmodified"): func(env *propEnv) mo.Result[props.Property] {
		if env.event.LastModified.IsZero() {
			return absent()
		}
		return ok(props.GetLastModified{Value: env.event.LastModified})
	},
	props.CalDAV("calendar-data"): func(env *propEnv) mo.Result[props.Property] {
		if env.event.ICalData != "" {
			return ok(props.CalendarData{Value: env.event.ICalData})
		}
		data, err := ical.BuildICS([]*storage.Event{env.event}, env.cal, env.h.prodID())
		if err != nil {
			return fail(err)
		}
		return ok(props.CalendarData{Value: data})
	},
	props.CalDAV("schedule-tag"): func(env *propEnv) mo.Result[props.Property] {
		if env.event.ScheduleTag != "" {
			return ok(props.ScheduleTag{Value: env.event.ScheduleTag})
		}
		tag, err := env.eventETag()
		if err != nil {
			return fail(err)
		}
		return ok(props.ScheduleTag{Value: tag})
	},
}

func parentCollection(url string) string {
	trimmed := strings.TrimSuffix(url, "/")
	dir := path.Dir(trimmed)
	if dir == "." || dir == "/" {
		return "/"
	}
	return dir + "/"
}

func resolverTable(t ResourceType) map[props.Name]Resolver {
	switch t {
	case ResourcePrincipal:
		return principalResolvers
	case ResourceHomeSet:
		return homeSetResolvers
	case ResourceCollection:
		return calendarResolvers
	case ResourceObject:
		return eventResolvers
	case ResourceScheduleInbox:
		return inboxResolvers
	case ResourceScheduleOutbox:
		return outboxResolvers
	default:
		return nil
	}
}
