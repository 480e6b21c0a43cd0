// Package server implements a CalDAV protocol engine on top of a pluggable
// storage backend.
//
// CaldavHandler is a net/http handler covering the WebDAV and CalDAV
// methods calendar clients rely on: OPTIONS, PROPFIND, PROPPATCH, REPORT
// (calendar-query, calendar-multiget, sync-collection, expand-property),
// MKCALENDAR, GET, PUT, DELETE and scheduling outbox POST. Persistence goes
// through storage.Provider; URL layout goes through URLConverter, with a
// stock implementation for the /principals/<id> and /calendars/<id>/<cal>
// scheme.
//
// Typical wiring:
//
//	store := memory.New()
//	handler := server.NewCaldavHandler("/principals/", "/calendars/", "calendar", store, 1, nil, logger)
//	http.Handle("/principals/", handler)
//	http.Handle("/calendars/", handler)
package server
