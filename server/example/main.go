// Command example runs a small CalDAV server backed by the in-memory store,
// seeded with one principal and one calendar. Log in as alice with any
// password.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/calde-dev/calde/server"
	"github.com/calde-dev/calde/server/storage"
	"github.com/calde-dev/calde/server/storage/memory"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	store := memory.New()
	store.AddPrincipal(&storage.Principal{
		PrincipalID: "alice",
		DisplayName: "Alice",
		Email:       "alice@example.com",
	})
	ctx := context.Background()
	if _, err := store.CreateCalendar(ctx, "alice", &storage.Calendar{
		CalendarID:  "default",
		DisplayName: "Default",
		Description: "Alice's calendar",
	}); err != nil {
		logger.Error("seed calendar", "error", err)
		os.Exit(1)
	}
	if _, err := store.CreateEvent(ctx, "alice", "default", &storage.Event{
		EventID:   "welcome",
		Summary:   "Welcome to calde",
		StartDate: time.Now().UTC().Truncate(time.Hour).Add(time.Hour),
		Duration:  30 * time.Minute,
	}); err != nil {
		logger.Error("seed event", "error", err)
		os.Exit(1)
	}

	handler := server.NewCaldavHandler("/principals/", "/calendars/", "calde", store, 1, nil, logger)
	mux := http.NewServeMux()
	mux.Handle("/principals/", handler)
	mux.Handle("/calendars/", handler)

	logger.Info("listening", "addr", ":8080")
	if err := http.ListenAndServe(":8080", mux); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}
