// Package queue defines message payloads exchanged over the message broker
// and the consumer that records them.
package queue

import (
	"fmt"
	"strings"
)

// CatalogQueue is the durable queue every catalog event is published to.
const CatalogQueue = "catalog.events"

// Event types.
const (
	MovieCreated     = "movie.created"
	MovieUpdated     = "movie.updated"
	MovieDeleted     = "movie.deleted"
	WatchlistUpdated = "watchlist.updated"
)

// CatalogEvent is published after a successful catalog or watchlist write.
// It carries enough for downstream consumers to log, notify or feed
// analytics without querying the database.  Fields that do not apply to an
// event type are left empty.
type CatalogEvent struct {
	Type          string `json:"type"`
	MovieID       string `json:"movie_id,omitempty"`
	MovieTitle    string `json:"movie_title,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	Operation     string `json:"operation,omitempty"`
	WatchlistSize int    `json:"watchlist_size,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}

// Line renders the event as one human-friendly log line.
func (ev CatalogEvent) Line() string {
	parts := []string{fmt.Sprintf("[%s] %s", ev.OccurredAt, ev.Type)}
	if ev.MovieID != "" {
		parts = append(parts, "movie_id="+ev.MovieID)
	}
	if ev.MovieTitle != "" {
		parts = append(parts, fmt.Sprintf("movie=%q", ev.MovieTitle))
	}
	if ev.UserID != "" {
		parts = append(parts, "user_id="+ev.UserID)
	}
	if ev.Operation != "" {
		parts = append(parts, "operation="+ev.Operation)
	}
	if ev.Type == WatchlistUpdated {
		parts = append(parts, fmt.Sprintf("size=%d", ev.WatchlistSize))
	}
	return strings.Join(parts, " | ") + "\n"
}
