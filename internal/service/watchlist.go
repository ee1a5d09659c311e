package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/iliyamo/flick-backend/internal/metrics"
	"github.com/iliyamo/flick-backend/internal/model"
	"github.com/iliyamo/flick-backend/internal/queue"
	"github.com/iliyamo/flick-backend/internal/repository"
)

// Watchlist operations accepted in the URL.
const (
	OpAdd    = "add"
	OpRemove = "remove"
)

var (
	ErrInvalidOperation = errors.New("Operation must be either add or remove")
	ErrMissingMovieID   = errors.New("Please provide a movieId")
)

// WatchlistStore persists watchlists and resolves them for display.
type WatchlistStore interface {
	SaveWatchlist(ctx context.Context, userID bson.ObjectID, list []bson.ObjectID, now time.Time) error
	WatchlistMovies(ctx context.Context, ids []bson.ObjectID) ([]model.WatchlistEntry, error)
}

// WatchlistService applies add/remove operations to a user's watchlist.
// Concurrent updates for one user are last-write-wins.
type WatchlistService struct {
	store  WatchlistStore
	events Publisher
	log    *logrus.Entry
	now    func() time.Time
}

func NewWatchlistService(store WatchlistStore, events Publisher, log *logrus.Entry) *WatchlistService {
	return &WatchlistService{store: store, events: events, log: log, now: time.Now}
}

// Apply adds or removes movieID and returns the updated watchlist in display
// form.  Adding a present id and removing an absent one are no-ops that still
// save.  Only the watchlist and updatedAt fields are written.
func (s *WatchlistService) Apply(ctx context.Context, u *model.User, op, movieID string) ([]model.WatchlistEntry, error) {
	if op != OpAdd && op != OpRemove {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOperation, op)
	}
	if movieID == "" {
		return nil, ErrMissingMovieID
	}
	id, err := repository.ParseID(movieID)
	if err != nil {
		return nil, err
	}

	list := u.Watchlist
	if op == OpAdd {
		list = model.AddToWatchlist(list, id)
	} else {
		list = model.RemoveFromWatchlist(list, id)
	}

	now := s.now().UTC()
	if err := s.store.SaveWatchlist(ctx, u.ID, list, now); err != nil {
		return nil, err
	}
	u.Watchlist = list
	u.UpdatedAt = now
	metrics.WatchlistUpdates.WithLabelValues(op).Inc()

	PublishAsync(s.events, s.log, queue.CatalogEvent{
		Type:          queue.WatchlistUpdated,
		MovieID:       id.Hex(),
		UserID:        u.ID.Hex(),
		Operation:     op,
		WatchlistSize: len(list),
		OccurredAt:    now.Format(time.RFC3339),
	})
	return s.List(ctx, u)
}

// List returns the user's watchlist in display form, in saved order.
func (s *WatchlistService) List(ctx context.Context, u *model.User) ([]model.WatchlistEntry, error) {
	return s.store.WatchlistMovies(ctx, u.Watchlist)
}
