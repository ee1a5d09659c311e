package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/iliyamo/flick-backend/internal/model"
	"github.com/iliyamo/flick-backend/internal/queue"
	"github.com/iliyamo/flick-backend/internal/repository"
)

type fakeStore struct {
	saved  map[bson.ObjectID][]bson.ObjectID
	movies map[bson.ObjectID]model.WatchlistEntry
	err    error
}

func (f *fakeStore) SaveWatchlist(_ context.Context, userID bson.ObjectID, list []bson.ObjectID, _ time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.saved[userID] = append([]bson.ObjectID(nil), list...)
	return nil
}

func (f *fakeStore) WatchlistMovies(_ context.Context, ids []bson.ObjectID) ([]model.WatchlistEntry, error) {
	var found []model.WatchlistEntry
	for _, e := range f.movies {
		found = append(found, e)
	}
	return repository.OrderEntries(ids, found), nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.CatalogEvent
	done   chan struct{}
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.CatalogEvent) error {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	p.done <- struct{}{}
	return nil
}

func quiet() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newFixture() (*WatchlistService, *fakeStore, *recordingPublisher, bson.ObjectID, bson.ObjectID) {
	a, b := bson.NewObjectID(), bson.NewObjectID()
	store := &fakeStore{
		saved: map[bson.ObjectID][]bson.ObjectID{},
		movies: map[bson.ObjectID]model.WatchlistEntry{
			a: {ID: a, Title: "alien", Slug: "alien", Card: "card-a.jpg"},
			b: {ID: b, Title: "brazil", Slug: "brazil", Card: "card-b.jpg"},
		},
	}
	pub := &recordingPublisher{done: make(chan struct{}, 8)}
	return NewWatchlistService(store, pub, quiet()), store, pub, a, b
}

func TestWatchlistApply(t *testing.T) {
	svc, store, pub, a, b := newFixture()
	u := &model.User{ID: bson.NewObjectID(), Watchlist: []bson.ObjectID{}}
	ctx := context.Background()

	if _, err := svc.Apply(ctx, u, OpAdd, a.Hex()); err != nil {
		t.Fatal(err)
	}
	got, err := svc.Apply(ctx, u, OpAdd, a.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || len(store.saved[u.ID]) != 1 {
		t.Fatalf("add twice should keep one entry, got %+v", got)
	}

	got, err = svc.Apply(ctx, u, OpAdd, b.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != a || got[1].ID != b || got[1].Title != "brazil" {
		t.Fatalf("got %+v", got)
	}

	got, err = svc.Apply(ctx, u, OpRemove, bson.NewObjectID().Hex())
	if err != nil || len(got) != 2 {
		t.Fatalf("remove absent: %+v, %v", got, err)
	}
	got, err = svc.Apply(ctx, u, OpRemove, a.Hex())
	if err != nil || len(got) != 1 || got[0].ID != b {
		t.Fatalf("remove: %+v, %v", got, err)
	}

	for i := 0; i < 5; i++ {
		select {
		case <-pub.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d events published", i)
		}
	}
	pub.mu.Lock()
	defer pub.mu.Unlock()
	if pub.events[0].Type != queue.WatchlistUpdated || pub.events[0].UserID != u.ID.Hex() {
		t.Fatalf("event = %+v", pub.events[0])
	}
}

func TestWatchlistApply_Rejects(t *testing.T) {
	svc, store, _, a, _ := newFixture()
	u := &model.User{ID: bson.NewObjectID()}
	ctx := context.Background()

	tests := []struct {
		name   string
		op, id string
		want   error
	}{
		{"bad operation", "toggle", a.Hex(), ErrInvalidOperation},
		{"missing id", OpAdd, "", ErrMissingMovieID},
		{"malformed id", OpAdd, "123", repository.ErrInvalidID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Apply(ctx, u, tt.op, tt.id); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if len(store.saved) != 0 {
		t.Fatal("rejected operations must not save")
	}
}

func TestWatchlistApply_SaveFailureLeavesUserUntouched(t *testing.T) {
	svc, store, _, a, _ := newFixture()
	store.err = errors.New("write conflict")
	u := &model.User{ID: bson.NewObjectID()}
	if _, err := svc.Apply(context.Background(), u, OpAdd, a.Hex()); err == nil {
		t.Fatal("expected error")
	}
	if len(u.Watchlist) != 0 {
		t.Fatalf("watchlist changed: %v", u.Watchlist)
	}
}
