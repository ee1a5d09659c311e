package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/iliyamo/flick-backend/internal/database"
	"github.com/iliyamo/flick-backend/internal/model"
)

// UserRepo reads and writes the users collection.  Watchlist lookups read
// the movies collection.
type UserRepo struct {
	users  *mongo.Collection
	movies *mongo.Collection
}

func NewUserRepo(db *mongo.Database) *UserRepo {
	return &UserRepo{
		users:  db.Collection(database.Users),
		movies: db.Collection(database.Movies),
	}
}

// FindByEmail fetches a user by normalized email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := r.users.FindOne(ctx, bson.D{{Key: "email", Value: model.NormalizeEmail(email)}}).Decode(&u)
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// FindOrCreate returns the user stored under candidate's email, inserting
// candidate when there is none.  An existing record is returned unchanged.
// created reports whether an insert happened.
func (r *UserRepo) FindOrCreate(ctx context.Context, candidate *model.User) (u *model.User, created bool, err error) {
	u, err = r.FindByEmail(ctx, candidate.Email)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	res, err := r.users.InsertOne(ctx, candidate)
	if err != nil {
		err = translate(err)
		if errors.Is(err, ErrDuplicate) {
			// a concurrent sign-in for the same email won the insert
			if u, ferr := r.FindByEmail(ctx, candidate.Email); ferr == nil {
				return u, false, nil
			}
		}
		return nil, false, err
	}
	out := *candidate
	if id, ok := res.InsertedID.(bson.ObjectID); ok {
		out.ID = id
	}
	return &out, true, nil
}

// SaveWatchlist overwrites only the watchlist and updatedAt fields.  No other
// field is validated or touched.  Concurrent saves for one user are
// last-write-wins.
func (r *UserRepo) SaveWatchlist(ctx context.Context, id bson.ObjectID, list []bson.ObjectID, now time.Time) error {
	if list == nil {
		list = []bson.ObjectID{}
	}
	res, err := r.users.UpdateOne(ctx, byID(id), bson.D{{Key: "$set", Value: bson.D{
		{Key: "watchlist", Value: list},
		{Key: "updatedAt", Value: now},
	}}})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// WatchlistMovies resolves ids to their display projection, preserving the
// order of ids.  Ids whose movie was deleted are skipped.
func (r *UserRepo) WatchlistMovies(ctx context.Context, ids []bson.ObjectID) ([]model.WatchlistEntry, error) {
	out := []model.WatchlistEntry{}
	if len(ids) == 0 {
		return out, nil
	}
	opts := options.Find().SetProjection(bson.D{
		{Key: "title", Value: 1},
		{Key: "slug", Value: 1},
		{Key: "card", Value: 1},
	})
	cur, err := r.movies.Find(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}, opts)
	if err != nil {
		return nil, translate(err)
	}
	var found []model.WatchlistEntry
	if err := cur.All(ctx, &found); err != nil {
		return nil, err
	}
	return OrderEntries(ids, found), nil
}

// OrderEntries arranges entries in the order of ids, dropping ids without an
// entry.
func OrderEntries(ids []bson.ObjectID, entries []model.WatchlistEntry) []model.WatchlistEntry {
	index := make(map[bson.ObjectID]model.WatchlistEntry, len(entries))
	for _, e := range entries {
		index[e.ID] = e
	}
	out := make([]model.WatchlistEntry, 0, len(ids))
	for _, id := range ids {
		if e, ok := index[id]; ok {
			out = append(out, e)
		}
	}
	return out
}
