package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/iliyamo/flick-backend/internal/query"
)

// Store is the storage contract behind the generic resource handlers.
// T is the stored document type.
type Store[T any] interface {
	Find(ctx context.Context, q query.Query) ([]T, error)
	FindByID(ctx context.Context, id bson.ObjectID, opts *options.FindOneOptionsBuilder) (*T, error)
	Insert(ctx context.Context, doc *T) (*T, error)
	UpdateByID(ctx context.Context, id bson.ObjectID, update bson.D) (*T, error)
	DeleteByID(ctx context.Context, id bson.ObjectID) (*T, error)
}

// Collection implements Store over one MongoDB collection.
type Collection[T any] struct {
	coll *mongo.Collection
}

// NewCollection binds a typed store to coll.
func NewCollection[T any](coll *mongo.Collection) *Collection[T] {
	return &Collection[T]{coll: coll}
}

func byID(id bson.ObjectID) bson.D { return bson.D{{Key: "_id", Value: id}} }

// Find executes a composed list query.  An empty result is an empty slice,
// never nil, so it renders as [] in JSON.
func (c *Collection[T]) Find(ctx context.Context, q query.Query) ([]T, error) {
	filter := q.Filter
	if filter == nil {
		filter = bson.D{}
	}
	var (
		cur *mongo.Cursor
		err error
	)
	if q.Options != nil {
		cur, err = c.coll.Find(ctx, filter, q.Options)
	} else {
		cur, err = c.coll.Find(ctx, filter)
	}
	if err != nil {
		return nil, translate(err)
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.coll.Name(), err)
	}
	return out, nil
}

// FindByID returns ErrNotFound when no document has the id.
func (c *Collection[T]) FindByID(ctx context.Context, id bson.ObjectID, opts *options.FindOneOptionsBuilder) (*T, error) {
	var res *mongo.SingleResult
	if opts != nil {
		res = c.coll.FindOne(ctx, byID(id), opts)
	} else {
		res = c.coll.FindOne(ctx, byID(id))
	}
	var doc T
	if err := res.Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return &doc, nil
}

// Insert stores doc and returns it as persisted, including the generated id.
func (c *Collection[T]) Insert(ctx context.Context, doc *T) (*T, error) {
	res, err := c.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, translate(err)
	}
	id, ok := res.InsertedID.(bson.ObjectID)
	if !ok {
		return nil, fmt.Errorf("insert %s: unexpected id type %T", c.coll.Name(), res.InsertedID)
	}
	return c.FindByID(ctx, id, nil)
}

// UpdateByID applies update and returns the document after the change.
func (c *Collection[T]) UpdateByID(ctx context.Context, id bson.ObjectID, update bson.D) (*T, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc T
	if err := c.coll.FindOneAndUpdate(ctx, byID(id), update, opts).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return &doc, nil
}

// DeleteByID removes the document and returns what was deleted.
func (c *Collection[T]) DeleteByID(ctx context.Context, id bson.ObjectID) (*T, error) {
	var doc T
	if err := c.coll.FindOneAndDelete(ctx, byID(id)).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return &doc, nil
}
