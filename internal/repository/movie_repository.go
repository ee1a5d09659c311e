package repository

import (
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/iliyamo/flick-backend/internal/database"
	"github.com/iliyamo/flick-backend/internal/model"
)

// NewMovieRepo returns the store for the movies collection.  Movies need
// nothing beyond the generic operations.
func NewMovieRepo(db *mongo.Database) *Collection[model.Movie] {
	return NewCollection[model.Movie](db.Collection(database.Movies))
}
