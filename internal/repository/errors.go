// Package repository holds the MongoDB data access layer.  The sentinel
// errors below let handlers distinguish failure scenarios without knowing
// anything about the driver: ErrNotFound becomes a 404, ErrDuplicate a 409
// and ErrInvalidID a 400.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// ErrNotFound is returned when no document matches the requested id or key.
var ErrNotFound = errors.New("No document found with that ID")

// ErrDuplicate is returned when a write violates a unique index, such as a
// second movie with the same title.
var ErrDuplicate = errors.New("Duplicate field value, please use another value")

// ErrInvalidID is returned when a path or body id is not a valid ObjectID.
var ErrInvalidID = errors.New("invalid id")

// ParseID converts a hex string into an ObjectID.
func ParseID(hex string) (bson.ObjectID, error) {
	hex = strings.TrimSpace(hex)
	if hex == "" {
		return bson.ObjectID{}, fmt.Errorf("%w: empty", ErrInvalidID)
	}
	id, err := bson.ObjectIDFromHex(hex)
	if err != nil {
		return bson.ObjectID{}, fmt.Errorf("%w: %q", ErrInvalidID, hex)
	}
	return id, nil
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	}
	return err
}
