package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/iliyamo/flick-backend/internal/query"
	"github.com/iliyamo/flick-backend/internal/repository"
)

// Write actions passed to Resource.OnWrite.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// CreateDecoder builds the document to insert from the request.  rollback,
// when not nil, undoes side effects of decoding (uploaded blobs) and runs if
// the insert fails.
type CreateDecoder[T any] func(c echo.Context) (doc *T, rollback func(), err error)

// UpdateDecoder builds a MongoDB update document from the request.
type UpdateDecoder func(c echo.Context) (update bson.D, rollback func(), err error)

// Resource implements list, get, create, update and delete for one stored
// entity type.  Entity specifics live in the decoders and the schema.
type Resource[T any] struct {
	Store  repository.Store[T]
	Schema query.Schema
	// OnWrite runs after every successful write.  It must not fail the request.
	OnWrite func(c echo.Context, action string, doc *T)
}

func NewResource[T any](store repository.Store[T], schema query.Schema) *Resource[T] {
	return &Resource[T]{Store: store, Schema: schema}
}

// List handles GET /<resource> with filter, sort, fields, page and limit.
func (r *Resource[T]) List(c echo.Context) error {
	spec, err := query.Parse(c.QueryParams(), r.Schema)
	if err != nil {
		return err
	}
	docs, err := r.Store.Find(c.Request().Context(), spec.Build())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "success",
		"results": len(docs),
		"data":    echo.Map{"documents": docs},
	})
}

// Get handles GET /<resource>/:id.  The fields parameter is honoured.
func (r *Resource[T]) Get(c echo.Context) error {
	id, err := repository.ParseID(c.Param("id"))
	if err != nil {
		return err
	}
	proj, err := query.ParseFields(c.QueryParam("fields"))
	if err != nil {
		return err
	}
	doc, err := r.Store.FindByID(c.Request().Context(), id, query.Spec{Projection: proj}.FindOneOptions())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, document(doc))
}

// Create returns a POST handler that inserts what decode builds.
func (r *Resource[T]) Create(decode CreateDecoder[T]) echo.HandlerFunc {
	return func(c echo.Context) error {
		doc, rollback, err := decode(c)
		if err != nil {
			runRollback(rollback)
			return err
		}
		saved, err := r.Store.Insert(c.Request().Context(), doc)
		if err != nil {
			runRollback(rollback)
			return err
		}
		r.written(c, ActionCreated, saved)
		return c.JSON(http.StatusCreated, document(saved))
	}
}

// Update returns a PATCH handler that applies what decode builds.
func (r *Resource[T]) Update(decode UpdateDecoder) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := repository.ParseID(c.Param("id"))
		if err != nil {
			return err
		}
		update, rollback, err := decode(c)
		if err != nil {
			runRollback(rollback)
			return err
		}
		saved, err := r.Store.UpdateByID(c.Request().Context(), id, update)
		if err != nil {
			runRollback(rollback)
			return err
		}
		r.written(c, ActionUpdated, saved)
		return c.JSON(http.StatusOK, document(saved))
	}
}

// Delete handles DELETE /<resource>/:id with 204 and no body.
func (r *Resource[T]) Delete(c echo.Context) error {
	id, err := repository.ParseID(c.Param("id"))
	if err != nil {
		return err
	}
	deleted, err := r.Store.DeleteByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	r.written(c, ActionDeleted, deleted)
	return c.NoContent(http.StatusNoContent)
}

func (r *Resource[T]) written(c echo.Context, action string, doc *T) {
	if r.OnWrite != nil {
		r.OnWrite(c, action, doc)
	}
}

func document(doc any) echo.Map {
	return echo.Map{"status": "success", "data": echo.Map{"document": doc}}
}

func runRollback(fn func()) {
	if fn != nil {
		fn()
	}
}
