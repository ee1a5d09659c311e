package handler

import (
	"net/http"

	"github.com/iliyamo/flick-backend/internal/apperror"
	"github.com/iliyamo/flick-backend/internal/imaging"
	"github.com/iliyamo/flick-backend/internal/media"
	"github.com/iliyamo/flick-backend/internal/model"
	"github.com/iliyamo/flick-backend/internal/query"
	"github.com/iliyamo/flick-backend/internal/repository"
	"github.com/iliyamo/flick-backend/internal/service"
)

// ErrorRules maps the sentinel errors returned by the layers below the
// handlers to HTTP statuses for apperror.Handler.
func ErrorRules() []apperror.Rule {
	return []apperror.Rule{
		{Target: repository.ErrNotFound, Code: http.StatusNotFound, Name: "NotFound"},
		{Target: repository.ErrDuplicate, Code: http.StatusConflict, Name: "Duplicate"},
		{Target: repository.ErrInvalidID, Code: http.StatusBadRequest, Name: "InvalidID"},
		{Target: query.ErrInvalidFilter, Code: http.StatusBadRequest, Name: "InvalidFilter"},
		{Target: query.ErrInvalidSort, Code: http.StatusBadRequest, Name: "InvalidSort"},
		{Target: query.ErrInvalidProjection, Code: http.StatusBadRequest, Name: "InvalidFields"},
		{Target: model.ErrValidation, Code: http.StatusBadRequest, Name: "ValidationError"},
		{Target: model.ErrEmptyPatch, Code: http.StatusBadRequest, Name: "ValidationError"},
		{Target: media.ErrMissingRange, Code: http.StatusBadRequest, Name: "MissingRange"},
		{Target: media.ErrUnsatisfiable, Code: http.StatusRequestedRangeNotSatisfiable, Name: "RangeNotSatisfiable"},
		{Target: imaging.ErrUnsupportedImage, Code: http.StatusBadRequest, Name: "UnsupportedImage"},
		{Target: service.ErrInvalidOperation, Code: http.StatusBadRequest, Name: "InvalidOperation"},
		{Target: service.ErrMissingMovieID, Code: http.StatusBadRequest, Name: "MissingMovieID"},
	}
}
