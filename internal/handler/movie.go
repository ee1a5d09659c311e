package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/iliyamo/flick-backend/internal/apperror"
	"github.com/iliyamo/flick-backend/internal/model"
	"github.com/iliyamo/flick-backend/internal/query"
	"github.com/iliyamo/flick-backend/internal/queue"
	"github.com/iliyamo/flick-backend/internal/repository"
	"github.com/iliyamo/flick-backend/internal/service"
)

// MovieHandler serves /movies.  Reads go straight to the generic resource;
// writes accept multipart forms with card, poster and media files (or plain
// JSON with blob names), and after each write the response cache is dropped
// and a catalog event is published.
type MovieHandler struct {
	res        *Resource[model.Movie]
	uploader   *Uploader
	events     service.Publisher
	invalidate func(ctx context.Context) error
	log        *logrus.Entry
	maxUpload  int64
	now        func() time.Time

	create echo.HandlerFunc
	update echo.HandlerFunc
}

// NewMovieHandler wires the movie endpoints.  invalidate may be nil when no
// response cache is configured.
func NewMovieHandler(store repository.Store[model.Movie], up *Uploader, events service.Publisher,
	invalidate func(ctx context.Context) error, log *logrus.Entry, maxUpload int64) *MovieHandler {
	if events == nil {
		events = service.NopPublisher{}
	}
	h := &MovieHandler{
		res:        NewResource(store, query.Schema(model.MovieSchema)),
		uploader:   up,
		events:     events,
		invalidate: invalidate,
		log:        log,
		maxUpload:  maxUpload,
		now:        time.Now,
	}
	h.res.OnWrite = h.afterWrite
	h.create = h.res.Create(h.decodeCreate)
	h.update = h.res.Update(h.decodeUpdate)
	return h
}

func (h *MovieHandler) List(c echo.Context) error   { return h.res.List(c) }
func (h *MovieHandler) Get(c echo.Context) error    { return h.res.Get(c) }
func (h *MovieHandler) Create(c echo.Context) error { return h.create(c) }
func (h *MovieHandler) Update(c echo.Context) error { return h.update(c) }
func (h *MovieHandler) Delete(c echo.Context) error { return h.res.Delete(c) }

func (h *MovieHandler) decodeCreate(c echo.Context) (*model.Movie, func(), error) {
	var in model.MovieInput
	form, err := h.readBody(c, func(v url.Values) error {
		var perr error
		in, perr = movieInputFromValues(v)
		return perr
	}, &in)
	if err != nil {
		return nil, nil, err
	}

	assets, rollback, err := h.uploader.Store(c.Request().Context(), form)
	if err != nil {
		return nil, nil, err
	}
	if assets.Card != "" {
		in.Card = assets.Card
	}
	if assets.Poster != "" {
		in.Poster = assets.Poster
	}
	if assets.Media != "" {
		in.Media = assets.Media
	}

	m, err := model.NewMovie(in, h.now().UTC())
	if err != nil {
		return nil, rollback, err
	}
	return m, rollback, nil
}

func (h *MovieHandler) decodeUpdate(c echo.Context) (bson.D, func(), error) {
	var p model.MoviePatch
	form, err := h.readBody(c, func(v url.Values) error {
		var perr error
		p, perr = moviePatchFromValues(v)
		return perr
	}, &p)
	if err != nil {
		return nil, nil, err
	}

	assets, rollback, err := h.uploader.Store(c.Request().Context(), form)
	if err != nil {
		return nil, nil, err
	}
	if assets.Card != "" {
		p.Card = &assets.Card
	}
	if assets.Poster != "" {
		p.Poster = &assets.Poster
	}
	if assets.Media != "" {
		p.Media = &assets.Media
	}

	update, err := p.Update(h.now().UTC())
	if err != nil {
		return nil, rollback, err
	}
	return update, rollback, nil
}

// readBody decodes a multipart or urlencoded form through fromValues, or a
// JSON body into jsonDst.  The multipart form is returned so its files can
// be uploaded.
func (h *MovieHandler) readBody(c echo.Context, fromValues func(url.Values) error, jsonDst any) (*multipart.Form, error) {
	req := c.Request()
	if h.maxUpload > 0 {
		req.Body = http.MaxBytesReader(c.Response(), req.Body, h.maxUpload)
	}
	ct := req.Header.Get(echo.HeaderContentType)
	switch {
	case strings.HasPrefix(ct, echo.MIMEMultipartForm):
		form, err := c.MultipartForm()
		if err != nil {
			return nil, bodyError(err)
		}
		return form, fromValues(form.Value)
	case strings.HasPrefix(ct, echo.MIMEApplicationForm):
		values, err := c.FormParams()
		if err != nil {
			return nil, bodyError(err)
		}
		return nil, fromValues(values)
	default:
		if req.ContentLength == 0 {
			return nil, nil
		}
		if err := json.NewDecoder(req.Body).Decode(jsonDst); err != nil {
			return nil, bodyError(err)
		}
		return nil, nil
	}
}

func bodyError(err error) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return apperror.New(http.StatusRequestEntityTooLarge, "PayloadTooLarge",
			fmt.Sprintf("Upload exceeds %d bytes", tooBig.Limit))
	}
	return apperror.BadRequest("Invalid request body")
}

func (h *MovieHandler) afterWrite(c echo.Context, action string, m *model.Movie) {
	if h.invalidate != nil {
		if err := h.invalidate(c.Request().Context()); err != nil {
			h.log.WithError(err).Warn("movie cache not invalidated")
		}
	}
	types := map[string]string{
		ActionCreated: queue.MovieCreated,
		ActionUpdated: queue.MovieUpdated,
		ActionDeleted: queue.MovieDeleted,
	}
	service.PublishAsync(h.events, h.log, queue.CatalogEvent{
		Type:       types[action],
		MovieID:    m.ID.Hex(),
		MovieTitle: m.Title,
		OccurredAt: h.now().UTC().Format(time.RFC3339),
	})
}

func movieInputFromValues(v url.Values) (model.MovieInput, error) {
	in := model.MovieInput{
		Title:       v.Get("title"),
		Description: v.Get("description"),
		Genres:      v["genres"],
		Card:        v.Get("card"),
		Poster:      v.Get("poster"),
		Media:       v.Get("media"),
	}
	var err error
	if in.Duration, err = optInt(v, "duration"); err != nil {
		return in, err
	}
	if in.IMDbRating, err = optFloat(v, "imdbRating"); err != nil {
		return in, err
	}
	if in.ReleasedYear, err = optInt(v, "releasedYear"); err != nil {
		return in, err
	}
	featured, err := optBool(v, "featured")
	if err != nil {
		return in, err
	}
	in.Featured = featured != nil && *featured
	return in, nil
}

func moviePatchFromValues(v url.Values) (model.MoviePatch, error) {
	p := model.MoviePatch{
		Title:       optString(v, "title"),
		Description: optString(v, "description"),
		Card:        optString(v, "card"),
		Poster:      optString(v, "poster"),
		Media:       optString(v, "media"),
	}
	if g, ok := v["genres"]; ok {
		p.Genres = append([]string{}, g...)
	}
	var err error
	if p.Duration, err = optInt(v, "duration"); err != nil {
		return p, err
	}
	if p.IMDbRating, err = optFloat(v, "imdbRating"); err != nil {
		return p, err
	}
	if p.ReleasedYear, err = optInt(v, "releasedYear"); err != nil {
		return p, err
	}
	if p.Featured, err = optBool(v, "featured"); err != nil {
		return p, err
	}
	return p, nil
}

func optString(v url.Values, key string) *string {
	if _, ok := v[key]; !ok {
		return nil
	}
	s := v.Get(key)
	return &s
}

func optInt(v url.Values, key string) (*int, error) {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a whole number", model.ErrValidation, key)
	}
	return &n, nil
}

func optFloat(v url.Values, key string) (*float64, error) {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", model.ErrValidation, key)
	}
	return &f, nil
}

func optBool(v url.Values, key string) (*bool, error) {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be true or false", model.ErrValidation, key)
	}
	return &b, nil
}
