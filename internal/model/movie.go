package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// ErrValidation is wrapped by every field-level validation failure.
var ErrValidation = errors.New("validation failed")

// ErrEmptyPatch is returned when an update carries no recognised field.
var ErrEmptyPatch = errors.New("no updatable fields supplied")

// Movie is a catalog entry as stored in the movies collection.  Card, Poster
// and Media hold blob names, not URLs.  Version is the "__v" marker the list
// endpoint hides unless explicitly projected.
type Movie struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title        string        `bson:"title,omitempty" json:"title,omitempty"`
	Description  string        `bson:"description,omitempty" json:"description,omitempty"`
	Genres       []string      `bson:"genres,omitempty" json:"genres,omitempty"`
	Duration     int           `bson:"duration,omitempty" json:"duration,omitempty"`
	IMDbRating   float64       `bson:"imdbRating" json:"imdbRating"`
	ReleasedYear int           `bson:"releasedYear,omitempty" json:"releasedYear,omitempty"`
	Featured     bool          `bson:"featured" json:"featured"`
	Slug         string        `bson:"slug,omitempty" json:"slug,omitempty"`
	Card         string        `bson:"card,omitempty" json:"card,omitempty"`
	Poster       string        `bson:"poster,omitempty" json:"poster,omitempty"`
	Media        string        `bson:"media,omitempty" json:"media,omitempty"`
	CreatedAt    time.Time     `bson:"createdAt,omitempty" json:"createdAt,omitzero"`
	UpdatedAt    time.Time     `bson:"updatedAt,omitempty" json:"updatedAt,omitzero"`
	Version      int           `bson:"__v" json:"__v,omitempty"`
}

// MovieInput is the raw create payload.  JSON bodies decode into it directly;
// form bodies go through the handler's typed form reader.
type MovieInput struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Genres       []string `json:"genres"`
	Duration     *int     `json:"duration"`
	IMDbRating   *float64 `json:"imdbRating"`
	ReleasedYear *int     `json:"releasedYear"`
	Featured     bool     `json:"featured"`
	Card         string   `json:"card"`
	Poster       string   `json:"poster"`
	Media        string   `json:"media"`
}

// MovieSchema lists the filterable movie fields and their kinds for the query
// builder.  Fields missing here are passed to the store as plain strings.
var MovieSchema = map[string]string{
	"title":        "string",
	"description":  "string",
	"genres":       "string",
	"duration":     "int",
	"imdbRating":   "float",
	"releasedYear": "int",
	"featured":     "bool",
	"slug":         "string",
	"card":         "string",
	"poster":       "string",
	"media":        "string",
}

// NewMovie normalises and validates in, returning a document ready to insert.
// Title, description and genres are trimmed and lower-cased and the slug is
// derived from the normalised title.
func NewMovie(in MovieInput, now time.Time) (*Movie, error) {
	m := &Movie{
		Title:       normalizeText(in.Title),
		Description: normalizeText(in.Description),
		Genres:      NormalizeGenres(in.Genres),
		Featured:    in.Featured,
		Card:        strings.TrimSpace(in.Card),
		Poster:      strings.TrimSpace(in.Poster),
		Media:       strings.TrimSpace(in.Media),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.Slug = Slugify(m.Title)

	var problems []string
	require := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}
	require(m.Title != "", "Movie must have a title")
	require(m.Description != "", "Movie must have a description")
	require(len(m.Genres) > 0, "At least one genre is required")
	require(in.Duration != nil, "Movie must have a duration")
	require(in.IMDbRating != nil, "Movie must have an IMDB rating")
	require(in.ReleasedYear != nil, "Movie must have a release year")
	require(m.Card != "", "Movie must have a card")
	require(m.Poster != "", "Movie must have a poster")
	require(m.Media != "", "Movie must have media")
	if in.Duration != nil {
		m.Duration = *in.Duration
		require(m.Duration > 0, "Duration must be positive")
	}
	if in.IMDbRating != nil {
		m.IMDbRating = *in.IMDbRating
		problems = append(problems, ratingProblems(m.IMDbRating)...)
	}
	if in.ReleasedYear != nil {
		m.ReleasedYear = *in.ReleasedYear
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}
	return m, nil
}

// MoviePatch carries a partial update.  Nil fields are left untouched; a nil
// Genres slice means "not supplied" while an empty one is rejected.
type MoviePatch struct {
	Title        *string  `json:"title"`
	Description  *string  `json:"description"`
	Genres       []string `json:"genres"`
	Duration     *int     `json:"duration"`
	IMDbRating   *float64 `json:"imdbRating"`
	ReleasedYear *int     `json:"releasedYear"`
	Featured     *bool    `json:"featured"`
	Card         *string  `json:"card"`
	Poster       *string  `json:"poster"`
	Media        *string  `json:"media"`
}

// Update validates the patch and renders it as a MongoDB update document.
// The slug is recomputed only when the title changes and genres are
// normalised only when present.  Every update bumps __v and updatedAt.
func (p MoviePatch) Update(now time.Time) (bson.D, error) {
	set := bson.D{}
	var problems []string

	if p.Title != nil {
		t := normalizeText(*p.Title)
		if t == "" {
			problems = append(problems, "Movie must have a title")
		}
		set = append(set, bson.E{Key: "title", Value: t}, bson.E{Key: "slug", Value: Slugify(t)})
	}
	if p.Description != nil {
		d := normalizeText(*p.Description)
		if d == "" {
			problems = append(problems, "Movie must have a description")
		}
		set = append(set, bson.E{Key: "description", Value: d})
	}
	if p.Genres != nil {
		g := NormalizeGenres(p.Genres)
		if len(g) == 0 {
			problems = append(problems, "At least one genre is required")
		}
		set = append(set, bson.E{Key: "genres", Value: g})
	}
	if p.Duration != nil {
		if *p.Duration <= 0 {
			problems = append(problems, "Duration must be positive")
		}
		set = append(set, bson.E{Key: "duration", Value: *p.Duration})
	}
	if p.IMDbRating != nil {
		problems = append(problems, ratingProblems(*p.IMDbRating)...)
		set = append(set, bson.E{Key: "imdbRating", Value: *p.IMDbRating})
	}
	if p.ReleasedYear != nil {
		set = append(set, bson.E{Key: "releasedYear", Value: *p.ReleasedYear})
	}
	if p.Featured != nil {
		set = append(set, bson.E{Key: "featured", Value: *p.Featured})
	}
	for _, f := range []struct {
		key string
		val *string
	}{{"card", p.Card}, {"poster", p.Poster}, {"media", p.Media}} {
		if f.val == nil {
			continue
		}
		v := strings.TrimSpace(*f.val)
		if v == "" {
			problems = append(problems, "Movie must have a "+f.key)
		}
		set = append(set, bson.E{Key: f.key, Value: v})
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}
	if len(set) == 0 {
		return nil, ErrEmptyPatch
	}
	set = append(set, bson.E{Key: "updatedAt", Value: now})
	return bson.D{
		{Key: "$set", Value: set},
		{Key: "$inc", Value: bson.D{{Key: "__v", Value: 1}}},
	}, nil
}

// Slugify returns the URL-safe slug for a title.
func Slugify(title string) string {
	return slug.Make(title)
}

// NormalizeGenres trims and lower-cases genres, splits comma-separated
// entries (as sent by single multipart fields) and drops blanks.
func NormalizeGenres(in []string) []string {
	out := make([]string, 0, len(in))
	for _, g := range in {
		for _, part := range strings.Split(g, ",") {
			if p := normalizeText(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func ratingProblems(r float64) []string {
	switch {
	case math.IsNaN(r) || math.IsInf(r, 0):
		return []string{"IMDB rating must be a number between 0 and 10"}
	case r < 0:
		return []string{"IMDB rating cannot be less than 0"}
	case r > 10:
		return []string{"IMDB rating cannot be more than 10"}
	}
	return nil
}
