package query

import (
	"errors"
	"math"
	"net/url"
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"
)

var testSchema = Schema{
	"title":      KindString,
	"genres":     KindString,
	"duration":   KindInt,
	"imdbRating": KindFloat,
	"featured":   KindBool,
}

func mustParse(t *testing.T, raw string) Spec {
	t.Helper()
	v, err := url.ParseQuery(raw)
	if err != nil {
		t.Fatalf("ParseQuery(%q): %v", raw, err)
	}
	s, err := Parse(v, testSchema)
	if err != nil {
		t.Fatalf("Parse(%q): %v", raw, err)
	}
	return s
}

func TestParse_RangeOperator(t *testing.T) {
	s := mustParse(t, "duration[gte]=90")
	want := bson.D{{Key: "duration", Value: bson.D{{Key: "$gte", Value: int64(90)}}}}
	if !reflect.DeepEqual(s.Filter, want) {
		t.Fatalf("filter = %v, want %v", s.Filter, want)
	}
}

func TestParse_AllOperators(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"duration[gt]=1", "$gt"},
		{"duration[gte]=1", "$gte"},
		{"duration[lt]=1", "$lt"},
		{"duration[lte]=1", "$lte"},
	}
	for _, tt := range tests {
		s := mustParse(t, tt.raw)
		ops, ok := s.Filter[0].Value.(bson.D)
		if !ok || len(ops) != 1 || ops[0].Key != tt.want {
			t.Errorf("%s: got %v, want operator %s", tt.raw, s.Filter, tt.want)
		}
	}
}

func TestParse_MergesOperatorsOnOneField(t *testing.T) {
	s := mustParse(t, "duration[lt]=120&duration[gte]=90")
	want := bson.D{{Key: "duration", Value: bson.D{
		{Key: "$gte", Value: int64(90)},
		{Key: "$lt", Value: int64(120)},
	}}}
	if !reflect.DeepEqual(s.Filter, want) {
		t.Fatalf("filter = %v, want %v", s.Filter, want)
	}
}

func TestParse_EqualityAndCoercion(t *testing.T) {
	s := mustParse(t, "featured=true&genres=Drama&imdbRating=7.5&unknown=ABC")
	want := bson.D{
		{Key: "featured", Value: true},
		{Key: "genres", Value: "drama"},
		{Key: "imdbRating", Value: 7.5},
		{Key: "unknown", Value: "ABC"},
	}
	if !reflect.DeepEqual(s.Filter, want) {
		t.Fatalf("filter = %v, want %v", s.Filter, want)
	}
}

func TestParse_RepeatedKeyBecomesIn(t *testing.T) {
	s := mustParse(t, "genres=action&genres=drama")
	want := bson.D{{Key: "genres", Value: bson.D{{Key: "$in", Value: bson.A{"action", "drama"}}}}}
	if !reflect.DeepEqual(s.Filter, want) {
		t.Fatalf("filter = %v, want %v", s.Filter, want)
	}
}

func TestParse_ReservedKeysAreNotFilters(t *testing.T) {
	s := mustParse(t, "page=2&limit=5&sort=title&fields=title")
	if len(s.Filter) != 0 {
		t.Fatalf("expected empty filter, got %v", s.Filter)
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"unknown operator", "duration[ne]=5", ErrInvalidFilter},
		{"mongo operator key", "$where=1", ErrInvalidFilter},
		{"nested brackets", "duration[gte][x]=1", ErrInvalidFilter},
		{"non numeric int", "duration[gte]=long", ErrInvalidFilter},
		{"repeated operator", "duration[gte]=1&duration[gte]=2", ErrInvalidFilter},
		{"bad sort field", "sort=$natural", ErrInvalidSort},
		{"mixed projection", "fields=title,-slug", ErrInvalidProjection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _ := url.ParseQuery(tt.raw)
			_, err := Parse(v, testSchema)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParse_Sort(t *testing.T) {
	s := mustParse(t, "")
	if want := (bson.D{{Key: "createdAt", Value: -1}}); !reflect.DeepEqual(s.Sort, want) {
		t.Fatalf("default sort = %v, want %v", s.Sort, want)
	}
	s = mustParse(t, "sort=-imdbRating,title")
	want := bson.D{{Key: "imdbRating", Value: -1}, {Key: "title", Value: 1}}
	if !reflect.DeepEqual(s.Sort, want) {
		t.Fatalf("sort = %v, want %v", s.Sort, want)
	}
}

func TestParse_Fields(t *testing.T) {
	s := mustParse(t, "")
	if want := (bson.D{{Key: "__v", Value: 0}}); !reflect.DeepEqual(s.Projection, want) {
		t.Fatalf("default projection = %v, want %v", s.Projection, want)
	}
	s = mustParse(t, "fields=title, slug")
	want := bson.D{{Key: "title", Value: 1}, {Key: "slug", Value: 1}}
	if !reflect.DeepEqual(s.Projection, want) {
		t.Fatalf("projection = %v, want %v", s.Projection, want)
	}
	s = mustParse(t, "fields=-description")
	want = bson.D{{Key: "description", Value: 0}}
	if !reflect.DeepEqual(s.Projection, want) {
		t.Fatalf("projection = %v, want %v", s.Projection, want)
	}
}

func TestParse_Pagination(t *testing.T) {
	tests := []struct {
		raw      string
		page     int64
		limit    int64
		wantSkip int64
	}{
		{"", 1, 50, 0},
		{"page=3&limit=10", 3, 10, 20},
		{"page=0", 1, 50, 0},
		{"page=-2&limit=0", 1, 50, 0},
		{"page=abc&limit=xyz", 1, 50, 0},
		{"limit=100000", 1, 100000, 0},
		{"page=9223372036854775807&limit=50", math.MaxInt64, 50, math.MaxInt64},
		{"page=3&limit=9223372036854775807", 3, math.MaxInt64, math.MaxInt64},
		{"page=2&limit=9223372036854775807", 2, math.MaxInt64, math.MaxInt64},
	}
	for _, tt := range tests {
		s := mustParse(t, tt.raw)
		if s.Page != tt.page || s.Limit != tt.limit || s.Skip() != tt.wantSkip {
			t.Errorf("%q: page=%d limit=%d skip=%d, want %d %d %d",
				tt.raw, s.Page, s.Limit, s.Skip(), tt.page, tt.limit, tt.wantSkip)
		}
	}
}

func TestBuild_NilFilterBecomesEmptyDocument(t *testing.T) {
	q := Spec{Page: 1, Limit: 50}.Build()
	if q.Filter == nil || len(q.Filter) != 0 {
		t.Fatalf("filter = %#v, want empty bson.D", q.Filter)
	}
	if q.Options == nil {
		t.Fatal("options not built")
	}
}
