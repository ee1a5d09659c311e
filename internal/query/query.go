// Package query turns loosely-typed list parameters (?genres=drama&
// duration[gte]=90&sort=-imdbRating&fields=title,slug&page=2&limit=10) into a
// MongoDB filter plus find options.  Building a query performs no I/O; the
// repository executes it.
//
// Steps always run in the same order: filter, sort, projection, pagination.
//
// Known limitation: limit has no upper bound.  A caller can ask for an
// arbitrarily large page.
package query

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	DefaultPage  int64 = 1
	DefaultLimit int64 = 50

	// DefaultSortField orders lists newest first when no sort is given.
	DefaultSortField = "createdAt"
	// VersionField is the storage-internal marker hidden by default.
	VersionField = "__v"
)

var (
	ErrInvalidFilter     = errors.New("invalid filter")
	ErrInvalidSort       = errors.New("invalid sort")
	ErrInvalidProjection = errors.New("invalid fields")
)

// reserved keys configure the query instead of filtering on a field.
var reserved = map[string]bool{"page": true, "sort": true, "limit": true, "fields": true}

// operators maps the bracketed suffix to its MongoDB comparison operator.
var operators = map[string]string{
	"gte": "$gte",
	"gt":  "$gt",
	"lte": "$lte",
	"lt":  "$lt",
}

var (
	keyRe   = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_.]*)(?:\[([A-Za-z]+)\])?$`)
	fieldRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)
)

// Field kinds understood by Schema.
const (
	KindString = "string"
	KindInt    = "int"
	KindFloat  = "float"
	KindBool   = "bool"
)

// Schema maps field names to kinds so string parameters can be coerced to the
// stored type.  Fields not in the schema are compared as strings.
type Schema map[string]string

// Spec is a parsed list request.
type Spec struct {
	Filter     bson.D
	Sort       bson.D
	Projection bson.D
	Page       int64
	Limit      int64
}

// Query is a composed, unexecuted read.
type Query struct {
	Filter  bson.D
	Options *options.FindOptionsBuilder
}

// Parse builds a Spec from query-string values.
func Parse(values url.Values, schema Schema) (Spec, error) {
	var s Spec
	var err error
	if s.Filter, err = parseFilter(values, schema); err != nil {
		return Spec{}, err
	}
	if s.Sort, err = parseSort(values.Get("sort")); err != nil {
		return Spec{}, err
	}
	if s.Projection, err = ParseFields(values.Get("fields")); err != nil {
		return Spec{}, err
	}
	s.Page = positiveOr(values.Get("page"), DefaultPage)
	s.Limit = positiveOr(values.Get("limit"), DefaultLimit)
	return s, nil
}

// Skip is the number of documents before the requested page.  A page too
// far out to count saturates at math.MaxInt64 and simply reads nothing.
func (s Spec) Skip() int64 {
	if s.Page <= 1 || s.Limit <= 0 {
		return 0
	}
	if s.Page-1 > math.MaxInt64/s.Limit {
		return math.MaxInt64
	}
	return (s.Page - 1) * s.Limit
}

// Build composes the find options in a fixed order.
func (s Spec) Build() Query {
	opts := options.Find().
		SetSort(s.Sort).
		SetProjection(s.Projection).
		SetSkip(s.Skip()).
		SetLimit(s.Limit)
	filter := s.Filter
	if filter == nil {
		filter = bson.D{}
	}
	return Query{Filter: filter, Options: opts}
}

// FindOneOptions applies only the projection, for single-document reads.
func (s Spec) FindOneOptions() *options.FindOneOptionsBuilder {
	return options.FindOne().SetProjection(s.Projection)
}

// ParseFields converts a comma-separated field list into a projection.
// "a,b" includes only a and b, "-a,-b" excludes them, and an empty list
// hides only the version marker.
func ParseFields(raw string) (bson.D, error) {
	names := splitList(raw)
	if len(names) == 0 {
		return bson.D{{Key: VersionField, Value: 0}}, nil
	}
	proj := make(bson.D, 0, len(names))
	include, exclude := 0, 0
	for _, n := range names {
		v := 1
		if strings.HasPrefix(n, "-") {
			n = n[1:]
			v = 0
			exclude++
		} else {
			include++
		}
		if !fieldRe.MatchString(n) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProjection, n)
		}
		proj = append(proj, bson.E{Key: n, Value: v})
	}
	if include > 0 && exclude > 0 {
		return nil, fmt.Errorf("%w: cannot mix included and excluded fields", ErrInvalidProjection)
	}
	return proj, nil
}

func parseSort(raw string) (bson.D, error) {
	names := splitList(raw)
	if len(names) == 0 {
		return bson.D{{Key: DefaultSortField, Value: -1}}, nil
	}
	out := make(bson.D, 0, len(names))
	for _, n := range names {
		dir := 1
		if strings.HasPrefix(n, "-") {
			n = n[1:]
			dir = -1
		}
		if !fieldRe.MatchString(n) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSort, n)
		}
		out = append(out, bson.E{Key: n, Value: dir})
	}
	return out, nil
}

// fieldFilter collects everything said about one field before it is rendered.
type fieldFilter struct {
	equals []any
	ops    bson.D
}

func parseFilter(values url.Values, schema Schema) (bson.D, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		if !reserved[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	byField := map[string]*fieldFilter{}
	var order []string
	for _, key := range keys {
		m := keyRe.FindStringSubmatch(key)
		if m == nil {
			return nil, fmt.Errorf("%w: unsupported key %q", ErrInvalidFilter, key)
		}
		field, op := m[1], m[2]
		ff, ok := byField[field]
		if !ok {
			ff = &fieldFilter{}
			byField[field] = ff
			order = append(order, field)
		}
		raws := values[key]
		if op == "" {
			for _, raw := range raws {
				v, err := coerce(schema[field], raw)
				if err != nil {
					return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFilter, field, err)
				}
				ff.equals = append(ff.equals, v)
			}
			continue
		}
		mongoOp, ok := operators[op]
		if !ok {
			return nil, fmt.Errorf("%w: unsupported operator %q on %s", ErrInvalidFilter, op, field)
		}
		if len(raws) != 1 {
			return nil, fmt.Errorf("%w: %s[%s] given more than once", ErrInvalidFilter, field, op)
		}
		v, err := coerce(schema[field], raws[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFilter, field, err)
		}
		ff.ops = append(ff.ops, bson.E{Key: mongoOp, Value: v})
	}
	sort.Strings(order)

	filter := bson.D{}
	for _, field := range order {
		ff := byField[field]
		var eq any
		switch len(ff.equals) {
		case 0:
		case 1:
			eq = ff.equals[0]
		default:
			eq = bson.D{{Key: "$in", Value: bson.A(ff.equals)}}
		}
		switch {
		case len(ff.ops) == 0:
			filter = append(filter, bson.E{Key: field, Value: eq})
		case eq == nil:
			filter = append(filter, bson.E{Key: field, Value: sortOps(ff.ops)})
		default:
			// equality and range on the same field must share one sub-document
			ops := sortOps(ff.ops)
			if in, ok := eq.(bson.D); ok {
				ops = append(ops, in...)
			} else {
				ops = append(ops, bson.E{Key: "$eq", Value: eq})
			}
			filter = append(filter, bson.E{Key: field, Value: ops})
		}
	}
	return filter, nil
}

func sortOps(ops bson.D) bson.D {
	out := append(bson.D(nil), ops...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func coerce(kind, raw string) (any, error) {
	switch kind {
	case KindInt:
		return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	case KindFloat:
		return strconv.ParseFloat(strings.TrimSpace(raw), 64)
	case KindBool:
		return strconv.ParseBool(strings.TrimSpace(raw))
	case KindString:
		// catalog text is stored lower-cased
		return strings.ToLower(strings.TrimSpace(raw)), nil
	default:
		return raw, nil
	}
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func positiveOr(raw string, def int64) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
