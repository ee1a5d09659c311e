// Package media serves byte ranges of stored video to players that seek.
package media

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultChunkSize caps an open-ended range so a single response never
// carries the whole file.
const DefaultChunkSize int64 = 1 << 20

var (
	ErrMissingRange  = errors.New("Requires Range header")
	ErrUnsatisfiable = errors.New("Invalid range request")
)

// Window is a resolved, inclusive byte range of a resource of Total bytes.
type Window struct {
	Start int64
	End   int64
	Total int64
}

// Size is the number of bytes in the window.
func (w Window) Size() int64 { return w.End - w.Start + 1 }

// ContentRange renders the Content-Range header value.
func (w Window) ContentRange() string {
	return fmt.Sprintf("bytes %d-%d/%d", w.Start, w.End, w.Total)
}

// Resolve interprets a Range header against a resource of total bytes using
// DefaultChunkSize.
func Resolve(header string, total int64) (Window, error) {
	return ResolveChunk(header, total, DefaultChunkSize)
}

// ResolveChunk interprets a Range header of the form "bytes=start-end".
//
// A missing or unparseable start means 0.  A missing or unparseable end means
// start+chunk-1.  The end is then clamped to the last byte.  Only the first
// range of a multi-range header is honoured.  "bytes=-N" is read as start 0,
// end N, not as a suffix range.
func ResolveChunk(header string, total, chunk int64) (Window, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Window{}, ErrMissingRange
	}
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}

	spec := strings.TrimPrefix(header, "bytes=")
	if i := strings.IndexByte(spec, ','); i >= 0 {
		spec = spec[:i]
	}
	startRaw, endRaw, _ := strings.Cut(strings.TrimSpace(spec), "-")

	start, err := strconv.ParseInt(strings.TrimSpace(startRaw), 10, 64)
	if err != nil {
		start = 0
	}
	end, err := strconv.ParseInt(strings.TrimSpace(endRaw), 10, 64)
	if err != nil {
		end = start + chunk - 1
	}
	if end > total-1 {
		end = total - 1
	}

	if start < 0 || start >= total || end < start {
		return Window{}, fmt.Errorf("%w: %s of %d bytes", ErrUnsatisfiable, header, total)
	}
	return Window{Start: start, End: end, Total: total}, nil
}
