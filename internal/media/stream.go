package media

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flick-backend/internal/apperror"
	"github.com/iliyamo/flick-backend/internal/blob"
	"github.com/iliyamo/flick-backend/internal/metrics"
)

// DefaultContentType is sent when storage has no content type for a blob.
const DefaultContentType = "video/mp4"

const copyBufferSize = 32 << 10

// BlobSource is the read side of blob storage.
type BlobSource interface {
	Properties(ctx context.Context, name string) (blob.Info, error)
	Download(ctx context.Context, name string, offset, count int64) (io.ReadCloser, error)
}

// Streamer answers range requests for media blobs with 206 responses.
type Streamer struct {
	Source BlobSource
	Chunk  int64
	Log    *logrus.Entry
}

// NewStreamer returns a Streamer using chunk as the open-ended range cap.
func NewStreamer(src BlobSource, chunk int64, log *logrus.Entry) *Streamer {
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	return &Streamer{Source: src, Chunk: chunk, Log: log}
}

// Serve writes the requested window of blob name to the client.  Nothing is
// written until the byte source is open, so every failure before that point
// reaches the error handler as a clean error response.
func (s *Streamer) Serve(c echo.Context, name string) error {
	header := c.Request().Header.Get("Range")
	if header == "" {
		return ErrMissingRange
	}
	ctx := c.Request().Context()

	info, err := s.Source.Properties(ctx, name)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return apperror.NotFound("No media found with that name")
		}
		return apperror.Internal(err, "Error fetching media file")
	}

	w, err := ResolveChunk(header, info.Size, s.Chunk)
	if err != nil {
		return err
	}

	body, err := s.Source.Download(ctx, name, w.Start, w.Size())
	if err != nil {
		return apperror.Internal(err, "Failed to get readable stream from storage")
	}
	defer body.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = DefaultContentType
	}
	h := c.Response().Header()
	h.Set("Content-Range", w.ContentRange())
	h.Set("Accept-Ranges", "bytes")
	h.Set(echo.HeaderContentLength, strconv.FormatInt(w.Size(), 10))
	h.Set(echo.HeaderContentType, contentType)
	c.Response().WriteHeader(http.StatusPartialContent)

	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	buf := make([]byte, copyBufferSize)
	n, err := io.CopyBuffer(c.Response(), io.LimitReader(body, w.Size()), buf)
	metrics.StreamBytes.Add(float64(n))
	if err != nil && s.Log != nil {
		// usually the player closed the connection after seeking
		s.Log.WithError(err).WithFields(logrus.Fields{
			"media":   name,
			"written": n,
			"want":    w.Size(),
		}).Debug("stream aborted")
	}
	return nil
}
