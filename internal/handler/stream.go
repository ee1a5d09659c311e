package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flick-backend/internal/media"
)

// StreamHandler serves GET /streams/:media.
type StreamHandler struct {
	Streamer *media.Streamer
}

func NewStreamHandler(s *media.Streamer) *StreamHandler { return &StreamHandler{Streamer: s} }

// Stream answers a Range request for the named media blob with 206.
func (h *StreamHandler) Stream(c echo.Context) error {
	return h.Streamer.Serve(c, c.Param("media"))
}
