// Package blob stores and reads the binary assets behind a movie: card and
// poster images and the video file.
package blob

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a named blob does not exist.
var ErrNotFound = errors.New("blob not found")

// Info is the subset of blob properties the API needs.
type Info struct {
	Size        int64
	ContentType string
}

// NewName returns a collision-free blob name such as "card-<uuid>.jpg".
func NewName(prefix, ext string) string {
	return fmt.Sprintf("%s-%s.%s", prefix, uuid.NewString(), strings.TrimPrefix(ext, "."))
}

// Path joins a virtual folder and a blob name.  An empty folder yields name.
func Path(folder, name string) string {
	if folder == "" {
		return name
	}
	return strings.TrimSuffix(folder, "/") + "/" + name
}
