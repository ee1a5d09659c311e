// Package imaging resizes uploaded artwork to the sizes the catalog shows.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedImage is returned when the upload is not a decodable image.
var ErrUnsupportedImage = errors.New("unsupported image format")

// Quality is the JPEG quality of every re-encoded image.
const Quality = 80

// ContentType is the type stored with every re-encoded image.
const ContentType = "image/jpeg"

// Extension is the file extension of every re-encoded image.
const Extension = "jpg"

// Variant is a target frame for one kind of artwork.
type Variant struct {
	Name   string
	Folder string
	Width  int
	Height int
}

var (
	Card   = Variant{Name: "card", Folder: "cards", Width: 382, Height: 566}
	Poster = Variant{Name: "poster", Folder: "posters", Width: 1920, Height: 1080}
)

// Fit decodes src, crops it to cover the variant's frame around the centre,
// and returns the JPEG bytes.
func Fit(src []byte, v Variant) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return encode(imaging.Fill(img, v.Width, v.Height, imaging.Center, imaging.Lanczos))
}

func encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(Quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
