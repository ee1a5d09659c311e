package handler

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flick-backend/internal/apperror"
	"github.com/iliyamo/flick-backend/internal/blob"
	"github.com/iliyamo/flick-backend/internal/imaging"
)

// BlobWriter is the write side of blob storage.
type BlobWriter interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) error
	Delete(ctx context.Context, name string) error
}

// Assets are the blob names recorded on a movie for the files of one
// request.  Empty means the file was not sent.
type Assets struct {
	Card   string
	Poster string
	Media  string
}

// Uploader stores the card, poster and media files of a movie form.  Images
// are resized and re-encoded before upload; media is stored unmodified.
type Uploader struct {
	Images BlobWriter
	Media  BlobWriter
	Log    *logrus.Entry
}

type uploaded struct {
	store BlobWriter
	path  string
}

// Store uploads whichever of card, poster and media the form carries.  The
// returned rollback deletes everything this call uploaded.  On error the
// partial uploads are already rolled back.
func (u *Uploader) Store(ctx context.Context, form *multipart.Form) (Assets, func(), error) {
	var (
		out  Assets
		done []uploaded
	)
	rollback := func() { u.remove(done) }
	if form == nil {
		return out, nil, nil
	}

	for _, v := range []imaging.Variant{imaging.Card, imaging.Poster} {
		fh := firstFile(form, v.Name)
		if fh == nil {
			continue
		}
		raw, err := readPart(fh)
		if err != nil {
			rollback()
			return Assets{}, nil, err
		}
		img, err := imaging.Fit(raw, v)
		if err != nil {
			rollback()
			return Assets{}, nil, err
		}
		name := blob.NewName(v.Name, imaging.Extension)
		path := blob.Path(v.Folder, name)
		if err := u.Images.Upload(ctx, path, img, imaging.ContentType); err != nil {
			rollback()
			return Assets{}, nil, apperror.Internal(err, "Could not store "+v.Name+" image")
		}
		done = append(done, uploaded{u.Images, path})
		if v.Name == imaging.Card.Name {
			out.Card = name
		} else {
			out.Poster = name
		}
	}

	if fh := firstFile(form, "media"); fh != nil {
		raw, err := readPart(fh)
		if err != nil {
			rollback()
			return Assets{}, nil, err
		}
		ct := fh.Header.Get("Content-Type")
		if !strings.HasPrefix(ct, "video/") {
			ct = "video/mp4"
		}
		name := blob.NewName("media", mediaExt(fh.Filename))
		if err := u.Media.Upload(ctx, name, raw, ct); err != nil {
			rollback()
			return Assets{}, nil, apperror.Internal(err, "Could not store media file")
		}
		done = append(done, uploaded{u.Media, name})
		out.Media = name
	}
	return out, rollback, nil
}

// remove deletes blobs best-effort.  It runs after the request may have been
// cancelled, so it uses its own deadline.
func (u *Uploader) remove(list []uploaded) {
	if len(list) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, b := range list {
		if err := b.store.Delete(ctx, b.path); err != nil && u.Log != nil {
			u.Log.WithError(err).WithField("blob", b.path).Warn("orphaned upload not removed")
		}
	}
}

func firstFile(form *multipart.Form, field string) *multipart.FileHeader {
	if files := form.File[field]; len(files) > 0 {
		return files[0]
	}
	return nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func mediaExt(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	switch ext {
	case "mp4", "webm", "mkv", "mov":
		return ext
	}
	return "mp4"
}
