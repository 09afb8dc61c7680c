package service

import (
	"context"
	"fmt"
	"io"
	"path"

	"clipsify/internal/cdn"
	models "clipsify/internal/media"
	utils "clipsify/internal/utis"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// FileUploader is implemented by *cdn.Client.
type FileUploader interface {
	Upload(ctx context.Context, in cdn.UploadInput) (*cdn.UploadResult, error)
}

// Archiver is implemented by *storage.S3Store.
type Archiver interface {
	Archive(ctx context.Context, key, contentType string, body io.Reader) error
}

type ProxyInput struct {
	File        io.ReadSeeker
	FileName    string
	ContentType string
	Size        int64
}

type ProxyResult struct {
	Kind           models.Kind
	URL            string
	FileID         string
	ThumbnailURL   string
	Transformation *models.Transformation
}

// UploadProxy uploads on behalf of clients that cannot reach the CDN directly.
type UploadProxy struct {
	cdn     FileUploader
	archive Archiver
	log     *zap.Logger
}

func NewUploadProxy(uploader FileUploader, archive Archiver, log *zap.Logger) *UploadProxy {
	return &UploadProxy{cdn: uploader, archive: archive, log: log}
}

func (p *UploadProxy) Upload(ctx context.Context, who models.Identity, in ProxyInput) (*ProxyResult, error) {
	kind := utils.KindFromContentType(in.ContentType)
	if kind == "" {
		return nil, fmt.Errorf("%w: Please upload an image or video file", ErrValidation)
	}
	if err := utils.ValidateMediaFile(kind, in.ContentType, in.Size); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	out := &ProxyResult{Kind: models.Kind(kind)}
	if out.Kind == models.KindImage {
		if t, err := probeImage(in.File); err == nil {
			out.Transformation = t
		} else {
			p.log.Debug("image probe failed", zap.String("file", in.FileName), zap.Error(err))
		}
		if _, err := in.File.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
	}

	res, err := p.cdn.Upload(ctx, cdn.UploadInput{
		File:     in.File,
		FileName: path.Base(in.FileName),
		Folder:   "/" + kind + "s",
	})
	if err != nil {
		return nil, err
	}
	out.URL, out.FileID = res.URL, res.FileID
	out.ThumbnailURL = res.URL

	if p.archive != nil {
		p.archiveCopy(ctx, who, in, res)
	}
	return out, nil
}

func (p *UploadProxy) archiveCopy(ctx context.Context, who models.Identity, in ProxyInput, res *cdn.UploadResult) {
	if _, err := in.File.Seek(0, io.SeekStart); err != nil {
		p.log.Warn("archive seek", zap.Error(err))
		return
	}
	key := who.UserID + "/" + res.FileID + "_" + path.Base(in.FileName)
	if err := p.archive.Archive(ctx, key, in.ContentType, in.File); err != nil {
		p.log.Warn("archive copy failed", zap.String("key", key), zap.Error(err))
	}
}

// probeImage reports the displayed size of an image, honouring EXIF orientation.
func probeImage(r io.Reader) (*models.Transformation, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	t := models.ImageDimensions
	t.Width, t.Height = b.Dx(), b.Dy()
	return &t, nil
}
