package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"

	"acai-delivery-backend/internal/repositories"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
)

// ImageURLPrefix is where stored images are served from.
const ImageURLPrefix = "/api/v1/images/"

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

type ImageOptions struct {
	MaxUploadBytes int64
	MaxDimension   int
	JPEGQuality    int
}

// productImageSetter is the part of ProductService the image service needs.
type productImageSetter interface {
	GetProductImage(ctx context.Context, id string) (string, error)
	SetProductImage(ctx context.Context, id, image string) error
}

type ImageService struct {
	store    repositories.ImageStore
	products productImageSetter
	opts     ImageOptions
	log      *zap.Logger
}

func NewImageService(store repositories.ImageStore, products productImageSetter, opts ImageOptions, log *zap.Logger) *ImageService {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 5 * 1024 * 1024
	}
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = 800
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = 75
	}
	return &ImageService{store: store, products: products, opts: opts, log: log}
}

// MaxUploadBytes is the largest payload UploadProductImage accepts.
func (s *ImageService) MaxUploadBytes() int64 {
	return s.opts.MaxUploadBytes
}

// Optimize decodes an uploaded image, fits it within the configured
// dimension and re-encodes it as JPEG.
func (s *ImageService) Optimize(data []byte) ([]byte, error) {
	if int64(len(data)) > s.opts.MaxUploadBytes {
		return nil, ErrImageTooLarge
	}
	if !allowedImageTypes[http.DetectContentType(data)] {
		return nil, ErrUnsupportedImage
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > s.opts.MaxDimension || bounds.Dy() > s.opts.MaxDimension {
		img = imaging.Fit(img, s.opts.MaxDimension, s.opts.MaxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(s.opts.JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	s.log.Debug("image optimized",
		zap.String("format", format),
		zap.Int("input_bytes", len(data)),
		zap.Int("output_bytes", buf.Len()),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()))
	return buf.Bytes(), nil
}

// UploadProductImage stores an optimized copy of data and makes it the
// product image. It returns the image URL.
func (s *ImageService) UploadProductImage(ctx context.Context, productID string, data []byte) (string, error) {
	previous, err := s.products.GetProductImage(ctx, productID)
	if err != nil {
		return "", err
	}

	optimized, err := s.Optimize(data)
	if err != nil {
		return "", err
	}

	id, err := s.store.Save(ctx, productID+".jpg", "image/jpeg", optimized)
	if err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}

	url := ImageURLPrefix + id
	if err := s.products.SetProductImage(ctx, productID, url); err != nil {
		if delErr := s.store.Delete(ctx, id); delErr != nil {
			s.log.Warn("orphaned image", zap.String("image_id", id), zap.Error(delErr))
		}
		return "", err
	}

	if old := strings.TrimPrefix(previous, ImageURLPrefix); old != previous && old != "" {
		if err := s.store.Delete(ctx, old); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			s.log.Warn("previous image not removed", zap.String("image_id", old), zap.Error(err))
		}
	}

	s.log.Info("product image uploaded", zap.String("product_id", productID), zap.String("image_id", id))
	return url, nil
}

// OpenImage streams a stored image. The caller closes the reader.
func (s *ImageService) OpenImage(ctx context.Context, id string) (io.ReadCloser, error) {
	r, err := s.store.Open(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrImageNotFound
	}
	return r, err
}
