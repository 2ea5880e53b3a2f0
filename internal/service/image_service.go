package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"imagestore/api/internal/apperr"
	"imagestore/api/internal/config"
	"imagestore/api/internal/ids"
	"imagestore/api/internal/media/codec"
	"imagestore/api/internal/models"
)

// ImageStore is the persistence surface the orchestrator needs.
type ImageStore interface {
	Create(ctx context.Context, image models.Image) (models.Image, error)
	GetByID(ctx context.Context, id string) (models.Image, error)
}

type UploadInput struct {
	File                io.Reader
	DeclaredContentType string
	Filename            string
}

// ImageService composes transcoding and persistence. Codec work is CPU-bound
// and runs under a weighted semaphore so a burst of uploads cannot saturate
// the process; the cache client may be nil, in which case serving always
// hits the store.
type ImageService struct {
	store    ImageStore
	cache    *redis.Client
	cacheTTL time.Duration
	maxBytes int64
	sem      *semaphore.Weighted
	log      zerolog.Logger
}

func NewImageService(store ImageStore, cache *redis.Client, cfg *config.AppConfig, log zerolog.Logger) *ImageService {
	slots := cfg.Upload.TranscodeConcurrency
	if slots <= 0 {
		slots = runtime.GOMAXPROCS(0)
	}

	maxBytes := cfg.Upload.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}

	return &ImageService{
		store:    store,
		cache:    cache,
		cacheTTL: cfg.Redis.CacheTTL,
		maxBytes: maxBytes,
		sem:      semaphore.NewWeighted(int64(slots)),
		log:      log,
	}
}

// Upload validates the declared content type, transcodes the payload and
// persists the resulting record. Nothing is written to the store unless
// transcoding succeeded, so a failed upload never leaves a row behind.
func (s *ImageService) Upload(ctx context.Context, input UploadInput) (models.Image, error) {
	if !strings.HasPrefix(input.DeclaredContentType, "image/") {
		return models.Image{}, apperr.Validation("invalid file type, only images are allowed")
	}

	data, err := io.ReadAll(io.LimitReader(input.File, s.maxBytes+1))
	if err != nil {
		return models.Image{}, apperr.Internal("read upload", err)
	}
	if int64(len(data)) > s.maxBytes {
		return models.Image{}, apperr.Validation(fmt.Sprintf("upload exceeds %d bytes", s.maxBytes))
	}
	if len(data) == 0 {
		return models.Image{}, apperr.Validation("empty file")
	}

	if detected := mimetype.Detect(data); detected.String() != input.DeclaredContentType {
		s.log.Warn().
			Str("declared", input.DeclaredContentType).
			Str("detected", detected.String()).
			Str("filename", input.Filename).
			Msg("content type mismatch")
	}

	encoded, contentType, err := s.transcode(ctx, data)
	if err != nil {
		return models.Image{}, err
	}

	image := models.Image{
		ID:          ids.New(),
		Filename:    input.Filename,
		ContentType: contentType,
		SizeBytes:   int64(len(encoded)),
		Data:        encoded,
	}

	stored, err := s.store.Create(ctx, image)
	if err != nil {
		return models.Image{}, err
	}

	s.log.Info().
		Str("image_id", stored.ID).
		Str("content_type", stored.ContentType).
		Int64("size_bytes", stored.SizeBytes).
		Int("original_bytes", len(data)).
		Msg("image stored")

	return stored, nil
}

// transcode runs the codec under the concurrency limit. The acquire respects
// the request context, so a disconnected client abandons the upload before
// any persistence happens.
func (s *ImageService) transcode(ctx context.Context, data []byte) ([]byte, string, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, "", apperr.Internal("acquire transcode slot", err)
	}
	defer s.sem.Release(1)

	start := time.Now()
	encoded, contentType, err := codec.Transcode(data)
	if err != nil {
		var codecErr *codec.Error
		if errors.As(err, &codecErr) {
			return nil, "", apperr.Transcode("could not process image", err)
		}
		return nil, "", apperr.Internal("transcode", err)
	}

	s.log.Debug().
		Dur("elapsed", time.Since(start)).
		Int("input_bytes", len(data)).
		Int("output_bytes", len(encoded)).
		Msg("transcode done")

	return encoded, contentType, nil
}

// Fetch returns the full record for id.
func (s *ImageService) Fetch(ctx context.Context, id string) (models.Image, error) {
	return s.store.GetByID(ctx, id)
}

// FetchFile returns the stored payload and its content type, consulting the
// byte cache first when one is configured.
func (s *ImageService) FetchFile(ctx context.Context, id string) ([]byte, string, error) {
	if s.cache != nil {
		if data, contentType, ok := s.cacheGet(ctx, id); ok {
			return data, contentType, nil
		}
	}

	image, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}

	if s.cache != nil {
		s.cacheSet(ctx, image)
	}

	return image.Data, image.ContentType, nil
}

func cacheKey(id string) string {
	return "image:bytes:" + id
}

func (s *ImageService) cacheGet(ctx context.Context, id string) ([]byte, string, bool) {
	values, err := s.cache.HGetAll(ctx, cacheKey(id)).Result()
	if err != nil || len(values) == 0 {
		return nil, "", false
	}
	data, ok := values["data"]
	if !ok {
		return nil, "", false
	}
	return []byte(data), values["content_type"], true
}

func (s *ImageService) cacheSet(ctx context.Context, image models.Image) {
	key := cacheKey(image.ID)
	if err := s.cache.HSet(ctx, key, map[string]any{
		"data":         image.Data,
		"content_type": image.ContentType,
	}).Err(); err != nil {
		s.log.Warn().Err(err).Str("image_id", image.ID).Msg("cache set failed")
		return
	}
	if s.cacheTTL > 0 {
		if err := s.cache.Expire(ctx, key, s.cacheTTL).Err(); err != nil {
			s.log.Warn().Err(err).Str("image_id", image.ID).Msg("cache expire failed")
		}
	}
}
