package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"imagestore/api/internal/apperr"
	"imagestore/api/internal/models"
)

// ImageRepository persists image records. Each operation is a single
// statement, so the database's per-statement atomicity is the transaction
// boundary: a failed insert leaves nothing visible.
type ImageRepository struct {
	pool *pgxpool.Pool
}

func NewImageRepository(pool *pgxpool.Pool) *ImageRepository {
	return &ImageRepository{pool: pool}
}

// Create inserts a new record. The creation timestamp is assigned by the
// database at commit and returned on the stored record.
func (r *ImageRepository) Create(ctx context.Context, image models.Image) (models.Image, error) {
	const query = `
		INSERT INTO images (id, filename, content_type, size_bytes, image_data, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`

	row := r.pool.QueryRow(ctx, query,
		image.ID,
		image.Filename,
		image.ContentType,
		image.SizeBytes,
		image.Data,
	)
	if err := row.Scan(&image.CreatedAt); err != nil {
		return models.Image{}, apperr.Store("insert image", err)
	}
	return image, nil
}

// GetByID returns the full record including the binary payload.
func (r *ImageRepository) GetByID(ctx context.Context, id string) (models.Image, error) {
	const query = `
		SELECT id, filename, content_type, size_bytes, image_data, created_at
		FROM images WHERE id = $1
	`

	row := r.pool.QueryRow(ctx, query, id)
	var image models.Image
	if err := row.Scan(
		&image.ID,
		&image.Filename,
		&image.ContentType,
		&image.SizeBytes,
		&image.Data,
		&image.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Image{}, apperr.NotFound("image not found")
		}
		return models.Image{}, apperr.Store("select image", err)
	}
	return image, nil
}

// Stats reports row count and total stored bytes, used by the periodic
// stats job.
func (r *ImageRepository) Stats(ctx context.Context) (count int64, totalBytes int64, err error) {
	const query = `SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM images`

	row := r.pool.QueryRow(ctx, query)
	if err := row.Scan(&count, &totalBytes); err != nil {
		return 0, 0, apperr.Store("image stats", err)
	}
	return count, totalBytes, nil
}
