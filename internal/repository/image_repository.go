package repository

import (
	"context"
	"errors"
	"fmt"

	"blogcore/internal/domain/models"
	"blogcore/internal/storage"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

var imageColumns = []string{
	"id",
	"seq",
	"post_id",
	"title",
	"COALESCE(role, '')",
	"storage_path",
}

type ImageRepo struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewImageRepository(db *pgxpool.Pool) *ImageRepo {
	return &ImageRepo{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// CreateImage stores the image row. The returned Seq is higher than that
// of any image inserted before it.
func (r *ImageRepo) CreateImage(ctx context.Context, image models.PostImage) (models.PostImage, error) {
	const op = "repository.image_repository.CreateImage"

	query, args, err := r.sb.Insert("post_images").
		Columns("post_id", "title", "role", "storage_path").
		Values(image.PostID, image.Title, string(image.Role), image.StoragePath).
		Suffix("RETURNING id, seq").
		ToSql()
	if err != nil {
		return models.PostImage{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&image.ID, &image.Seq); err != nil {
		switch {
		case isForeignKeyViolation(err):
			return models.PostImage{}, fmt.Errorf("%s: %w", op, storage.ErrPostNotFound)
		case isUniqueViolation(err):
			return models.PostImage{}, fmt.Errorf("%s: %w", op, storage.ErrFileExists)
		}
		return models.PostImage{}, fmt.Errorf("%s: %w", op, err)
	}

	return image, nil
}

func (r *ImageRepo) DeleteImage(ctx context.Context, imageID uuid.UUID) error {
	const op = "repository.image_repository.DeleteImage"

	query, args, err := r.sb.Delete("post_images").Where(sq.Eq{"id": imageID}).ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrImageNotFound)
	}

	return nil
}

func (r *ImageRepo) GetImageByID(ctx context.Context, imageID uuid.UUID) (models.PostImage, error) {
	const op = "repository.image_repository.GetImageByID"

	query, args, err := r.sb.Select(imageColumns...).From("post_images").Where(sq.Eq{"id": imageID}).ToSql()
	if err != nil {
		return models.PostImage{}, fmt.Errorf("%s: %w", op, err)
	}

	image, err := scanImage(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.PostImage{}, fmt.Errorf("%s: %w", op, storage.ErrImageNotFound)
		}
		return models.PostImage{}, fmt.Errorf("%s: %w", op, err)
	}

	return image, nil
}

// GetImagesByPostIDs returns each post's images in insertion order.
func (r *ImageRepo) GetImagesByPostIDs(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID][]models.PostImage, error) {
	const op = "repository.image_repository.GetImagesByPostIDs"

	result := make(map[uuid.UUID][]models.PostImage, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}

	query, args, err := r.sb.Select(imageColumns...).
		From("post_images").
		Where("post_id = ANY(?::uuid[])", uuidArray(postIDs)).
		OrderBy("seq ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		image, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result[image.PostID] = append(result[image.PostID], image)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

// LatestImageByRole returns the most recently inserted image of role.
func (r *ImageRepo) LatestImageByRole(ctx context.Context, postID uuid.UUID, role models.ImageRole) (models.PostImage, error) {
	const op = "repository.image_repository.LatestImageByRole"

	query, args, err := r.sb.Select(imageColumns...).
		From("post_images").
		Where(sq.Eq{"post_id": postID, "role": string(role)}).
		OrderBy("seq DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return models.PostImage{}, fmt.Errorf("%s: %w", op, err)
	}

	image, err := scanImage(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.PostImage{}, fmt.Errorf("%s: %w", op, storage.ErrImageNotFound)
		}
		return models.PostImage{}, fmt.Errorf("%s: %w", op, err)
	}

	return image, nil
}

func scanImage(row pgx.Row) (models.PostImage, error) {
	var (
		img  models.PostImage
		role string
	)
	err := row.Scan(&img.ID, &img.Seq, &img.PostID, &img.Title, &role, &img.StoragePath)
	img.Role = models.ImageRole(role)
	return img, err
}
