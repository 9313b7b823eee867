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

var categoryColumns = []string{
	"c.id",
	"c.title",
	"c.slug",
	"COALESCE(c.seo_title, '')",
	"COALESCE(c.seo_description, '')",
	"COALESCE(c.seo_keywords, '')",
}

type CategoryRepo struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewCategoryRepository(db *pgxpool.Pool) *CategoryRepo {
	return &CategoryRepo{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *CategoryRepo) SaveCategory(ctx context.Context, category models.Category) (models.Category, error) {
	const op = "repository.category_repository.SaveCategory"

	query, args, err := r.sb.Insert("categories").
		Columns("title", "slug", "seo_title", "seo_description", "seo_keywords").
		Values(category.Title, category.Slug, category.SEO.Title, category.SEO.Description, category.SEO.Keywords).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return models.Category{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&category.ID); err != nil {
		if isUniqueViolation(err) {
			return models.Category{}, fmt.Errorf("%s: %w", op, storage.ErrSlugExists)
		}
		return models.Category{}, fmt.Errorf("%s: %w", op, err)
	}

	return category, nil
}

func (r *CategoryRepo) UpdateCategory(ctx context.Context, category models.Category) (models.Category, error) {
	const op = "repository.category_repository.UpdateCategory"

	query, args, err := r.sb.Update("categories").
		Set("title", category.Title).
		Set("slug", category.Slug).
		Set("seo_title", category.SEO.Title).
		Set("seo_description", category.SEO.Description).
		Set("seo_keywords", category.SEO.Keywords).
		Where(sq.Eq{"id": category.ID}).
		ToSql()
	if err != nil {
		return models.Category{}, fmt.Errorf("%s: %w", op, err)
	}

	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Category{}, fmt.Errorf("%s: %w", op, storage.ErrSlugExists)
		}
		return models.Category{}, fmt.Errorf("%s: %w", op, err)
	}

	if result.RowsAffected() == 0 {
		return models.Category{}, fmt.Errorf("%s: %w", op, storage.ErrCategoryNotFound)
	}

	return category, nil
}

// DeleteCategory removes the category. Posts keep existing; they just lose
// the link.
func (r *CategoryRepo) DeleteCategory(ctx context.Context, categoryID uuid.UUID) error {
	const op = "repository.category_repository.DeleteCategory"

	query, args, err := r.sb.Delete("categories").Where(sq.Eq{"id": categoryID}).ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrCategoryNotFound)
	}

	return nil
}

func (r *CategoryRepo) GetCategoryByID(ctx context.Context, categoryID uuid.UUID) (models.Category, error) {
	const op = "repository.category_repository.GetCategoryByID"

	category, err := r.getOne(ctx, sq.Eq{"c.id": categoryID})
	if err != nil {
		return models.Category{}, fmt.Errorf("%s: %w", op, err)
	}

	return category, nil
}

func (r *CategoryRepo) GetCategoryBySlug(ctx context.Context, slug string) (models.Category, error) {
	const op = "repository.category_repository.GetCategoryBySlug"

	category, err := r.getOne(ctx, sq.Eq{"c.slug": slug})
	if err != nil {
		return models.Category{}, fmt.Errorf("%s: %w", op, err)
	}

	return category, nil
}

func (r *CategoryRepo) getOne(ctx context.Context, where sq.Sqlizer) (models.Category, error) {
	query, args, err := r.sb.Select(categoryColumns...).From("categories c").Where(where).ToSql()
	if err != nil {
		return models.Category{}, err
	}

	category, err := scanCategory(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Category{}, storage.ErrCategoryNotFound
		}
		return models.Category{}, err
	}

	return category, nil
}

// ListCategories returns categories ordered by title. limit <= 0 means all.
func (r *CategoryRepo) ListCategories(ctx context.Context, limit int) ([]models.Category, error) {
	const op = "repository.category_repository.ListCategories"

	builder := r.sb.Select(categoryColumns...).From("categories c").OrderBy("c.title ASC", "c.slug ASC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return categories, nil
}

// GetCategoriesByPostIDs loads the category sets of several posts in one
// round trip. Posts without categories are absent from the result.
func (r *CategoryRepo) GetCategoriesByPostIDs(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID][]models.Category, error) {
	const op = "repository.category_repository.GetCategoriesByPostIDs"

	result := make(map[uuid.UUID][]models.Category, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}

	query, args, err := r.sb.Select(append([]string{"pc.post_id"}, categoryColumns...)...).
		From("post_categories pc").
		Join("categories c ON c.id = pc.category_id").
		Where("pc.post_id = ANY(?::uuid[])", uuidArray(postIDs)).
		OrderBy("c.title ASC", "c.slug ASC").
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
		var (
			postID uuid.UUID
			c      models.Category
		)
		err := rows.Scan(&postID, &c.ID, &c.Title, &c.Slug, &c.SEO.Title, &c.SEO.Description, &c.SEO.Keywords)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result[postID] = append(result[postID], c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

func scanCategory(row pgx.Row) (models.Category, error) {
	var c models.Category
	err := row.Scan(&c.ID, &c.Title, &c.Slug, &c.SEO.Title, &c.SEO.Description, &c.SEO.Keywords)
	return c, err
}
