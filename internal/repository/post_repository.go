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

var postColumns = []string{
	"p.id",
	"p.title",
	"p.slug",
	"COALESCE(p.content, '')",
	"p.created_at",
	"p.publication_date",
	"p.is_visible",
	"COALESCE(p.seo_title, '')",
	"COALESCE(p.seo_description, '')",
	"COALESCE(p.seo_keywords, '')",
}

type PostRepo struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewPostRepository(db *pgxpool.Pool) *PostRepo {
	return &PostRepo{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *PostRepo) SavePost(ctx context.Context, post models.Post) (models.Post, error) {
	const op = "repository.post_repository.SavePost"

	query, args, err := r.sb.Insert("posts").
		Columns(
			"title",
			"slug",
			"content",
			"publication_date",
			"is_visible",
			"seo_title",
			"seo_description",
			"seo_keywords",
		).
		Values(
			post.Title,
			post.Slug,
			post.Content,
			post.PublicationDate,
			post.IsVisible,
			post.SEO.Title,
			post.SEO.Description,
			post.SEO.Keywords,
		).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return models.Post{}, fmt.Errorf("%s: %w", op, err)
	}

	err = r.db.QueryRow(ctx, query, args...).Scan(&post.ID, &post.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Post{}, fmt.Errorf("%s: %w", op, storage.ErrSlugExists)
		}
		return models.Post{}, fmt.Errorf("%s: %w", op, err)
	}

	return post, nil
}

// UpdatePost overwrites every editable column. CreatedAt is never written.
func (r *PostRepo) UpdatePost(ctx context.Context, post models.Post) (models.Post, error) {
	const op = "repository.post_repository.UpdatePost"

	query, args, err := r.sb.Update("posts").
		Set("title", post.Title).
		Set("slug", post.Slug).
		Set("content", post.Content).
		Set("publication_date", post.PublicationDate).
		Set("is_visible", post.IsVisible).
		Set("seo_title", post.SEO.Title).
		Set("seo_description", post.SEO.Description).
		Set("seo_keywords", post.SEO.Keywords).
		Where(sq.Eq{"id": post.ID}).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return models.Post{}, fmt.Errorf("%s: %w", op, err)
	}

	err = r.db.QueryRow(ctx, query, args...).Scan(&post.CreatedAt)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return models.Post{}, fmt.Errorf("%s: %w", op, storage.ErrPostNotFound)
		case isUniqueViolation(err):
			return models.Post{}, fmt.Errorf("%s: %w", op, storage.ErrSlugExists)
		}
		return models.Post{}, fmt.Errorf("%s: %w", op, err)
	}

	return post, nil
}

// DeletePost removes the post; its images and category links go with it.
func (r *PostRepo) DeletePost(ctx context.Context, postID uuid.UUID) error {
	const op = "repository.post_repository.DeletePost"

	query, args, err := r.sb.Delete("posts").
		Where(sq.Eq{"id": postID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrPostNotFound)
	}

	return nil
}

func (r *PostRepo) GetPostByID(ctx context.Context, postID uuid.UUID) (models.Post, error) {
	const op = "repository.post_repository.GetPostByID"

	post, err := r.getOne(ctx, sq.Eq{"p.id": postID}, models.PostFilter{})
	if err != nil {
		return models.Post{}, fmt.Errorf("%s: %w", op, err)
	}

	return post, nil
}

// GetPostBySlug finds a post by slug within filter. A post outside the
// filter is reported exactly like a missing one.
func (r *PostRepo) GetPostBySlug(ctx context.Context, slug string, filter models.PostFilter) (models.Post, error) {
	const op = "repository.post_repository.GetPostBySlug"

	post, err := r.getOne(ctx, sq.Eq{"p.slug": slug}, filter)
	if err != nil {
		return models.Post{}, fmt.Errorf("%s: %w", op, err)
	}

	return post, nil
}

func (r *PostRepo) getOne(ctx context.Context, where sq.Sqlizer, filter models.PostFilter) (models.Post, error) {
	query, args, err := applyPostFilter(
		r.sb.Select(postColumns...).From("posts p").Where(where),
		filter,
	).ToSql()
	if err != nil {
		return models.Post{}, err
	}

	post, err := scanPost(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Post{}, storage.ErrPostNotFound
		}
		return models.Post{}, err
	}

	return post, nil
}

// ListPosts returns one window of posts in listing order: newest
// publication date first, then newest creation, then slug.
func (r *PostRepo) ListPosts(ctx context.Context, filter models.PostFilter, limit, offset int) ([]models.Post, error) {
	const op = "repository.post_repository.ListPosts"

	builder := applyPostFilter(r.sb.Select(postColumns...).From("posts p"), filter).
		OrderBy("p.publication_date DESC", "p.created_at DESC", "p.slug ASC")

	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	if offset > 0 {
		builder = builder.Offset(uint64(offset))
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

	posts := make([]models.Post, 0, limit)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return posts, nil
}

func (r *PostRepo) CountPosts(ctx context.Context, filter models.PostFilter) (int, error) {
	const op = "repository.post_repository.CountPosts"

	query, args, err := applyPostFilter(r.sb.Select("COUNT(*)").From("posts p"), filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

// SetPostCategories replaces the post's category set.
func (r *PostRepo) SetPostCategories(ctx context.Context, postID uuid.UUID, categoryIDs []uuid.UUID) error {
	const op = "repository.post_repository.SetPostCategories"

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback(ctx)

	var locked uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM posts WHERE id = $1 FOR UPDATE`, postID).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%s: %w", op, storage.ErrPostNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	query, args, err := r.sb.Delete("post_categories").Where(sq.Eq{"post_id": postID}).ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if len(categoryIDs) > 0 {
		insert := r.sb.Insert("post_categories").
			Columns("post_id", "category_id").
			Suffix("ON CONFLICT DO NOTHING")
		for _, id := range categoryIDs {
			insert = insert.Values(postID, id)
		}

		query, args, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%s: %w", op, storage.ErrCategoryNotFound)
			}
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func applyPostFilter(b sq.SelectBuilder, filter models.PostFilter) sq.SelectBuilder {
	if filter.PublicAsOf != nil {
		b = b.Where(sq.Eq{"p.is_visible": true}).
			Where(sq.LtOrEq{"p.publication_date": *filter.PublicAsOf})
	}

	if filter.CategoryID != nil {
		b = b.Where(
			"EXISTS (SELECT 1 FROM post_categories pc WHERE pc.post_id = p.id AND pc.category_id = ?)",
			*filter.CategoryID,
		)
	}

	return b
}

func scanPost(row pgx.Row) (models.Post, error) {
	var p models.Post
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Slug,
		&p.Content,
		&p.CreatedAt,
		&p.PublicationDate,
		&p.IsVisible,
		&p.SEO.Title,
		&p.SEO.Description,
		&p.SEO.Keywords,
	)
	return p, err
}
