package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"blogcore/internal/domain/models"
	"blogcore/internal/domain/visibility"
	"blogcore/internal/lib/logger/sl"
	"blogcore/internal/metrics"
	"blogcore/internal/repository"
	"blogcore/internal/storage"

	"github.com/google/uuid"
)

// ErrNotFound is the only error the query service originates. It covers
// both missing entities and posts the caller may not see.
var ErrNotFound = errors.New("not found")

const DefaultPageSize = 10

// PostPage is one page of a post listing.
type PostPage struct {
	Items      []models.Post
	Page       int
	PageSize   int
	TotalCount int
	HasNext    bool
	HasPrev    bool
}

type QueryService struct {
	log        *slog.Logger
	posts      repository.PostRepository
	categories repository.CategoryRepository
	images     repository.ImageRepository
	pageSize   int
	now        func() time.Time
}

// New builds the read side. now is consulted on every call so visibility
// follows the wall clock; pass nil for time.Now.
func New(
	log *slog.Logger,
	posts repository.PostRepository,
	categories repository.CategoryRepository,
	images repository.ImageRepository,
	pageSize int,
	now func() time.Time,
) *QueryService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if now == nil {
		now = time.Now
	}

	return &QueryService{
		log:        log,
		posts:      posts,
		categories: categories,
		images:     images,
		pageSize:   pageSize,
		now:        now,
	}
}

// ListPosts returns one page of the posts the caller may see, optionally
// restricted to a category. A page past the end is empty, not an error.
func (s *QueryService) ListPosts(ctx context.Context, privileged bool, categoryID *uuid.UUID, page, pageSize int) (*PostPage, error) {
	const op = "query_service.ListPosts"

	log := s.log.With(
		slog.String("op", op),
		slog.Int("page", page),
		slog.Int("page_size", pageSize),
	)

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.pageSize
	}

	filter := visibility.Filter(visibility.ScopeFor(privileged), s.now())
	filter.CategoryID = categoryID

	total, err := s.posts.CountPosts(ctx, filter)
	if err != nil {
		log.Error("failed to count posts", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// compare page numbers first so (page-1)*pageSize cannot overflow
	inRange := total > 0 && page-1 <= (total-1)/pageSize
	offset := 0
	items := []models.Post{}

	if inRange {
		offset = (page - 1) * pageSize
		items, err = s.posts.ListPosts(ctx, filter, pageSize, offset)
		if err != nil {
			log.Error("failed to list posts", sl.Err(err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if err := s.hydrate(ctx, items); err != nil {
			log.Error("failed to load post relations", sl.Err(err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return &PostPage{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		HasNext:    inRange && offset+len(items) < total,
		HasPrev:    page > 1,
	}, nil
}

// GetPostBySlug looks the post up inside the caller's scope. A post that
// exists but is not public yet is ErrNotFound for unprivileged callers.
func (s *QueryService) GetPostBySlug(ctx context.Context, privileged bool, slug string) (models.Post, error) {
	const op = "query_service.GetPostBySlug"

	log := s.log.With(
		slog.String("op", op),
		slog.String("slug", slug),
	)

	post, err := s.findPost(ctx, privileged, slug)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Error("failed to get post", sl.Err(err))
		}
		return models.Post{}, fmt.Errorf("%s: %w", op, err)
	}

	posts := []models.Post{post}
	if err := s.hydrate(ctx, posts); err != nil {
		log.Error("failed to load post relations", sl.Err(err))
		return models.Post{}, fmt.Errorf("%s: %w", op, err)
	}

	return posts[0], nil
}

func (s *QueryService) GetCategoryBySlug(ctx context.Context, slug string) (models.Category, error) {
	const op = "query_service.GetCategoryBySlug"

	category, err := s.categories.GetCategoryBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, storage.ErrCategoryNotFound) {
			metrics.NotFoundTotal.WithLabelValues("category").Inc()
			return models.Category{}, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		s.log.With(slog.String("op", op)).Error("failed to get category", sl.Err(err))
		return models.Category{}, fmt.Errorf("%s: %w", op, err)
	}

	return category, nil
}

// ListPostsInCategory resolves the category first, so an unknown slug is
// ErrNotFound while a known but empty category is an empty page.
func (s *QueryService) ListPostsInCategory(ctx context.Context, privileged bool, slug string, page, pageSize int) (models.Category, *PostPage, error) {
	const op = "query_service.ListPostsInCategory"

	category, err := s.GetCategoryBySlug(ctx, slug)
	if err != nil {
		return models.Category{}, nil, fmt.Errorf("%s: %w", op, err)
	}

	result, err := s.ListPosts(ctx, privileged, &category.ID, page, pageSize)
	if err != nil {
		return models.Category{}, nil, fmt.Errorf("%s: %w", op, err)
	}

	return category, result, nil
}

// LatestPosts returns up to limit public posts, newest first.
func (s *QueryService) LatestPosts(ctx context.Context, limit int) ([]models.Post, error) {
	const op = "query_service.LatestPosts"

	if limit <= 0 {
		limit = s.pageSize
	}

	filter := visibility.Filter(visibility.ScopePublicOnly, s.now())

	posts, err := s.posts.ListPosts(ctx, filter, limit, 0)
	if err != nil {
		s.log.With(slog.String("op", op)).Error("failed to list posts", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.hydrate(ctx, posts); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return posts, nil
}

// ListCategories returns up to limit categories; limit <= 0 means all.
func (s *QueryService) ListCategories(ctx context.Context, limit int) ([]models.Category, error) {
	const op = "query_service.ListCategories"

	categories, err := s.categories.ListCategories(ctx, limit)
	if err != nil {
		s.log.With(slog.String("op", op)).Error("failed to list categories", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if categories == nil {
		categories = []models.Category{}
	}

	return categories, nil
}

// GetPostImage returns the latest image of role on a post the caller may
// see. A post without such an image yields ok == false and no error.
func (s *QueryService) GetPostImage(ctx context.Context, privileged bool, slug string, role models.ImageRole) (models.PostImage, bool, error) {
	const op = "query_service.GetPostImage"

	log := s.log.With(
		slog.String("op", op),
		slog.String("slug", slug),
		slog.String("role", string(role)),
	)

	post, err := s.findPost(ctx, privileged, slug)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Error("failed to get post", sl.Err(err))
		}
		return models.PostImage{}, false, fmt.Errorf("%s: %w", op, err)
	}

	image, err := s.images.LatestImageByRole(ctx, post.ID, role)
	if err != nil {
		if errors.Is(err, storage.ErrImageNotFound) {
			return models.PostImage{}, false, nil
		}
		log.Error("failed to get image", sl.Err(err))
		return models.PostImage{}, false, fmt.Errorf("%s: %w", op, err)
	}

	return image, true, nil
}

func (s *QueryService) findPost(ctx context.Context, privileged bool, slug string) (models.Post, error) {
	filter := visibility.Filter(visibility.ScopeFor(privileged), s.now())

	post, err := s.posts.GetPostBySlug(ctx, slug, filter)
	if err != nil {
		if errors.Is(err, storage.ErrPostNotFound) {
			metrics.NotFoundTotal.WithLabelValues("post").Inc()
			return models.Post{}, ErrNotFound
		}
		return models.Post{}, err
	}

	return post, nil
}

// hydrate attaches categories and images to posts in two batched reads.
func (s *QueryService) hydrate(ctx context.Context, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}

	categories, err := s.categories.GetCategoriesByPostIDs(ctx, ids)
	if err != nil {
		return err
	}

	images, err := s.images.GetImagesByPostIDs(ctx, ids)
	if err != nil {
		return err
	}

	for i := range posts {
		posts[i].Categories = categories[posts[i].ID]
		posts[i].Images = images[posts[i].ID]
	}

	return nil
}
