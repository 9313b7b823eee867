package repository

import (
	"context"

	"blogcore/internal/domain/models"

	"github.com/google/uuid"
)

type PostRepository interface {
	SavePost(ctx context.Context, post models.Post) (models.Post, error)
	UpdatePost(ctx context.Context, post models.Post) (models.Post, error)
	DeletePost(ctx context.Context, postID uuid.UUID) error
	GetPostByID(ctx context.Context, postID uuid.UUID) (models.Post, error)
	GetPostBySlug(ctx context.Context, slug string, filter models.PostFilter) (models.Post, error)
	ListPosts(ctx context.Context, filter models.PostFilter, limit, offset int) ([]models.Post, error)
	CountPosts(ctx context.Context, filter models.PostFilter) (int, error)
	SetPostCategories(ctx context.Context, postID uuid.UUID, categoryIDs []uuid.UUID) error
}

type CategoryRepository interface {
	SaveCategory(ctx context.Context, category models.Category) (models.Category, error)
	UpdateCategory(ctx context.Context, category models.Category) (models.Category, error)
	DeleteCategory(ctx context.Context, categoryID uuid.UUID) error
	GetCategoryByID(ctx context.Context, categoryID uuid.UUID) (models.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (models.Category, error)
	ListCategories(ctx context.Context, limit int) ([]models.Category, error)
	GetCategoriesByPostIDs(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID][]models.Category, error)
}

type ImageRepository interface {
	CreateImage(ctx context.Context, image models.PostImage) (models.PostImage, error)
	DeleteImage(ctx context.Context, imageID uuid.UUID) error
	GetImageByID(ctx context.Context, imageID uuid.UUID) (models.PostImage, error)
	GetImagesByPostIDs(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID][]models.PostImage, error)
	LatestImageByRole(ctx context.Context, postID uuid.UUID, role models.ImageRole) (models.PostImage, error)
}
