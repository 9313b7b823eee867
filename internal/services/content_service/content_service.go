package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"path"
	"strconv"
	"strings"
	"time"

	"blogcore/internal/domain/models"
	"blogcore/internal/domain/visibility"
	"blogcore/internal/lib/logger/sl"
	"blogcore/internal/lib/markup"
	"blogcore/internal/repository"
	"blogcore/internal/storage"
	"blogcore/internal/transport/http/dto"

	"github.com/google/uuid"
)

// ErrNotFound is returned when the post, category or image being edited
// does not exist.
var ErrNotFound = errors.New("not found")

// BlobStore persists image files at the paths the service chooses.
type BlobStore interface {
	Save(ctx context.Context, file *multipart.FileHeader, relPath string) (int64, error)
	Delete(ctx context.Context, relPath string) error
}

type ContentService struct {
	log        *slog.Logger
	posts      repository.PostRepository
	categories repository.CategoryRepository
	images     repository.ImageRepository
	blobs      BlobStore
	now        func() time.Time
}

func New(
	log *slog.Logger,
	posts repository.PostRepository,
	categories repository.CategoryRepository,
	images repository.ImageRepository,
	blobs BlobStore,
	now func() time.Time,
) *ContentService {
	if now == nil {
		now = time.Now
	}

	return &ContentService{
		log:        log,
		posts:      posts,
		categories: categories,
		images:     images,
		blobs:      blobs,
		now:        now,
	}
}

// CreatePost stores a new post. Blank slug, publication date and SEO fields
// are derived; visibility defaults to true.
func (s *ContentService) CreatePost(ctx context.Context, req dto.CreatePostRequest) (models.Post, error) {
	const op = "content_service.CreatePost"

	log := s.log.With(slog.String("op", op))

	post := models.Post{
		Title:     req.Title,
		Slug:      req.Slug,
		Content:   req.Content,
		IsVisible: true,
		SEO: models.SEO{
			Title:       req.SEOTitle,
			Description: req.SEODescription,
			Keywords:    req.SEOKeywords,
		},
	}

	if req.IsVisible != nil {
		post.IsVisible = *req.IsVisible
	}

	if req.PublicationDate != "" {
		d, err := parseDate(req.PublicationDate)
		if err != nil {
			return models.Post{}, err
		}
		post.PublicationDate = d
	} else {
		post.PublicationDate = visibility.DateOf(s.now())
	}

	if post.Slug == "" {
		post.Slug = slugFromTitle(post.Title)
		log.Debug("generated slug", slog.String("slug", post.Slug))
	}

	post.ApplySEODefaults()

	if err := post.Validate(); err != nil {
		log.Info("post rejected", slog.String("reason", err.Error()))
		return models.Post{}, err
	}

	saved, err := s.posts.SavePost(ctx, post)
	if err != nil {
		if errors.Is(err, storage.ErrSlugExists) {
			return models.Post{}, models.NewValidationError("slug", "already exists")
		}
		log.Error("failed to save post", sl.Err(err))
		return models.Post{}, fmt.Errorf("%s: %w", op, err)
	}

	if len(req.CategoryIDs) > 0 {
		if err := s.setCategories(ctx, saved.ID, req.CategoryIDs); err != nil {
			// the post must not outlive a rejected create
			if delErr := s.posts.DeletePost(ctx, saved.ID); delErr != nil {
				log.Error("failed to remove post after category error",
					slog.String("post_id", saved.ID.String()), sl.Err(delErr))
			}
			return models.Post{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	log.Info("post created", slog.String("post_id", saved.ID.String()), slog.String("slug", saved.Slug))

	return s.loadPost(ctx, saved.ID)
}

// UpdatePost applies the fields present in req. SEO fields left blank after
// the change are derived again.
func (s *ContentService) UpdatePost(ctx context.Context, postID uuid.UUID, req dto.UpdatePostRequest) (models.Post, error) {
	const op = "content_service.UpdatePost"

	log := s.log.With(
		slog.String("op", op),
		slog.String("post_id", postID.String()),
	)

	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return models.Post{}, s.notFoundOr(op, err, storage.ErrPostNotFound)
	}

	if req.Title != nil {
		post.Title = *req.Title
	}
	if req.Slug != nil {
		post.Slug = *req.Slug
	}
	if req.Content != nil {
		post.Content = *req.Content
	}
	if req.PublicationDate != nil {
		d, err := parseDate(*req.PublicationDate)
		if err != nil {
			return models.Post{}, err
		}
		post.PublicationDate = d
	}
	if req.IsVisible != nil {
		post.IsVisible = *req.IsVisible
	}
	if req.SEOTitle != nil {
		post.SEO.Title = *req.SEOTitle
	}
	if req.SEODescription != nil {
		post.SEO.Description = *req.SEODescription
	}
	if req.SEOKeywords != nil {
		post.SEO.Keywords = *req.SEOKeywords
	}

	if post.Slug == "" {
		post.Slug = slugFromTitle(post.Title)
	}

	post.ApplySEODefaults()

	if err := post.Validate(); err != nil {
		log.Info("post update rejected", slog.String("reason", err.Error()))
		return models.Post{}, err
	}

	if _, err := s.posts.UpdatePost(ctx, post); err != nil {
		switch {
		case errors.Is(err, storage.ErrSlugExists):
			return models.Post{}, models.NewValidationError("slug", "already exists")
		case errors.Is(err, storage.ErrPostNotFound):
			return models.Post{}, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		log.Error("failed to update post", sl.Err(err))
		return models.Post{}, fmt.Errorf("%s: %w", op, err)
	}

	if req.CategoryIDs != nil {
		if err := s.setCategories(ctx, postID, *req.CategoryIDs); err != nil {
			return models.Post{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	log.Info("post updated")

	return s.loadPost(ctx, postID)
}

// DeletePost removes the post, its image rows and then its image files.
func (s *ContentService) DeletePost(ctx context.Context, postID uuid.UUID) error {
	const op = "content_service.DeletePost"

	log := s.log.With(
		slog.String("op", op),
		slog.String("post_id", postID.String()),
	)

	images, err := s.images.GetImagesByPostIDs(ctx, []uuid.UUID{postID})
	if err != nil {
		log.Error("failed to list images", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.posts.DeletePost(ctx, postID); err != nil {
		return s.notFoundOr(op, err, storage.ErrPostNotFound)
	}

	var firstErr error
	for _, img := range images[postID] {
		if err := s.blobs.Delete(ctx, img.StoragePath); err != nil && !errors.Is(err, storage.ErrFileNotFound) {
			log.Error("failed to delete image file", slog.String("path", img.StoragePath), sl.Err(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if firstErr != nil {
		return fmt.Errorf("%s: %w", op, firstErr)
	}

	log.Info("post deleted")

	return nil
}

// SetPostCategories replaces the category set of a post.
func (s *ContentService) SetPostCategories(ctx context.Context, postID uuid.UUID, categoryIDs []uuid.UUID) (models.Post, error) {
	const op = "content_service.SetPostCategories"

	if err := s.setCategories(ctx, postID, categoryIDs); err != nil {
		return models.Post{}, fmt.Errorf("%s: %w", op, err)
	}

	return s.loadPost(ctx, postID)
}

func (s *ContentService) setCategories(ctx context.Context, postID uuid.UUID, categoryIDs []uuid.UUID) error {
	err := s.posts.SetPostCategories(ctx, postID, categoryIDs)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrPostNotFound):
		return ErrNotFound
	case errors.Is(err, storage.ErrCategoryNotFound):
		return models.NewValidationError("category_ids", "unknown category")
	default:
		s.log.Error("failed to set post categories", slog.String("post_id", postID.String()), sl.Err(err))
		return err
	}
}

func (s *ContentService) CreateCategory(ctx context.Context, req dto.CreateCategoryRequest) (models.Category, error) {
	const op = "content_service.CreateCategory"

	log := s.log.With(slog.String("op", op))

	category := models.Category{
		Title: req.Title,
		Slug:  req.Slug,
		SEO: models.SEO{
			Title:       req.SEOTitle,
			Description: req.SEODescription,
			Keywords:    req.SEOKeywords,
		},
	}

	if category.Slug == "" {
		category.Slug = slugFromTitle(category.Title)
	}

	if err := category.Validate(); err != nil {
		return models.Category{}, err
	}

	saved, err := s.categories.SaveCategory(ctx, category)
	if err != nil {
		if errors.Is(err, storage.ErrSlugExists) {
			return models.Category{}, models.NewValidationError("slug", "already exists")
		}
		log.Error("failed to save category", sl.Err(err))
		return models.Category{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("category created", slog.String("category_id", saved.ID.String()))

	return saved, nil
}

func (s *ContentService) UpdateCategory(ctx context.Context, categoryID uuid.UUID, req dto.UpdateCategoryRequest) (models.Category, error) {
	const op = "content_service.UpdateCategory"

	category, err := s.categories.GetCategoryByID(ctx, categoryID)
	if err != nil {
		return models.Category{}, s.notFoundOr(op, err, storage.ErrCategoryNotFound)
	}

	if req.Title != nil {
		category.Title = *req.Title
	}
	if req.Slug != nil {
		category.Slug = *req.Slug
	}
	if req.SEOTitle != nil {
		category.SEO.Title = *req.SEOTitle
	}
	if req.SEODescription != nil {
		category.SEO.Description = *req.SEODescription
	}
	if req.SEOKeywords != nil {
		category.SEO.Keywords = *req.SEOKeywords
	}

	if category.Slug == "" {
		category.Slug = slugFromTitle(category.Title)
	}

	if err := category.Validate(); err != nil {
		return models.Category{}, err
	}

	updated, err := s.categories.UpdateCategory(ctx, category)
	if err != nil {
		if errors.Is(err, storage.ErrSlugExists) {
			return models.Category{}, models.NewValidationError("slug", "already exists")
		}
		return models.Category{}, s.notFoundOr(op, err, storage.ErrCategoryNotFound)
	}

	return updated, nil
}

func (s *ContentService) DeleteCategory(ctx context.Context, categoryID uuid.UUID) error {
	const op = "content_service.DeleteCategory"

	if err := s.categories.DeleteCategory(ctx, categoryID); err != nil {
		return s.notFoundOr(op, err, storage.ErrCategoryNotFound)
	}

	s.log.Info("category deleted", slog.String("category_id", categoryID.String()))

	return nil
}

// AttachImage stores file under the post's image namespace and records it.
// The file is removed again when the row cannot be written.
func (s *ContentService) AttachImage(ctx context.Context, postID uuid.UUID, title string, role models.ImageRole, file *multipart.FileHeader) (models.PostImage, error) {
	const op = "content_service.AttachImage"

	log := s.log.With(
		slog.String("op", op),
		slog.String("post_id", postID.String()),
	)

	if file == nil {
		return models.PostImage{}, models.NewValidationError("file", "is required")
	}

	if _, err := s.posts.GetPostByID(ctx, postID); err != nil {
		return models.PostImage{}, s.notFoundOr(op, err, storage.ErrPostNotFound)
	}

	existing, err := s.images.GetImagesByPostIDs(ctx, []uuid.UUID{postID})
	if err != nil {
		log.Error("failed to list images", sl.Err(err))
		return models.PostImage{}, fmt.Errorf("%s: %w", op, err)
	}

	if title == "" {
		title = strings.TrimSuffix(path.Base(file.Filename), path.Ext(file.Filename))
	}

	want := models.ImagePath(postID, file.Filename)
	taken := existing[postID]

	var saved models.PostImage
	for attempt := 0; ; attempt++ {
		image := models.PostImage{
			PostID:      postID,
			Title:       title,
			Role:        role,
			StoragePath: freePath(want, taken),
		}

		if err := image.Validate(); err != nil {
			return models.PostImage{}, err
		}

		// a concurrent upload may claim the same name between listing and writing
		saved, err = s.storeImage(ctx, file, image)
		if errors.Is(err, storage.ErrFileExists) && attempt < maxPathAttempts {
			log.Debug("image path taken, retrying", slog.String("path", image.StoragePath))
			taken = append(taken, image)
			continue
		}
		if err != nil {
			return models.PostImage{}, s.imageError(op, log, err)
		}
		break
	}

	log.Info("image attached",
		slog.String("image_id", saved.ID.String()),
		slog.String("role", string(saved.Role)),
	)

	return saved, nil
}

// maxPathAttempts bounds the retries when concurrent uploads race for a path.
const maxPathAttempts = 16

// storeImage writes the blob and then the row. The blob is removed again when
// the row cannot be written.
func (s *ContentService) storeImage(ctx context.Context, file *multipart.FileHeader, image models.PostImage) (models.PostImage, error) {
	if _, err := s.blobs.Save(ctx, file, image.StoragePath); err != nil {
		return models.PostImage{}, err
	}

	saved, err := s.images.CreateImage(ctx, image)
	if err != nil {
		if delErr := s.blobs.Delete(ctx, image.StoragePath); delErr != nil {
			s.log.Warn("failed to remove orphaned image file",
				slog.String("path", image.StoragePath), sl.Err(delErr))
		}
		return models.PostImage{}, err
	}

	return saved, nil
}

func (s *ContentService) imageError(op string, log *slog.Logger, err error) error {
	switch {
	case errors.Is(err, storage.ErrFileTooLarge):
		return models.NewValidationError("file", "is too large")
	case errors.Is(err, storage.ErrInvalidFileType):
		return models.NewValidationError("file", "is not a supported image type")
	case errors.Is(err, storage.ErrPostNotFound):
		return s.notFoundOr(op, err, storage.ErrPostNotFound)
	}
	log.Error("failed to store image", sl.Err(err))
	return fmt.Errorf("%s: %w", op, err)
}

// DeleteImage removes the image row and then its file.
func (s *ContentService) DeleteImage(ctx context.Context, imageID uuid.UUID) error {
	const op = "content_service.DeleteImage"

	log := s.log.With(
		slog.String("op", op),
		slog.String("image_id", imageID.String()),
	)

	image, err := s.images.GetImageByID(ctx, imageID)
	if err != nil {
		return s.notFoundOr(op, err, storage.ErrImageNotFound)
	}

	if err := s.images.DeleteImage(ctx, imageID); err != nil {
		return s.notFoundOr(op, err, storage.ErrImageNotFound)
	}

	if err := s.blobs.Delete(ctx, image.StoragePath); err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			log.Warn("image file already gone", slog.String("path", image.StoragePath))
			return nil
		}
		log.Error("failed to delete image file", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *ContentService) loadPost(ctx context.Context, postID uuid.UUID) (models.Post, error) {
	const op = "content_service.loadPost"

	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return models.Post{}, s.notFoundOr(op, err, storage.ErrPostNotFound)
	}

	categories, err := s.categories.GetCategoriesByPostIDs(ctx, []uuid.UUID{postID})
	if err != nil {
		return models.Post{}, fmt.Errorf("%s: %w", op, err)
	}
	post.Categories = categories[postID]

	return post, nil
}

// notFoundOr maps the storage sentinel to ErrNotFound and wraps anything
// else.
func (s *ContentService) notFoundOr(op string, err, sentinel error) error {
	if errors.Is(err, sentinel) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	s.log.Error("store failure", slog.String("op", op), sl.Err(err))
	return fmt.Errorf("%s: %w", op, err)
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(dto.DateLayout, s)
	if err != nil {
		return time.Time{}, models.NewValidationError("publication_date", "must be a date in YYYY-MM-DD form")
	}
	return d, nil
}

func slugFromTitle(title string) string {
	return markup.TruncateRunes(markup.Slugify(title), models.MaxSlugLen)
}

// freePath returns want, or want with a numeric suffix when another image
// of the post already uses that path.
func freePath(want string, existing []models.PostImage) string {
	taken := make(map[string]bool, len(existing))
	for _, img := range existing {
		taken[img.StoragePath] = true
	}

	if !taken[want] {
		return want
	}

	ext := path.Ext(want)
	base := strings.TrimSuffix(want, ext)
	for i := 2; ; i++ {
		candidate := base + "-" + strconv.Itoa(i) + ext
		if !taken[candidate] {
			return candidate
		}
	}
}
