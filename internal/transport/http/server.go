package http

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"blogcore/internal/domain/models"
	"blogcore/internal/lib/logger/sl"
	"blogcore/internal/middleware"
	contentsvc "blogcore/internal/services/content_service"
	"blogcore/internal/services/presenter"
	querysvc "blogcore/internal/services/query_service"
	"blogcore/internal/transport/http/dto"
	"blogcore/internal/transport/http/dto/response"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	_ "blogcore/docs"
)

const (
	maxPageSize      = 100
	defaultListLimit = 5
)

type QueryService interface {
	ListPosts(ctx context.Context, privileged bool, categoryID *uuid.UUID, page, pageSize int) (*querysvc.PostPage, error)
	GetPostBySlug(ctx context.Context, privileged bool, slug string) (models.Post, error)
	ListPostsInCategory(ctx context.Context, privileged bool, slug string, page, pageSize int) (models.Category, *querysvc.PostPage, error)
	LatestPosts(ctx context.Context, limit int) ([]models.Post, error)
	ListCategories(ctx context.Context, limit int) ([]models.Category, error)
	GetPostImage(ctx context.Context, privileged bool, slug string, role models.ImageRole) (models.PostImage, bool, error)
}

type ContentService interface {
	CreatePost(ctx context.Context, req dto.CreatePostRequest) (models.Post, error)
	UpdatePost(ctx context.Context, postID uuid.UUID, req dto.UpdatePostRequest) (models.Post, error)
	DeletePost(ctx context.Context, postID uuid.UUID) error
	SetPostCategories(ctx context.Context, postID uuid.UUID, categoryIDs []uuid.UUID) (models.Post, error)
	CreateCategory(ctx context.Context, req dto.CreateCategoryRequest) (models.Category, error)
	UpdateCategory(ctx context.Context, categoryID uuid.UUID, req dto.UpdateCategoryRequest) (models.Category, error)
	DeleteCategory(ctx context.Context, categoryID uuid.UUID) error
	AttachImage(ctx context.Context, postID uuid.UUID, title string, role models.ImageRole, file *multipart.FileHeader) (models.PostImage, error)
	DeleteImage(ctx context.Context, imageID uuid.UUID) error
}

type Routers struct {
	log            *slog.Logger
	QueryService   QueryService
	ContentService ContentService
	Presenter      *presenter.Presenter
}

func NewRouter(log *slog.Logger, queryService QueryService, contentService ContentService, p *presenter.Presenter) *Routers {
	return &Routers{
		log:            log,
		QueryService:   queryService,
		ContentService: contentService,
		Presenter:      p,
	}
}

// ListPosts godoc
// @Summary List posts
// @Description Paginated post list, newest publication first. Anonymous callers only see public posts.
// @Tags posts
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Posts per page" default(10)
// @Param category query string false "Category slug"
// @Success 200 {object} presenter.PostListView
// @Failure 404 {object} response.ErrorResponse "Unknown category"
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/posts [get]
func (r *Routers) ListPosts(c echo.Context) error {
	const op = "http.routers.ListPosts"

	log := r.log.With(
		slog.String("op", op),
	)

	page, pageSize := pageParams(c)
	privileged := middleware.IsStaff(c)

	if slug := c.QueryParam("category"); slug != "" {
		category, posts, err := r.QueryService.ListPostsInCategory(c.Request().Context(), privileged, slug, page, pageSize)
		if err != nil {
			return r.fail(c, log, err)
		}
		return c.JSON(http.StatusOK, r.Presenter.PostListView(posts, &category))
	}

	posts, err := r.QueryService.ListPosts(c.Request().Context(), privileged, nil, page, pageSize)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, r.Presenter.PostListView(posts, nil))
}

// GetPost godoc
// @Summary Get a post
// @Description Post detail by slug. Posts the caller may not see are reported as missing.
// @Tags posts
// @Produce json
// @Param slug path string true "Post slug"
// @Success 200 {object} presenter.PostView
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/posts/{slug} [get]
func (r *Routers) GetPost(c echo.Context) error {
	const op = "http.routers.GetPost"

	log := r.log.With(
		slog.String("op", op),
		slog.String("slug", c.Param("slug")),
	)

	post, err := r.QueryService.GetPostBySlug(c.Request().Context(), middleware.IsStaff(c), c.Param("slug"))
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, r.Presenter.PostView(post))
}

// GetPostImage godoc
// @Summary Latest image of a role
// @Description The most recently added image of the role on a post.
// @Tags posts
// @Produce json
// @Param slug path string true "Post slug"
// @Param role path string true "Image role" Enums(thumbnail, detail, gallery)
// @Success 200 {object} presenter.ImageView
// @Failure 400 {object} response.ValidationErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/posts/{slug}/images/{role} [get]
func (r *Routers) GetPostImage(c echo.Context) error {
	const op = "http.routers.GetPostImage"

	log := r.log.With(
		slog.String("op", op),
		slog.String("slug", c.Param("slug")),
	)

	role := models.ImageRole(c.Param("role"))
	if role == models.ImageRoleNone || !role.Valid() {
		return r.fail(c, log, models.NewValidationError("role", "must be one of: thumbnail detail gallery"))
	}

	img, ok, err := r.QueryService.GetPostImage(c.Request().Context(), middleware.IsStaff(c), c.Param("slug"), role)
	if err != nil {
		return r.fail(c, log, err)
	}
	if !ok {
		return c.JSON(http.StatusNotFound, response.ErrNotFound)
	}

	return c.JSON(http.StatusOK, r.Presenter.ImageView(img))
}

// LatestPosts godoc
// @Summary Latest public posts
// @Tags posts
// @Produce json
// @Param limit query int false "How many posts" default(5)
// @Success 200 {array} presenter.PostView
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/latest [get]
func (r *Routers) LatestPosts(c echo.Context) error {
	const op = "http.routers.LatestPosts"

	log := r.log.With(
		slog.String("op", op),
	)

	posts, err := r.QueryService.LatestPosts(c.Request().Context(), limitParam(c))
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, r.Presenter.PostSummaries(posts))
}

// ListCategories godoc
// @Summary List categories
// @Tags categories
// @Produce json
// @Param limit query int false "How many categories" default(5)
// @Success 200 {array} presenter.CategoryView
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/categories [get]
func (r *Routers) ListCategories(c echo.Context) error {
	const op = "http.routers.ListCategories"

	log := r.log.With(
		slog.String("op", op),
	)

	categories, err := r.QueryService.ListCategories(c.Request().Context(), limitParam(c))
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, r.Presenter.CategoryViews(categories))
}

// GetCategory godoc
// @Summary Category page
// @Description The category and one page of its posts.
// @Tags categories
// @Produce json
// @Param slug path string true "Category slug"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Posts per page" default(10)
// @Success 200 {object} presenter.PostListView
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/categories/{slug} [get]
func (r *Routers) GetCategory(c echo.Context) error {
	const op = "http.routers.GetCategory"

	log := r.log.With(
		slog.String("op", op),
		slog.String("slug", c.Param("slug")),
	)

	page, pageSize := pageParams(c)

	category, posts, err := r.QueryService.ListPostsInCategory(c.Request().Context(), middleware.IsStaff(c), c.Param("slug"), page, pageSize)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, r.Presenter.PostListView(posts, &category))
}

// CreatePost godoc
// @Summary Create a post
// @Description Blank slug, publication date and SEO fields are derived.
// @Tags admin
// @Accept json
// @Produce json
// @Param request body dto.CreatePostRequest true "New post"
// @Success 201 {object} dto.PostResponse
// @Failure 400 {object} response.ValidationErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/admin/posts [post]
func (r *Routers) CreatePost(c echo.Context) error {
	const op = "http.routers.CreatePost"

	log := r.log.With(
		slog.String("op", op),
	)

	var req dto.CreatePostRequest
	if ok, err := r.bind(c, log, &req); !ok {
		return err
	}

	post, err := r.ContentService.CreatePost(c.Request().Context(), req)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusCreated, dto.NewPostResponse(post))
}

// UpdatePost godoc
// @Summary Update a post
// @Description Only the fields present in the body change.
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Post UUID" format(uuid)
// @Param request body dto.UpdatePostRequest true "Changed fields"
// @Success 200 {object} dto.PostResponse
// @Failure 400 {object} response.ValidationErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/admin/posts/{id} [put]
func (r *Routers) UpdatePost(c echo.Context) error {
	const op = "http.routers.UpdatePost"

	log := r.log.With(
		slog.String("op", op),
	)

	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		log.Warn("invalid post id", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", "invalid post ID format"))
	}

	var req dto.UpdatePostRequest
	if ok, err := r.bind(c, log, &req); !ok {
		return err
	}

	post, err := r.ContentService.UpdatePost(c.Request().Context(), postID, req)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, dto.NewPostResponse(post))
}

// DeletePost godoc
// @Summary Delete a post
// @Description Removes the post together with its images.
// @Tags admin
// @Param id path string true "Post UUID" format(uuid)
// @Success 204
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/admin/posts/{id} [delete]
func (r *Routers) DeletePost(c echo.Context) error {
	const op = "http.routers.DeletePost"

	log := r.log.With(
		slog.String("op", op),
	)

	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		log.Warn("invalid post id", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", "invalid post ID format"))
	}

	if err := r.ContentService.DeletePost(c.Request().Context(), postID); err != nil {
		return r.fail(c, log, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// SetPostCategories godoc
// @Summary Replace the categories of a post
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Post UUID" format(uuid)
// @Param request body dto.SetPostCategoriesRequest true "Category ids"
// @Success 200 {object} dto.PostResponse
// @Failure 400 {object} response.ValidationErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/admin/posts/{id}/categories [put]
func (r *Routers) SetPostCategories(c echo.Context) error {
	const op = "http.routers.SetPostCategories"

	log := r.log.With(
		slog.String("op", op),
	)

	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		log.Warn("invalid post id", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", "invalid post ID format"))
	}

	var req dto.SetPostCategoriesRequest
	if ok, err := r.bind(c, log, &req); !ok {
		return err
	}

	post, err := r.ContentService.SetPostCategories(c.Request().Context(), postID, req.CategoryIDs)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, dto.NewPostResponse(post))
}

// AttachImage godoc
// @Summary Upload a post image
// @Description Stores the file under the post's image namespace.
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Post UUID" format(uuid)
// @Param file formData file true "Image file"
// @Param title formData string false "Image title, defaults to the file name"
// @Param role formData string false "Image role" Enums(thumbnail, detail, gallery)
// @Success 201 {object} dto.ImageResponse
// @Failure 400 {object} response.ValidationErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/admin/posts/{id}/images [post]
func (r *Routers) AttachImage(c echo.Context) error {
	const op = "http.routers.AttachImage"

	log := r.log.With(
		slog.String("op", op),
	)

	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		log.Warn("invalid post id", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", "invalid post ID format"))
	}

	file, err := c.FormFile("file")
	if err != nil {
		if !errors.Is(err, http.ErrMissingFile) {
			log.Warn("failed to read upload", sl.Err(err))
			return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
		}
	}

	img, err := r.ContentService.AttachImage(
		c.Request().Context(),
		postID,
		c.FormValue("title"),
		models.ImageRole(c.FormValue("role")),
		file,
	)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusCreated, dto.NewImageResponse(img, r.Presenter.ImageURL(img)))
}

// DeleteImage godoc
// @Summary Delete a post image
// @Tags admin
// @Param id path string true "Image UUID" format(uuid)
// @Success 204
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/admin/images/{id} [delete]
func (r *Routers) DeleteImage(c echo.Context) error {
	const op = "http.routers.DeleteImage"

	log := r.log.With(
		slog.String("op", op),
	)

	imageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		log.Warn("invalid image id", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", "invalid image ID format"))
	}

	if err := r.ContentService.DeleteImage(c.Request().Context(), imageID); err != nil {
		return r.fail(c, log, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// CreateCategory godoc
// @Summary Create a category
// @Tags admin
// @Accept json
// @Produce json
// @Param request body dto.CreateCategoryRequest true "New category"
// @Success 201 {object} dto.CategoryResponse
// @Failure 400 {object} response.ValidationErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/admin/categories [post]
func (r *Routers) CreateCategory(c echo.Context) error {
	const op = "http.routers.CreateCategory"

	log := r.log.With(
		slog.String("op", op),
	)

	var req dto.CreateCategoryRequest
	if ok, err := r.bind(c, log, &req); !ok {
		return err
	}

	category, err := r.ContentService.CreateCategory(c.Request().Context(), req)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusCreated, dto.NewCategoryResponse(category))
}

// UpdateCategory godoc
// @Summary Update a category
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Category UUID" format(uuid)
// @Param request body dto.UpdateCategoryRequest true "Changed fields"
// @Success 200 {object} dto.CategoryResponse
// @Failure 400 {object} response.ValidationErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/admin/categories/{id} [put]
func (r *Routers) UpdateCategory(c echo.Context) error {
	const op = "http.routers.UpdateCategory"

	log := r.log.With(
		slog.String("op", op),
	)

	categoryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		log.Warn("invalid category id", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", "invalid category ID format"))
	}

	var req dto.UpdateCategoryRequest
	if ok, err := r.bind(c, log, &req); !ok {
		return err
	}

	category, err := r.ContentService.UpdateCategory(c.Request().Context(), categoryID, req)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, dto.NewCategoryResponse(category))
}

// DeleteCategory godoc
// @Summary Delete a category
// @Description Posts keep existing; the category just leaves their category sets.
// @Tags admin
// @Param id path string true "Category UUID" format(uuid)
// @Success 204
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/admin/categories/{id} [delete]
func (r *Routers) DeleteCategory(c echo.Context) error {
	const op = "http.routers.DeleteCategory"

	log := r.log.With(
		slog.String("op", op),
	)

	categoryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		log.Warn("invalid category id", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", "invalid category ID format"))
	}

	if err := r.ContentService.DeleteCategory(c.Request().Context(), categoryID); err != nil {
		return r.fail(c, log, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// bind decodes and validates the body. When ok is false the error response
// has already been written.
func (r *Routers) bind(c echo.Context, log *slog.Logger, req interface{}) (ok bool, err error) {
	if err := c.Bind(req); err != nil {
		log.Warn("failed to bind request", sl.Err(err))
		return false, c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		return false, r.fail(c, log, err)
	}

	return true, nil
}

// fail writes the response for a service error: missing or hidden content
// is 404 with one body for both, rejected writes are 400 with the offending
// fields and everything else is a logged 500.
func (r *Routers) fail(c echo.Context, log *slog.Logger, err error) error {
	var ve *models.ValidationError

	switch {
	case errors.Is(err, querysvc.ErrNotFound), errors.Is(err, contentsvc.ErrNotFound):
		log.Debug("not found", sl.Err(err))
		return c.JSON(http.StatusNotFound, response.ErrNotFound)
	case errors.As(err, &ve):
		log.Info("validation failed", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.NewValidationErrorResponse(ve))
	default:
		log.Error("request failed", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.ErrInternal)
	}
}

func pageParams(c echo.Context) (page, pageSize int) {
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 1 {
		page = 1
	}

	pageSize, err = strconv.Atoi(c.QueryParam("page_size"))
	if err != nil || pageSize < 1 || pageSize > maxPageSize {
		pageSize = 0
	}

	return page, pageSize
}

func limitParam(c echo.Context) int {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit < 1 || limit > maxPageSize {
		return defaultListLimit
	}
	return limit
}
