package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpapp "blogcore/internal/app/http"
	"blogcore/internal/domain/models"
	"blogcore/internal/lib/jwt"
	"blogcore/internal/lib/logger/handlers/slogdiscard"
	contentsvc "blogcore/internal/services/content_service"
	"blogcore/internal/services/presenter"
	querysvc "blogcore/internal/services/query_service"
	httprouters "blogcore/internal/transport/http"
	"blogcore/internal/transport/http/dto"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const secret = "server-test-secret"

var today = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

type MockQueryService struct {
	mock.Mock
}

func (m *MockQueryService) ListPosts(ctx context.Context, privileged bool, categoryID *uuid.UUID, page, pageSize int) (*querysvc.PostPage, error) {
	args := m.Called(ctx, privileged, categoryID, page, pageSize)
	p, _ := args.Get(0).(*querysvc.PostPage)
	return p, args.Error(1)
}

func (m *MockQueryService) GetPostBySlug(ctx context.Context, privileged bool, slug string) (models.Post, error) {
	args := m.Called(ctx, privileged, slug)
	return args.Get(0).(models.Post), args.Error(1)
}

func (m *MockQueryService) ListPostsInCategory(ctx context.Context, privileged bool, slug string, page, pageSize int) (models.Category, *querysvc.PostPage, error) {
	args := m.Called(ctx, privileged, slug, page, pageSize)
	p, _ := args.Get(1).(*querysvc.PostPage)
	return args.Get(0).(models.Category), p, args.Error(2)
}

func (m *MockQueryService) LatestPosts(ctx context.Context, limit int) ([]models.Post, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]models.Post), args.Error(1)
}

func (m *MockQueryService) ListCategories(ctx context.Context, limit int) ([]models.Category, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]models.Category), args.Error(1)
}

func (m *MockQueryService) GetPostImage(ctx context.Context, privileged bool, slug string, role models.ImageRole) (models.PostImage, bool, error) {
	args := m.Called(ctx, privileged, slug, role)
	return args.Get(0).(models.PostImage), args.Bool(1), args.Error(2)
}

type MockContentService struct {
	mock.Mock
}

func (m *MockContentService) CreatePost(ctx context.Context, req dto.CreatePostRequest) (models.Post, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.Post), args.Error(1)
}

func (m *MockContentService) UpdatePost(ctx context.Context, id uuid.UUID, req dto.UpdatePostRequest) (models.Post, error) {
	args := m.Called(ctx, id, req)
	return args.Get(0).(models.Post), args.Error(1)
}

func (m *MockContentService) DeletePost(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockContentService) SetPostCategories(ctx context.Context, id uuid.UUID, ids []uuid.UUID) (models.Post, error) {
	args := m.Called(ctx, id, ids)
	return args.Get(0).(models.Post), args.Error(1)
}

func (m *MockContentService) CreateCategory(ctx context.Context, req dto.CreateCategoryRequest) (models.Category, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.Category), args.Error(1)
}

func (m *MockContentService) UpdateCategory(ctx context.Context, id uuid.UUID, req dto.UpdateCategoryRequest) (models.Category, error) {
	args := m.Called(ctx, id, req)
	return args.Get(0).(models.Category), args.Error(1)
}

func (m *MockContentService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockContentService) AttachImage(ctx context.Context, postID uuid.UUID, title string, role models.ImageRole, file *multipart.FileHeader) (models.PostImage, error) {
	args := m.Called(ctx, postID, title, role, file)
	return args.Get(0).(models.PostImage), args.Error(1)
}

func (m *MockContentService) DeleteImage(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type mediaURLs struct{}

func (mediaURLs) URL(relPath string) string {
	return "/media/" + relPath
}

type healthFunc func(ctx context.Context) error

func (f healthFunc) HealthCheck(ctx context.Context) error {
	return f(ctx)
}

type RoutersSuite struct {
	suite.Suite
	query   *MockQueryService
	content *MockContentService
	health  error
	e       *echo.Echo
}

func (s *RoutersSuite) SetupTest() {
	log := slogdiscard.NewDiscardLogger()

	s.query = new(MockQueryService)
	s.content = new(MockContentService)
	s.health = nil

	p := presenter.New(presenter.Config{SiteDomain: "blog.example.com"}, mediaURLs{}, func() time.Time { return today })
	routers := httprouters.NewRouter(log, s.query, s.content, p)

	server := httpapp.New(log, httpapp.Options{JWTSecret: secret}, routers,
		healthFunc(func(context.Context) error { return s.health }))
	server.BuildRouters()

	s.e = server.Echo()
}

func (s *RoutersSuite) do(req *http.Request, staff bool) *httptest.ResponseRecorder {
	if staff {
		token, err := jwt.NewToken("editor", true, time.Hour, secret)
		s.Require().NoError(err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *RoutersSuite) get(target string, staff bool) *httptest.ResponseRecorder {
	return s.do(httptest.NewRequest(http.MethodGet, target, nil), staff)
}

func (s *RoutersSuite) sendJSON(method, target string, body interface{}, staff bool) *httptest.ResponseRecorder {
	raw, err := json.Marshal(body)
	s.Require().NoError(err)

	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return s.do(req, staff)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func page(posts ...models.Post) *querysvc.PostPage {
	return &querysvc.PostPage{Items: posts, Page: 1, PageSize: 10, TotalCount: len(posts)}
}

func (s *RoutersSuite) TestListPosts_ScopeFollowsIdentity() {
	public := models.Post{Title: "hello", Slug: "hello", IsVisible: true, PublicationDate: today}

	s.query.On("ListPosts", mock.Anything, false, (*uuid.UUID)(nil), 1, 0).Return(page(public), nil).Once()
	s.query.On("ListPosts", mock.Anything, true, (*uuid.UUID)(nil), 1, 0).Return(page(public), nil).Once()

	rec := s.get("/api/v1/posts", false)
	s.Equal(http.StatusOK, rec.Code)

	view := decode[presenter.PostListView](s.T(), rec)
	s.Require().Len(view.Items, 1)
	s.Equal("Hello", view.Items[0].DisplayTitle)
	s.Nil(view.Category)

	rec = s.get("/api/v1/posts", true)
	s.Equal(http.StatusOK, rec.Code)

	s.query.AssertExpectations(s.T())
}

func (s *RoutersSuite) TestListPosts_PageParams() {
	s.query.On("ListPosts", mock.Anything, false, (*uuid.UUID)(nil), 3, 25).Return(page(), nil).Once()
	s.query.On("ListPosts", mock.Anything, false, (*uuid.UUID)(nil), 1, 0).Return(page(), nil).Once()

	s.Equal(http.StatusOK, s.get("/api/v1/posts?page=3&page_size=25", false).Code)
	s.Equal(http.StatusOK, s.get("/api/v1/posts?page=abc&page_size=500", false).Code)

	s.query.AssertExpectations(s.T())
}

func (s *RoutersSuite) TestListPosts_ByCategory() {
	news := models.Category{ID: uuid.New(), Title: "News", Slug: "news"}
	s.query.On("ListPostsInCategory", mock.Anything, false, "news", 1, 0).Return(news, page(), nil).Once()

	rec := s.get("/api/v1/posts?category=news", false)
	s.Equal(http.StatusOK, rec.Code)

	view := decode[presenter.PostListView](s.T(), rec)
	s.Require().NotNil(view.Category)
	s.Equal("news", view.Category.Slug)
	s.NotNil(view.Items)
}

func (s *RoutersSuite) TestGetPost() {
	post := models.Post{Title: "later", Slug: "later", IsVisible: true, PublicationDate: today.AddDate(0, 0, 1)}
	s.query.On("GetPostBySlug", mock.Anything, true, "later").Return(post, nil).Once()
	s.query.On("GetPostBySlug", mock.Anything, false, "later").
		Return(models.Post{}, fmt.Errorf("query_service.GetPostBySlug: %w", querysvc.ErrNotFound)).Once()
	s.query.On("GetPostBySlug", mock.Anything, false, "absent").
		Return(models.Post{}, fmt.Errorf("query_service.GetPostBySlug: %w", querysvc.ErrNotFound)).Once()

	rec := s.get("/api/v1/posts/later", true)
	s.Equal(http.StatusOK, rec.Code)
	view := decode[presenter.PostView](s.T(), rec)
	s.Equal("[DRAFT] Later", view.DisplayTitle)
	s.Equal([]string{"post_later", "post_detail"}, view.Templates)

	hidden := s.get("/api/v1/posts/later", false)
	absent := s.get("/api/v1/posts/absent", false)

	s.Equal(http.StatusNotFound, hidden.Code)
	s.Equal(http.StatusNotFound, absent.Code)
	s.JSONEq(absent.Body.String(), hidden.Body.String())
}

func (s *RoutersSuite) TestGetPostImage() {
	img := models.PostImage{ID: uuid.New(), Title: "Cover", Role: models.ImageRoleThumbnail, StoragePath: "blog/post/x/cover.jpg"}
	s.query.On("GetPostImage", mock.Anything, false, "hello", models.ImageRoleThumbnail).Return(img, true, nil).Once()
	s.query.On("GetPostImage", mock.Anything, false, "hello", models.ImageRoleDetail).Return(models.PostImage{}, false, nil).Once()

	rec := s.get("/api/v1/posts/hello/images/thumbnail", false)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("/media/blog/post/x/cover.jpg", decode[presenter.ImageView](s.T(), rec).URL)

	s.Equal(http.StatusNotFound, s.get("/api/v1/posts/hello/images/detail", false).Code)

	rec = s.get("/api/v1/posts/hello/images/banner", false)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), `"field":"role"`)
}

func (s *RoutersSuite) TestLatestAndCategories() {
	s.query.On("LatestPosts", mock.Anything, 5).Return([]models.Post{{Title: "a", Slug: "a", IsVisible: true, PublicationDate: today}}, nil).Once()
	s.query.On("ListCategories", mock.Anything, 2).Return([]models.Category{{Title: "News", Slug: "news"}}, nil).Once()

	rec := s.get("/api/v1/latest", false)
	s.Equal(http.StatusOK, rec.Code)
	s.Len(decode[[]presenter.PostView](s.T(), rec), 1)

	rec = s.get("/api/v1/categories?limit=2", false)
	s.Equal(http.StatusOK, rec.Code)
	categories := decode[[]presenter.CategoryView](s.T(), rec)
	s.Require().Len(categories, 1)
	s.Equal("/category/news/", categories[0].Path)
}

func (s *RoutersSuite) TestGetCategory_NotFound() {
	s.query.On("ListPostsInCategory", mock.Anything, false, "nope", 1, 0).
		Return(models.Category{}, nil, querysvc.ErrNotFound).Once()

	rec := s.get("/api/v1/categories/nope", false)
	s.Equal(http.StatusNotFound, rec.Code)
	s.Contains(rec.Body.String(), `"not_found"`)
}

func (s *RoutersSuite) TestAdmin_RequiresStaff() {
	rec := s.sendJSON(http.MethodPost, "/api/v1/admin/posts", map[string]string{"title": "x"}, false)
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/images/"+uuid.NewString(), nil), false)
	s.Equal(http.StatusForbidden, rec.Code)

	s.content.AssertNotCalled(s.T(), "CreatePost", mock.Anything, mock.Anything)
	s.content.AssertNotCalled(s.T(), "DeleteImage", mock.Anything, mock.Anything)
}

func (s *RoutersSuite) TestCreatePost() {
	id := uuid.New()
	s.content.On("CreatePost", mock.Anything, dto.CreatePostRequest{Title: "Hello", Content: "<p>x</p>"}).
		Return(models.Post{ID: id, Title: "Hello", Slug: "hello", PublicationDate: today, CreatedAt: today}, nil).Once()

	rec := s.sendJSON(http.MethodPost, "/api/v1/admin/posts", map[string]string{"title": "Hello", "content": "<p>x</p>"}, true)
	s.Equal(http.StatusCreated, rec.Code)

	resp := decode[dto.PostResponse](s.T(), rec)
	s.Equal(id, resp.ID)
	s.Equal("2024-03-10", resp.PublicationDate)
	s.NotNil(resp.Categories)
}

func (s *RoutersSuite) TestCreatePost_RejectedBody() {
	rec := s.sendJSON(http.MethodPost, "/api/v1/admin/posts", map[string]string{
		"slug":             "bad slug",
		"publication_date": "tomorrow",
	}, true)
	s.Equal(http.StatusBadRequest, rec.Code)

	var body struct {
		Error  string              `json:"error"`
		Fields []models.FieldError `json:"fields"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal("validation_failed", body.Error)

	fields := make([]string, 0, len(body.Fields))
	for _, f := range body.Fields {
		fields = append(fields, f.Field)
	}
	s.ElementsMatch([]string{"title", "slug", "publication_date"}, fields)

	rec = s.do(func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/posts", strings.NewReader("{"))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		return req
	}(), true)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), `"invalid_request"`)

	s.content.AssertNotCalled(s.T(), "CreatePost", mock.Anything, mock.Anything)
}

func (s *RoutersSuite) TestWriteErrors() {
	id := uuid.New()
	s.content.On("UpdatePost", mock.Anything, id, mock.Anything).
		Return(models.Post{}, models.NewValidationError("slug", "already exists")).Once()
	s.content.On("DeletePost", mock.Anything, id).Return(errors.New("connection refused")).Once()
	s.content.On("DeleteCategory", mock.Anything, id).Return(fmt.Errorf("op: %w", contentsvc.ErrNotFound)).Once()

	rec := s.sendJSON(http.MethodPut, "/api/v1/admin/posts/"+id.String(), map[string]string{"slug": "taken"}, true)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), `"already exists"`)

	rec = s.do(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/posts/"+id.String(), nil), true)
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.NotContains(rec.Body.String(), "connection refused")

	rec = s.do(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/categories/"+id.String(), nil), true)
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/posts/not-a-uuid", nil), true)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *RoutersSuite) TestSetPostCategories() {
	id := uuid.New()
	categoryIDs := []uuid.UUID{uuid.New(), uuid.New()}
	s.content.On("SetPostCategories", mock.Anything, id, categoryIDs).
		Return(models.Post{ID: id, Categories: []models.Category{{Title: "A", Slug: "a"}, {Title: "B", Slug: "b"}}}, nil).Once()

	rec := s.sendJSON(http.MethodPut, "/api/v1/admin/posts/"+id.String()+"/categories",
		map[string][]uuid.UUID{"category_ids": categoryIDs}, true)
	s.Equal(http.StatusOK, rec.Code)
	s.Len(decode[dto.PostResponse](s.T(), rec).Categories, 2)
}

func (s *RoutersSuite) TestAttachImage() {
	postID := uuid.New()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	s.Require().NoError(w.WriteField("title", "Cover"))
	s.Require().NoError(w.WriteField("role", "thumbnail"))
	part, err := w.CreateFormFile("file", "cover.png")
	s.Require().NoError(err)
	_, err = part.Write([]byte("png"))
	s.Require().NoError(err)
	s.Require().NoError(w.Close())

	stored := models.PostImage{
		ID:          uuid.New(),
		PostID:      postID,
		Title:       "Cover",
		Role:        models.ImageRoleThumbnail,
		StoragePath: "blog/post/" + postID.String() + "/cover.png",
	}
	s.content.On("AttachImage", mock.Anything, postID, "Cover", models.ImageRoleThumbnail,
		mock.MatchedBy(func(f *multipart.FileHeader) bool { return f != nil && f.Filename == "cover.png" }),
	).Return(stored, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/posts/"+postID.String()+"/images", body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())

	rec := s.do(req, true)
	s.Equal(http.StatusCreated, rec.Code)

	resp := decode[dto.ImageResponse](s.T(), rec)
	s.Equal("/media/"+stored.StoragePath, resp.URL)
	s.Equal("thumbnail", resp.Role)
}

func (s *RoutersSuite) TestAttachImage_MissingFile() {
	postID := uuid.New()
	s.content.On("AttachImage", mock.Anything, postID, "", models.ImageRoleNone, (*multipart.FileHeader)(nil)).
		Return(models.PostImage{}, models.NewValidationError("file", "is required")).Once()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	s.Require().NoError(w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/posts/"+postID.String()+"/images", body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())

	rec := s.do(req, true)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), `"field":"file"`)
}

func (s *RoutersSuite) TestCategoryWrites() {
	id := uuid.New()
	s.content.On("CreateCategory", mock.Anything, dto.CreateCategoryRequest{Title: "News"}).
		Return(models.Category{ID: id, Title: "News", Slug: "news"}, nil).Once()

	title := "Updates"
	s.content.On("UpdateCategory", mock.Anything, id, dto.UpdateCategoryRequest{Title: &title}).
		Return(models.Category{ID: id, Title: "Updates", Slug: "news"}, nil).Once()

	rec := s.sendJSON(http.MethodPost, "/api/v1/admin/categories", map[string]string{"title": "News"}, true)
	s.Equal(http.StatusCreated, rec.Code)
	s.Equal("news", decode[dto.CategoryResponse](s.T(), rec).Slug)

	rec = s.sendJSON(http.MethodPut, "/api/v1/admin/categories/"+id.String(), map[string]string{"title": "Updates"}, true)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("Updates", decode[dto.CategoryResponse](s.T(), rec).Title)
}

func (s *RoutersSuite) TestHealth() {
	s.Equal(http.StatusOK, s.get("/health", false).Code)

	s.health = errors.New("db down")
	s.Equal(http.StatusServiceUnavailable, s.get("/health", false).Code)
}

func (s *RoutersSuite) TestMetricsEndpoint() {
	rec := s.get("/metrics", false)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "http_requests_total")
}

func TestRoutersSuite(t *testing.T) {
	suite.Run(t, new(RoutersSuite))
}

func TestNotFoundRoute(t *testing.T) {
	log := slogdiscard.NewDiscardLogger()
	p := presenter.New(presenter.Config{}, mediaURLs{}, nil)
	server := httpapp.New(log, httpapp.Options{}, httprouters.NewRouter(log, new(MockQueryService), new(MockContentService), p))
	server.BuildRouters()

	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
