package httpapp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"blogcore/internal/domain/models"
	blogmw "blogcore/internal/middleware"
	httprouters "blogcore/internal/transport/http"
	"blogcore/internal/transport/http/dto/response"

	"github.com/arl/statsviz"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// CustomValidator reports request body failures as *models.ValidationError
// so handlers answer them like any other rejected write.
type CustomValidator struct{}

func (cv *CustomValidator) Validate(i interface{}) error {
	return models.Validate(i)
}

// HealthChecker is implemented by the backing stores.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type Server struct {
	m         *http.ServeMux
	log       *slog.Logger
	e         *echo.Echo
	routers   *httprouters.Routers
	health    []HealthChecker
	host      string
	port      string
	mediaRoot string
	mediaURL  string
}

type Options struct {
	Host      string
	Port      string
	JWTSecret string
	// MediaRoot is served under MediaURL when MediaURL is a local path.
	MediaRoot string
	MediaURL  string
	BodyLimit string
}

func New(log *slog.Logger, opts Options, routers *httprouters.Routers, health ...HealthChecker) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Validator = &CustomValidator{}

	e.Use(middleware.CORS())
	e.Use(middleware.Recover())

	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogRemoteIP: true,
		LogLatency:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				slog.String("URI", v.URI),
				slog.Int("status", v.Status),
				slog.String("remote ip", v.RemoteIP),
				slog.Duration("latency", v.Latency),
			)

			return nil
		},
	}))

	e.Use(blogmw.PrometheusMetrics)
	e.Use(blogmw.Identity(log, opts.JWTSecret))

	mux := http.NewServeMux()
	if err := statsviz.Register(mux); err != nil {
		log.Info("statsviz start with error", slog.String("error", err.Error()))
	}

	return &Server{
		m:         mux,
		log:       log,
		e:         e,
		routers:   routers,
		health:    health,
		host:      opts.Host,
		port:      opts.Port,
		mediaRoot: opts.MediaRoot,
		mediaURL:  opts.MediaURL,
	}
}

// Echo exposes the router, mainly for tests that drive it with httptest.
func (s *Server) Echo() *echo.Echo {
	return s.e
}

func (s *Server) MustRun() {
	const op = "http.Server.MustRun"

	s.log.Info(op, slog.String("start", "server"), slog.String("port", s.port))

	if err := s.Start(); err != nil {
		panic(err)
	}
}

func (s *Server) Start() error {
	const op = "http.Server.Start"

	if err := s.e.Start(fmt.Sprintf("%s:%s", s.host, s.port)); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("%s server stopped: %w", op, err)
	}

	return nil
}

func (s *Server) Stop() error {
	const op = "http.Server.Stop"

	optCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	s.log.Info("stopping http server", slog.String("op", op))

	if err := s.e.Shutdown(optCtx); err != nil {
		return fmt.Errorf("%s could not shutdown server gracefuly: %w", op, err)
	}

	return nil
}

func (s *Server) healthz(c echo.Context) error {
	for _, h := range s.health {
		if err := h.HealthCheck(c.Request().Context()); err != nil {
			s.log.Error("health check failed", slog.String("error", err.Error()))
			return c.JSON(http.StatusServiceUnavailable, response.ErrorResponseWithDetails("unavailable", err.Error()))
		}
	}

	return c.JSON(http.StatusOK, response.Response{Status: "ok"})
}

func (s *Server) BuildRouters() {
	s.e.GET("/health", s.healthz)
	s.e.GET("/metrics", echoprometheus.NewHandler())

	debug := s.e.Group("/debug")
	{
		debug.GET("/statsviz/", echo.WrapHandler(s.m))
		debug.GET("/statsviz/*", echo.WrapHandler(s.m))
	}

	s.e.GET("/swagger/*", echoSwagger.WrapHandler)

	if s.mediaRoot != "" && strings.HasPrefix(s.mediaURL, "/") {
		s.e.Static(s.mediaURL, s.mediaRoot)
	}

	api := s.e.Group("/api/v1")
	{
		api.GET("/posts", s.routers.ListPosts)
		api.GET("/posts/:slug", s.routers.GetPost)
		api.GET("/posts/:slug/images/:role", s.routers.GetPostImage)
		api.GET("/latest", s.routers.LatestPosts)
		api.GET("/categories", s.routers.ListCategories)
		api.GET("/categories/:slug", s.routers.GetCategory)

		admin := api.Group("/admin", blogmw.RequireStaff)
		{
			admin.POST("/posts", s.routers.CreatePost)
			admin.PUT("/posts/:id", s.routers.UpdatePost)
			admin.DELETE("/posts/:id", s.routers.DeletePost)
			admin.PUT("/posts/:id/categories", s.routers.SetPostCategories)
			admin.POST("/posts/:id/images", s.routers.AttachImage)
			admin.DELETE("/images/:id", s.routers.DeleteImage)

			admin.POST("/categories", s.routers.CreateCategory)
			admin.PUT("/categories/:id", s.routers.UpdateCategory)
			admin.DELETE("/categories/:id", s.routers.DeleteCategory)
		}
	}
}
