package app

import (
	"context"
	"log/slog"
	"time"

	httpapp "blogcore/internal/app/http"
	"blogcore/internal/config"
	"blogcore/internal/lib/logger/sl"
	"blogcore/internal/repository"
	contentsvc "blogcore/internal/services/content_service"
	"blogcore/internal/services/presenter"
	querysvc "blogcore/internal/services/query_service"
	filestorage "blogcore/internal/storage/filestorage"
	"blogcore/internal/storage/postgresql"
	redisapp "blogcore/internal/storage/redis"
	httprouters "blogcore/internal/transport/http"
)

type App struct {
	HTTPServer *httpapp.Server
	log        *slog.Logger
	storage    *postgresql.Storage
	redis      *redisapp.Client
}

func New(log *slog.Logger, cfg *config.Config) *App {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	storage, err := postgresql.New(ctx, cfg.DSN)
	if err != nil {
		panic(err)
	}

	health := []httpapp.HealthChecker{storage}

	var redis *redisapp.Client
	if cfg.Redis.RedisAddr != "" {
		redis = redisapp.NewClient(cfg.Redis.RedisAddr, cfg.Redis.RedisPassword, cfg.Redis.RedisDB, cfg.Redis.Prefix)
		if err := redis.HealthCheck(ctx); err != nil {
			// the category cache falls back to its local layer
			log.Warn("redis unavailable", sl.Err(err))
		}
		health = append(health, redis)
	}

	repo := repository.NewRepository(log, storage.Pool(), repository.CacheOptions{
		TTL:   cfg.Cache.CategoryTTL,
		Redis: redis,
	})

	files, err := filestorage.NewLocalFileStorage(cfg.FileStorage.BaseDir, cfg.FileStorage.BaseURL, cfg.FileStorage.MaxSize)
	if err != nil {
		panic(err)
	}

	queryService := querysvc.New(log, repo.Posts, repo.Categories, repo.Images, cfg.Blog.PageSize, nil)
	contentService := contentsvc.New(log, repo.Posts, repo.Categories, repo.Images, files, nil)

	p := presenter.New(presenter.Config{
		DateFormat:   cfg.Blog.DateFormat,
		ExcerptWords: cfg.Blog.ExcerptWords,
		Scheme:       cfg.Blog.Scheme,
		SiteDomain:   cfg.Blog.SiteDomain,
		BasePath:     cfg.Blog.BasePath,
	}, files, nil)

	routers := httprouters.NewRouter(log, queryService, contentService, p)

	server := httpapp.New(log, httpapp.Options{
		Host:      cfg.HTTP.Host,
		Port:      cfg.HTTP.Port,
		JWTSecret: cfg.Identity.JWTSecret,
		MediaRoot: cfg.FileStorage.BaseDir,
		MediaURL:  cfg.FileStorage.BaseURL,
		BodyLimit: cfg.HTTP.BodyLimit,
	}, routers, health...)

	return &App{
		HTTPServer: server,
		log:        log,
		storage:    storage,
		redis:      redis,
	}
}

// Stop shuts the HTTP server down and then releases the stores.
func (a *App) Stop() {
	if err := a.HTTPServer.Stop(); err != nil {
		a.log.Error("failed to stop http server", sl.Err(err))
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error("failed to close redis", sl.Err(err))
		}
	}

	a.storage.Stop()
}
