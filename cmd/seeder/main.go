package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"blogcore/internal/config"
	"blogcore/internal/repository"
	contentsvc "blogcore/internal/services/content_service"
	filestorage "blogcore/internal/storage/filestorage"
	"blogcore/internal/storage/postgresql"
)

func main() {
	var posts, categories int
	flag.IntVar(&posts, "posts", 50, "number of posts to create")
	flag.IntVar(&categories, "categories", 5, "number of categories to create")

	cfg := config.MustLoad()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx := context.Background()

	storage, err := postgresql.New(ctx, cfg.DSN)
	if err != nil {
		log.Error("failed to open storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer storage.Stop()

	files, err := filestorage.NewLocalFileStorage(cfg.FileStorage.BaseDir, cfg.FileStorage.BaseURL, cfg.FileStorage.MaxSize)
	if err != nil {
		log.Error("failed to open file storage", slog.String("error", err.Error()))
		os.Exit(1)
	}

	repo := repository.NewRepository(log, storage.Pool(), repository.CacheOptions{})
	svc := contentsvc.New(log, repo.Posts, repo.Categories, repo.Images, files, nil)

	Seed(ctx, svc, log, posts, categories)
}
