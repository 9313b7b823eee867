package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"blogcore/internal/domain/models"
	"blogcore/internal/lib/logger/sl"
	"blogcore/internal/transport/http/dto"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

type Authoring interface {
	CreateCategory(ctx context.Context, req dto.CreateCategoryRequest) (models.Category, error)
	CreatePost(ctx context.Context, req dto.CreatePostRequest) (models.Post, error)
}

// Seed creates numCategories categories and then numPosts posts spread over
// them. About one post in five is hidden and one in ten is scheduled.
func Seed(ctx context.Context, svc Authoring, log *slog.Logger, numPosts, numCategories int) {
	log.Info("seeding", slog.Int("posts", numPosts), slog.Int("categories", numCategories))

	categoryIDs := make([]uuid.UUID, 0, numCategories)
	for i := 0; i < numCategories; i++ {
		c, err := svc.CreateCategory(ctx, dto.CreateCategoryRequest{
			Title: gofakeit.HipsterWord() + " " + gofakeit.BuzzWord(),
		})
		if err != nil {
			log.Warn("failed to create category", sl.Err(err))
			continue
		}
		categoryIDs = append(categoryIDs, c.ID)
	}

	var wg sync.WaitGroup
	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	today := time.Now()

	for i := 0; i < numPosts; i++ {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(itemIndex int) {
			defer wg.Done()
			defer func() { <-semaphore }()

			visible := gofakeit.Number(1, 5) != 1
			published := today.AddDate(0, 0, -gofakeit.Number(0, 365))
			if gofakeit.Number(1, 10) == 1 {
				published = today.AddDate(0, 0, gofakeit.Number(1, 30))
			}

			req := dto.CreatePostRequest{
				Title:           gofakeit.Sentence(gofakeit.Number(3, 8)),
				Content:         "<p>" + gofakeit.Paragraph(3, 5, 20, "</p><p>") + "</p>",
				PublicationDate: published.Format(dto.DateLayout),
				IsVisible:       &visible,
			}
			if len(categoryIDs) > 0 {
				req.CategoryIDs = []uuid.UUID{categoryIDs[gofakeit.Number(0, len(categoryIDs)-1)]}
			}

			post, err := svc.CreatePost(ctx, req)
			if err != nil {
				log.Warn("failed to create post",
					slog.Int("index", itemIndex),
					slog.String("title", req.Title),
					sl.Err(err),
				)
				return
			}

			log.Debug("post created", slog.String("slug", post.Slug))
		}(i)
	}

	wg.Wait()
	log.Info("seeding done")
}
