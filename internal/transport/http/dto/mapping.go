package dto

import (
	"time"

	"blogcore/internal/domain/models"
)

func NewPostResponse(p models.Post) PostResponse {
	categories := make([]CategoryResponse, 0, len(p.Categories))
	for _, c := range p.Categories {
		categories = append(categories, NewCategoryResponse(c))
	}

	return PostResponse{
		ID:              p.ID,
		Title:           p.Title,
		Slug:            p.Slug,
		Content:         p.Content,
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
		PublicationDate: p.PublicationDate.Format(DateLayout),
		IsVisible:       p.IsVisible,
		SEOTitle:        p.SEO.Title,
		SEODescription:  p.SEO.Description,
		SEOKeywords:     p.SEO.Keywords,
		Categories:      categories,
	}
}

func NewCategoryResponse(c models.Category) CategoryResponse {
	return CategoryResponse{
		ID:             c.ID,
		Title:          c.Title,
		Slug:           c.Slug,
		SEOTitle:       c.SEO.Title,
		SEODescription: c.SEO.Description,
		SEOKeywords:    c.SEO.Keywords,
	}
}

func NewImageResponse(img models.PostImage, url string) ImageResponse {
	return ImageResponse{
		ID:          img.ID,
		PostID:      img.PostID,
		Title:       img.Title,
		Role:        string(img.Role),
		StoragePath: img.StoragePath,
		URL:         url,
	}
}
