package dto

import (
	"github.com/google/uuid"
)

// DateLayout is the wire format of publication dates.
const DateLayout = "2006-01-02"

type CreatePostRequest struct {
	Title           string      `json:"title" validate:"required,max=255"`
	Slug            string      `json:"slug,omitempty" validate:"omitempty,max=255,slug"`
	Content         string      `json:"content,omitempty"`
	PublicationDate string      `json:"publication_date,omitempty" validate:"omitempty,datetime=2006-01-02" example:"2024-03-10"`
	IsVisible       *bool       `json:"is_visible,omitempty"`
	SEOTitle        string      `json:"seo_title,omitempty" validate:"omitempty,max=70"`
	SEODescription  string      `json:"seo_description,omitempty" validate:"omitempty,max=160"`
	SEOKeywords     string      `json:"seo_keywords,omitempty" validate:"omitempty,max=160"`
	CategoryIDs     []uuid.UUID `json:"category_ids,omitempty" swaggertype:"array,string"`
}

// UpdatePostRequest changes only the fields that are present.
type UpdatePostRequest struct {
	Title           *string      `json:"title,omitempty" validate:"omitempty,max=255"`
	Slug            *string      `json:"slug,omitempty" validate:"omitempty,max=255,slug"`
	Content         *string      `json:"content,omitempty"`
	PublicationDate *string      `json:"publication_date,omitempty" validate:"omitempty,datetime=2006-01-02" example:"2024-03-10"`
	IsVisible       *bool        `json:"is_visible,omitempty"`
	SEOTitle        *string      `json:"seo_title,omitempty" validate:"omitempty,max=70"`
	SEODescription  *string      `json:"seo_description,omitempty" validate:"omitempty,max=160"`
	SEOKeywords     *string      `json:"seo_keywords,omitempty" validate:"omitempty,max=160"`
	CategoryIDs     *[]uuid.UUID `json:"category_ids,omitempty" swaggertype:"array,string"`
}

type SetPostCategoriesRequest struct {
	CategoryIDs []uuid.UUID `json:"category_ids" swaggertype:"array,string"`
}

type CreateCategoryRequest struct {
	Title          string `json:"title" validate:"required,max=255"`
	Slug           string `json:"slug,omitempty" validate:"omitempty,max=255,slug"`
	SEOTitle       string `json:"seo_title,omitempty" validate:"omitempty,max=70"`
	SEODescription string `json:"seo_description,omitempty" validate:"omitempty,max=160"`
	SEOKeywords    string `json:"seo_keywords,omitempty" validate:"omitempty,max=160"`
}

type UpdateCategoryRequest struct {
	Title          *string `json:"title,omitempty" validate:"omitempty,max=255"`
	Slug           *string `json:"slug,omitempty" validate:"omitempty,max=255,slug"`
	SEOTitle       *string `json:"seo_title,omitempty" validate:"omitempty,max=70"`
	SEODescription *string `json:"seo_description,omitempty" validate:"omitempty,max=160"`
	SEOKeywords    *string `json:"seo_keywords,omitempty" validate:"omitempty,max=160"`
}

type PostResponse struct {
	ID              uuid.UUID          `json:"id" swaggertype:"string" format:"uuid"`
	Title           string             `json:"title"`
	Slug            string             `json:"slug"`
	Content         string             `json:"content,omitempty"`
	CreatedAt       string             `json:"created_at"`
	PublicationDate string             `json:"publication_date"`
	IsVisible       bool               `json:"is_visible"`
	SEOTitle        string             `json:"seo_title"`
	SEODescription  string             `json:"seo_description"`
	SEOKeywords     string             `json:"seo_keywords,omitempty"`
	Categories      []CategoryResponse `json:"categories"`
}

type CategoryResponse struct {
	ID             uuid.UUID `json:"id" swaggertype:"string" format:"uuid"`
	Title          string    `json:"title"`
	Slug           string    `json:"slug"`
	SEOTitle       string    `json:"seo_title,omitempty"`
	SEODescription string    `json:"seo_description,omitempty"`
	SEOKeywords    string    `json:"seo_keywords,omitempty"`
}

type ImageResponse struct {
	ID          uuid.UUID `json:"id" swaggertype:"string" format:"uuid"`
	PostID      uuid.UUID `json:"post_id" swaggertype:"string" format:"uuid"`
	Title       string    `json:"title"`
	Role        string    `json:"role,omitempty"`
	StoragePath string    `json:"storage_path"`
	URL         string    `json:"url"`
}
