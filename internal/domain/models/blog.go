package models

import (
	"time"

	"blogcore/internal/lib/markup"

	"github.com/google/uuid"
)

const (
	MaxTitleLen          = 255
	MaxSlugLen           = 255
	MaxSEOTitleLen       = 70
	MaxSEODescriptionLen = 160
	MaxSEOKeywordsLen    = 160
)

// SEO metadata shared by posts and categories.
type SEO struct {
	Title       string `db:"seo_title" json:"seo_title,omitempty" validate:"max=70"`
	Description string `db:"seo_description" json:"seo_description,omitempty" validate:"max=160"`
	Keywords    string `db:"seo_keywords" json:"seo_keywords,omitempty" validate:"max=160"`
}

type Category struct {
	ID    uuid.UUID `db:"id" json:"id"`
	Title string    `db:"title" json:"title" validate:"required,max=255"`
	Slug  string    `db:"slug" json:"slug" validate:"required,max=255,slug"`
	SEO   SEO       `json:"seo"`
}

// Post is a blog entry. Whether it is public is derived from IsVisible and
// PublicationDate at read time and never stored.
type Post struct {
	ID              uuid.UUID   `db:"id" json:"id"`
	Title           string      `db:"title" json:"title" validate:"required,max=255"`
	Slug            string      `db:"slug" json:"slug" validate:"required,max=255,slug"`
	Content         string      `db:"content" json:"content,omitempty"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	PublicationDate time.Time   `db:"publication_date" json:"publication_date"`
	IsVisible       bool        `db:"is_visible" json:"is_visible"`
	SEO             SEO         `json:"seo"`
	Categories      []Category  `json:"categories,omitempty" validate:"-"`
	Images          []PostImage `json:"images,omitempty" validate:"-"`
}

// ApplySEODefaults fills blank SEO fields from the post itself. It runs on
// every write and never touches a field that is already set.
func (p *Post) ApplySEODefaults() {
	if p.SEO.Title == "" {
		p.SEO.Title = markup.TruncateRunes(p.Title, MaxSEOTitleLen)
	}
	if p.SEO.Description == "" {
		p.SEO.Description = markup.TruncateRunes(markup.StripTags(p.Content), MaxSEODescriptionLen)
	}
}

// Validate checks the post against the store constraints.
func (p *Post) Validate() error {
	return validateStruct(p)
}

func (c *Category) Validate() error {
	return validateStruct(c)
}

// PostFilter is the store-side form of a visibility scope plus an optional
// category restriction. A nil PublicAsOf means every post is in scope.
type PostFilter struct {
	PublicAsOf *time.Time
	CategoryID *uuid.UUID
}
