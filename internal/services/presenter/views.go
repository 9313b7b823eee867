package presenter

import (
	"time"

	"blogcore/internal/domain/models"
	"blogcore/internal/domain/visibility"
	querysvc "blogcore/internal/services/query_service"

	"github.com/google/uuid"
)

type ImageView struct {
	ID    uuid.UUID        `json:"id"`
	Title string           `json:"title"`
	Role  models.ImageRole `json:"role,omitempty"`
	URL   string           `json:"url"`
	Tag   string           `json:"tag"`
}

type CategoryRef struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
	Path  string `json:"path"`
}

type PostView struct {
	ID              uuid.UUID     `json:"id"`
	Slug            string        `json:"slug"`
	Title           string        `json:"title"`
	DisplayTitle    string        `json:"display_title"`
	DisplayDate     string        `json:"display_date"`
	PublicationDate string        `json:"publication_date"`
	IsPublic        bool          `json:"is_public"`
	Excerpt         string        `json:"excerpt"`
	Content         string        `json:"content,omitempty"`
	Path            string        `json:"path"`
	ShareURL        string        `json:"share_url"`
	SocialImageURL  string        `json:"social_image_url,omitempty"`
	Thumbnail       *ImageView    `json:"thumbnail,omitempty"`
	Detail          *ImageView    `json:"detail,omitempty"`
	Gallery         []ImageView   `json:"gallery"`
	Categories      []CategoryRef `json:"categories"`
	SEO             models.SEO    `json:"seo"`
	Templates       []string      `json:"templates,omitempty"`
}

type CategoryView struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Slug      string     `json:"slug"`
	Path      string     `json:"path"`
	SEO       models.SEO `json:"seo"`
	Templates []string   `json:"templates,omitempty"`
}

type PostListView struct {
	Category   *CategoryView `json:"category,omitempty"`
	Items      []PostView    `json:"items"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalCount int           `json:"total_count"`
	HasNext    bool          `json:"has_next"`
	HasPrev    bool          `json:"has_prev"`
}

// PostView is the detail view of a post, content and template chain
// included. Draft state is judged against the current time.
func (p *Presenter) PostView(post models.Post) PostView {
	v := p.postView(post, p.now())
	v.Content = post.Content
	v.Templates = p.TemplateChain(KindPost, post.Slug)
	return v
}

// PostListView renders one page of posts, optionally inside a category.
func (p *Presenter) PostListView(page *querysvc.PostPage, category *models.Category) PostListView {
	now := p.now()

	items := make([]PostView, 0, len(page.Items))
	for _, post := range page.Items {
		items = append(items, p.postView(post, now))
	}

	out := PostListView{
		Items:      items,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalCount: page.TotalCount,
		HasNext:    page.HasNext,
		HasPrev:    page.HasPrev,
	}

	if category != nil {
		cv := p.CategoryView(*category)
		out.Category = &cv
	}

	return out
}

// PostSummaries renders posts without content or templates, for sidebars
// and feeds.
func (p *Presenter) PostSummaries(posts []models.Post) []PostView {
	now := p.now()

	out := make([]PostView, 0, len(posts))
	for _, post := range posts {
		out = append(out, p.postView(post, now))
	}
	return out
}

func (p *Presenter) CategoryView(category models.Category) CategoryView {
	return CategoryView{
		ID:        category.ID,
		Title:     category.Title,
		Slug:      category.Slug,
		Path:      p.CategoryPath(category),
		SEO:       category.SEO,
		Templates: p.TemplateChain(KindCategory, category.Slug),
	}
}

func (p *Presenter) CategoryViews(categories []models.Category) []CategoryView {
	out := make([]CategoryView, 0, len(categories))
	for _, c := range categories {
		v := p.CategoryView(c)
		v.Templates = nil
		out = append(out, v)
	}
	return out
}

func (p *Presenter) ImageView(img models.PostImage) ImageView {
	return ImageView{
		ID:    img.ID,
		Title: img.Title,
		Role:  img.Role,
		URL:   p.ImageURL(img),
		Tag:   p.ImageTag(img),
	}
}

func (p *Presenter) postView(post models.Post, now time.Time) PostView {
	v := PostView{
		ID:              post.ID,
		Slug:            post.Slug,
		Title:           post.Title,
		DisplayTitle:    p.DisplayTitle(post, now),
		DisplayDate:     p.DisplayDate(post, ""),
		PublicationDate: post.PublicationDate.Format(time.DateOnly),
		IsPublic:        visibility.IsPublic(post, now),
		Excerpt:         p.Excerpt(post, 0),
		Path:            p.PostPath(post),
		ShareURL:        p.SocialShareURL(post, ""),
		Gallery:         make([]ImageView, 0),
		Categories:      make([]CategoryRef, 0, len(post.Categories)),
		SEO:             post.SEO,
	}

	if u, ok := p.SocialImageURL(post); ok {
		v.SocialImageURL = u
	}
	if img, ok := p.SelectImage(post, models.ImageRoleThumbnail); ok {
		iv := p.ImageView(img)
		v.Thumbnail = &iv
	}
	if img, ok := p.SelectImage(post, models.ImageRoleDetail); ok {
		iv := p.ImageView(img)
		v.Detail = &iv
	}
	for _, img := range p.GalleryImages(post) {
		v.Gallery = append(v.Gallery, p.ImageView(img))
	}
	for _, c := range post.Categories {
		v.Categories = append(v.Categories, CategoryRef{
			Title: c.Title,
			Slug:  c.Slug,
			Path:  p.CategoryPath(c),
		})
	}

	return v
}
