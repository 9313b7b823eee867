// Package presenter turns resolved posts and categories into the values a
// page needs: display titles, dates, excerpts, image picks, share links and
// template candidates. Nothing here touches storage.
package presenter

import (
	"html"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"blogcore/internal/domain/models"
	"blogcore/internal/domain/visibility"
	"blogcore/internal/lib/markup"

	"github.com/ncruces/go-strftime"
)

const (
	DefaultDateFormat   = "%d-%m-%Y"
	DefaultExcerptWords = 10
	DraftPrefix         = "[DRAFT] "
)

type Kind string

const (
	KindPost     Kind = "post"
	KindCategory Kind = "category"
)

type Config struct {
	DateFormat   string
	ExcerptWords int
	Scheme       string
	SiteDomain   string
	BasePath     string
}

// BlobURLs resolves a stored image path to a URL.
type BlobURLs interface {
	URL(relPath string) string
}

type Presenter struct {
	cfg   Config
	blobs BlobURLs
	now   func() time.Time
}

func New(cfg Config, blobs BlobURLs, now func() time.Time) *Presenter {
	if cfg.DateFormat == "" {
		cfg.DateFormat = DefaultDateFormat
	}
	if cfg.ExcerptWords <= 0 {
		cfg.ExcerptWords = DefaultExcerptWords
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}
	if now == nil {
		now = time.Now
	}

	return &Presenter{cfg: cfg, blobs: blobs, now: now}
}

// DisplayTitle capitalises the title and marks posts that are not public
// on the day of asOf.
func (p *Presenter) DisplayTitle(post models.Post, asOf time.Time) string {
	title := markup.CapFirst(post.Title)
	if !visibility.IsPublic(post, asOf) {
		return DraftPrefix + title
	}
	return title
}

// DisplayDate renders the publication date with a strftime pattern. An
// empty format falls back to the configured one.
func (p *Presenter) DisplayDate(post models.Post, format string) string {
	if format == "" {
		format = p.cfg.DateFormat
	}
	return strftime.Format(format, post.PublicationDate)
}

// Excerpt strips markup from the content and keeps at most wordLimit words.
func (p *Presenter) Excerpt(post models.Post, wordLimit int) string {
	if wordLimit <= 0 {
		wordLimit = p.cfg.ExcerptWords
	}
	return markup.TruncateWords(markup.StripTags(post.Content), wordLimit)
}

// SelectImage returns the most recently added image of role. ok is false
// when the post has none.
func (p *Presenter) SelectImage(post models.Post, role models.ImageRole) (img models.PostImage, ok bool) {
	for _, candidate := range post.Images {
		if candidate.Role != role {
			continue
		}
		if !ok || candidate.Seq > img.Seq {
			img, ok = candidate, true
		}
	}
	return img, ok
}

// GalleryImages returns the gallery images in the order they were added.
func (p *Presenter) GalleryImages(post models.Post) []models.PostImage {
	gallery := make([]models.PostImage, 0)
	for _, img := range post.Images {
		if img.Role == models.ImageRoleGallery {
			gallery = append(gallery, img)
		}
	}

	sort.SliceStable(gallery, func(i, j int) bool {
		return gallery[i].Seq < gallery[j].Seq
	})

	return gallery
}

func (p *Presenter) ImageURL(img models.PostImage) string {
	return p.blobs.URL(img.StoragePath)
}

// ImageTag renders an escaped <img> element for img.
func (p *Presenter) ImageTag(img models.PostImage) string {
	return `<img src="` + html.EscapeString(p.ImageURL(img)) + `" alt="` + html.EscapeString(img.Title) + `">`
}

// PostPath is the canonical path of a post, e.g. /blog/my-post/.
func (p *Presenter) PostPath(post models.Post) string {
	return p.sitePath(post.Slug)
}

func (p *Presenter) CategoryPath(category models.Category) string {
	return p.sitePath("category", category.Slug)
}

func (p *Presenter) sitePath(parts ...string) string {
	return path.Join(append([]string{"/", p.cfg.BasePath}, parts...)...) + "/"
}

// SocialShareURL is the absolute address of the post on siteDomain, or on
// the configured domain when siteDomain is empty.
func (p *Presenter) SocialShareURL(post models.Post, siteDomain string) string {
	if siteDomain == "" {
		siteDomain = p.cfg.SiteDomain
	}
	return p.cfg.Scheme + "://" + siteDomain + p.PostPath(post)
}

// SocialImageURL is the absolute thumbnail address for Open Graph tags.
// ok is false when the post has no thumbnail.
func (p *Presenter) SocialImageURL(post models.Post) (string, bool) {
	img, ok := p.SelectImage(post, models.ImageRoleThumbnail)
	if !ok {
		return "", false
	}

	raw := p.ImageURL(img)
	if u, err := url.Parse(raw); err == nil && u.IsAbs() {
		return raw, true
	}

	return p.cfg.Scheme + "://" + p.cfg.SiteDomain + "/" + strings.TrimLeft(raw, "/"), true
}

// TemplateChain lists template names from most to least specific. The
// first one that exists should be used.
func (p *Presenter) TemplateChain(kind Kind, slug string) []string {
	switch kind {
	case KindPost:
		return []string{"post_" + slug, "post_detail"}
	case KindCategory:
		return []string{"category_" + slug, "category_post_list"}
	default:
		return nil
	}
}
