package services

import (
	"context"
	"sort"
	"time"

	"blogcore/internal/domain/models"
	"blogcore/internal/domain/visibility"
	"blogcore/internal/storage"

	"github.com/google/uuid"
)

// memStore is an in-memory content store with the same filter and ordering
// rules as the PostgreSQL repositories.
type memStore struct {
	posts      []models.Post
	categories []models.Category
	links      map[uuid.UUID][]uuid.UUID
	images     []models.PostImage
	seq        int64
	created    time.Time
}

func newMemStore() *memStore {
	return &memStore{
		links:   make(map[uuid.UUID][]uuid.UUID),
		created: time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) addPost(slug string, visible bool, pub time.Time, categories ...models.Category) models.Post {
	p, _ := m.SavePost(context.Background(), models.Post{
		Title:           slug,
		Slug:            slug,
		PublicationDate: visibility.DateOf(pub),
		IsVisible:       visible,
	})
	for _, c := range categories {
		m.links[p.ID] = append(m.links[p.ID], c.ID)
	}
	return p
}

func (m *memStore) addCategory(slug string) models.Category {
	c, _ := m.SaveCategory(context.Background(), models.Category{Title: slug, Slug: slug})
	return c
}

func (m *memStore) addImage(postID uuid.UUID, title string, role models.ImageRole) models.PostImage {
	img, _ := m.CreateImage(context.Background(), models.PostImage{
		PostID:      postID,
		Title:       title,
		Role:        role,
		StoragePath: models.ImagePath(postID, title+".jpg"),
	})
	return img
}

func matches(p models.Post, f models.PostFilter, links []uuid.UUID) bool {
	if f.PublicAsOf != nil && (!p.IsVisible || p.PublicationDate.After(*f.PublicAsOf)) {
		return false
	}
	if f.CategoryID != nil {
		for _, id := range links {
			if id == *f.CategoryID {
				return true
			}
		}
		return false
	}
	return true
}

func (m *memStore) filtered(f models.PostFilter) []models.Post {
	var out []models.Post
	for _, p := range m.posts {
		if matches(p, f, m.links[p.ID]) {
			out = append(out, p)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.PublicationDate.Equal(b.PublicationDate) {
			return a.PublicationDate.After(b.PublicationDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.Slug < b.Slug
	})

	return out
}

func (m *memStore) SavePost(_ context.Context, p models.Post) (models.Post, error) {
	for _, existing := range m.posts {
		if existing.Slug == p.Slug {
			return models.Post{}, storage.ErrSlugExists
		}
	}
	p.ID = uuid.New()
	m.created = m.created.Add(time.Second)
	p.CreatedAt = m.created
	m.posts = append(m.posts, p)
	return p, nil
}

func (m *memStore) UpdatePost(_ context.Context, p models.Post) (models.Post, error) {
	for i := range m.posts {
		if m.posts[i].ID == p.ID {
			p.CreatedAt = m.posts[i].CreatedAt
			m.posts[i] = p
			return p, nil
		}
	}
	return models.Post{}, storage.ErrPostNotFound
}

func (m *memStore) DeletePost(_ context.Context, id uuid.UUID) error {
	for i := range m.posts {
		if m.posts[i].ID == id {
			m.posts = append(m.posts[:i], m.posts[i+1:]...)
			delete(m.links, id)
			return nil
		}
	}
	return storage.ErrPostNotFound
}

func (m *memStore) GetPostByID(_ context.Context, id uuid.UUID) (models.Post, error) {
	for _, p := range m.posts {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Post{}, storage.ErrPostNotFound
}

func (m *memStore) GetPostBySlug(_ context.Context, slug string, f models.PostFilter) (models.Post, error) {
	for _, p := range m.filtered(f) {
		if p.Slug == slug {
			return p, nil
		}
	}
	return models.Post{}, storage.ErrPostNotFound
}

func (m *memStore) ListPosts(_ context.Context, f models.PostFilter, limit, offset int) ([]models.Post, error) {
	all := m.filtered(f)
	if offset >= len(all) {
		return []models.Post{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return append([]models.Post(nil), all[offset:end]...), nil
}

func (m *memStore) CountPosts(_ context.Context, f models.PostFilter) (int, error) {
	return len(m.filtered(f)), nil
}

func (m *memStore) SetPostCategories(_ context.Context, postID uuid.UUID, ids []uuid.UUID) error {
	m.links[postID] = append([]uuid.UUID(nil), ids...)
	return nil
}

func (m *memStore) SaveCategory(_ context.Context, c models.Category) (models.Category, error) {
	c.ID = uuid.New()
	m.categories = append(m.categories, c)
	return c, nil
}

func (m *memStore) UpdateCategory(_ context.Context, c models.Category) (models.Category, error) {
	for i := range m.categories {
		if m.categories[i].ID == c.ID {
			m.categories[i] = c
			return c, nil
		}
	}
	return models.Category{}, storage.ErrCategoryNotFound
}

func (m *memStore) DeleteCategory(_ context.Context, id uuid.UUID) error {
	for i := range m.categories {
		if m.categories[i].ID == id {
			m.categories = append(m.categories[:i], m.categories[i+1:]...)
			return nil
		}
	}
	return storage.ErrCategoryNotFound
}

func (m *memStore) GetCategoryByID(_ context.Context, id uuid.UUID) (models.Category, error) {
	for _, c := range m.categories {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Category{}, storage.ErrCategoryNotFound
}

func (m *memStore) GetCategoryBySlug(_ context.Context, slug string) (models.Category, error) {
	for _, c := range m.categories {
		if c.Slug == slug {
			return c, nil
		}
	}
	return models.Category{}, storage.ErrCategoryNotFound
}

func (m *memStore) ListCategories(_ context.Context, limit int) ([]models.Category, error) {
	out := append([]models.Category(nil), m.categories...)
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) GetCategoriesByPostIDs(_ context.Context, postIDs []uuid.UUID) (map[uuid.UUID][]models.Category, error) {
	out := make(map[uuid.UUID][]models.Category)
	for _, pid := range postIDs {
		for _, cid := range m.links[pid] {
			for _, c := range m.categories {
				if c.ID == cid {
					out[pid] = append(out[pid], c)
				}
			}
		}
	}
	return out, nil
}

func (m *memStore) CreateImage(_ context.Context, img models.PostImage) (models.PostImage, error) {
	m.seq++
	img.ID = uuid.New()
	img.Seq = m.seq
	m.images = append(m.images, img)
	return img, nil
}

func (m *memStore) DeleteImage(_ context.Context, id uuid.UUID) error {
	for i := range m.images {
		if m.images[i].ID == id {
			m.images = append(m.images[:i], m.images[i+1:]...)
			return nil
		}
	}
	return storage.ErrImageNotFound
}

func (m *memStore) GetImageByID(_ context.Context, id uuid.UUID) (models.PostImage, error) {
	for _, img := range m.images {
		if img.ID == id {
			return img, nil
		}
	}
	return models.PostImage{}, storage.ErrImageNotFound
}

func (m *memStore) GetImagesByPostIDs(_ context.Context, postIDs []uuid.UUID) (map[uuid.UUID][]models.PostImage, error) {
	want := make(map[uuid.UUID]bool, len(postIDs))
	for _, id := range postIDs {
		want[id] = true
	}
	out := make(map[uuid.UUID][]models.PostImage)
	for _, img := range m.images {
		if want[img.PostID] {
			out[img.PostID] = append(out[img.PostID], img)
		}
	}
	return out, nil
}

func (m *memStore) LatestImageByRole(_ context.Context, postID uuid.UUID, role models.ImageRole) (models.PostImage, error) {
	var (
		latest models.PostImage
		found  bool
	)
	for _, img := range m.images {
		if img.PostID == postID && img.Role == role && (!found || img.Seq > latest.Seq) {
			latest, found = img, true
		}
	}
	if !found {
		return models.PostImage{}, storage.ErrImageNotFound
	}
	return latest, nil
}
