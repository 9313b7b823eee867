package models

import (
	"path"
	"strings"
	"unicode/utf8"

	"blogcore/internal/lib/markup"

	"github.com/google/uuid"
)

type ImageRole string

const (
	ImageRoleNone      ImageRole = ""
	ImageRoleThumbnail ImageRole = "thumbnail"
	ImageRoleDetail    ImageRole = "detail"
	ImageRoleGallery   ImageRole = "gallery"
)

// imageNamespace prefixes every stored post image: <app>/<entity>.
const imageNamespace = "blog/post"

func (r ImageRole) Valid() bool {
	switch r {
	case ImageRoleNone, ImageRoleThumbnail, ImageRoleDetail, ImageRoleGallery:
		return true
	}
	return false
}

// PostImage is a media file attached to a post. Seq is assigned by the store
// and grows with every insert, so the highest Seq of a role is the latest.
type PostImage struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Seq         int64     `db:"seq" json:"seq"`
	PostID      uuid.UUID `db:"post_id" json:"post_id" validate:"required"`
	Title       string    `db:"title" json:"title" validate:"required,max=255"`
	Role        ImageRole `db:"role" json:"role,omitempty" validate:"omitempty,oneof=thumbnail detail gallery"`
	StoragePath string    `db:"storage_path" json:"storage_path" validate:"required,max=255"`
}

func (i *PostImage) Validate() error {
	return validateStruct(i)
}

const (
	maxStoragePathLen = 255
	// room for the "-N" suffix added when a post already has the name
	pathSuffixRoom = 8
	maxExtLen      = 10
)

// ImagePath returns the storage path for an uploaded file:
// blog/post/<post id>/<slugified name>.<ext>. Long names are shortened so
// the path, including a collision suffix, fits storage_path.
func ImagePath(postID uuid.UUID, filename string) string {
	dir := path.Join(imageNamespace, postID.String())

	name := markup.SlugifyFilename(filename)
	ext := markup.TruncateRunes(path.Ext(name), maxExtLen)
	base := strings.TrimSuffix(name, path.Ext(name))

	budget := maxStoragePathLen - utf8.RuneCountInString(dir) - 1 - pathSuffixRoom - utf8.RuneCountInString(ext)
	base = strings.TrimRight(markup.TruncateRunes(base, budget), "-")
	if base == "" {
		base = "file"
	}

	return dir + "/" + base + ext
}
