package storage

import "errors"

var (
	ErrPostNotFound     = errors.New("post not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrImageNotFound    = errors.New("image not found")
	ErrSlugExists       = errors.New("slug already exists")
)

var (
	ErrFileTooLarge    = errors.New("file size exceeds limit")
	ErrInvalidFileType = errors.New("invalid file type")
	ErrFileNotFound    = errors.New("file not found")
	ErrFileExists      = errors.New("file already exists")
)
