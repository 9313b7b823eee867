// Package docs holds the OpenAPI description served under /swagger.
// Regenerate with: swag init -g cmd/blogcore/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/posts": {
            "get": {
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "List posts",
                "parameters": [
                    {"type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"type": "integer", "default": 10, "description": "Posts per page", "name": "page_size", "in": "query"},
                    {"type": "string", "description": "Category slug", "name": "category", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/presenter.PostListView"}},
                    "404": {"description": "Unknown category", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/api/v1/posts/{slug}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Get a post",
                "parameters": [
                    {"type": "string", "description": "Post slug", "name": "slug", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/presenter.PostView"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/api/v1/posts/{slug}/images/{role}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Latest image of a role",
                "parameters": [
                    {"type": "string", "description": "Post slug", "name": "slug", "in": "path", "required": true},
                    {"enum": ["thumbnail", "detail", "gallery"], "type": "string", "description": "Image role", "name": "role", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/presenter.ImageView"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/api/v1/latest": {
            "get": {
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Latest public posts",
                "parameters": [
                    {"type": "integer", "default": 5, "description": "How many posts", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/presenter.PostView"}}}
                }
            }
        },
        "/api/v1/categories": {
            "get": {
                "produces": ["application/json"],
                "tags": ["categories"],
                "summary": "List categories",
                "parameters": [
                    {"type": "integer", "default": 5, "description": "How many categories", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/presenter.CategoryView"}}}
                }
            }
        },
        "/api/v1/categories/{slug}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["categories"],
                "summary": "Category page",
                "parameters": [
                    {"type": "string", "description": "Category slug", "name": "slug", "in": "path", "required": true},
                    {"type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"type": "integer", "default": 10, "description": "Posts per page", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/presenter.PostListView"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/api/v1/admin/posts": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Create a post",
                "parameters": [
                    {"description": "New post", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreatePostRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.PostResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.ValidationErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/api/v1/admin/posts/{id}": {
            "put": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Update a post",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "Post UUID", "name": "id", "in": "path", "required": true},
                    {"description": "Changed fields", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.UpdatePostRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.PostResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.ValidationErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"ApiKeyAuth": []}],
                "tags": ["admin"],
                "summary": "Delete a post",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "Post UUID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/api/v1/admin/posts/{id}/categories": {
            "put": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Replace the categories of a post",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "Post UUID", "name": "id", "in": "path", "required": true},
                    {"description": "Category ids", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.SetPostCategoriesRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.PostResponse"}}
                }
            }
        },
        "/api/v1/admin/posts/{id}/images": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Upload a post image",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "Post UUID", "name": "id", "in": "path", "required": true},
                    {"type": "file", "description": "Image file", "name": "file", "in": "formData", "required": true},
                    {"type": "string", "description": "Image title, defaults to the file name", "name": "title", "in": "formData"},
                    {"enum": ["thumbnail", "detail", "gallery"], "type": "string", "description": "Image role", "name": "role", "in": "formData"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.ImageResponse"}}
                }
            }
        },
        "/api/v1/admin/images/{id}": {
            "delete": {
                "security": [{"ApiKeyAuth": []}],
                "tags": ["admin"],
                "summary": "Delete a post image",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "Image UUID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/api/v1/admin/categories": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Create a category",
                "parameters": [
                    {"description": "New category", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreateCategoryRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.CategoryResponse"}}
                }
            }
        },
        "/api/v1/admin/categories/{id}": {
            "put": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Update a category",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "Category UUID", "name": "id", "in": "path", "required": true},
                    {"description": "Changed fields", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.UpdateCategoryRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.CategoryResponse"}}
                }
            },
            "delete": {
                "security": [{"ApiKeyAuth": []}],
                "tags": ["admin"],
                "summary": "Delete a category",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "Category UUID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        }
    },
    "definitions": {
        "dto.CreatePostRequest": {"type": "object"},
        "dto.UpdatePostRequest": {"type": "object"},
        "dto.SetPostCategoriesRequest": {"type": "object"},
        "dto.CreateCategoryRequest": {"type": "object"},
        "dto.UpdateCategoryRequest": {"type": "object"},
        "dto.PostResponse": {"type": "object"},
        "dto.CategoryResponse": {"type": "object"},
        "dto.ImageResponse": {"type": "object"},
        "presenter.PostView": {"type": "object"},
        "presenter.PostListView": {"type": "object"},
        "presenter.CategoryView": {"type": "object"},
        "presenter.ImageView": {"type": "object"},
        "response.ErrorResponse": {
            "type": "object",
            "properties": {
                "details": {"type": "string"},
                "error": {"type": "string"},
                "status": {"type": "string"}
            }
        },
        "response.ValidationErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "fields": {"type": "array", "items": {"type": "object"}},
                "status": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "blogcore API",
	Description:      "Blog posts, categories and post images.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
