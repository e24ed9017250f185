// Package docs holds the OpenAPI description served at /swagger.
package docs

import "github.com/swaggo/swag"

// @title AnimePortal API
// @version 1.0
// @description Bilingual anime news portal: articles, routing, reader preferences, comments and live view counts.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}",
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        }
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "schemes": {{ marshal .Schemes }},
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header",
            "description": "Bearer JWT"
        }
    },
    "paths": {
        "/articles": {
            "get": {
                "summary": "List articles",
                "description": "Filters, sorts and paginates the catalog.",
                "tags": [
                    "articles"
                ],
                "parameters": [
                    {
                        "name": "section",
                        "in": "query",
                        "description": "Section label or alias (news, berita, opinion, opini, reviews, ulasan)",
                        "type": "string",
                        "required": false
                    },
                    {
                        "name": "vertical",
                        "in": "query",
                        "description": "News vertical or alias (anime, comics, movies, games)",
                        "type": "string",
                        "required": false
                    },
                    {
                        "name": "tag",
                        "in": "query",
                        "description": "Tag in either language",
                        "type": "string",
                        "required": false
                    },
                    {
                        "name": "topic",
                        "in": "query",
                        "description": "Tag or category slug",
                        "type": "string",
                        "required": false
                    },
                    {
                        "name": "category",
                        "in": "query",
                        "description": "Generic category label",
                        "type": "string",
                        "required": false
                    },
                    {
                        "name": "q",
                        "in": "query",
                        "description": "Free-text query over titles and excerpts",
                        "type": "string",
                        "required": false
                    },
                    {
                        "name": "sort",
                        "in": "query",
                        "description": "Sort order",
                        "type": "string",
                        "required": false,
                        "enum": [
                            "latest",
                            "oldest",
                            "popular"
                        ]
                    },
                    {
                        "name": "filter",
                        "in": "query",
                        "description": "Only bookmarked articles when set to bookmarks",
                        "type": "string",
                        "required": false,
                        "enum": [
                            "bookmarks"
                        ]
                    },
                    {
                        "name": "offset",
                        "in": "query",
                        "description": "Window start",
                        "type": "integer",
                        "required": false
                    },
                    {
                        "name": "limit",
                        "in": "query",
                        "description": "Window size (max 50)",
                        "type": "integer",
                        "required": false
                    },
                    {
                        "name": "lang",
                        "in": "query",
                        "description": "Response language",
                        "type": "string",
                        "required": false,
                        "enum": [
                            "id",
                            "en"
                        ]
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Article page",
                        "schema": {
                            "$ref": "#/definitions/ArticlePage"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    }
                }
            }
        },
        "/articles/{id}": {
            "get": {
                "summary": "Get article",
                "description": "Article in the requested language with its canonical link, rendered HTML and table of contents.",
                "tags": [
                    "articles"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "description": "Article id",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "lang",
                        "in": "query",
                        "description": "Response language",
                        "type": "string",
                        "required": false,
                        "enum": [
                            "id",
                            "en"
                        ]
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Article",
                        "schema": {
                            "$ref": "#/definitions/ArticleDetail"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    }
                }
            }
        },
        "/articles/{id}/views": {
            "post": {
                "summary": "Record a view",
                "description": "Optimistically increments the view count and pushes it to /ws/views subscribers.",
                "tags": [
                    "articles"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "description": "Article id",
                        "type": "string",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "New count",
                        "schema": {
                            "$ref": "#/definitions/ViewCount"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    }
                }
            }
        },
        "/articles/{id}/comments": {
            "get": {
                "summary": "List comments",
                "description": "Comments oldest first.",
                "tags": [
                    "comments"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "description": "Article id",
                        "type": "string",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Comments",
                        "schema": {
                            "$ref": "#/definitions/CommentList"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    }
                }
            },
            "post": {
                "summary": "Add comment",
                "description": "Adds a comment or a reply to an existing comment.",
                "tags": [
                    "comments"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "description": "Article id",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "description": "Comment",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CommentRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/Comment"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    },
                    "401": {
                        "description": "Missing or invalid bearer token",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/resolve": {
            "get": {
                "summary": "Resolve a site URL",
                "description": "Parses a site path with its query into a location and the matching article or listing.",
                "tags": [
                    "routing"
                ],
                "parameters": [
                    {
                        "name": "path",
                        "in": "query",
                        "description": "Site path, e.g. /news/anime?sort=popular",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "offset",
                        "in": "query",
                        "description": "Window start",
                        "type": "integer",
                        "required": false
                    },
                    {
                        "name": "limit",
                        "in": "query",
                        "description": "Window size",
                        "type": "integer",
                        "required": false
                    },
                    {
                        "name": "lang",
                        "in": "query",
                        "description": "Response language",
                        "type": "string",
                        "required": false,
                        "enum": [
                            "id",
                            "en"
                        ]
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Resolved location",
                        "schema": {
                            "$ref": "#/definitions/Resolution"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    }
                }
            }
        },
        "/links/section": {
            "get": {
                "summary": "Section link",
                "description": "Resolves a free-text label to a canonical path.",
                "tags": [
                    "routing"
                ],
                "parameters": [
                    {
                        "name": "label",
                        "in": "query",
                        "description": "Label in either language",
                        "type": "string",
                        "required": false
                    },
                    {
                        "name": "header",
                        "in": "query",
                        "description": "Honor vertical aliases (header navigation)",
                        "type": "boolean",
                        "required": false
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Path",
                        "schema": {
                            "$ref": "#/definitions/Link"
                        }
                    }
                }
            }
        },
        "/links/article/{id}": {
            "get": {
                "summary": "Article link",
                "description": "Canonical path and absolute URL of an article.",
                "tags": [
                    "routing"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "description": "Article id",
                        "type": "string",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Link",
                        "schema": {
                            "$ref": "#/definitions/Link"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    }
                }
            }
        },
        "/taxonomy": {
            "get": {
                "summary": "Taxonomy",
                "description": "Sections, news verticals and static pages with their aliases.",
                "tags": [
                    "routing"
                ],
                "parameters": [
                    {
                        "name": "lang",
                        "in": "query",
                        "description": "Response language",
                        "type": "string",
                        "required": false,
                        "enum": [
                            "id",
                            "en"
                        ]
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Taxonomy"
                    }
                }
            }
        },
        "/catalog": {
            "get": {
                "summary": "Catalog info",
                "description": "Current snapshot with the last ingestion report.",
                "tags": [
                    "catalog"
                ],
                "responses": {
                    "200": {
                        "description": "Catalog"
                    }
                }
            }
        },
        "/me/preferences": {
            "get": {
                "summary": "Get preferences",
                "description": "The reader's history, bookmarks, searches and settings.",
                "tags": [
                    "me"
                ],
                "responses": {
                    "200": {
                        "description": "Preferences",
                        "schema": {
                            "$ref": "#/definitions/Preferences"
                        }
                    },
                    "401": {
                        "description": "Missing or invalid bearer token",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/me/preferences/sync": {
            "post": {
                "summary": "Sync preferences",
                "description": "Reconciles the client copy with the server copy.",
                "tags": [
                    "me"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "description": "Client copy",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/Preferences"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Reconciled",
                        "schema": {
                            "$ref": "#/definitions/Preferences"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    },
                    "401": {
                        "description": "Missing or invalid bearer token",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/me/settings": {
            "put": {
                "summary": "Update settings",
                "description": "Sets theme (light, dark, system) and language (id, en).",
                "tags": [
                    "me"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "description": "Settings",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/Settings"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Preferences",
                        "schema": {
                            "$ref": "#/definitions/Preferences"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    },
                    "401": {
                        "description": "Missing or invalid bearer token",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/me/bookmarks/{id}": {
            "put": {
                "summary": "Toggle bookmark",
                "description": "Adds or removes a bookmark.",
                "tags": [
                    "me"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "description": "Article id",
                        "type": "string",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Bookmark state"
                    },
                    "401": {
                        "description": "Missing or invalid bearer token",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/me/history": {
            "post": {
                "summary": "Record history",
                "description": "Adds a reading-history entry without counting a view.",
                "tags": [
                    "me"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "description": "Entry",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/HistoryRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Preferences",
                        "schema": {
                            "$ref": "#/definitions/Preferences"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    },
                    "401": {
                        "description": "Missing or invalid bearer token",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/me/searches": {
            "post": {
                "summary": "Record search",
                "description": "Remembers a search query.",
                "tags": [
                    "me"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "description": "Query",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/SearchRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Preferences",
                        "schema": {
                            "$ref": "#/definitions/Preferences"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    },
                    "401": {
                        "description": "Missing or invalid bearer token",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/poller/status": {
            "get": {
                "summary": "Poller status",
                "description": "Polling state and last poll times.",
                "tags": [
                    "poller"
                ],
                "responses": {
                    "200": {
                        "description": "Status"
                    }
                }
            }
        },
        "/poller/force-poll": {
            "post": {
                "summary": "Force poll",
                "description": "Reloads content and/or view counts immediately.",
                "tags": [
                    "poller"
                ],
                "parameters": [
                    {
                        "name": "target",
                        "in": "query",
                        "description": "content, views or empty for both",
                        "type": "string",
                        "required": false,
                        "enum": [
                            "content",
                            "views"
                        ]
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Polled"
                    },
                    "401": {
                        "description": "Missing or invalid bearer token",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/poller/last-polled": {
            "get": {
                "summary": "Last polled",
                "description": "Last poll time per target.",
                "tags": [
                    "poller"
                ],
                "responses": {
                    "200": {
                        "description": "Times"
                    }
                }
            }
        },
        "/storage/stats": {
            "get": {
                "summary": "Storage stats",
                "description": "Row counts and database size.",
                "tags": [
                    "storage"
                ],
                "responses": {
                    "200": {
                        "description": "Stats"
                    }
                }
            }
        },
        "/storage/optimize": {
            "post": {
                "summary": "Optimize storage",
                "description": "Runs VACUUM and ANALYZE.",
                "tags": [
                    "storage"
                ],
                "responses": {
                    "200": {
                        "description": "Optimized"
                    },
                    "401": {
                        "description": "Missing or invalid bearer token",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        }
    },
    "definitions": {
        "Error": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                }
            }
        },
        "ArticleSummary": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "link": {
                    "type": "string"
                },
                "title": {
                    "type": "string"
                },
                "excerpt": {
                    "type": "string"
                },
                "category": {
                    "type": "string"
                },
                "sub_category": {
                    "type": "string"
                },
                "section": {
                    "type": "string",
                    "enum": [
                        "news",
                        "opinion",
                        "reviews"
                    ]
                },
                "author": {
                    "type": "string"
                },
                "date": {
                    "type": "string"
                },
                "published_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "image_url": {
                    "type": "string"
                },
                "tags": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "views": {
                    "type": "integer"
                },
                "bookmarked": {
                    "type": "boolean"
                }
            }
        },
        "ArticleDetail": {
            "allOf": [
                {
                    "$ref": "#/definitions/ArticleSummary"
                },
                {
                    "type": "object",
                    "properties": {
                        "content": {
                            "type": "string"
                        },
                        "html": {
                            "type": "string"
                        },
                        "headings": {
                            "type": "array",
                            "items": {
                                "type": "object",
                                "properties": {
                                    "title": {
                                        "type": "string"
                                    },
                                    "id": {
                                        "type": "string"
                                    },
                                    "level": {
                                        "type": "integer"
                                    }
                                }
                            }
                        },
                        "translated": {
                            "type": "boolean"
                        },
                        "video_url": {
                            "type": "string"
                        },
                        "related": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/ArticleSummary"
                            }
                        }
                    }
                }
            ]
        },
        "ArticlePage": {
            "type": "object",
            "properties": {
                "lang": {
                    "type": "string"
                },
                "filter": {
                    "type": "object",
                    "properties": {}
                },
                "articles": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/ArticleSummary"
                    }
                },
                "total": {
                    "type": "integer"
                },
                "offset": {
                    "type": "integer"
                },
                "limit": {
                    "type": "integer"
                },
                "has_more": {
                    "type": "boolean"
                }
            }
        },
        "ViewCount": {
            "type": "object",
            "properties": {
                "article_id": {
                    "type": "string"
                },
                "views": {
                    "type": "integer"
                }
            }
        },
        "Comment": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "article_id": {
                    "type": "string"
                },
                "parent_id": {
                    "type": "string"
                },
                "user_id": {
                    "type": "string"
                },
                "author": {
                    "type": "string"
                },
                "body": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "CommentList": {
            "type": "object",
            "properties": {
                "article_id": {
                    "type": "string"
                },
                "comments": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/Comment"
                    }
                },
                "count": {
                    "type": "integer"
                }
            }
        },
        "CommentRequest": {
            "type": "object",
            "required": [
                "body"
            ],
            "properties": {
                "body": {
                    "type": "string",
                    "maxLength": 2000
                },
                "parent_id": {
                    "type": "string"
                }
            }
        },
        "Resolution": {
            "type": "object",
            "properties": {
                "lang": {
                    "type": "string"
                },
                "location": {
                    "type": "object",
                    "properties": {
                        "kind": {
                            "type": "string",
                            "enum": [
                                "home",
                                "section",
                                "vertical",
                                "article",
                                "category",
                                "topic",
                                "static",
                                "not_found"
                            ]
                        },
                        "path": {
                            "type": "string"
                        },
                        "section": {
                            "type": "string"
                        },
                        "vertical": {
                            "type": "string"
                        },
                        "article_id": {
                            "type": "string"
                        },
                        "category": {
                            "type": "string"
                        },
                        "topic": {
                            "type": "string"
                        },
                        "static": {
                            "type": "string"
                        }
                    }
                },
                "article": {
                    "$ref": "#/definitions/ArticleSummary"
                },
                "canonical": {
                    "type": "string"
                },
                "articles": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/ArticleSummary"
                    }
                },
                "total": {
                    "type": "integer"
                },
                "has_more": {
                    "type": "boolean"
                }
            }
        },
        "Link": {
            "type": "object",
            "properties": {
                "label": {
                    "type": "string"
                },
                "id": {
                    "type": "string"
                },
                "path": {
                    "type": "string"
                },
                "url": {
                    "type": "string"
                },
                "kind": {
                    "type": "string"
                },
                "slug": {
                    "type": "string"
                }
            }
        },
        "Preferences": {
            "type": "object",
            "properties": {
                "user_id": {
                    "type": "string"
                },
                "history": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "article_id": {
                                "type": "string"
                            },
                            "viewed_at": {
                                "type": "string",
                                "format": "date-time"
                            }
                        }
                    }
                },
                "bookmarks": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "article_id": {
                                "type": "string"
                            },
                            "at": {
                                "type": "string",
                                "format": "date-time"
                            }
                        }
                    }
                },
                "search_history": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "query": {
                                "type": "string"
                            },
                            "at": {
                                "type": "string",
                                "format": "date-time"
                            }
                        }
                    }
                },
                "theme": {
                    "type": "string"
                },
                "language": {
                    "type": "string",
                    "enum": [
                        "id",
                        "en"
                    ]
                },
                "updated_at": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "Settings": {
            "type": "object",
            "properties": {
                "theme": {
                    "type": "string",
                    "enum": [
                        "light",
                        "dark",
                        "system"
                    ]
                },
                "language": {
                    "type": "string",
                    "enum": [
                        "id",
                        "en"
                    ]
                }
            }
        },
        "HistoryRequest": {
            "type": "object",
            "required": [
                "article_id"
            ],
            "properties": {
                "article_id": {
                    "type": "string"
                }
            }
        },
        "SearchRequest": {
            "type": "object",
            "required": [
                "query"
            ],
            "properties": {
                "query": {
                    "type": "string"
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "AnimePortal API",
	Description:      "Bilingual anime news portal: articles, routing, reader preferences, comments and live view counts.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
