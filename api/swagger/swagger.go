package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Comunika Posts API",
        "description": "Post lifecycle, scheduling and calendar derivation",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Posts", "description": "Post lifecycle: create, update, archive, delete, duplicate"},
        {"name": "Calendar", "description": "Calendar events derived from published posts"}
    ],
    "paths": {
        "/posts": {
            "get": {
                "tags": ["Posts"],
                "summary": "List posts",
                "parameters": [
                    {"name": "types", "in": "query", "type": "string", "description": "Comma separated post types"},
                    {"name": "statuses", "in": "query", "type": "string", "description": "Comma separated statuses; SCHEDULED only when requested"},
                    {"name": "class_ids", "in": "query", "type": "string"},
                    {"name": "author_role", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "sort", "in": "query", "type": "string", "enum": ["relevance"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Posts"],
                "summary": "Create a post",
                "parameters": [
                    {"name": "allow_past", "in": "query", "type": "boolean"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PostInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/posts/changes": {
            "get": {
                "tags": ["Posts"],
                "summary": "Server-sent change signals",
                "produces": ["text/event-stream"],
                "responses": {"200": {"description": "Event stream"}}
            }
        },
        "/posts/{id}": {
            "get": {
                "tags": ["Posts"],
                "summary": "Get a post",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "patch": {
                "tags": ["Posts"],
                "summary": "Update a post",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "allow_past", "in": "query", "type": "boolean"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PostPatch"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "delete": {
                "tags": ["Posts"],
                "summary": "Delete a post",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/posts/{id}/archive": {
            "post": {
                "tags": ["Posts"],
                "summary": "Archive a post",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/posts/{id}/duplicate": {
            "post": {
                "tags": ["Posts"],
                "summary": "Build a creation payload from an existing post",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/calendar/events": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Derive calendar events for a window",
                "parameters": [
                    {"name": "start", "in": "query", "required": true, "type": "string"},
                    {"name": "end", "in": "query", "required": true, "type": "string"},
                    {"name": "types", "in": "query", "type": "string"},
                    {"name": "authors", "in": "query", "type": "string"},
                    {"name": "class_ids", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "has_weight", "in": "query", "type": "boolean"},
                    {"name": "min_weight", "in": "query", "type": "number"},
                    {"name": "max_weight", "in": "query", "type": "number"},
                    {"name": "has_attachments", "in": "query", "type": "boolean"},
                    {"name": "this_week", "in": "query", "type": "boolean"},
                    {"name": "upcoming", "in": "query", "type": "boolean"},
                    {"name": "overdue", "in": "query", "type": "boolean"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "definitions": {
        "PostInput": {
            "type": "object",
            "required": ["type", "title", "audience"],
            "properties": {
                "type": {"type": "string", "enum": ["NOTICE", "ANNOUNCEMENT", "EVENT", "ASSIGNMENT", "PROJECT", "EXAM"]},
                "title": {"type": "string", "maxLength": 200},
                "body": {"type": "string"},
                "attachments": {"type": "array", "items": {"type": "string"}},
                "audience": {"type": "string", "enum": ["GLOBAL", "CLASS"]},
                "class_ids": {"type": "array", "items": {"type": "string"}},
                "due_at": {"type": "string", "format": "date-time"},
                "event_start_at": {"type": "string", "format": "date-time"},
                "event_end_at": {"type": "string", "format": "date-time"},
                "event_location": {"type": "string"},
                "status": {"type": "string", "enum": ["DRAFT", "SCHEDULED", "PUBLISHED", "ARCHIVED"]},
                "publish_at": {"type": "string", "format": "date-time"},
                "activity_meta": {"type": "object"}
            }
        },
        "PostPatch": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "status": {"type": "string"},
                "due_at": {"type": "string", "format": "date-time"},
                "publish_at": {"type": "string", "format": "date-time"},
                "activity_meta": {"type": "object"},
                "clear": {"type": "array", "items": {"type": "string"}}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
