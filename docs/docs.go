// Package docs registers the OpenAPI description served at /api/swagger.
// Regenerate with: swag init -g cmd/server/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support",
            "email": "support@dreamio.dev"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["auth"],
                "summary": "Register",
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/service.RegisterInput"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Login",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/auth/profile": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Current user",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.User"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/auth/upload-profile-image": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Upload profile image",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "file", "description": "Image, 5 MB max", "name": "profileImage", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Logout",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/events": {
            "get": {
                "tags": ["events"],
                "summary": "List events",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Event"}}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["events"],
                "summary": "Create event",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "title", "in": "formData", "required": true},
                    {"type": "string", "name": "description", "in": "formData", "required": true},
                    {"type": "string", "description": "RFC3339 or YYYY-MM-DD", "name": "date", "in": "formData", "required": true},
                    {"type": "string", "name": "location", "in": "formData", "required": true},
                    {"type": "file", "name": "coverImage", "in": "formData", "required": true},
                    {"type": "file", "name": "videoFile", "in": "formData"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Event"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/events/{id}": {
            "get": {
                "tags": ["events"],
                "summary": "Get event",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Event"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["events"],
                "summary": "Update event",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Expected version", "name": "If-Match", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Event"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "412": {"description": "Precondition Failed", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["events"],
                "summary": "Delete event",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/live-streams": {
            "get": {
                "tags": ["live-streams"],
                "summary": "List public live streams",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.LiveStream"}}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["live-streams"],
                "summary": "Create live stream",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"type": "string", "name": "title", "in": "formData", "required": true},
                    {"type": "string", "description": "dreamio, youtube, facebook, twitch or custom", "name": "platform", "in": "formData"},
                    {"type": "string", "name": "streamKey", "in": "formData"},
                    {"type": "file", "name": "videoFile", "in": "formData"},
                    {"type": "string", "description": "Comma separated", "name": "tags", "in": "formData"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.LiveStream"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/live-streams/live/current": {
            "get": {
                "tags": ["live-streams"],
                "summary": "List streams that are live now",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.LiveStream"}}}
                }
            }
        },
        "/live-streams/user/{userId}": {
            "get": {
                "tags": ["live-streams"],
                "summary": "List a user's streams",
                "parameters": [{"type": "integer", "name": "userId", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.LiveStream"}}}
                }
            }
        },
        "/live-streams/{id}": {
            "get": {
                "tags": ["live-streams"],
                "summary": "Get live stream",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.LiveStream"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["live-streams"],
                "summary": "Update live stream metadata",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Expected version", "name": "If-Match", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.LiveStream"}},
                    "412": {"description": "Precondition Failed", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["live-streams"],
                "summary": "Delete live stream",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/live-streams/{id}/start": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "tags": ["live-streams"],
                "summary": "Go live",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.LiveStream"}}}
            }
        },
        "/live-streams/{id}/stop": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "tags": ["live-streams"],
                "summary": "End a stream",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.LiveStream"}}}
            }
        },
        "/live-streams/{id}/viewers": {
            "patch": {
                "tags": ["live-streams"],
                "summary": "Set viewer count",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.LiveStream"}}}
            }
        },
        "/live-streams/{id}/like": {
            "patch": {
                "tags": ["live-streams"],
                "summary": "Set like count",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.LiveStream"}}}
            }
        },
        "/users": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["users"],
                "summary": "List users",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.User"}}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/users/{id}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["users"],
                "summary": "Update user",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.User"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["users"],
                "summary": "Delete user",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/admin/stats": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Dashboard counters",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/editor/sessions": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["editor"],
                "summary": "Start an editor session",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/editor/sessions/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["editor"],
                "summary": "Get editor session",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["editor"],
                "summary": "Discard an editor session",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/editor/sessions/{id}/ops": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["editor"],
                "summary": "Apply a timeline operation",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Expected version", "name": "If-Match", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "412": {"description": "Precondition Failed", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "models.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "details": {"type": "string"},
                "error": {"type": "string"}
            }
        },
        "models.User": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "role": {"type": "string", "enum": ["Admin", "Designer", "User"]},
                "profileImage": {"type": "string"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "models.Event": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "date": {"type": "string"},
                "location": {"type": "string"},
                "coverImage": {"type": "string"},
                "coverThumbnail": {"type": "string"},
                "videoFile": {"type": "string"},
                "createdBy": {"type": "integer"},
                "creator": {"$ref": "#/definitions/models.User"},
                "version": {"type": "integer"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "models.LiveStream": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "streamerId": {"type": "integer"},
                "streamer": {"$ref": "#/definitions/models.User"},
                "platform": {"type": "string", "enum": ["dreamio", "youtube", "facebook", "twitch", "custom"]},
                "videoFile": {"type": "string"},
                "isLive": {"type": "boolean"},
                "isPublic": {"type": "boolean"},
                "chatEnabled": {"type": "boolean"},
                "recordingEnabled": {"type": "boolean"},
                "viewerCount": {"type": "integer"},
                "likeCount": {"type": "integer"},
                "status": {"type": "string", "enum": ["scheduled", "live", "ended", "cancelled"]},
                "startTime": {"type": "string"},
                "endTime": {"type": "string"},
                "duration": {"type": "integer"},
                "scheduledFor": {"type": "string"},
                "tags": {"type": "array", "items": {"type": "string"}},
                "category": {"type": "string"},
                "version": {"type": "integer"}
            }
        },
        "service.RegisterInput": {
            "type": "object",
            "required": ["email", "name", "password"],
            "properties": {
                "name": {"type": "string", "maxLength": 100},
                "email": {"type": "string", "maxLength": 255},
                "password": {"type": "string", "minLength": 8, "maxLength": 128},
                "role": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:5000",
	BasePath:         "/api",
	Schemes:          []string{"http", "https"},
	Title:            "Dreamio API",
	Description:      "Events, live-stream metadata, accounts and timeline editing sessions.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
