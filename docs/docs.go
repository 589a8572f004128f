// Package docs registers the OpenAPI document served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["auth"],
                "summary": "Register a new user",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Log in a user",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/users/me": {
            "get": {
                "tags": ["users"],
                "summary": "Get current user's info",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/users/me/relations": {
            "get": {
                "tags": ["relationships"],
                "summary": "Get user relations",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/users/me/requests": {
            "get": {
                "tags": ["relationships"],
                "summary": "Get pending requests",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/users/me/events": {
            "get": {
                "tags": ["relationships"],
                "summary": "Stream relationship events",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/users/{id}/request": {
            "post": {
                "tags": ["relationships"],
                "summary": "Send relationship request",
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/users/{id}/accept": {
            "post": {
                "tags": ["relationships"],
                "summary": "Accept relationship request",
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/users/{id}/reject": {
            "post": {
                "tags": ["relationships"],
                "summary": "Reject relationship request",
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/users/{id}/relation": {
            "delete": {
                "tags": ["relationships"],
                "summary": "Remove relation",
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/mentor/mentees": {
            "get": {
                "tags": ["mentor"],
                "summary": "List mentees",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/mentor/mentees/{id}": {
            "get": {
                "tags": ["mentor"],
                "summary": "Get mentee details",
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/mentor/mentees/{id}/notes": {
            "put": {
                "tags": ["mentor"],
                "summary": "Update mentee notes",
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/mentor/mentees/{id}/reviewed": {
            "post": {
                "tags": ["mentor"],
                "summary": "Mark mentee reviewed",
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/mentor/mentees/{id}/attention": {
            "put": {
                "tags": ["mentor"],
                "summary": "Set mentee attention flag",
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/counsellor/clients": {
            "get": {
                "tags": ["counsellor"],
                "summary": "List clients",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/counsellor/clients/{id}": {
            "get": {
                "tags": ["counsellor"],
                "summary": "Get client details",
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/counsellor/clients/{id}/notes": {
            "put": {
                "tags": ["counsellor"],
                "summary": "Update client notes",
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/counsellor/clients/{id}/priority": {
            "put": {
                "tags": ["counsellor"],
                "summary": "Set client priority",
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/counsellor/clients/{id}/sessions": {
            "post": {
                "tags": ["counsellor"],
                "summary": "Schedule a session",
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/admin/users": {
            "get": {
                "tags": ["admin"],
                "summary": "List users",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/admin/users/{id}": {
            "delete": {
                "tags": ["admin"],
                "summary": "Delete user",
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/admin/users/{id}/roles": {
            "put": {
                "tags": ["admin"],
                "summary": "Replace user roles",
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/admin/users/{id}/mentees": {
            "get": {
                "tags": ["admin"],
                "summary": "List a mentor's mentees",
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["admin"],
                "summary": "Replace a mentor's mentees",
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/admin/users/{id}/clients": {
            "get": {
                "tags": ["admin"],
                "summary": "List a counsellor's clients",
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["admin"],
                "summary": "Replace a counsellor's clients",
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Moodiary API",
	Description:      "Relationships, mentor and counsellor dashboards, and administration for Moodiary.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
