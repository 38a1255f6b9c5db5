// Package docs registers the OpenAPI description of the todo API with swag so
// gin-swagger can serve it under /swagger/.
//
//	@title			Todo API
//	@version		1.0.0
//	@description	Todo list backed by a key-value store. Every failure is a 500 with a fixed plain-text message.
//	@BasePath		/
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/todo/": {
            "get": {
                "tags": ["Todos"],
                "summary": "List todos",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "All todo keys", "schema": {"$ref": "#/definitions/ListResponse"}},
                    "500": {"description": "Error getting todos", "schema": {"type": "string"}}
                }
            },
            "post": {
                "tags": ["Todos"],
                "summary": "Create a todo",
                "consumes": ["application/json"],
                "produces": ["text/plain"],
                "parameters": [
                    {"in": "body", "name": "todo", "required": true, "schema": {"$ref": "#/definitions/TodoRequest"}}
                ],
                "responses": {
                    "200": {"description": "ok", "schema": {"type": "string"}},
                    "500": {"description": "Error getting todos, Error getting body, Error getting text, Error getting text: Nil or Error creating todo", "schema": {"type": "string"}}
                }
            },
            "delete": {
                "tags": ["Todos"],
                "summary": "Delete a todo",
                "consumes": ["application/json"],
                "produces": ["text/plain"],
                "parameters": [
                    {"in": "body", "name": "todo", "required": true, "schema": {"$ref": "#/definitions/TodoRequest"}}
                ],
                "responses": {
                    "200": {"description": "ok", "schema": {"type": "string"}},
                    "500": {"description": "Error getting todos, Error getting body, Error getting text, Error getting text: Nil or Error deleting todo", "schema": {"type": "string"}}
                }
            }
        },
        "/health": {
            "get": {
                "tags": ["System"],
                "summary": "Store reachability",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Store reachable", "schema": {"$ref": "#/definitions/HealthResponse"}},
                    "503": {"description": "Store unreachable", "schema": {"$ref": "#/definitions/HealthResponse"}}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["System"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {
                    "200": {"description": "Prometheus exposition format"}
                }
            }
        }
    },
    "definitions": {
        "TodoRequest": {
            "type": "object",
            "required": ["text"],
            "properties": {"text": {"type": "string", "example": "buy milk"}}
        },
        "ListResponse": {
            "type": "object",
            "properties": {"keys": {"type": "array", "items": {"type": "string"}}}
        },
        "HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "ok"},
                "error": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Todo API",
	Description:      "Todo list backed by a key-value store. Every failure is a 500 with a fixed plain-text message.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
