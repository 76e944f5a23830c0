// Package docs registers the OpenAPI document served under /swagger/ when
// built with -tags=swagger. Regenerate with `swag init -g cmd/chatd/docs.go`.
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
        "/models": {"get": {"summary": "List configured models", "produces": ["application/json"],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelsResponse"}}}}},
        "/models/select": {"post": {"summary": "Switch the active model, loading it if needed",
            "consumes": ["application/json"], "produces": ["application/json"],
            "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.SelectRequest"}}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.SelectResponse"}},
                "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}}}},
        "/models/unload": {"post": {"summary": "Unload a model that is neither active nor in use",
            "consumes": ["application/json"], "produces": ["application/json"],
            "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.SelectRequest"}}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.SelectResponse"}},
                "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}}}},
        "/chat": {"post": {"summary": "Run one chat exchange",
            "consumes": ["application/json"], "produces": ["application/json"],
            "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.ChatRequest"}}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ChatResponse"}},
                "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}}}},
        "/chat/stream": {"post": {"summary": "Run one chat exchange, streaming NDJSON fragments",
            "consumes": ["application/json"], "produces": ["application/x-ndjson"],
            "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.ChatRequest"}}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StreamChunk"}}}}},
        "/sessions/{id}": {"delete": {"summary": "Forget a conversation",
            "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
            "responses": {"204": {"description": "No Content"},
                "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}}}},
        "/status": {"get": {"summary": "Loaded models, in-flight counts and counters", "produces": ["application/json"],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}}}
    },
    "definitions": {
        "types.ModelsResponse": {"type": "object", "properties": {
            "current": {"type": "string"}, "available": {"type": "array", "items": {"type": "string"}}}},
        "types.SelectRequest": {"type": "object", "properties": {"name": {"type": "string"}}},
        "types.SelectResponse": {"type": "object", "properties": {"name": {"type": "string"}, "status": {"type": "string"}}},
        "types.ErrorResponse": {"type": "object", "properties": {"error": {"type": "string"}, "code": {"type": "integer"}}},
        "types.Turn": {"type": "object", "properties": {"role": {"type": "string"}, "content": {"type": "string"}}},
        "types.ChatRequest": {"type": "object", "properties": {
            "model": {"type": "string"}, "text": {"type": "string"}, "session_id": {"type": "string"},
            "system": {"type": "string"}, "history": {"type": "array", "items": {"$ref": "#/definitions/types.Turn"}}}},
        "types.ChatResponse": {"type": "object", "properties": {
            "model": {"type": "string"}, "text": {"type": "string"}, "session_id": {"type": "string"},
            "finish_reason": {"type": "string"}}},
        "types.StreamChunk": {"type": "object", "properties": {
            "token": {"type": "string"}, "done": {"type": "boolean"}, "session_id": {"type": "string"}, "error": {"type": "string"}}},
        "types.StatusResponse": {"type": "object", "properties": {
            "active": {"type": "string"}, "loads_total": {"type": "integer"}, "sessions": {"type": "integer"},
            "configured": {"type": "array", "items": {"type": "string"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "chatd API",
	Description:      "HTTP API for local LLM model lifecycle and chat.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
