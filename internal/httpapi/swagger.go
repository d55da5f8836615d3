//go:build swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
	"github.com/swaggo/swag"
	httpSwagger "github.com/swaggo/http-swagger"
)

// apiDoc is the OpenAPI 2.0 document matching the handler annotations.
const apiDoc = `{
  "swagger": "2.0",
  "info": {
    "title": "koboldswitch API",
    "description": "Start, stop and inspect a locally running koboldcpp model.",
    "version": "1.0"
  },
  "basePath": "/",
  "schemes": ["http"],
  "paths": {
    "/probe": {"get": {"tags": ["system"], "summary": "Controller liveness", "responses": {"204": {"description": "No Content"}}}},
    "/model": {
      "get": {
        "tags": ["model"], "summary": "Current model status", "produces": ["application/json"],
        "responses": {
          "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelStatusResponse"}},
          "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
        }
      },
      "put": {
        "tags": ["model"], "summary": "Start or reload a model", "consumes": ["application/json"], "produces": ["application/json"],
        "parameters": [
          {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/types.ModelRequest"}},
          {"in": "query", "name": "wait", "type": "string", "description": "Block until online or failed, e.g. 60s"}
        ],
        "responses": {
          "201": {"description": "Created"},
          "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ValidationErrorResponse"}},
          "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
          "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
          "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
          "504": {"description": "Gateway Timeout", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
        }
      },
      "post": {
        "tags": ["model"], "summary": "Start or reload a model (alias of PUT)", "consumes": ["application/json"], "produces": ["application/json"],
        "parameters": [
          {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/types.ModelRequest"}},
          {"in": "query", "name": "wait", "type": "string", "description": "Block until online or failed, e.g. 60s"}
        ],
        "responses": {
          "201": {"description": "Created"},
          "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ValidationErrorResponse"}},
          "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
          "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
          "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
          "504": {"description": "Gateway Timeout", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
        }
      },
      "delete": {
        "tags": ["model"], "summary": "Stop the model",
        "parameters": [{"in": "query", "name": "wait", "type": "string", "description": "Block until offline, e.g. 30s"}],
        "responses": {
          "204": {"description": "No Content"},
          "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
          "504": {"description": "Gateway Timeout", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
        }
      }
    },
    "/models": {
      "get": {
        "tags": ["model"], "summary": "List model files", "produces": ["application/json"],
        "responses": {
          "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelsResponse"}},
          "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
          "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
        }
      }
    },
    "/healthz": {"get": {"tags": ["system"], "summary": "Process health", "produces": ["text/plain"], "responses": {"200": {"description": "OK"}}}},
    "/metrics": {"get": {"tags": ["system"], "summary": "Prometheus metrics", "produces": ["text/plain"], "responses": {"200": {"description": "OK"}}}}
  },
  "definitions": {
    "types.Model": {"type": "object", "properties": {
      "id": {"type": "string", "example": "Llama-3.2-1B-Instruct-Q4_K_M.gguf"},
      "name": {"type": "string", "example": "Llama-3.2-1B-Instruct-Q4_K_M"},
      "path": {"type": "string"},
      "size_bytes": {"type": "integer"}
    }},
    "types.ModelsResponse": {"type": "object", "properties": {"models": {"type": "array", "items": {"$ref": "#/definitions/types.Model"}}}},
    "types.ModelRequest": {"type": "object", "required": ["model"], "properties": {
      "model": {"type": "string", "example": "Llama-3.2-1B-Instruct-Q4_K_M.gguf"},
      "contextSize": {"type": "integer", "example": 12288},
      "gpuLayers": {"type": "integer", "example": 81},
      "threads": {"type": "integer", "example": 8},
      "tensorSplit": {"type": "array", "items": {"type": "number"}}
    }},
    "types.ModelStatusResponse": {"type": "object", "properties": {
      "status": {"type": "string", "enum": ["offline", "loading", "online", "stopping", "failed"]},
      "model": {"type": "string"},
      "error": {"type": "string"},
      "independent": {"type": "boolean"}
    }},
    "types.ErrorResponse": {"type": "object", "properties": {"error": {"type": "string"}, "code": {"type": "integer"}}},
    "types.ValidationErrorResponse": {"type": "object", "properties": {"errors": {"type": "array", "items": {"type": "string"}}, "code": {"type": "integer"}}}
  }
}`

type apiSpec struct{}

func (apiSpec) ReadDoc() string { return apiDoc }

func init() {
	swag.Register(swag.Name, apiSpec{})
}

// MountSwagger serves the Swagger UI at /swagger/ and the document at /swagger/doc.json.
func MountSwagger(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}
