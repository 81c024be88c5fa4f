//go:build swagger

package main

import "github.com/swaggo/swag"

// swaggerTemplate is a trimmed OpenAPI document for the session routes.
// `make swagger-gen` regenerates a full one from the annotations.
const swaggerTemplate = `{
  "swagger": "2.0",
  "info": {"title": "{{.Title}}", "description": "{{escape .Description}}", "version": "{{.Version}}"},
  "basePath": "{{.BasePath}}",
  "schemes": {{ marshal .Schemes }},
  "paths": {
    "/sessions": {
      "get": {"summary": "List sessions", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}},
      "post": {"summary": "Create a session", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"201": {"description": "Created"}, "429": {"description": "Too many sessions"}}}
    },
    "/sessions/{handle}": {
      "get": {"summary": "Session status", "responses": {"200": {"description": "OK"}, "404": {"description": "Unknown handle"}}},
      "delete": {"summary": "Close a session", "responses": {"204": {"description": "Closed"}, "404": {"description": "Unknown handle"}}}
    },
    "/sessions/{handle}/model": {
      "post": {"summary": "Load a model", "responses": {"200": {"description": "Loaded"}, "400": {"description": "Load failed"}, "404": {"description": "Unknown model"}}},
      "delete": {"summary": "Unload the model", "responses": {"204": {"description": "Unloaded"}}}
    },
    "/sessions/{handle}/generate": {
      "post": {"summary": "Generate", "produces": ["application/json", "application/x-ndjson"], "responses": {"200": {"description": "OK"}, "409": {"description": "No model loaded"}, "422": {"description": "Prompt cannot fit"}}}
    },
    "/sessions/{handle}/cancel": {
      "post": {"summary": "Cancel the running generation", "responses": {"202": {"description": "Accepted"}}}
    },
    "/models": {"get": {"summary": "List models", "responses": {"200": {"description": "OK"}}}},
    "/status": {"get": {"summary": "Manager status", "responses": {"200": {"description": "OK"}}}},
    "/version": {"get": {"summary": "Version", "responses": {"200": {"description": "OK"}}}}
  }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "sessiond API",
	Description:      "HTTP API for on-device LLM generation sessions.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  swaggerTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
