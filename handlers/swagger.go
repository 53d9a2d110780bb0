package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>picload — Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// Minimal OpenAPI document for the public surface.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "picload", "version": "v0.1.0" },
  "paths": {
    "/auth/register": {
      "post": {
        "summary": "Create an account and log in",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"firstName":{"type":"string"},"lastName":{"type":"string"},"password":{"type":"string"}}}}}},
        "responses": { "201": { "description": "tokens returned" }, "409": { "description": "email already registered" } }
      }
    },
    "/auth/login": {
      "post": {
        "summary": "Credential login",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"}}}}}},
        "responses": { "200": { "description": "tokens returned" }, "401": { "description": "invalid credentials" } }
      }
    },
    "/auth/refresh": {
      "post": { "summary": "Refresh access token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "new access token" }, "401": { "description": "invalid refresh" } } }
    },
    "/auth/logout": {
      "post": { "summary": "Logout and invalidate refresh token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "logged out" } } }
    },
    "/api/v1/me": {
      "get": { "summary": "Get the caller's own record", "responses": { "200": { "description": "user with images" } } }
    },
    "/api/v1/users/{id}": {
      "get": { "summary": "View a user profile with image renditions", "responses": { "200": { "description": "user with images" }, "400": { "description": "malformed id" }, "401": { "description": "unauthenticated" }, "403": { "description": "not the owner" }, "404": { "description": "no such user" } } }
    },
    "/api/v1/users/{id}/images": {
      "post": { "summary": "Upload one or more images (multipart field 'image')", "responses": { "200": { "description": "updated image list" }, "409": { "description": "duplicate filename" }, "502": { "description": "remote store failure" } } },
      "delete": { "summary": "Delete images by filename", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"filenames":{"type":"array","items":{"type":"string"}}}}}}}, "responses": { "200": { "description": "updated image list" }, "502": { "description": "remote delete partially failed" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
