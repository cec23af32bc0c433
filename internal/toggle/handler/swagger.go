package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers the API documentation endpoints.
// - GET /swagger/index.html  -> Swagger UI page loading the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(r gin.IRouter) {
	r.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	r.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>featuretoggle - Swagger</title>
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

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "featuretoggle", "version": "v0.1.0" },
  "components": {
    "schemas": {
      "Toggle": { "type": "object", "properties": {
        "_id": {"type":"string"}, "name": {"type":"string"}, "description": {"type":"string"},
        "beginning_date": {"type":"string","example":"2024-01-10 00:00:00"},
        "expiration_date": {"type":"string","example":"2024-01-20 00:00:00"},
        "created_at": {"type":"string"}, "updated_at": {"type":"string"} } },
      "Error": { "type": "object", "properties": { "error": {"type":"string"} } }
    }
  },
  "paths": {
    "/feature-toggle": {
      "post": {
        "summary": "Create a new feature toggle",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["package_name","name","description","beginning_date","expiration_date"],"properties":{"package_name":{"type":"string"},"name":{"type":"string"},"description":{"type":"string"},"beginning_date":{"type":"string","description":"YYYY-MM-DD HH:MM:SS"},"expiration_date":{"type":"string","description":"YYYY-MM-DD HH:MM:SS"}}}}}},
        "responses": { "201": { "description": "created" }, "400": { "description": "invalid request" }, "500": { "description": "database unavailable" } }
      }
    },
    "/feature-toggles/{package}": {
      "get": { "summary": "List all feature toggles of a package", "responses": { "200": { "description": "toggles" }, "404": { "description": "package not found" } } },
      "delete": { "summary": "Delete all feature toggles of a package", "responses": { "200": { "description": "deleted" }, "404": { "description": "package not found" } } }
    },
    "/feature-toggles/{package}/by-date": {
      "get": { "summary": "Toggles valid on a day", "parameters": [{"name":"date","in":"query","required":true,"schema":{"type":"string","example":"2024-01-15"}}], "responses": { "200": { "description": "toggles" }, "400": { "description": "invalid date" }, "404": { "description": "package not found" } } }
    },
    "/feature-toggles/{package}/active": {
      "get": { "summary": "Toggles active now", "responses": { "200": { "description": "toggles" }, "404": { "description": "package not found" } } }
    },
    "/feature-toggles/{package}/active-in-range": {
      "get": { "summary": "Toggles overlapping a date range", "parameters": [{"name":"start_date","in":"query","required":true,"schema":{"type":"string"}},{"name":"end_date","in":"query","required":true,"schema":{"type":"string"}}], "responses": { "200": { "description": "toggles" }, "400": { "description": "invalid range" }, "404": { "description": "package not found" } } }
    },
    "/feature-toggles/{package}/recent": {
      "get": { "summary": "Toggles created in the last 30 days", "responses": { "200": { "description": "toggles" }, "404": { "description": "package not found" } } }
    },
    "/feature-toggles/{package}/statistics": {
      "get": { "summary": "Total and active toggle counts", "responses": { "200": { "description": "{total_features, active_features}" }, "404": { "description": "package not found" } } }
    },
    "/feature-toggles/{package}/export": {
      "post": { "summary": "Export a package snapshot to object storage", "responses": { "200": { "description": "exported" }, "404": { "description": "package not found" }, "501": { "description": "export not configured" } } }
    },
    "/feature-toggles/{package}/{id}": {
      "delete": { "summary": "Delete a feature toggle", "responses": { "200": { "description": "deleted" }, "404": { "description": "package or toggle not found" } } }
    },
    "/feature-toggles/{package}/{id}/update-dates": {
      "put": { "summary": "Update beginning and/or expiration date", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"beginning_date":{"type":"string"},"expiration_date":{"type":"string"}}}}}}, "responses": { "200": { "description": "updated" }, "400": { "description": "invalid dates" }, "404": { "description": "not found" } } }
    },
    "/feature-toggles/{package}/{id}/update-info": {
      "put": { "summary": "Update name and/or description", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"name":{"type":"string"},"description":{"type":"string"}}}}}}, "responses": { "200": { "description": "updated" }, "400": { "description": "no valid fields" }, "404": { "description": "not found" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
