package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// OpenAPISpec returns the OpenAPI 3.0 specification for the walkmarket
// availability service.
func OpenAPISpec() map[string]interface{} {
	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":       "walkmarket availability service",
			"description": "Availability, recurring-series planning, and route optimisation for mobile service providers",
			"version":     "1.0.0",
		},
		"servers": []map[string]interface{}{
			{"url": "http://localhost:8080", "description": "Local development"},
		},
		"paths": openAPIPaths(),
		"components": map[string]interface{}{
			"securitySchemes": map[string]interface{}{
				"BearerAuth": map[string]interface{}{
					"type":        "http",
					"scheme":      "bearer",
					"description": "Org API key of the form <org-uuid>.<secret>",
				},
			},
		},
		"security": []map[string]interface{}{
			{"BearerAuth": []string{}},
		},
		"tags": []map[string]interface{}{
			{"name": "Availability", "description": "Bookable slot computation"},
			{"name": "Series", "description": "Recurring booking series"},
			{"name": "Route", "description": "Daily route optimisation"},
			{"name": "Health", "description": "Service health checks"},
		},
	}
}

func openAPIPaths() map[string]interface{} {
	return map[string]interface{}{
		"/v1/availability": map[string]interface{}{
			"get": map[string]interface{}{
				"tags":        []string{"Availability"},
				"summary":     "Compute bookable slots for a walker on a given date",
				"operationId": "getAvailability",
				"parameters": []map[string]interface{}{
					{"name": "walker_id", "in": "query", "required": true, "schema": map[string]interface{}{"type": "string"}},
					{"name": "date", "in": "query", "required": true, "schema": map[string]interface{}{"type": "string", "format": "date"}},
					{"name": "service_minutes", "in": "query", "required": true, "schema": map[string]interface{}{"type": "integer"}},
				},
				"responses": map[string]interface{}{
					"200": map[string]interface{}{"description": "Available slots for the date"},
					"400": map[string]interface{}{"description": "Invalid request"},
				},
			},
		},
		"/v1/recurring-series": map[string]interface{}{
			"post": map[string]interface{}{
				"tags":        []string{"Series"},
				"summary":     "Create (or preview) a recurring booking series",
				"operationId": "createRecurringSeries",
				"requestBody": map[string]interface{}{
					"required": true,
					"content":  map[string]interface{}{"application/json": map[string]interface{}{"schema": map[string]interface{}{"$ref": "#/components/schemas/CreateSeriesRequest"}}},
				},
				"responses": map[string]interface{}{
					"201": map[string]interface{}{"description": "Series materialized or previewed"},
					"400": map[string]interface{}{"description": "Invalid request"},
				},
			},
		},
		"/v1/recurring-series/{id}/cancel": map[string]interface{}{
			"post": map[string]interface{}{
				"tags":        []string{"Series"},
				"summary":     "Cancel a recurring series, entirely or only its future bookings",
				"operationId": "cancelRecurringSeries",
				"parameters": []map[string]interface{}{
					{"name": "id", "in": "path", "required": true, "schema": map[string]interface{}{"type": "string"}},
				},
				"responses": map[string]interface{}{
					"200": map[string]interface{}{"description": "Number of bookings cancelled"},
					"403": map[string]interface{}{"description": "Caller does not own this series"},
				},
			},
		},
		"/v1/route": map[string]interface{}{
			"post": map[string]interface{}{
				"tags":        []string{"Route"},
				"summary":     "Optimise the visiting order of a walker's daily stops",
				"operationId": "optimizeRoute",
				"responses": map[string]interface{}{
					"200": map[string]interface{}{"description": "Planned route with arrival/departure times"},
				},
			},
		},
		"/healthz": map[string]interface{}{
			"get": map[string]interface{}{
				"tags": []string{"Health"}, "summary": "Liveness probe", "operationId": "healthz",
				"security": []map[string]interface{}{},
				"responses": map[string]interface{}{"200": map[string]interface{}{"description": "Service is alive"}},
			},
		},
		"/ready": map[string]interface{}{
			"get": map[string]interface{}{
				"tags": []string{"Health"}, "summary": "Readiness probe", "operationId": "ready",
				"security": []map[string]interface{}{},
				"responses": map[string]interface{}{"200": map[string]interface{}{"description": "Service is ready"}},
			},
		},
		"/metrics": map[string]interface{}{
			"get": map[string]interface{}{
				"tags": []string{"Health"}, "summary": "Prometheus metrics", "operationId": "metrics",
				"security": []map[string]interface{}{},
				"responses": map[string]interface{}{"200": map[string]interface{}{"description": "Prometheus text exposition format"}},
			},
		},
	}
}

// OpenAPIHandler serves the OpenAPI spec at /openapi.json.
func OpenAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec := OpenAPISpec()
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		json.NewEncoder(w).Encode(spec)
	}
}

// SwaggerUIHandler serves a minimal Swagger UI page.
func SwaggerUIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>walkmarket availability service</title>
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
    SwaggerUI({
        url: '/openapi.json',
        dom_id: '#swagger-ui',
        deepLinking: true,
        presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
        layout: "BaseLayout"
    });
    </script>
</body>
</html>`
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, html)
	}
}
