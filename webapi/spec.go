package webapi

// openAPIDocument returns the Swagger/OpenAPI description served at
// GET /spec (§2, §6). It is a plain map rather than a generated
// document — the teacher's codec package serializes any JSON-shaped
// value, and nothing in the pack (or the original `webapi/docs.py`,
// which builds this the same ad-hoc way) calls for a schema-generation
// library here.
func openAPIDocument() map[string]any {
	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "ECS Scheduler API",
			"version": "1.0.0",
		},
		"paths": map[string]any{
			"/jobs": map[string]any{
				"get": map[string]any{
					"summary": "List jobs",
					"parameters": []map[string]any{
						{"name": "skip", "in": "query", "schema": map[string]string{"type": "integer"}},
						{"name": "count", "in": "query", "schema": map[string]string{"type": "integer"}},
					},
					"responses": map[string]any{"200": map[string]any{"description": "a page of jobs"}},
				},
				"post": map[string]any{
					"summary":   "Create a job",
					"responses": map[string]any{"201": map[string]any{"description": "created"}, "400": map[string]any{"description": "invalid job data"}, "409": map[string]any{"description": "job already exists"}},
				},
			},
			"/jobs/{id}": map[string]any{
				"get": map[string]any{
					"summary":   "Fetch a job",
					"responses": map[string]any{"200": map[string]any{"description": "the job"}, "404": map[string]any{"description": "no such job"}},
				},
				"put": map[string]any{
					"summary":   "Update a job",
					"responses": map[string]any{"200": map[string]any{"description": "updated"}, "400": map[string]any{"description": "invalid job data"}, "404": map[string]any{"description": "no such job"}},
				},
				"delete": map[string]any{
					"summary":   "Delete a job",
					"responses": map[string]any{"200": map[string]any{"description": "deleted"}, "404": map[string]any{"description": "no such job"}},
				},
			},
		},
	}
}
