package main

import (
	"html/template"
	"net/http"
)

var docsPage = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html>
<head>
  <title>{{.}} - Docs</title>
  <meta charset="utf-8">
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({ url: "/openapi.json", dom_id: "#swagger-ui" });
  </script>
</body>
</html>
`))

func (s *server) handleDocs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = docsPage.Execute(w, s.cfg.appName)
}

func (s *server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.openAPIDoc())
}

// openAPIDoc descreve as rotas locais e os grupos proxied para o upstream.
func (s *server) openAPIDoc() map[string]any {
	jsonResp := func(desc string) map[string]any {
		return map[string]any{"description": desc, "content": map[string]any{"application/json": map[string]any{}}}
	}
	limited := map[string]any{
		"description": "Rate limit exceeded",
		"headers": map[string]any{
			"X-RateLimit-Limit":     map[string]any{"schema": map[string]string{"type": "integer"}},
			"X-RateLimit-Remaining": map[string]any{"schema": map[string]string{"type": "integer"}},
			"X-RateLimit-Reset":     map[string]any{"schema": map[string]string{"type": "integer"}},
		},
	}
	proxied := func(tag, summary string) map[string]any {
		return map[string]any{
			"tags":    []string{tag},
			"summary": summary,
			"responses": map[string]any{
				"200": jsonResp("Upstream response"),
				"429": limited,
				"502": jsonResp("Upstream unavailable"),
			},
		}
	}

	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]string{
			"title":   s.cfg.appName,
			"version": s.cfg.appVersion,
		},
		"paths": map[string]any{
			"/":       map[string]any{"get": map[string]any{"summary": "Root", "responses": map[string]any{"200": jsonResp("Welcome")}}},
			"/health": map[string]any{"get": map[string]any{"summary": "Health check", "responses": map[string]any{"200": jsonResp("Healthy")}}},
			"/internal/ratelimit/stats": map[string]any{"get": map[string]any{
				"summary":   "Rate limiter state and decision counters",
				"responses": map[string]any{"200": jsonResp("Stats"), "429": limited},
			}},
			"/api/transactions": map[string]any{
				"get":  proxied("Transactions", "List transactions"),
				"post": proxied("Transactions", "Create transaction"),
			},
			"/api/transactions/{id}": map[string]any{
				"get":    proxied("Transactions", "Get transaction"),
				"put":    proxied("Transactions", "Update transaction"),
				"delete": proxied("Transactions", "Delete transaction"),
			},
			"/api/transactions/summary":              map[string]any{"get": proxied("Transactions", "Income/expense summary")},
			"/api/transactions/bulk":                 map[string]any{"post": proxied("Transactions", "Create transactions in bulk")},
			"/api/transactions/export/csv":           map[string]any{"get": proxied("Transactions", "Export transactions as CSV")},
			"/api/transactions/analytics/categories": map[string]any{"get": proxied("Transactions", "Spending per category")},
			"/api/transactions/recurring":            map[string]any{"get": proxied("Transactions", "Recurring transactions")},
			"/api/ai/chat": map[string]any{
				"post": proxied("AI Coach", "Chat with the finance coach"),
			},
			"/api/ai/conversations": map[string]any{"get": proxied("AI Coach", "List conversations")},
			"/api/ai/conversations/{conversation_id}": map[string]any{
				"get":    proxied("AI Coach", "Get conversation"),
				"delete": proxied("AI Coach", "Delete conversation"),
			},
			"/api/ai/analyze-spending":        map[string]any{"post": proxied("AI Coach", "Analyze spending")},
			"/api/ai/budget-recommendations": map[string]any{"post": proxied("AI Coach", "Budget recommendations")},
		},
	}
}
