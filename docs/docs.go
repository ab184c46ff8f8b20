// Package docs registers the OpenAPI document served by gin-swagger in dev mode.
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
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/login": {"post": {"tags": ["auth"], "summary": "Exchange credentials for a bearer token", "security": []}},
        "/users": {"post": {"tags": ["auth"], "summary": "Register an account (admin)"}},
        "/users/{user_id}/disable": {"post": {"tags": ["auth"], "summary": "Disable an account (admin)"}},
        "/loans": {"post": {"tags": ["loans"], "summary": "Create a loan and reserve its materials atomically"}},
        "/loans/{loan_id}": {"get": {"tags": ["loans"], "summary": "Loan detail with lines and participants"}},
        "/loans/{loan_id}/return": {"post": {"tags": ["loans"], "summary": "Return a loan and release its stock"}},
        "/admin/loans/hide": {"post": {"tags": ["loans"], "summary": "Hide loans created in a date range (admin)"}},
        "/materials": {"get": {"tags": ["inventory"], "summary": "List materials with available quantity"}},
        "/materials/{material_id}": {"get": {"tags": ["inventory"], "summary": "Material detail"}},
        "/materials/{material_id}/adjustments": {
            "get": {"tags": ["inventory"], "summary": "Stock adjustment history (admin)"},
            "post": {"tags": ["inventory"], "summary": "Correct stock by a signed delta (admin)"}
        },
        "/catalog/{kind}": {"get": {"tags": ["catalog"], "summary": "List careers, subjects, teachers, practices or materials"}},
        "/catalog/{kind}/active": {"get": {"tags": ["catalog"], "summary": "List active entities of a kind"}},
        "/practices/{practice_id}/requirements": {"get": {"tags": ["catalog"], "summary": "Materials a practice requires"}},
        "/catalog/mutations": {"post": {"tags": ["catalog"], "summary": "Apply a batch of catalog mutations (admin)"}},
        "/reports/loans": {"get": {"tags": ["reports"], "summary": "Filtered, paginated loan list"}},
        "/reports/loans.csv": {"get": {"tags": ["reports"], "summary": "CSV export of the filtered loan list"}},
        "/reports/subjects/participants": {"get": {"tags": ["reports"], "summary": "Participants per subject"}},
        "/reports/subjects/count": {"get": {"tags": ["reports"], "summary": "Distinct subjects with loans"}},
        "/reports/materials/usage": {"get": {"tags": ["reports"], "summary": "Material usage ranking"}},
        "/reports/observations": {"get": {"tags": ["reports"], "summary": "Loan observations, urgent first"}},
        "/reports/dashboard": {"get": {"tags": ["reports"], "summary": "Ledger totals for today"}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "2.0",
	Host:             "",
	BasePath:         "/api/v2",
	Schemes:          []string{"https"},
	Title:            "LABO backend API",
	Description:      "Laboratory equipment lending ledger.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
