// Package docs registers the OpenAPI document of the intakeline-core API with swag.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "Intakeline Engineering"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/integrations": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "List the tenant's connected integrations. Token material is never returned.",
                "produces": ["application/json"],
                "tags": ["Integrations"],
                "summary": "List integrations",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.IntegrationSummary"}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/integrations/{provider}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "description": "Deletes the integration and its encrypted tokens (admin only)",
                "tags": ["Integrations"],
                "summary": "Disconnect integration",
                "parameters": [
                    {"enum": ["google_calendar"], "type": "string", "description": "Provider type", "name": "provider", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Admin access required", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Integration not found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/integrations/{provider}/callback": {
            "get": {
                "description": "Provider redirect target. Verifies state against the session tenant, stores encrypted tokens and redirects to the dashboard.",
                "tags": ["Integrations"],
                "summary": "OAuth callback",
                "parameters": [
                    {"enum": ["google_calendar"], "type": "string", "description": "Provider type", "name": "provider", "in": "path", "required": true},
                    {"type": "string", "description": "Authorization code", "name": "code", "in": "query"},
                    {"type": "string", "description": "Signed state token", "name": "state", "in": "query"},
                    {"type": "string", "description": "Provider error", "name": "error", "in": "query"}
                ],
                "responses": {
                    "302": {"description": "Found"}
                }
            }
        },
        "/integrations/{provider}/connect": {
            "get": {
                "description": "Redirects the browser to the provider consent screen. Failures redirect to the dashboard with an error code.",
                "tags": ["Integrations"],
                "summary": "Start integration connect flow (browser)",
                "parameters": [
                    {"enum": ["google_calendar"], "type": "string", "description": "Provider type", "name": "provider", "in": "path", "required": true}
                ],
                "responses": {
                    "302": {"description": "Found"}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Returns the provider consent URL for the session tenant",
                "produces": ["application/json"],
                "tags": ["Integrations"],
                "summary": "Start integration connect flow",
                "parameters": [
                    {"enum": ["google_calendar"], "type": "string", "description": "Provider type", "name": "provider", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/driving.ConnectResponse"}},
                    "400": {"description": "Unsupported provider", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "403": {"description": "Insufficient permissions", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "429": {"description": "Too many connect attempts", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "503": {"description": "Provider not configured", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/integrations/{provider}/refresh": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Exchanges the stored refresh token for a new access token",
                "produces": ["application/json"],
                "tags": ["Integrations"],
                "summary": "Refresh integration tokens",
                "parameters": [
                    {"enum": ["google_calendar"], "type": "string", "description": "Provider type", "name": "provider", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.IntegrationSummary"}},
                    "404": {"description": "Integration not found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "409": {"description": "Refresh in progress or integration must be reconnected", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "502": {"description": "Provider rejected the refresh", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.IntegrationSummary": {
            "type": "object",
            "properties": {
                "provider": {"type": "string", "example": "google_calendar"},
                "provider_name": {"type": "string", "example": "Google Calendar"},
                "account_email": {"type": "string", "example": "calendar@firm.example.com"},
                "token_expires_at": {"type": "string"},
                "sync_errors": {"type": "integer"},
                "can_refresh": {"type": "boolean"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "driving.ConnectResponse": {
            "description": "Response containing the OAuth authorization URL",
            "type": "object",
            "properties": {
                "authorization_url": {"type": "string", "example": "https://accounts.google.com/o/oauth2/auth?client_id=..."},
                "expires_at": {"type": "string", "example": "2025-01-15T10:05:00Z"}
            }
        },
        "http.ErrorResponse": {
            "description": "API error response",
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "integration not found"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "JWT Bearer token. Format: \"Bearer {token}\"",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Intakeline Core API",
	Description:      "Calendar integration credentials for Intakeline tenants.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
