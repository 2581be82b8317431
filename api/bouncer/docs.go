// Package bouncer holds the OpenAPI document served at /swagger/.
// Regenerate with: swag init -g internal/bouncer/http/router.go -o api/bouncer --outputTypes go --packageName bouncer
package bouncer

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "AussieBroadWAN Team",
            "url": "https://github.com/aussiebroadwan/bouncer"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/.well-known/oauth-protected-resource": {
            "get": {
                "description": "RFC 9728 metadata naming the authorization server for this API",
                "produces": ["application/json"],
                "tags": ["Discovery"],
                "summary": "OAuth 2.0 protected resource metadata",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ProtectedResourceMetadata"}}
                }
            }
        },
        "/api/admin/decisions": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns audited guard decisions, newest first. Requires ROLE_ADMIN under the shipped policy.",
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "List access decisions",
                "parameters": [
                    {"type": "string", "description": "Only decisions for this subject", "name": "subject", "in": "query"},
                    {"type": "boolean", "description": "Only allowed (true) or denied (false) decisions", "name": "allowed", "in": "query"},
                    {"type": "string", "description": "RFC 3339 lower bound on decision time", "name": "since", "in": "query"},
                    {"type": "integer", "description": "Maximum results (default and cap 500)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ListDecisionsResponse"}},
                    "400": {"description": "Invalid query parameter", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/admin/decisions/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Get an access decision",
                "parameters": [
                    {"type": "string", "description": "Decision ID (ULID)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/DecisionResponse"}},
                    "400": {"description": "Malformed ID", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/public/info": {
            "get": {
                "description": "Reachable without a token. A presented token is still verified.",
                "produces": ["application/json"],
                "tags": ["Public"],
                "summary": "Public endpoint",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/MessageResponse"}},
                    "401": {"description": "A presented token was invalid", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/secure/admin-only": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Succeeds only for callers holding ROLE_ADMIN under the shipped policy.",
                "produces": ["application/json"],
                "tags": ["Secure"],
                "summary": "Admin check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/MessageResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/secure/user-info": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns the identity and authorities derived from the caller's access token.",
                "produces": ["application/json"],
                "tags": ["Secure"],
                "summary": "Current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/UserInfoResponse"}},
                    "401": {"description": "Missing or invalid access token", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "403": {"description": "Caller lacks a required authority", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "503": {"description": "Identity provider unreachable", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/livez": {
            "get": {
                "description": "Always returns 200 while the process is serving",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Liveness check",
                "responses": {
                    "200": {"description": "status, uptime, version", "schema": {"$ref": "#/definitions/HealthResponse"}}
                }
            }
        },
        "/readyz": {
            "get": {
                "description": "Reports whether the audit database answers and signing keys are cached.\nWithout keys every token would fail with 503, so the instance is not ready.",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "status, uptime, version, checks", "schema": {"$ref": "#/definitions/HealthResponse"}},
                    "503": {"description": "service not ready", "schema": {"$ref": "#/definitions/HealthResponse"}}
                }
            }
        }
    },
    "definitions": {
        "DecisionResponse": {
            "type": "object",
            "properties": {
                "allowed": {"type": "boolean"},
                "createdAt": {"type": "string"},
                "id": {"type": "string"},
                "method": {"type": "string"},
                "principal": {"type": "string"},
                "reason": {"type": "string"},
                "requestId": {"type": "string"},
                "resource": {"type": "string"},
                "rule": {"type": "string"},
                "status": {"type": "integer"},
                "subject": {"type": "string"}
            }
        },
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "errorCode": {"type": "string"},
                "message": {"type": "string"},
                "path": {"type": "string"},
                "statusCode": {"type": "integer"},
                "success": {"type": "boolean"},
                "timestamp": {"type": "string"}
            }
        },
        "HealthChecks": {
            "type": "object",
            "properties": {
                "database": {"type": "string"},
                "jwks": {"type": "string"}
            }
        },
        "HealthResponse": {
            "type": "object",
            "properties": {
                "checks": {"$ref": "#/definitions/HealthChecks"},
                "status": {"type": "string"},
                "uptime": {"type": "string"},
                "version": {"type": "string"}
            }
        },
        "ListDecisionsResponse": {
            "type": "object",
            "properties": {
                "decisions": {"type": "array", "items": {"$ref": "#/definitions/DecisionResponse"}}
            }
        },
        "MessageResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "success": {"type": "boolean"}
            }
        },
        "ProtectedResourceMetadata": {
            "type": "object",
            "properties": {
                "authorization_servers": {"type": "array", "items": {"type": "string"}},
                "bearer_methods_supported": {"type": "array", "items": {"type": "string"}},
                "resource": {"type": "string"},
                "resource_name": {"type": "string"},
                "resource_signing_alg_values_supported": {"type": "array", "items": {"type": "string"}}
            }
        },
        "UserInfoResponse": {
            "type": "object",
            "properties": {
                "authorities": {"type": "array", "items": {"type": "string"}},
                "email": {"type": "string"},
                "expiresAt": {"type": "string"},
                "familyName": {"type": "string"},
                "givenName": {"type": "string"},
                "groups": {"type": "array", "items": {"type": "string"}},
                "name": {"type": "string"},
                "sub": {"type": "string"},
                "username": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Keycloak access token. Format: \"Bearer {token}\". The ACCESS_TOKEN cookie is also accepted.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Bouncer Resource Server API",
	Description:      "Demo API protected by Keycloak-issued access tokens.\n\nTokens are verified against the realm's JWKS and mapped to authorities by the access policy.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
