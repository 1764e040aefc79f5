// Package docs registers the OpenAPI 2.0 description of the API served at
// /swagger. Keep it in step with the handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/expenses": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "List the user's transactions, newest first. Supplying page or page_size returns a paginated envelope instead of an array.",
                "produces": ["application/json"],
                "tags": ["expenses"],
                "summary": "List transactions",
                "parameters": [
                    {"type": "string", "description": "Expense or Income", "name": "type", "in": "query"},
                    {"type": "string", "description": "Exact category", "name": "category", "in": "query"},
                    {"type": "string", "description": "Earliest date (inclusive)", "name": "from_date", "in": "query"},
                    {"type": "string", "description": "Latest date (inclusive)", "name": "to_date", "in": "query"},
                    {"type": "integer", "description": "Page number", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Items per page (server maximum, 100 by default)", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Transactions", "schema": {"type": "array", "items": {"$ref": "#/definitions/handlers.TransactionResponse"}}},
                    "400": {"description": "Invalid filter", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "403": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Server error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Record an income or expense for the authenticated user",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["expenses"],
                "summary": "Create transaction",
                "parameters": [
                    {"description": "Transaction data", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateTransactionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Transaction created", "schema": {"$ref": "#/definitions/handlers.TransactionResponse"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "403": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Server error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/expenses/export-to-mail": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Email a base64 encoded report (pdf by default, or xlsx) to the address in the caller's token",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["expenses"],
                "summary": "Email a report",
                "parameters": [
                    {"description": "Report payload", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.ExportReportRequest"}}
                ],
                "responses": {
                    "200": {"description": "Report sent", "schema": {"$ref": "#/definitions/handlers.MessageResponse"}},
                    "400": {"description": "Invalid report or missing email", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "403": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Delivery failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/expenses/summary": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Total income, expense, balance and per-category totals, using the list filters",
                "produces": ["application/json"],
                "tags": ["expenses"],
                "summary": "Transaction summary",
                "parameters": [
                    {"type": "string", "description": "Expense or Income", "name": "type", "in": "query"},
                    {"type": "string", "description": "Exact category", "name": "category", "in": "query"},
                    {"type": "string", "description": "Earliest date (inclusive)", "name": "from_date", "in": "query"},
                    {"type": "string", "description": "Latest date (inclusive)", "name": "to_date", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Summary", "schema": {"$ref": "#/definitions/services.Summary"}},
                    "400": {"description": "Invalid filter", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "403": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Server error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/expenses/{id}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "description": "Update fields of a transaction the user owns. createdAt is required.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["expenses"],
                "summary": "Update transaction",
                "parameters": [
                    {"type": "string", "description": "Transaction ID", "name": "id", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.UpdateTransactionRequest"}}
                ],
                "responses": {
                    "200": {"description": "Updated transaction", "schema": {"$ref": "#/definitions/handlers.TransactionResponse"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "403": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Transaction not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Server error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "description": "Delete a transaction the user owns. Deleting an unknown id also succeeds.",
                "tags": ["expenses"],
                "summary": "Delete transaction",
                "parameters": [
                    {"type": "string", "description": "Transaction ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "403": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Server error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.HealthResponse"}}
                }
            }
        },
        "/ready": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handlers.HealthResponse"}}
                }
            }
        },
        "/users/login": {
            "post": {
                "description": "Authenticate a user and get a token",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Login user",
                "parameters": [
                    {"description": "Credentials", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Login successful", "schema": {"$ref": "#/definitions/handlers.AuthResponse"}},
                    "400": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Server error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/users/logout": {
            "post": {
                "description": "Revoke a refresh token. Unknown tokens are ignored.",
                "consumes": ["application/json"],
                "tags": ["users"],
                "summary": "Logout",
                "parameters": [
                    {"description": "Refresh token", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.RefreshRequest"}}
                ],
                "responses": {
                    "204": {"description": "Revoked"},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/users/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Get the authenticated user's id and email",
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Get current user",
                "responses": {
                    "200": {"description": "User profile", "schema": {"$ref": "#/definitions/handlers.UserResponse"}},
                    "403": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Server error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/users/refresh": {
            "post": {
                "description": "Exchange a refresh token for a new access and refresh token. The presented token is consumed.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Refresh tokens",
                "parameters": [
                    {"description": "Refresh token", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.RefreshRequest"}}
                ],
                "responses": {
                    "200": {"description": "Token refreshed", "schema": {"$ref": "#/definitions/handlers.AuthResponse"}},
                    "403": {"description": "Invalid token", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Refresh tokens disabled", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/users/register": {
            "post": {
                "description": "Register a new user with email and password",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Register a new user",
                "parameters": [
                    {"description": "Credentials", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CredentialsRequest"}}
                ],
                "responses": {
                    "201": {"description": "User registered", "schema": {"$ref": "#/definitions/handlers.AuthResponse"}},
                    "400": {"description": "Invalid input or user exists", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Server error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "errors.FieldIssue": {
            "type": "object",
            "properties": {
                "field": {"type": "string"},
                "message": {"type": "string"},
                "type": {"type": "string"}
            }
        },
        "handlers.AuthResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "refreshToken": {"type": "string"},
                "token": {"type": "string"}
            }
        },
        "handlers.CreateTransactionRequest": {
            "type": "object",
            "required": ["amount", "category"],
            "properties": {
                "amount": {"type": "number"},
                "category": {"type": "string", "maxLength": 100},
                "createdAt": {"type": "string"},
                "description": {"type": "string", "maxLength": 500},
                "transactionType": {"type": "string"}
            }
        },
        "handlers.CredentialsRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string", "maxLength": 255},
                "password": {"type": "string", "maxLength": 72}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "details": {"type": "array", "items": {"$ref": "#/definitions/errors.FieldIssue"}},
                "message": {"type": "string"}
            }
        },
        "handlers.ExportReportRequest": {
            "type": "object",
            "properties": {
                "fileName": {"type": "string", "maxLength": 100},
                "format": {"type": "string", "enum": ["pdf", "xlsx"]},
                "pdfData": {"type": "string"}
            }
        },
        "handlers.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"}
            }
        },
        "handlers.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "handlers.MessageResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"}
            }
        },
        "handlers.RefreshRequest": {
            "type": "object",
            "required": ["refreshToken"],
            "properties": {
                "refreshToken": {"type": "string"}
            }
        },
        "handlers.TransactionResponse": {
            "type": "object",
            "properties": {
                "amount": {"type": "number"},
                "category": {"type": "string"},
                "createdAt": {"type": "string"},
                "description": {"type": "string"},
                "id": {"type": "string"},
                "recordedAt": {"type": "string"},
                "transactionType": {"type": "string", "enum": ["Expense", "Income"]},
                "updatedAt": {"type": "string"},
                "userId": {"type": "string"}
            }
        },
        "handlers.UpdateTransactionRequest": {
            "type": "object",
            "properties": {
                "amount": {"type": "number"},
                "category": {"type": "string", "maxLength": 100},
                "createdAt": {"type": "string"},
                "description": {"type": "string", "maxLength": 500},
                "transactionType": {"type": "string"}
            }
        },
        "handlers.UserResponse": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "id": {"type": "string"}
            }
        },
        "services.CategoryTotal": {
            "type": "object",
            "properties": {
                "category": {"type": "string"},
                "count": {"type": "integer"},
                "total": {"type": "number"},
                "transactionType": {"type": "string"}
            }
        },
        "services.Summary": {
            "type": "object",
            "properties": {
                "balance": {"type": "number"},
                "byCategory": {"type": "array", "items": {"$ref": "#/definitions/services.CategoryTotal"}},
                "count": {"type": "integer"},
                "totalExpense": {"type": "number"},
                "totalIncome": {"type": "number"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:5000",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Pennywise API",
	Description:      "Pennywise tracks personal income and expenses and emails reports.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
