package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "School Fees API",
        "description": "Multi-tenant school fee administration platform",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Auth", "description": "Authentication and session management"},
        {"name": "Users", "description": "Platform and school admin accounts"},
        {"name": "Schools", "description": "School registry"},
        {"name": "Students", "description": "Student rosters"},
        {"name": "FeeRates", "description": "Platform service-fee approval workflow"},
        {"name": "FeeStructures", "description": "Fee structures and installment plans"},
        {"name": "Payments", "description": "Payment recording and receipts"},
        {"name": "ReceiptTemplates", "description": "Per-school receipt branding"},
        {"name": "Exports", "description": "Asynchronous data exports"},
        {"name": "Dashboard", "description": "Summary dashboards"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Login with email and password",
                "responses": {
                    "200": {"description": "Tokens issued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange a refresh token",
                "responses": {
                    "200": {"description": "Tokens rotated"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Revoke the current session",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "Session revoked"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current user profile",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Profile", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/users": {
            "get": {
                "tags": ["Users"],
                "summary": "List users",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Users", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Users"],
                "summary": "Create a user",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/schools": {
            "get": {
                "tags": ["Schools"],
                "summary": "List schools",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Schools", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Schools"],
                "summary": "Onboard a school",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "School code already in use"}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Students", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Enroll a student",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Admission number already in use"}
                }
            }
        },
        "/fee-rates": {
            "get": {
                "tags": ["FeeRates"],
                "summary": "List fee rates",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "school_id", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Fee rates", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["FeeRates"],
                "summary": "Propose a fee rate",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Proposal created awaiting counter-approval"},
                    "400": {"description": "Percentage out of range"}
                }
            }
        },
        "/fee-rates/{id}/approve": {
            "post": {
                "tags": ["FeeRates"],
                "summary": "Approve a pending fee rate",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Rate activated, previous active rate superseded"},
                    "403": {"description": "Counter-party approval required"},
                    "409": {"description": "Rate already settled or modified concurrently"}
                }
            }
        },
        "/fee-rates/{id}/reject": {
            "post": {
                "tags": ["FeeRates"],
                "summary": "Reject a pending fee rate",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Rate rejected"},
                    "409": {"description": "Rate already settled"}
                }
            }
        },
        "/fee-rates/stats": {
            "get": {
                "tags": ["FeeRates"],
                "summary": "Workflow statistics",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Counts per status"}
                }
            }
        },
        "/fee-structures": {
            "get": {
                "tags": ["FeeStructures"],
                "summary": "List fee structures",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Fee structures"}
                }
            },
            "post": {
                "tags": ["FeeStructures"],
                "summary": "Create a draft fee structure",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Draft created with derived installments"}
                }
            }
        },
        "/fee-structures/{id}/publish": {
            "post": {
                "tags": ["FeeStructures"],
                "summary": "Publish a fee structure",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Published"},
                    "409": {"description": "Already published"}
                }
            }
        },
        "/payments": {
            "get": {
                "tags": ["Payments"],
                "summary": "List payments",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Payments"}
                }
            },
            "post": {
                "tags": ["Payments"],
                "summary": "Record a payment",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Payment recorded with fee stamp and receipt number"}
                }
            }
        },
        "/payments/{id}/void": {
            "post": {
                "tags": ["Payments"],
                "summary": "Void a payment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Voided"},
                    "409": {"description": "Already voided"}
                }
            }
        },
        "/payments/{id}/receipt": {
            "get": {
                "tags": ["Payments"],
                "summary": "Download receipt PDF",
                "security": [{"BearerAuth": []}],
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF document"}
                }
            }
        },
        "/payments/summary": {
            "get": {
                "tags": ["Payments"],
                "summary": "Collection summary",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Gross, fee and net totals"}
                }
            }
        },
        "/receipt-templates": {
            "get": {
                "tags": ["ReceiptTemplates"],
                "summary": "List templates for a school",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Templates"}
                }
            },
            "post": {
                "tags": ["ReceiptTemplates"],
                "summary": "Create a template",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Enqueue an export job",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "202": {"description": "Job queued"}
                }
            }
        },
        "/exports/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Poll job status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Job status with signed result URL when finished"}
                }
            }
        },
        "/exports/download/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a finished export",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Export file"},
                    "404": {"description": "Unknown or expired token"}
                }
            }
        },
        "/dashboard/admin": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Platform admin dashboard",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Platform-wide summary"}
                }
            }
        },
        "/dashboard/school": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "School dashboard",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Per-school summary"}
                }
            }
        }
    },
    "definitions": {
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
