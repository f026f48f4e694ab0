package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "School Results API",
        "description": "Multi-tenant school administration backend: results, grading, ranking and session rollover",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Login, token refresh and password management"},
        {"name": "Schools", "description": "Tenant registration and profile"},
        {"name": "Students", "description": "Student records"},
        {"name": "Subjects", "description": "Subject catalogue"},
        {"name": "ClassLevels", "description": "Promotion ladder"},
        {"name": "Sessions", "description": "Academic sessions, terms and rollover"},
        {"name": "Enrollments", "description": "Session rosters"},
        {"name": "Grading", "description": "Grading scale"},
        {"name": "Results", "description": "Score entry and aggregation"},
        {"name": "Reports", "description": "Report cards and rankings"},
        {"name": "Exports", "description": "Asynchronous report card and broadsheet exports"},
        {"name": "Subscriptions", "description": "Subscription status and activation"},
        {"name": "Users", "description": "Staff and parent accounts"}
    ],
    "paths": {
        "/schools/register": {
            "post": {
                "tags": ["Schools"],
                "summary": "Register a new school",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterSchoolRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions": {
            "get": {
                "tags": ["Sessions"],
                "summary": "List sessions",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Sessions"],
                "summary": "Create session with promotion rollover",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/current-period": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Get the current session and term",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No current session or term"}
                }
            }
        },
        "/grading/scale": {
            "get": {
                "tags": ["Grading"],
                "summary": "Get grading scale",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Grading"],
                "summary": "Replace grading scale",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReplaceScaleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Bands must cover 0-100 without overlap"}
                }
            }
        },
        "/results": {
            "post": {
                "tags": ["Results"],
                "summary": "Record scores for the current term",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpsertResultRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Score above 100 rejects the whole batch"}
                }
            }
        },
        "/results/{studentId}": {
            "get": {
                "tags": ["Results"],
                "summary": "List a student's subject results",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "termId", "in": "query", "required": true, "type": "string"},
                    {"name": "sessionId", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Results"],
                "summary": "Reset a student's current-term scores",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/students/{studentId}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Get a student's report card payload",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "termId", "in": "query", "required": true, "type": "string"},
                    {"name": "sessionId", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue an export job",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "RegisterSchoolRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "admin_email": {"type": "string"},
                "admin_name": {"type": "string"},
                "admin_password": {"type": "string"},
                "is_primary": {"type": "boolean"},
                "is_secondary": {"type": "boolean"}
            },
            "required": ["name", "admin_email", "admin_name", "admin_password"]
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "CreateSessionRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"}
            },
            "required": ["name"]
        },
        "ReplaceScaleRequest": {
            "type": "object",
            "properties": {
                "bands": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/BandInput"}
                }
            },
            "required": ["bands"]
        },
        "BandInput": {
            "type": "object",
            "properties": {
                "min_score": {"type": "integer"},
                "max_score": {"type": "integer"},
                "grade": {"type": "string"},
                "remark": {"type": "string"}
            },
            "required": ["grade", "remark"]
        },
        "UpsertResultRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "entries": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/ScoreEntry"}
                }
            },
            "required": ["student_id", "entries"]
        },
        "ScoreEntry": {
            "type": "object",
            "properties": {
                "subject": {"type": "string"},
                "first_test": {"type": "integer"},
                "second_test": {"type": "integer"},
                "third_test": {"type": "integer"},
                "exam": {"type": "integer"}
            },
            "required": ["subject"]
        },
        "ExportRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["report_cards", "broadsheet"]},
                "sessionId": {"type": "string"},
                "termId": {"type": "string"},
                "classLevelId": {"type": "string"},
                "format": {"type": "string", "enum": ["csv", "pdf"]}
            },
            "required": ["type", "sessionId", "termId", "classLevelId", "format"]
        },
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
