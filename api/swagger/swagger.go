package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "GD Diary API",
        "description": "Police station General Diary records with a bounded correction workflow",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Diaries", "description": "Daily station diaries and their entries"},
        {"name": "Corrections", "description": "Direct edits, amendment requests and the correction ledger"},
        {"name": "Serials", "description": "One-shot page serial numbers"}
    ],
    "paths": {
        "/diaries": {
            "post": {
                "tags": ["Diaries"],
                "summary": "Open the diary of a station for one day",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/CreateDiaryRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate diary", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["Diaries"],
                "summary": "Find a diary by station and date",
                "parameters": [
                    {"in": "query", "name": "stationId", "type": "string", "required": true},
                    {"in": "query", "name": "date", "type": "string", "description": "YYYY-MM-DD, defaults to today"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/diaries/{id}": {
            "get": {
                "tags": ["Diaries"],
                "summary": "Get a diary with its entries",
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/diaries/{id}/entries": {
            "post": {
                "tags": ["Diaries"],
                "summary": "File an occurrence entry",
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/AddEntryRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/diaries/{id}/corrections": {
            "get": {
                "tags": ["Corrections"],
                "summary": "Get the correction ledger of a diary",
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/corrections": {
            "get": {
                "tags": ["Corrections"],
                "summary": "List correction logs",
                "parameters": [
                    {"in": "query", "name": "status", "type": "string", "description": "Comma separated statuses"},
                    {"in": "query", "name": "requestedBy", "type": "string"},
                    {"in": "query", "name": "stationId", "type": "string"},
                    {"in": "query", "name": "diaryId", "type": "string"},
                    {"in": "query", "name": "limit", "type": "integer"},
                    {"in": "query", "name": "offset", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/corrections/ledgers/{id}": {
            "get": {
                "tags": ["Corrections"],
                "summary": "Get a correction ledger with its history",
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/corrections/direct": {
            "post": {
                "tags": ["Corrections"],
                "summary": "Correct an entry immediately (administrators)",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/CorrectionRequest"}}
                ],
                "responses": {
                    "200": {"description": "Entry corrected and logged", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Window expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Pending request exists", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/corrections/requests": {
            "post": {
                "tags": ["Corrections"],
                "summary": "Propose a correction for admin review",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/CorrectionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Amendment request submitted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Window expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Pending request exists", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/corrections/resolve": {
            "post": {
                "tags": ["Corrections"],
                "summary": "Approve or reject a pending request (administrators)",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/ResolveCorrectionRequest"}}
                ],
                "responses": {
                    "200": {"description": "Resolved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already processed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/serials/lock": {
            "post": {
                "tags": ["Serials"],
                "summary": "Lock the page serial number of a station diary",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/LockSerialRequest"}}
                ],
                "responses": {
                    "200": {"description": "Serial number locked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Already locked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateDiaryRequest": {
            "type": "object",
            "required": ["stationId"],
            "properties": {
                "stationId": {"type": "string"},
                "division": {"type": "string"},
                "date": {"type": "string", "example": "2024-03-01"}
            }
        },
        "AddEntryRequest": {
            "type": "object",
            "required": ["abstract", "details"],
            "properties": {
                "abstract": {"type": "string"},
                "details": {"type": "string"}
            }
        },
        "CorrectionData": {
            "type": "object",
            "required": ["abstract", "details"],
            "properties": {
                "abstract": {"type": "string"},
                "details": {"type": "string"}
            }
        },
        "CorrectionRequest": {
            "type": "object",
            "required": ["originalEntryId", "dailyGDId", "newData", "reason"],
            "properties": {
                "originalEntryId": {"type": "string", "format": "uuid"},
                "dailyGDId": {"type": "string", "format": "uuid"},
                "newData": {"$ref": "#/definitions/CorrectionData"},
                "reason": {"type": "string"},
                "kind": {"type": "string", "enum": ["EDIT", "DELETE", "LATE_ENTRY"]}
            }
        },
        "ResolveCorrectionRequest": {
            "type": "object",
            "required": ["containerId", "logId", "dailyGDId", "originalEntryId", "action"],
            "properties": {
                "containerId": {"type": "string", "format": "uuid"},
                "logId": {"type": "string", "format": "uuid"},
                "dailyGDId": {"type": "string", "format": "uuid"},
                "originalEntryId": {"type": "string", "format": "uuid"},
                "action": {"type": "string", "enum": ["APPROVE", "REJECT"]}
            }
        },
        "LockSerialRequest": {
            "type": "object",
            "required": ["stationId", "pageSerialNo"],
            "properties": {
                "stationId": {"type": "string"},
                "pageSerialNo": {"type": "integer"},
                "date": {"type": "string", "example": "2024-03-01"}
            }
        },
        "CorrectionResult": {
            "type": "object",
            "properties": {
                "correctionDocId": {"type": "string"},
                "correctionLogId": {"type": "string"},
                "status": {"type": "string", "enum": ["PENDING", "APPROVED", "REJECTED"]}
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
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
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
