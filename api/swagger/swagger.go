package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Syllabus Workflow API",
        "description": "Syllabus lifecycle, multi-level approval and collaborative review.",
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
        {"name": "Syllabuses", "description": "Draft authoring and version lineage"},
        {"name": "Workflow", "description": "Submission and approval decisions"},
        {"name": "Review", "description": "Collaborative review comments and summaries"},
        {"name": "Notifications", "description": "Recipient inbox"}
    ],
    "parameters": {
        "versionId": {"name": "versionId", "in": "path", "required": true, "type": "string"},
        "idempotencyKey": {"name": "Idempotency-Key", "in": "header", "required": false, "type": "string"}
    },
    "paths": {
        "/syllabuses": {
            "post": {
                "tags": ["Syllabuses"],
                "summary": "Create the first draft of a course syllabus",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/idempotencyKey"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSyllabusRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/SyllabusVersion"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Course already exists", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/syllabus-versions": {
            "post": {
                "tags": ["Syllabuses"],
                "summary": "Branch a new draft from the head version",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/idempotencyKey"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateVersionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/SyllabusVersion"}},
                    "404": {"description": "Source not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Source is not the head version", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/syllabuses/{versionId}": {
            "get": {
                "tags": ["Syllabuses"],
                "summary": "Get a syllabus version",
                "security": [{"BearerAuth": []}],
                "parameters": [{"$ref": "#/parameters/versionId"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SyllabusVersion"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Syllabuses"],
                "summary": "Replace the content of a draft",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/versionId"},
                    {"$ref": "#/parameters/idempotencyKey"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateSyllabusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SyllabusVersion"}},
                    "400": {"description": "Not editable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/syllabuses/{versionId}/versions": {
            "get": {
                "tags": ["Syllabuses"],
                "summary": "List every version of the course",
                "security": [{"BearerAuth": []}],
                "parameters": [{"$ref": "#/parameters/versionId"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/SyllabusVersion"}}}
                }
            }
        },
        "/syllabuses/{versionId}/comments": {
            "post": {
                "tags": ["Review"],
                "summary": "Post a review comment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/versionId"},
                    {"$ref": "#/parameters/idempotencyKey"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PostCommentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ReviewComment"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/syllabuses/{versionId}/comments/{commentId}": {
            "put": {
                "tags": ["Review"],
                "summary": "Edit an own comment before finalization",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/versionId"},
                    {"name": "commentId", "in": "path", "required": true, "type": "string"},
                    {"$ref": "#/parameters/idempotencyKey"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateCommentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ReviewComment"}},
                    "403": {"description": "Not the author", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Comment finalized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Review"],
                "summary": "Delete an own comment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/versionId"},
                    {"name": "commentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "403": {"description": "Not the author", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Comment finalized or has replies", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/syllabuses/{versionId}/comments/{commentId}/replies": {
            "post": {
                "tags": ["Review"],
                "summary": "Reply to a comment thread",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/versionId"},
                    {"name": "commentId", "in": "path", "required": true, "type": "string"},
                    {"$ref": "#/parameters/idempotencyKey"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PostCommentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ReviewComment"}},
                    "404": {"description": "Comment not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["Review"],
                "summary": "Replies of a comment thread in chronological order",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/versionId"},
                    {"name": "commentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/ReviewComment"}}}
                }
            }
        },
        "/syllabuses/{versionId}/comments/{commentId}/resolve": {
            "post": {
                "tags": ["Review"],
                "summary": "Resolve, close or reopen a comment thread",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/versionId"},
                    {"name": "commentId", "in": "path", "required": true, "type": "string"},
                    {"$ref": "#/parameters/idempotencyKey"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResolveCommentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ReviewComment"}},
                    "403": {"description": "Not the lecturer or a head of department", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/syllabuses/{versionId}/comments/count": {
            "get": {
                "tags": ["Review"],
                "summary": "Comment statistics",
                "security": [{"BearerAuth": []}],
                "parameters": [{"$ref": "#/parameters/versionId"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/CommentStats"}}
                }
            }
        },
        "/syllabuses/{versionId}/comments/recent": {
            "get": {
                "tags": ["Review"],
                "summary": "Most recent comments",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/versionId"},
                    {"name": "limit", "in": "query", "required": false, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/ReviewComment"}}}
                }
            }
        },
        "/syllabuses/{versionId}/comments/all": {
            "get": {
                "tags": ["Review"],
                "summary": "All comments in chronological order",
                "security": [{"BearerAuth": []}],
                "parameters": [{"$ref": "#/parameters/versionId"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/ReviewComment"}}}
                }
            }
        },
        "/syllabuses/{versionId}/comments/finalize": {
            "post": {
                "tags": ["Review"],
                "summary": "Finalize the review at the actor's level",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/versionId"},
                    {"$ref": "#/parameters/idempotencyKey"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ReviewSummary"}},
                    "409": {"description": "Already finalized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/syllabuses/{versionId}/comments/summary": {
            "get": {
                "tags": ["Review"],
                "summary": "Latest finalized review summary",
                "security": [{"BearerAuth": []}],
                "parameters": [{"$ref": "#/parameters/versionId"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ReviewSummary"}},
                    "404": {"description": "Not finalized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/workflow/submit/{versionId}": {
            "post": {
                "tags": ["Workflow"],
                "summary": "Submit a draft for approval",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/versionId"},
                    {"$ref": "#/parameters/idempotencyKey"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/TransitionResult"}},
                    "400": {"description": "Invalid transition", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/workflow/approve/{versionId}": {
            "post": {
                "tags": ["Workflow"],
                "summary": "Approve at a level",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/versionId"},
                    {"$ref": "#/parameters/idempotencyKey"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ApproveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/TransitionResult"}},
                    "409": {"description": "Concurrent decision", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/workflow/reject/{versionId}": {
            "post": {
                "tags": ["Workflow"],
                "summary": "Reject at a level",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/versionId"},
                    {"$ref": "#/parameters/idempotencyKey"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RejectRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/TransitionResult"}},
                    "400": {"description": "Missing reason", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/workflow/pending": {
            "get": {
                "tags": ["Workflow"],
                "summary": "Versions awaiting a decision at a level",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "level", "in": "query", "required": false, "type": "string", "enum": ["HOD", "AA", "PRINCIPAL"]},
                    {"name": "page", "in": "query", "required": false, "type": "integer"},
                    {"name": "size", "in": "query", "required": false, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/SyllabusVersion"}}}
                }
            }
        },
        "/workflow/history/{versionId}": {
            "get": {
                "tags": ["Workflow"],
                "summary": "Approval audit trail",
                "security": [{"BearerAuth": []}],
                "parameters": [{"$ref": "#/parameters/versionId"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/ApprovalAction"}}}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List the actor's notifications",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "page", "in": "query", "required": false, "type": "integer"},
                    {"name": "size", "in": "query", "required": false, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/Notification"}}}
                }
            }
        },
        "/notifications/{id}/read": {
            "put": {
                "tags": ["Notifications"],
                "summary": "Mark a notification as read",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Notification"}},
                    "403": {"description": "Not the recipient", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications/read-all": {
            "put": {
                "tags": ["Notifications"],
                "summary": "Mark every notification as read",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "properties": {"updated": {"type": "integer"}}}}
                }
            }
        },
        "/notifications/unread-count": {
            "get": {
                "tags": ["Notifications"],
                "summary": "Unread notification count",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "properties": {"unreadCount": {"type": "integer"}}}}
                }
            }
        },
        "/notifications/stats": {
            "get": {
                "tags": ["Notifications"],
                "summary": "Unread notifications grouped by category",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/NotificationStats"}}
                }
            }
        }
    },
    "definitions": {
        "SyllabusContent": {
            "type": "object",
            "properties": {
                "courseMetadata": {"type": "object"},
                "learningOutcomes": {"type": "array", "items": {"type": "object"}},
                "assessments": {"type": "array", "items": {"type": "object"}},
                "sessionPlan": {"type": "array", "items": {"type": "object"}},
                "materials": {"type": "array", "items": {"type": "object"}}
            }
        },
        "CopyFlags": {
            "type": "object",
            "properties": {
                "outcomes": {"type": "boolean"},
                "materials": {"type": "boolean"},
                "sessionPlan": {"type": "boolean"},
                "assessments": {"type": "boolean"}
            }
        },
        "CreateSyllabusRequest": {
            "type": "object",
            "required": ["courseCode"],
            "properties": {
                "courseCode": {"type": "string"},
                "content": {"$ref": "#/definitions/SyllabusContent"}
            }
        },
        "UpdateSyllabusRequest": {
            "type": "object",
            "properties": {
                "content": {"$ref": "#/definitions/SyllabusContent"}
            }
        },
        "CreateVersionRequest": {
            "type": "object",
            "required": ["sourceVersionId"],
            "properties": {
                "sourceVersionId": {"type": "string"},
                "notes": {"type": "string"},
                "copyFlags": {"$ref": "#/definitions/CopyFlags"}
            }
        },
        "SyllabusVersion": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "courseCode": {"type": "string"},
                "versionNo": {"type": "integer"},
                "status": {"type": "string", "enum": ["DRAFT", "PENDING_REVIEW", "PENDING_APPROVAL", "PENDING_FINAL", "PUBLISHED", "REJECTED_BY_HOD", "REJECTED_BY_AA", "REJECTED_BY_PRINCIPAL", "ARCHIVED"]},
                "previousVersionId": {"type": "string"},
                "isLatestVersion": {"type": "boolean"},
                "lecturerId": {"type": "string"},
                "versionNotes": {"type": "string"},
                "courseMetadata": {"type": "object"},
                "learningOutcomes": {"type": "array", "items": {"type": "object"}},
                "assessments": {"type": "array", "items": {"type": "object"}},
                "sessionPlan": {"type": "array", "items": {"type": "object"}},
                "materials": {"type": "array", "items": {"type": "object"}},
                "reviewSummary": {"type": "string"},
                "reviewFinalizedBy": {"type": "string"},
                "reviewFinalizedAt": {"type": "string", "format": "date-time"},
                "reviewFinalizedLevel": {"type": "string"},
                "createdAt": {"type": "string", "format": "date-time"},
                "updatedAt": {"type": "string", "format": "date-time"},
                "publishedAt": {"type": "string", "format": "date-time"},
                "archivedAt": {"type": "string", "format": "date-time"}
            }
        },
        "ApproveRequest": {
            "type": "object",
            "required": ["level"],
            "properties": {
                "level": {"type": "string", "enum": ["HOD", "AA", "PRINCIPAL"]},
                "notes": {"type": "string"}
            }
        },
        "RejectRequest": {
            "type": "object",
            "required": ["level", "reason"],
            "properties": {
                "level": {"type": "string", "enum": ["HOD", "AA", "PRINCIPAL"]},
                "reason": {"type": "string"}
            }
        },
        "ApprovalAction": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "syllabusVersionId": {"type": "string"},
                "level": {"type": "string"},
                "actorId": {"type": "string"},
                "decision": {"type": "string", "enum": ["APPROVE", "REJECT"]},
                "notes": {"type": "string"},
                "fromStatus": {"type": "string"},
                "toStatus": {"type": "string"},
                "createdAt": {"type": "string", "format": "date-time"}
            }
        },
        "TransitionResult": {
            "type": "object",
            "properties": {
                "version": {"$ref": "#/definitions/SyllabusVersion"},
                "action": {"$ref": "#/definitions/ApprovalAction"}
            }
        },
        "PostCommentRequest": {
            "type": "object",
            "required": ["content"],
            "properties": {
                "content": {"type": "string", "maxLength": 5000}
            }
        },
        "UpdateCommentRequest": {
            "type": "object",
            "required": ["content"],
            "properties": {
                "content": {"type": "string", "maxLength": 5000}
            }
        },
        "ResolveCommentRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["OPEN", "RESOLVED", "CLOSED"]},
                "resolutionNote": {"type": "string", "maxLength": 2000}
            }
        },
        "ReviewComment": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "syllabusVersionId": {"type": "string"},
                "parentCommentId": {"type": "string"},
                "authorId": {"type": "string"},
                "authorName": {"type": "string"},
                "content": {"type": "string"},
                "type": {"type": "string"},
                "status": {"type": "string", "enum": ["OPEN", "RESOLVED", "CLOSED"]},
                "replyCount": {"type": "integer"},
                "createdAt": {"type": "string", "format": "date-time"},
                "editedAt": {"type": "string", "format": "date-time"},
                "resolvedBy": {"type": "string"},
                "resolvedAt": {"type": "string", "format": "date-time"},
                "resolutionNote": {"type": "string"},
                "finalizedAt": {"type": "string", "format": "date-time"}
            }
        },
        "CommentStats": {
            "type": "object",
            "properties": {
                "commentCount": {"type": "integer"},
                "participantCount": {"type": "integer"},
                "myCommentCount": {"type": "integer"},
                "openThreadCount": {"type": "integer"}
            }
        },
        "NotificationStats": {
            "type": "object",
            "properties": {
                "totalUnread": {"type": "integer"},
                "pendingReviews": {"type": "integer"},
                "pendingApprovals": {"type": "integer"},
                "rejections": {"type": "integer"}
            }
        },
        "ReviewSummary": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "syllabusVersionId": {"type": "string"},
                "level": {"type": "string"},
                "finalizedBy": {"type": "string"},
                "summary": {"type": "string"},
                "commentCount": {"type": "integer"},
                "participantCount": {"type": "integer"},
                "createdAt": {"type": "string", "format": "date-time"}
            }
        },
        "Notification": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "recipientId": {"type": "string"},
                "kind": {"type": "string"},
                "title": {"type": "string"},
                "message": {"type": "string"},
                "payload": {"type": "object"},
                "createdAt": {"type": "string", "format": "date-time"},
                "readAt": {"type": "string", "format": "date-time"}
            }
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
