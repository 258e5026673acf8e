// Package docs registers the OpenAPI document served under /swagger/.
// Regenerate with `swag init -g cmd/server/main.go` after changing handler annotations.
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
        "OperatorToken": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/health": {
            "get": {
                "tags": ["ops"],
                "summary": "Service health",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "Service Unavailable"}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["ops"],
                "summary": "Request, reward and rate limit counters",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/cache/stats": {
            "get": {
                "tags": ["ops"],
                "summary": "Response cache statistics",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/rewards/compute": {
            "post": {
                "tags": ["rewards"],
                "summary": "Compute a reward",
                "description": "Pure computation against an inline config. Identical bodies are served from cache.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/api.ComputeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.ComputeResponse"}},
                    "400": {"description": "Bad Request"},
                    "422": {"description": "Unprocessable Entity"},
                    "429": {"description": "Too Many Requests"}
                }
            }
        },
        "/v1/campaigns/{campaignId}/configs": {
            "get": {
                "tags": ["campaigns"],
                "summary": "List every config version of a campaign",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "campaignId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/database.ConfigVersion"}}},
                    "404": {"description": "Not Found"}
                }
            },
            "post": {
                "security": [{"OperatorToken": []}],
                "tags": ["campaigns"],
                "summary": "Publish a campaign config version",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "campaignId", "in": "path", "required": true},
                    {"in": "body", "name": "config", "required": true, "schema": {"$ref": "#/definitions/reward.CampaignRewardConfig"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/database.ConfigVersion"}},
                    "401": {"description": "Unauthorized"},
                    "422": {"description": "Unprocessable Entity"}
                }
            }
        },
        "/v1/campaigns/{campaignId}/configs/latest": {
            "get": {
                "tags": ["campaigns"],
                "summary": "Current config of a campaign",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "campaignId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/database.ConfigVersion"}},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/v1/campaigns/{campaignId}/configs/{version}": {
            "get": {
                "tags": ["campaigns"],
                "summary": "One historical config version",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "campaignId", "in": "path", "required": true},
                    {"type": "integer", "name": "version", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/database.ConfigVersion"}},
                    "400": {"description": "Bad Request"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/v1/settlements": {
            "post": {
                "security": [{"OperatorToken": []}],
                "tags": ["settlements"],
                "summary": "Settle a batch of engagement records",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "batch", "required": true, "schema": {"$ref": "#/definitions/settlement.BatchRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/settlement.BatchResult"}},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"},
                    "409": {"description": "Conflict"}
                }
            }
        },
        "/v1/settlements/{batchId}": {
            "get": {
                "tags": ["settlements"],
                "summary": "Itemized results of a stored batch",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "batchId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.BatchReport"}},
                    "404": {"description": "Not Found"}
                }
            }
        }
    },
    "definitions": {
        "api.ComputeRequest": {
            "type": "object",
            "properties": {
                "record_id": {"type": "string"},
                "config": {"$ref": "#/definitions/reward.CampaignRewardConfig"},
                "snapshot": {"$ref": "#/definitions/reward.EngagementSnapshot"}
            }
        },
        "api.ComputeResponse": {
            "type": "object",
            "properties": {
                "record_id": {"type": "string"},
                "breakdown": {"$ref": "#/definitions/reward.RewardBreakdown"}
            }
        },
        "api.BatchReport": {
            "type": "object",
            "properties": {
                "summary": {"type": "object"},
                "items": {"type": "array", "items": {"type": "object"}}
            }
        },
        "database.ConfigVersion": {
            "type": "object",
            "properties": {
                "campaign_id": {"type": "string"},
                "version": {"type": "integer"},
                "config": {"$ref": "#/definitions/reward.CampaignRewardConfig"},
                "created_at": {"type": "string"}
            }
        },
        "reward.CampaignRewardConfig": {
            "type": "object",
            "properties": {
                "campaign_id": {"type": "string"},
                "version": {"type": "integer"},
                "base_rate": {"type": "number"},
                "platform_weight": {"type": "object", "additionalProperties": {"type": "number"}},
                "campaign_duration_days": {"type": "integer"},
                "bonus_rules": {"type": "array", "items": {"type": "object"}},
                "rounding": {
                    "type": "object",
                    "properties": {
                        "places": {"type": "integer"},
                        "mode": {"type": "string"}
                    }
                }
            }
        },
        "reward.EngagementSnapshot": {
            "type": "object",
            "properties": {
                "followers": {"type": "integer"},
                "likes": {"type": "integer"},
                "comments": {"type": "integer"},
                "shares": {"type": "integer"},
                "views": {"type": "integer"},
                "clicks": {"type": "integer"},
                "platform": {"type": "string"},
                "posted_at": {"type": "string"},
                "verified": {"type": "boolean"}
            }
        },
        "reward.RewardBreakdown": {
            "type": "object",
            "properties": {
                "reach_factor": {"type": "number"},
                "engagement_factor": {"type": "number"},
                "performance_factor": {"type": "number"},
                "duration_multiplier": {"type": "number"},
                "platform_weight": {"type": "number"},
                "bonus_total": {"type": "number"},
                "bonuses": {"type": "array", "items": {"type": "object"}},
                "total_reward": {"type": "number"},
                "payout": {"type": "string"}
            }
        },
        "settlement.BatchRequest": {
            "type": "object",
            "properties": {
                "batch_id": {"type": "string"},
                "records": {"type": "array", "items": {"type": "object"}}
            }
        },
        "settlement.BatchResult": {
            "type": "object",
            "properties": {
                "batch_id": {"type": "string"},
                "items": {"type": "array", "items": {"type": "object"}},
                "settled": {"type": "integer"},
                "rejected": {"type": "integer"},
                "needs_review": {"type": "integer"},
                "total_payout": {"type": "string"},
                "pending_payout": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Fair Engagement Reward Engine API",
	Description:      "Computes influencer rewards from engagement snapshots and settles them in batches.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
