// Package docs Robochat API 文档
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
        "/api/init": {
            "get": {
                "description": "创建 settings 表并写入默认助手名字，可重复调用",
                "produces": ["application/json"],
                "tags": ["设置"],
                "summary": "初始化数据库",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.MessageResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/model.ErrorMessage"}}
                }
            }
        },
        "/api/robotName": {
            "get": {
                "description": "始终返回 200；存储不可用时返回默认名字",
                "produces": ["application/json"],
                "tags": ["设置"],
                "summary": "获取助手名字",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.RobotNameResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["设置"],
                "summary": "修改助手名字",
                "parameters": [
                    {"description": "新名字", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.RobotNameRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.RobotNameResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/model.ErrorMessage"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/model.ErrorMessage"}}
                }
            }
        },
        "/api/chat": {
            "get": {
                "produces": ["application/json"],
                "tags": ["对话"],
                "summary": "会话记录",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.HistoryResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            },
            "post": {
                "description": "以 \"/name 新名字\" 开头的消息修改助手名字，不转发给模型；会话已有进行中的请求时返回 409",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["对话"],
                "summary": "发送消息",
                "parameters": [
                    {"description": "消息", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.ChatRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.ChatResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/model.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/model.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["对话"],
                "summary": "结束会话",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.MessageResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "model.ChatRequest": {
            "type": "object",
            "required": ["message"],
            "properties": {"message": {"type": "string"}}
        },
        "model.ChatResponse": {
            "type": "object",
            "properties": {
                "loading": {"type": "boolean"},
                "messages": {"type": "array", "items": {"$ref": "#/definitions/model.Message"}}
            }
        },
        "model.ErrorMessage": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "model.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "detail": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "model.HistoryResponse": {
            "type": "object",
            "properties": {
                "messages": {"type": "array", "items": {"$ref": "#/definitions/model.Message"}}
            }
        },
        "model.Message": {
            "type": "object",
            "properties": {
                "content": {"type": "string"},
                "created_at": {"type": "string"},
                "role": {"type": "string", "enum": ["user", "assistant", "system"]}
            }
        },
        "model.MessageResponse": {
            "type": "object",
            "properties": {"message": {"type": "string"}}
        },
        "model.RobotNameRequest": {
            "type": "object",
            "properties": {"name": {"type": "string"}}
        },
        "model.RobotNameResponse": {
            "type": "object",
            "properties": {"name": {"type": "string"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Robochat API",
	Description:      "单页聊天助手后端：助手名字设置与会话对话接口",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
