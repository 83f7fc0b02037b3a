// Package docs is generated by swaggo/swag from the handler annotations.
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
        "/api/signup": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Create a local account",
                "parameters": [
                    {"description": "signup", "name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.signupReq"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/http.Envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.Envelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/http.Envelope"}}
                }
            }
        },
        "/api/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Sign in with email and password",
                "parameters": [
                    {"description": "login", "name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.loginReq"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.Envelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.Envelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.Envelope"}}
                }
            }
        },
        "/api/logout": {
            "post": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "End the session and revoke the bearer token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.Envelope"}}
                }
            }
        },
        "/api/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.Envelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.Envelope"}}
                }
            }
        },
        "/api/users": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "List users",
                "parameters": [
                    {"type": "integer", "description": "page size (max 200)", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "offset", "name": "skip", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/api/user/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Get a user by id",
                "parameters": [
                    {"type": "string", "description": "user id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.Envelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.Envelope"}}
                }
            }
        },
        "/api/forgot": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["password"],
                "summary": "Request a password reset email",
                "parameters": [
                    {"description": "email", "name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.forgotReq"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.Envelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.Envelope"}}
                }
            }
        },
        "/api/reset/{token}": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["password"],
                "summary": "Set a new password with a reset token",
                "parameters": [
                    {"type": "string", "description": "reset token", "name": "token", "in": "path", "required": true},
                    {"description": "new password", "name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.passwordReq"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.Envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.Envelope"}}
                }
            }
        },
        "/api/account/password": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["password"],
                "summary": "Change the current user's password",
                "parameters": [
                    {"description": "new password", "name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.passwordReq"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.Envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.Envelope"}}
                }
            }
        },
        "/api/facebook": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["facebook"],
                "summary": "Facebook profile of the current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/http.Envelope"}}
                }
            }
        },
        "/api/albums/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["facebook"],
                "summary": "Facebook albums of the current user",
                "parameters": [
                    {"type": "string", "description": "local user id, must be the caller's", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/http.Envelope"}}
                }
            }
        },
        "/api/album/{id}/{album_id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["facebook"],
                "summary": "Photos of an album",
                "parameters": [
                    {"type": "string", "description": "local user id, must be the caller's", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "album id", "name": "album_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/http.Envelope"}}
                }
            }
        },
        "/api/photo/{id}/{photo_id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["facebook"],
                "summary": "A single photo",
                "parameters": [
                    {"type": "string", "description": "local user id, must be the caller's", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "photo id", "name": "photo_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/http.Envelope"}}
                }
            }
        },
        "/auth/facebook": {
            "get": {
                "tags": ["oauth"],
                "summary": "Start Facebook login",
                "responses": {"302": {"description": "Found"}}
            }
        },
        "/auth/facebook/callback": {
            "get": {
                "produces": ["application/json"],
                "tags": ["oauth"],
                "summary": "Facebook login callback; links the profile to a local account",
                "parameters": [
                    {"type": "string", "description": "authorization code", "name": "code", "in": "query", "required": true},
                    {"type": "string", "description": "signed state", "name": "state", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.Envelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.Envelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/http.Envelope"}}
                }
            }
        },
        "/.well-known/jwks.json": {
            "get": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Public signing keys",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/security.JWKSet"}}
                }
            }
        }
    },
    "definitions": {
        "domain.Profile": {
            "type": "object",
            "properties": {
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "picture": {"type": "string"},
                "gender": {"type": "string"}
            }
        },
        "domain.UserView": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "facebook": {"type": "string"},
                "profile": {"$ref": "#/definitions/domain.Profile"},
                "linked": {"type": "boolean"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "http.Envelope": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "message": {"type": "string"},
                "user": {"$ref": "#/definitions/domain.UserView"},
                "token": {"type": "string"},
                "reauth": {"type": "string"}
            }
        },
        "http.signupReq": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "confirmPassword": {"type": "string"}
            }
        },
        "http.loginReq": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "http.forgotReq": {
            "type": "object",
            "required": ["email"],
            "properties": {
                "email": {"type": "string"}
            }
        },
        "http.passwordReq": {
            "type": "object",
            "required": ["password"],
            "properties": {
                "password": {"type": "string"},
                "confirm": {"type": "string"}
            }
        },
        "security.JWK": {
            "type": "object",
            "properties": {
                "kty": {"type": "string"},
                "kid": {"type": "string"},
                "use": {"type": "string"},
                "alg": {"type": "string"},
                "n": {"type": "string"},
                "e": {"type": "string"}
            }
        },
        "security.JWKSet": {
            "type": "object",
            "properties": {
                "keys": {"type": "array", "items": {"$ref": "#/definitions/security.JWK"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "identity-service API",
	Description:      "Local accounts, Facebook linking, sessions and bearer tokens.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
