package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "TesHub API",
        "description": "Backend for the TesHub thesis and publication sharing network",
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
        {"name": "Authentication", "description": "Registration, login and account recovery"},
        {"name": "Users", "description": "Profiles, avatars and interests"},
        {"name": "Advisories", "description": "Advisor-student pairings"},
        {"name": "Publications", "description": "Thesis and article lifecycle"},
        {"name": "Reviews", "description": "Advisor moderation queue"},
        {"name": "Events", "description": "Academic events and registrations"},
        {"name": "Search", "description": "Keyword search and suggestions"},
        {"name": "Social", "description": "Follow graph"},
        {"name": "Admin", "description": "Advisor account approval"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "Envelope": {
            "type": "object",
            "properties": {
                "mensaje": {"type": "string"},
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"}
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
