package jwt

import "github.com/golang-jwt/jwt"

// RoleOperator is the only role accepted by the monitoring endpoints.
const RoleOperator = "operator"

// Payload defines the JWT claims of an operator token.
type Payload struct {
	// StandardClaims embeds the standard fields: Sub names the operator,
	// Exp and Iat bound the token's validity and Iss identifies this service.
	jwt.StandardClaims

	// Role is the granted role, RoleOperator for monitoring access.
	Role string `json:"role"`
}
