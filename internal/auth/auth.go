package auth

import "github.com/golang-jwt/jwt/v5"

// Authenticator validates the access tokens issued by the account service.
// Token issuance itself lives there; GenerateToken exists for local tooling
// and tests.
type Authenticator interface {
	GenerateToken(userID int64, role string) (string, error)
	ValidateToken(token string) (*jwt.Token, error)
}
