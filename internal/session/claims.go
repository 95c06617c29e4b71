package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the access-token fields the CLI cares about
type Claims struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
}

// ParseClaims decodes an access token without verifying its signature.
// The server is the only party that validates tokens; the client only reads
// them for display and to recover the user identity after a refresh.
func ParseClaims(accessToken string) (*Claims, error) {
	var mc jwt.MapClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &mc); err != nil {
		return nil, fmt.Errorf("failed to parse access token: %w", err)
	}

	claims := &Claims{}
	claims.Subject, _ = mc.GetSubject()
	if claims.Subject == "" {
		if id, ok := mc["id"].(string); ok {
			claims.Subject = id
		}
	}
	if email, ok := mc["email"].(string); ok {
		claims.Email = email
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

// UserFromToken builds a User from the token's subject and email claims
func UserFromToken(accessToken string) (User, bool) {
	claims, err := ParseClaims(accessToken)
	if err != nil || (claims.Subject == "" && claims.Email == "") {
		return User{}, false
	}
	return User{ID: claims.Subject, Email: claims.Email}, true
}
