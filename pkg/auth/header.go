package auth

import "strings"

const (
	AuthorizationHeader = "Authorization"
	GuestHeader         = "GuestUserId"
	bearerPrefix        = "Bearer "
)

// BearerToken extracts the token from an Authorization header value.
// ok is false when the header is empty or not a Bearer credential.
func BearerToken(header string) (token string, ok bool) {
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token = strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}
