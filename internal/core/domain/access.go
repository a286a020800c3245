package domain

// Scopes accepted on machine-to-machine access tokens.
const (
	ScopeUserRead  = "iduser:user.read"
	ScopeUserWrite = "iduser:user.write"
)

// AccessClaims are the validated claims of a machine-to-machine access token.
type AccessClaims struct {
	Subject   string   `json:"sub"`
	Scopes    []string `json:"scopes"`
	IssuedAt  int64    `json:"iat"`
	ExpiresAt int64    `json:"exp"`
}

// HasScope reports whether the token carries the given scope
func (c *AccessClaims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
