package auth

import "time"

// TokenVerifier turns a bearer token into a user id. Handlers and the
// websocket upgrade depend on this rather than on Service so tests can
// swap in a fixed verifier.
type TokenVerifier interface {
	ValidateToken(tokenString string) (string, error)
}

// TokenIssuer mints tokens. Only the CLI and tests issue tokens; real
// credential issuance lives outside this service.
type TokenIssuer interface {
	IssueToken(userID, username string) (string, time.Time, error)
}

// Ensure Service implements both
var (
	_ TokenVerifier = (*Service)(nil)
	_ TokenIssuer   = (*Service)(nil)
)
