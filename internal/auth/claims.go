package auth

import "github.com/golang-jwt/jwt/v5"

// Claims is the only supported JWT claims shape for this service.
// WorkerID keys the presence store; Email is the stable friendly identifier
// used to look up (or lazily create) the platform registry entry.
type Claims struct {
	jwt.RegisteredClaims

	WorkerID string `json:"worker_id"`
	Email    string `json:"email"`
}
