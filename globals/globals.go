package globals

import (
	"context"
	"os"
)

var JwtSecret = jwtSecretFromEnv()

func jwtSecretFromEnv() []byte {
	if s := os.Getenv("JWT_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte("dev-only-secret")
}

// Context keys
type ContextKey string

const RoleKey ContextKey = "role"
const UserIDKey ContextKey = "userId"
const UsernameKey ContextKey = "username"

var Ctx = context.Background()
