package rdx

import (
	"mindline/globals"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var Conn = newClient()

func newClient() *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	return redis.NewClient(&redis.Options{Addr: addr})
}

// RdxSetNX sets key to val only if it does not exist. Used as a short-lived
// distributed lock.
func RdxSetNX(key, val string, ttl time.Duration) (bool, error) {
	return Conn.SetNX(globals.Ctx, key, val, ttl).Result()
}

func RdxSet(key, val string, ttl time.Duration) error {
	return Conn.Set(globals.Ctx, key, val, ttl).Err()
}

func RdxGet(key string) (string, error) {
	return Conn.Get(globals.Ctx, key).Result()
}

func RdxDel(key string) error {
	return Conn.Del(globals.Ctx, key).Err()
}
