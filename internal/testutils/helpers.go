package testutils

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sonicwave/pulse/pkg/domain"
)

// SetupRedis starts an in-process Redis server and returns it with a
// connected client. Both are closed when the test ends.
func SetupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// Params builds committed session values.
func Params(frequency, intensity, minutes int) domain.Params {
	return domain.Params{FrequencyHz: frequency, Intensity: intensity, Minutes: minutes}
}
