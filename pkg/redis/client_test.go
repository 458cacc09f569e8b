package redis

import (
	"testing"

	"github.com/mozpaylabs/mozpay-backend/pkg/config"
)

func TestBuildKeyNamespacesAndSkipsEmptyParts(t *testing.T) {
	c := &Client{}
	if got := c.VerificationSessionKey("abc"); got != "mz:otp:session:abc" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := c.PhoneLockKey("h1"); got != "mz:lock:phone:h1" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := c.IdempotencyKey("checkout", ""); got != "mz:idempotency:checkout" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestOptionsFromConfigRequiresTarget(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error when neither url nor address is set")
	}
}

func TestOptionsFromConfigPrefersURL(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "localhost:6379" {
		t.Fatalf("unexpected addr %q", opts.Addr)
	}
	if opts.DB != 2 {
		t.Fatalf("unexpected db %d", opts.DB)
	}
}

func TestOptionsFromConfigUsesAddressFallback(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{Address: "redis.internal:6380", Password: "pw", DB: 1, PoolSize: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "redis.internal:6380" || opts.Password != "pw" || opts.DB != 1 || opts.PoolSize != 5 {
		t.Fatalf("options not mapped: %+v", opts)
	}
}
