package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedis(t *testing.T, prefix string) (*RedisEngine, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	engine, err := NewRedisEngine(RedisConfig{Addr: mr.Addr(), Prefix: prefix}, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { engine.Close() })
	return engine, mr
}

func TestRedisEngine_BasicOperations(t *testing.T) {
	engine, mr := newTestRedis(t, "jobdesk:test:")
	ctx := context.Background()

	if err := engine.Set(ctx, []byte("session"), []byte("payload")); err != nil {
		t.Fatal(err)
	}

	// Keys are namespaced by the prefix.
	raw, err := mr.Get("jobdesk:test:session")
	if err != nil {
		t.Fatalf("expected prefixed key in redis: %v", err)
	}
	if raw != "payload" {
		t.Errorf("raw value = %q, want payload", raw)
	}

	got, err := engine.Get(ctx, []byte("session"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "payload" {
		t.Errorf("Get() = %q, want payload", got)
	}

	if err := engine.Delete(ctx, []byte("session")); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Get(ctx, []byte("session")); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestRedisEngine_MissingKey(t *testing.T) {
	engine, _ := newTestRedis(t, "")

	_, err := engine.Get(context.Background(), []byte("absent"))
	if !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestNewRedisEngine_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := NewRedisEngine(RedisConfig{Addr: addr}, nil); err == nil {
		t.Error("expected error for unreachable redis")
	}
}
