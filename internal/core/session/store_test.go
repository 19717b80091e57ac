package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/yndnr/jobdesk-go/internal/core/domain"
	"github.com/yndnr/jobdesk-go/internal/storage"
	"github.com/yndnr/jobdesk-go/pkg/crypto/adaptive"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// brokenKV fails every operation.
type brokenKV struct{}

var errDisk = errors.New("disk on fire")

func (brokenKV) Get(context.Context, []byte) ([]byte, error)     { return nil, errDisk }
func (brokenKV) Set(context.Context, []byte, []byte) error       { return errDisk }
func (brokenKV) Delete(context.Context, []byte) error            { return errDisk }
func (brokenKV) Stats(context.Context) (*storage.KVStats, error) { return nil, errDisk }
func (brokenKV) Close() error                                    { return nil }

func newSession(role domain.Role) *domain.Session {
	return domain.NewSession(domain.Identity{
		ID:    "u-1",
		Name:  "Ada",
		Email: "ada@example.com",
		Role:  role,
	}, "tok-123")
}

func TestStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	saved := time.UnixMilli(1_700_000_000_000)
	s := NewStore(storage.NewMemoryEngine(), WithLogger(quiet), WithClock(func() time.Time { return saved }))

	if got := s.Load(ctx); got != nil {
		t.Fatalf("Load() on empty store = %+v, want nil", got)
	}

	if err := s.Save(ctx, newSession(domain.RoleCompany)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got := s.Load(ctx)
	if !got.IsAuthenticated() {
		t.Fatal("Load() returned no session after Save()")
	}
	if got.Identity.Role != domain.RoleCompany || got.Identity.Email != "ada@example.com" {
		t.Errorf("identity = %+v", got.Identity)
	}
	if got.Token != "tok-123" {
		t.Errorf("token = %q, want tok-123", got.Token)
	}
	if got.CreatedAt != saved.UnixMilli() {
		t.Errorf("CreatedAt = %d, want %d", got.CreatedAt, saved.UnixMilli())
	}
}

func TestStore_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemoryEngine(), WithLogger(quiet))

	if err := s.Save(ctx, newSession(domain.RoleUser)); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, newSession(domain.RoleAdmin)); err != nil {
		t.Fatal(err)
	}
	if got := s.Load(ctx).Role(); got != domain.RoleAdmin {
		t.Errorf("role = %q, want admin", got)
	}
}

func TestStore_SaveRejectsAnonymous(t *testing.T) {
	s := NewStore(storage.NewMemoryEngine(), WithLogger(quiet))

	tests := []struct {
		name string
		sess *domain.Session
	}{
		{"nil", nil},
		{"no identity", &domain.Session{Token: "stray"}},
		{"no token", &domain.Session{Identity: &domain.Identity{ID: "1", Role: domain.RoleUser}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Save(context.Background(), tt.sess)
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("Save() error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemoryEngine(), WithLogger(quiet))

	if err := s.Save(ctx, newSession(domain.RoleUser)); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if s.Load(ctx) != nil {
		t.Error("Load() after Clear() should be nil")
	}
	// Idempotent.
	if err := s.Clear(ctx); err != nil {
		t.Errorf("second Clear() error = %v", err)
	}
}

func TestStore_MalformedIsAbsent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{{{`},
		{"wrong version", `{"v":2,"identity":{"id":"1","role":"user"},"token":"t"}`},
		{"missing identity", `{"v":1,"token":"t"}`},
		{"invalid role", `{"v":1,"identity":{"id":"1","role":"root"},"token":"t"}`},
		{"missing token", `{"v":1,"identity":{"id":"1","role":"user"}}`},
		{"sealed without cipher", `{"v":1,"identity":{"id":"1","role":"user"},"token":"AAAA","sealed":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			kv := storage.NewMemoryEngine()
			if err := kv.Set(ctx, []byte(Key), []byte(tt.raw)); err != nil {
				t.Fatal(err)
			}
			s := NewStore(kv, WithLogger(quiet))
			if got := s.Load(ctx); got != nil {
				t.Errorf("Load() = %+v, want nil", got)
			}
		})
	}
}

func TestStore_EngineFailure(t *testing.T) {
	ctx := context.Background()
	s := NewStore(brokenKV{}, WithLogger(quiet))

	if s.Load(ctx) != nil {
		t.Error("Load() on failing engine should be nil")
	}
	if err := s.Save(ctx, newSession(domain.RoleUser)); !errors.Is(err, domain.ErrStorage) {
		t.Errorf("Save() error = %v, want ErrStorage", err)
	}
	if err := s.Clear(ctx); !errors.Is(err, domain.ErrStorage) {
		t.Errorf("Clear() error = %v, want ErrStorage", err)
	}
}

func TestStore_Sealed(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryEngine()

	c, err := adaptive.FromSecret([]byte("seal-secret"), SealInfo)
	if err != nil {
		t.Fatal(err)
	}
	s := NewStore(kv, WithCipher(c), WithLogger(quiet))
	if !s.Sealed() {
		t.Fatal("Sealed() = false")
	}

	if err := s.Save(ctx, newSession(domain.RoleUser)); err != nil {
		t.Fatal(err)
	}

	raw, err := kv.Get(ctx, []byte(Key))
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(raw, []byte("tok-123")) {
		t.Error("sealed record must not contain the plaintext token")
	}

	if got := s.Load(ctx); got == nil || got.Token != "tok-123" {
		t.Errorf("Load() = %+v, want token tok-123", got)
	}

	// A store with a different secret cannot open the record.
	other, _ := adaptive.FromSecret([]byte("another-secret"), SealInfo)
	if got := NewStore(kv, WithCipher(other), WithLogger(quiet)).Load(ctx); got != nil {
		t.Errorf("Load() with wrong secret = %+v, want nil", got)
	}
}
