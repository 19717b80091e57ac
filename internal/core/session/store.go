package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yndnr/jobdesk-go/internal/core/domain"
	"github.com/yndnr/jobdesk-go/internal/storage"
	"github.com/yndnr/jobdesk-go/pkg/crypto/adaptive"
)

// Key is the KV key of the session record.
const Key = "jobdesk/session"

// recordVersion is the only record layout this store reads.
const recordVersion = 1

// SealInfo is the HKDF context label used to derive the sealing key.
const SealInfo = "jobdesk/session/token"

var errMalformed = errors.New("malformed session record")

// record is the persisted form of a session.
type record struct {
	Version  int              `json:"v"`
	Identity *domain.Identity `json:"identity"`
	Token    string           `json:"token"`
	Sealed   bool             `json:"sealed"`
	SavedAt  int64            `json:"saved_at"`
}

// Store is the durable single-slot session store.
type Store struct {
	kv     storage.KVEngine
	cipher adaptive.Cipher
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithCipher seals tokens at rest with c.
func WithCipher(c adaptive.Cipher) Option {
	return func(s *Store) { s.cipher = c }
}

// WithLogger sets the logger used for load diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source for saved_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a store on kv.
func NewStore(kv storage.KVEngine, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sealed reports whether tokens are encrypted at rest.
func (s *Store) Sealed() bool {
	return s.cipher != nil
}

// Save persists sess, replacing any previous record.
func (s *Store) Save(ctx context.Context, sess *domain.Session) error {
	if !sess.IsAuthenticated() {
		return domain.ErrInvalidArgument.WithDetails("cannot save a session without identity")
	}
	if sess.Token == "" {
		return domain.ErrInvalidArgument.WithDetails("cannot save a session without token")
	}

	rec := record{
		Version:  recordVersion,
		Identity: sess.Identity,
		Token:    sess.Token,
		SavedAt:  s.now().UnixMilli(),
	}
	if s.cipher != nil {
		sealed, err := s.cipher.Encrypt([]byte(sess.Token), []byte(Key))
		if err != nil {
			return domain.ErrStorage.WithCause(fmt.Errorf("seal token: %w", err))
		}
		rec.Token = base64.StdEncoding.EncodeToString(sealed)
		rec.Sealed = true
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return domain.ErrStorage.WithCause(err)
	}
	if err := s.kv.Set(ctx, []byte(Key), data); err != nil {
		return domain.ErrStorage.WithCause(err)
	}
	return nil
}

// Load returns the saved session, or nil when there is none. It never
// fails: engine errors and malformed records are logged and read as absent.
func (s *Store) Load(ctx context.Context) *domain.Session {
	data, err := s.kv.Get(ctx, []byte(Key))
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			s.logger.Warn("session store unreadable, treating as logged out", "error", err)
		}
		return nil
	}

	sess, err := s.decode(data)
	if err != nil {
		s.logger.Warn("discarding stored session", "error", err)
		return nil
	}
	return sess
}

// Clear removes the session record. Clearing an empty store is a no-op.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, []byte(Key)); err != nil {
		return domain.ErrStorage.WithCause(err)
	}
	return nil
}

func (s *Store) decode(data []byte) (*domain.Session, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if rec.Version != recordVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", errMalformed, rec.Version)
	}
	if rec.Identity == nil {
		return nil, fmt.Errorf("%w: missing identity", errMalformed)
	}
	if err := rec.Identity.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if rec.Token == "" {
		return nil, fmt.Errorf("%w: missing token", errMalformed)
	}

	tok := rec.Token
	if rec.Sealed {
		if s.cipher == nil {
			return nil, fmt.Errorf("%w: token is sealed but no seal secret is configured", errMalformed)
		}
		blob, err := base64.StdEncoding.DecodeString(rec.Token)
		if err != nil {
			return nil, fmt.Errorf("%w: sealed token encoding: %v", errMalformed, err)
		}
		plain, err := s.cipher.Decrypt(blob, []byte(Key))
		if err != nil {
			return nil, fmt.Errorf("%w: unseal token: %v", errMalformed, err)
		}
		tok = string(plain)
	}

	return &domain.Session{
		Identity:  rec.Identity,
		Token:     tok,
		CreatedAt: rec.SavedAt,
	}, nil
}
