package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/protwis/signprot/internal/domain/signature"
	"github.com/protwis/signprot/internal/infrastructure/monitoring/logging"
	"github.com/protwis/signprot/pkg/errors"
)

const (
	defaultSessionPrefix = "signprot:session:"
	defaultSessionTTL    = 24 * time.Hour
	signatureSuffix      = ":signature"
	matchSuffix          = ":match"
)

// SessionStore keeps signature bundles and match parameters per session id.
// Every read of a bundle slides its expiry.
type SessionStore struct {
	client *Client
	logger logging.Logger
	prefix string
	ttl    time.Duration
	group  singleflight.Group
}

type SessionOption func(*SessionStore)

func WithSessionPrefix(prefix string) SessionOption {
	return func(s *SessionStore) { s.prefix = prefix }
}

func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(s *SessionStore) { s.ttl = ttl }
}

func NewSessionStore(client *Client, log logging.Logger, opts ...SessionOption) *SessionStore {
	s := &SessionStore{
		client: client,
		logger: log,
		prefix: defaultSessionPrefix,
		ttl:    defaultSessionTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SessionStore) key(sessionID, suffix string) string {
	return s.prefix + sessionID + suffix
}

func (s *SessionStore) SaveSignature(ctx context.Context, sessionID string, bundle *signature.Bundle) error {
	raw, err := bundle.Encode()
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(sessionID, signatureSuffix), raw, s.ttl).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to store signature")
	}
	s.logger.Debug("Stored signature bundle",
		logging.String("session_id", sessionID),
		logging.Int("bytes", len(raw)))
	return nil
}

// LoadSignature collapses concurrent loads of one session into a single
// round trip. The shared round trip is detached from the caller's
// cancellation so one abandoned request cannot fail the others waiting on it.
func (s *SessionStore) LoadSignature(ctx context.Context, sessionID string) (*signature.Bundle, error) {
	key := s.key(sessionID, signatureSuffix)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		ctx := context.WithoutCancel(ctx)
		raw, err := s.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return nil, errors.New(errors.ErrCodeNoSignature, "no signature in session")
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to load signature")
		}
		bundle, err := signature.DecodeBundle(raw)
		if err != nil {
			return nil, err
		}
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			s.logger.Warn("Failed to refresh session expiry", logging.String("session_id", sessionID), logging.Err(err))
		}
		return bundle, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*signature.Bundle), nil
}

func (s *SessionStore) SaveMatchParams(ctx context.Context, sessionID string, params signature.MatchParams) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode match parameters")
	}
	if err := s.client.Set(ctx, s.key(sessionID, matchSuffix), raw, s.ttl).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to store match parameters")
	}
	return nil
}

// LoadMatchParams returns nil without error when none were stored.
func (s *SessionStore) LoadMatchParams(ctx context.Context, sessionID string) (*signature.MatchParams, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID, matchSuffix)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to load match parameters")
	}
	var params signature.MatchParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStaleSession, "stored match parameters are unreadable")
	}
	return &params, nil
}

var _ signature.SessionStore = (*SessionStore)(nil)
