package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrInvalidRefresh é retornado quando o token de refresh é inválido ou expirado.
	ErrInvalidRefresh = errors.New("refresh token inválido")
)

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	SAdd(ctx context.Context, key string, members ...any) *redis.IntCmd
	SRem(ctx context.Context, key string, members ...any) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// SessionStore guarda refresh tokens no Redis. Só o hash do token é persistido.
type SessionStore struct {
	redis redisCommander
	ttl   time.Duration
}

// NewSessionStore cria o store com o TTL de refresh configurado.
func NewSessionStore(client redisCommander, ttl time.Duration) *SessionStore {
	return &SessionStore{redis: client, ttl: ttl}
}

// GenerateRefreshToken cria token aleatório seguro e seu hash persistível.
func GenerateRefreshToken() (raw string, hashed string, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}

	raw = base64.RawURLEncoding.EncodeToString(buf)
	hashed = HashRefreshToken(raw)
	return raw, hashed, nil
}

// HashRefreshToken produz hash SHA-256 base64.
func HashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// RefreshRedisKey monta chave única para guardar estado do refresh.
func RefreshRedisKey(hash string) string {
	return fmt.Sprintf("refresh:%s:%s", Audience, hash)
}

// UserSessionsKey indexa os refresh ativos de um usuário.
func UserSessionsKey(usuarioID uuid.UUID) string {
	return fmt.Sprintf("sessoes:%s", usuarioID)
}

// Issue emite um refresh token para o usuário.
func (s *SessionStore) Issue(ctx context.Context, usuarioID uuid.UUID) (string, time.Time, error) {
	raw, hash, err := GenerateRefreshToken()
	if err != nil {
		return "", time.Time{}, err
	}
	expires := time.Now().Add(s.ttl)

	if err := s.redis.Set(ctx, RefreshRedisKey(hash), usuarioID.String(), s.ttl).Err(); err != nil {
		return "", time.Time{}, err
	}
	index := UserSessionsKey(usuarioID)
	if err := s.redis.SAdd(ctx, index, hash).Err(); err != nil {
		return "", time.Time{}, err
	}
	if err := s.redis.Expire(ctx, index, s.ttl).Err(); err != nil {
		return "", time.Time{}, err
	}
	return raw, expires, nil
}

// Resolve devolve o dono do refresh token.
func (s *SessionStore) Resolve(ctx context.Context, raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, ErrInvalidRefresh
	}
	val, err := s.redis.Get(ctx, RefreshRedisKey(HashRefreshToken(raw))).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrInvalidRefresh
	}
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, ErrInvalidRefresh
	}
	return id, nil
}

// Revoke invalida um refresh token específico.
func (s *SessionStore) Revoke(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	hash := HashRefreshToken(raw)
	key := RefreshRedisKey(hash)
	val, err := s.redis.Get(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	if err := s.redis.Del(ctx, key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	if id, perr := uuid.Parse(val); perr == nil {
		if err := s.redis.SRem(ctx, UserSessionsKey(id), hash).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
	}
	return nil
}

// RevokeAll encerra todas as sessões do usuário.
func (s *SessionStore) RevokeAll(ctx context.Context, usuarioID uuid.UUID) error {
	index := UserSessionsKey(usuarioID)
	hashes, err := s.redis.SMembers(ctx, index).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	keys := make([]string, 0, len(hashes)+1)
	for _, h := range hashes {
		keys = append(keys, RefreshRedisKey(h))
	}
	keys = append(keys, index)
	if err := s.redis.Del(ctx, keys...).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}
