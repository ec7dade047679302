package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/designden/designden-api/config"
	"github.com/redis/go-redis/v9"
)

// Verification code purposes
const (
	PurposeLogin    = "login"
	PurposeDelivery = "delivery"
)

// CodeStore is a TTL'd store for one-time verification codes keyed by
// user and purpose. Backed by Redis so codes survive process restarts
// and are shared across instances.
type CodeStore interface {
	Put(ctx context.Context, userID uint, purpose, code string, ttl time.Duration) error
	Get(ctx context.Context, userID uint, purpose string) (string, error)
	Delete(ctx context.Context, userID uint, purpose string) error
}

// ErrCodeNotFound is returned when no code exists (or it has expired)
var ErrCodeNotFound = &ServiceError{Code: CodeNotFound, Message: "verification code not found or expired"}

var codeStoreInstance CodeStore

// InitCodeStore initializes the Redis-backed code store. When REDIS_URL
// is not configured the store stays nil and verification endpoints
// report it unavailable.
func InitCodeStore(cfg *config.Config) (CodeStore, error) {
	if cfg.RedisURL == "" {
		codeStoreInstance = nil
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	codeStoreInstance = &RedisCodeStore{client: redis.NewClient(opts)}
	return codeStoreInstance, nil
}

// GetCodeStore returns the initialized code store instance (may be nil)
func GetCodeStore() CodeStore {
	return codeStoreInstance
}

// SetCodeStore sets the code store instance (primarily for testing)
func SetCodeStore(store CodeStore) {
	codeStoreInstance = store
}

// RedisCodeStore stores codes as plain string values with a TTL
type RedisCodeStore struct {
	client *redis.Client
}

func codeKey(userID uint, purpose string) string {
	return fmt.Sprintf("verify:%d:%s", userID, purpose)
}

// Put stores the code, replacing any previous one for the same key
func (s *RedisCodeStore) Put(ctx context.Context, userID uint, purpose, code string, ttl time.Duration) error {
	return s.client.Set(ctx, codeKey(userID, purpose), code, ttl).Err()
}

// Get returns the stored code, or ErrCodeNotFound if absent or expired
func (s *RedisCodeStore) Get(ctx context.Context, userID uint, purpose string) (string, error) {
	code, err := s.client.Get(ctx, codeKey(userID, purpose)).Result()
	if err == redis.Nil {
		return "", ErrCodeNotFound
	}
	if err != nil {
		return "", err
	}
	return code, nil
}

// Delete removes the code, making it single-use
func (s *RedisCodeStore) Delete(ctx context.Context, userID uint, purpose string) error {
	return s.client.Del(ctx, codeKey(userID, purpose)).Err()
}

// GenerateCode returns a random 6-digit numeric code
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// MockCodeStore is an in-memory CodeStore for testing
type MockCodeStore struct {
	mu    sync.Mutex
	codes map[string]mockCode
}

type mockCode struct {
	code      string
	expiresAt time.Time
}

// NewMockCodeStore creates a new in-memory code store
func NewMockCodeStore() *MockCodeStore {
	return &MockCodeStore{codes: make(map[string]mockCode)}
}

// SetAsMockForTesting sets this mock as the global code store instance
func (m *MockCodeStore) SetAsMockForTesting() {
	SetCodeStore(m)
}

// Put stores the code in memory
func (m *MockCodeStore) Put(_ context.Context, userID uint, purpose, code string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[codeKey(userID, purpose)] = mockCode{code: code, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Get returns the stored code, honoring expiry
func (m *MockCodeStore) Get(_ context.Context, userID uint, purpose string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.codes[codeKey(userID, purpose)]
	if !ok || time.Now().After(entry.expiresAt) {
		return "", ErrCodeNotFound
	}
	return entry.code, nil
}

// Delete removes the code
func (m *MockCodeStore) Delete(_ context.Context, userID uint, purpose string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.codes, codeKey(userID, purpose))
	return nil
}

// Expire forces the code for the key to be expired (for testing)
func (m *MockCodeStore) Expire(userID uint, purpose string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.codes[codeKey(userID, purpose)]; ok {
		entry.expiresAt = time.Now().Add(-time.Minute)
		m.codes[codeKey(userID, purpose)] = entry
	}
}
