package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
	sets map[string]map[string]struct{}
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string), sets: make(map[string]map[string]struct{})}
}

func (m *mockStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *mockStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
		delete(m.sets, key)
	}
	return nil
}

func (m *mockStore) SAdd(ctx context.Context, key string, ttl time.Duration, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sets[key] == nil {
		m.sets[key] = make(map[string]struct{})
	}
	for _, member := range members {
		m.sets[key][member] = struct{}{}
	}
	return nil
}

func (m *mockStore) SMembers(ctx context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []string{}
	for member := range m.sets[key] {
		out = append(out, member)
	}
	return out, nil
}

func (m *mockStore) SRem(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range members {
		delete(m.sets[key], member)
	}
	return nil
}

func (m *mockStore) AccessSessionKey(accessID string) string {
	return fmt.Sprintf("sess:%s", accessID)
}

func (m *mockStore) UserSessionsKey(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}

func newTestManager(store *mockStore) *Manager {
	return &Manager{store: store, keyer: store, ttl: time.Hour}
}

func TestManagerGenerateAndRotate(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)

	ctx := context.Background()
	userID := uuid.New()
	accessID := "access-123"
	token, err := manager.Generate(ctx, userID, accessID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	stored := store.data[store.AccessSessionKey(accessID)]
	if strings.Contains(stored, token) {
		t.Fatal("refresh token must not be stored in plain text")
	}
	if stored != userID.String()+"|"+digest(token) {
		t.Fatalf("unexpected session record %q", stored)
	}

	if _, _, err := manager.Rotate(ctx, userID, accessID, "wrong"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid refresh token error, got %v", err)
	}
	if _, _, err := manager.Rotate(ctx, uuid.New(), accessID, token); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected other user to be rejected, got %v", err)
	}

	newAccessID, newToken, err := manager.Rotate(ctx, userID, accessID, token)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if _, exists := store.data[store.AccessSessionKey(accessID)]; exists {
		t.Fatalf("old access key left behind")
	}
	if stored := store.data[store.AccessSessionKey(newAccessID)]; !strings.HasSuffix(stored, "|"+digest(newToken)) {
		t.Fatalf("expected new token digest stored, got %q", stored)
	}
	if _, _, err := manager.Rotate(ctx, userID, accessID, token); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("a rotated refresh token must not be reusable, got %v", err)
	}
	members, _ := store.SMembers(ctx, store.UserSessionsKey(userID.String()))
	if len(members) != 1 || members[0] != newAccessID {
		t.Fatalf("expected only new access id tracked, got %v", members)
	}
}

func TestManagerRevokeAll(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	ctx := context.Background()
	userID := uuid.New()

	for _, id := range []string{"a", "b"} {
		if _, err := manager.Generate(ctx, userID, id); err != nil {
			t.Fatalf("generate %s: %v", id, err)
		}
	}
	if err := manager.RevokeAll(ctx, userID); err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	for _, id := range []string{"a", "b"} {
		ok, err := manager.HasSession(ctx, id)
		if err != nil {
			t.Fatalf("has session: %v", err)
		}
		if ok {
			t.Fatalf("expected session %s revoked", id)
		}
	}
}

func TestManagerHasSession(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	ctx := context.Background()

	if ok, err := manager.HasSession(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing session, got ok=%v err=%v", ok, err)
	}
	if _, err := manager.Generate(ctx, uuid.New(), "present"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if ok, err := manager.HasSession(ctx, "present"); err != nil || !ok {
		t.Fatalf("expected session, got ok=%v err=%v", ok, err)
	}
	if _, err := manager.HasSession(ctx, " "); err == nil {
		t.Fatal("expected error for blank access id")
	}
}

func TestParseRecordRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "no-separator", "not-a-uuid|abc", uuid.NewString() + "|"} {
		if _, ok := parseRecord(raw); ok {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}
