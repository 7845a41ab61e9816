package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sidequest-rpg/sidequest_api/config"
	"github.com/sidequest-rpg/sidequest_api/dto"
	"github.com/sidequest-rpg/sidequest_api/shared"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(db))
	return db
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(s string) *clock {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &clock{now: t.UTC()}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeOracle struct {
	mu          sync.Mutex
	game        *config.Game
	quests      []dto.GeneratedQuest
	fallback    bool
	verdict     dto.Verdict
	honor       bool
	requested   []int
	verifyCalls int
}

func newFakeOracle(game *config.Game) *fakeOracle {
	return &fakeOracle{
		game:    game,
		verdict: dto.Verdict{Success: true, Score: 60, Comment: "Nice!"},
	}
}

func (f *fakeOracle) GenerateQuests(_ context.Context, _ string, count int) ([]dto.GeneratedQuest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, count)

	if f.quests != nil {
		if count < len(f.quests) {
			return f.quests[:count], f.fallback
		}
		return f.quests, f.fallback
	}

	out := make([]dto.GeneratedQuest, 0, count)
	for _, q := range f.game.FallbackQuests(count) {
		out = append(out, dto.GeneratedQuest{Title: q.Title, Description: q.Description, Difficulty: q.Difficulty, XPReward: f.game.XPReward(q.Difficulty)})
	}
	return out, true
}

func (f *fakeOracle) VerifyProof(context.Context, string, dto.Proof) (dto.Verdict, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls++
	return f.verdict, f.honor
}

type fakeProofStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	failPut error
}

func newFakeProofStore() *fakeProofStore {
	return &fakeProofStore{objects: map[string][]byte{}}
}

func (f *fakeProofStore) UploadProof(_ context.Context, name string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut != nil {
		return f.failPut
	}
	f.objects[name] = data
	return nil
}

func (f *fakeProofStore) DeleteProof(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, name)
	f.deleted = append(f.deleted, name)
	return nil
}

func (f *fakeProofStore) ProofURL(_ context.Context, name string) (string, error) {
	return "https://proofs.example.com/" + name, nil
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]bool{}}
}

func (f *fakeLocker) AcquireLock(_ context.Context, key string, _ time.Duration) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[key] {
		return nil, ErrLockHeld
	}
	f.held[key] = true
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.held, key)
	}, nil
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]string
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]string{}}
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := shared.JSONAPI.MarshalToString(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	m.sets++
	return nil
}

func (m *memoryCache) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	m.mu.Lock()
	raw, ok := m.entries[key]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, shared.JSONAPI.UnmarshalFromString(raw, dest)
}

func (m *memoryCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

type recordingInvalidator struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingInvalidator) InvalidateCard(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, userID)
}
