package question

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/copycats/copycat-api/internal/airtable"
)

type mockStore struct {
	mock.Mock
}

var _ Store = (*mockStore)(nil)

func (m *mockStore) FindQuestion(ctx context.Context, key Key, fields []string) (Question, error) {
	args := m.Called(ctx, key, fields)
	return args.Get(0).(Question), args.Error(1)
}

func (m *mockStore) FindQuestions(ctx context.Context, keys []Key) ([]Question, error) {
	args := m.Called(ctx, keys)
	return args.Get(0).([]Question), args.Error(1)
}

func (m *mockStore) ListTestNumbers(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockStore) ListQuestionNumbers(ctx context.Context, testNumber string) ([]string, error) {
	args := m.Called(ctx, testNumber)
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockStore) ListSkillNames(ctx context.Context, limit int) ([]string, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockStore) QuestionsBySkill(ctx context.Context, skillName string, limit int) ([]Question, error) {
	args := m.Called(ctx, skillName, limit)
	return args.Get(0).([]Question), args.Error(1)
}

func (m *mockStore) FindClones(ctx context.Context, predicate airtable.Formula, limit int) ([]Clone, error) {
	args := m.Called(ctx, predicate, limit)
	return args.Get(0).([]Clone), args.Error(1)
}

func (m *mockStore) CreateClone(ctx context.Context, fields CloneFields) (string, error) {
	args := m.Called(ctx, fields)
	return args.String(0), args.Error(1)
}

type memoryCache struct {
	mu    sync.Mutex
	store map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{store: map[string][]byte{}}
}

func (c *memoryCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dst)
}

func (c *memoryCache) Set(_ context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = data
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.store, k)
	}
	return nil
}
