package emoji

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zentra/emojigen/internal/models"
	"github.com/zentra/emojigen/internal/services/media"
	"github.com/zentra/emojigen/pkg/storage"
)

// memStore is an in-memory Store
type memStore struct {
	mu        sync.Mutex
	emojis    []models.Emoji
	clock     time.Time
	insertErr error
	calls     *[]string
}

func newMemStore() *memStore {
	return &memStore{clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *memStore) Insert(ctx context.Context, userID, prompt, url string) (*models.Emoji, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record(m.calls, "insert")
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	m.clock = m.clock.Add(time.Second)
	e := models.Emoji{ID: uuid.New(), UserID: userID, Prompt: prompt, URL: url, CreatedAt: m.clock}
	m.emojis = append(m.emojis, e)
	return &e, nil
}

func (m *memStore) ListByUser(ctx context.Context, userID string) ([]models.Emoji, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Emoji{}
	for _, e := range m.emojis {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) SetLike(ctx context.Context, emojiID uuid.UUID, like bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.emojis {
		if m.emojis[i].ID == emojiID {
			m.emojis[i].LikesNum = NextLikes(m.emojis[i].LikesNum, like)
			return nil
		}
	}
	return ErrEmojiNotFound
}

type fakeUsers struct {
	err   error
	seen  map[string]string
	calls *[]string
}

func (f *fakeUsers) CreateOrGetUser(ctx context.Context, id, email string) (*models.User, error) {
	record(f.calls, "user")
	if f.err != nil {
		return nil, f.err
	}
	if f.seen == nil {
		f.seen = map[string]string{}
	}
	if _, ok := f.seen[id]; !ok {
		f.seen[id] = email
	}
	return &models.User{ID: id, Email: f.seen[id], Credits: 10}, nil
}

type fakeGenerator struct {
	url     string
	err     error
	prompts []string
	calls   *[]string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	record(f.calls, "generate")
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

type fakeUploader struct {
	err       error
	sources   []string
	discarded []string
	calls     *[]string
}

func (f *fakeUploader) Upload(ctx context.Context, sourceURL, userID string) (*media.UploadResult, error) {
	record(f.calls, "upload")
	f.sources = append(f.sources, sourceURL)
	if f.err != nil {
		return nil, f.err
	}
	key := fmt.Sprintf("%s/%d.png", userID, len(f.sources))
	return &media.UploadResult{Key: key, URL: "http://cdn.local/emojis/" + key, ContentType: "image/png"}, nil
}

func (f *fakeUploader) Discard(ctx context.Context, key string) error {
	record(f.calls, "discard")
	f.discarded = append(f.discarded, key)
	return nil
}

// memObjects is an in-memory storage.ObjectStore
type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memObjects) Put(ctx context.Context, key string, reader io.Reader, size int64, opts storage.PutOptions) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = data
	return "http://cdn.local/emojis/" + key, nil
}

func (m *memObjects) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return errors.New("no such object")
	}
	delete(m.objects, key)
	return nil
}

func record(calls *[]string, step string) {
	if calls != nil {
		*calls = append(*calls, step)
	}
}
