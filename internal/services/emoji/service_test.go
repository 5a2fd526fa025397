package emoji

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zentra/emojigen/internal/services/generation"
	"github.com/zentra/emojigen/internal/services/media"
)

type harness struct {
	calls     []string
	store     *memStore
	users     *fakeUsers
	generator *fakeGenerator
	uploader  *fakeUploader
	service   *Service
}

func newHarness() *harness {
	h := &harness{}
	h.store = newMemStore()
	h.store.calls = &h.calls
	h.users = &fakeUsers{calls: &h.calls}
	h.generator = &fakeGenerator{url: "https://replicate.delivery/pbxt/out-0.png", calls: &h.calls}
	h.uploader = &fakeUploader{calls: &h.calls}
	h.service = NewService(h.store, h.users, h.generator, h.uploader)
	return h
}

func TestGenerateRunsStepsInOrder(t *testing.T) {
	h := newHarness()

	emoji, err := h.service.Generate(context.Background(), "user_1", "dog@example.com", "  a happy dog ")
	require.NoError(t, err)

	assert.Equal(t, []string{"user", "generate", "upload", "insert"}, h.calls)
	assert.Equal(t, "a happy dog", emoji.Prompt)
	assert.Equal(t, "user_1", emoji.UserID)
	assert.Equal(t, 0, emoji.LikesNum)
	assert.Equal(t, []string{"https://replicate.delivery/pbxt/out-0.png"}, h.uploader.sources)
	assert.Equal(t, "http://cdn.local/emojis/user_1/1.png", emoji.URL)
}

func TestGenerateStripsNullBytesFromPrompt(t *testing.T) {
	h := newHarness()

	emoji, err := h.service.Generate(context.Background(), "user_1", "dog@example.com", " a happy\x00 dog\n")
	require.NoError(t, err)

	assert.Equal(t, "a happy dog", emoji.Prompt)
	assert.Equal(t, []string{"a happy dog"}, h.generator.prompts)
}

func TestGenerateImageStripsNullBytesFromPrompt(t *testing.T) {
	h := newHarness()

	_, err := h.service.GenerateImage(context.Background(), "\x00taco ")
	require.NoError(t, err)
	assert.Equal(t, []string{"taco"}, h.generator.prompts)
}

func TestGenerateStoresBucketURLNotProviderURL(t *testing.T) {
	h := newHarness()

	emoji, err := h.service.Generate(context.Background(), "user_1", "dog@example.com", "taco")
	require.NoError(t, err)

	assert.NotEqual(t, h.generator.url, emoji.URL)
	assert.Contains(t, emoji.URL, "user_1/")
}

func TestGenerateBlankPromptSkipsEverything(t *testing.T) {
	h := newHarness()

	_, err := h.service.Generate(context.Background(), "user_1", "dog@example.com", "   ")
	assert.ErrorIs(t, err, generation.ErrEmptyPrompt)
	assert.Empty(t, h.calls)
}

func TestGenerateUserFailureStops(t *testing.T) {
	h := newHarness()
	h.users.err = errors.New("db down")

	_, err := h.service.Generate(context.Background(), "user_1", "dog@example.com", "cat")
	require.Error(t, err)
	assert.Equal(t, []string{"user"}, h.calls)
}

func TestGenerateProviderFailureSkipsUpload(t *testing.T) {
	h := newHarness()
	h.generator.err = &generation.ProviderError{Err: errors.New("model is busy")}

	_, err := h.service.Generate(context.Background(), "user_1", "dog@example.com", "cat")

	var providerErr *generation.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, []string{"user", "generate"}, h.calls)
}

func TestGenerateUploadFailureSkipsInsert(t *testing.T) {
	h := newHarness()
	h.uploader.err = fmt.Errorf("%w: bucket unreachable", media.ErrUploadFailed)

	_, err := h.service.Generate(context.Background(), "user_1", "dog@example.com", "cat")
	assert.ErrorIs(t, err, media.ErrUploadFailed)
	assert.Equal(t, []string{"user", "generate", "upload"}, h.calls)

	emojis, err := h.service.ListByUser(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Empty(t, emojis)
}

func TestGenerateInsertFailureDiscardsUpload(t *testing.T) {
	h := newHarness()
	h.store.insertErr = fmt.Errorf("%w: constraint", ErrPersistence)

	_, err := h.service.Generate(context.Background(), "user_1", "dog@example.com", "cat")
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, []string{"user", "generate", "upload", "insert", "discard"}, h.calls)
	assert.Equal(t, []string{"user_1/1.png"}, h.uploader.discarded)
}

func TestGeneratedEmojiAppearsOnceInList(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	first, err := h.service.Generate(ctx, "user_1", "dog@example.com", "rocket")
	require.NoError(t, err)
	second, err := h.service.Generate(ctx, "user_1", "dog@example.com", "taco")
	require.NoError(t, err)
	_, err = h.service.Generate(ctx, "user_2", "cat@example.com", "pizza")
	require.NoError(t, err)

	emojis, err := h.service.ListByUser(ctx, "user_1")
	require.NoError(t, err)
	require.Len(t, emojis, 2)
	assert.Equal(t, second.ID, emojis[0].ID)
	assert.Equal(t, first.ID, emojis[1].ID)
}

func TestGenerateImageDoesNotPersist(t *testing.T) {
	h := newHarness()

	url, err := h.service.GenerateImage(context.Background(), "a happy dog")
	require.NoError(t, err)

	assert.Equal(t, h.generator.url, url)
	assert.Equal(t, []string{"generate"}, h.calls)
}

func TestSetLikeThroughService(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	emoji, err := h.service.Generate(ctx, "user_1", "dog@example.com", "rocket")
	require.NoError(t, err)

	require.NoError(t, h.service.SetLike(ctx, emoji.ID, true))
	require.NoError(t, h.service.SetLike(ctx, emoji.ID, true))
	require.NoError(t, h.service.SetLike(ctx, emoji.ID, false))

	emojis, err := h.service.ListByUser(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, 1, emojis[0].LikesNum)
}
