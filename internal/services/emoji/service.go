package emoji

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/zentra/emojigen/internal/models"
	"github.com/zentra/emojigen/internal/services/generation"
	"github.com/zentra/emojigen/internal/services/media"
	"github.com/zentra/emojigen/internal/utils"
)

// UserProvisioner is the subset of user.Service we depend on
type UserProvisioner interface {
	CreateOrGetUser(ctx context.Context, id, email string) (*models.User, error)
}

// ImageUploader is the subset of media.Uploader we depend on
type ImageUploader interface {
	Upload(ctx context.Context, sourceURL, userID string) (*media.UploadResult, error)
	Discard(ctx context.Context, key string) error
}

type Service struct {
	store     Store
	users     UserProvisioner
	generator generation.Generator
	uploader  ImageUploader
}

func NewService(store Store, users UserProvisioner, generator generation.Generator, uploader ImageUploader) *Service {
	return &Service{
		store:     store,
		users:     users,
		generator: generator,
		uploader:  uploader,
	}
}

// Generate runs the full creation flow: make sure the user row exists, call
// the provider, copy the image into our bucket, then record it. Each step only
// runs once the previous one succeeded, so a record never holds a provider URL.
func (s *Service) Generate(ctx context.Context, userID, email, prompt string) (*models.Emoji, error) {
	prompt = utils.SanitizeString(prompt)
	if prompt == "" {
		return nil, generation.ErrEmptyPrompt
	}

	logger := zerolog.Ctx(ctx).With().Str("userId", userID).Logger()

	if _, err := s.users.CreateOrGetUser(ctx, userID, email); err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	imageURL, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	upload, err := s.uploader.Upload(ctx, imageURL, userID)
	if err != nil {
		return nil, err
	}

	emoji, err := s.store.Insert(ctx, userID, prompt, upload.URL)
	if err != nil {
		if discardErr := s.uploader.Discard(ctx, upload.Key); discardErr != nil {
			logger.Warn().Err(discardErr).Str("key", upload.Key).Msg("Failed to remove orphaned emoji image")
		}
		return nil, err
	}

	logger.Info().Str("emojiId", emoji.ID.String()).Msg("Emoji created")
	return emoji, nil
}

// GenerateImage calls the provider only and returns its URL. Nothing is stored.
func (s *Service) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return s.generator.Generate(ctx, utils.SanitizeString(prompt))
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]models.Emoji, error) {
	return s.store.ListByUser(ctx, userID)
}

func (s *Service) SetLike(ctx context.Context, emojiID uuid.UUID, like bool) error {
	return s.store.SetLike(ctx, emojiID, like)
}
