package emoji

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/zentra/emojigen/internal/middleware"
	"github.com/zentra/emojigen/internal/services/generation"
	"github.com/zentra/emojigen/internal/utils"
)

const (
	msgPromptRequired   = "Prompt is required"
	msgPromptTooLong    = "Prompt is too long"
	msgContentPolicy    = "Your prompt was rejected by the content filter. Please try a different prompt."
	msgTimeout          = "Image generation timed out"
	msgExtraction       = "Failed to extract image URL from generation result"
	msgInternal         = "Internal server error"
	msgInvalidBody      = "Invalid request body"
	msgEmojiIDRequired  = "Emoji ID is required"
	msgInvalidEmojiID   = "Invalid emoji ID"
	msgUserInfoNotFound = "User information not found"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes serves /api/emoji. Callers mount it behind AuthMiddleware; generateLimit
// wraps only the generate route.
func (h *Handler) Routes(generateLimit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.With(generateLimit).Post("/generate", h.Generate)
	r.Post("/like", h.Like)
	r.Get("/list", h.List)

	return r
}

type generateRequest struct {
	Prompt string `json:"prompt" validate:"notblank,max=1000"`
}

type likeRequest struct {
	EmojiID string `json:"emojiId" validate:"required,uuid"`
	Like    bool   `json:"like"`
}

// Generate creates an emoji for the signed-in user
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.RequireAuth(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	email, ok := middleware.GetEmail(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, msgUserInfoNotFound)
		return
	}

	var req generateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if msg, ok := promptProblem(req); !ok {
		utils.RespondError(w, http.StatusBadRequest, msg)
		return
	}

	emoji, err := h.service.Generate(r.Context(), userID, email, req.Prompt)
	if err != nil {
		status, msg := generationFailure(err)
		zerolog.Ctx(r.Context()).Error().Err(err).Str("userId", userID).Msg("Emoji generation failed")
		utils.RespondError(w, status, msg)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"emoji": emoji})
}

// Like adjusts an emoji's like count by one
func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.RequireAuth(r.Context()); err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req likeRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if err := utils.Validate(req); err != nil {
		msg := msgInvalidEmojiID
		if _, tag := utils.FirstValidationTag(err); tag == "required" {
			msg = msgEmojiIDRequired
		}
		utils.RespondValidationError(w, msg, utils.FormatValidationErrors(err))
		return
	}

	emojiID, err := uuid.Parse(req.EmojiID)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, msgInvalidEmojiID)
		return
	}

	if err := h.service.SetLike(r.Context(), emojiID, req.Like); err != nil {
		if errors.Is(err, ErrEmojiNotFound) {
			utils.RespondError(w, http.StatusNotFound, "Emoji not found")
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Str("emojiId", req.EmojiID).Msg("Failed to update likes")
		utils.RespondError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// List returns the signed-in user's emojis, newest first
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.RequireAuth(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	emojis, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("userId", userID).Msg("Failed to list emojis")
		utils.RespondError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"emojis": emojis})
}

type generateImageResponse struct {
	ImageURL string `json:"imageUrl"`
	Prompt   string `json:"prompt"`
	Success  bool   `json:"success"`
}

// GenerateImage is the unauthenticated variant: it returns the provider URL
// without storing anything.
func (h *Handler) GenerateImage(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if msg, ok := promptProblem(req); !ok {
		utils.RespondError(w, http.StatusBadRequest, msg)
		return
	}

	imageURL, err := h.service.GenerateImage(r.Context(), req.Prompt)
	if err != nil {
		status, msg := generationFailure(err)
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Standalone generation failed")
		utils.RespondFailure(w, status, msg)
		return
	}

	utils.RespondJSON(w, http.StatusOK, generateImageResponse{
		ImageURL: imageURL,
		Prompt:   req.Prompt,
		Success:  true,
	})
}

func promptProblem(req generateRequest) (string, bool) {
	err := utils.Validate(req)
	if err == nil {
		return "", true
	}
	if _, tag := utils.FirstValidationTag(err); tag == "max" {
		return msgPromptTooLong, false
	}
	return msgPromptRequired, false
}

// generationFailure maps a generation-flow error to its status and client message.
func generationFailure(err error) (int, string) {
	var providerErr *generation.ProviderError
	switch {
	case errors.Is(err, generation.ErrEmptyPrompt):
		return http.StatusBadRequest, msgPromptRequired
	case errors.Is(err, generation.ErrMissingCredential):
		return http.StatusInternalServerError, "Missing API token - please configure REPLICATE_API_TOKEN"
	case errors.Is(err, generation.ErrExtraction):
		return http.StatusInternalServerError, msgExtraction
	case errors.Is(err, generation.ErrContentPolicy):
		return http.StatusInternalServerError, msgContentPolicy
	case errors.Is(err, generation.ErrProviderTimeout):
		return http.StatusInternalServerError, msgTimeout
	case errors.As(err, &providerErr):
		return http.StatusInternalServerError, providerErr.Error()
	default:
		return http.StatusInternalServerError, msgInternal
	}
}
