package user

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/zentra/emojigen/internal/middleware"
	"github.com/zentra/emojigen/internal/utils"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/me", h.GetCurrentUser)

	return r
}

func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.RequireAuth(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.service.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			utils.RespondError(w, http.StatusNotFound, "User not found")
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Str("userId", userID).Msg("Failed to get user")
		utils.RespondError(w, http.StatusInternalServerError, "Failed to get user")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"user": user})
}
