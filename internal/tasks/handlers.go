package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"github.com/James-Kabz/CLIENT-PORTAL/internal/mailer"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/token"
)

type Handler struct {
	db           *gorm.DB
	logger       *slog.Logger
	mailer       mailer.Mailer
	tokenService *token.Service
}

func NewHandler(db *gorm.DB, logger *slog.Logger, m mailer.Mailer) *Handler {
	return &Handler{
		db:           db,
		logger:       logger,
		mailer:       m,
		tokenService: token.NewService(db),
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeWelcomeEmail, h.HandleWelcomeEmail)
	mux.HandleFunc(TypeTokenSweep, h.HandleTokenSweep)
}

func (h *Handler) HandleWelcomeEmail(ctx context.Context, t *asynq.Task) error {
	var payload WelcomeEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := h.mailer.SendWelcome(ctx, payload.Email, payload.Name); err != nil {
		h.logger.Error("welcome email failed", "email", payload.Email, "error", err)
		return err
	}

	h.logger.Info("welcome email sent", "email", payload.Email)
	return nil
}

func (h *Handler) HandleTokenSweep(ctx context.Context, t *asynq.Task) error {
	deleted, err := h.tokenService.DeleteExpired(ctx)
	if err != nil {
		h.logger.Error("token sweep failed", "error", err)
		return err
	}

	if deleted > 0 {
		h.logger.Info("expired tokens removed", "count", deleted)
	}
	return nil
}
