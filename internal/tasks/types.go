package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeWelcomeEmail = "email:welcome"
	TypeTokenSweep   = "token:sweep"
)

// WelcomeEmailPayload contains the data for a welcome email task
type WelcomeEmailPayload struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func NewWelcomeEmailTask(payload WelcomeEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeWelcomeEmail, data, asynq.Queue("mail")), nil
}

// TokenSweepPayload is empty - the sweep covers every expired token
type TokenSweepPayload struct{}

func NewTokenSweepTask() *asynq.Task {
	return asynq.NewTask(TypeTokenSweep, nil, asynq.Queue("low"))
}
