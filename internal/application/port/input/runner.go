package input

import (
	"context"

	"bot-runner/internal/domain/entity"
)

// TaskFunc — бизнес-логика бота. Ошибка любого рода означает неудачную
// попытку; супервизор решает, повторять или сдаваться.
type TaskFunc func(ctx context.Context) error

type BotRunner interface {
	Run(ctx context.Context) (*entity.ExecutionReport, error)
}
