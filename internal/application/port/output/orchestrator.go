package output

import (
	"context"

	"bot-runner/internal/domain/entity"
)

// OrchestratorPort — клиент оркестратора задач (Maestro-совместимый API).
// Две схемы подключения (managed-сессия и прямой login) дают одну и ту же
// реализацию этого интерфейса, различаются только конструкторы.
type OrchestratorPort interface {
	GetExecution(ctx context.Context) (*entity.Execution, error)
	FinishTask(ctx context.Context, taskID string, status entity.FinishStatus, message string) error
	ReportError(ctx context.Context, taskID string, taskErr error, attachments []string) error
	PostArtifact(ctx context.Context, taskID, name, filepath string) error
	GetCredential(ctx context.Context, label, key string) (string, error)
}
