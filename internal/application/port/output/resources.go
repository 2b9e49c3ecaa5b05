package output

import (
	"context"

	"bot-runner/internal/domain/entity"
)

// ResourceProbePort — точечный замер загрузки системы. Snapshot блокируется
// примерно на секунду (интервал сэмплирования CPU).
type ResourceProbePort interface {
	Snapshot(ctx context.Context) (entity.ResourceSnapshot, error)
}
