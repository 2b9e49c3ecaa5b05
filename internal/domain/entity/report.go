package entity

import (
	"fmt"
	"time"
)

// ExecutionReport — итог одной попытки выполнения задачи.
// После Finalize отчёт не изменяется.
type ExecutionReport struct {
	ID            string
	Attempt       int
	StartedAt     time.Time
	FinishedAt    time.Time
	ExecutionTime string
	Resources     ResourceSnapshot
}

func (r *ExecutionReport) Finalize(finishedAt time.Time, res ResourceSnapshot) {
	r.FinishedAt = finishedAt
	r.ExecutionTime = FormatExecutionTime(finishedAt.Sub(r.StartedAt))
	r.Resources = res
}

// FormatExecutionTime форматирует длительность как DD:HH:MM:SS.
// Секунды усекаются до целого, поля дополняются нулями.
func FormatExecutionTime(elapsed time.Duration) string {
	total := int64(elapsed.Seconds())
	if total < 0 {
		total = 0
	}

	days := total / 86400
	remainder := total % 86400
	hours := remainder / 3600
	remainder %= 3600
	minutes := remainder / 60
	seconds := remainder % 60

	return fmt.Sprintf("%02d:%02d:%02d:%02d", days, hours, minutes, seconds)
}
