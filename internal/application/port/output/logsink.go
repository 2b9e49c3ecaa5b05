package output

import "context"

// ExecutionLogRecord — строка журнала выполнения для реляционной БД.
type ExecutionLogRecord struct {
	BotName       string
	Dev           string
	Sector        string
	Stakeholder   string
	Recurrence    string
	ExecutionTime string
}

// ExecutionLogPort — append-only журнал выполнения. Реализация сама
// открывает и закрывает соединение на каждую вставку.
type ExecutionLogPort interface {
	InsertLog(ctx context.Context, record ExecutionLogRecord) error
}
