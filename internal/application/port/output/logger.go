package output

type LoggerPort interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	WithField(key string, value any) LoggerPort

	// Path — путь к файлу лога текущего запуска; этот файл уходит
	// артефактом в оркестратор и в библиотеку документов.
	Path() string
	Filename() string

	Close() error
}
