package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"bot-runner/internal/application/port/output"
)

var _ output.LoggerPort = (*ZapAdapter)(nil)

// ZapAdapter пишет структурированный JSON-лог в файл запуска (этот файл
// потом уходит артефактом) и дублирует его в консоль.
type ZapAdapter struct {
	log      *zap.SugaredLogger
	file     *os.File
	path     string
	filename string
}

// NewZapAdapter создаёт логгер запуска. Имя файла: timestamp_botName.log
// в каталоге logDir.
func NewZapAdapter(botName, logDir string) (*ZapAdapter, error) {
	safeName := sanitize(botName)
	filename := fmt.Sprintf("%s_%s.log", time.Now().Format("2006-01-02_15-04-05"), safeName)

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	path := filepath.Join(logDir, filename)
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(file),
		zapcore.DebugLevel,
	)

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleCfg),
		zapcore.AddSync(os.Stdout),
		zapcore.InfoLevel,
	)

	log := zap.New(zapcore.NewTee(fileCore, consoleCore)).Sugar()

	return &ZapAdapter{
		log:      log.With("bot", botName),
		file:     file,
		path:     path,
		filename: filename,
	}, nil
}

func (l *ZapAdapter) Debug(msg string, args ...any) { l.log.Debugw(msg, args...) }
func (l *ZapAdapter) Info(msg string, args ...any)  { l.log.Infow(msg, args...) }
func (l *ZapAdapter) Warn(msg string, args ...any)  { l.log.Warnw(msg, args...) }
func (l *ZapAdapter) Error(msg string, args ...any) { l.log.Errorw(msg, args...) }

func (l *ZapAdapter) WithField(key string, value any) output.LoggerPort {
	return &ZapAdapter{
		log:      l.log.With(key, value),
		file:     l.file,
		path:     l.path,
		filename: l.filename,
	}
}

func (l *ZapAdapter) Path() string     { return l.path }
func (l *ZapAdapter) Filename() string { return l.filename }

func (l *ZapAdapter) Close() error {
	_ = l.log.Sync()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// sanitize делает имя бота безопасным для файловой системы.
func sanitize(s string) string {
	result := make([]rune, 0, len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			result = append(result, r)
		} else {
			result = append(result, '_')
		}
	}
	s = string(result)
	if s == "" {
		return "bot"
	}
	if len(s) > 60 {
		s = s[:60]
	}
	return s
}
