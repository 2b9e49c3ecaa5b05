package sqlsink

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"bot-runner/internal/application/port/output"
)

var _ output.ExecutionLogPort = (*Sink)(nil)

// ExecutionLog — строка журнала выполнений в таблице automation_logs.
type ExecutionLog struct {
	ID            uint      `gorm:"primaryKey"`
	BotName       string    `gorm:"column:bot_name"`
	Dev           string    `gorm:"column:dev"`
	Sector        string    `gorm:"column:sector"`
	Stakeholder   string    `gorm:"column:stakeholder"`
	Recurrence    string    `gorm:"column:recurrence"`
	ExecutionTime string    `gorm:"column:execution_time"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (ExecutionLog) TableName() string { return "automation_logs" }

type Config struct {
	Server   string
	Database string

	// UseWindowsAuth — доверенное подключение (homolog-сервер);
	// иначе логин и пароль из хранилища учёток оркестратора.
	UseWindowsAuth bool
	Username       string
	Password       string

	Logger output.LoggerPort
}

// Sink пишет журнал выполнений в SQL Server. Соединение открывается и
// закрывается на каждую вставку: освобождение гарантировано и при ошибке.
type Sink struct {
	cfg  Config
	open func(dsn string) (*gorm.DB, error)
}

func NewSink(cfg Config) (*Sink, error) {
	if cfg.Server == "" || cfg.Database == "" {
		return nil, fmt.Errorf("sql sink requires server and database")
	}
	if !cfg.UseWindowsAuth && cfg.Username == "" {
		return nil, fmt.Errorf("sql sink requires username unless windows auth is used")
	}

	return &Sink{
		cfg: cfg,
		open: func(dsn string) (*gorm.DB, error) {
			return gorm.Open(sqlserver.Open(dsn), &gorm.Config{
				Logger: gormlogger.Discard,
			})
		},
	}, nil
}

func (s *Sink) DSN() string {
	if s.cfg.UseWindowsAuth {
		return fmt.Sprintf("sqlserver://%s?database=%s&trusted_connection=yes",
			s.cfg.Server, url.QueryEscape(s.cfg.Database))
	}
	return fmt.Sprintf("sqlserver://%s:%s@%s?database=%s",
		url.QueryEscape(s.cfg.Username), url.QueryEscape(s.cfg.Password),
		s.cfg.Server, url.QueryEscape(s.cfg.Database))
}

func (s *Sink) InsertLog(ctx context.Context, record output.ExecutionLogRecord) error {
	db, err := s.open(s.DSN())
	if err != nil {
		return fmt.Errorf("connect execution log database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("unwrap sql connection: %w", err)
	}
	defer sqlDB.Close()

	row := ExecutionLog{
		BotName:       record.BotName,
		Dev:           record.Dev,
		Sector:        record.Sector,
		Stakeholder:   record.Stakeholder,
		Recurrence:    record.Recurrence,
		ExecutionTime: record.ExecutionTime,
		CreatedAt:     time.Now(),
	}
	if err := db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert execution log: %w", err)
	}

	if s.cfg.Logger != nil {
		s.cfg.Logger.Info("Execution log inserted", "bot", record.BotName, "executionTime", record.ExecutionTime)
	}
	return nil
}
