package di

import (
	"context"
	"fmt"

	"bot-runner/internal/application/port/input"
	"bot-runner/internal/application/port/output"
	"bot-runner/internal/application/usecase"
	"bot-runner/internal/infrastructure/logger"
	"bot-runner/internal/infrastructure/maestro"
	"bot-runner/internal/infrastructure/sharepoint"
	"bot-runner/internal/infrastructure/sqlsink"
	"bot-runner/internal/infrastructure/sysinfo"
	"bot-runner/internal/infrastructure/telegram"
)

// Mode — способ подключения к оркестратору.
type Mode string

const (
	// ModeMaestro — managed-сессия: server, task id и токен выдаёт
	// окружение запуска оркестратора.
	ModeMaestro Mode = "maestro"
	// ModeLocal — прямой login с server/login/key.
	ModeLocal Mode = "local"
)

// метки в хранилище учёток оркестратора
const (
	credSharePoint = "Sharepoint_Credentials"
	credTelegram   = "Telegram"
	credSQL        = "SQL_Credentials"
)

type Config struct {
	BotName     string
	Dev         string
	Sector      string
	Stakeholder string
	Recurrence  string

	LogDir    string // каталог файлов лога запуска
	LogFolder string // папка библиотеки документов для логов

	MaxRetries int

	UseTelegram   bool
	TelegramGroup string

	Mode          Mode
	MaestroServer string
	MaestroTaskID string
	MaestroToken  string
	MaestroLogin  string
	MaestroKey    string

	// InsecureSkipVerify — исторический режим прямого подключения к
	// внутреннему серверу без валидного сертификата.
	InsecureSkipVerify bool

	// SQLServer/SQLDatabase используются в ModeLocal (homolog, windows
	// auth); в ModeMaestro реквизиты приходят из хранилища учёток.
	SQLServer   string
	SQLDatabase string
}

func (c Config) Validate() error {
	if c.BotName == "" {
		return fmt.Errorf("bot name is required")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be non-negative, got %d", c.MaxRetries)
	}
	if c.UseTelegram && c.TelegramGroup == "" {
		return telegram.ErrGroupRequired
	}
	switch c.Mode {
	case ModeMaestro:
	case ModeLocal:
		if c.MaestroLogin == "" || c.MaestroKey == "" {
			return fmt.Errorf("local mode requires orchestrator login and key")
		}
	default:
		return fmt.Errorf("unknown runner mode %q", c.Mode)
	}
	return nil
}

type Container struct {
	Logger        output.LoggerPort
	Orchestrator  output.OrchestratorPort
	ArtifactStore output.ArtifactStorePort
	ExecutionLog  output.ExecutionLogPort
	Notifier      output.NotifierPort
	Probe         output.ResourceProbePort
	Runner        input.BotRunner
}

// TaskFactory строит задачу бота поверх логгера запуска, который
// создаёт контейнер.
type TaskFactory func(log output.LoggerPort) input.TaskFunc

func NewContainer(ctx context.Context, newTask TaskFactory, cfg Config) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid runner config: %w", err)
	}

	log, err := logger.NewZapAdapter(cfg.BotName, cfg.LogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	orch, err := newOrchestrator(ctx, cfg, log)
	if err != nil {
		log.Close()
		return nil, err
	}

	store, err := newArtifactStore(ctx, cfg, orch, log)
	if err != nil {
		log.Close()
		return nil, err
	}

	execLog, err := newExecutionLog(ctx, cfg, orch, log)
	if err != nil {
		log.Close()
		return nil, err
	}

	notifier, err := newNotifier(ctx, cfg, orch, log)
	if err != nil {
		log.Close()
		return nil, err
	}

	probe := sysinfo.NewProbe()
	runner := usecase.NewRunBotUseCase(newTask(log), orch, store, execLog, notifier, probe, log,
		usecase.RunnerParams{
			BotName:     cfg.BotName,
			Dev:         cfg.Dev,
			Sector:      cfg.Sector,
			Stakeholder: cfg.Stakeholder,
			Recurrence:  cfg.Recurrence,
			MaxRetries:  cfg.MaxRetries,
		})

	return &Container{
		Logger:        log,
		Orchestrator:  orch,
		ArtifactStore: store,
		ExecutionLog:  execLog,
		Notifier:      notifier,
		Probe:         probe,
		Runner:        runner,
	}, nil
}

func newOrchestrator(ctx context.Context, cfg Config, log output.LoggerPort) (output.OrchestratorPort, error) {
	mcfg := maestro.Config{
		Server:             cfg.MaestroServer,
		TaskID:             cfg.MaestroTaskID,
		Token:              cfg.MaestroToken,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		Logger:             log,
	}

	switch cfg.Mode {
	case ModeLocal:
		client, err := maestro.Login(ctx, mcfg, cfg.MaestroLogin, cfg.MaestroKey)
		if err != nil {
			return nil, fmt.Errorf("failed to login into orchestrator: %w", err)
		}
		return client, nil
	default:
		client, err := maestro.NewFromEnvSession(mcfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create orchestrator session: %w", err)
		}
		return client, nil
	}
}

func newArtifactStore(ctx context.Context, cfg Config, orch output.OrchestratorPort, log output.LoggerPort) (output.ArtifactStorePort, error) {
	siteURL, err := orch.GetCredential(ctx, credSharePoint, "site_url")
	if err != nil {
		return nil, fmt.Errorf("resolve sharepoint site url: %w", err)
	}
	username, err := orch.GetCredential(ctx, credSharePoint, "username")
	if err != nil {
		return nil, fmt.Errorf("resolve sharepoint username: %w", err)
	}
	password, err := orch.GetCredential(ctx, credSharePoint, "password")
	if err != nil {
		return nil, fmt.Errorf("resolve sharepoint password: %w", err)
	}

	return sharepoint.NewClient(sharepoint.Config{
		SiteURL:  siteURL,
		Username: username,
		Password: password,
		Folder:   cfg.LogFolder,
		BotName:  cfg.BotName,
		Logger:   log,
	})
}

func newExecutionLog(ctx context.Context, cfg Config, orch output.OrchestratorPort, log output.LoggerPort) (output.ExecutionLogPort, error) {
	if cfg.Mode == ModeLocal {
		return sqlsink.NewSink(sqlsink.Config{
			Server:         cfg.SQLServer,
			Database:       cfg.SQLDatabase,
			UseWindowsAuth: true,
			Logger:         log,
		})
	}

	server, err := orch.GetCredential(ctx, credSQL, "server")
	if err != nil {
		return nil, fmt.Errorf("resolve sql server: %w", err)
	}
	database, err := orch.GetCredential(ctx, credSQL, "database")
	if err != nil {
		return nil, fmt.Errorf("resolve sql database: %w", err)
	}
	username, err := orch.GetCredential(ctx, credSQL, "username")
	if err != nil {
		return nil, fmt.Errorf("resolve sql username: %w", err)
	}
	password, err := orch.GetCredential(ctx, credSQL, "key")
	if err != nil {
		return nil, fmt.Errorf("resolve sql password: %w", err)
	}

	return sqlsink.NewSink(sqlsink.Config{
		Server:   server,
		Database: database,
		Username: username,
		Password: password,
		Logger:   log,
	})
}

func newNotifier(ctx context.Context, cfg Config, orch output.OrchestratorPort, log output.LoggerPort) (output.NotifierPort, error) {
	if !cfg.UseTelegram {
		return nil, nil
	}

	token, err := orch.GetCredential(ctx, credTelegram, "token")
	if err != nil {
		return nil, fmt.Errorf("resolve telegram token: %w", err)
	}
	if token == "" {
		return nil, fmt.Errorf("telegram token must be provided in orchestrator credentials")
	}

	notifier, err := telegram.NewNotifier(telegram.Config{
		Token:  token,
		Group:  cfg.TelegramGroup,
		Logger: log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram notifier: %w", err)
	}

	log.Info("Telegram notifications enabled", "group", cfg.TelegramGroup)
	return notifier, nil
}

func (c *Container) Close() {
	if c.Logger != nil {
		c.Logger.Close()
	}
}
