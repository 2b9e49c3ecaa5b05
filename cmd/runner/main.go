package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"bot-runner/internal/application/port/input"
	"bot-runner/internal/application/port/output"
	"bot-runner/internal/bot"
	"bot-runner/internal/di"
	"bot-runner/internal/infrastructure/env"
)

func main() {
	envService := env.NewEnvService()

	cfg := di.Config{
		BotName:     envService.MustGet("BOT_NAME"),
		Dev:         envService.Get("BOT_DEV"),
		Sector:      envService.Get("BOT_SECTOR"),
		Stakeholder: envService.Get("BOT_STAKEHOLDER"),
		Recurrence:  envService.Get("BOT_RECURRENCE"),

		LogDir:    envService.GetWithDefault("LOG_DIR", "logs"),
		LogFolder: envService.MustGet("LOG_FOLDER"),

		MaxRetries: envService.GetInt("MAX_RETRIES", 0),

		UseTelegram:   envService.GetBool("USE_TELEGRAM", false),
		TelegramGroup: envService.Get("TELEGRAM_GROUP"),

		Mode:          di.Mode(envService.GetWithDefault("RUNNER_MODE", string(di.ModeMaestro))),
		MaestroServer: envService.MustGet("MAESTRO_SERVER"),
		MaestroTaskID: envService.Get("MAESTRO_TASK_ID"),
		MaestroToken:  envService.Get("MAESTRO_TOKEN"),
		MaestroLogin:  envService.Get("MAESTRO_LOGIN"),
		MaestroKey:    envService.Get("MAESTRO_KEY"),

		InsecureSkipVerify: envService.GetBool("MAESTRO_INSECURE", false),

		SQLServer:   envService.GetWithDefault("SQL_SERVER", "srv-homologation"),
		SQLDatabase: envService.GetWithDefault("SQL_DATABASE", "automation"),
	}

	ctx := context.Background()

	taskURL := envService.GetWithDefault("TASK_URL", "https://example.com")
	headless := envService.GetBool("HEADLESS", true)

	newTask := func(log output.LoggerPort) input.TaskFunc {
		return bot.NewTask(taskURL, cfg.LogDir, headless, log).Run
	}

	container, err := di.NewContainer(ctx, newTask, cfg)
	if err != nil {
		log.Fatalf("Ошибка инициализации: %v", err)
	}
	defer container.Close()

	container.Logger.Info("Runner started", "bot", cfg.BotName, "mode", string(cfg.Mode))

	report, err := container.Runner.Run(ctx)
	if err != nil {
		container.Logger.Error("Bot run failed", "error", err)
		fmt.Printf("\nОшибка выполнения: %v\n", err)
		container.Close()
		os.Exit(1)
	}

	container.Logger.Info("Bot run completed",
		"attempt", report.Attempt,
		"executionTime", report.ExecutionTime,
		"resources", report.Resources.String(),
	)
}
