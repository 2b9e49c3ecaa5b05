package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bot-runner/internal/application/port/input"
	"bot-runner/internal/application/port/output"
	"bot-runner/internal/domain/entity"
)

var _ input.BotRunner = (*RunBotUseCase)(nil)

// attemptState — исход одной попытки.
type attemptState int

const (
	attemptSucceeded attemptState = iota
	attemptRetry
	attemptAbandoned
)

type attemptResult struct {
	state  attemptState
	report *entity.ExecutionReport
	err    error
}

type RunnerParams struct {
	BotName     string
	Dev         string
	Sector      string
	Stakeholder string
	Recurrence  string
	MaxRetries  int
}

// RunBotUseCase — супервизор выполнения задачи бота: не более
// MaxRetries+1 попыток, ровно один терминальный исход, файл лога уходит
// артефактом после каждой попытки независимо от её результата.
type RunBotUseCase struct {
	task     input.TaskFunc
	orch     output.OrchestratorPort
	store    output.ArtifactStorePort
	execLog  output.ExecutionLogPort
	notifier output.NotifierPort // nil, когда уведомления выключены
	probe    output.ResourceProbePort
	logger   output.LoggerPort
	params   RunnerParams
}

func NewRunBotUseCase(
	task input.TaskFunc,
	orch output.OrchestratorPort,
	store output.ArtifactStorePort,
	execLog output.ExecutionLogPort,
	notifier output.NotifierPort,
	probe output.ResourceProbePort,
	logger output.LoggerPort,
	params RunnerParams,
) *RunBotUseCase {
	return &RunBotUseCase{
		task:     task,
		orch:     orch,
		store:    store,
		execLog:  execLog,
		notifier: notifier,
		probe:    probe,
		logger:   logger,
		params:   params,
	}
}

func (uc *RunBotUseCase) Run(ctx context.Context) (*entity.ExecutionReport, error) {
	execution, err := uc.orch.GetExecution(ctx)
	if err != nil {
		return nil, fmt.Errorf("get execution: %w", err)
	}

	uc.logger.Info("Task ID", "taskID", execution.TaskID)
	uc.logger.Info("Task parameters", "parameters", execution.Parameters)

	for attempt := 0; ; attempt++ {
		res := uc.runAttempt(ctx, execution.TaskID, attempt)

		switch res.state {
		case attemptSucceeded:
			return res.report, nil
		case attemptRetry:
			uc.logger.Info("Retrying bot execution", "attempt", attempt+1)
		case attemptAbandoned:
			return nil, res.err
		}
	}
}

// runAttempt выполняет одну попытку. Выгрузка файла лога в оркестратор
// происходит на каждом пути выхода — и при успехе, и при ошибке.
func (uc *RunBotUseCase) runAttempt(ctx context.Context, taskID string, attempt int) (res attemptResult) {
	defer func() {
		if ferr := uc.orch.PostArtifact(ctx, taskID, uc.logger.Filename(), uc.logger.Path()); ferr != nil {
			uc.logger.Error("Failed to upload log file into orchestrator", "file", uc.logger.Filename(), "error", ferr)
			res.state = attemptAbandoned
			res.err = errors.Join(res.err, fmt.Errorf("upload log artifact: %w", ferr))
			return
		}
		uc.logger.Info("Log file uploaded to orchestrator", "file", uc.logger.Filename())
	}()

	start := time.Now()
	report := &entity.ExecutionReport{
		ID:        uuid.NewString(),
		Attempt:   attempt,
		StartedAt: start,
	}

	uc.logger.Info("Bot execution started", "attempt", attempt)

	if err := uc.task(ctx); err != nil {
		return uc.failAttempt(ctx, taskID, attempt, err)
	}

	return uc.finishSuccess(ctx, taskID, report)
}

func (uc *RunBotUseCase) finishSuccess(ctx context.Context, taskID string, report *entity.ExecutionReport) attemptResult {
	snapshot, err := uc.probe.Snapshot(ctx)
	if err != nil {
		return attemptResult{state: attemptAbandoned, err: fmt.Errorf("resource snapshot: %w", err)}
	}
	report.Finalize(time.Now(), snapshot)

	uc.logger.Info("Bot execution completed", "bot", uc.params.BotName, "attempt", report.Attempt)
	uc.logger.Info("Execution time", "value", report.ExecutionTime)
	uc.logger.Info("Resource usage at end of execution", "value", snapshot.String())

	if err := uc.uploadLogToStore(ctx); err != nil {
		return attemptResult{state: attemptAbandoned, err: err}
	}

	record := output.ExecutionLogRecord{
		BotName:       uc.params.BotName,
		Dev:           uc.params.Dev,
		Sector:        uc.params.Sector,
		Stakeholder:   uc.params.Stakeholder,
		Recurrence:    uc.params.Recurrence,
		ExecutionTime: report.ExecutionTime,
	}
	if err := uc.execLog.InsertLog(ctx, record); err != nil {
		return attemptResult{state: attemptAbandoned, err: fmt.Errorf("insert execution log: %w", err)}
	}

	message := fmt.Sprintf("Execution time: %s\nResource usage at end of execution: %s",
		report.ExecutionTime, snapshot)
	if err := uc.orch.FinishTask(ctx, taskID, entity.FinishStatusSuccess, message); err != nil {
		return attemptResult{state: attemptAbandoned, err: fmt.Errorf("finish task: %w", err)}
	}

	if uc.notifier != nil {
		if err := uc.notifier.SendMessage(ctx, fmt.Sprintf("%s Bot execution completed.", uc.params.BotName)); err != nil {
			return attemptResult{state: attemptAbandoned, err: fmt.Errorf("send notification: %w", err)}
		}
		if err := uc.notifier.UploadDocument(ctx, uc.logger.Path(), uc.params.BotName); err != nil {
			return attemptResult{state: attemptAbandoned, err: fmt.Errorf("upload notification document: %w", err)}
		}
	}

	return attemptResult{state: attemptSucceeded, report: report}
}

func (uc *RunBotUseCase) failAttempt(ctx context.Context, taskID string, attempt int, taskErr error) attemptResult {
	uc.logger.Error("An error occurred during bot execution",
		"bot", uc.params.BotName, "attempt", attempt, "error", taskErr)

	if err := uc.orch.ReportError(ctx, taskID, taskErr, []string{uc.logger.Path()}); err != nil {
		return attemptResult{
			state: attemptAbandoned,
			err:   errors.Join(taskErr, fmt.Errorf("report error to orchestrator: %w", err)),
		}
	}

	if uc.notifier != nil {
		text := fmt.Sprintf("An error occurred during bot '%s' execution: %v", uc.params.BotName, taskErr)
		if err := uc.notifier.SendMessage(ctx, text); err != nil {
			return attemptResult{
				state: attemptAbandoned,
				err:   errors.Join(taskErr, fmt.Errorf("send notification: %w", err)),
			}
		}
		if err := uc.notifier.UploadDocument(ctx, uc.logger.Path(), uc.params.BotName); err != nil {
			return attemptResult{
				state: attemptAbandoned,
				err:   errors.Join(taskErr, fmt.Errorf("upload notification document: %w", err)),
			}
		}
	}

	if attempt >= uc.params.MaxRetries {
		return uc.abandon(ctx, taskID, taskErr)
	}

	return attemptResult{state: attemptRetry, err: taskErr}
}

// abandon — терминальная неудача: ровно один finish-вызов со статусом
// FAILED, финальная выгрузка лога в хранилище, исходная ошибка задачи
// возвращается вызывающему.
func (uc *RunBotUseCase) abandon(ctx context.Context, taskID string, taskErr error) attemptResult {
	uc.logger.Error("Max retries reached. Giving up.", "maxRetries", uc.params.MaxRetries)

	message := fmt.Sprintf("An error occurred during bot execution: %v", taskErr)
	if err := uc.orch.FinishTask(ctx, taskID, entity.FinishStatusFailed, message); err != nil {
		return attemptResult{
			state: attemptAbandoned,
			err:   errors.Join(taskErr, fmt.Errorf("finish task: %w", err)),
		}
	}

	if err := uc.uploadLogToStore(ctx); err != nil {
		return attemptResult{state: attemptAbandoned, err: errors.Join(taskErr, err)}
	}

	return attemptResult{state: attemptAbandoned, err: taskErr}
}

func (uc *RunBotUseCase) uploadLogToStore(ctx context.Context) error {
	if _, err := uc.store.ListItemsByPattern(ctx); err != nil {
		return fmt.Errorf("list artifact store items: %w", err)
	}
	if err := uc.store.UploadFiles(ctx, []string{uc.logger.Path()}); err != nil {
		return fmt.Errorf("upload files to artifact store: %w", err)
	}
	return nil
}
