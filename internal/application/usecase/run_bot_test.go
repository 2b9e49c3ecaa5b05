package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"bot-runner/internal/application/port/output"
	"bot-runner/internal/domain/entity"
)

type mockLogger struct{}

func (m *mockLogger) Debug(msg string, args ...any)                    {}
func (m *mockLogger) Info(msg string, args ...any)                     {}
func (m *mockLogger) Warn(msg string, args ...any)                     {}
func (m *mockLogger) Error(msg string, args ...any)                    {}
func (m *mockLogger) WithField(key string, value any) output.LoggerPort { return m }
func (m *mockLogger) Path() string                                     { return "/tmp/bot.log" }
func (m *mockLogger) Filename() string                                 { return "bot.log" }
func (m *mockLogger) Close() error                                     { return nil }

type mockOrchestrator struct {
	finishCalls    int
	finishStatus   entity.FinishStatus
	finishMessage  string
	errorCalls     int
	artifactCalls  int
	artifactErr    error
	reportErrorErr error
}

func (m *mockOrchestrator) GetExecution(ctx context.Context) (*entity.Execution, error) {
	return &entity.Execution{TaskID: "task-42", Parameters: map[string]string{"env": "test"}}, nil
}

func (m *mockOrchestrator) FinishTask(ctx context.Context, taskID string, status entity.FinishStatus, message string) error {
	m.finishCalls++
	m.finishStatus = status
	m.finishMessage = message
	return nil
}

func (m *mockOrchestrator) ReportError(ctx context.Context, taskID string, taskErr error, attachments []string) error {
	m.errorCalls++
	return m.reportErrorErr
}

func (m *mockOrchestrator) PostArtifact(ctx context.Context, taskID, name, filepath string) error {
	m.artifactCalls++
	return m.artifactErr
}

func (m *mockOrchestrator) GetCredential(ctx context.Context, label, key string) (string, error) {
	return "secret", nil
}

type mockArtifactStore struct {
	listCalls   int
	uploadCalls int
	uploadPaths [][]string
}

func (m *mockArtifactStore) ListItemsByPattern(ctx context.Context) ([]string, error) {
	m.listCalls++
	return nil, nil
}

func (m *mockArtifactStore) UploadFiles(ctx context.Context, paths []string) error {
	m.uploadCalls++
	m.uploadPaths = append(m.uploadPaths, paths)
	return nil
}

type mockExecutionLog struct {
	insertCalls int
	lastRecord  output.ExecutionLogRecord
	insertErr   error
}

func (m *mockExecutionLog) InsertLog(ctx context.Context, record output.ExecutionLogRecord) error {
	m.insertCalls++
	m.lastRecord = record
	return m.insertErr
}

type mockNotifier struct {
	messages  []string
	documents []string
}

func (m *mockNotifier) SendMessage(ctx context.Context, text string) error {
	m.messages = append(m.messages, text)
	return nil
}

func (m *mockNotifier) UploadDocument(ctx context.Context, path, caption string) error {
	m.documents = append(m.documents, path)
	return nil
}

type mockProbe struct{}

func (m *mockProbe) Snapshot(ctx context.Context) (entity.ResourceSnapshot, error) {
	return entity.ResourceSnapshot{CPUPercent: 10, RAMPercent: 50, RAMUsedMB: 1024}, nil
}

type fixture struct {
	orch    *mockOrchestrator
	store   *mockArtifactStore
	execLog *mockExecutionLog
	probe   *mockProbe
}

func newFixture() *fixture {
	return &fixture{
		orch:    &mockOrchestrator{},
		store:   &mockArtifactStore{},
		execLog: &mockExecutionLog{},
		probe:   &mockProbe{},
	}
}

func (f *fixture) runner(task func(ctx context.Context) error, notifier output.NotifierPort, maxRetries int) *RunBotUseCase {
	return NewRunBotUseCase(task, f.orch, f.store, f.execLog, notifier, f.probe, &mockLogger{},
		RunnerParams{
			BotName:     "TestBot",
			Dev:         "dev",
			Sector:      "ops",
			Stakeholder: "finance",
			Recurrence:  "daily",
			MaxRetries:  maxRetries,
		})
}

func TestRun_SuccessFirstAttempt(t *testing.T) {
	f := newFixture()
	calls := 0
	uc := f.runner(func(ctx context.Context) error {
		calls++
		return nil
	}, nil, 3)

	report, err := uc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if calls != 1 {
		t.Errorf("Expected 1 task invocation, got %d", calls)
	}
	if report.Attempt != 0 {
		t.Errorf("Expected attempt 0, got %d", report.Attempt)
	}
	if f.orch.finishCalls != 1 {
		t.Errorf("Expected exactly one finish call, got %d", f.orch.finishCalls)
	}
	if f.orch.finishStatus != entity.FinishStatusSuccess {
		t.Errorf("Expected SUCCESS status, got %s", f.orch.finishStatus)
	}
	if f.execLog.insertCalls != 1 {
		t.Errorf("Expected one execution log insert, got %d", f.execLog.insertCalls)
	}
	if f.execLog.lastRecord.BotName != "TestBot" {
		t.Errorf("Expected bot name in log record, got %q", f.execLog.lastRecord.BotName)
	}
	if f.store.uploadCalls != 1 {
		t.Errorf("Expected one artifact store upload, got %d", f.store.uploadCalls)
	}
}

func TestRun_AlwaysFails_InvokesTaskNPlusOneTimes(t *testing.T) {
	for _, maxRetries := range []int{0, 1, 3} {
		f := newFixture()
		calls := 0
		taskErr := errors.New("boom")
		uc := f.runner(func(ctx context.Context) error {
			calls++
			return taskErr
		}, nil, maxRetries)

		_, err := uc.Run(context.Background())
		if err == nil {
			t.Fatalf("maxRetries=%d: expected error", maxRetries)
		}
		if !errors.Is(err, taskErr) {
			t.Errorf("maxRetries=%d: expected original task error, got %v", maxRetries, err)
		}
		if calls != maxRetries+1 {
			t.Errorf("maxRetries=%d: expected %d task invocations, got %d", maxRetries, maxRetries+1, calls)
		}
		if f.orch.finishCalls != 1 {
			t.Errorf("maxRetries=%d: expected exactly one finish call, got %d", maxRetries, f.orch.finishCalls)
		}
		if f.orch.finishStatus != entity.FinishStatusFailed {
			t.Errorf("maxRetries=%d: expected FAILED status, got %s", maxRetries, f.orch.finishStatus)
		}
		if f.orch.errorCalls != maxRetries+1 {
			t.Errorf("maxRetries=%d: expected %d error reports, got %d", maxRetries, maxRetries+1, f.orch.errorCalls)
		}
	}
}

func TestRun_FailsThenSucceeds(t *testing.T) {
	f := newFixture()
	calls := 0
	uc := f.runner(func(ctx context.Context) error {
		calls++
		if calls <= 2 {
			return errors.New("transient")
		}
		return nil
	}, nil, 5)

	report, err := uc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if calls != 3 {
		t.Errorf("Expected 3 task invocations, got %d", calls)
	}
	if report.Attempt != 2 {
		t.Errorf("Expected attempt 2 in report, got %d", report.Attempt)
	}
	if f.orch.finishCalls != 1 {
		t.Errorf("Expected exactly one finish call, got %d", f.orch.finishCalls)
	}
	if f.orch.finishStatus != entity.FinishStatusSuccess {
		t.Errorf("Expected SUCCESS status, got %s", f.orch.finishStatus)
	}
}

func TestRun_ArtifactFlushPerAttempt(t *testing.T) {
	f := newFixture()
	calls := 0
	uc := f.runner(func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, nil, 5)

	if _, err := uc.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if f.orch.artifactCalls != calls {
		t.Errorf("Expected flush count == task count (%d), got %d", calls, f.orch.artifactCalls)
	}
}

func TestRun_ArtifactFlushPerAttempt_AllFailed(t *testing.T) {
	f := newFixture()
	calls := 0
	uc := f.runner(func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	}, nil, 2)

	if _, err := uc.Run(context.Background()); err == nil {
		t.Fatal("Expected error")
	}

	if f.orch.artifactCalls != calls {
		t.Errorf("Expected flush count == task count (%d), got %d", calls, f.orch.artifactCalls)
	}
}

func TestRun_SuccessMessageContainsTimeAndResources(t *testing.T) {
	f := newFixture()
	uc := f.runner(func(ctx context.Context) error { return nil }, nil, 0)

	if _, err := uc.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !strings.Contains(f.orch.finishMessage, "Execution time: 00:00:00:00") {
		t.Errorf("Expected execution time in finish message, got %q", f.orch.finishMessage)
	}
	if !strings.Contains(f.orch.finishMessage, "CPU Usage: 10.0%") {
		t.Errorf("Expected resource usage in finish message, got %q", f.orch.finishMessage)
	}
	if !strings.Contains(f.orch.finishMessage, entity.NoGPUSentinel) {
		t.Errorf("Expected GPU sentinel in finish message, got %q", f.orch.finishMessage)
	}
}

func TestRun_NotifierReceivesSuccessAndFailure(t *testing.T) {
	f := newFixture()
	notifier := &mockNotifier{}
	calls := 0
	uc := f.runner(func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("boom")
		}
		return nil
	}, notifier, 1)

	if _, err := uc.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// одно сообщение об ошибке, одно об успехе
	if len(notifier.messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d: %v", len(notifier.messages), notifier.messages)
	}
	if !strings.Contains(notifier.messages[0], "An error occurred") {
		t.Errorf("Expected failure message first, got %q", notifier.messages[0])
	}
	if !strings.Contains(notifier.messages[1], "Bot execution completed") {
		t.Errorf("Expected success message second, got %q", notifier.messages[1])
	}
	if len(notifier.documents) != 2 {
		t.Errorf("Expected log document per notification, got %d", len(notifier.documents))
	}
}

func TestRun_TerminalFailureUploadsLogToStore(t *testing.T) {
	f := newFixture()
	uc := f.runner(func(ctx context.Context) error { return errors.New("boom") }, nil, 0)

	if _, err := uc.Run(context.Background()); err == nil {
		t.Fatal("Expected error")
	}

	if f.store.uploadCalls != 1 {
		t.Errorf("Expected final store upload on terminal failure, got %d", f.store.uploadCalls)
	}
	if len(f.store.uploadPaths) == 1 && f.store.uploadPaths[0][0] != "/tmp/bot.log" {
		t.Errorf("Expected log path uploaded, got %v", f.store.uploadPaths[0])
	}
}

func TestRun_ReportingFailureChainsOriginalError(t *testing.T) {
	f := newFixture()
	taskErr := errors.New("task exploded")
	f.orch.reportErrorErr = errors.New("orchestrator down")

	uc := f.runner(func(ctx context.Context) error { return taskErr }, nil, 5)

	_, err := uc.Run(context.Background())
	if err == nil {
		t.Fatal("Expected error")
	}
	// ошибка отчёта не подменяет исходную ошибку задачи
	if !errors.Is(err, taskErr) {
		t.Errorf("Expected original task error retained in chain, got %v", err)
	}
	if !strings.Contains(err.Error(), "orchestrator down") {
		t.Errorf("Expected reporting error in chain, got %v", err)
	}
}

func TestRun_ReportingFailureStopsRetries(t *testing.T) {
	f := newFixture()
	f.orch.reportErrorErr = errors.New("orchestrator down")
	calls := 0

	uc := f.runner(func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	}, nil, 5)

	if _, err := uc.Run(context.Background()); err == nil {
		t.Fatal("Expected error")
	}
	if calls != 1 {
		t.Errorf("Expected no retries after collaborator failure, got %d invocations", calls)
	}
}

func TestRun_ArtifactFlushFailureOnSuccessAborts(t *testing.T) {
	f := newFixture()
	f.orch.artifactErr = fmt.Errorf("artifact upload refused")

	uc := f.runner(func(ctx context.Context) error { return nil }, nil, 3)

	_, err := uc.Run(context.Background())
	if err == nil {
		t.Fatal("Expected error when log artifact upload fails")
	}
	if !strings.Contains(err.Error(), "artifact upload refused") {
		t.Errorf("Expected flush error surfaced, got %v", err)
	}
	if f.orch.finishStatus != entity.FinishStatusSuccess {
		t.Errorf("Finish call already made with SUCCESS before flush, got %s", f.orch.finishStatus)
	}
}
