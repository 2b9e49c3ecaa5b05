package maestro

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bot-runner/internal/application/port/output"
	"bot-runner/internal/domain/entity"
)

var _ output.OrchestratorPort = (*Client)(nil)

// Client — REST-клиент оркестратора (Maestro-совместимый API).
// Одна реализация на оба режима подключения: managed-сессия получает
// server/taskID/token из окружения запуска, прямой login обменивает
// login+key на токен.
type Client struct {
	httpClient *http.Client
	server     string
	token      string
	taskID     string
	logger     output.LoggerPort
}

type Config struct {
	Server  string
	TaskID  string
	Token   string
	Timeout time.Duration

	// InsecureSkipVerify отключает проверку сертификата сервера
	// (исторический режим прямого подключения к внутреннему серверу).
	InsecureSkipVerify bool

	Logger output.LoggerPort
}

func newHTTPClient(cfg Config) *http.Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	var base http.RoundTripper = http.DefaultTransport
	if cfg.InsecureSkipVerify {
		base = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: &loggingTransport{base: base, logger: cfg.Logger},
	}
}

// NewFromEnvSession строит клиента managed-сессии: оркестратор сам передал
// боту адрес сервера, идентификатор задачи и токен доступа.
func NewFromEnvSession(cfg Config) (*Client, error) {
	if cfg.Server == "" || cfg.TaskID == "" || cfg.Token == "" {
		return nil, fmt.Errorf("maestro session requires server, task id and token")
	}

	return &Client{
		httpClient: newHTTPClient(cfg),
		server:     strings.TrimRight(cfg.Server, "/"),
		token:      cfg.Token,
		taskID:     cfg.TaskID,
		logger:     cfg.Logger,
	}, nil
}

// Login — режим прямого подключения: POST login+key, токен из ответа.
func Login(ctx context.Context, cfg Config, login, key string) (*Client, error) {
	if cfg.Server == "" {
		return nil, fmt.Errorf("maestro login requires server")
	}

	c := &Client{
		httpClient: newHTTPClient(cfg),
		server:     strings.TrimRight(cfg.Server, "/"),
		taskID:     cfg.TaskID,
		logger:     cfg.Logger,
	}

	body := map[string]string{"login": login, "key": key}
	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v2/workspace/login", body, &resp); err != nil {
		return nil, fmt.Errorf("maestro login: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("maestro login: empty access token")
	}

	c.token = resp.AccessToken
	return c, nil
}

func (c *Client) GetExecution(ctx context.Context) (*entity.Execution, error) {
	var resp struct {
		ID         string            `json:"id"`
		Parameters map[string]string `json:"parameters"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v2/task/"+c.taskID, nil, &resp); err != nil {
		return nil, fmt.Errorf("get execution: %w", err)
	}

	taskID := resp.ID
	if taskID == "" {
		taskID = c.taskID
	}

	return &entity.Execution{TaskID: taskID, Parameters: resp.Parameters}, nil
}

func (c *Client) FinishTask(ctx context.Context, taskID string, status entity.FinishStatus, message string) error {
	body := map[string]string{
		"state":         "FINISHED",
		"finishStatus":  string(status),
		"finishMessage": message,
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v2/task/"+taskID, body, nil); err != nil {
		return fmt.Errorf("finish task: %w", err)
	}
	return nil
}

func (c *Client) ReportError(ctx context.Context, taskID string, taskErr error, attachments []string) error {
	body := map[string]string{
		"taskId":  taskID,
		"type":    "BotExecutionError",
		"message": taskErr.Error(),
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v2/error", body, &resp); err != nil {
		return fmt.Errorf("report error: %w", err)
	}

	for _, path := range attachments {
		endpoint := "/api/v2/error/" + resp.ID + "/attachments"
		if err := c.uploadFile(ctx, endpoint, filepath.Base(path), path, nil); err != nil {
			return fmt.Errorf("attach %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

func (c *Client) PostArtifact(ctx context.Context, taskID, name, path string) error {
	fields := map[string]string{"taskId": taskID, "name": name}
	if err := c.uploadFile(ctx, "/api/v2/artifact", name, path, fields); err != nil {
		return fmt.Errorf("post artifact: %w", err)
	}
	return nil
}

func (c *Client) GetCredential(ctx context.Context, label, key string) (string, error) {
	endpoint := fmt.Sprintf("/api/v2/credential/%s/key/%s", label, key)

	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("get credential %s/%s: %w", label, key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("get credential %s/%s: status %d", label, key, resp.StatusCode)
	}

	secret, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("get credential %s/%s: %w", label, key, err)
	}
	return strings.TrimSpace(string(secret)), nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.server+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("token", c.token)
	}
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, endpoint, reader, "application/json")
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: status %d: %s", method, endpoint, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) uploadFile(ctx context.Context, endpoint, name, path string, fields map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return fmt.Errorf("write field %s: %w", k, err)
		}
	}

	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("copy file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, endpoint, &buf, writer.FormDataContentType())
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("POST %s: status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return nil
}

// loggingTransport дублирует HTTP-обмен с оркестратором в лог запуска.
type loggingTransport struct {
	base   http.RoundTripper
	logger output.LoggerPort
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)

	if t.logger != nil {
		if err != nil {
			t.logger.Debug("Maestro request failed", "method", req.Method, "url", req.URL.String(), "error", err)
		} else {
			t.logger.Debug("Maestro request", "method", req.Method, "url", req.URL.String(), "status", resp.StatusCode)
		}
	}
	return resp, err
}
