package sharepoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bot-runner/internal/application/port/output"
)

var _ output.ArtifactStorePort = (*Client)(nil)

// Client — клиент библиотеки документов SharePoint: список файлов по
// паттерну имени бота и выгрузка логов в настроенную папку.
type Client struct {
	httpClient *http.Client
	siteURL    string
	username   string
	password   string
	folder     string
	botName    string
	logger     output.LoggerPort
}

type Config struct {
	SiteURL  string
	Username string
	Password string
	Folder   string
	BotName  string
	Timeout  time.Duration
	Logger   output.LoggerPort
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.SiteURL == "" {
		return nil, fmt.Errorf("sharepoint site url is required")
	}
	if cfg.Folder == "" {
		return nil, fmt.Errorf("sharepoint folder is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		siteURL:    strings.TrimRight(cfg.SiteURL, "/"),
		username:   cfg.Username,
		password:   cfg.Password,
		folder:     cfg.Folder,
		botName:    cfg.BotName,
		logger:     cfg.Logger,
	}, nil
}

// ListItemsByPattern возвращает имена файлов папки логов, содержащие имя
// бота.
func (c *Client) ListItemsByPattern(ctx context.Context) ([]string, error) {
	endpoint := fmt.Sprintf("%s/_api/web/GetFolderByServerRelativeUrl('%s')/Files?$filter=%s",
		c.siteURL, url.PathEscape(c.folder),
		url.QueryEscape(fmt.Sprintf("substringof('%s',Name)", c.botName)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json;odata=nometadata")
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list folder items: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list folder items: status %d", resp.StatusCode)
	}

	var payload struct {
		Value []struct {
			Name string `json:"Name"`
		} `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode folder listing: %w", err)
	}

	names := make([]string, 0, len(payload.Value))
	for _, item := range payload.Value {
		names = append(names, item.Name)
	}

	if c.logger != nil {
		c.logger.Debug("SharePoint folder listed", "folder", c.folder, "items", len(names))
	}
	return names, nil
}

// UploadFiles выгружает файлы в папку логов с перезаписью одноимённых.
func (c *Client) UploadFiles(ctx context.Context, paths []string) error {
	for _, path := range paths {
		if err := c.uploadFile(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) uploadFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	name := filepath.Base(path)
	endpoint := fmt.Sprintf("%s/_api/web/GetFolderByServerRelativeUrl('%s')/Files/add(url='%s',overwrite=true)",
		c.siteURL, url.PathEscape(c.folder), url.PathEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload %s: status %d: %s", name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if c.logger != nil {
		c.logger.Info("File uploaded to SharePoint", "file", name, "folder", c.folder)
	}
	return nil
}
