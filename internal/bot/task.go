package bot

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"bot-runner/internal/application/port/output"
)

// Task — демонстрационная задача бота: открыть страницу, снять метрики и
// скриншот. Продакшен-бот заменяет её своей бизнес-логикой с той же
// сигнатурой Run.
type Task struct {
	URL       string
	OutputDir string
	Headless  bool
	logger    output.LoggerPort
}

func NewTask(url, outputDir string, headless bool, logger output.LoggerPort) *Task {
	return &Task{
		URL:       url,
		OutputDir: outputDir,
		Headless:  headless,
		logger:    logger,
	}
}

func (t *Task) Run(ctx context.Context) error {
	l := launcher.New().
		Headless(t.Headless).
		NoSandbox(true).
		Delete("use-mock-keychain")

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		l.Kill()
		l.Cleanup()
	}()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: t.URL})
	if err != nil {
		return fmt.Errorf("open page %s: %w", t.URL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait page load: %w", err)
	}

	info, err := page.Eval(`() => ({
		title: document.title,
		links: document.querySelectorAll("a").length,
	})`)
	if err != nil {
		return fmt.Errorf("inspect page: %w", err)
	}

	summary := decodePageInfo(info.Value)
	t.logger.Info("Page inspected", "url", t.URL, "title", summary.Title, "links", summary.Links)

	shot, err := page.Screenshot(true, nil)
	if err != nil {
		return fmt.Errorf("take screenshot: %w", err)
	}
	return t.saveScreenshot(shot)
}

type pageInfo struct {
	Title string
	Links int
}

func decodePageInfo(v gson.JSON) pageInfo {
	return pageInfo{
		Title: v.Get("title").Str(),
		Links: v.Get("links").Int(),
	}
}

// saveScreenshot сохраняет полный кадр и уменьшенную копию рядом с логами.
func (t *Task) saveScreenshot(shot []byte) error {
	if err := os.MkdirAll(t.OutputDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	fullPath := filepath.Join(t.OutputDir, "page.png")
	if err := os.WriteFile(fullPath, shot, 0644); err != nil {
		return fmt.Errorf("save screenshot: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(shot))
	if err != nil {
		return fmt.Errorf("decode screenshot: %w", err)
	}
	thumb := imaging.Resize(img, 320, 0, imaging.Lanczos)

	thumbPath := filepath.Join(t.OutputDir, "page_thumb.png")
	if err := imaging.Save(thumb, thumbPath); err != nil {
		return fmt.Errorf("save thumbnail: %w", err)
	}

	t.logger.Info("Screenshot saved", "full", fullPath, "thumbnail", thumbPath)
	return nil
}
