package scraper

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"chart-collector/utils"
)

// Renderer loads pages in headless Chrome for charts that are built client-side.
type Renderer struct {
	chromeBin string
	settle    time.Duration
	logger    *utils.Logger
	retry     *utils.RetryConfig
}

// NewRenderer creates a Renderer. An empty chromeBin searches the usual locations.
func NewRenderer(chromeBin string, logger *utils.Logger) *Renderer {
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	return &Renderer{
		chromeBin: chromeBin,
		settle:    5 * time.Second,
		logger:    logger,
		retry: &utils.RetryConfig{
			MaxAttempts: 2,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// Available reports whether a browser binary was found.
func (r *Renderer) Available() bool {
	return r.chromeBin != ""
}

// Render navigates to url, scrolls to trigger lazy content and returns the
// resulting document HTML.
func (r *Renderer) Render(ctx context.Context, url string) ([]byte, error) {
	if !r.Available() {
		return nil, fmt.Errorf("render: no chrome binary found")
	}
	r.logger.Info("[render] Rendering %s with %s", url, r.chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(utils.BrowserUserAgent),
		chromedp.ExecPath(r.chromeBin),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	var html string
	err := r.retry.Do(ctx, "render "+url, func() error {
		// chromedp logs are noisy and not actionable here
		tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
		defer cancelTab()

		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, 90*time.Second)
		defer cancelTimeout()

		err := chromedp.Run(tabCtx,
			chromedp.Navigate(url),
			chromedp.Sleep(r.settle),
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(2*time.Second),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		)
		if err != nil {
			return fmt.Errorf("chromedp render: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return []byte(html), nil
}

func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
