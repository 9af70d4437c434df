package networking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/rafabd1/Tendril/internal/config"
	"github.com/rafabd1/Tendril/internal/utils"
)

// Render failure classes. Callers treat both as a failed page fetch and only
// distinguish them for logging.
var (
	ErrRenderTimeout = errors.New("page render timed out")
	ErrRenderFailure = errors.New("page render failed")
)

// ChromeRenderer retrieves page source through a headless browser, so pages
// that assemble their contact details with scripts still yield addresses.
// The exec allocator is shared across the campaign; every Render call runs
// its own browser instance, keeping one wedged page from affecting siblings.
type ChromeRenderer struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	timeout     time.Duration
	logger      utils.Logger
}

// NewChromeRenderer builds the shared allocator from the campaign
// configuration.
func NewChromeRenderer(cfg *config.Config, logger utils.Logger) (*ChromeRenderer, error) {
	if logger == nil {
		logger = &utils.NoOpLogger{}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(cfg.UserAgent),
	)
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}
	if cfg.Proxy != "" {
		proxyURL, err := utils.ParseProxyURL(cfg.Proxy)
		if err != nil {
			return nil, err
		}
		if proxyURL != nil {
			opts = append(opts, chromedp.ProxyServer(proxyURL.String()))
		}
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &ChromeRenderer{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		timeout:     cfg.RenderTimeout,
		logger:      logger,
	}, nil
}

// Render navigates to pageURL and returns the rendered document markup.
// The renderer owns its per-page deadline; exceeding it yields
// ErrRenderTimeout, any other browser-side problem yields ErrRenderFailure.
func (r *ChromeRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	browserCtx, cancelBrowser := chromedp.NewContext(r.allocCtx)
	defer cancelBrowser()

	renderCtx := browserCtx
	if r.timeout > 0 {
		var cancelTimeout context.CancelFunc
		renderCtx, cancelTimeout = context.WithTimeout(browserCtx, r.timeout)
		defer cancelTimeout()
	}

	// Browser contexts descend from the allocator, not from the caller, so
	// caller cancellation has to be bridged in explicitly.
	stopBridge := context.AfterFunc(ctx, cancelBrowser)
	defer stopBridge()

	var html string
	err := chromedp.Run(renderCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %s", ErrRenderTimeout, pageURL)
		}
		return "", fmt.Errorf("%w: %s: %v", ErrRenderFailure, pageURL, err)
	}

	return html, nil
}

// Close releases the shared browser allocator.
func (r *ChromeRenderer) Close() {
	r.allocCancel()
}
