// Package chromecompositor provides a compositor implementation using chromedp.
//
// The compositor is a web page: its canvas is the rendered surface, its
// video element is the original media, and MediaRecorder encodes the live
// stream. Page events come back through a CDP runtime binding.
package chromecompositor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/user/clipforge/pkg/ports"
)

// ErrNotOpen is returned when the page has not been opened yet.
var ErrNotOpen = errors.New("chromecompositor: page not open")

// Options configures the browser hosting the compositor page.
type Options struct {
	ChromePath      string
	Headless        bool
	UserAgent       string
	WindowWidth     int
	WindowHeight    int
	SurfaceSelector string        // Canvas rendering the composition
	MediaSelector   string        // Video element carrying the original media
	LoadTimeout     time.Duration // Navigation and bridge installation
	CallTimeout     time.Duration // Each page call
}

// DefaultOptions returns Options with default values.
func DefaultOptions() Options {
	return Options{
		Headless:        true,
		WindowWidth:     1080,
		WindowHeight:    1920,
		SurfaceSelector: "canvas",
		MediaSelector:   "video",
		LoadTimeout:     30 * time.Second,
		CallTimeout:     10 * time.Second,
	}
}

// Compositor implements ports.Compositor over a Chrome page.
type Compositor struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc

	opts      Options
	logger    ports.Logger
	listeners *listeners
	events    *queue
	open      bool
}

// New creates a new Compositor.
func New(opts Options, logger ports.Logger) *Compositor {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultOptions().CallTimeout
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = DefaultOptions().LoadTimeout
	}
	return &Compositor{
		opts:      opts,
		logger:    logger.WithComponent("browser"),
		listeners: newListeners(),
		events:    newQueue(),
	}
}

// Launch starts the browser.
func (c *Compositor) Launch(ctx context.Context) error {
	chromedpOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("metrics-recording-only", true),
		// Playback starts without a user gesture.
		chromedp.Flag("autoplay-policy", "no-user-gesture-required"),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
	}

	if c.opts.Headless {
		chromedpOpts = append(chromedpOpts, chromedp.Flag("headless", "new"))
	}

	chromePath := ResolveChromePath(c.opts.ChromePath)
	if chromePath == "" {
		return fmt.Errorf("chrome not found: please install Chrome/Chromium, set CHROME_PATH environment variable, or use --chrome-path option")
	}
	chromedpOpts = append(chromedpOpts, chromedp.ExecPath(chromePath))

	if c.opts.UserAgent != "" {
		chromedpOpts = append(chromedpOpts, chromedp.UserAgent(c.opts.UserAgent))
	}
	if c.opts.WindowWidth > 0 && c.opts.WindowHeight > 0 {
		chromedpOpts = append(chromedpOpts, chromedp.WindowSize(c.opts.WindowWidth, c.opts.WindowHeight))
	}

	// Server and container execution
	chromedpOpts = append(chromedpOpts,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-namespace-sandbox", true),
		chromedp.Flag("no-zygote", true),
	)

	c.allocCtx, c.allocCancel = chromedp.NewExecAllocator(ctx, chromedpOpts...)
	c.ctx, c.cancel = chromedp.NewContext(c.allocCtx)

	chromedp.ListenTarget(c.ctx, func(ev interface{}) {
		if e, ok := ev.(*runtime.EventBindingCalled); ok && e.Name == bindingName {
			c.events.push(e.Payload)
		}
	})

	if err := chromedp.Run(c.ctx, runtime.AddBinding(bindingName)); err != nil {
		c.Close()
		return fmt.Errorf("add binding: %w", err)
	}
	go c.dispatchLoop()

	c.logger.Debug("Browser launched: %s", chromePath)
	return nil
}

// Open navigates to the compositor page and installs the bridge.
func (c *Compositor) Open(pageURL string) error {
	if c.ctx == nil {
		return ErrNotOpen
	}
	ctx, cancel := context.WithTimeout(c.ctx, c.opts.LoadTimeout)
	defer cancel()

	err := chromedp.Run(ctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady(c.opts.SurfaceSelector, chromedp.ByQuery),
		chromedp.WaitReady(c.opts.MediaSelector, chromedp.ByQuery),
		chromedp.Evaluate(installScript(c.opts.SurfaceSelector, c.opts.MediaSelector), nil),
	)
	if err != nil {
		return fmt.Errorf("open %s: %w", pageURL, err)
	}
	c.open = true
	c.logger.Info("Compositor page opened: %s", pageURL)
	return nil
}

// dispatchLoop delivers page events in arrival order until the browser closes.
func (c *Compositor) dispatchLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-c.events.notify:
			for _, payload := range c.events.drain() {
				if err := c.listeners.dispatch(payload); err != nil {
					c.logger.Warn("Dropped page event: %v", err)
				}
			}
		}
	}
}

// eval runs a bridge call and decodes its result into res (which may be nil).
func (c *Compositor) eval(ctx context.Context, expr string, res any) error {
	if !c.open {
		return ErrNotOpen
	}
	ctx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()
	return chromedp.Run(ctx, chromedp.Evaluate(expr, res))
}

// evalAwait is eval for calls returning a promise.
func (c *Compositor) evalAwait(ctx context.Context, expr string, res any) error {
	if !c.open {
		return ErrNotOpen
	}
	ctx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()
	return chromedp.Run(ctx, chromedp.Evaluate(expr, res, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
}

// Surface returns the page canvas.
func (c *Compositor) Surface() ports.Surface {
	return &surface{c: c}
}

// Media returns the page video element.
func (c *Compositor) Media() ports.MediaSource {
	return &media{c: c}
}

// Recorders returns the page MediaRecorder factory.
func (c *Compositor) Recorders() ports.RecorderFactory {
	return &recorderFactory{c: c}
}

// Environment reports the page's capture capabilities.
func (c *Compositor) Environment(ctx context.Context) (ports.Environment, error) {
	var env struct {
		UserAgent      string `json:"userAgent"`
		ElementCapture bool   `json:"elementCapture"`
		Recorder       bool   `json:"recorder"`
	}
	if err := c.eval(ctx, call("environment"), &env); err != nil {
		return ports.Environment{}, fmt.Errorf("environment: %w", err)
	}
	return ports.Environment{
		UserAgent:      env.UserAgent,
		ElementCapture: env.ElementCapture,
		Recorder:       env.Recorder,
	}, nil
}

// Close shuts down the browser.
func (c *Compositor) Close() error {
	c.open = false
	if c.cancel != nil {
		c.cancel()
	}

	// Give Chrome a moment to shut down gracefully, then force kill
	time.Sleep(100 * time.Millisecond)

	if c.allocCancel != nil {
		c.allocCancel()
	}
	return nil
}

// Ensure Compositor implements ports.Compositor
var _ ports.Compositor = (*Compositor)(nil)
