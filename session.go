package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

const whatsappURL = "https://web.whatsapp.com"

// AttachmentKind selects which chooser menu entry an upload goes through.
type AttachmentKind string

const (
	KindImage    AttachmentKind = "image"
	KindDocument AttachmentKind = "document"
)

// Session controller error kinds. Setup and authentication failures are
// fatal for the run; everything else is contact-scoped and recoverable.
var (
	ErrSetupFailed      = errors.New("browser setup failed")
	ErrAuthTimeout      = errors.New("authentication timed out")
	ErrInvalidRecipient = errors.New("recipient rejected by whatsapp")
	ErrChatOpenFailed   = errors.New("chat failed to open")
	ErrTextSendFailed   = errors.New("text send failed")
	ErrFileSendFailed   = errors.New("file send failed")
)

type SessionState int

const (
	StateUninitialized SessionState = iota
	StateDriverReady
	StateAuthenticated
	StateChatOpen
	StateClosed
)

// Session owns one chromedp browser instance against WhatsApp Web and
// exposes the retryable primitives the delivery loop needs. No chromedp
// error escapes a public method undecorated; callers dispatch on the
// sentinel kinds above with errors.Is.
type Session struct {
	config      *Config
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	state      SessionState
	workspace  string // temp profile dir, removed on Close
	composeSel string // CSS selector of the compose box in the open chat
}

func NewSession(config *Config) *Session {
	return &Session{config: config, state: StateUninitialized}
}

func (s *Session) State() SessionState { return s.state }

// Setup launches the browser process with the anti-automation fingerprint
// flags and a session workspace. Failure here aborts the whole run.
func (s *Session) Setup() error {
	Log("info", "Initializing browser automation...")

	userDataDir := s.config.Browser.UserDataDir
	if userDataDir == "" {
		dir, err := os.MkdirTemp("", "wa-bulksend-*")
		if err != nil {
			return fmt.Errorf("%w: cannot create session workspace: %v", ErrSetupFailed, err)
		}
		s.workspace = dir
		userDataDir = dir
		Logf("debug", "Using temporary profile workspace: %s", dir)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.config.Browser.Headless),
		chromedp.UserDataDir(userDataDir),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("excludeSwitches", "enable-automation"),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("disable-prompt-on-repost", true),
		chromedp.WindowSize(1200, 800),
	)
	if s.config.Browser.ChromePath != "" {
		Logf("info", "Using Chrome at: %s", s.config.Browser.ChromePath)
		opts = append(opts, chromedp.ExecPath(s.config.Browser.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	s.allocCancel = allocCancel
	s.ctx, s.cancel = chromedp.NewContext(allocCtx)

	// Kick off the browser process now so a broken install fails fast.
	startCtx, startCancel := context.WithTimeout(s.ctx, time.Duration(s.config.Browser.PageLoadSeconds)*time.Second)
	defer startCancel()
	if err := chromedp.Run(startCtx, chromedp.Navigate("about:blank")); err != nil {
		s.releaseBrowser()
		s.removeWorkspace()
		if strings.Contains(err.Error(), "executable file not found") {
			return fmt.Errorf("%w: Chrome executable not found, check chrome_path: %v", ErrSetupFailed, err)
		}
		return fmt.Errorf("%w: %v", ErrSetupFailed, err)
	}

	s.state = StateDriverReady
	Log("info", "Browser started")
	return nil
}

// Authenticate navigates to WhatsApp Web and waits for the session to be
// usable. If a logged-in indicator is already present the QR wait is
// skipped; otherwise the QR challenge must resolve within the configured
// timeout, which is fatal when exceeded.
func (s *Session) Authenticate() error {
	Log("info", "Opening WhatsApp Web...")
	if err := chromedp.Run(s.ctx, chromedp.Navigate(whatsappURL), chromedp.Sleep(3*time.Second)); err != nil {
		return fmt.Errorf("%w: failed to navigate: %v", ErrSetupFailed, err)
	}

	if _, ok := s.probeVisible(loggedInStrategies, 5*time.Second); ok {
		Log("info", "Existing session detected, already logged in")
		s.state = StateAuthenticated
		return nil
	}

	qrTimeout := time.Duration(s.config.Browser.QRTimeoutSeconds) * time.Second
	if _, ok := s.probeVisible(qrCodeStrategies, 3*time.Second); ok {
		Logf("info", "QR code detected - scan it within %d seconds", s.config.Browser.QRTimeoutSeconds)
	} else {
		Log("info", "Waiting for WhatsApp Web to load...")
	}

	deadline := time.Now().Add(qrTimeout)
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		if _, ok := s.probeVisible(loggedInStrategies, 3*time.Second); ok {
			Log("info", "WhatsApp Web session validated")
			s.state = StateAuthenticated
			s.dismissPopups()
			return nil
		}
		select {
		case <-ticker.C:
			remaining := time.Until(deadline).Round(time.Second)
			if remaining > 0 {
				Logf("info", "Still waiting for login... (%v remaining)", remaining)
			}
		case <-s.ctx.Done():
			return fmt.Errorf("%w: browser closed while waiting for login", ErrAuthTimeout)
		default:
			time.Sleep(time.Second)
		}
	}

	return fmt.Errorf("%w: no login within %v", ErrAuthTimeout, qrTimeout)
}

// dismissPopups closes the occasional post-login dialog. Best effort.
func (s *Session) dismissPopups() {
	dialogSelectors := []string{
		`//div[@role='dialog']//button[text()='Continue']`,
		`//div[@role='dialog']//button[text()='Continuar']`,
		`//div[@role='dialog']//span[@data-icon='x']/..`,
	}
	for _, sel := range dialogSelectors {
		ctx, cancel := context.WithTimeout(s.ctx, time.Second)
		err := chromedp.Run(ctx, chromedp.Click(sel, chromedp.BySearch))
		cancel()
		if err == nil {
			Log("debug", "Dismissed a popup dialog")
			return
		}
	}
}

// OpenChat navigates to the direct chat URL for a phone number and locates
// the compose box, distinguishing it from the chat search box. Up to the
// configured number of scan attempts are made, with a page reload before
// the last one. An invalid-number banner maps to ErrInvalidRecipient.
func (s *Session) OpenChat(phone string) error {
	s.composeSel = ""
	Logf("debug", "Opening chat for %s", phone)

	chatURL := fmt.Sprintf("%s/send?phone=%s", whatsappURL, strings.TrimPrefix(phone, "+"))
	err := chromedp.Run(s.ctx,
		chromedp.Evaluate(`window.onbeforeunload = null;`, nil),
		chromedp.Navigate(chatURL),
		chromedp.Sleep(5*time.Second),
	)
	if err != nil {
		return fmt.Errorf("%w: navigation: %v", ErrChatOpenFailed, err)
	}

	attempts := s.config.Delivery.OpenChatAttempts
	for attempt := 1; attempt <= attempts; attempt++ {
		if sel, strategy, ok := s.scanComposeBox(); ok {
			s.composeSel = sel
			s.state = StateChatOpen
			Logf("debug", "Chat open for %s (compose box via %s)", phone, strategy)
			return nil
		}

		if _, ok := s.probeVisible(invalidNumberStrategies, time.Second); ok {
			return fmt.Errorf("%w: %s", ErrInvalidRecipient, phone)
		}

		if attempt == attempts-1 {
			Log("debug", "Compose box not found, reloading page...")
			_ = chromedp.Run(s.ctx, chromedp.Reload(), chromedp.Sleep(5*time.Second))
		} else if attempt < attempts {
			time.Sleep(3 * time.Second)
		}
	}

	return fmt.Errorf("%w: no compose box after %d attempts for %s", ErrChatOpenFailed, attempts, phone)
}

// scanComposeBox collects the editable candidates on the page and runs the
// disambiguation filter over their traits.
func (s *Session) scanComposeBox() (string, string, bool) {
	var candidates []elementTraits
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.Evaluate(composeProbeJS, &candidates)); err != nil {
		Logf("debug", "Compose box scan failed: %v", err)
		return "", "", false
	}

	idx, strategy, ok := chooseComposeBox(candidates)
	if !ok {
		return "", "", false
	}
	return fmt.Sprintf(`div[data-wam-idx='%d']`, idx), strategy, true
}

// SendText types and sends the rendered message into the open chat. Text
// goes in through the clipboard so multi-line messages and non-ASCII
// content survive the editable div.
func (s *Session) SendText(message string) error {
	if s.composeSel == "" {
		return fmt.Errorf("%w: no chat open", ErrTextSendFailed)
	}

	normalized := strings.ReplaceAll(message, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	err := s.runWithTimeout(15*time.Second,
		chromedp.Click(s.composeSel, chromedp.ByQuery),
		chromedp.Sleep(300*time.Millisecond),
		chromedp.KeyEvent("a", chromedp.KeyModifiers(2)),
		chromedp.KeyEvent("\b"),
		chromedp.Sleep(200*time.Millisecond),
		chromedp.Evaluate(fmt.Sprintf(`navigator.clipboard.writeText(%s)`, escapeJSString(normalized)), nil),
		chromedp.Sleep(200*time.Millisecond),
		chromedp.KeyEvent("v", chromedp.KeyModifiers(2)),
		chromedp.Sleep(500*time.Millisecond),
		chromedp.KeyEvent("\r"),
		chromedp.Sleep(2*time.Second),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTextSendFailed, err)
	}

	Log("debug", "Text message sent")
	return nil
}

// SendFiles uploads one batch of attachments of a single kind through the
// four-step handshake: attach affordance, kind-specific file input, path
// injection, send affordance. Images and documents for the same contact go
// through two independent invocations.
func (s *Session) SendFiles(paths []string, kind AttachmentKind) error {
	if len(paths) == 0 {
		return nil
	}

	absPaths := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			Logf("warn", "Skipping attachment with unresolvable path %s: %v", p, err)
			continue
		}
		absPaths = append(absPaths, abs)
	}
	if len(absPaths) == 0 {
		return fmt.Errorf("%w: no usable attachment paths", ErrFileSendFailed)
	}

	Logf("debug", "Sending %d %s attachment(s)", len(absPaths), kind)

	if _, err := s.clickFirst(attachButtonStrategies, 2*time.Second); err != nil {
		Log("debug", "Attach button not clickable, trying direct file input access...")
	} else {
		time.Sleep(time.Second)
	}

	inputStrategies := documentInputStrategies
	if kind == KindImage {
		inputStrategies = imageInputStrategies
	}

	uploaded := false
	for _, strategy := range inputStrategies {
		ctx, cancel := context.WithTimeout(s.ctx, 2*time.Second)
		err := chromedp.Run(ctx, chromedp.SetUploadFiles(strategy.Selector, absPaths, chromedp.ByQuery))
		cancel()
		if err == nil {
			uploaded = true
			Logf("debug", "Uploaded via strategy %q", strategy.Name)
			break
		}
		Logf("debug", "File input strategy %q failed: %v", strategy.Name, err)
	}
	if !uploaded {
		return fmt.Errorf("%w: no file input accepted the %s upload", ErrFileSendFailed, kind)
	}

	// Give the preview pane time to render before probing for send.
	settle := time.Duration(3+len(absPaths)) * time.Second
	if settle > 10*time.Second {
		settle = 10 * time.Second
	}
	time.Sleep(settle)

	if _, err := s.clickFirst(sendButtonStrategies, 3*time.Second); err != nil {
		// Preview pane sometimes sends on Enter when the button moved.
		Log("debug", "Send button not found, falling back to Enter")
		if kerr := s.runWithTimeout(5*time.Second, chromedp.KeyEvent("\r")); kerr != nil {
			return fmt.Errorf("%w: send affordance not reachable: %v", ErrFileSendFailed, err)
		}
	}

	time.Sleep(4 * time.Second)
	Logf("debug", "%s attachment(s) sent", kind)
	return nil
}

// Close releases the browser and the temporary profile workspace. Safe to
// call more than once and on a partially initialized session. Cleanup
// failures are logged, never surfaced.
func (s *Session) Close() {
	if s.state == StateClosed {
		return
	}
	s.releaseBrowser()
	s.removeWorkspace()
	s.state = StateClosed
	Log("info", "Browser closed")
}

func (s *Session) removeWorkspace() {
	if s.workspace == "" {
		return
	}
	if err := os.RemoveAll(s.workspace); err != nil {
		Logf("warn", "Failed to remove session workspace %s: %v", s.workspace, err)
	}
	s.workspace = ""
}

func (s *Session) releaseBrowser() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.allocCancel != nil {
		s.allocCancel()
		s.allocCancel = nil
	}
}

func (s *Session) runWithTimeout(d time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(s.ctx, d)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// probeVisible tries each strategy with a short per-attempt timeout and
// returns the first one whose element is visible.
func (s *Session) probeVisible(strategies []locatorStrategy, perAttempt time.Duration) (locatorStrategy, bool) {
	for _, strategy := range strategies {
		ctx, cancel := context.WithTimeout(s.ctx, perAttempt)
		var err error
		if isXPath(strategy.Selector) {
			err = chromedp.Run(ctx, chromedp.WaitVisible(strategy.Selector, chromedp.BySearch))
		} else {
			err = chromedp.Run(ctx, chromedp.WaitVisible(strategy.Selector, chromedp.ByQuery))
		}
		cancel()
		if err == nil {
			return strategy, true
		}
	}
	return locatorStrategy{}, false
}

// clickFirst clicks the first strategy that resolves to a clickable element.
func (s *Session) clickFirst(strategies []locatorStrategy, perAttempt time.Duration) (string, error) {
	for _, strategy := range strategies {
		ctx, cancel := context.WithTimeout(s.ctx, perAttempt)
		var err error
		if isXPath(strategy.Selector) {
			err = chromedp.Run(ctx, chromedp.Click(strategy.Selector, chromedp.BySearch))
		} else {
			err = chromedp.Run(ctx, chromedp.Click(strategy.Selector, chromedp.ByQuery))
		}
		cancel()
		if err == nil {
			Logf("debug", "Clicked via strategy %q", strategy.Name)
			return strategy.Name, nil
		}
	}
	return "", fmt.Errorf("no strategy matched a clickable element")
}

// escapeJSString escapes a string for embedding in an evaluated script.
func escapeJSString(str string) string {
	escaped := strings.ReplaceAll(str, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, "`", "\\`")
	escaped = strings.ReplaceAll(escaped, "\n", "\\n")
	escaped = strings.ReplaceAll(escaped, "\r", "\\r")
	escaped = strings.ReplaceAll(escaped, "\t", "\\t")
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `"` + escaped + `"`
}
