package sniffer

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cerberus-dl/cerberus/internal/apperrors"
	"github.com/cerberus-dl/cerberus/internal/config"
)

const (
	// devToolsReadyTimeout bounds how long we wait for the browser to
	// announce its DevTools endpoint on stderr.
	devToolsReadyTimeout = 15 * time.Second

	// networkIdleAfter ends the capture early once the page has loaded and
	// the network has been quiet this long.
	networkIdleAfter = 3 * time.Second
)

var devToolsURLPattern = regexp.MustCompile(`ws://[^\s]+`)

// ChromeDriver drives a Chromium-family browser over the DevTools protocol.
// One browser process is launched per capture and torn down afterwards, so no
// cookies or state leak between sessions.
type ChromeDriver struct {
	browserPath string
	userAgent   string
}

// NewChromeDriver creates a driver for the configured browser binary.
func NewChromeDriver(settings *config.Settings) *ChromeDriver {
	return &ChromeDriver{
		browserPath: settings.BrowserPath,
		userAgent:   settings.UserAgent,
	}
}

// NavigateAndCapture implements the BrowserDriver interface.
func (d *ChromeDriver) NavigateAndCapture(ctx context.Context, pageURL string, window time.Duration) (*TrafficLog, error) {
	logger := config.GetLogger()

	if d.browserPath == "" {
		return nil, apperrors.NewBrowserLaunchError("", errors.New("browser_path is not configured"))
	}

	profileDir, err := os.MkdirTemp("", "cerberus-profile-")
	if err != nil {
		return nil, apperrors.NewFileSystemError(os.TempDir(), err)
	}
	defer os.RemoveAll(profileDir)

	cmd := exec.CommandContext(ctx, d.browserPath,
		"--headless=new",
		"--incognito",
		"--remote-debugging-port=0",
		"--no-first-run",
		"--no-default-browser-check",
		"--mute-audio",
		"--autoplay-policy=no-user-gesture-required",
		"--user-data-dir="+profileDir,
		"about:blank",
	)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, apperrors.NewBrowserLaunchError(d.browserPath, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, apperrors.NewBrowserLaunchError(d.browserPath, err)
	}
	defer func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}()

	wsURL, err := waitForDevTools(stderr)
	if err != nil {
		return nil, apperrors.NewBrowserLaunchError(d.browserPath, err)
	}
	logger.Debug().Str("endpoint", wsURL).Msg("DevTools endpoint ready")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, apperrors.NewBrowserLaunchError(d.browserPath, err)
	}
	defer conn.Close()

	sess := newCDPSession(conn)

	sid, err := d.openPage(ctx, sess)
	if err != nil {
		return nil, apperrors.NewBrowserLaunchError(d.browserPath, err)
	}

	if err := sess.call(ctx, sid, "Page.navigate", map[string]any{"url": pageURL}, nil); err != nil {
		return nil, fmt.Errorf("failed to navigate to %s: %w", pageURL, err)
	}

	traffic := &TrafficLog{PageURL: pageURL}
	d.capture(ctx, sess, window, traffic)

	// Best effort: the traffic log is still useful without the document.
	var eval struct {
		Result struct {
			Value string `json:"value"`
		} `json:"result"`
	}
	if err := sess.call(ctx, sid, "Runtime.evaluate", map[string]any{
		"expression":    "document.documentElement.outerHTML",
		"returnByValue": true,
	}, &eval); err != nil {
		logger.Warn().Err(err).Str("url", pageURL).Msg("Could not read rendered document")
	}
	traffic.PageHTML = eval.Result.Value

	return traffic, nil
}

// openPage creates a fresh tab and enables the domains the capture needs,
// returning the flattened protocol session ID.
func (d *ChromeDriver) openPage(ctx context.Context, sess *cdpSession) (string, error) {
	var created struct {
		TargetID string `json:"targetId"`
	}
	if err := sess.call(ctx, "", "Target.createTarget", map[string]any{"url": "about:blank"}, &created); err != nil {
		return "", err
	}

	var attached struct {
		SessionID string `json:"sessionId"`
	}
	if err := sess.call(ctx, "", "Target.attachToTarget", map[string]any{
		"targetId": created.TargetID,
		"flatten":  true,
	}, &attached); err != nil {
		return "", err
	}
	sid := attached.SessionID

	if err := sess.call(ctx, sid, "Network.enable", nil, nil); err != nil {
		return "", err
	}
	if err := sess.call(ctx, sid, "Page.enable", nil, nil); err != nil {
		return "", err
	}
	if d.userAgent != "" {
		if err := sess.call(ctx, sid, "Network.setUserAgentOverride", map[string]any{"userAgent": d.userAgent}, nil); err != nil {
			return "", err
		}
	}
	return sid, nil
}

// capture records responseReceived events until the window elapses or the
// network goes idle after page load, whichever comes first.
func (d *ChromeDriver) capture(ctx context.Context, sess *cdpSession, window time.Duration, traffic *TrafficLog) {
	deadline := time.NewTimer(window)
	defer deadline.Stop()
	idle := time.NewTimer(networkIdleAfter)
	defer idle.Stop()

	loaded := false
	handle := func(m cdpMessage) {
		switch m.Method {
		case "Network.responseReceived":
			var p struct {
				Response struct {
					URL      string `json:"url"`
					MimeType string `json:"mimeType"`
				} `json:"response"`
			}
			if err := json.Unmarshal(m.Params, &p); err != nil {
				return
			}
			traffic.Responses = append(traffic.Responses, CapturedResponse{
				URL:        p.Response.URL,
				MimeType:   p.Response.MimeType,
				ObservedAt: time.Now(),
			})
		case "Page.loadEventFired":
			loaded = true
		}
		if !idle.Stop() {
			select {
			case <-idle.C:
			default:
			}
		}
		idle.Reset(networkIdleAfter)
	}

	for _, m := range sess.takePending() {
		handle(m)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case <-idle.C:
			if loaded {
				return
			}
			idle.Reset(networkIdleAfter)
		case m, ok := <-sess.msgs:
			if !ok {
				return
			}
			if m.ID == 0 {
				handle(m)
			}
		}
	}
}

// waitForDevTools scans the browser's stderr for the DevTools websocket URL.
// The scanner goroutine keeps consuming stderr until the pipe closes, so a
// chatty browser can never fill the pipe and stall the capture; it exits once
// the process is killed.
func waitForDevTools(stderr io.Reader) (string, error) {
	found := make(chan string, 1)
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			if match := devToolsURLPattern.FindString(scanner.Text()); match != "" {
				select {
				case found <- match:
				default:
				}
			}
		}
	}()

	select {
	case wsURL := <-found:
		return wsURL, nil
	case <-time.After(devToolsReadyTimeout):
		return "", errors.New("timed out waiting for the DevTools endpoint")
	}
}

// cdpMessage is a raw DevTools protocol frame: either a command response
// (ID set) or an event (Method set).
type cdpMessage struct {
	ID        int             `json:"id,omitempty"`
	Method    string          `json:"method,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *cdpError       `json:"error,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
}

type cdpError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// cdpSession multiplexes one DevTools websocket: commands are matched to
// responses by ID, events arriving in between are buffered for the capture
// loop.
type cdpSession struct {
	conn    *websocket.Conn
	msgs    chan cdpMessage
	pending []cdpMessage
	nextID  int
}

func newCDPSession(conn *websocket.Conn) *cdpSession {
	sess := &cdpSession{
		conn: conn,
		msgs: make(chan cdpMessage, 256),
	}
	go sess.readPump()
	return sess
}

func (s *cdpSession) readPump() {
	for {
		var m cdpMessage
		if err := s.conn.ReadJSON(&m); err != nil {
			close(s.msgs)
			return
		}
		s.msgs <- m
	}
}

// call sends one command and waits for its response, buffering any events
// that arrive first.
func (s *cdpSession) call(ctx context.Context, sessionID, method string, params, result any) error {
	s.nextID++
	id := s.nextID

	req := map[string]any{"id": id, "method": method}
	if params != nil {
		req["params"] = params
	}
	if sessionID != "" {
		req["sessionId"] = sessionID
	}
	if err := s.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("failed to send %s: %w", method, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-s.msgs:
			if !ok {
				return errors.New("devtools connection closed")
			}
			if m.ID != id {
				if m.ID == 0 {
					s.pending = append(s.pending, m)
				}
				continue
			}
			if m.Error != nil {
				return fmt.Errorf("%s failed: %s", method, m.Error.Message)
			}
			if result != nil && m.Result != nil {
				return json.Unmarshal(m.Result, result)
			}
			return nil
		}
	}
}

// takePending hands buffered events to the caller and clears the buffer.
func (s *cdpSession) takePending() []cdpMessage {
	pending := s.pending
	s.pending = nil
	return pending
}
