package x11

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"github.com/yeo-menghan/big-brother-watching/pkg/screen"
)

// Capturer implements screen.Capturer for X11 sessions. The active
// window and its title come straight from EWMH root-window properties;
// screenshots are taken with scrot or ImageMagick import when either
// is installed.
type Capturer struct {
	conn          *xgb.Conn
	root          xproto.Window
	screenshotDir string
	screenshotCmd string

	atomActiveWindow xproto.Atom
	atomNetWMName    xproto.Atom
	atomUTF8String   xproto.Atom
}

// NewCapturer connects to the X server and resolves the atoms used on
// every capture. screenshotDir may be empty to disable screenshots.
func NewCapturer(screenshotDir string) (*Capturer, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	c := &Capturer{
		conn:          conn,
		root:          xproto.Setup(conn).DefaultScreen(conn).Root,
		screenshotDir: screenshotDir,
		screenshotCmd: findScreenshotCommand(),
	}

	if c.atomActiveWindow, err = c.internAtom("_NET_ACTIVE_WINDOW"); err != nil {
		conn.Close()
		return nil, err
	}
	if c.atomNetWMName, err = c.internAtom("_NET_WM_NAME"); err != nil {
		conn.Close()
		return nil, err
	}
	if c.atomUTF8String, err = c.internAtom("UTF8_STRING"); err != nil {
		conn.Close()
		return nil, err
	}

	return c, nil
}

// Name returns "x11"
func (c *Capturer) Name() string {
	return "x11"
}

// IsAvailable reports whether an X11 session is reachable
func (c *Capturer) IsAvailable() bool {
	return c.conn != nil
}

// Capture returns the foreground window's label and, best effort, a
// screenshot artifact path.
func (c *Capturer) Capture() (*screen.Observation, error) {
	win, err := c.activeWindow()
	if err != nil {
		return nil, err
	}

	title := c.windowTitle(win)
	class := c.windowClass(win)

	label := title
	switch {
	case label == "" && class == "":
		return nil, fmt.Errorf("active window has no title or class")
	case label == "":
		label = class
	case class != "" && !strings.Contains(strings.ToLower(label), strings.ToLower(class)):
		label = class + " - " + title
	}

	obs := &screen.Observation{WindowTitle: label}
	if path, err := c.takeScreenshot(); err == nil {
		obs.ScreenshotPath = path
	}
	return obs, nil
}

// Close closes the X connection
func (c *Capturer) Close() error {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	return nil
}

func (c *Capturer) internAtom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(c.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to intern atom %s: %w", name, err)
	}
	return reply.Atom, nil
}

func (c *Capturer) activeWindow() (xproto.Window, error) {
	prop, err := xproto.GetProperty(c.conn, false, c.root, c.atomActiveWindow,
		xproto.AtomWindow, 0, 1).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to read _NET_ACTIVE_WINDOW: %w", err)
	}
	if len(prop.Value) < 4 {
		return 0, fmt.Errorf("no active window")
	}

	win := xproto.Window(xgb.Get32(prop.Value))
	if win == 0 {
		return 0, fmt.Errorf("no active window")
	}
	return win, nil
}

// windowTitle prefers the UTF-8 _NET_WM_NAME and falls back to the
// legacy WM_NAME property.
func (c *Capturer) windowTitle(win xproto.Window) string {
	prop, err := xproto.GetProperty(c.conn, false, win, c.atomNetWMName,
		c.atomUTF8String, 0, 1<<16).Reply()
	if err == nil && len(prop.Value) > 0 {
		return string(prop.Value)
	}

	prop, err = xproto.GetProperty(c.conn, false, win, xproto.AtomWmName,
		xproto.AtomString, 0, 1<<16).Reply()
	if err == nil && len(prop.Value) > 0 {
		return string(prop.Value)
	}

	return ""
}

// windowClass returns the class half of WM_CLASS, which identifies the
// application even for sandboxed windows without a readable PID.
func (c *Capturer) windowClass(win xproto.Window) string {
	prop, err := xproto.GetProperty(c.conn, false, win, xproto.AtomWmClass,
		xproto.AtomString, 0, 1<<16).Reply()
	if err != nil || len(prop.Value) == 0 {
		return ""
	}

	// WM_CLASS is two null-terminated strings: instance, then class.
	parts := strings.Split(string(prop.Value), "\x00")
	if len(parts) >= 2 && parts[1] != "" {
		return parts[1]
	}
	if parts[0] != "" {
		return parts[0]
	}
	return ""
}

func (c *Capturer) takeScreenshot() (string, error) {
	if c.screenshotDir == "" || c.screenshotCmd == "" {
		return "", fmt.Errorf("screenshots unavailable")
	}

	filename := fmt.Sprintf("screenshot_%s.png", time.Now().Format("20060102_150405"))
	path := filepath.Join(c.screenshotDir, filename)

	var cmd *exec.Cmd
	switch c.screenshotCmd {
	case "scrot":
		cmd = exec.Command("scrot", "--overwrite", path)
	case "import":
		cmd = exec.Command("import", "-window", "root", path)
	default:
		return "", fmt.Errorf("no screenshot tool")
	}

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("screenshot command failed: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("screenshot not written: %w", err)
	}
	return path, nil
}

func findScreenshotCommand() string {
	for _, tool := range []string{"scrot", "import"} {
		if _, err := exec.LookPath(tool); err == nil {
			return tool
		}
	}
	return ""
}
