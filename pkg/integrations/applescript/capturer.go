package applescript

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/yeo-menghan/big-brother-watching/pkg/screen"
)

// Capturer implements screen.Capturer on macOS using osascript window
// queries and the system screencapture tool.
type Capturer struct {
	screenshotDir    string
	hasOsascript     bool
	hasScreencapture bool
}

// NewCapturer creates a macOS capturer. screenshotDir may be empty to
// disable screenshots.
func NewCapturer(screenshotDir string) *Capturer {
	c := &Capturer{screenshotDir: screenshotDir}
	c.hasOsascript = commandExists("osascript")
	c.hasScreencapture = commandExists("screencapture")
	return c
}

// Name returns "applescript"
func (c *Capturer) Name() string {
	return "applescript"
}

// IsAvailable checks for a usable osascript on macOS
func (c *Capturer) IsAvailable() bool {
	return runtime.GOOS == "darwin" && c.hasOsascript
}

// Capture queries System Events for the frontmost application and its
// front window title.
func (c *Capturer) Capture() (*screen.Observation, error) {
	appName, err := c.frontmostApp()
	if err != nil {
		return nil, err
	}

	label := appName
	if title := c.frontWindowTitle(appName); title != "" {
		label = appName + " - " + title
	}

	obs := &screen.Observation{WindowTitle: label}
	if path, err := c.takeScreenshot(); err == nil {
		obs.ScreenshotPath = path
	}
	return obs, nil
}

// Close is a no-op, osascript holds no persistent resources
func (c *Capturer) Close() error {
	return nil
}

func (c *Capturer) frontmostApp() (string, error) {
	script := `tell application "System Events" to get name of first application process whose frontmost is true`
	out, err := exec.Command("osascript", "-e", script).Output()
	if err != nil {
		return "", fmt.Errorf("failed to query frontmost application: %w", err)
	}

	appName := strings.TrimSpace(string(out))
	if appName == "" {
		return "", fmt.Errorf("no frontmost application reported")
	}
	return appName, nil
}

// frontWindowTitle asks the application for its front window name.
// Many apps refuse the query, so failure just means no extra detail.
func (c *Capturer) frontWindowTitle(appName string) string {
	script := fmt.Sprintf(`tell application %q
	try
		return name of front window
	on error
		return ""
	end try
end tell`, appName)

	out, err := exec.Command("osascript", "-e", script).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func (c *Capturer) takeScreenshot() (string, error) {
	if c.screenshotDir == "" || !c.hasScreencapture {
		return "", fmt.Errorf("screenshots unavailable")
	}

	filename := fmt.Sprintf("screenshot_%s.png", time.Now().Format("20060102_150405"))
	path := filepath.Join(c.screenshotDir, filename)

	if err := exec.Command("screencapture", "-x", path).Run(); err != nil {
		return "", fmt.Errorf("screencapture failed: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("screenshot not written: %w", err)
	}
	return path, nil
}

func commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}
