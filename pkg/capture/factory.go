package capture

import (
	"fmt"
	"os"
	"runtime"

	"github.com/yeo-menghan/big-brother-watching/pkg/integrations/applescript"
	"github.com/yeo-menghan/big-brother-watching/pkg/integrations/process"
	"github.com/yeo-menghan/big-brother-watching/pkg/integrations/x11"
	"github.com/yeo-menghan/big-brother-watching/pkg/screen"
)

// New selects the best available capture strategy for this system:
// native X11 window queries, macOS AppleScript queries, then the
// generic process-scan fallback. screenshotDir may be empty to
// disable screenshot artifacts.
func New(screenshotDir string) (screen.Capturer, error) {
	if runtime.GOOS == "darwin" {
		if c := applescript.NewCapturer(screenshotDir); c.IsAvailable() {
			return c, nil
		}
	}

	if hasX11Session() {
		if c, err := x11.NewCapturer(screenshotDir); err == nil {
			return c, nil
		}
	}

	if c := process.NewCapturer(); c.IsAvailable() {
		return c, nil
	}

	return nil, fmt.Errorf("no capture strategy available on this system")
}

func hasX11Session() bool {
	return os.Getenv("DISPLAY") != "" || os.Getenv("XDG_SESSION_TYPE") == "x11"
}
