package screen

// Observation is one momentary view of the desktop: the foreground
// window's label, an optional screenshot artifact written to disk, and
// free-form notes.
type Observation struct {
	WindowTitle    string
	ScreenshotPath string
	Notes          string
}

// Capturer is the interface that all capture implementations must satisfy
type Capturer interface {
	// Capture returns an observation of the current desktop state
	Capture() (*Observation, error)

	// IsAvailable checks if this capturer can run on the current system
	IsAvailable() bool

	// Name returns a short identifier for the capture strategy
	Name() string

	// Close cleans up any resources used by the capturer
	Close() error
}
