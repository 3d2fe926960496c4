package notification

import (
	"context"
	"log/slog"
	"sync"
)

// Severity levels for user-facing notices.
const (
	SeverityInfo        = "info"
	SeverityDestructive = "destructive"
)

// Notice is a user-facing toast: a short title, a longer description and a
// severity the presentation layer maps to styling.
type Notice struct {
	Title       string
	Description string
	Severity    string
}

// Notifier surfaces notices to the user. The core never renders them.
type Notifier interface {
	Notify(ctx context.Context, notice Notice)
}

// LoggerNotifier writes notices to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Notify writes the notice to the structured logger.
func (n *LoggerNotifier) Notify(_ context.Context, notice Notice) {
	if n == nil || n.logger == nil {
		return
	}
	if notice.Severity == SeverityDestructive {
		n.logger.Warn("notice", "title", notice.Title, "description", notice.Description)
		return
	}
	n.logger.Info("notice", "title", notice.Title, "description", notice.Description)
}

// Recorder collects notices in memory. Useful for tests.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

// NewRecorder constructs an empty notice recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Notify appends the notice to the recorded list.
func (r *Recorder) Notify(_ context.Context, notice Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice)
}

// Notices returns a copy of everything recorded so far.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Last returns the most recent notice, or a zero Notice when empty.
func (r *Recorder) Last() Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}
	}
	return r.notices[len(r.notices)-1]
}
