// Package notify displays macOS notifications for tool activity and keeps a
// process-lifetime history of everything shown. Notification failures are
// always swallowed; the side channel must never affect an operation.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"xcodebridge/internal/xcode"
)

// Title is the fixed notification title.
const Title = "Xcode Bridge"

// Record is one displayed (or suppressed) notification.
type Record struct {
	Time     time.Time
	OpID     string
	Message  string
	Subtitle string
	Sound    bool
	Shown    bool
}

// Notifier shows notifications through osascript and records them.
type Notifier struct {
	runner  xcode.ScriptRunner
	logger  *zap.Logger
	enabled bool

	mu      sync.Mutex
	history []Record
}

// New returns a Notifier. When enabled is false, notifications are recorded
// but not displayed.
func New(runner xcode.ScriptRunner, enabled bool, logger *zap.Logger) *Notifier {
	return &Notifier{runner: runner, logger: logger, enabled: enabled}
}

// Notify shows a plain notification.
func (n *Notifier) Notify(opID, message, subtitle string) {
	n.show(opID, message, subtitle, false)
}

// NotifyResult shows a completion notification.
func (n *Notifier) NotifyResult(opID, message string) {
	n.show(opID, message, "", false)
}

// NotifyError shows an error notification with sound.
func (n *Notifier) NotifyError(opID, message, details string) {
	n.show(opID, message, details, true)
}

func (n *Notifier) show(opID, message, subtitle string, sound bool) {
	rec := Record{
		Time:     time.Now(),
		OpID:     opID,
		Message:  message,
		Subtitle: subtitle,
		Sound:    sound,
		Shown:    n.enabled,
	}
	n.mu.Lock()
	n.history = append(n.history, rec)
	n.mu.Unlock()

	if !n.enabled {
		return
	}

	script := fmt.Sprintf(`display notification "%s" with title "%s"`,
		xcode.EscapeString(message), xcode.EscapeString(Title))
	if subtitle != "" {
		script += fmt.Sprintf(` subtitle "%s"`, xcode.EscapeString(subtitle))
	}
	if sound {
		script += ` sound name "Frog"`
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if ok, out := n.runner.Run(ctx, script); !ok {
		n.logger.Debug("Notification display failed", zap.String("output", out))
	}
}

// History returns a copy of all records, oldest first.
func (n *Notifier) History() []Record {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Record, len(n.history))
	copy(out, n.history)
	return out
}

// FormatHistory renders the history for the debug tool.
func (n *Notifier) FormatHistory() string {
	records := n.History()
	if len(records) == 0 {
		return "No notifications recorded."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d notification(s) this session:\n", len(records))
	for _, r := range records {
		shown := "shown"
		if !r.Shown {
			shown = "suppressed"
		}
		fmt.Fprintf(&b, "[%s] (%s) %s", r.Time.Format("15:04:05"), shown, r.Message)
		if r.Subtitle != "" {
			fmt.Fprintf(&b, " (%s)", r.Subtitle)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
