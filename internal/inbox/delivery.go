package inbox

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/wolfman30/agency-backoffice/internal/notify"
)

// Tone is one step of a beep.
type Tone struct {
	Hz       int
	Duration time.Duration
}

// NotificationBeep is the short two-tone chime played on arrival.
var NotificationBeep = []Tone{
	{Hz: 800, Duration: 100 * time.Millisecond},
	{Hz: 1000, Duration: 150 * time.Millisecond},
}

// Beeper plays a sound. Platforms may refuse playback; callers ignore errors.
type Beeper interface {
	Beep(ctx context.Context, tones []Tone) error
}

// DesktopNotifier shows a native notification when the platform allows it.
type DesktopNotifier interface {
	Permitted() bool
	Show(title, body string) error
}

// Toaster shows an in-app message. It is the channel of last resort and is
// always used when delivery is not suppressed.
type Toaster interface {
	Toast(n notify.Notification)
}

// BellBeeper rings the terminal bell once per tone.
type BellBeeper struct {
	W io.Writer
}

func (b BellBeeper) Beep(ctx context.Context, tones []Tone) error {
	for _, t := range tones {
		if _, err := io.WriteString(b.W, "\a"); err != nil {
			return fmt.Errorf("inbox: bell: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.Duration):
		}
	}
	return nil
}

var typeIcons = map[notify.Type]string{
	notify.TypeLead:      "👤",
	notify.TypeAnalytics: "📊",
	notify.TypeAccount:   "🔐",
	notify.TypeSystem:    "⚙️",
}

// WriterToaster prints one line per notification.
type WriterToaster struct {
	mu sync.Mutex
	W  io.Writer
}

func (t *WriterToaster) Toast(n notify.Notification) {
	t.mu.Lock()
	defer t.mu.Unlock()
	icon := typeIcons[n.Type]
	if icon == "" {
		icon = "•"
	}
	_, _ = fmt.Fprintf(t.W, "%s %s: %s\n", icon, n.Title, n.Message)
}
