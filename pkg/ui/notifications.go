package ui

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"igbot/pkg/config"
)

// NotificationSender interface for platform-specific notification implementations
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	escape := func(s string) string { return strings.ReplaceAll(s, "'", "''") }
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		$template = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent([Windows.UI.Notifications.ToastTemplateType]::ToastText02)
		$text = $template.GetElementsByTagName('text')
		$text.Item(0).AppendChild($template.CreateTextNode('%s')) | Out-Null
		$text.Item(1).AppendChild($template.CreateTextNode('%s')) | Out-Null
		$toast = [Windows.UI.Notifications.ToastNotification]::new($template)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier('igbot').Show($toast)
	`, escape(title), escape(message))

	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

// Event kinds a notifier can be asked to announce
type Event int

const (
	EventNewFollower Event = iota
	EventComplete
	EventError
)

// Notifier announces workflow events on the console and, when configured,
// as desktop notifications
type Notifier struct {
	sender  NotificationSender
	out     io.Writer
	enabled map[Event]bool
}

// NewNotifier creates a Notifier from the notification settings. A disabled
// section or type "none" yields a notifier that stays silent.
func NewNotifier(cfg config.NotificationConfig) *Notifier {
	n := &Notifier{out: os.Stdout, enabled: map[Event]bool{}}
	if !cfg.Enabled || strings.EqualFold(cfg.NotificationType, "none") {
		return n
	}

	n.enabled[EventNewFollower] = cfg.OnNewFollower
	n.enabled[EventComplete] = cfg.OnComplete
	n.enabled[EventError] = cfg.OnError

	if strings.EqualFold(cfg.NotificationType, "desktop") {
		n.sender = platformSender()
	}
	return n
}

func platformSender() NotificationSender {
	switch runtime.GOOS {
	case "linux":
		return &LinuxNotificationSender{}
	case "darwin":
		return &MacOSNotificationSender{}
	case "windows":
		return &WindowsNotificationSender{}
	default:
		return nil
	}
}

// SetOutput redirects console notifications
func (n *Notifier) SetOutput(w io.Writer) {
	n.out = w
}

// SetSender replaces the desktop notification sender
func (n *Notifier) SetSender(s NotificationSender) {
	n.sender = s
}

// Notify announces an event if that event kind is enabled
func (n *Notifier) Notify(ev Event, title, message string) {
	if n == nil || !n.enabled[ev] {
		return
	}

	color := Cyan
	switch ev {
	case EventError:
		color = Red
	case EventComplete:
		color = Green
	}
	fmt.Fprintf(n.out, "\n%s: %s\n", color(title), message)

	if n.sender != nil {
		// Desktop notifications are best effort.
		_ = n.sender.Send(title, message)
	}
}
