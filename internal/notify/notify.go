package notify

import (
	"fmt"

	"github.com/codeplane/analyzer-orchestrator/internal/domain"
	"github.com/codeplane/analyzer-orchestrator/internal/executor"
)

// NotificationType represents the type of notification
type NotificationType int

const (
	NotifyInfo NotificationType = iota
	NotifySuccess
	NotifyWarning
	NotifyError
)

// Notification represents a notification to be sent
type Notification struct {
	Title   string
	Message string
	Type    NotificationType
}

// Notifier is the interface for sending notifications
type Notifier interface {
	Send(n Notification) error
}

// MultiNotifier sends to multiple notifiers
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that sends to all provided notifiers
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Send sends the notification to all notifiers
func (m *MultiNotifier) Send(n Notification) error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(n); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// NoopNotifier does nothing (for testing or disabled notifications)
type NoopNotifier struct{}

func (NoopNotifier) Send(n Notification) error { return nil }

// ForEvent maps a terminal analysis event to a notification. Only analyze
// runs notify; running transitions and background parse or version-check
// work stay silent. Returns false when nothing should be sent.
func ForEvent(ev executor.Event) (Notification, bool) {
	if !ev.Status.Terminal() || ev.Process.Request.Kind != domain.KindAnalyze {
		return Notification{}, false
	}

	target := ev.Process.Request.Target
	if target == domain.ProjectTarget {
		target = "project"
	}

	switch ev.Status {
	case domain.StatusFinished:
		return Notification{
			Title:   "Analysis finished",
			Message: fmt.Sprintf("%s %s completed", ev.Process.Request.Kind, target),
			Type:    NotifySuccess,
		}, true
	case domain.StatusErrored:
		msg := fmt.Sprintf("%s %s failed", ev.Process.Request.Kind, target)
		if err := ev.Process.Err(); err != nil {
			msg = fmt.Sprintf("%s: %v", msg, err)
		}
		return Notification{Title: "Analysis failed", Message: msg, Type: NotifyError}, true
	default:
		// Killed means the user stopped it; no notification needed
		return Notification{}, false
	}
}
