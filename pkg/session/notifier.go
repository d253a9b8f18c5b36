package session

import "github.com/rs/zerolog/log"

// Severity of a notification.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

// Notification is a user-visible, dismissable message. Errors never
// crash the coordinator; they end up here.
type Notification struct {
	Severity Severity `json:"severity"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
}

// Notifier receives notifications from the coordinator.
type Notifier interface {
	Notify(n Notification)
}

// LogNotifier writes notifications to the structured log. It is the
// default sink when no UI is attached.
type LogNotifier struct{}

func (LogNotifier) Notify(n Notification) {
	evt := log.Info()
	if n.Severity == SeverityError {
		evt = log.Error()
	}
	evt.Str("title", n.Title).Msg(n.Message)
}
