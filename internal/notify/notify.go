package notify

import (
	"log"
	"sync"
	"time"
)

// Level is the severity of a user-facing notification
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a transient message shown to the operator
type Notification struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Notifier delivers notifications. Implementations must not block for long.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a function to Notifier
type Func func(Notification)

func (f Func) Notify(n Notification) { f(n) }

// Log writes notifications to the standard logger
type Log struct{}

func (Log) Notify(n Notification) {
	log.Printf("Notify: [%s] %s", n.Level, n.Message)
}

// Multi fans a notification out to every notifier
func Multi(notifiers ...Notifier) Notifier {
	var list []Notifier
	for _, n := range notifiers {
		if n != nil {
			list = append(list, n)
		}
	}
	return multi(list)
}

type multi []Notifier

func (m multi) Notify(n Notification) {
	for _, notifier := range m {
		notifier.Notify(n)
	}
}

// Recorder keeps every notification. It is safe for concurrent use.
type Recorder struct {
	mu   sync.Mutex
	list []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = append(r.list, n)
}

// All returns a copy of the recorded notifications
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.list...)
}

// Messages returns the recorded messages in order
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	messages := make([]string, len(r.list))
	for i, n := range r.list {
		messages[i] = n.Message
	}
	return messages
}

// Sender stamps notifications with a clock before delivery
type Sender struct {
	Notifier Notifier
	Now      func() time.Time
}

func (s Sender) send(level Level, message string) {
	if s.Notifier == nil {
		return
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	s.Notifier.Notify(Notification{Level: level, Message: message, Time: now()})
}

func (s Sender) Info(message string)    { s.send(LevelInfo, message) }
func (s Sender) Success(message string) { s.send(LevelSuccess, message) }
func (s Sender) Warning(message string) { s.send(LevelWarning, message) }
func (s Sender) Error(message string)   { s.send(LevelError, message) }
