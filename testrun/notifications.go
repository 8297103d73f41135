package testrun

import (
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/google/uuid"
)

const (
	MaxVisibleNotifications = 5
	NotificationTTL         = 5 * time.Second
)

type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationWarning NotificationKind = "warning"
	NotificationInfo    NotificationKind = "info"
)

type Notification struct {
	Id        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Notifications holds the transient messages of a run, oldest at the front of the queue.
type Notifications struct {
	mu    sync.Mutex
	queue *queue.Queue
	now   func() time.Time
}

func NewNotifications(now func() time.Time) *Notifications {
	return &Notifications{
		queue: queue.New(),
		now:   now,
	}
}

func (n *Notifications) Push(kind NotificationKind, message string) Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	notification := Notification{
		Id:        uuid.NewString(),
		Kind:      kind,
		Message:   message,
		CreatedAt: n.now(),
	}
	n.queue.Add(notification)
	for n.queue.Length() > MaxVisibleNotifications {
		n.queue.Remove()
	}
	return notification
}

// Visible returns the unexpired notifications, most recent first.
func (n *Notifications) Visible() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.expire()
	visible := make([]Notification, 0, n.queue.Length())
	for i := n.queue.Length() - 1; i >= 0; i-- {
		visible = append(visible, n.queue.Get(i).(Notification))
	}
	return visible
}

func (n *Notifications) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for n.queue.Length() > 0 {
		n.queue.Remove()
	}
}

func (n *Notifications) expire() {
	now := n.now()
	for n.queue.Length() > 0 {
		oldest := n.queue.Peek().(Notification)
		if now.Sub(oldest.CreatedAt) < NotificationTTL {
			return
		}
		n.queue.Remove()
	}
}
