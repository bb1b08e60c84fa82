package notif

import (
	"context"
	"time"

	"tenantlink/internal/common"
)

const (
	ChannelPush  = "push"
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

const (
	TicketOK    = "ok"
	TicketError = "error"

	// ReasonDeviceNotRegistered marks a token the provider will never deliver to again.
	ReasonDeviceNotRegistered = "DeviceNotRegistered"
)

const reasonNoActiveTokens = "No active push tokens"

// Categories drive channel selection in SendMultiChannel.
const (
	CategoryNormal  = "normal"
	CategoryUrgent  = "urgent"
	CategoryOverdue = "overdue"
)

type PushMessage struct {
	To    string                  `json:"to"`
	Title string                  `json:"title"`
	Body  string                  `json:"body"`
	Data  common.NotificationData `json:"data,omitempty"`
	Sound string                  `json:"sound,omitempty"`
}

// PushTicket is the provider's per-message answer, in request order.
type PushTicket struct {
	Token   string
	Status  string
	ID      string
	Message string
	Reason  string
}

type PushTransport interface {
	Send(ctx context.Context, messages []PushMessage) ([]PushTicket, error)
}

type EmailMessage struct {
	To      string
	Subject string
	HTML    string
}

type EmailTransport interface {
	Send(ctx context.Context, msg EmailMessage) (string, error)
}

type SMSMessage struct {
	To   string
	Text string
}

type SMSTransport interface {
	Send(ctx context.Context, msg SMSMessage) (string, error)
}

type NotificationRequest struct {
	UserID string                  `json:"userId"`
	Title  string                  `json:"title"`
	Body   string                  `json:"body"`
	Data   common.NotificationData `json:"data,omitempty"`
	Type   common.NotificationType `json:"type,omitempty"`
}

type SendResult struct {
	NotificationID string `json:"notificationId"`
	Sent           bool   `json:"sent"`
	Reason         string `json:"reason,omitempty"`
	Attempted      int    `json:"attempted"`
	Delivered      int    `json:"delivered"`
	Deactivated    int    `json:"deactivated"`
}

// Recipient addresses a multi-channel send. UserID enables the persisted
// push path; PushToken alone pushes to one device without a record.
type Recipient struct {
	UserID    string `json:"userId,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	PushToken string `json:"pushToken,omitempty"`
}

type MultiChannelPayload struct {
	Title    string                  `json:"title"`
	Body     string                  `json:"body"`
	Data     common.NotificationData `json:"data,omitempty"`
	Type     common.NotificationType `json:"type,omitempty"`
	Category string                  `json:"category,omitempty"`
}

const (
	OutcomeSent    = "sent"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

type ChannelOutcome struct {
	Channel   string `json:"channel"`
	Outcome   string `json:"outcome"`
	MessageID string `json:"messageId,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Error     string `json:"error,omitempty"`
}

type MultiChannelResult struct {
	NotificationID string           `json:"notificationId,omitempty"`
	Channels       []ChannelOutcome `json:"channels"`
}

func (r *MultiChannelResult) Outcome(channel string) ChannelOutcome {
	for _, c := range r.Channels {
		if c.Channel == channel {
			return c
		}
	}
	return ChannelOutcome{Channel: channel, Outcome: OutcomeSkipped}
}

type BulkRequest struct {
	UserIDs []string                `json:"userIds"`
	Title   string                  `json:"title"`
	Body    string                  `json:"body"`
	Data    common.NotificationData `json:"data,omitempty"`
	Type    common.NotificationType `json:"type,omitempty"`
}

type BulkFailure struct {
	UserID string `json:"userId"`
	Error  string `json:"error"`
}

type BulkResult struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Delivered int           `json:"delivered"`
	Failures  []BulkFailure `json:"failures,omitempty"`
}

// DeliveryAttempt is one channel attempt, kept for audit.
type DeliveryAttempt struct {
	NotificationID string    `json:"notification_id,omitempty" bson:"notification_id,omitempty"`
	UserID         string    `json:"user_id,omitempty" bson:"user_id,omitempty"`
	Channel        string    `json:"channel" bson:"channel"`
	Target         string    `json:"target" bson:"target"`
	Outcome        string    `json:"outcome" bson:"outcome"`
	MessageID      string    `json:"message_id,omitempty" bson:"message_id,omitempty"`
	Error          string    `json:"error,omitempty" bson:"error,omitempty"`
	AttemptedAt    time.Time `json:"attempted_at" bson:"attempted_at"`
}

type DeliveryRecorder interface {
	Record(ctx context.Context, attempt DeliveryAttempt) error
}

// DeliveryHistory reads back recorded attempts.
type DeliveryHistory interface {
	ForNotification(ctx context.Context, notificationID string) ([]DeliveryAttempt, error)
}

// Publisher pushes a stored notification to connected clients.
type Publisher interface {
	Publish(ctx context.Context, userID string, payload interface{}) error
}
