package notif

import (
	"context"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"tenantlink/internal/common"
	"tenantlink/internal/config"
	"tenantlink/internal/dbsql"
	"tenantlink/internal/logger"
	"tenantlink/internal/metrics"
)

var emailTemplate = template.Must(template.New("notification").Parse(
	`<!DOCTYPE html><html><body style="font-family:sans-serif">` +
		`<h2>{{.Title}}</h2><p>{{.Body}}</p>` +
		`<p style="color:#888;font-size:12px">{{.Footer}}</p></body></html>`))

type Transports struct {
	Push  PushTransport
	Email EmailTransport
	SMS   SMSTransport
}

// Dispatcher persists notifications and delivers them best-effort. Delivery
// failures are logged, counted and recorded, never returned.
type Dispatcher struct {
	repo     dbsql.NotificationRepository
	tokens   *TokenRegistry
	push     PushTransport
	email    EmailTransport
	sms      SMSTransport
	realtime Publisher
	recorder DeliveryRecorder
	metrics  *metrics.Metrics
	log      *logger.Logger

	enabled         bool
	batchSize       int
	bulkConcurrency int
	footer          string
	now             func() time.Time
}

func NewDispatcher(
	cfg *config.Config,
	repo dbsql.NotificationRepository,
	tokens *TokenRegistry,
	transports Transports,
	realtime Publisher,
	recorder DeliveryRecorder,
	m *metrics.Metrics,
	log *logger.Logger,
) *Dispatcher {
	batch := cfg.Push.BatchSize
	if batch <= 0 {
		batch = 100
	}
	conc := cfg.Notification.BulkConcurrency
	if conc <= 0 {
		conc = 10
	}
	return &Dispatcher{
		repo:            repo,
		tokens:          tokens,
		push:            transports.Push,
		email:           transports.Email,
		sms:             transports.SMS,
		realtime:        realtime,
		recorder:        recorder,
		metrics:         m,
		log:             log.With("component", "dispatcher"),
		enabled:         cfg.Notification.Enabled,
		batchSize:       batch,
		bulkConcurrency: conc,
		footer:          fmt.Sprintf("Sent by %s", cfg.Email.FromName),
		now:             time.Now,
	}
}

// SendNotification writes the record first; only validation and that write
// can fail the call.
func (d *Dispatcher) SendNotification(ctx context.Context, req NotificationRequest) (*SendResult, error) {
	if err := validateContent(req.Title, req.Body); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.UserID) == "" {
		return nil, common.BadRequest("user id is required")
	}
	if req.Type == "" {
		req.Type = common.SystemType
	}

	n := &dbsql.Notification{
		UserID: req.UserID,
		Title:  req.Title,
		Body:   req.Body,
		Data:   datatypes.JSONMap(req.Data),
		Type:   string(req.Type),
	}
	if err := d.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	d.metrics.NotificationPersisted()
	d.publish(ctx, n)

	result := &SendResult{NotificationID: n.ID}
	if !d.enabled || d.push == nil {
		result.Reason = "Push delivery disabled"
		return result, nil
	}

	tokens, err := d.tokens.ActiveTokensFor(ctx, req.UserID)
	if err != nil {
		d.log.Error("active token lookup failed", "user_id", req.UserID, "notification_id", n.ID, "error", err)
		result.Reason = "Token lookup failed"
		return result, nil
	}
	if len(tokens) == 0 {
		d.metrics.ChannelDelivery(ChannelPush, metrics.OutcomeSkipped)
		result.Reason = reasonNoActiveTokens
		return result, nil
	}

	data := pushData(n)
	messages := make([]PushMessage, 0, len(tokens))
	for _, t := range tokens {
		messages = append(messages, PushMessage{To: t.Token, Title: n.Title, Body: n.Body, Data: data, Sound: "default"})
	}

	d.pushBatches(ctx, n.ID, req.UserID, messages, result)

	if result.Attempted > 0 {
		result.Sent = true
		if err := d.repo.MarkPushSent(ctx, n.ID, d.now()); err != nil {
			d.log.Error("mark push sent failed", "notification_id", n.ID, "error", err)
		}
	}
	return result, nil
}

func (d *Dispatcher) pushBatches(ctx context.Context, notificationID, userID string, messages []PushMessage, result *SendResult) {
	for start := 0; start < len(messages); start += d.batchSize {
		batch := messages[start:min(start+d.batchSize, len(messages))]
		result.Attempted += len(batch)

		tickets, err := d.push.Send(ctx, batch)
		if err != nil {
			d.log.Warn("push batch failed", "notification_id", notificationID, "size", len(batch), "error", err)
			for _, m := range batch {
				d.record(ctx, DeliveryAttempt{NotificationID: notificationID, UserID: userID, Channel: ChannelPush, Target: m.To, Outcome: OutcomeFailed, Error: err.Error()})
			}
			continue
		}

		for _, t := range tickets {
			if t.Status == TicketOK {
				result.Delivered++
				d.record(ctx, DeliveryAttempt{NotificationID: notificationID, UserID: userID, Channel: ChannelPush, Target: t.Token, Outcome: OutcomeSent, MessageID: t.ID})
				continue
			}
			d.log.Warn("push ticket error", "notification_id", notificationID, "token", t.Token, "reason", t.Reason, "message", t.Message)
			d.record(ctx, DeliveryAttempt{NotificationID: notificationID, UserID: userID, Channel: ChannelPush, Target: t.Token, Outcome: OutcomeFailed, Error: ticketError(t)})
			if d.deactivateIfGone(ctx, t) {
				result.Deactivated++
			}
		}
	}
}

func (d *Dispatcher) deactivateIfGone(ctx context.Context, t PushTicket) bool {
	if t.Reason != ReasonDeviceNotRegistered {
		return false
	}
	if err := d.tokens.Deactivate(ctx, t.Token); err != nil {
		d.log.Error("token deactivation failed", "token", t.Token, "error", err)
		return false
	}
	return true
}

// SendMultiChannel tries push, then email, then SMS. Each channel fails on its own.
func (d *Dispatcher) SendMultiChannel(ctx context.Context, payload MultiChannelPayload, to Recipient) (*MultiChannelResult, error) {
	if err := validateContent(payload.Title, payload.Body); err != nil {
		return nil, err
	}
	if to.UserID == "" && to.Email == "" && to.Phone == "" && to.PushToken == "" {
		return nil, common.BadRequest("at least one recipient address is required")
	}
	category := strings.ToLower(strings.TrimSpace(payload.Category))
	if category == "" {
		category = CategoryNormal
	}

	result := &MultiChannelResult{}
	result.Channels = append(result.Channels,
		d.multiPush(ctx, payload, to, result),
		d.multiEmail(ctx, payload, to),
		d.multiSMS(ctx, payload, category, to),
	)
	return result, nil
}

func (d *Dispatcher) multiPush(ctx context.Context, payload MultiChannelPayload, to Recipient, result *MultiChannelResult) ChannelOutcome {
	out := ChannelOutcome{Channel: ChannelPush, Outcome: OutcomeSkipped}

	switch {
	case to.UserID != "":
		res, err := d.SendNotification(ctx, NotificationRequest{
			UserID: to.UserID,
			Title:  payload.Title,
			Body:   payload.Body,
			Data:   payload.Data,
			Type:   payload.Type,
		})
		if err != nil {
			d.log.Error("multi-channel push failed", "user_id", to.UserID, "error", err)
			out.Outcome, out.Error = OutcomeFailed, err.Error()
			return out
		}
		result.NotificationID = res.NotificationID
		if !res.Sent {
			out.Reason = res.Reason
			return out
		}
		out.Outcome = OutcomeSent
		if res.Delivered == 0 {
			out.Outcome, out.Error = OutcomeFailed, "no push ticket accepted"
		}
		return out

	case to.PushToken != "":
		if d.push == nil || !d.enabled {
			out.Reason = "Push delivery disabled"
			return out
		}
		if err := common.ValidatePushToken(to.PushToken); err != nil {
			out.Outcome, out.Error = OutcomeFailed, err.Error()
			d.record(ctx, DeliveryAttempt{Channel: ChannelPush, Target: to.PushToken, Outcome: OutcomeFailed, Error: err.Error()})
			return out
		}
		tickets, err := d.push.Send(ctx, []PushMessage{{To: to.PushToken, Title: payload.Title, Body: payload.Body, Data: payload.Data, Sound: "default"}})
		if err == nil && len(tickets) == 0 {
			err = fmt.Errorf("no push ticket returned")
		}
		if err != nil {
			d.log.Warn("multi-channel push failed", "token", to.PushToken, "error", err)
			out.Outcome, out.Error = OutcomeFailed, err.Error()
			d.record(ctx, DeliveryAttempt{Channel: ChannelPush, Target: to.PushToken, Outcome: OutcomeFailed, Error: err.Error()})
			return out
		}
		t := tickets[0]
		if t.Status != TicketOK {
			out.Outcome, out.Error = OutcomeFailed, ticketError(t)
			d.record(ctx, DeliveryAttempt{Channel: ChannelPush, Target: t.Token, Outcome: OutcomeFailed, Error: out.Error})
			d.deactivateIfGone(ctx, t)
			return out
		}
		out.Outcome, out.MessageID = OutcomeSent, t.ID
		d.record(ctx, DeliveryAttempt{Channel: ChannelPush, Target: t.Token, Outcome: OutcomeSent, MessageID: t.ID})
		return out

	default:
		out.Reason = "no push target"
		return out
	}
}

func (d *Dispatcher) multiEmail(ctx context.Context, payload MultiChannelPayload, to Recipient) ChannelOutcome {
	out := ChannelOutcome{Channel: ChannelEmail, Outcome: OutcomeSkipped}
	if strings.TrimSpace(to.Email) == "" {
		out.Reason = "no email address"
		return out
	}
	if d.email == nil {
		out.Reason = "email transport not configured"
		return out
	}

	var html strings.Builder
	if err := emailTemplate.Execute(&html, struct{ Title, Body, Footer string }{payload.Title, payload.Body, d.footer}); err != nil {
		out.Outcome, out.Error = OutcomeFailed, err.Error()
		return out
	}

	id, err := d.email.Send(ctx, EmailMessage{To: to.Email, Subject: payload.Title, HTML: html.String()})
	if err != nil {
		d.log.Warn("email delivery failed", "user_id", to.UserID, "error", err)
		out.Outcome, out.Error = OutcomeFailed, err.Error()
		d.record(ctx, DeliveryAttempt{UserID: to.UserID, Channel: ChannelEmail, Target: to.Email, Outcome: OutcomeFailed, Error: err.Error()})
		return out
	}
	out.Outcome, out.MessageID = OutcomeSent, id
	d.record(ctx, DeliveryAttempt{UserID: to.UserID, Channel: ChannelEmail, Target: to.Email, Outcome: OutcomeSent, MessageID: id})
	return out
}

func (d *Dispatcher) multiSMS(ctx context.Context, payload MultiChannelPayload, category string, to Recipient) ChannelOutcome {
	out := ChannelOutcome{Channel: ChannelSMS, Outcome: OutcomeSkipped}
	switch {
	case category != CategoryUrgent && category != CategoryOverdue:
		out.Reason = "category not eligible for sms"
		return out
	case strings.TrimSpace(to.Phone) == "":
		out.Reason = "no phone number"
		return out
	case d.sms == nil:
		out.Reason = "sms transport not configured"
		return out
	}

	id, err := d.sms.Send(ctx, SMSMessage{To: to.Phone, Text: payload.Title + ": " + payload.Body})
	if err != nil {
		d.log.Warn("sms delivery failed", "user_id", to.UserID, "error", err)
		out.Outcome, out.Error = OutcomeFailed, err.Error()
		d.record(ctx, DeliveryAttempt{UserID: to.UserID, Channel: ChannelSMS, Target: to.Phone, Outcome: OutcomeFailed, Error: err.Error()})
		return out
	}
	out.Outcome, out.MessageID = OutcomeSent, id
	d.record(ctx, DeliveryAttempt{UserID: to.UserID, Channel: ChannelSMS, Target: to.Phone, Outcome: OutcomeSent, MessageID: id})
	return out
}

// SendBulk sends to every user independently; one failure never affects the rest.
func (d *Dispatcher) SendBulk(ctx context.Context, req BulkRequest) (*BulkResult, error) {
	if err := validateContent(req.Title, req.Body); err != nil {
		return nil, err
	}
	ids := uniqueIDs(req.UserIDs)
	if len(ids) == 0 {
		return nil, common.BadRequest("userIds must not be empty")
	}

	result := &BulkResult{Total: len(ids)}
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(d.bulkConcurrency)

	for _, id := range ids {
		g.Go(func() error {
			res, err := d.SendNotification(ctx, NotificationRequest{
				UserID: id,
				Title:  req.Title,
				Body:   req.Body,
				Data:   req.Data,
				Type:   req.Type,
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				d.log.Warn("bulk send failed for user", "user_id", id, "error", err)
				result.Failed++
				result.Failures = append(result.Failures, BulkFailure{UserID: id, Error: err.Error()})
				return nil
			}
			result.Succeeded++
			if res.Sent {
				result.Delivered++
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(result.Failures, func(i, j int) bool { return result.Failures[i].UserID < result.Failures[j].UserID })
	d.log.Info("bulk send complete", "total", result.Total, "succeeded", result.Succeeded, "failed", result.Failed)
	return result, nil
}

func (d *Dispatcher) ListForUser(ctx context.Context, userID string, page, limit int) ([]*dbsql.Notification, error) {
	p := common.NormalizePage(page, limit, 20, 100)
	return d.repo.ByUserID(ctx, userID, p.Limit, p.Offset())
}

func (d *Dispatcher) MarkAsRead(ctx context.Context, notificationID, userID string) error {
	return d.repo.MarkAsRead(ctx, notificationID, userID)
}

func (d *Dispatcher) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return d.repo.UnreadCount(ctx, userID)
}

func (d *Dispatcher) publish(ctx context.Context, n *dbsql.Notification) {
	if d.realtime == nil {
		return
	}
	if err := d.realtime.Publish(ctx, n.UserID, n); err != nil {
		d.log.Warn("realtime publish failed", "notification_id", n.ID, "error", err)
	}
}

func (d *Dispatcher) record(ctx context.Context, a DeliveryAttempt) {
	switch a.Outcome {
	case OutcomeSent:
		d.metrics.ChannelDelivery(a.Channel, metrics.OutcomeOK)
	case OutcomeFailed:
		d.metrics.ChannelDelivery(a.Channel, metrics.OutcomeError)
	}
	if d.recorder == nil {
		return
	}
	if a.Channel == ChannelPush {
		a.Target = maskTarget(a.Target)
	}
	a.AttemptedAt = d.now().UTC()
	if err := d.recorder.Record(ctx, a); err != nil {
		d.log.Debug("delivery audit write failed", "channel", a.Channel, "error", err)
	}
}

func pushData(n *dbsql.Notification) common.NotificationData {
	data := common.NotificationData{}
	for k, v := range n.Data {
		data[k] = v
	}
	data["notificationId"] = n.ID
	data["type"] = n.Type
	return data
}

func validateContent(title, body string) error {
	if strings.TrimSpace(title) == "" {
		return common.BadRequest("title is required")
	}
	if strings.TrimSpace(body) == "" {
		return common.BadRequest("body is required")
	}
	return nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func ticketError(t PushTicket) string {
	if t.Reason != "" {
		return t.Reason + ": " + t.Message
	}
	return t.Message
}

func maskTarget(s string) string {
	if len(s) <= 6 {
		return "***"
	}
	return "***" + s[len(s)-6:]
}
