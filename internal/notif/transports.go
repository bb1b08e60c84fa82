package notif

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"tenantlink/internal/common"
	"tenantlink/internal/config"
	"tenantlink/internal/logger"
)

// NewPushTransport picks the provider named by PUSH_PROVIDER. "auto" sends
// Expo tokens to Expo and everything else to FCM.
func NewPushTransport(cfg *config.Config, fcm FCMClient, log *logger.Logger) (PushTransport, error) {
	expo := NewExpoTransport(cfg.Push)
	switch cfg.Push.Provider {
	case "", "expo":
		return expo, nil
	case "fcm":
		if fcm == nil {
			return nil, fmt.Errorf("push provider fcm requires firebase to be enabled")
		}
		return NewFCMTransport(fcm), nil
	case "auto":
		if fcm == nil {
			log.Warn("firebase unavailable, auto push provider falls back to expo only")
			return expo, nil
		}
		return &RoutedPushTransport{Expo: expo, FCM: NewFCMTransport(fcm)}, nil
	default:
		return nil, fmt.Errorf("unknown push provider %q", cfg.Push.Provider)
	}
}

type ExpoTransport struct {
	url         string
	accessToken string
	client      *http.Client
}

func NewExpoTransport(cfg config.PushConfig) *ExpoTransport {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ExpoTransport{
		url:         cfg.ExpoURL,
		accessToken: cfg.ExpoAccessToken,
		client:      &http.Client{Timeout: timeout},
	}
}

type expoTicket struct {
	Status  string `json:"status"`
	ID      string `json:"id"`
	Message string `json:"message"`
	Details struct {
		Error string `json:"error"`
	} `json:"details"`
}

type expoResponse struct {
	Data   []expoTicket `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (t *ExpoTransport) Send(ctx context.Context, messages []PushMessage) ([]PushTicket, error) {
	if len(messages) == 0 {
		return nil, nil
	}
	payload, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("encode expo payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if t.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.accessToken)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("expo push request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read expo response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("expo push returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out expoResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode expo response: %w", err)
	}
	if len(out.Errors) > 0 && len(out.Data) == 0 {
		return nil, fmt.Errorf("expo push rejected: %s: %s", out.Errors[0].Code, out.Errors[0].Message)
	}

	tickets := make([]PushTicket, len(messages))
	for i, m := range messages {
		tickets[i] = PushTicket{Token: m.To, Status: TicketError, Message: "missing ticket"}
		if i < len(out.Data) {
			d := out.Data[i]
			tickets[i].Status = d.Status
			tickets[i].ID = d.ID
			tickets[i].Message = d.Message
			tickets[i].Reason = d.Details.Error
		}
	}
	return tickets, nil
}

// FCMClient is the subset of *messaging.Client used for delivery.
type FCMClient interface {
	SendEach(ctx context.Context, messages []*messaging.Message) (*messaging.BatchResponse, error)
}

// NewFCMClient returns nil, nil when firebase is disabled or unconfigured.
func NewFCMClient(ctx context.Context, cfg config.FirebaseConfig, log *logger.Logger) (*messaging.Client, error) {
	if !cfg.Enabled || cfg.CredentialsFilePath == "" {
		log.Info("firebase disabled")
		return nil, nil
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, option.WithCredentialsFile(cfg.CredentialsFilePath))
	if err != nil {
		return nil, fmt.Errorf("firebase init: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase messaging: %w", err)
	}
	return client, nil
}

type FCMTransport struct {
	client FCMClient
}

func NewFCMTransport(client FCMClient) *FCMTransport {
	return &FCMTransport{client: client}
}

func (t *FCMTransport) Send(ctx context.Context, messages []PushMessage) ([]PushTicket, error) {
	if len(messages) == 0 {
		return nil, nil
	}

	batch := make([]*messaging.Message, len(messages))
	for i, m := range messages {
		data := make(map[string]string, len(m.Data))
		for k, v := range m.Data {
			data[k] = fmt.Sprint(v)
		}
		batch[i] = &messaging.Message{
			Token: m.To,
			Notification: &messaging.Notification{
				Title: m.Title,
				Body:  m.Body,
			},
			Data: data,
		}
	}

	resp, err := t.client.SendEach(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("failed to send FCM: %w", err)
	}

	tickets := make([]PushTicket, len(messages))
	for i, m := range messages {
		tickets[i] = PushTicket{Token: m.To, Status: TicketError, Message: "missing response"}
		if i >= len(resp.Responses) || resp.Responses[i] == nil {
			continue
		}
		r := resp.Responses[i]
		if r.Success {
			tickets[i].Status = TicketOK
			tickets[i].ID = r.MessageID
			tickets[i].Message = ""
			continue
		}
		if r.Error != nil {
			tickets[i].Message = r.Error.Error()
		}
		// INVALID_ARGUMENT also covers payload errors, so only UNREGISTERED retires a token.
		if messaging.IsUnregistered(r.Error) {
			tickets[i].Reason = ReasonDeviceNotRegistered
		}
	}
	return tickets, nil
}

// RoutedPushTransport splits a batch by token kind and merges tickets back in order.
type RoutedPushTransport struct {
	Expo PushTransport
	FCM  PushTransport
}

func (t *RoutedPushTransport) Send(ctx context.Context, messages []PushMessage) ([]PushTicket, error) {
	var expoIdx, fcmIdx []int
	var expoMsgs, fcmMsgs []PushMessage
	for i, m := range messages {
		if common.IsExpoPushToken(m.To) {
			expoIdx = append(expoIdx, i)
			expoMsgs = append(expoMsgs, m)
		} else {
			fcmIdx = append(fcmIdx, i)
			fcmMsgs = append(fcmMsgs, m)
		}
	}

	tickets := make([]PushTicket, len(messages))
	var errs []string
	merge := func(tr PushTransport, idx []int, msgs []PushMessage) {
		if len(msgs) == 0 {
			return
		}
		out, err := tr.Send(ctx, msgs)
		for j, i := range idx {
			switch {
			case err != nil:
				tickets[i] = PushTicket{Token: msgs[j].To, Status: TicketError, Message: err.Error()}
			case j < len(out):
				tickets[i] = out[j]
			default:
				tickets[i] = PushTicket{Token: msgs[j].To, Status: TicketError, Message: "missing ticket"}
			}
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	merge(t.Expo, expoIdx, expoMsgs)
	merge(t.FCM, fcmIdx, fcmMsgs)

	if len(errs) > 0 && len(errs) == countNonEmpty(expoMsgs, fcmMsgs) {
		return nil, fmt.Errorf("push failed: %s", strings.Join(errs, "; "))
	}
	return tickets, nil
}

func countNonEmpty(groups ...[]PushMessage) int {
	n := 0
	for _, g := range groups {
		if len(g) > 0 {
			n++
		}
	}
	return n
}

// sendMailHook allows tests to override SMTP sending behavior.
var sendMailHook = smtp.SendMail

type SMTPTransport struct {
	host     string
	port     int
	user     string
	pass     string
	from     string
	fromName string
}

func NewSMTPTransport(cfg config.EmailConfig) *SMTPTransport {
	return &SMTPTransport{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		user:     cfg.Username,
		pass:     cfg.Password,
		from:     cfg.FromEmail,
		fromName: cfg.FromName,
	}
}

func (e *SMTPTransport) Send(ctx context.Context, msg EmailMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := common.ValidateEmail(msg.To); err != nil {
		return "", err
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), e.host)
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", mime.QEncoding.Encode("utf-8", e.fromName), e.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Message-ID: %s\r\n", messageID)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(msg.HTML)

	var auth smtp.Auth
	if e.user != "" {
		auth = smtp.PlainAuth("", e.user, e.pass, e.host)
	}
	addr := fmt.Sprintf("%s:%d", e.host, e.port)
	if err := sendMailHook(addr, auth, e.from, []string{msg.To}, []byte(b.String())); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}
	return messageID, nil
}

// LogSMSTransport stands in for a real SMS gateway and only logs.
type LogSMSTransport struct {
	from string
	log  *logger.Logger
}

func NewLogSMSTransport(cfg config.SMSConfig, log *logger.Logger) *LogSMSTransport {
	return &LogSMSTransport{from: cfg.From, log: log.With("component", "sms")}
}

func (s *LogSMSTransport) Send(ctx context.Context, msg SMSMessage) (string, error) {
	if strings.TrimSpace(msg.To) == "" {
		return "", common.BadRequest("sms recipient is required")
	}
	id := "sms_" + uuid.NewString()
	s.log.Info("sms dispatched", "id", id, "from", s.from, "to", msg.To, "length", len(msg.Text))
	return id, nil
}
