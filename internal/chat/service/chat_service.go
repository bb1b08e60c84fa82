package service

import (
	"context"
	"fmt"
	"strings"

	"tenantlink/internal/chat/repository"
	"tenantlink/internal/common"
	"tenantlink/internal/dbsql"
	"tenantlink/internal/logger"
	"tenantlink/internal/metrics"
	"tenantlink/internal/notif"
	"tenantlink/internal/routing"
	"tenantlink/internal/user"
)

const (
	defaultThreadLimit = 50
	maxThreadLimit     = 100
)

// Router is the routing subset the chat service needs.
type Router interface {
	ResolveMessageReceiver(ctx context.Context, senderID, intendedReceiverID string) (string, error)
	OversightPairs(ctx context.Context, facilitatorID string) ([]routing.OversightPair, error)
}

type Notifier interface {
	SendNotification(ctx context.Context, req notif.NotificationRequest) (*notif.SendResult, error)
}

type ChatService interface {
	SendMessage(ctx context.Context, in SendMessageInput) (*dbsql.Message, error)
	GetConversations(ctx context.Context, userID string) ([]Conversation, error)
	GetFacilitatorConversations(ctx context.Context, facilitatorID string) ([]Conversation, error)
	GetConversationThread(ctx context.Context, userID, otherUserID string, page, limit int) (*Thread, error)
	MarkAsRead(ctx context.Context, messageID, userID string) error
	UnreadCount(ctx context.Context, userID, fromUserID string) (int64, error)
}

type SendMessageInput struct {
	SenderID   string  `json:"-"`
	ReceiverID string  `json:"receiverId"`
	Subject    *string `json:"subject,omitempty"`
	Content    string  `json:"content"`
}

type Thread struct {
	Messages   []*dbsql.Message    `json:"messages"`
	OtherUser  *common.UserSummary `json:"otherUser,omitempty"`
	Page       int                 `json:"page"`
	Limit      int                 `json:"limit"`
	Total      int64               `json:"total"`
	MarkedRead int64               `json:"markedRead"`
}

type chatService struct {
	repo     repository.ChatRepository
	users    user.UserRepository
	router   Router
	notifier Notifier
	metrics  *metrics.Metrics
	log      *logger.Logger
}

func NewChatService(
	r repository.ChatRepository,
	users user.UserRepository,
	router Router,
	notifier Notifier,
	m *metrics.Metrics,
	log *logger.Logger,
) ChatService {
	return &chatService{
		repo:     r,
		users:    users,
		router:   router,
		notifier: notifier,
		metrics:  m,
		log:      log.With("component", "chat"),
	}
}

// SendMessage persists the message for the effective receiver, which may be a
// facilitator rather than the addressed landlord, then notifies best-effort.
func (s *chatService) SendMessage(ctx context.Context, in SendMessageInput) (*dbsql.Message, error) {
	if in.SenderID == "" {
		return nil, common.BadRequest("sender ID cannot be empty")
	}
	if strings.TrimSpace(in.ReceiverID) == "" {
		return nil, common.BadRequest("receiver ID cannot be empty")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, common.BadRequest("message content cannot be empty")
	}

	receiverID, err := s.router.ResolveMessageReceiver(ctx, in.SenderID, in.ReceiverID)
	if err != nil {
		return nil, err
	}
	if receiverID == in.SenderID {
		return nil, common.BadRequest("cannot send a message to yourself")
	}
	if _, err := s.users.GetUserByID(ctx, receiverID); err != nil {
		return nil, err
	}

	msg := &dbsql.Message{
		SenderID:   in.SenderID,
		ReceiverID: receiverID,
		Subject:    in.Subject,
		Content:    in.Content,
	}
	if err := s.repo.Save(ctx, msg); err != nil {
		return nil, err
	}

	redirected := receiverID != in.ReceiverID
	s.metrics.MessageRouted(redirected)
	if redirected {
		s.log.Info("message routed to facilitator", "message_id", msg.ID, "intended", in.ReceiverID, "receiver", receiverID)
	}

	s.notifyReceiver(ctx, msg)
	return msg, nil
}

func (s *chatService) notifyReceiver(ctx context.Context, msg *dbsql.Message) {
	if s.notifier == nil {
		return
	}
	senderName := "Someone"
	if sender, err := s.users.GetUserByID(ctx, msg.SenderID); err == nil && sender.Name != "" {
		senderName = sender.Name
	}
	_, err := s.notifier.SendNotification(ctx, notif.NotificationRequest{
		UserID: msg.ReceiverID,
		Title:  fmt.Sprintf("New message from %s", senderName),
		Body:   common.Preview(msg.Content, 100),
		Data: common.NotificationData{
			"messageId": msg.ID,
			"senderId":  msg.SenderID,
		},
		Type: common.MessageType,
	})
	if err != nil {
		s.log.Warn("message notification failed", "message_id", msg.ID, "error", err)
	}
}

func (s *chatService) GetConversations(ctx context.Context, userID string) ([]Conversation, error) {
	msgs, err := s.repo.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	convs := AggregateConversations(userID, msgs)
	s.attachUsers(ctx, convs)
	return convs, nil
}

// GetFacilitatorConversations adds one oversight conversation per administered
// tenant/landlord pair that has exchanged messages.
func (s *chatService) GetFacilitatorConversations(ctx context.Context, facilitatorID string) ([]Conversation, error) {
	msgs, err := s.repo.ForUser(ctx, facilitatorID)
	if err != nil {
		return nil, err
	}
	convs := AggregateConversations(facilitatorID, msgs)

	pairs, err := s.router.OversightPairs(ctx, facilitatorID)
	if err != nil {
		return nil, err
	}
	for _, pair := range pairs {
		exchange, err := s.repo.Between(ctx, pair.TenantID, pair.LandlordID, 0, 0)
		if err != nil {
			return nil, err
		}
		if c, ok := OversightConversation(pair, exchange); ok {
			convs = append(convs, c)
		}
	}

	sortByRecency(convs)
	s.attachUsers(ctx, convs)
	return convs, nil
}

// GetConversationThread marks the other user's unread messages as read before
// reading the page, so the returned rows reflect that.
func (s *chatService) GetConversationThread(ctx context.Context, userID, otherUserID string, page, limit int) (*Thread, error) {
	if strings.TrimSpace(otherUserID) == "" {
		return nil, common.BadRequest("other user ID is required")
	}
	p := common.NormalizePage(page, limit, defaultThreadLimit, maxThreadLimit)

	marked, err := s.repo.MarkThreadRead(ctx, userID, otherUserID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.repo.Between(ctx, userID, otherUserID, p.Limit, p.Offset())
	if err != nil {
		return nil, err
	}
	total, err := s.repo.CountBetween(ctx, userID, otherUserID)
	if err != nil {
		return nil, err
	}

	thread := &Thread{
		Messages:   msgs,
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		MarkedRead: marked,
	}
	if other, err := s.users.GetUserByID(ctx, otherUserID); err == nil {
		thread.OtherUser = other.Summary()
	}
	return thread, nil
}

func (s *chatService) MarkAsRead(ctx context.Context, messageID, userID string) error {
	return s.repo.MarkAsRead(ctx, messageID, userID)
}

func (s *chatService) UnreadCount(ctx context.Context, userID, fromUserID string) (int64, error) {
	return s.repo.UnreadCount(ctx, userID, fromUserID)
}

func (s *chatService) attachUsers(ctx context.Context, convs []Conversation) {
	seen := make(map[string]bool)
	var ids []string
	for _, c := range convs {
		for _, id := range c.Participants {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	users, err := s.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		s.log.Warn("conversation user lookup failed", "error", err)
		return
	}
	for i := range convs {
		c := &convs[i]
		if c.IsGroupConversation {
			for _, id := range c.Participants {
				if u, ok := users[id]; ok {
					c.ParticipantUsers = append(c.ParticipantUsers, u.Summary())
				}
			}
			continue
		}
		if u, ok := users[c.OtherUserID]; ok {
			c.OtherUser = u.Summary()
		}
	}
}
