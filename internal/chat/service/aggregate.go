package service

import (
	"fmt"
	"sort"
	"time"

	"tenantlink/internal/common"
	"tenantlink/internal/dbsql"
	"tenantlink/internal/routing"
)

type Conversation struct {
	Key                 string                `json:"conversationKey"`
	OtherUserID         string                `json:"otherUserId,omitempty"`
	OtherUser           *common.UserSummary   `json:"otherUser,omitempty"`
	PropertyID          string                `json:"propertyId,omitempty"`
	Participants        []string              `json:"participants"`
	ParticipantUsers    []*common.UserSummary `json:"participantUsers,omitempty"`
	LastMessage         *dbsql.Message        `json:"lastMessage"`
	LastMessageTime     time.Time             `json:"lastMessageTime"`
	UnreadCount         int                   `json:"unreadCount"`
	IsGroupConversation bool                  `json:"isGroupConversation"`
}

func DirectKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("direct:%s:%s", a, b)
}

func OversightKey(p routing.OversightPair) string {
	return fmt.Sprintf("property:%s:%s:%s", p.PropertyID, p.TenantID, p.LandlordID)
}

// AggregateConversations groups msgs into one conversation per counterpart of
// userID, keeping the latest message, newest conversation first. Messages not
// involving userID are ignored.
func AggregateConversations(userID string, msgs []*dbsql.Message) []Conversation {
	byOther := make(map[string]*Conversation)
	for _, m := range msgs {
		var other string
		switch userID {
		case m.SenderID:
			other = m.ReceiverID
		case m.ReceiverID:
			other = m.SenderID
		default:
			continue
		}

		c, ok := byOther[other]
		if !ok {
			c = &Conversation{
				Key:          DirectKey(userID, other),
				OtherUserID:  other,
				Participants: []string{userID, other},
			}
			byOther[other] = c
		}
		if c.LastMessage == nil || later(m, c.LastMessage) {
			c.LastMessage = m
			c.LastMessageTime = m.CreatedAt
		}
		if m.ReceiverID == userID && m.SenderID != userID && !m.IsRead {
			c.UnreadCount++
		}
	}

	out := make([]Conversation, 0, len(byOther))
	for _, c := range byOther {
		out = append(out, *c)
	}
	sortByRecency(out)
	return out
}

// OversightConversation builds the facilitator's view of a tenant/landlord
// exchange. ok is false when the pair has not exchanged any message.
func OversightConversation(pair routing.OversightPair, msgs []*dbsql.Message) (Conversation, bool) {
	c := Conversation{
		Key:                 OversightKey(pair),
		PropertyID:          pair.PropertyID,
		Participants:        []string{pair.TenantID, pair.LandlordID},
		IsGroupConversation: true,
	}
	for _, m := range msgs {
		if !isBetween(m, pair.TenantID, pair.LandlordID) {
			continue
		}
		if c.LastMessage == nil || later(m, c.LastMessage) {
			c.LastMessage = m
			c.LastMessageTime = m.CreatedAt
		}
		if !m.IsRead {
			c.UnreadCount++
		}
	}
	return c, c.LastMessage != nil
}

func isBetween(m *dbsql.Message, a, b string) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

func later(a, b *dbsql.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func sortByRecency(convs []Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		if !convs[i].LastMessageTime.Equal(convs[j].LastMessageTime) {
			return convs[i].LastMessageTime.After(convs[j].LastMessageTime)
		}
		return convs[i].Key < convs[j].Key
	})
}
