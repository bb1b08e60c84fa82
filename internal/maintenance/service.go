package maintenance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tenantlink/internal/chat/repository"
	"tenantlink/internal/common"
	"tenantlink/internal/config"
	"tenantlink/internal/dbsql"
	"tenantlink/internal/logger"
	"tenantlink/internal/metrics"
	"tenantlink/internal/notif"
	"tenantlink/internal/routing"
	"tenantlink/internal/user"
)

type Router interface {
	ResolveMaintenanceAssignee(ctx context.Context, tenantID string) (*routing.Assignment, error)
	CurrentFacilitator(ctx context.Context, propertyID string) (string, error)
}

type Notifier interface {
	SendNotification(ctx context.Context, req notif.NotificationRequest) (*notif.SendResult, error)
	SendMultiChannel(ctx context.Context, payload notif.MultiChannelPayload, to notif.Recipient) (*notif.MultiChannelResult, error)
}

type CreateRequestInput struct {
	TenantID    string   `json:"-"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority,omitempty"`
	Images      []string `json:"images,omitempty"`
}

// Detail is a request with its comment thread and the people around it.
type Detail struct {
	Request     *dbsql.MaintenanceRequest `json:"request"`
	Comments    []*dbsql.Message          `json:"comments"`
	Tenant      *common.UserSummary       `json:"tenant,omitempty"`
	Assignee    *common.UserSummary       `json:"assignee,omitempty"`
	Facilitator *common.UserSummary       `json:"facilitator,omitempty"`
}

// CanView reports whether userID is a party to the request.
func (d *Detail) CanView(userID string, role common.Role) bool {
	r := d.Request
	if role == common.RoleAdmin {
		return true
	}
	if userID == r.TenantID || userID == r.LandlordID || userID == r.AssignedTo {
		return true
	}
	return d.Facilitator != nil && d.Facilitator.ID == userID
}

type Workflow struct {
	repo     Repository
	messages repository.ChatRepository
	users    user.UserRepository
	router   Router
	notifier Notifier
	policy   PriorityPolicy
	metrics  *metrics.Metrics
	log      *logger.Logger
	now      func() time.Time
}

func NewWorkflow(
	cfg *config.Config,
	repo Repository,
	messages repository.ChatRepository,
	users user.UserRepository,
	router Router,
	notifier Notifier,
	m *metrics.Metrics,
	log *logger.Logger,
) *Workflow {
	log = log.With("component", "maintenance")
	policy, ok := ParsePriorityPolicy(cfg.Maintenance.PriorityPolicy)
	if !ok {
		log.Warn("unknown priority policy, using open", "policy", cfg.Maintenance.PriorityPolicy)
	}
	return &Workflow{
		repo:     repo,
		messages: messages,
		users:    users,
		router:   router,
		notifier: notifier,
		policy:   policy,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

func (w *Workflow) CreateRequest(ctx context.Context, in CreateRequestInput) (*dbsql.MaintenanceRequest, error) {
	if strings.TrimSpace(in.TenantID) == "" {
		return nil, common.BadRequest("tenant ID is required")
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, common.BadRequest("title is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, common.BadRequest("description is required")
	}
	priority, err := ParsePriority(in.Priority)
	if err != nil {
		return nil, err
	}

	assignment, err := w.router.ResolveMaintenanceAssignee(ctx, in.TenantID)
	if err != nil {
		return nil, err
	}

	req := &dbsql.MaintenanceRequest{
		TenantID:    in.TenantID,
		LandlordID:  assignment.LandlordID,
		PropertyID:  assignment.PropertyID,
		AssignedTo:  assignment.AssignedTo,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Priority:    string(priority),
		Status:      string(StatusPending),
		Images:      in.Images,
	}
	if err := w.repo.Create(ctx, req); err != nil {
		return nil, err
	}
	w.metrics.MaintenanceTransition(req.Status)
	w.log.Info("maintenance request created", "request_id", req.ID, "assigned_to", req.AssignedTo, "priority", req.Priority)

	w.notifyAssignee(ctx, req, priority)
	return req, nil
}

func (w *Workflow) notifyAssignee(ctx context.Context, req *dbsql.MaintenanceRequest, priority Priority) {
	title := priority.TitlePrefix() + "New maintenance request: " + req.Title
	body := common.Preview(req.Description, 100)
	data := requestData(req)

	if priority != PriorityUrgent {
		w.notify(ctx, notif.NotificationRequest{
			UserID: req.AssignedTo,
			Title:  title,
			Body:   body,
			Data:   data,
			Type:   common.MaintenanceRequestType,
		})
		return
	}

	to := notif.Recipient{UserID: req.AssignedTo}
	if assignee, err := w.users.GetUserByID(ctx, req.AssignedTo); err == nil {
		to.Email, to.Phone = assignee.Email, assignee.Phone
	} else {
		w.log.Warn("assignee lookup failed", "request_id", req.ID, "error", err)
	}
	_, err := w.notifier.SendMultiChannel(ctx, notif.MultiChannelPayload{
		Title:    title,
		Body:     body,
		Data:     data,
		Type:     common.MaintenanceRequestType,
		Category: notif.CategoryUrgent,
	}, to)
	if err != nil {
		w.log.Warn("urgent maintenance notification failed", "request_id", req.ID, "error", err)
	}
}

// UpdateStatus moves a request through its lifecycle. Only the assignee may
// do so; the tenant is told about every accepted call.
func (w *Workflow) UpdateStatus(ctx context.Context, requestID, newStatus, actorID, notes string) (*dbsql.MaintenanceRequest, error) {
	to, err := ParseStatus(newStatus)
	if err != nil {
		return nil, err
	}
	req, err := w.repo.ByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := authorize(req, actorID, action{kind: changeStatus, to: to}); err != nil {
		return nil, err
	}

	if req.Status != string(to) {
		fields := map[string]interface{}{"status": string(to)}
		if to == StatusCompleted && req.CompletedAt == nil {
			now := w.now().UTC()
			fields["completed_at"] = now
			req.CompletedAt = &now
		}
		if err := w.repo.Update(ctx, req.ID, fields); err != nil {
			return nil, err
		}
		req.Status = string(to)
		w.metrics.MaintenanceTransition(req.Status)
		w.log.Info("maintenance status changed", "request_id", req.ID, "status", req.Status, "actor", actorID)
	}

	w.saveNote(ctx, req, actorID, notes)
	w.notify(ctx, notif.NotificationRequest{
		UserID: req.TenantID,
		Title:  "Maintenance request updated",
		Body:   fmt.Sprintf("Your request %q is now %s", req.Title, to.Label()),
		Data:   requestData(req),
		Type:   common.MaintenanceUpdateType,
	})
	return req, nil
}

func (w *Workflow) UpdatePriority(ctx context.Context, requestID, newPriority, actorID, notes string) (*dbsql.MaintenanceRequest, error) {
	if strings.TrimSpace(newPriority) == "" {
		return nil, common.BadRequest("priority is required")
	}
	priority, err := ParsePriority(newPriority)
	if err != nil {
		return nil, err
	}
	req, err := w.repo.ByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := authorize(req, actorID, action{kind: changePriority, policy: w.policy}); err != nil {
		return nil, err
	}

	if req.Priority != string(priority) {
		if err := w.repo.Update(ctx, req.ID, map[string]interface{}{"priority": string(priority)}); err != nil {
			return nil, err
		}
		req.Priority = string(priority)
	}

	w.saveNote(ctx, req, actorID, notes)
	w.notify(ctx, notif.NotificationRequest{
		UserID: req.TenantID,
		Title:  priority.TitlePrefix() + "Maintenance priority updated",
		Body:   fmt.Sprintf("Your request %q is now %s priority", req.Title, req.Priority),
		Data:   requestData(req),
		Type:   common.MaintenanceUpdateType,
	})
	return req, nil
}

// AddComment posts text to the other side of the request: the assignee when
// the tenant writes, the tenant otherwise.
func (w *Workflow) AddComment(ctx context.Context, requestID, userID, text string) (*dbsql.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, common.BadRequest("comment cannot be empty")
	}
	req, err := w.repo.ByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := authorize(req, userID, action{kind: addComment}); err != nil {
		return nil, err
	}

	recipient := req.TenantID
	if userID == req.TenantID {
		recipient = req.AssignedTo
	}
	subject := "Re: " + req.Title
	msg := &dbsql.Message{
		SenderID:   userID,
		ReceiverID: recipient,
		Subject:    &subject,
		Content:    strings.TrimSpace(text),
	}
	if err := w.messages.Save(ctx, msg); err != nil {
		return nil, err
	}

	data := requestData(req)
	data["messageId"] = msg.ID
	w.notify(ctx, notif.NotificationRequest{
		UserID: recipient,
		Title:  "New comment on " + req.Title,
		Body:   common.Preview(msg.Content, 100),
		Data:   data,
		Type:   common.MaintenanceCommentType,
	})
	return msg, nil
}

// GetByID assembles the request detail. Facilitator details reflect the
// property's current facilitator, not whoever the request was assigned to.
func (w *Workflow) GetByID(ctx context.Context, requestID string) (*Detail, error) {
	req, err := w.repo.ByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	thread, err := w.messages.Between(ctx, req.TenantID, req.AssignedTo, 0, 0)
	if err != nil {
		return nil, err
	}
	comments := make([]*dbsql.Message, 0, len(thread))
	for _, m := range thread {
		if strings.TrimSpace(m.Content) != "" {
			comments = append(comments, m)
		}
	}

	detail := &Detail{Request: req, Comments: comments}

	facilitatorID, err := w.router.CurrentFacilitator(ctx, req.PropertyID)
	if err != nil && !common.IsNotFound(err) {
		return nil, err
	}

	ids := []string{req.TenantID, req.AssignedTo}
	if facilitatorID != "" {
		ids = append(ids, facilitatorID)
	}
	users, err := w.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if u, ok := users[req.TenantID]; ok {
		detail.Tenant = u.Summary()
	}
	if u, ok := users[req.AssignedTo]; ok {
		detail.Assignee = u.Summary()
	}
	if u, ok := users[facilitatorID]; ok && facilitatorID != "" {
		detail.Facilitator = u.Summary()
	}
	return detail, nil
}

// ListForUser returns the requests relevant to the user's role, newest first.
func (w *Workflow) ListForUser(ctx context.Context, userID, status string) ([]*dbsql.MaintenanceRequest, error) {
	u, err := w.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var f Filter
	if status != "" {
		if f.Status, err = ParseStatus(status); err != nil {
			return nil, err
		}
	}
	switch u.Role {
	case common.RoleTenant:
		f.TenantID = userID
	case common.RoleLandlord:
		f.LandlordID = userID
	case common.RoleFacilitator:
		f.AssignedTo = userID
	case common.RoleAdmin:
	default:
		return nil, common.BadRequest("unknown role %q", u.Role)
	}
	return w.repo.List(ctx, f)
}

func (w *Workflow) saveNote(ctx context.Context, req *dbsql.MaintenanceRequest, actorID, notes string) {
	if strings.TrimSpace(notes) == "" || actorID == req.TenantID {
		return
	}
	subject := "Maintenance update: " + req.Title
	msg := &dbsql.Message{
		SenderID:   actorID,
		ReceiverID: req.TenantID,
		Subject:    &subject,
		Content:    strings.TrimSpace(notes),
	}
	if err := w.messages.Save(ctx, msg); err != nil {
		w.log.Error("failed to save maintenance note", "request_id", req.ID, "error", err)
	}
}

func (w *Workflow) notify(ctx context.Context, req notif.NotificationRequest) {
	if _, err := w.notifier.SendNotification(ctx, req); err != nil {
		w.log.Warn("maintenance notification failed", "user_id", req.UserID, "type", req.Type, "error", err)
	}
}

func requestData(req *dbsql.MaintenanceRequest) common.NotificationData {
	return common.NotificationData{
		"requestId":  req.ID,
		"propertyId": req.PropertyID,
		"status":     req.Status,
		"priority":   req.Priority,
	}
}
