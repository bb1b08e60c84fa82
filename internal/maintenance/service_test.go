package maintenance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tenantlink/internal/chat/repository"
	"tenantlink/internal/common"
	"tenantlink/internal/config"
	"tenantlink/internal/dbsql"
	"tenantlink/internal/dbsql/dbtest"
	"tenantlink/internal/logger"
	"tenantlink/internal/metrics"
	"tenantlink/internal/notif"
	"tenantlink/internal/routing"
	"tenantlink/internal/user"
)

type multiCall struct {
	payload notif.MultiChannelPayload
	to      notif.Recipient
}

type recordingNotifier struct {
	mu    sync.Mutex
	sent  []notif.NotificationRequest
	multi []multiCall
	err   error
}

func (n *recordingNotifier) SendNotification(ctx context.Context, req notif.NotificationRequest) (*notif.SendResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, req)
	if n.err != nil {
		return nil, n.err
	}
	return &notif.SendResult{NotificationID: "n"}, nil
}

func (n *recordingNotifier) SendMultiChannel(ctx context.Context, payload notif.MultiChannelPayload, to notif.Recipient) (*notif.MultiChannelResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.multi = append(n.multi, multiCall{payload: payload, to: to})
	if n.err != nil {
		return nil, n.err
	}
	return &notif.MultiChannelResult{}, nil
}

func (n *recordingNotifier) last() notif.NotificationRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[len(n.sent)-1]
}

type workflowFixture struct {
	db          *gorm.DB
	wf          *Workflow
	repo        Repository
	messages    repository.ChatRepository
	notifier    *recordingNotifier
	tenant      *dbsql.User
	landlord    *dbsql.User
	facilitator *dbsql.User
	property    *dbsql.Property
}

func newWorkflowFixture(t *testing.T, withFacilitator bool, policy string) *workflowFixture {
	db := dbtest.New(t)
	f := &workflowFixture{
		db:          db,
		repo:        NewRepository(db),
		messages:    repository.NewChatRepository(db),
		notifier:    &recordingNotifier{},
		tenant:      dbtest.SeedUser(t, db, "tenant", common.RoleTenant),
		landlord:    dbtest.SeedUser(t, db, "landlord", common.RoleLandlord),
		facilitator: dbtest.SeedUser(t, db, "facilitator", common.RoleFacilitator),
	}
	facID := ""
	if withFacilitator {
		facID = f.facilitator.ID
	}
	f.property = dbtest.SeedProperty(t, db, f.landlord.ID, facID)
	dbtest.SeedTenancy(t, db, f.tenant.ID, f.property.ID, dbsql.TenancyAccepted, nil)

	cfg := &config.Config{Maintenance: config.MaintenanceConfig{PriorityPolicy: policy}}
	users := user.NewUserRepository(db)
	resolver := routing.NewResolver(users, dbsql.NewPropertyRepository(db))
	f.wf = NewWorkflow(cfg, f.repo, f.messages, users, resolver, f.notifier, metrics.New(), logger.NewNop())
	return f
}

func (f *workflowFixture) create(t *testing.T, priority string) *dbsql.MaintenanceRequest {
	t.Helper()
	req, err := f.wf.CreateRequest(context.Background(), CreateRequestInput{
		TenantID:    f.tenant.ID,
		Title:       "Leaking tap",
		Description: "Kitchen tap drips all night",
		Priority:    priority,
	})
	require.NoError(t, err)
	return req
}

func TestCreateRequest_DefaultsAndAssignee(t *testing.T) {
	f := newWorkflowFixture(t, true, "")
	req := f.create(t, "")

	assert.Equal(t, string(PriorityMedium), req.Priority)
	assert.Equal(t, string(StatusPending), req.Status)
	assert.Equal(t, f.facilitator.ID, req.AssignedTo)
	assert.Equal(t, f.landlord.ID, req.LandlordID)
	assert.Equal(t, f.property.ID, req.PropertyID)

	n := f.notifier.last()
	assert.Equal(t, f.facilitator.ID, n.UserID)
	assert.Equal(t, "New maintenance request: Leaking tap", n.Title)
	assert.Equal(t, common.MaintenanceRequestType, n.Type)
	assert.Empty(t, f.notifier.multi)
}

// With no facilitator the landlord is the assignee and urgent requests go out on every channel.
func TestCreateRequest_UrgentWithoutFacilitator(t *testing.T) {
	f := newWorkflowFixture(t, false, "")
	require.NoError(t, f.db.Model(f.landlord).Update("phone", "+15550001").Error)

	req := f.create(t, "urgent")
	assert.Equal(t, f.landlord.ID, req.AssignedTo)

	require.Len(t, f.notifier.multi, 1)
	call := f.notifier.multi[0]
	assert.Equal(t, "URGENT: New maintenance request: Leaking tap", call.payload.Title)
	assert.Equal(t, notif.CategoryUrgent, call.payload.Category)
	assert.Equal(t, f.landlord.ID, call.to.UserID)
	assert.Equal(t, f.landlord.Email, call.to.Email)
	assert.Equal(t, "+15550001", call.to.Phone)
}

func TestCreateRequest_HighPriorityPrefix(t *testing.T) {
	f := newWorkflowFixture(t, false, "")
	f.create(t, "high")
	assert.Equal(t, "HIGH PRIORITY: New maintenance request: Leaking tap", f.notifier.last().Title)
}

func TestCreateRequest_Validation(t *testing.T) {
	f := newWorkflowFixture(t, false, "")
	ctx := context.Background()

	_, err := f.wf.CreateRequest(ctx, CreateRequestInput{TenantID: f.tenant.ID, Description: "d"})
	assert.True(t, common.IsBadRequest(err))

	_, err = f.wf.CreateRequest(ctx, CreateRequestInput{TenantID: f.tenant.ID, Title: "t", Description: "d", Priority: "whenever"})
	assert.True(t, common.IsBadRequest(err))

	_, err = f.wf.CreateRequest(ctx, CreateRequestInput{TenantID: f.landlord.ID, Title: "t", Description: "d"})
	assert.True(t, common.IsNotFound(err), "no accepted tenancy")
}

func TestCreateRequest_NotificationFailureIsSwallowed(t *testing.T) {
	f := newWorkflowFixture(t, false, "")
	f.notifier.err = errors.New("push down")

	req := f.create(t, "urgent")
	stored, err := f.repo.ByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, stored.ID)
}

func TestUpdateStatus_CompletedAtSetOnce(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t, false, "")
	req := f.create(t, "")

	first := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	f.wf.now = func() time.Time { return first }
	updated, err := f.wf.UpdateStatus(ctx, req.ID, "completed", f.landlord.ID, "")
	require.NoError(t, err)
	require.NotNil(t, updated.CompletedAt)
	assert.True(t, first.Equal(*updated.CompletedAt))

	f.wf.now = func() time.Time { return first.Add(24 * time.Hour) }
	_, err = f.wf.UpdateStatus(ctx, req.ID, "completed", f.landlord.ID, "")
	require.NoError(t, err)

	stored, err := f.repo.ByID(ctx, req.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CompletedAt)
	assert.True(t, first.Equal(stored.CompletedAt.UTC()))
	assert.Equal(t, string(StatusCompleted), stored.Status)
}

func TestUpdateStatus_NonAssigneeForbidden(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t, true, "")
	req := f.create(t, "")
	before := len(f.notifier.sent)

	_, err := f.wf.UpdateStatus(ctx, req.ID, "completed", f.landlord.ID, "done")
	assert.True(t, common.IsForbidden(err))

	stored, err := f.repo.ByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusPending), stored.Status)
	assert.Nil(t, stored.CompletedAt)
	assert.Len(t, f.notifier.sent, before)
}

func TestUpdateStatus_NotesBecomeMessageAndTenantIsNotified(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t, true, "")
	req := f.create(t, "")

	_, err := f.wf.UpdateStatus(ctx, req.ID, "in_progress", f.facilitator.ID, "Plumber booked for Tuesday")
	require.NoError(t, err)

	n := f.notifier.last()
	assert.Equal(t, f.tenant.ID, n.UserID)
	assert.Equal(t, common.MaintenanceUpdateType, n.Type)
	assert.Contains(t, n.Body, "in progress")

	msgs, err := f.messages.Between(ctx, f.facilitator.ID, f.tenant.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, f.facilitator.ID, msgs[0].SenderID)
	assert.Equal(t, "Plumber booked for Tuesday", msgs[0].Content)

	_, err = f.wf.UpdateStatus(ctx, req.ID, "cancelled", f.facilitator.ID, "")
	require.NoError(t, err)
	assert.Equal(t, f.tenant.ID, f.notifier.last().UserID, "tenant is notified without notes too")
}

func TestUpdateStatus_InvalidAndTerminal(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t, false, "")
	req := f.create(t, "")

	_, err := f.wf.UpdateStatus(ctx, req.ID, "finished", f.landlord.ID, "")
	assert.True(t, common.IsBadRequest(err))

	_, err = f.wf.UpdateStatus(ctx, req.ID, "cancelled", f.landlord.ID, "")
	require.NoError(t, err)

	_, err = f.wf.UpdateStatus(ctx, req.ID, "in_progress", f.landlord.ID, "")
	assert.True(t, common.IsBadRequest(err))

	_, err = f.wf.UpdateStatus(ctx, "missing", "in_progress", f.landlord.ID, "")
	assert.True(t, common.IsNotFound(err))
}

func TestUpdatePriority_Policies(t *testing.T) {
	ctx := context.Background()

	open := newWorkflowFixture(t, true, "open")
	req := open.create(t, "")
	updated, err := open.wf.UpdatePriority(ctx, req.ID, "high", open.tenant.ID, "")
	require.NoError(t, err)
	assert.Equal(t, string(PriorityHigh), updated.Priority)
	assert.Equal(t, open.tenant.ID, open.notifier.last().UserID)

	outsider := dbtest.SeedUser(t, open.db, "outsider", common.RoleTenant)
	_, err = open.wf.UpdatePriority(ctx, req.ID, "low", outsider.ID, "")
	assert.True(t, common.IsForbidden(err))
	stored, err := open.repo.ByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, string(PriorityHigh), stored.Priority)

	strict := newWorkflowFixture(t, true, "assignee")
	req = strict.create(t, "")
	_, err = strict.wf.UpdatePriority(ctx, req.ID, "high", strict.landlord.ID, "")
	assert.True(t, common.IsForbidden(err))

	updated, err = strict.wf.UpdatePriority(ctx, req.ID, "urgent", strict.facilitator.ID, "Water reaching the socket")
	require.NoError(t, err)
	assert.Equal(t, string(PriorityUrgent), updated.Priority)
	assert.Equal(t, "URGENT: Maintenance priority updated", strict.notifier.last().Title)

	_, err = strict.wf.UpdatePriority(ctx, req.ID, "", strict.facilitator.ID, "")
	assert.True(t, common.IsBadRequest(err))
}

func TestAddComment_RoutesToOtherSide(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t, true, "")
	req := f.create(t, "")

	msg, err := f.wf.AddComment(ctx, req.ID, f.tenant.ID, "Any update?")
	require.NoError(t, err)
	assert.Equal(t, f.facilitator.ID, msg.ReceiverID)
	assert.Equal(t, f.facilitator.ID, f.notifier.last().UserID)
	assert.Equal(t, common.MaintenanceCommentType, f.notifier.last().Type)

	msg, err = f.wf.AddComment(ctx, req.ID, f.facilitator.ID, "Tomorrow morning")
	require.NoError(t, err)
	assert.Equal(t, f.tenant.ID, msg.ReceiverID)

	_, err = f.wf.AddComment(ctx, req.ID, f.tenant.ID, "  ")
	assert.True(t, common.IsBadRequest(err))
}

func TestGetByID_CommentsAndCurrentFacilitator(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t, false, "")
	req := f.create(t, "")

	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	dbtest.SeedMessage(t, f.db, f.tenant.ID, f.landlord.ID, "first", base)
	dbtest.SeedMessage(t, f.db, f.landlord.ID, f.tenant.ID, " ", base.Add(time.Minute))
	dbtest.SeedMessage(t, f.db, f.landlord.ID, f.tenant.ID, "second", base.Add(2*time.Minute))

	detail, err := f.wf.GetByID(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, detail.Comments, 2)
	assert.Equal(t, "first", detail.Comments[0].Content)
	assert.Equal(t, "second", detail.Comments[1].Content)
	assert.Nil(t, detail.Facilitator)
	assert.Equal(t, f.landlord.ID, detail.Assignee.ID)

	// a facilitator added after the request was assigned still shows up
	require.NoError(t, f.db.Model(f.property).Update("facilitator_id", f.facilitator.ID).Error)
	detail, err = f.wf.GetByID(ctx, req.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Facilitator)
	assert.Equal(t, f.facilitator.ID, detail.Facilitator.ID)
	assert.Equal(t, f.landlord.ID, detail.Request.AssignedTo)
	assert.True(t, detail.CanView(f.facilitator.ID, common.RoleFacilitator))
	assert.False(t, detail.CanView("stranger", common.RoleTenant))
}

func TestListForUser_ByRole(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t, true, "")
	mine := f.create(t, "")

	otherLandlord := dbtest.SeedUser(t, f.db, "other-landlord", common.RoleLandlord)
	otherTenant := dbtest.SeedUser(t, f.db, "other-tenant", common.RoleTenant)
	otherProperty := dbtest.SeedProperty(t, f.db, otherLandlord.ID, "")
	dbtest.SeedTenancy(t, f.db, otherTenant.ID, otherProperty.ID, dbsql.TenancyAccepted, nil)
	_, err := f.wf.CreateRequest(ctx, CreateRequestInput{TenantID: otherTenant.ID, Title: "Broken window", Description: "Cracked pane"})
	require.NoError(t, err)

	list, err := f.wf.ListForUser(ctx, f.facilitator.ID, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)
	for _, r := range list {
		assert.Equal(t, f.facilitator.ID, r.AssignedTo)
	}

	list, err = f.wf.ListForUser(ctx, f.tenant.ID, "")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = f.wf.ListForUser(ctx, otherLandlord.ID, "pending")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Broken window", list[0].Title)

	list, err = f.wf.ListForUser(ctx, f.landlord.ID, "completed")
	require.NoError(t, err)
	assert.Empty(t, list)

	admin := dbtest.SeedUser(t, f.db, "admin", common.RoleAdmin)
	list, err = f.wf.ListForUser(ctx, admin.ID, "")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = f.wf.ListForUser(ctx, f.tenant.ID, "bogus")
	assert.True(t, common.IsBadRequest(err))
}
