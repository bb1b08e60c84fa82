// Package maintenance drives the maintenance-request lifecycle: creation,
// status and priority changes, comments and their notifications.
package maintenance

import (
	"strings"

	"tenantlink/internal/common"
	"tenantlink/internal/dbsql"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// transitions lists the states reachable from each non-terminal state.
var transitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusCompleted, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return st, nil
	default:
		return "", common.BadRequest("invalid status %q", s)
	}
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether from -> to is allowed. Re-entering the
// current state is always allowed and changes nothing.
func (s Status) CanTransition(to Status) bool {
	if s == to {
		return true
	}
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Label is the human form used in notification bodies.
func (s Status) Label() string {
	return strings.ReplaceAll(string(s), "_", " ")
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ParsePriority maps an empty value to medium.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case "":
		return PriorityMedium, nil
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return p, nil
	default:
		return "", common.BadRequest("invalid priority %q", s)
	}
}

// TitlePrefix flags high and urgent requests in notification titles.
func (p Priority) TitlePrefix() string {
	switch p {
	case PriorityUrgent:
		return "URGENT: "
	case PriorityHigh:
		return "HIGH PRIORITY: "
	default:
		return ""
	}
}

// PriorityPolicy decides who may change a request's priority.
type PriorityPolicy string

const (
	PolicyOpen     PriorityPolicy = "open"
	PolicyAssignee PriorityPolicy = "assignee"
)

func ParsePriorityPolicy(s string) (PriorityPolicy, bool) {
	switch PriorityPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyAssignee:
		return PolicyAssignee, true
	case PolicyOpen, "":
		return PolicyOpen, true
	default:
		return PolicyOpen, false
	}
}

type actionKind int

const (
	changeStatus actionKind = iota
	changePriority
	addComment
)

type action struct {
	kind   actionKind
	to     Status
	policy PriorityPolicy
}

// authorize is the single gate for every mutation of a request.
func authorize(req *dbsql.MaintenanceRequest, actorID string, a action) error {
	if actorID == "" {
		return common.BadRequest("actor ID is required")
	}
	current, err := ParseStatus(req.Status)
	if err != nil {
		return common.Internal("request %s has unknown status %q", req.ID, req.Status)
	}

	switch a.kind {
	case changeStatus:
		if actorID != req.AssignedTo {
			return common.Forbidden("only the assigned user can change the status of request %s", req.ID)
		}
		if !current.CanTransition(a.to) {
			return common.BadRequest("cannot move request from %s to %s", current, a.to)
		}
		return nil
	case changePriority:
		if a.policy == PolicyAssignee && actorID != req.AssignedTo {
			return common.Forbidden("only the assigned user can change the priority of request %s", req.ID)
		}
		if !isParty(req, actorID) {
			return common.Forbidden("user %s is not a party to request %s", actorID, req.ID)
		}
		return nil
	case addComment:
		if !isParty(req, actorID) {
			return common.Forbidden("user %s is not a party to request %s", actorID, req.ID)
		}
		return nil
	default:
		return common.BadRequest("unsupported action")
	}
}

func isParty(req *dbsql.MaintenanceRequest, userID string) bool {
	return userID == req.TenantID || userID == req.AssignedTo || userID == req.LandlordID
}
