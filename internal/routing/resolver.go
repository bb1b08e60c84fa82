// Package routing decides who actually receives a tenant's message or
// maintenance request when a facilitator administers the tenant's property.
package routing

import (
	"context"

	"tenantlink/internal/common"
	"tenantlink/internal/dbsql"
	"tenantlink/internal/user"
)

// Assignment is the routing outcome for a maintenance request.
type Assignment struct {
	PropertyID string
	LandlordID string
	AssignedTo string
}

// OversightPair is a tenant/landlord exchange a facilitator administers.
type OversightPair struct {
	PropertyID string
	TenantID   string
	LandlordID string
}

type Resolver struct {
	users      user.UserRepository
	properties dbsql.PropertyRepository
}

func NewResolver(users user.UserRepository, properties dbsql.PropertyRepository) *Resolver {
	return &Resolver{users: users, properties: properties}
}

// ResolveMessageReceiver returns the facilitator when a tenant writes to the
// landlord of a facilitated property; every other case passes through.
func (r *Resolver) ResolveMessageReceiver(ctx context.Context, senderID, intendedReceiverID string) (string, error) {
	sender, err := r.users.GetUserByID(ctx, senderID)
	if err != nil {
		return "", err
	}

	switch sender.Role {
	case common.RoleTenant:
		return r.tenantReceiver(ctx, senderID, intendedReceiverID)
	case common.RoleLandlord, common.RoleFacilitator, common.RoleAdmin:
		return intendedReceiverID, nil
	default:
		return "", common.BadRequest("unknown role %q for user %s", sender.Role, senderID)
	}
}

func (r *Resolver) tenantReceiver(ctx context.Context, tenantID, intendedReceiverID string) (string, error) {
	property, err := r.currentProperty(ctx, tenantID)
	if err != nil {
		if common.IsNotFound(err) {
			return intendedReceiverID, nil
		}
		return "", err
	}
	if property.LandlordID == intendedReceiverID && property.HasFacilitator() {
		return *property.FacilitatorID, nil
	}
	return intendedReceiverID, nil
}

// ResolveMaintenanceAssignee fails with NotFound when the tenant has no
// accepted tenancy.
func (r *Resolver) ResolveMaintenanceAssignee(ctx context.Context, tenantID string) (*Assignment, error) {
	property, err := r.currentProperty(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	a := &Assignment{
		PropertyID: property.ID,
		LandlordID: property.LandlordID,
		AssignedTo: property.LandlordID,
	}
	if property.HasFacilitator() {
		a.AssignedTo = *property.FacilitatorID
	}
	return a, nil
}

// OversightPairs lists every accepted tenancy on the facilitator's properties.
func (r *Resolver) OversightPairs(ctx context.Context, facilitatorID string) ([]OversightPair, error) {
	props, err := r.properties.PropertiesByFacilitator(ctx, facilitatorID)
	if err != nil {
		return nil, err
	}
	if len(props) == 0 {
		return nil, nil
	}

	landlords := make(map[string]string, len(props))
	ids := make([]string, 0, len(props))
	for _, p := range props {
		landlords[p.ID] = p.LandlordID
		ids = append(ids, p.ID)
	}

	links, err := r.properties.AcceptedTenancies(ctx, ids)
	if err != nil {
		return nil, err
	}

	pairs := make([]OversightPair, 0, len(links))
	for _, l := range links {
		pairs = append(pairs, OversightPair{
			PropertyID: l.PropertyID,
			TenantID:   l.TenantID,
			LandlordID: landlords[l.PropertyID],
		})
	}
	return pairs, nil
}

// CurrentFacilitator returns the facilitator id currently assigned to the
// property, or "" when none is.
func (r *Resolver) CurrentFacilitator(ctx context.Context, propertyID string) (string, error) {
	property, err := r.properties.PropertyByID(ctx, propertyID)
	if err != nil {
		return "", err
	}
	if !property.HasFacilitator() {
		return "", nil
	}
	return *property.FacilitatorID, nil
}

func (r *Resolver) currentProperty(ctx context.Context, tenantID string) (*dbsql.Property, error) {
	link, err := r.properties.CurrentTenancy(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return r.properties.PropertyByID(ctx, link.PropertyID)
}
