package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/repositories"
	"go.uber.org/zap"
)

// GroupInput creates a group
type GroupInput struct {
	OrgID       *uuid.UUID
	Name        string
	Description *string
	MemberIDs   []uuid.UUID
}

// GroupUpdate changes the fields that are set
type GroupUpdate struct {
	Name        *string
	Description *string
}

// GroupService manages groups and families within an organization
type GroupService struct {
	groups repositories.GroupRepository
	users  repositories.UserRepository
	orgs   repositories.OrganizationRepository
	txMgr  repositories.TransactionManager
	audit  AuditLogger
	logger *zap.Logger
}

// NewGroupService creates a new GroupService
func NewGroupService(repos *repositories.Repositories, txMgr repositories.TransactionManager, audit AuditLogger, logger *zap.Logger) *GroupService {
	return &GroupService{
		groups: repos.Groups,
		users:  repos.Users,
		orgs:   repos.Organizations,
		txMgr:  txMgr,
		audit:  audit,
		logger: logger,
	}
}

// List returns the groups visible to actor, optionally narrowed to orgID
func (s *GroupService) List(ctx context.Context, actor *models.User, orgID *uuid.UUID) ([]*models.Group, error) {
	filter, err := ScopeFor(actor).OrgFilter(orgID)
	if err != nil {
		return nil, err
	}
	groups, err := s.groups.List(ctx, filter)
	if err != nil {
		return nil, fromRepo(err, nil, nil)
	}
	return groups, nil
}

// Get returns a group visible to actor
func (s *GroupService) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Group, error) {
	group, err := s.groups.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, ErrGroupNotFound, nil)
	}
	if err := ScopeFor(actor).Check(group.OrgID); err != nil {
		return nil, err
	}
	return group, nil
}

// Create creates a group and adds its initial members
func (s *GroupService) Create(ctx context.Context, actor *models.User, in GroupInput) (*models.Group, error) {
	orgID, err := ScopeFor(actor).ResolveOrg(in.OrgID)
	if err != nil {
		return nil, err
	}

	group := models.NewGroup(orgID, in.Name)
	group.Description = in.Description

	err = WithTransaction(ctx, s.txMgr, func(ctx context.Context) error {
		if _, err := s.orgs.GetByID(ctx, orgID); err != nil {
			return fromRepo(err, ErrOrganizationNotFound, nil)
		}
		if err := s.groups.Create(ctx, group); err != nil {
			return fromRepo(err, nil, ErrDuplicateGroup)
		}
		return s.addMembers(ctx, group, in.MemberIDs)
	})
	if err != nil {
		return nil, err
	}

	record(ctx, s.audit, models.NewAuditLog(actor, models.AuditActionGroupCreated, "group").
		WithOrg(group.OrgID).WithResource(group.ID))
	return group, nil
}

// Update renames or redescribes a group
func (s *GroupService) Update(ctx context.Context, actor *models.User, id uuid.UUID, in GroupUpdate) (*models.Group, error) {
	group, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		group.Name = *in.Name
	}
	if in.Description != nil {
		group.Description = in.Description
	}
	if err := s.groups.Update(ctx, group); err != nil {
		return nil, fromRepo(err, ErrGroupNotFound, ErrDuplicateGroup)
	}

	record(ctx, s.audit, models.NewAuditLog(actor, models.AuditActionGroupUpdated, "group").
		WithOrg(group.OrgID).WithResource(group.ID))
	return group, nil
}

// Delete removes a group. Its members are untouched.
func (s *GroupService) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	group, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.groups.Delete(ctx, id); err != nil {
		return fromRepo(err, ErrGroupNotFound, nil)
	}

	record(ctx, s.audit, models.NewAuditLog(actor, models.AuditActionGroupDeleted, "group").
		WithOrg(group.OrgID).WithResource(id))
	return nil
}

// AddMembers adds users of the group's organization to the group
func (s *GroupService) AddMembers(ctx context.Context, actor *models.User, id uuid.UUID, userIDs []uuid.UUID) (*models.Group, error) {
	group, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	err = WithTransaction(ctx, s.txMgr, func(ctx context.Context) error {
		return s.addMembers(ctx, group, userIDs)
	})
	if err != nil {
		return nil, err
	}

	record(ctx, s.audit, models.NewAuditLog(actor, models.AuditActionGroupUpdated, "group").
		WithOrg(group.OrgID).WithResource(group.ID).WithDetails(map[string]interface{}{"added": userIDs}))
	return group, nil
}

// RemoveMember takes a user out of the group
func (s *GroupService) RemoveMember(ctx context.Context, actor *models.User, id, userID uuid.UUID) (*models.Group, error) {
	group, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.groups.RemoveMember(ctx, id, userID); err != nil {
		return nil, fromRepo(err, ErrNotGroupMember, nil)
	}

	kept := group.MemberIDs[:0]
	for _, m := range group.MemberIDs {
		if m != userID {
			kept = append(kept, m)
		}
	}
	group.MemberIDs = kept

	record(ctx, s.audit, models.NewAuditLog(actor, models.AuditActionGroupUpdated, "group").
		WithOrg(group.OrgID).WithResource(group.ID).WithDetails(map[string]interface{}{"removed": userID}))
	return group, nil
}

func (s *GroupService) addMembers(ctx context.Context, group *models.Group, userIDs []uuid.UUID) error {
	for _, userID := range userIDs {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return fromRepo(err, ErrUserNotFound.WithDetail("user_id", userID.String()), nil)
		}
		if !user.BelongsTo(group.OrgID) {
			return ErrMemberOutsideOrg.WithDetail("user_id", userID.String())
		}
		if err := s.groups.AddMember(ctx, group.ID, userID); err != nil {
			return fromRepo(err, ErrGroupNotFound, nil)
		}
		if !containsID(group.MemberIDs, userID) {
			group.MemberIDs = append(group.MemberIDs, userID)
		}
	}
	return nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
