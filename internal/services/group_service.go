package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"relay-chat/internal/domain/group"
	"relay-chat/internal/domain/message"
	"relay-chat/internal/events"
	"relay-chat/internal/repository"
	relay_errors "relay-chat/pkg/errors"
	"relay-chat/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GroupService manages group lifecycle and membership. Every
// membership transition leaves a SYSTEM message in the group stream so
// the history reads like a timeline.
type GroupService struct {
	db     *gorm.DB
	groups repository.GroupRepository
	users  repository.UserRepository
	msgs   repository.MessageRepository
	bus    events.Bus
	log    *logger.Logger
	now    func() time.Time
}

func NewGroupService(
	db *gorm.DB,
	groups repository.GroupRepository,
	users repository.UserRepository,
	bus events.Bus,
	log *logger.Logger,
) *GroupService {
	if bus == nil {
		bus = events.NoopBus{}
	}
	return &GroupService{
		db:     db,
		groups: groups,
		users:  users,
		msgs:   repository.NewGroupMessageRepository(db),
		bus:    bus,
		log:    log,
		now:    time.Now,
	}
}

type CreateGroupInput struct {
	Name        string
	Description string
	Type        string
	IsPublic    bool
	MemberIDs   []uuid.UUID
}

// Create makes a new group with the caller as owner. Initial members
// are added in the same transaction.
func (s *GroupService) Create(ctx context.Context, ownerID uuid.UUID, in CreateGroupInput) (group.Group, error) {
	if in.Name == "" {
		return group.Group{}, relay_errors.ErrInvalidInput
	}
	groupType := in.Type
	if groupType == "" {
		groupType = group.TypeGroup
	}
	if groupType != group.TypeGroup && groupType != group.TypeChannel {
		return group.Group{}, relay_errors.ErrInvalidInput
	}

	now := s.now()
	grp := group.Group{
		ID:         uuid.New(),
		Name:       in.Name,
		OwnerID:    ownerID,
		Type:       groupType,
		IsPublic:   in.IsPublic,
		IsPrivate:  !in.IsPublic,
		InviteCode: uuid.NewString(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if in.Description != "" {
		grp.Description = sql.NullString{String: in.Description, Valid: true}
	}

	members := []group.Member{
		{GroupID: grp.ID, UserID: ownerID, Role: group.RoleAdmin, JoinedAt: now},
	}
	for _, id := range in.MemberIDs {
		if id == ownerID {
			continue
		}
		members = append(members, group.Member{GroupID: grp.ID, UserID: id, Role: group.RoleMember, JoinedAt: now})
	}

	if err := s.groups.Create(ctx, &grp, members); err != nil {
		return group.Group{}, err
	}
	return grp, nil
}

// Join adds the caller to a public group. Rejoining is a no-op.
func (s *GroupService) Join(ctx context.Context, groupID, userID uuid.UUID) error {
	grp, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if !grp.IsPublic {
		return relay_errors.ErrForbidden
	}
	return s.admit(ctx, grp, userID, userID, events.EventTypeMemberJoined)
}

// JoinByInvite admits the caller through the group's invite code
// regardless of visibility.
func (s *GroupService) JoinByInvite(ctx context.Context, code string, userID uuid.UUID) (group.Group, error) {
	grp, err := s.groups.GetByInviteCode(ctx, code)
	if err != nil {
		return group.Group{}, err
	}
	if err := s.admit(ctx, grp, userID, userID, events.EventTypeMemberJoined); err != nil {
		return group.Group{}, err
	}
	return grp, nil
}

func (s *GroupService) admit(ctx context.Context, grp group.Group, actorID, userID uuid.UUID, eventType string) error {
	err := s.groups.AddMember(ctx, &group.Member{
		GroupID:  grp.ID,
		UserID:   userID,
		Role:     group.RoleMember,
		JoinedAt: s.now(),
	})
	if err != nil {
		if errors.Is(err, relay_errors.ErrAlreadyExists) {
			return nil
		}
		return err
	}
	s.recordTransition(ctx, grp, actorID, userID, eventType)
	return nil
}

// AddByPhonesResult classifies each requested phone number.
type AddByPhonesResult struct {
	Added         []uuid.UUID `json:"added"`
	AlreadyMember []uuid.UUID `json:"already_member"`
	NotFound      []string    `json:"not_found"`
}

// AddByPhones adds members by phone number. Unknown numbers and
// existing members are reported, not failed.
func (s *GroupService) AddByPhones(ctx context.Context, groupID, actorID uuid.UUID, phones []string) (AddByPhonesResult, error) {
	grp, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return AddByPhonesResult{}, err
	}
	if err := s.requireAdmin(ctx, grp, actorID); err != nil {
		return AddByPhonesResult{}, err
	}

	result := AddByPhonesResult{
		Added:         []uuid.UUID{},
		AlreadyMember: []uuid.UUID{},
		NotFound:      []string{},
	}
	for _, phone := range phones {
		u, err := s.users.FindByPhone(ctx, phone)
		if err != nil {
			if errors.Is(err, relay_errors.ErrNotFound) {
				result.NotFound = append(result.NotFound, phone)
				continue
			}
			return AddByPhonesResult{}, err
		}
		err = s.groups.AddMember(ctx, &group.Member{
			GroupID:  grp.ID,
			UserID:   u.ID,
			Role:     group.RoleMember,
			JoinedAt: s.now(),
		})
		if err != nil {
			if errors.Is(err, relay_errors.ErrAlreadyExists) {
				result.AlreadyMember = append(result.AlreadyMember, u.ID)
				continue
			}
			return AddByPhonesResult{}, err
		}
		result.Added = append(result.Added, u.ID)
		s.recordTransition(ctx, grp, actorID, u.ID, events.EventTypeMemberAdded)
	}
	return result, nil
}

// Promote grants admin. Owner only.
func (s *GroupService) Promote(ctx context.Context, groupID, actorID, targetID uuid.UUID) error {
	grp, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if !grp.IsOwner(actorID) {
		return relay_errors.ErrForbidden
	}
	if _, err := s.groups.GetMember(ctx, groupID, targetID); err != nil {
		return err
	}
	if err := s.groups.UpdateRole(ctx, groupID, targetID, group.RoleAdmin); err != nil {
		return err
	}
	s.recordTransition(ctx, grp, actorID, targetID, events.EventTypeMemberPromoted)
	return nil
}

// Demote revokes admin. Owner only; the owner cannot be demoted.
func (s *GroupService) Demote(ctx context.Context, groupID, actorID, targetID uuid.UUID) error {
	grp, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if !grp.IsOwner(actorID) {
		return relay_errors.ErrForbidden
	}
	if grp.IsOwner(targetID) {
		return relay_errors.ErrForbidden
	}
	if _, err := s.groups.GetMember(ctx, groupID, targetID); err != nil {
		return err
	}
	if err := s.groups.UpdateRole(ctx, groupID, targetID, group.RoleMember); err != nil {
		return err
	}
	s.recordTransition(ctx, grp, actorID, targetID, events.EventTypeMemberDemoted)
	return nil
}

// Remove ejects a member. Admin or owner; the owner can never be
// removed.
func (s *GroupService) Remove(ctx context.Context, groupID, actorID, targetID uuid.UUID) error {
	grp, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if err := s.requireAdmin(ctx, grp, actorID); err != nil {
		return err
	}
	if grp.IsOwner(targetID) {
		return relay_errors.ErrForbidden
	}
	if err := s.groups.RemoveMember(ctx, groupID, targetID); err != nil {
		return err
	}
	s.recordTransition(ctx, grp, actorID, targetID, events.EventTypeMemberRemoved)
	return nil
}

// Leave removes the caller. The owner must transfer or delete instead.
func (s *GroupService) Leave(ctx context.Context, groupID, userID uuid.UUID) error {
	grp, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if grp.IsOwner(userID) {
		return relay_errors.ErrForbidden
	}
	if err := s.groups.RemoveMember(ctx, groupID, userID); err != nil {
		return err
	}
	s.recordTransition(ctx, grp, userID, userID, events.EventTypeMemberLeft)
	return nil
}

// SetMessageLock restricts posting to admins and the owner.
func (s *GroupService) SetMessageLock(ctx context.Context, groupID, actorID uuid.UUID, locked bool) error {
	grp, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if err := s.requireAdmin(ctx, grp, actorID); err != nil {
		return err
	}
	return s.groups.SetMessageLock(ctx, groupID, locked)
}

func (s *GroupService) Get(ctx context.Context, groupID, callerID uuid.UUID) (group.Group, []group.Member, error) {
	grp, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return group.Group{}, nil, err
	}
	ok, err := s.groups.IsMember(ctx, groupID, callerID)
	if err != nil {
		return group.Group{}, nil, err
	}
	if !ok {
		return group.Group{}, nil, relay_errors.ErrForbidden
	}
	members, err := s.groups.ListMembers(ctx, groupID)
	if err != nil {
		return group.Group{}, nil, err
	}
	return grp, members, nil
}

func (s *GroupService) SetPinned(ctx context.Context, groupID, userID uuid.UUID, pinned bool) error {
	if _, err := s.groups.GetMember(ctx, groupID, userID); err != nil {
		return err
	}
	var at *time.Time
	if pinned {
		now := s.now()
		at = &now
	}
	return s.groups.SetPinned(ctx, groupID, userID, at)
}

func (s *GroupService) SetArchived(ctx context.Context, groupID, userID uuid.UUID, archived bool) error {
	if _, err := s.groups.GetMember(ctx, groupID, userID); err != nil {
		return err
	}
	var at *time.Time
	if archived {
		now := s.now()
		at = &now
	}
	return s.groups.SetArchived(ctx, groupID, userID, at)
}

func (s *GroupService) Mute(ctx context.Context, groupID, userID uuid.UUID, muted bool, until *time.Time) error {
	if _, err := s.groups.GetMember(ctx, groupID, userID); err != nil {
		return err
	}
	if !muted {
		return s.groups.SetMuted(ctx, groupID, userID, nil)
	}
	if until == nil {
		horizon := s.now().Add(DefaultMuteDuration)
		until = &horizon
	}
	return s.groups.SetMuted(ctx, groupID, userID, until)
}

func (s *GroupService) requireAdmin(ctx context.Context, grp group.Group, userID uuid.UUID) error {
	if grp.IsOwner(userID) {
		return nil
	}
	member, err := s.groups.GetMember(ctx, grp.ID, userID)
	if err != nil {
		if errors.Is(err, relay_errors.ErrNotFound) {
			return relay_errors.ErrForbidden
		}
		return err
	}
	if member.Role != group.RoleAdmin {
		return relay_errors.ErrForbidden
	}
	return nil
}

// recordTransition writes a SYSTEM message into the group stream and
// fans the event out. Best effort; the membership change has already
// committed.
func (s *GroupService) recordTransition(ctx context.Context, grp group.Group, actorID, targetID uuid.UUID, eventType string) {
	now := s.now()
	meta, err := json.Marshal(map[string]string{
		"event":  eventType,
		"actor":  actorID.String(),
		"target": targetID.String(),
	})
	if err != nil {
		return
	}
	msg := message.Message{
		ID:        uuid.New(),
		ParentID:  grp.ID,
		SenderID:  actorID,
		Type:      message.TypeSystem,
		Metadata:  string(meta),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.msgs.Create(ctx, &msg); err != nil {
		if s.log != nil {
			s.log.Warnf("system message write failed: %v", err)
		}
		return
	}

	env := events.Envelope{
		EventType:  eventType,
		ThreadKind: string(message.KindGroup),
		ThreadID:   grp.ID.String(),
		ActorID:    actorID.String(),
		OccurredAt: now,
		Payload:    meta,
	}
	if err := s.bus.Publish(ctx, env); err != nil && s.log != nil {
		s.log.Warnf("membership fan-out failed: %v", err)
	}
}
