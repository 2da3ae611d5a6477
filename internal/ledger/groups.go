package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmynk/settlewise/internal/errs"
	"github.com/mmynk/settlewise/internal/models"
	"github.com/mmynk/settlewise/internal/storage"
)

// GroupInput describes a new group. Members are invited by email.
type GroupInput struct {
	Name         string
	Description  string
	MemberEmails []string
}

// Member is a group member with their public profile.
type Member struct {
	models.UserRef
	Role models.Role `json:"role"`
}

// GroupDetail is a group with its members resolved.
type GroupDetail struct {
	Group   *models.Group
	Members []Member
}

// Groups manages groups and their memberships.
type Groups struct {
	store storage.Store
}

func NewGroups(store storage.Store) *Groups {
	return &Groups{store: store}
}

// CreateGroup creates a group administered by creatorID. Unknown emails and
// the creator's own email are skipped, but at least one other member must remain.
func (g *Groups) CreateGroup(ctx context.Context, creatorID string, in GroupInput) (*GroupDetail, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errs.Validation("group name is required")
	}
	if len(in.MemberEmails) == 0 {
		return nil, errs.Validation("a group must have at least one other member")
	}

	group := &models.Group{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		CreatedBy:   creatorID,
		Members:     []models.GroupMember{{UserID: creatorID, Role: models.RoleAdmin}},
	}
	added := map[string]bool{creatorID: true}
	for _, email := range in.MemberEmails {
		user, err := g.store.GetUserByEmail(ctx, normalizeEmail(email))
		if errs.IsNotFound(err) {
			slog.Debug("Skipping unknown invitee", "email", email)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up invitee: %w", err)
		}
		if added[user.ID] {
			continue
		}
		added[user.ID] = true
		group.Members = append(group.Members, models.GroupMember{UserID: user.ID, Role: models.RoleMember})
	}
	if len(group.Members) < 2 {
		return nil, errs.Validation("a group must have at least one other valid member")
	}

	if err := g.store.CreateGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	slog.Info("Group created", "group_id", group.ID, "members", len(group.Members))
	return g.detail(ctx, group)
}

// GetGroup returns a group with its members, for members only.
func (g *Groups) GetGroup(ctx context.Context, userID, groupID string) (*GroupDetail, error) {
	if err := RequireMember(ctx, g.store, userID, groupID); err != nil {
		return nil, err
	}
	group, err := g.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return g.detail(ctx, group)
}

// AddMember adds the user registered under email to groupID. Only admins may add members.
func (g *Groups) AddMember(ctx context.Context, requesterID, groupID, email string, role models.Role) (*GroupDetail, error) {
	group, err := g.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	if !isAdmin(group, requesterID) {
		return nil, errs.Forbidden("only group admins can add members")
	}

	switch role {
	case "":
		role = models.RoleMember
	case models.RoleMember, models.RoleAdmin:
	default:
		return nil, errs.Validation("unknown role %q", role)
	}

	user, err := g.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if group.HasMember(user.ID) {
		return nil, errs.Validation("user is already a member")
	}

	member := models.GroupMember{GroupID: groupID, UserID: user.ID, Role: role}
	if err := g.store.AddGroupMember(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}
	slog.Info("Member added", "group_id", groupID, "user_id", user.ID, "role", role)

	if group, err = g.store.GetGroup(ctx, groupID); err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return g.detail(ctx, group)
}

func (g *Groups) detail(ctx context.Context, group *models.Group) (*GroupDetail, error) {
	ids := make([]string, len(group.Members))
	for i, m := range group.Members {
		ids[i] = m.UserID
	}
	refs, err := userRefs(ctx, g.store, ids)
	if err != nil {
		return nil, err
	}
	members := make([]Member, len(group.Members))
	for i, m := range group.Members {
		members[i] = Member{UserRef: refs[m.UserID], Role: m.Role}
	}
	return &GroupDetail{Group: group, Members: members}, nil
}

func isAdmin(group *models.Group, userID string) bool {
	for _, m := range group.Members {
		if m.UserID == userID {
			return m.Role == models.RoleAdmin
		}
	}
	return false
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
