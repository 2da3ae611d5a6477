package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/settlewise/internal/ledger"
	"github.com/mmynk/settlewise/internal/models"
	"github.com/mmynk/settlewise/pkg/api"
)

// GroupService implements the Connect GroupService.
type GroupService struct {
	groups *ledger.Groups
}

var _ api.GroupServiceHandler = (*GroupService)(nil)

// NewGroupService creates a new GroupService backed by the group manager.
func NewGroupService(groups *ledger.Groups) *GroupService {
	return &GroupService{groups: groups}
}

// CreateGroup creates a group with the caller as admin.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.GroupResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("CreateGroup request received",
		"name", req.Msg.Name,
		"invitees", len(req.Msg.MemberEmails),
	)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	group, err := s.groups.CreateGroup(ctx, userID, ledger.GroupInput{
		Name:         req.Msg.Name,
		Description:  req.Msg.Description,
		MemberEmails: req.Msg.MemberEmails,
	})
	if err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.GroupResponse{Group: toAPIGroup(group)}), nil
}

// GetGroup retrieves a group the caller belongs to.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GroupResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("GetGroup request received", "group_id", req.Msg.GroupID)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	group, err := s.groups.GetGroup(ctx, userID, req.Msg.GroupID)
	if err != nil {
		slog.Error("GetGroup failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.GroupResponse{Group: toAPIGroup(group)}), nil
}

// AddMember adds a registered user to a group. Admins only.
func (s *GroupService) AddMember(ctx context.Context, req *connect.Request[api.AddMemberRequest]) (*connect.Response[api.GroupResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("AddMember request received", "group_id", req.Msg.GroupID, "email", req.Msg.Email)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	group, err := s.groups.AddMember(ctx, userID, req.Msg.GroupID, req.Msg.Email, models.Role(req.Msg.Role))
	if err != nil {
		slog.Error("AddMember failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.GroupResponse{Group: toAPIGroup(group)}), nil
}
