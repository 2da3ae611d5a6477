package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/settlewise/internal/ledger"
	"github.com/mmynk/settlewise/pkg/api"
)

// SummaryService implements the Connect SummaryService.
type SummaryService struct {
	balances *ledger.Balances
}

var _ api.SummaryServiceHandler = (*SummaryService)(nil)

func NewSummaryService(balances *ledger.Balances) *SummaryService {
	return &SummaryService{balances: balances}
}

// GetSummary returns the caller's dashboard, globally or for one group.
func (s *SummaryService) GetSummary(ctx context.Context, req *connect.Request[api.SummaryRequest]) (*connect.Response[api.SummaryResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	summary, err := s.balances.Summary(ctx, userID, req.Msg.GroupID)
	if err != nil {
		slog.Error("GetSummary failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	resp := &api.SummaryResponse{
		TotalOwed:      summary.TotalOwed,
		TotalOwe:       summary.TotalOwe,
		GroupCount:     summary.GroupCount,
		RecentActivity: make([]api.Activity, len(summary.RecentActivity)),
		Friends:        make([]api.User, len(summary.Friends)),
	}
	for i, a := range summary.RecentActivity {
		resp.RecentActivity[i] = api.Activity{
			BillID:      a.BillID,
			Description: a.Description,
			Amount:      a.Amount,
			CreatedAt:   a.CreatedAt,
			PayerName:   a.PayerName,
			GroupName:   a.GroupName,
			Type:        a.Type,
		}
	}
	for i, f := range summary.Friends {
		resp.Friends[i] = toAPIUser(f)
	}
	return connect.NewResponse(resp), nil
}

// GetGroupBalances returns every member's net balance in a group.
func (s *SummaryService) GetGroupBalances(ctx context.Context, req *connect.Request[api.GroupBalancesRequest]) (*connect.Response[api.GroupBalancesResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("GetGroupBalances request received", "group_id", req.Msg.GroupID)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	balances, err := s.balances.GroupBalances(ctx, req.Msg.GroupID, userID)
	if err != nil {
		slog.Error("GetGroupBalances failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	out := make([]api.Balance, len(balances))
	for i, b := range balances {
		out[i] = api.Balance{User: toAPIUser(b.User), Amount: b.Amount}
	}
	return connect.NewResponse(&api.GroupBalancesResponse{Balances: out}), nil
}
