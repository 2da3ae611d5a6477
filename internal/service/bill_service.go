package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/settlewise/internal/ledger"
	"github.com/mmynk/settlewise/internal/models"
	"github.com/mmynk/settlewise/pkg/api"
)

// BillService implements the Connect BillService.
type BillService struct {
	bills   *ledger.BillBook
	settler *ledger.Settler
}

var _ api.BillServiceHandler = (*BillService)(nil)

// NewBillService creates a new BillService.
func NewBillService(bills *ledger.BillBook, settler *ledger.Settler) *BillService {
	return &BillService{bills: bills, settler: settler}
}

// CreateBill records a new bill in a group.
func (s *BillService) CreateBill(ctx context.Context, req *connect.Request[api.CreateBillRequest]) (*connect.Response[api.BillResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("CreateBill request received",
		"group_id", req.Msg.GroupID,
		"split_policy", req.Msg.SplitPolicy,
		"shares", len(req.Msg.Shares),
	)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	bill, err := s.bills.CreateBill(ctx, userID, ledger.BillInput{
		GroupID:     req.Msg.GroupID,
		Description: req.Msg.Description,
		TotalAmount: req.Msg.TotalAmount,
		SplitPolicy: models.SplitPolicy(req.Msg.SplitPolicy),
		PayerID:     req.Msg.PayerID,
		Shares:      toShareInputs(req.Msg.Shares),
	})
	if err != nil {
		slog.Error("CreateBill failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.BillResponse{Bill: toAPIBill(bill)}), nil
}

// UpdateBill edits a bill and recalculates its shares when needed.
func (s *BillService) UpdateBill(ctx context.Context, req *connect.Request[api.UpdateBillRequest]) (*connect.Response[api.BillResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("UpdateBill request received", "bill_id", req.Msg.BillID)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	change := ledger.BillChange{
		Description: req.Msg.Description,
		TotalAmount: req.Msg.TotalAmount,
		PayerID:     req.Msg.PayerID,
		Shares:      toShareInputs(req.Msg.Shares),
	}
	if req.Msg.SplitPolicy != nil {
		policy := models.SplitPolicy(*req.Msg.SplitPolicy)
		change.SplitPolicy = &policy
	}

	bill, err := s.bills.UpdateBill(ctx, userID, req.Msg.BillID, change)
	if err != nil {
		slog.Error("UpdateBill failed", "bill_id", req.Msg.BillID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.BillResponse{Bill: toAPIBill(bill)}), nil
}

// DeleteBill soft-deletes a bill.
func (s *BillService) DeleteBill(ctx context.Context, req *connect.Request[api.DeleteBillRequest]) (*connect.Response[api.DeleteBillResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("DeleteBill request received", "bill_id", req.Msg.BillID)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	if err := s.bills.DeleteBill(ctx, userID, req.Msg.BillID); err != nil {
		slog.Error("DeleteBill failed", "bill_id", req.Msg.BillID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.DeleteBillResponse{}), nil
}

// GetBill retrieves a bill by ID.
func (s *BillService) GetBill(ctx context.Context, req *connect.Request[api.GetBillRequest]) (*connect.Response[api.BillResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	bill, err := s.bills.GetBill(ctx, userID, req.Msg.BillID)
	if err != nil {
		slog.Error("GetBill failed", "bill_id", req.Msg.BillID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.BillResponse{Bill: toAPIBill(bill)}), nil
}

// ListGroupBills lists a group's bills, newest first.
func (s *BillService) ListGroupBills(ctx context.Context, req *connect.Request[api.ListGroupBillsRequest]) (*connect.Response[api.BillPageResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	page, err := s.bills.ListGroupBills(ctx, userID, req.Msg.GroupID, req.Msg.Search, req.Msg.Offset, req.Msg.Limit)
	if err != nil {
		slog.Error("ListGroupBills failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("ListGroupBills successful", "group_id", req.Msg.GroupID, "count", len(page.Bills), "total", page.Total)
	return connect.NewResponse(toAPIBillPage(page)), nil
}

// ListUserBills lists bills the caller paid or takes part in, across groups.
func (s *BillService) ListUserBills(ctx context.Context, req *connect.Request[api.ListUserBillsRequest]) (*connect.Response[api.BillPageResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	page, err := s.bills.ListUserBills(ctx, userID, req.Msg.Offset, req.Msg.Limit)
	if err != nil {
		slog.Error("ListUserBills failed", "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(toAPIBillPage(page)), nil
}

// MarkSharePaid marks one of the caller's shares as paid.
func (s *BillService) MarkSharePaid(ctx context.Context, req *connect.Request[api.ShareRequest]) (*connect.Response[api.ShareResponse], error) {
	return s.setPaid(ctx, req, true)
}

// MarkShareUnpaid reverts one of the caller's shares to unpaid.
func (s *BillService) MarkShareUnpaid(ctx context.Context, req *connect.Request[api.ShareRequest]) (*connect.Response[api.ShareResponse], error) {
	return s.setPaid(ctx, req, false)
}

func (s *BillService) setPaid(ctx context.Context, req *connect.Request[api.ShareRequest], paid bool) (*connect.Response[api.ShareResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("Share payment update received", "share_id", req.Msg.ShareID, "paid", paid)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	mark := s.bills.MarkShareUnpaid
	if paid {
		mark = s.bills.MarkSharePaid
	}
	share, err := mark(ctx, userID, req.Msg.ShareID)
	if err != nil {
		slog.Error("Share payment update failed", "share_id", req.Msg.ShareID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.ShareResponse{Share: toAPIShare(*share)}), nil
}

// SettleUp settles every simplified debt involving the caller in a group.
func (s *BillService) SettleUp(ctx context.Context, req *connect.Request[api.SettleUpRequest]) (*connect.Response[api.SettleUpResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("SettleUp request received", "group_id", req.Msg.GroupID)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	result, err := s.settler.SettleUp(ctx, req.Msg.GroupID, userID)
	if err != nil {
		slog.Error("SettleUp failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.SettleUpResponse{
		SettledCount: result.SettledCount,
		TotalAmount:  result.TotalAmount,
	}), nil
}

// SimplifiedDebts lists the minimal set of payments that would settle a group.
func (s *BillService) SimplifiedDebts(ctx context.Context, req *connect.Request[api.SimplifiedDebtsRequest]) (*connect.Response[api.SimplifiedDebtsResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	debts, err := s.settler.SimplifiedDebts(ctx, req.Msg.GroupID, userID)
	if err != nil {
		slog.Error("SimplifiedDebts failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	out := make([]api.Debt, len(debts))
	for i, d := range debts {
		out[i] = api.Debt{From: toAPIUser(d.From), To: toAPIUser(d.To), Amount: d.Amount}
	}
	return connect.NewResponse(&api.SimplifiedDebtsResponse{Debts: out}), nil
}
