package service

import (
	"github.com/mmynk/settlewise/internal/calculator"
	"github.com/mmynk/settlewise/internal/ledger"
	"github.com/mmynk/settlewise/internal/models"
	"github.com/mmynk/settlewise/pkg/api"
)

func toAPIUser(u models.UserRef) api.User {
	return api.User{ID: u.ID, Name: u.Name, Email: u.Email}
}

func toAPIShare(s models.BillShare) api.Share {
	return api.Share{
		ID:     s.ID,
		BillID: s.BillID,
		UserID: s.UserID,
		Amount: s.Amount,
		Paid:   s.Paid,
	}
}

func toAPIBill(b *models.Bill) api.Bill {
	shares := make([]api.Share, len(b.Shares))
	for i, s := range b.Shares {
		shares[i] = toAPIShare(s)
	}
	return api.Bill{
		ID:           b.ID,
		GroupID:      b.GroupID,
		Description:  b.Description,
		TotalAmount:  b.TotalAmount,
		SplitPolicy:  string(b.SplitPolicy),
		PayerID:      b.PayerID,
		CreatorID:    b.CreatorID,
		IsSettlement: b.IsSettlement,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
		UpdatedBy:    b.UpdatedBy,
		Shares:       shares,
	}
}

func toAPIBillPage(p *ledger.BillPage) *api.BillPageResponse {
	bills := make([]api.Bill, len(p.Bills))
	for i, b := range p.Bills {
		bills[i] = toAPIBill(b)
	}
	return &api.BillPageResponse{
		Bills:   bills,
		Total:   p.Total,
		Offset:  p.Offset,
		Limit:   p.Limit,
		HasMore: p.HasMore,
	}
}

func toAPIGroup(d *ledger.GroupDetail) api.Group {
	members := make([]api.Member, len(d.Members))
	for i, m := range d.Members {
		members[i] = api.Member{User: toAPIUser(m.UserRef), Role: string(m.Role)}
	}
	return api.Group{
		ID:          d.Group.ID,
		Name:        d.Group.Name,
		Description: d.Group.Description,
		CreatedBy:   d.Group.CreatedBy,
		CreatedAt:   d.Group.CreatedAt,
		Members:     members,
	}
}

func toShareInputs(in []api.ShareInput) []calculator.ShareInput {
	if in == nil {
		return nil
	}
	out := make([]calculator.ShareInput, len(in))
	for i, s := range in {
		out[i] = calculator.ShareInput{UserID: s.UserID, Amount: s.Amount}
	}
	return out
}
