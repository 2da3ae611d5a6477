package api

import "github.com/shopspring/decimal"

// User is the public view of a user.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Auth messages

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Name     string `json:"name" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"` // Unix seconds
	User      User   `json:"user"`
}

type MeRequest struct{}

type MeResponse struct {
	User User `json:"user"`
}

// Group messages

type Member struct {
	User
	Role string `json:"role"`
}

type Group struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	CreatedBy   string   `json:"created_by"`
	CreatedAt   int64    `json:"created_at"`
	Members     []Member `json:"members"`
}

type CreateGroupRequest struct {
	Name         string   `json:"name" validate:"required,max=100"`
	Description  string   `json:"description" validate:"max=500"`
	MemberEmails []string `json:"member_emails" validate:"required,min=1,dive,email"`
}

type GetGroupRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

type AddMemberRequest struct {
	GroupID string `json:"group_id" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Role    string `json:"role" validate:"omitempty,oneof=ADMIN MEMBER"`
}

type GroupResponse struct {
	Group Group `json:"group"`
}

// Bill messages

type Share struct {
	ID     string          `json:"id"`
	BillID string          `json:"bill_id"`
	UserID string          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
	Paid   bool            `json:"paid"`
}

type Bill struct {
	ID           string          `json:"id"`
	GroupID      string          `json:"group_id"`
	Description  string          `json:"description"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	SplitPolicy  string          `json:"split_policy"`
	PayerID      string          `json:"payer_id"`
	CreatorID    string          `json:"creator_id"`
	IsSettlement bool            `json:"is_settlement"`
	CreatedAt    int64           `json:"created_at"`
	UpdatedAt    int64           `json:"updated_at,omitempty"`
	UpdatedBy    string          `json:"updated_by,omitempty"`
	Shares       []Share         `json:"shares"`
}

// ShareInput names a participant. Amount is required for EXACT splits.
type ShareInput struct {
	UserID string          `json:"user_id" validate:"required"`
	Amount decimal.Decimal `json:"amount"`
}

type CreateBillRequest struct {
	GroupID     string          `json:"group_id" validate:"required"`
	Description string          `json:"description" validate:"required,max=200"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	SplitPolicy string          `json:"split_policy" validate:"required,oneof=EQUAL EXACT"`
	PayerID     string          `json:"payer_id"`
	Shares      []ShareInput    `json:"shares" validate:"required,min=1,dive"`
}

// UpdateBillRequest changes the fields that are set. Shares, when present,
// replaces the participants.
type UpdateBillRequest struct {
	BillID      string           `json:"bill_id" validate:"required"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=200"`
	TotalAmount *decimal.Decimal `json:"total_amount,omitempty"`
	SplitPolicy *string          `json:"split_policy,omitempty" validate:"omitempty,oneof=EQUAL EXACT"`
	PayerID     *string          `json:"payer_id,omitempty"`
	Shares      []ShareInput     `json:"shares,omitempty" validate:"omitempty,min=1,dive"`
}

type GetBillRequest struct {
	BillID string `json:"bill_id" validate:"required"`
}

type DeleteBillRequest struct {
	BillID string `json:"bill_id" validate:"required"`
}

type DeleteBillResponse struct{}

type BillResponse struct {
	Bill Bill `json:"bill"`
}

type ListGroupBillsRequest struct {
	GroupID string `json:"group_id" validate:"required"`
	Search  string `json:"search" validate:"max=100"`
	Offset  int    `json:"offset" validate:"min=0"`
	Limit   int    `json:"limit" validate:"min=0,max=100"`
}

type ListUserBillsRequest struct {
	Offset int `json:"offset" validate:"min=0"`
	Limit  int `json:"limit" validate:"min=0,max=100"`
}

type BillPageResponse struct {
	Bills   []Bill `json:"bills"`
	Total   int    `json:"total"`
	Offset  int    `json:"offset"`
	Limit   int    `json:"limit"`
	HasMore bool   `json:"has_more"`
}

type ShareRequest struct {
	ShareID string `json:"share_id" validate:"required"`
}

type ShareResponse struct {
	Share Share `json:"share"`
}

type SettleUpRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

type SettleUpResponse struct {
	SettledCount int             `json:"settled_count"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
}

type Debt struct {
	From   User            `json:"from"`
	To     User            `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

type SimplifiedDebtsRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

type SimplifiedDebtsResponse struct {
	Debts []Debt `json:"debts"`
}

// Summary messages

type Balance struct {
	User   User            `json:"user"`
	Amount decimal.Decimal `json:"amount"`
}

type Activity struct {
	BillID      string          `json:"bill_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	CreatedAt   int64           `json:"created_at"`
	PayerName   string          `json:"payer_name"`
	GroupName   string          `json:"group_name"`
	Type        string          `json:"type"`
}

// SummaryRequest asks for the caller's dashboard, across all groups or for one.
type SummaryRequest struct {
	GroupID string `json:"group_id,omitempty"`
}

type SummaryResponse struct {
	TotalOwed      decimal.Decimal `json:"total_owed"`
	TotalOwe       decimal.Decimal `json:"total_owe"`
	GroupCount     int             `json:"group_count"`
	RecentActivity []Activity      `json:"recent_activity"`
	Friends        []User          `json:"friends"`
}

type GroupBalancesRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

type GroupBalancesResponse struct {
	Balances []Balance `json:"balances"`
}
