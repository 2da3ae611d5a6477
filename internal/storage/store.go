// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/mmynk/settlewise/internal/models"
)

// Involvement narrows a share query to how a user takes part in a share.
type Involvement int

const (
	// InvolvementAny matches shares where the user is the payer or the debtor.
	InvolvementAny Involvement = iota
	// InvolvementAsPayer matches other users' shares on bills the user paid.
	InvolvementAsPayer
	// InvolvementAsDebtor matches the user's own shares on bills others paid.
	InvolvementAsDebtor
)

// ShareQuery selects unpaid shares. Empty fields do not filter.
type ShareQuery struct {
	// GroupID limits the query to one group's ledger.
	GroupID string
	// UserID, together with Involvement, limits the query to shares the user takes part in.
	UserID      string
	Involvement Involvement
}

// Scope selects whose net balances to compute: one group's whole ledger, or
// every share a user takes part in across groups.
type Scope struct {
	GroupID string
	// Requester must be a member of GroupID for a group scope.
	Requester string
	// UserID is set for a user scope.
	UserID string
}

// GroupScope covers all unpaid shares of groupID, read on behalf of requester.
func GroupScope(groupID, requester string) Scope {
	return Scope{GroupID: groupID, Requester: requester}
}

// UserScope covers the unpaid shares userID takes part in, in any group.
func UserScope(userID string) Scope {
	return Scope{UserID: userID}
}

// IsGroup reports whether s is a group scope.
func (s Scope) IsGroup() bool {
	return s.GroupID != ""
}

// ShareQuery returns the share query that reads the scope.
func (s Scope) ShareQuery() ShareQuery {
	if s.IsGroup() {
		return ShareQuery{GroupID: s.GroupID}
	}
	return ShareQuery{UserID: s.UserID, Involvement: InvolvementAny}
}

// BillQuery selects bills for listing, newest first.
type BillQuery struct {
	GroupID string
	// UserID limits the list to bills the user paid or has a share in.
	UserID string
	// Search is a case-insensitive substring of the description.
	Search string
	Offset int
	Limit  int
}

// Tx is the part of the store available inside a group-serialized transaction.
type Tx interface {
	// ListUnpaidShares returns unpaid, non-deleted shares of non-deleted bills.
	ListUnpaidShares(ctx context.Context, q ShareQuery) ([]models.UnpaidShare, error)

	// CreateBill persists a bill with its shares.
	// Missing IDs and timestamps are filled in.
	CreateBill(ctx context.Context, bill *models.Bill) error
}

// Store defines the interface for ledger storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, memory)
// without changing the ledger core.
type Store interface {
	Tx

	// InGroupTx runs fn in a single transaction while holding the group's
	// settlement lock. Concurrent calls for the same group run one at a time.
	// If fn returns an error nothing it wrote is kept.
	InGroupTx(ctx context.Context, groupID string, fn func(tx Tx) error) error

	// GetBill retrieves a non-deleted bill with its active shares.
	GetBill(ctx context.Context, billID string) (*models.Bill, error)

	// UpdateBill saves the bill's metadata. When shares is non-nil the share
	// set is replaced surgically in the same transaction: shares of users no
	// longer present are soft-deleted, existing users' shares get the new
	// amount and paid flag, and new users get new shares.
	UpdateBill(ctx context.Context, bill *models.Bill, shares []models.BillShare) error

	// DeleteBill soft-deletes a bill and its shares.
	DeleteBill(ctx context.Context, billID, deletedBy string) error

	// ListBills returns one page of bills with their shares, and the total count.
	ListBills(ctx context.Context, q BillQuery) ([]*models.Bill, int, error)

	// GetShare retrieves a non-deleted share and its parent bill.
	GetShare(ctx context.Context, shareID string) (*models.BillShare, *models.Bill, error)

	// SetSharePaid flips the paid flag of a share.
	SetSharePaid(ctx context.Context, shareID string, paid bool) error

	// CreateGroup persists a group and its initial members.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group with its active members.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroupIDs returns the IDs of all groups.
	ListGroupIDs(ctx context.Context) ([]string, error)

	// AddGroupMember adds (or re-activates) a membership.
	AddGroupMember(ctx context.Context, member models.GroupMember) error

	// IsMember reports whether userID is an active member of groupID.
	IsMember(ctx context.Context, userID, groupID string) (bool, error)

	// CountGroupsForUser returns how many groups userID is an active member of.
	CountGroupsForUser(ctx context.Context, userID string) (int, error)

	// ListCoMembers returns up to limit distinct users sharing a group with userID.
	ListCoMembers(ctx context.Context, userID string, limit int) ([]*models.User, error)

	// CreateUser persists a new user.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves a user by email address.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUsersByIDs returns the users that exist among ids, keyed by ID.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)

	// Close releases any resources held by the store.
	Close() error
}
