package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/settlewise/internal/errs"
	"github.com/mmynk/settlewise/internal/models"
	"github.com/mmynk/settlewise/internal/storage"
)

const billColumns = `b.id, b.group_id, b.description, CAST(b.total_amount AS TEXT), b.split_policy,
	b.payer_id, b.creator_id, b.is_settlement, b.created_at, b.updated_at, b.updated_by`

const shareColumns = `s.id, s.bill_id, s.user_id, CAST(s.amount AS TEXT), s.paid, s.created_at, s.updated_at`

// money formats an amount for storage.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBill(row rowScanner) (*models.Bill, error) {
	bill := &models.Bill{}
	var policy string
	err := row.Scan(&bill.ID, &bill.GroupID, &bill.Description, &bill.TotalAmount, &policy,
		&bill.PayerID, &bill.CreatorID, &bill.IsSettlement, &bill.CreatedAt, &bill.UpdatedAt, &bill.UpdatedBy)
	if err != nil {
		return nil, err
	}
	bill.SplitPolicy = models.SplitPolicy(policy)
	return bill, nil
}

func scanShare(row rowScanner) (*models.BillShare, error) {
	share := &models.BillShare{}
	err := row.Scan(&share.ID, &share.BillID, &share.UserID, &share.Amount, &share.Paid,
		&share.CreatedAt, &share.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return share, nil
}

// CreateBill persists a new bill and its shares in one transaction.
func (s *Store) CreateBill(ctx context.Context, bill *models.Bill) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return insertBill(ctx, conn{q: tx, dialect: s.dialect}, bill)
	})
}

func insertBill(ctx context.Context, c conn, bill *models.Bill) error {
	// Generate IDs if not set
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	if bill.CreatedAt == 0 {
		bill.CreatedAt = time.Now().Unix()
	}

	_, err := c.exec(ctx,
		`INSERT INTO bills (id, group_id, description, total_amount, split_policy, payer_id, creator_id,
			is_settlement, created_at, updated_at, updated_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bill.ID, bill.GroupID, bill.Description, money(bill.TotalAmount), string(bill.SplitPolicy),
		bill.PayerID, bill.CreatorID, bill.IsSettlement, bill.CreatedAt, bill.UpdatedAt, bill.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bill: %w", err)
	}

	for i := range bill.Shares {
		share := &bill.Shares[i]
		share.BillID = bill.ID
		if share.CreatedAt == 0 {
			share.CreatedAt = bill.CreatedAt
		}
		if err := insertShare(ctx, c, share, i); err != nil {
			return err
		}
	}

	return nil
}

func insertShare(ctx context.Context, c conn, share *models.BillShare, position int) error {
	if share.ID == "" {
		share.ID = uuid.New().String()
	}
	_, err := c.exec(ctx,
		`INSERT INTO bill_shares (id, bill_id, user_id, amount, paid, position, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		share.ID, share.BillID, share.UserID, money(share.Amount), share.Paid, position,
		share.CreatedAt, share.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert share: %w", err)
	}
	return nil
}

// GetBill retrieves a non-deleted bill with its active shares.
func (s *Store) GetBill(ctx context.Context, billID string) (*models.Bill, error) {
	return getBill(ctx, s.conn(), billID)
}

func getBill(ctx context.Context, c conn, billID string) (*models.Bill, error) {
	bill, err := scanBill(c.queryRow(ctx,
		"SELECT "+billColumns+" FROM bills b WHERE b.id = ? AND b.deleted_at IS NULL",
		billID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("bill not found: %s", billID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}

	if err := loadShares(ctx, c, []*models.Bill{bill}); err != nil {
		return nil, err
	}
	return bill, nil
}

// loadShares fills in the active shares of bills, in their stored order.
func loadShares(ctx context.Context, c conn, bills []*models.Bill) error {
	if len(bills) == 0 {
		return nil
	}

	byID := make(map[string]*models.Bill, len(bills))
	args := make([]any, len(bills))
	for i, b := range bills {
		byID[b.ID] = b
		args[i] = b.ID
	}

	rows, err := c.query(ctx,
		"SELECT "+shareColumns+" FROM bill_shares s WHERE s.bill_id IN ("+placeholders(len(bills))+
			") AND s.deleted_at IS NULL ORDER BY s.bill_id, s.position",
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to get shares: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		share, err := scanShare(rows)
		if err != nil {
			return fmt.Errorf("failed to scan share: %w", err)
		}
		bill := byID[share.BillID]
		bill.Shares = append(bill.Shares, *share)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate shares: %w", err)
	}
	return nil
}

// UpdateBill saves the bill's metadata and, when shares is non-nil, its share set.
func (s *Store) UpdateBill(ctx context.Context, bill *models.Bill, shares []models.BillShare) error {
	if bill.UpdatedAt == 0 {
		bill.UpdatedAt = time.Now().Unix()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		c := conn{q: tx, dialect: s.dialect}
		res, err := c.exec(ctx,
			`UPDATE bills SET description = ?, total_amount = ?, split_policy = ?, payer_id = ?,
				updated_at = ?, updated_by = ?
			 WHERE id = ? AND deleted_at IS NULL`,
			bill.Description, money(bill.TotalAmount), string(bill.SplitPolicy), bill.PayerID,
			bill.UpdatedAt, bill.UpdatedBy, bill.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update bill: %w", err)
		}
		if err := requireRow(res, "bill not found: %s", bill.ID); err != nil {
			return err
		}

		if shares == nil {
			return nil
		}
		if err := replaceShares(ctx, c, bill.ID, shares, bill.UpdatedAt); err != nil {
			return err
		}
		bill.Shares = shares
		return nil
	})
}

// replaceShares makes shares the bill's active share set. Users keep their
// share row when they stay on the bill.
func replaceShares(ctx context.Context, c conn, billID string, shares []models.BillShare, now int64) error {
	rows, err := c.query(ctx,
		"SELECT id, user_id FROM bill_shares WHERE bill_id = ? AND deleted_at IS NULL",
		billID,
	)
	if err != nil {
		return fmt.Errorf("failed to get current shares: %w", err)
	}
	current := make(map[string]string)
	for rows.Next() {
		var id, userID string
		if err := rows.Scan(&id, &userID); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan share: %w", err)
		}
		current[userID] = id
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate shares: %w", err)
	}

	for i := range shares {
		share := &shares[i]
		share.BillID = billID
		share.UpdatedAt = now

		id, ok := current[share.UserID]
		if !ok {
			share.ID = ""
			share.CreatedAt = now
			if err := insertShare(ctx, c, share, i); err != nil {
				return err
			}
			continue
		}
		delete(current, share.UserID)
		share.ID = id
		_, err := c.exec(ctx,
			"UPDATE bill_shares SET amount = ?, paid = ?, position = ?, updated_at = ? WHERE id = ?",
			money(share.Amount), share.Paid, i, now, id,
		)
		if err != nil {
			return fmt.Errorf("failed to update share: %w", err)
		}
	}

	for _, id := range current {
		_, err := c.exec(ctx,
			"UPDATE bill_shares SET deleted_at = ?, updated_at = ? WHERE id = ?",
			now, now, id,
		)
		if err != nil {
			return fmt.Errorf("failed to delete share: %w", err)
		}
	}
	return nil
}

// DeleteBill soft-deletes a bill and its shares.
func (s *Store) DeleteBill(ctx context.Context, billID, deletedBy string) error {
	now := time.Now().Unix()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		c := conn{q: tx, dialect: s.dialect}
		res, err := c.exec(ctx,
			"UPDATE bills SET deleted_at = ?, updated_at = ?, updated_by = ? WHERE id = ? AND deleted_at IS NULL",
			now, now, deletedBy, billID,
		)
		if err != nil {
			return fmt.Errorf("failed to delete bill: %w", err)
		}
		if err := requireRow(res, "bill not found: %s", billID); err != nil {
			return err
		}

		_, err = c.exec(ctx,
			"UPDATE bill_shares SET deleted_at = ?, updated_at = ? WHERE bill_id = ? AND deleted_at IS NULL",
			now, now, billID,
		)
		if err != nil {
			return fmt.Errorf("failed to delete shares: %w", err)
		}
		return nil
	})
}

// ListBills returns one page of bills, newest first, with the total match count.
func (s *Store) ListBills(ctx context.Context, q storage.BillQuery) ([]*models.Bill, int, error) {
	c := s.conn()

	var where []string
	var args []any
	where = append(where, "b.deleted_at IS NULL")
	if q.GroupID != "" {
		where = append(where, "b.group_id = ?")
		args = append(args, q.GroupID)
	}
	if q.UserID != "" {
		where = append(where, `(b.payer_id = ? OR EXISTS (
			SELECT 1 FROM bill_shares us WHERE us.bill_id = b.id AND us.user_id = ? AND us.deleted_at IS NULL))`)
		args = append(args, q.UserID, q.UserID)
	}
	if q.Search != "" {
		where = append(where, `LOWER(b.description) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(q.Search))+"%")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := c.queryRow(ctx, "SELECT COUNT(*) FROM bills b WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count bills: %w", err)
	}

	query := "SELECT " + billColumns + " FROM bills b WHERE " + cond + " ORDER BY b.created_at DESC, b.id DESC"
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset)
	}

	rows, err := c.query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bills: %w", err)
	}
	defer rows.Close()

	var bills []*models.Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate bills: %w", err)
	}
	rows.Close()

	if err := loadShares(ctx, c, bills); err != nil {
		return nil, 0, err
	}
	return bills, total, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// requireRow turns an update that matched nothing into a not-found error.
func requireRow(res sql.Result, format string, args ...any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return errs.NotFound(format, args...)
	}
	return nil
}
