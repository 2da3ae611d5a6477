package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/settlewise/internal/errs"
	"github.com/mmynk/settlewise/internal/models"
	"github.com/mmynk/settlewise/internal/storage"
)

// ListUnpaidShares returns unpaid, non-deleted shares of non-deleted bills.
func (s *Store) ListUnpaidShares(ctx context.Context, q storage.ShareQuery) ([]models.UnpaidShare, error) {
	return listUnpaidShares(ctx, s.conn(), q)
}

func listUnpaidShares(ctx context.Context, c conn, q storage.ShareQuery) ([]models.UnpaidShare, error) {
	query := `SELECT s.id, s.bill_id, b.group_id, b.payer_id, s.user_id, CAST(s.amount AS TEXT)
		FROM bill_shares s JOIN bills b ON b.id = s.bill_id
		WHERE s.paid = ? AND s.deleted_at IS NULL AND b.deleted_at IS NULL`
	args := []any{false}

	if q.GroupID != "" {
		query += " AND b.group_id = ?"
		args = append(args, q.GroupID)
	}
	if q.UserID != "" {
		switch q.Involvement {
		case storage.InvolvementAsPayer:
			query += " AND b.payer_id = ? AND s.user_id <> ?"
			args = append(args, q.UserID, q.UserID)
		case storage.InvolvementAsDebtor:
			query += " AND s.user_id = ? AND b.payer_id <> ?"
			args = append(args, q.UserID, q.UserID)
		default:
			query += " AND (b.payer_id = ? OR s.user_id = ?)"
			args = append(args, q.UserID, q.UserID)
		}
	}
	query += " ORDER BY b.created_at, b.id, s.position"

	rows, err := c.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list unpaid shares: %w", err)
	}
	defer rows.Close()

	var shares []models.UnpaidShare
	for rows.Next() {
		var us models.UnpaidShare
		if err := rows.Scan(&us.ShareID, &us.BillID, &us.GroupID, &us.PayerID, &us.UserID, &us.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan unpaid share: %w", err)
		}
		shares = append(shares, us)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate unpaid shares: %w", err)
	}
	return shares, nil
}

// GetShare retrieves a non-deleted share and its non-deleted parent bill.
func (s *Store) GetShare(ctx context.Context, shareID string) (*models.BillShare, *models.Bill, error) {
	c := s.conn()
	share, err := scanShare(c.queryRow(ctx,
		"SELECT "+shareColumns+" FROM bill_shares s WHERE s.id = ? AND s.deleted_at IS NULL",
		shareID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, errs.NotFound("share not found: %s", shareID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get share: %w", err)
	}

	bill, err := getBill(ctx, c, share.BillID)
	if errs.IsNotFound(err) {
		return nil, nil, errs.NotFound("share not found: %s", shareID)
	}
	if err != nil {
		return nil, nil, err
	}
	return share, bill, nil
}

// SetSharePaid flips the paid flag of a share.
func (s *Store) SetSharePaid(ctx context.Context, shareID string, paid bool) error {
	res, err := s.conn().exec(ctx,
		"UPDATE bill_shares SET paid = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		paid, time.Now().Unix(), shareID,
	)
	if err != nil {
		return fmt.Errorf("failed to update share: %w", err)
	}
	return requireRow(res, "share not found: %s", shareID)
}
