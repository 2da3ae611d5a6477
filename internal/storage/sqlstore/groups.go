package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/settlewise/internal/errs"
	"github.com/mmynk/settlewise/internal/models"
)

// CreateGroup persists a group and its initial members.
func (s *Store) CreateGroup(ctx context.Context, group *models.Group) error {
	// Generate ID if not set
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		c := conn{q: tx, dialect: s.dialect}
		_, err := c.exec(ctx,
			"INSERT INTO groups (id, name, description, created_by, created_at) VALUES (?, ?, ?, ?, ?)",
			group.ID, group.Name, group.Description, group.CreatedBy, group.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group: %w", err)
		}

		for i := range group.Members {
			m := &group.Members[i]
			m.GroupID = group.ID
			if m.CreatedAt == 0 {
				m.CreatedAt = group.CreatedAt
			}
			if err := upsertMember(ctx, c, *m); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetGroup retrieves a group with its active members.
func (s *Store) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	c := s.conn()
	group := &models.Group{}
	err := c.queryRow(ctx,
		"SELECT id, name, description, created_by, created_at FROM groups WHERE id = ?",
		groupID,
	).Scan(&group.ID, &group.Name, &group.Description, &group.CreatedBy, &group.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("group not found: %s", groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	rows, err := c.query(ctx,
		`SELECT group_id, user_id, role, created_at FROM group_members
		 WHERE group_id = ? AND deleted_at IS NULL ORDER BY created_at, user_id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.GroupMember
		var role string
		if err := rows.Scan(&m.GroupID, &m.UserID, &role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		m.Role = models.Role(role)
		group.Members = append(group.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}

	return group, nil
}

// ListGroupIDs returns the IDs of all groups.
func (s *Store) ListGroupIDs(ctx context.Context) ([]string, error) {
	rows, err := s.conn().query(ctx, "SELECT id FROM groups ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan group id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	return ids, nil
}

// AddGroupMember adds a membership, re-activating a removed one.
func (s *Store) AddGroupMember(ctx context.Context, member models.GroupMember) error {
	if member.CreatedAt == 0 {
		member.CreatedAt = time.Now().Unix()
	}
	return upsertMember(ctx, s.conn(), member)
}

func upsertMember(ctx context.Context, c conn, m models.GroupMember) error {
	_, err := c.exec(ctx,
		`INSERT INTO group_members (group_id, user_id, role, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (group_id, user_id) DO UPDATE SET role = excluded.role, deleted_at = NULL`,
		m.GroupID, m.UserID, string(m.Role), m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add group member: %w", err)
	}
	return nil
}

// IsMember reports whether userID is an active member of groupID.
func (s *Store) IsMember(ctx context.Context, userID, groupID string) (bool, error) {
	var exists int
	err := s.conn().queryRow(ctx,
		"SELECT 1 FROM group_members WHERE group_id = ? AND user_id = ? AND deleted_at IS NULL",
		groupID, userID,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return true, nil
}

// CountGroupsForUser returns how many groups userID is an active member of.
func (s *Store) CountGroupsForUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.conn().queryRow(ctx,
		"SELECT COUNT(*) FROM group_members WHERE user_id = ? AND deleted_at IS NULL",
		userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count groups: %w", err)
	}
	return n, nil
}

// ListCoMembers returns up to limit distinct users sharing a group with userID, by name.
func (s *Store) ListCoMembers(ctx context.Context, userID string, limit int) ([]*models.User, error) {
	rows, err := s.conn().query(ctx,
		`SELECT DISTINCT u.id, u.email, u.name, u.password_hash, u.created_at
		 FROM group_members gm
		 JOIN group_members mine ON mine.group_id = gm.group_id AND mine.user_id = ? AND mine.deleted_at IS NULL
		 JOIN users u ON u.id = gm.user_id
		 WHERE gm.user_id <> ? AND gm.deleted_at IS NULL
		 ORDER BY u.name, u.id
		 LIMIT ?`,
		userID, userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list co-members: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}
