package ledger

import (
	"context"
	"fmt"

	"github.com/mmynk/settlewise/internal/errs"
	"github.com/mmynk/settlewise/internal/models"
)

// MembershipChecker answers whether a user belongs to a group.
type MembershipChecker interface {
	IsMember(ctx context.Context, userID, groupID string) (bool, error)
}

// UserDirectory resolves user IDs to users.
type UserDirectory interface {
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
}

// RequireMember returns a forbidden error unless userID is a member of groupID.
func RequireMember(ctx context.Context, m MembershipChecker, userID, groupID string) error {
	ok, err := m.IsMember(ctx, userID, groupID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if !ok {
		return errs.Forbidden("user is not a member of group %s", groupID)
	}
	return nil
}

// userRefs looks up the public view of ids. Unknown users are returned with
// their ID as name.
func userRefs(ctx context.Context, dir UserDirectory, ids []string) (map[string]models.UserRef, error) {
	users, err := dir.GetUsersByIDs(ctx, uniq(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	refs := make(map[string]models.UserRef, len(ids))
	for _, id := range ids {
		if u, ok := users[id]; ok {
			refs[id] = u.Ref()
		} else {
			refs[id] = models.UserRef{ID: id, Name: id}
		}
	}
	return refs, nil
}

func uniq(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
