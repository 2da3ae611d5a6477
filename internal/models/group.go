package models

// Role is a member's role inside a group.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// Group is a set of users sharing one ledger.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Ski Trip").
	Name string

	// Description is optional free text.
	Description string

	// CreatedBy is the user ID of the group's creator, who is its first ADMIN.
	CreatedBy string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64

	// Members is the list of active memberships.
	Members []GroupMember
}

// GroupMember links a user to a group.
type GroupMember struct {
	GroupID   string
	UserID    string
	Role      Role
	CreatedAt int64
}

// HasMember reports whether userID is an active member of g.
func (g *Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
