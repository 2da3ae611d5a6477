package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settlewise/internal/errs"
	"github.com/mmynk/settlewise/internal/models"
)

func TestCreateGroup(t *testing.T) {
	tests := []struct {
		name         string
		input        GroupInput
		wantKind     errs.Kind
		wantErr      bool
		validateFunc func(t *testing.T, f *fixture, got *GroupDetail)
	}{
		{
			name:  "creator is admin and invitees are members",
			input: GroupInput{Name: " Flat ", Description: "rent", MemberEmails: []string{"Bob@Example.com", "carol@example.com"}},
			validateFunc: func(t *testing.T, f *fixture, got *GroupDetail) {
				assert.Equal(t, "Flat", got.Group.Name)
				require.Len(t, got.Members, 3)
				roles := map[string]models.Role{}
				for _, m := range got.Members {
					roles[m.Name] = m.Role
				}
				assert.Equal(t, map[string]models.Role{
					"Alice": models.RoleAdmin,
					"Bob":   models.RoleMember,
					"Carol": models.RoleMember,
				}, roles)
			},
		},
		{
			name:  "unknown emails and the creator are skipped",
			input: GroupInput{Name: "Flat", MemberEmails: []string{"ghost@example.com", "alice@example.com", "bob@example.com", "bob@example.com"}},
			validateFunc: func(t *testing.T, f *fixture, got *GroupDetail) {
				assert.Len(t, got.Members, 2)
			},
		},
		{
			name:     "no invitees",
			input:    GroupInput{Name: "Solo"},
			wantErr:  true,
			wantKind: errs.KindValidation,
		},
		{
			name:     "no valid invitees",
			input:    GroupInput{Name: "Solo", MemberEmails: []string{"ghost@example.com", "alice@example.com"}},
			wantErr:  true,
			wantKind: errs.KindValidation,
		},
		{
			name:     "blank name",
			input:    GroupInput{Name: "  ", MemberEmails: []string{"bob@example.com"}},
			wantErr:  true,
			wantKind: errs.KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			got, err := NewGroups(f.store).CreateGroup(context.Background(), f.alice.ID, tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, errs.KindOf(err))
				return
			}
			require.NoError(t, err)
			if tt.validateFunc != nil {
				tt.validateFunc(t, f, got)
			}
		})
	}
}

func TestGetGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	groups := NewGroups(f.store)

	got, err := groups.GetGroup(ctx, f.bob.ID, f.group.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ski Trip", got.Group.Name)
	assert.Len(t, got.Members, 3)

	_, err = groups.GetGroup(ctx, f.eve.ID, f.group.ID)
	assert.Equal(t, errs.KindForbidden, errs.KindOf(err))
}

func TestAddMember(t *testing.T) {
	ctx := context.Background()

	t.Run("admin adds by email", func(t *testing.T) {
		f := newFixture(t)
		got, err := NewGroups(f.store).AddMember(ctx, f.alice.ID, f.group.ID, "EVE@example.com", "")
		require.NoError(t, err)
		assert.Len(t, got.Members, 4)

		ok, err := f.store.IsMember(ctx, f.eve.ID, f.group.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	tests := []struct {
		name      string
		requester func(f *fixture) string
		email     string
		role      models.Role
		wantKind  errs.Kind
	}{
		{"non-admin", func(f *fixture) string { return f.bob.ID }, "eve@example.com", "", errs.KindForbidden},
		{"outsider", func(f *fixture) string { return f.eve.ID }, "eve@example.com", "", errs.KindForbidden},
		{"unknown user", func(f *fixture) string { return f.alice.ID }, "ghost@example.com", "", errs.KindNotFound},
		{"already a member", func(f *fixture) string { return f.alice.ID }, "bob@example.com", "", errs.KindValidation},
		{"unknown role", func(f *fixture) string { return f.alice.ID }, "eve@example.com", "OWNER", errs.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := NewGroups(f.store).AddMember(ctx, tt.requester(f), f.group.ID, tt.email, tt.role)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, errs.KindOf(err))
		})
	}

	t.Run("missing group", func(t *testing.T) {
		f := newFixture(t)
		_, err := NewGroups(f.store).AddMember(ctx, f.alice.ID, "nope", "eve@example.com", "")
		assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
	})
}
