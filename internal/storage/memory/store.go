// Package memory provides an in-memory implementation of storage.Store for
// tests and single-process demos. Nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/settlewise/internal/errs"
	"github.com/mmynk/settlewise/internal/models"
	"github.com/mmynk/settlewise/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

type billRecord struct {
	bill models.Bill // Shares is always nil here
	seq  int
}

type shareRecord struct {
	share    models.BillShare
	position int
}

type groupRecord struct {
	group   models.Group // Members is always nil here
	members map[string]*memberRecord
}

type memberRecord struct {
	member  models.GroupMember
	deleted bool
}

type Store struct {
	mu sync.RWMutex

	users      map[string]*models.User
	emailIndex map[string]string

	groups map[string]*groupRecord

	bills      map[string]*billRecord
	shares     map[string]*shareRecord
	billShares map[string][]string
	seq        int

	locks storage.GroupLocks
}

func New() *Store {
	return &Store{
		users:      make(map[string]*models.User),
		emailIndex: make(map[string]string),
		groups:     make(map[string]*groupRecord),
		bills:      make(map[string]*billRecord),
		shares:     make(map[string]*shareRecord),
		billShares: make(map[string][]string),
	}
}

func (s *Store) Close() error {
	return nil
}

// User Store implementation

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.ID]; exists {
		return errs.Conflict("user %s already exists", user.ID)
	}
	if _, exists := s.emailIndex[user.Email]; exists {
		return errs.Conflict("user with email %s already exists", user.Email)
	}
	u := *user
	s.users[u.ID] = &u
	s.emailIndex[u.Email] = u.ID
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emailIndex[email]
	if !ok {
		return nil, errs.NotFound("user not found: %s", email)
	}
	u := *s.users[id]
	return &u, nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, errs.NotFound("user not found: %s", id)
	}
	cp := *u
	return &cp, nil
}

func (s *Store) GetUsersByIDs(_ context.Context, ids []string) (map[string]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*models.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			cp := *u
			result[id] = &cp
		}
	}
	return result, nil
}

// Group Store implementation

func (s *Store) CreateGroup(_ context.Context, group *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}
	if _, exists := s.groups[group.ID]; exists {
		return errs.Conflict("group %s already exists", group.ID)
	}
	if _, ok := s.users[group.CreatedBy]; !ok {
		return errs.Validation("referenced record does not exist")
	}

	rec := &groupRecord{group: *group, members: make(map[string]*memberRecord)}
	rec.group.Members = nil
	for i := range group.Members {
		m := &group.Members[i]
		m.GroupID = group.ID
		if m.CreatedAt == 0 {
			m.CreatedAt = group.CreatedAt
		}
		if _, ok := s.users[m.UserID]; !ok {
			return errs.Validation("referenced record does not exist")
		}
		rec.members[m.UserID] = &memberRecord{member: *m}
	}
	s.groups[group.ID] = rec
	return nil
}

func (s *Store) GetGroup(_ context.Context, groupID string) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.groups[groupID]
	if !ok {
		return nil, errs.NotFound("group not found: %s", groupID)
	}
	g := rec.group
	for _, m := range rec.members {
		if !m.deleted {
			g.Members = append(g.Members, m.member)
		}
	}
	sort.Slice(g.Members, func(i, j int) bool {
		a, b := g.Members[i], g.Members[j]
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt < b.CreatedAt
		}
		return a.UserID < b.UserID
	})
	return &g, nil
}

func (s *Store) ListGroupIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.groups))
	for id := range s.groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) AddGroupMember(_ context.Context, member models.GroupMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.groups[member.GroupID]
	if !ok {
		return errs.Validation("referenced record does not exist")
	}
	if _, ok := s.users[member.UserID]; !ok {
		return errs.Validation("referenced record does not exist")
	}
	if existing, ok := rec.members[member.UserID]; ok {
		existing.member.Role = member.Role
		existing.deleted = false
		return nil
	}
	if member.CreatedAt == 0 {
		member.CreatedAt = time.Now().Unix()
	}
	rec.members[member.UserID] = &memberRecord{member: member}
	return nil
}

func (s *Store) isMemberLocked(userID, groupID string) bool {
	rec, ok := s.groups[groupID]
	if !ok {
		return false
	}
	m, ok := rec.members[userID]
	return ok && !m.deleted
}

func (s *Store) IsMember(_ context.Context, userID, groupID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isMemberLocked(userID, groupID), nil
}

func (s *Store) CountGroupsForUser(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for id := range s.groups {
		if s.isMemberLocked(userID, id) {
			n++
		}
	}
	return n, nil
}

func (s *Store) ListCoMembers(_ context.Context, userID string, limit int) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var users []*models.User
	for id, rec := range s.groups {
		if !s.isMemberLocked(userID, id) {
			continue
		}
		for uid, m := range rec.members {
			if m.deleted || uid == userID || seen[uid] {
				continue
			}
			seen[uid] = true
			if u, ok := s.users[uid]; ok {
				cp := *u
				users = append(users, &cp)
			}
		}
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].ID < users[j].ID
	})
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

// Bill Store implementation

func (s *Store) CreateBill(_ context.Context, bill *models.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkBillLocked(bill); err != nil {
		return err
	}
	s.insertBillLocked(bill)
	return nil
}

// checkBillLocked applies the constraints the SQL schema enforces.
func (s *Store) checkBillLocked(bill *models.Bill) error {
	if _, ok := s.groups[bill.GroupID]; !ok {
		return errs.Validation("referenced record does not exist")
	}
	if _, ok := s.users[bill.PayerID]; !ok {
		return errs.Validation("referenced record does not exist")
	}
	if bill.ID != "" {
		if _, exists := s.bills[bill.ID]; exists {
			return errs.Conflict("duplicate record")
		}
	}
	seen := make(map[string]bool, len(bill.Shares))
	for _, sh := range bill.Shares {
		if _, ok := s.users[sh.UserID]; !ok {
			return errs.Validation("referenced record does not exist")
		}
		if seen[sh.UserID] {
			return errs.Conflict("duplicate record")
		}
		seen[sh.UserID] = true
	}
	return nil
}

func (s *Store) insertBillLocked(bill *models.Bill) {
	fillBillIDs(bill)

	s.seq++
	rec := &billRecord{bill: *bill, seq: s.seq}
	rec.bill.Shares = nil
	rec.bill.TotalAmount = rec.bill.TotalAmount.Round(2)
	s.bills[bill.ID] = rec

	ids := make([]string, 0, len(bill.Shares))
	for i := range bill.Shares {
		stored := bill.Shares[i]
		stored.Amount = stored.Amount.Round(2)
		s.shares[stored.ID] = &shareRecord{share: stored, position: i}
		ids = append(ids, stored.ID)
	}
	s.billShares[bill.ID] = ids
}

// activeBillLocked returns a copy of a non-deleted bill with its active shares.
func (s *Store) activeBillLocked(billID string) (*models.Bill, bool) {
	rec, ok := s.bills[billID]
	if !ok || rec.bill.DeletedAt != nil {
		return nil, false
	}
	b := rec.bill
	b.Shares = s.activeSharesLocked(billID)
	return &b, true
}

func (s *Store) activeSharesLocked(billID string) []models.BillShare {
	var recs []*shareRecord
	for _, id := range s.billShares[billID] {
		if r := s.shares[id]; r.share.DeletedAt == nil {
			recs = append(recs, r)
		}
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].position < recs[j].position })

	shares := make([]models.BillShare, len(recs))
	for i, r := range recs {
		shares[i] = r.share
	}
	return shares
}

func (s *Store) GetBill(_ context.Context, billID string) (*models.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.activeBillLocked(billID)
	if !ok {
		return nil, errs.NotFound("bill not found: %s", billID)
	}
	return b, nil
}

func (s *Store) UpdateBill(_ context.Context, bill *models.Bill, shares []models.BillShare) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.bills[bill.ID]
	if !ok || rec.bill.DeletedAt != nil {
		return errs.NotFound("bill not found: %s", bill.ID)
	}
	if bill.UpdatedAt == 0 {
		bill.UpdatedAt = time.Now().Unix()
	}
	now := bill.UpdatedAt

	if shares != nil {
		seen := make(map[string]bool, len(shares))
		for _, sh := range shares {
			if _, ok := s.users[sh.UserID]; !ok {
				return errs.Validation("referenced record does not exist")
			}
			if seen[sh.UserID] {
				return errs.Conflict("duplicate record")
			}
			seen[sh.UserID] = true
		}
	}

	rec.bill.Description = bill.Description
	rec.bill.TotalAmount = bill.TotalAmount.Round(2)
	rec.bill.SplitPolicy = bill.SplitPolicy
	rec.bill.PayerID = bill.PayerID
	rec.bill.UpdatedAt = now
	rec.bill.UpdatedBy = bill.UpdatedBy

	if shares == nil {
		return nil
	}

	current := make(map[string]*shareRecord)
	for _, id := range s.billShares[bill.ID] {
		if r := s.shares[id]; r.share.DeletedAt == nil {
			current[r.share.UserID] = r
		}
	}

	for i := range shares {
		sh := &shares[i]
		sh.BillID = bill.ID
		sh.UpdatedAt = now
		if r, ok := current[sh.UserID]; ok {
			delete(current, sh.UserID)
			sh.ID = r.share.ID
			sh.CreatedAt = r.share.CreatedAt
			r.share.Amount = sh.Amount.Round(2)
			r.share.Paid = sh.Paid
			r.share.UpdatedAt = now
			r.position = i
			continue
		}
		sh.ID = uuid.New().String()
		sh.CreatedAt = now
		stored := *sh
		stored.Amount = stored.Amount.Round(2)
		s.shares[sh.ID] = &shareRecord{share: stored, position: i}
		s.billShares[bill.ID] = append(s.billShares[bill.ID], sh.ID)
	}

	for _, r := range current {
		deletedAt := now
		r.share.DeletedAt = &deletedAt
		r.share.UpdatedAt = now
	}
	bill.Shares = shares
	return nil
}

func (s *Store) DeleteBill(_ context.Context, billID, deletedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.bills[billID]
	if !ok || rec.bill.DeletedAt != nil {
		return errs.NotFound("bill not found: %s", billID)
	}
	now := time.Now().Unix()
	rec.bill.DeletedAt = &now
	rec.bill.UpdatedAt = now
	rec.bill.UpdatedBy = deletedBy
	for _, id := range s.billShares[billID] {
		if r := s.shares[id]; r.share.DeletedAt == nil {
			deletedAt := now
			r.share.DeletedAt = &deletedAt
			r.share.UpdatedAt = now
		}
	}
	return nil
}

func (s *Store) ListBills(_ context.Context, q storage.BillQuery) ([]*models.Bill, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(q.Search)
	var recs []*billRecord
	for id, rec := range s.bills {
		if rec.bill.DeletedAt != nil {
			continue
		}
		if q.GroupID != "" && rec.bill.GroupID != q.GroupID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(rec.bill.Description), search) {
			continue
		}
		if q.UserID != "" && rec.bill.PayerID != q.UserID && !s.hasActiveShareLocked(id, q.UserID) {
			continue
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].bill.CreatedAt != recs[j].bill.CreatedAt {
			return recs[i].bill.CreatedAt > recs[j].bill.CreatedAt
		}
		return recs[i].seq > recs[j].seq
	})

	total := len(recs)

	// Apply limit/offset
	if q.Limit > 0 {
		start := q.Offset
		if start > len(recs) {
			start = len(recs)
		}
		end := start + q.Limit
		if end > len(recs) {
			end = len(recs)
		}
		recs = recs[start:end]
	}

	bills := make([]*models.Bill, 0, len(recs))
	for _, rec := range recs {
		b, _ := s.activeBillLocked(rec.bill.ID)
		bills = append(bills, b)
	}
	return bills, total, nil
}

func (s *Store) hasActiveShareLocked(billID, userID string) bool {
	for _, id := range s.billShares[billID] {
		if r := s.shares[id]; r.share.DeletedAt == nil && r.share.UserID == userID {
			return true
		}
	}
	return false
}

// Share Store implementation

func (s *Store) ListUnpaidShares(_ context.Context, q storage.ShareQuery) ([]models.UnpaidShare, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unpaidSharesLocked(q, nil), nil
}

// unpaidSharesLocked lists matching unpaid shares, treating staged bills as
// already stored.
func (s *Store) unpaidSharesLocked(q storage.ShareQuery, staged []*models.Bill) []models.UnpaidShare {
	type candidate struct {
		bill     models.Bill
		seq      int
		position int
		share    models.BillShare
	}

	var cands []candidate
	for id, rec := range s.bills {
		if rec.bill.DeletedAt != nil {
			continue
		}
		for _, sid := range s.billShares[id] {
			r := s.shares[sid]
			cands = append(cands, candidate{bill: rec.bill, seq: rec.seq, position: r.position, share: r.share})
		}
	}
	for i, b := range staged {
		for pos, sh := range b.Shares {
			cands = append(cands, candidate{bill: *b, seq: s.seq + 1 + i, position: pos, share: sh})
		}
	}

	sort.Slice(cands, func(i, j int) bool {
		if cands[i].seq != cands[j].seq {
			return cands[i].seq < cands[j].seq
		}
		return cands[i].position < cands[j].position
	})

	var result []models.UnpaidShare
	for _, c := range cands {
		if c.share.Paid || c.share.DeletedAt != nil {
			continue
		}
		if !matchesShareQuery(q, c.bill.GroupID, c.bill.PayerID, c.share.UserID) {
			continue
		}
		result = append(result, models.UnpaidShare{
			ShareID: c.share.ID,
			BillID:  c.bill.ID,
			GroupID: c.bill.GroupID,
			PayerID: c.bill.PayerID,
			UserID:  c.share.UserID,
			Amount:  c.share.Amount.Round(2),
		})
	}
	return result
}

func matchesShareQuery(q storage.ShareQuery, groupID, payerID, debtorID string) bool {
	if q.GroupID != "" && groupID != q.GroupID {
		return false
	}
	if q.UserID == "" {
		return true
	}
	switch q.Involvement {
	case storage.InvolvementAsPayer:
		return payerID == q.UserID && debtorID != q.UserID
	case storage.InvolvementAsDebtor:
		return debtorID == q.UserID && payerID != q.UserID
	default:
		return payerID == q.UserID || debtorID == q.UserID
	}
}

func (s *Store) GetShare(_ context.Context, shareID string) (*models.BillShare, *models.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.shares[shareID]
	if !ok || r.share.DeletedAt != nil {
		return nil, nil, errs.NotFound("share not found: %s", shareID)
	}
	b, ok := s.activeBillLocked(r.share.BillID)
	if !ok {
		return nil, nil, errs.NotFound("share not found: %s", shareID)
	}
	sh := r.share
	return &sh, b, nil
}

func (s *Store) SetSharePaid(_ context.Context, shareID string, paid bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.shares[shareID]
	if !ok || r.share.DeletedAt != nil {
		return errs.NotFound("share not found: %s", shareID)
	}
	r.share.Paid = paid
	r.share.UpdatedAt = time.Now().Unix()
	return nil
}
