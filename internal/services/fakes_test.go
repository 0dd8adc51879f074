package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"casa/internal/core"
)

// memStore is an in-memory implementation of the service ports.
type memStore struct {
	mu            sync.Mutex
	seq           int
	users         map[string]core.User
	houses        map[string]core.House
	members       map[string][]core.Member
	expenses      map[string][]core.Expense
	chores        map[string][]core.Chore
	assignments   map[string][]core.ChoreAssignment
	notifications []core.Notification

	failAppend map[string]error
	failList   error
}

func newMemStore() *memStore {
	return &memStore{
		users:       map[string]core.User{},
		houses:      map[string]core.House{},
		members:     map[string][]core.Member{},
		expenses:    map[string][]core.Expense{},
		chores:      map[string][]core.Chore{},
		assignments: map[string][]core.ChoreAssignment{},
		failAppend:  map[string]error{},
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s%d", prefix, s.seq)
}

func (s *memStore) addUser(id, name string) {
	s.users[id] = core.User{ID: id, Email: id + "@casa.test", Name: name}
}

// seedHouse creates a house whose first user is ADMIN.
func (s *memStore) seedHouse(id string, userIDs ...string) {
	s.houses[id] = core.House{ID: id, Name: "house " + id}
	for i, u := range userIDs {
		if _, ok := s.users[u]; !ok {
			s.addUser(u, u)
		}
		role := core.RoleMember
		if i == 0 {
			role = core.RoleAdmin
		}
		s.members[id] = append(s.members[id], core.Member{ID: s.nextID("m"), HouseID: id, UserID: u, Role: role, DisplayName: u})
	}
}

func (s *memStore) GetUser(_ context.Context, id string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (s *memStore) CreateHouse(_ context.Context, name, creatorID string) (core.House, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := core.House{ID: s.nextID("h"), Name: name}
	s.houses[h.ID] = h
	s.members[h.ID] = []core.Member{{ID: s.nextID("m"), HouseID: h.ID, UserID: creatorID, Role: core.RoleAdmin}}
	return h, nil
}

func (s *memStore) GetHouse(_ context.Context, id string) (core.House, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.houses[id]
	if !ok {
		return core.House{}, core.ErrNotFound
	}
	return h, nil
}

func (s *memStore) ListHousesForUser(_ context.Context, userID string) ([]core.House, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.House
	for id, ms := range s.members {
		if _, ok := core.FindMember(ms, userID); ok {
			h := s.houses[id]
			h.Members = ms
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) RenameHouse(_ context.Context, id, name string) (core.House, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.houses[id]
	h.Name = name
	s.houses[id] = h
	return h, nil
}

func (s *memStore) ListMembers(_ context.Context, houseID string) ([]core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failList != nil {
		return nil, s.failList
	}
	return append([]core.Member(nil), s.members[houseID]...), nil
}

func (s *memStore) AddMember(_ context.Context, houseID, userID string, role core.Role) (core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := core.FindMember(s.members[houseID], userID); ok {
		return core.Member{}, core.ErrAlreadyMember
	}
	m := core.Member{ID: s.nextID("m"), HouseID: houseID, UserID: userID, Role: role}
	s.members[houseID] = append(s.members[houseID], m)
	return m, nil
}

func (s *memStore) RemoveMember(_ context.Context, houseID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ms := s.members[houseID]
	for i, m := range ms {
		if m.UserID == userID {
			s.members[houseID] = append(ms[:i:i], ms[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *memStore) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.nextID("e")
	for i := range e.Shares {
		e.Shares[i].ExpenseID = e.ID
	}
	s.expenses[e.HouseID] = append(s.expenses[e.HouseID], e)
	return e, nil
}

func (s *memStore) ListExpenses(_ context.Context, houseID string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense(nil), s.expenses[houseID]...), nil
}

func (s *memStore) CreateChore(_ context.Context, c core.Chore) (core.Chore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.nextID("c")
	s.chores[c.HouseID] = append(s.chores[c.HouseID], c)
	return c, nil
}

func (s *memStore) ListChores(_ context.Context, houseID string) ([]core.Chore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Chore(nil), s.chores[houseID]...)
	for i := range out {
		out[i].Assignments = s.assignments[out[i].ID]
	}
	return out, nil
}

func (s *memStore) ListHouseIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id := range s.houses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *memStore) latest(choreID string) *core.ChoreAssignment {
	as := s.assignments[choreID]
	if len(as) == 0 {
		return nil
	}
	last := as[len(as)-1]
	return &last
}

func (s *memStore) ListRotationCandidates(_ context.Context, houseID string) ([]core.ChoreState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.ChoreState
	for _, c := range s.chores[houseID] {
		if !c.Active {
			continue
		}
		out = append(out, core.ChoreState{Chore: c, Last: s.latest(c.ID)})
	}
	return out, nil
}

func (s *memStore) AppendAssignment(_ context.Context, a core.ChoreAssignment, previousID, notice string) (core.ChoreAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failAppend[a.ChoreID]; err != nil {
		return core.ChoreAssignment{}, err
	}
	current := ""
	if l := s.latest(a.ChoreID); l != nil {
		current = l.ID
	}
	if current != previousID {
		return core.ChoreAssignment{}, fmt.Errorf("chore %s: %w", a.ChoreID, core.ErrAssignmentConflict)
	}
	a.ID = s.nextID("a")
	s.assignments[a.ChoreID] = append(s.assignments[a.ChoreID], a)
	if notice != "" {
		s.notifications = append(s.notifications, core.Notification{ID: s.nextID("n"), UserID: a.UserID, Message: notice})
	}
	return a, nil
}

func (s *memStore) CreateNotifications(_ context.Context, ns []core.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range ns {
		n.ID = s.nextID("n")
		s.notifications = append(s.notifications, n)
	}
	return nil
}

func (s *memStore) ListNotifications(_ context.Context, userID string) ([]core.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *memStore) GetNotification(_ context.Context, id string) (core.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications {
		if n.ID == id {
			return n, nil
		}
	}
	return core.Notification{}, core.ErrNotFound
}

func (s *memStore) MarkNotificationRead(_ context.Context, id string) (core.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.notifications {
		if n.ID == id {
			s.notifications[i].Read = true
			return s.notifications[i], nil
		}
	}
	return core.Notification{}, core.ErrNotFound
}

// recordingPublisher captures published jobs.
type recordingPublisher struct {
	mu      sync.Mutex
	rotates []string
	created []string
	err     error
}

func (p *recordingPublisher) PublishRotate(_ context.Context, houseID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.rotates = append(p.rotates, houseID)
	return nil
}

func (p *recordingPublisher) PublishExpenseCreated(_ context.Context, _, expenseID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.created = append(p.created, expenseID)
	return nil
}

var errBoom = errors.New("boom")
