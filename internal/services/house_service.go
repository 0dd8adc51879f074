package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"casa/internal/core"
)

type houseMembers interface {
	MembershipLister
	GetHouse(ctx context.Context, id string) (core.House, error)
}

// membersOf loads the members of houseID after checking the house exists
// and userID belongs to it.
func membersOf(ctx context.Context, s houseMembers, houseID, userID string) ([]core.Member, error) {
	if _, err := s.GetHouse(ctx, houseID); err != nil {
		return nil, fmt.Errorf("get house: %w", err)
	}
	members, err := s.ListMembers(ctx, houseID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	if _, ok := core.FindMember(members, userID); !ok {
		return nil, core.ErrForbidden
	}
	return members, nil
}

// adminMembersOf is membersOf restricted to house admins.
func adminMembersOf(ctx context.Context, s houseMembers, houseID, userID string) ([]core.Member, error) {
	members, err := membersOf(ctx, s, houseID, userID)
	if err != nil {
		return nil, err
	}
	if !core.IsAdmin(members, userID) {
		return nil, core.ErrForbidden
	}
	return members, nil
}

// HouseService manages houses and their memberships.
type HouseService struct {
	store    HouseStore
	balances *BalanceCache
}

func NewHouseService(store HouseStore, balances *BalanceCache) *HouseService {
	return &HouseService{store: store, balances: balances}
}

// CreateHouse creates a house owned by userID, who becomes its ADMIN.
func (s *HouseService) CreateHouse(ctx context.Context, userID, name string) (core.House, error) {
	name = strings.TrimSpace(name)
	if err := (core.House{Name: name}).Validate(); err != nil {
		return core.House{}, err
	}
	h, err := s.store.CreateHouse(ctx, name, userID)
	if err != nil {
		return core.House{}, fmt.Errorf("create house: %w", err)
	}
	slog.InfoContext(ctx, "House created", "house_id", h.ID, "user_id", userID)
	return h, nil
}

// ListHouses returns the houses userID belongs to.
func (s *HouseService) ListHouses(ctx context.Context, userID string) ([]core.House, error) {
	houses, err := s.store.ListHousesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list houses: %w", err)
	}
	return houses, nil
}

// GetHouse returns a house with its members, visible to members only.
func (s *HouseService) GetHouse(ctx context.Context, userID, houseID string) (core.House, error) {
	members, err := membersOf(ctx, s.store, houseID, userID)
	if err != nil {
		return core.House{}, err
	}
	h, err := s.store.GetHouse(ctx, houseID)
	if err != nil {
		return core.House{}, fmt.Errorf("get house: %w", err)
	}
	h.Members = members
	return h, nil
}

// RenameHouse changes the name of a house. Admins only.
func (s *HouseService) RenameHouse(ctx context.Context, userID, houseID, name string) (core.House, error) {
	name = strings.TrimSpace(name)
	if err := (core.House{Name: name}).Validate(); err != nil {
		return core.House{}, err
	}
	if _, err := adminMembersOf(ctx, s.store, houseID, userID); err != nil {
		return core.House{}, err
	}
	h, err := s.store.RenameHouse(ctx, houseID, name)
	if err != nil {
		return core.House{}, fmt.Errorf("rename house: %w", err)
	}
	return h, nil
}

// AddMember adds an existing user to a house with the MEMBER role (or the
// given role). Admins only.
func (s *HouseService) AddMember(ctx context.Context, userID, houseID, newUserID string, role core.Role) (core.Member, error) {
	if role == "" {
		role = core.RoleMember
	}
	if !role.Valid() {
		return core.Member{}, core.ErrInvalidRole
	}
	if _, err := adminMembersOf(ctx, s.store, houseID, userID); err != nil {
		return core.Member{}, err
	}
	if _, err := s.store.GetUser(ctx, newUserID); err != nil {
		return core.Member{}, fmt.Errorf("get user: %w", err)
	}
	m, err := s.store.AddMember(ctx, houseID, newUserID, role)
	if err != nil {
		return core.Member{}, fmt.Errorf("add member: %w", err)
	}
	s.balances.Invalidate(houseID)
	slog.InfoContext(ctx, "Member added", "house_id", houseID, "user_id", newUserID, "role", role)
	return m, nil
}

// RemoveMember removes memberID from a house. Admins only, and an admin
// cannot remove themself.
func (s *HouseService) RemoveMember(ctx context.Context, userID, houseID, memberID string) error {
	members, err := adminMembersOf(ctx, s.store, houseID, userID)
	if err != nil {
		return err
	}
	if memberID == userID {
		return core.ErrRemoveSelf
	}
	if _, ok := core.FindMember(members, memberID); !ok {
		return fmt.Errorf("member %s: %w", memberID, core.ErrNotFound)
	}
	if err := s.store.RemoveMember(ctx, houseID, memberID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return err
		}
		return fmt.Errorf("remove member: %w", err)
	}
	s.balances.Invalidate(houseID)
	slog.InfoContext(ctx, "Member removed", "house_id", houseID, "user_id", memberID)
	return nil
}
