package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"casa/internal/core"
)

// ChoreService manages chores and queues their rotation.
type ChoreService struct {
	store     ChoreStore
	publisher JobPublisher
}

func NewChoreService(store ChoreStore, publisher JobPublisher) *ChoreService {
	return &ChoreService{store: store, publisher: publisher}
}

// CreateChore adds an active chore to a house. Admins only.
func (s *ChoreService) CreateChore(ctx context.Context, userID string, c core.Chore) (core.Chore, error) {
	c.Title = strings.TrimSpace(c.Title)
	c.Frequency = core.Frequency(strings.ToUpper(string(c.Frequency)))
	c.Active = true
	if err := c.Validate(); err != nil {
		return core.Chore{}, err
	}
	if _, err := adminMembersOf(ctx, s.store, c.HouseID, userID); err != nil {
		return core.Chore{}, err
	}
	saved, err := s.store.CreateChore(ctx, c)
	if err != nil {
		return core.Chore{}, fmt.Errorf("create chore: %w", err)
	}
	slog.InfoContext(ctx, "Chore created",
		"house_id", saved.HouseID,
		"chore_id", saved.ID,
		"frequency", saved.Frequency)
	return saved, nil
}

// ListChores returns the chores of a house with their assignment history.
func (s *ChoreService) ListChores(ctx context.Context, userID, houseID string) ([]core.Chore, error) {
	if _, err := membersOf(ctx, s.store, houseID, userID); err != nil {
		return nil, err
	}
	chores, err := s.store.ListChores(ctx, houseID)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	return chores, nil
}

// ErrQueueUnavailable is returned when a rotation is requested without a
// job queue.
var ErrQueueUnavailable = errors.New("job queue not available")

// RequestRotation queues a rotation job. With an empty houseID every
// house is rotated; otherwise userID must belong to houseID.
func (s *ChoreService) RequestRotation(ctx context.Context, userID, houseID string) error {
	if houseID != "" {
		if _, err := membersOf(ctx, s.store, houseID, userID); err != nil {
			return err
		}
	}
	if s.publisher == nil {
		return ErrQueueUnavailable
	}
	if err := s.publisher.PublishRotate(ctx, houseID); err != nil {
		return fmt.Errorf("publish rotate job: %w", err)
	}
	slog.InfoContext(ctx, "Chore rotation job scheduled", "house_id", houseID, "user_id", userID)
	return nil
}
