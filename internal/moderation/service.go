package moderation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/technopolis/careers-portal/internal/listings"
	"github.com/technopolis/careers-portal/internal/platform/backend"
	"github.com/technopolis/careers-portal/internal/shared"
)

// Recorder counts moderation decisions.
type Recorder interface {
	RecordModeration(kind, action string, err error)
}

// Service talks to the moderation endpoints.
type Service struct {
	client    *backend.Client
	metrics   Recorder
	validator *validator.Validate
}

// NewService constructs the service. metrics may be nil.
func NewService(client *backend.Client, metrics Recorder) *Service {
	return &Service{client: client, metrics: metrics, validator: shared.NewValidator()}
}

// LoadPending fetches all three pending queues in parallel.
func (s *Service) LoadPending(ctx context.Context) (Board, error) {
	var board Board
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := s.pendingListings(gctx, SectionVacancies, listings.KindVacancy)
		board.Vacancies = items
		return err
	})
	g.Go(func() error {
		items, err := s.pendingListings(gctx, SectionInternships, listings.KindInternship)
		board.Internships = items
		return err
	})
	g.Go(func() error {
		var users []PendingUser
		if err := s.client.Get(gctx, pendingPath(SectionUsers), &users); err != nil {
			return fmt.Errorf("moderation: pending users: %w", err)
		}
		board.Users = users
		return nil
	})
	if err := g.Wait(); err != nil {
		return Board{}, err
	}
	return board, nil
}

func (s *Service) pendingListings(ctx context.Context, section Section, kind listings.Kind) ([]listings.Listing, error) {
	var items []listings.Listing
	if err := s.client.Get(ctx, pendingPath(section), &items); err != nil {
		return nil, fmt.Errorf("moderation: pending %s: %w", section, err)
	}
	for i := range items {
		items[i].Kind = kind
	}
	return items, nil
}

func pendingPath(section Section) string {
	return "/moderation/" + string(section) + "/pending"
}

func actionPath(section Section, id int64, action Action) string {
	return "/moderation/" + string(section) + "/" + strconv.FormatInt(id, 10) + "/" + string(action)
}

// Publish approves section/id.
func (s *Service) Publish(ctx context.Context, section Section, id int64) error {
	err := s.client.Patch(ctx, actionPath(section, id, ActionPublish), nil, nil)
	s.record(section, ActionPublish, err)
	if err != nil {
		return fmt.Errorf("moderation: publish %s %d: %w", section, id, err)
	}
	return nil
}

// CheckReason trims reason and enforces its 10 to 500 character bounds. The
// returned error is a validator error keyed rejection_reason.
func (s *Service) CheckReason(reason string) (Rejection, error) {
	rejection := Rejection{Reason: strings.TrimSpace(reason)}
	if err := s.validator.Struct(rejection); err != nil {
		return rejection, err
	}
	return rejection, nil
}

// Reject turns section/id down with reason. An invalid reason fails before any
// request is made.
func (s *Service) Reject(ctx context.Context, section Section, id int64, reason string) error {
	rejection, err := s.CheckReason(reason)
	if err != nil {
		return err
	}
	err = s.client.Patch(ctx, actionPath(section, id, ActionReject), backend.JSON(rejection), nil)
	s.record(section, ActionReject, err)
	if err != nil {
		return fmt.Errorf("moderation: reject %s %d: %w", section, id, err)
	}
	return nil
}

func (s *Service) record(section Section, action Action, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordModeration(string(section), string(action), err)
}
