// Package profile renders the signed-in user's cabinet: their postings split
// into active and rejected, and for HR the applications received.
package profile

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/technopolis/careers-portal/internal/applications"
	"github.com/technopolis/careers-portal/internal/authstore"
	"github.com/technopolis/careers-portal/internal/listings"
)

// Overview is everything the profile page shows.
type Overview struct {
	User         authstore.User
	Kind         listings.Kind
	Active       []listings.Listing
	Rejected     []listings.Listing
	Applications []applications.Application
}

// Service assembles an Overview.
type Service struct {
	listings     *listings.Service
	applications *applications.Service
}

// NewService constructs the service.
func NewService(listingSvc *listings.Service, applicationSvc *applications.Service) *Service {
	return &Service{listings: listingSvc, applications: applicationSvc}
}

// Load fetches the overview for user. Only posting roles trigger backend
// calls; applicants and admins get the identity alone.
func (s *Service) Load(ctx context.Context, user authstore.User) (Overview, error) {
	out := Overview{User: user}
	switch user.Role {
	case authstore.RoleHR:
		out.Kind = listings.KindVacancy
	case authstore.RoleUniversity:
		out.Kind = listings.KindInternship
	default:
		return out, nil
	}

	var mine, withRejected []listings.Listing
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := s.listings.Mine(gctx, out.Kind, false)
		mine = items
		return err
	})
	g.Go(func() error {
		items, err := s.listings.Mine(gctx, out.Kind, true)
		withRejected = items
		return err
	})
	if user.Role == authstore.RoleHR {
		g.Go(func() error {
			items, err := s.applications.Received(gctx, listings.KindVacancy)
			out.Applications = items
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Overview{User: user, Kind: out.Kind}, fmt.Errorf("profile: load %s: %w", user.Role, err)
	}

	for _, l := range mine {
		if !l.Rejected() {
			out.Active = append(out.Active, l)
		}
	}
	for _, l := range withRejected {
		if l.Rejected() {
			out.Rejected = append(out.Rejected, l)
		}
	}
	return out, nil
}
