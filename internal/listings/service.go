package listings

import (
	"context"
	"fmt"
	"net/url"

	"golang.org/x/sync/errgroup"

	"github.com/technopolis/careers-portal/internal/platform/backend"
)

// Service reads and creates listings through the backend.
type Service struct {
	client *backend.Client
}

// NewService constructs the service.
func NewService(client *backend.Client) *Service {
	return &Service{client: client}
}

// Board holds the published listings shown on the home page.
type Board struct {
	Vacancies   []Listing
	Internships []Listing
}

// Published lists the public listings of kind.
func (s *Service) Published(ctx context.Context, kind Kind) ([]Listing, error) {
	return s.list(ctx, "/"+kind.Collection()+"/", kind, nil)
}

// Board fetches published vacancies and internships in parallel.
func (s *Service) Board(ctx context.Context) (Board, error) {
	var board Board
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := s.Published(gctx, KindVacancy)
		board.Vacancies = items
		return err
	})
	g.Go(func() error {
		items, err := s.Published(gctx, KindInternship)
		board.Internships = items
		return err
	})
	if err := g.Wait(); err != nil {
		return Board{}, err
	}
	return board, nil
}

// Mine lists the listings the caller owns. With includeRejected the backend
// also returns postings turned down by moderation.
func (s *Service) Mine(ctx context.Context, kind Kind, includeRejected bool) ([]Listing, error) {
	var query url.Values
	if includeRejected {
		query = url.Values{"include_rejected": {"true"}}
	}
	return s.list(ctx, "/"+kind.Collection()+"/my", kind, query)
}

// Create submits a draft for moderation.
func (s *Service) Create(ctx context.Context, kind Kind, draft Draft) (*Listing, error) {
	body, err := draft.Payload(kind)
	if err != nil {
		return nil, err
	}
	var created Listing
	if err := s.client.Post(ctx, "/"+kind.Collection()+"/", backend.JSON(body), &created); err != nil {
		return nil, fmt.Errorf("listings: create %s: %w", kind, err)
	}
	created.Kind = kind
	return &created, nil
}

func (s *Service) list(ctx context.Context, path string, kind Kind, query url.Values) ([]Listing, error) {
	var opts []backend.RequestOption
	if len(query) > 0 {
		opts = append(opts, backend.Query(query))
	}
	var items []Listing
	if err := s.client.Get(ctx, path, &items, opts...); err != nil {
		return nil, fmt.Errorf("listings: list %s: %w", kind.Collection(), err)
	}
	for i := range items {
		items[i].Kind = kind
	}
	return items, nil
}
