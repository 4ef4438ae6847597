package moderation

import (
	"errors"
	"slices"
	"strings"

	"github.com/technopolis/careers-portal/internal/authstore"
	"github.com/technopolis/careers-portal/internal/listings"
)

var (
	// ErrUnknownSection is returned for a moderation type outside Sections.
	ErrUnknownSection = errors.New("moderation: unknown section")
	// ErrActionInFlight refuses a second publish or reject of an item whose
	// first action has not completed.
	ErrActionInFlight = errors.New("moderation: action already in flight")
)

// Section names one pending queue as the backend spells it in URLs.
type Section string

const (
	SectionVacancies   Section = "vacancies"
	SectionInternships Section = "internships"
	SectionUsers       Section = "users"
)

// Sections lists every queue in display order.
var Sections = []Section{SectionVacancies, SectionInternships, SectionUsers}

// ParseSection validates a URL segment.
func ParseSection(raw string) (Section, error) {
	s := Section(strings.ToLower(strings.TrimSpace(raw)))
	if !slices.Contains(Sections, s) {
		return "", ErrUnknownSection
	}
	return s, nil
}

// Action is a moderation decision.
type Action string

const (
	ActionPublish Action = "publish"
	ActionReject  Action = "reject"
)

// PendingUser is a registration awaiting approval.
type PendingUser struct {
	ID    int64          `json:"id"`
	Email string         `json:"email"`
	Role  authstore.Role `json:"role"`
}

// Rejection carries the reason sent with a reject action.
type Rejection struct {
	Reason string `form:"rejection_reason" json:"rejection_reason" validate:"required,min=10,max=500"`
}

// Board is the admin's local copy of the pending queues. It is loaded once
// and then mutated in place as decisions succeed.
type Board struct {
	Vacancies   []listings.Listing
	Internships []listings.Listing
	Users       []PendingUser
}

// Total counts every pending item.
func (b Board) Total() int {
	return len(b.Vacancies) + len(b.Internships) + len(b.Users)
}

// Contains reports whether id is pending in section.
func (b Board) Contains(section Section, id int64) bool {
	switch section {
	case SectionVacancies:
		return slices.ContainsFunc(b.Vacancies, func(l listings.Listing) bool { return l.ID == id })
	case SectionInternships:
		return slices.ContainsFunc(b.Internships, func(l listings.Listing) bool { return l.ID == id })
	case SectionUsers:
		return slices.ContainsFunc(b.Users, func(u PendingUser) bool { return u.ID == id })
	}
	return false
}

// Without returns a copy of b with id dropped from section only. The other
// queues share nothing with the result that a later mutation could disturb.
func (b Board) Without(section Section, id int64) Board {
	out := Board{
		Vacancies:   slices.Clone(b.Vacancies),
		Internships: slices.Clone(b.Internships),
		Users:       slices.Clone(b.Users),
	}
	switch section {
	case SectionVacancies:
		out.Vacancies = slices.DeleteFunc(out.Vacancies, func(l listings.Listing) bool { return l.ID == id })
	case SectionInternships:
		out.Internships = slices.DeleteFunc(out.Internships, func(l listings.Listing) bool { return l.ID == id })
	case SectionUsers:
		out.Users = slices.DeleteFunc(out.Users, func(u PendingUser) bool { return u.ID == id })
	}
	return out
}
