package moderation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technopolis/careers-portal/internal/listings"
)

func sampleBoard() Board {
	return Board{
		Vacancies:   []listings.Listing{{ID: 41}, {ID: 42}, {ID: 43}},
		Internships: []listings.Listing{{ID: 42}},
		Users:       []PendingUser{{ID: 42, Email: "hr@example.com"}},
	}
}

func ids(items []listings.Listing) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestWithoutRemovesOnlyThatItem(t *testing.T) {
	board := sampleBoard()
	next := board.Without(SectionVacancies, 42)

	assert.Equal(t, []int64{41, 43}, ids(next.Vacancies))
	assert.Equal(t, []int64{42}, ids(next.Internships))
	assert.Len(t, next.Users, 1)
	assert.Equal(t, 4, next.Total())

	assert.Equal(t, []int64{41, 42, 43}, ids(board.Vacancies))
	assert.False(t, next.Contains(SectionVacancies, 42))
	assert.True(t, next.Contains(SectionInternships, 42))
	assert.True(t, next.Contains(SectionUsers, 42))
}

func TestWithoutUnknownIDIsNoop(t *testing.T) {
	board := sampleBoard()
	assert.Equal(t, board, board.Without(SectionInternships, 99))
}

func TestParseSection(t *testing.T) {
	s, err := ParseSection("Vacancies")
	require.NoError(t, err)
	assert.Equal(t, SectionVacancies, s)
	_, err = ParseSection("companies")
	assert.ErrorIs(t, err, ErrUnknownSection)
}

func TestQueueRefusesSecondActionOnSameItem(t *testing.T) {
	q := NewQueue()
	q.Put("s1", sampleBoard())

	finish, err := q.Begin("s1", SectionVacancies, 42)
	require.NoError(t, err)
	_, err = q.Begin("s1", SectionVacancies, 42)
	assert.ErrorIs(t, err, ErrActionInFlight)

	other, err := q.Begin("s1", SectionInternships, 42)
	require.NoError(t, err)
	other(false)

	elsewhere, err := q.Begin("s2", SectionVacancies, 42)
	require.NoError(t, err)
	elsewhere(false)

	finish(true)
	finish(true)
	board, ok := q.Board("s1")
	require.True(t, ok)
	assert.Equal(t, []int64{41, 43}, ids(board.Vacancies))
	assert.Equal(t, []int64{42}, ids(board.Internships))

	again, err := q.Begin("s1", SectionVacancies, 42)
	require.NoError(t, err)
	again(false)
}

func TestQueueFailedActionKeepsItem(t *testing.T) {
	q := NewQueue()
	q.Put("s1", sampleBoard())
	finish, err := q.Begin("s1", SectionUsers, 42)
	require.NoError(t, err)
	finish(false)
	board, _ := q.Board("s1")
	assert.Len(t, board.Users, 1)
}

func TestQueueSweep(t *testing.T) {
	q := NewQueue()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return now }

	q.Put("idle", sampleBoard())
	q.Put("busy", sampleBoard())
	finish, err := q.Begin("busy", SectionVacancies, 41)
	require.NoError(t, err)

	now = now.Add(time.Hour)
	q.Put("fresh", Board{})

	assert.Equal(t, 1, q.Sweep(10*time.Minute))
	assert.Equal(t, 2, q.Len())
	_, ok := q.Board("idle")
	assert.False(t, ok)

	finish(true)
	q.Forget("busy")
	assert.Equal(t, 1, q.Len())
}
