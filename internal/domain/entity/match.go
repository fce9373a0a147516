package entity

import (
	"time"

	"github.com/google/uuid"
)

// MatchStatus is the lifecycle state of a match: PENDING, then ONGOING,
// then FINISHED. There is no way back.
type MatchStatus string

const (
	MatchPending  MatchStatus = "PENDING"
	MatchOngoing  MatchStatus = "ONGOING"
	MatchFinished MatchStatus = "FINISHED"
)

// MatchResult is a player's outcome, set when the match finishes.
type MatchResult string

const (
	MatchWin  MatchResult = "WIN"
	MatchLoss MatchResult = "LOSS"
)

// MatchPlayer is one seat of a match. AccountID is set when the alias was a
// registered username at creation; guests have none and earn no stats.
type MatchPlayer struct {
	Seat      int
	Alias     string
	AccountID *uuid.UUID
	Score     *int
	Result    MatchResult
}

// Match is a two-player game. The store assigns ID, CreatedAt and UpdatedAt.
type Match struct {
	ID          uuid.UUID
	CreatedBy   uuid.UUID
	Status      MatchStatus
	Players     []MatchPlayer // ordered by seat, always two
	WinnerAlias string
	StartedAt   *time.Time
	FinishedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Player returns the seat held by alias.
func (m *Match) Player(alias string) (*MatchPlayer, bool) {
	for i := range m.Players {
		if m.Players[i].Alias == alias {
			return &m.Players[i], true
		}
	}

	return nil, false
}

// Start moves a pending match to ONGOING. It reports false in any other state.
func (m *Match) Start(at time.Time) bool {
	if m.Status != MatchPending {
		return false
	}

	started := at
	m.Status = MatchOngoing
	m.StartedAt = &started

	return true
}

// Finish records scores by seat and marks winnerAlias as the winner. It
// reports false unless the match is ONGOING and winnerAlias plays in it.
func (m *Match) Finish(winnerAlias string, scores [2]int, at time.Time) bool {
	if m.Status != MatchOngoing || len(m.Players) != len(scores) {
		return false
	}
	if _, ok := m.Player(winnerAlias); !ok {
		return false
	}

	for i := range m.Players {
		score := scores[i]
		m.Players[i].Score = &score
		m.Players[i].Result = MatchLoss
		if m.Players[i].Alias == winnerAlias {
			m.Players[i].Result = MatchWin
		}
	}

	finished := at
	m.Status = MatchFinished
	m.WinnerAlias = winnerAlias
	m.FinishedAt = &finished

	return true
}

// Clone returns a deep copy.
func (m *Match) Clone() *Match {
	clone := *m
	clone.Players = make([]MatchPlayer, len(m.Players))
	for i, p := range m.Players {
		if p.AccountID != nil {
			id := *p.AccountID
			p.AccountID = &id
		}
		if p.Score != nil {
			score := *p.Score
			p.Score = &score
		}
		clone.Players[i] = p
	}
	if m.StartedAt != nil {
		started := *m.StartedAt
		clone.StartedAt = &started
	}
	if m.FinishedAt != nil {
		finished := *m.FinishedAt
		clone.FinishedAt = &finished
	}

	return &clone
}
