package impl

import (
	"context"
	"testing"

	domainerrors "arena/internal/domain/errors"
	"arena/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsService_RecordLocalTournamentResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	caller := identityOf(f.register(t, "alice", "alice@example.com"))
	f.register(t, "bob", "bob@example.com")

	out, err := f.stats.RecordLocalTournamentResult(ctx, &caller, &usecase.LocalResultInput{
		Winner: "alice", Loser: " bob ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Tournament result recorded: alice beats bob", out.Message)
	assert.True(t, out.StatsUpdated)

	alice, err := f.repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, alice.GamesPlayed)
	assert.Equal(t, 1, alice.Wins)
	assert.Equal(t, 0, alice.Losses)
	require.NotNil(t, alice.LastSeen)
	assert.True(t, alice.LastSeen.Equal(f.clock.Now()))

	bob, err := f.repo.FindByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, bob.GamesPlayed)
	assert.Equal(t, 0, bob.Wins)
	assert.Equal(t, 1, bob.Losses)
}

func TestStatsService_RecordLocalTournamentResult_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	caller := identityOf(f.register(t, "alice", "alice@example.com"))

	tests := []struct {
		name     string
		input    usecase.LocalResultInput
		expected error
	}{
		{name: "missing loser", input: usecase.LocalResultInput{Winner: "alice"}, expected: domainerrors.ErrValidationFailed},
		{name: "same player", input: usecase.LocalResultInput{Winner: "alice", Loser: "alice"}, expected: domainerrors.ErrSamePlayers},
		{name: "unknown loser", input: usecase.LocalResultInput{Winner: "alice", Loser: "ghost"}, expected: domainerrors.ErrPlayerNotFound},
		{name: "unknown winner", input: usecase.LocalResultInput{Winner: "ghost", Loser: "alice"}, expected: domainerrors.ErrPlayerNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := f.stats.RecordLocalTournamentResult(ctx, &caller, &tt.input)
			assert.Nil(t, out)
			require.ErrorIs(t, err, tt.expected)
		})
	}

	// A failed transaction leaves every counter untouched.
	alice, err := f.repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, alice.GamesPlayed)
	assert.Zero(t, alice.Wins)
	assert.Zero(t, alice.Losses)
}
