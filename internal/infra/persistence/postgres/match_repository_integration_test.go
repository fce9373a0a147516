//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"arena/internal/domain/entity"
	"arena/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchRepository_Postgres(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	accounts := NewAccountRepository(db)
	matches := NewMatchRepository(db)
	tm := NewTransactionManager(db)

	alice := &entity.Account{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"}
	require.NoError(t, accounts.Create(ctx, alice))

	match := &entity.Match{
		CreatedBy: alice.ID,
		Status:    entity.MatchPending,
		Players: []entity.MatchPlayer{
			{Seat: 1, Alias: "alice", AccountID: &alice.ID},
			{Seat: 2, Alias: "guest"},
		},
	}
	require.NoError(t, matches.Create(ctx, match))
	require.NotEqual(t, uuid.Nil, match.ID)
	assert.False(t, match.CreatedAt.IsZero())

	t.Run("players load in seat order", func(t *testing.T) {
		found, err := matches.FindByID(ctx, match.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.MatchPending, found.Status)
		require.Len(t, found.Players, 2)
		assert.Equal(t, "alice", found.Players[0].Alias)
		require.NotNil(t, found.Players[0].AccountID)
		assert.Equal(t, alice.ID, *found.Players[0].AccountID)
		assert.Nil(t, found.Players[1].AccountID)
		assert.Nil(t, found.Players[1].Score)
	})

	t.Run("missing match", func(t *testing.T) {
		_, err := matches.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, repository.ErrMatchNotFound)

		ghost := &entity.Match{ID: uuid.New(), Status: entity.MatchOngoing}
		assert.ErrorIs(t, matches.Update(ctx, ghost), repository.ErrMatchNotFound)
	})

	t.Run("completion writes scores and counters together", func(t *testing.T) {
		err := tm.Execute(ctx, func(f repository.RepositoryFactory) error {
			locked, err := f.MatchRepo().FindByIDForUpdate(ctx, match.ID)
			if err != nil {
				return err
			}
			now := time.Now()
			require.True(t, locked.Start(now))
			require.True(t, locked.Finish("alice", [2]int{11, 7}, now))
			if err := f.MatchRepo().Update(ctx, locked); err != nil {
				return err
			}

			return f.AccountRepo().RecordResult(ctx, alice.ID, true)
		})
		require.NoError(t, err)

		found, err := matches.FindByID(ctx, match.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.MatchFinished, found.Status)
		assert.Equal(t, "alice", found.WinnerAlias)
		require.NotNil(t, found.FinishedAt)
		require.NotNil(t, found.Players[0].Score)
		assert.Equal(t, 11, *found.Players[0].Score)
		assert.Equal(t, entity.MatchWin, found.Players[0].Result)
		assert.Equal(t, 7, *found.Players[1].Score)
		assert.Equal(t, entity.MatchLoss, found.Players[1].Result)

		account, err := accounts.FindByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, account.Wins)
	})
}
