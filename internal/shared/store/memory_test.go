package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedGame(t *testing.T, m *Memory, extID string, at time.Time) (Game, BettingLine) {
	t.Helper()
	var g Game
	var l BettingLine
	err := m.InTx(context.Background(), func(tx Tx) error {
		home := &Team{Name: "Lakers", City: "Los Angeles", Sport: "basketball_nba"}
		away := &Team{Name: "Celtics", City: "Boston", Sport: "basketball_nba"}
		require.NoError(t, tx.InsertTeam(context.Background(), home))
		require.NoError(t, tx.InsertTeam(context.Background(), away))
		g = Game{HomeTeamID: home.ID, AwayTeamID: away.ID, GameTime: at, Sport: "basketball_nba",
			Status: GameScheduled, ExternalID: extID, DataSource: DataSourceOddsAPI}
		if err := tx.InsertGame(context.Background(), &g); err != nil {
			return err
		}
		l = BettingLine{GameID: g.ID, LineType: LineMoneyline,
			HomeOdds: decimal.NewNullDecimal(decimal.NewFromInt(-150)),
			AwayOdds: decimal.NewNullDecimal(decimal.NewFromInt(130))}
		return tx.UpsertLine(context.Background(), &l)
	})
	require.NoError(t, err)
	return g, l
}

func TestMemory_InTxRollbackDiscardsWrites(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	boom := errors.New("boom")

	err := m.InTx(ctx, func(tx Tx) error {
		require.NoError(t, tx.InsertAccount(ctx, &Account{UserID: "u1", Currency: "USD"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = m.InTx(ctx, func(tx Tx) error {
		_, err := tx.AccountByUser(ctx, "u1", false)
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_AccountUniquePerUser(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.InTx(ctx, func(tx Tx) error {
		return tx.InsertAccount(ctx, &Account{UserID: "u1"})
	}))
	err := m.InTx(ctx, func(tx Tx) error {
		return tx.InsertAccount(ctx, &Account{UserID: "u1"})
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMemory_EntriesNewestFirstAndCascade(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	acc := &Account{UserID: "u1"}

	require.NoError(t, m.InTx(ctx, func(tx Tx) error {
		if err := tx.InsertAccount(ctx, acc); err != nil {
			return err
		}
		for _, amt := range []int64{10, 20, 30} {
			e := &LedgerEntry{AccountID: acc.ID, Type: EntryDeposit, Amount: decimal.NewFromInt(amt)}
			if err := tx.InsertEntry(ctx, e); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, m.InTx(ctx, func(tx Tx) error {
		entries, err := tx.ListEntries(ctx, acc.ID, 2)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.True(t, entries[0].Amount.Equal(decimal.NewFromInt(30)))
		assert.True(t, entries[1].Amount.Equal(decimal.NewFromInt(20)))

		sum, err := tx.SummarizeEntries(ctx, acc.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, sum[EntryDeposit].Count)
		assert.True(t, sum[EntryDeposit].Total.Equal(decimal.NewFromInt(60)))
		return nil
	}))

	require.NoError(t, m.InTx(ctx, func(tx Tx) error { return tx.DeleteAccount(ctx, acc.ID) }))
	require.NoError(t, m.InTx(ctx, func(tx Tx) error {
		entries, err := tx.ListEntries(ctx, acc.ID, 10)
		require.NoError(t, err)
		assert.Empty(t, entries)
		return nil
	}))
}

func TestMemory_UpsertLineKeepsOnePerType(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	g, first := seedGame(t, m, "evt-1", time.Now().Add(time.Hour))

	require.NoError(t, m.InTx(ctx, func(tx Tx) error {
		l := &BettingLine{GameID: g.ID, LineType: LineMoneyline,
			HomeOdds: decimal.NewNullDecimal(decimal.NewFromInt(-160))}
		require.NoError(t, tx.UpsertLine(ctx, l))
		assert.Equal(t, first.ID, l.ID)

		lines, err := tx.LinesByGame(ctx, g.ID)
		require.NoError(t, err)
		require.Len(t, lines, 1)
		assert.True(t, lines[0].HomeOdds.Decimal.Equal(decimal.NewFromInt(-160)))
		return nil
	}))
}

func TestMemory_GameExternalIDUnique(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	g, _ := seedGame(t, m, "evt-1", time.Now())

	err := m.InTx(ctx, func(tx Tx) error {
		dup := Game{HomeTeamID: g.HomeTeamID, AwayTeamID: g.AwayTeamID, ExternalID: "evt-1"}
		return tx.InsertGame(ctx, &dup)
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMemory_SettleableGames(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	g, l := seedGame(t, m, "evt-1", time.Now().Add(-3*time.Hour))

	require.NoError(t, m.InTx(ctx, func(tx Tx) error {
		return tx.InsertBet(ctx, &Bet{UserID: "u1", GameID: g.ID, BettingLineID: l.ID,
			Selection: SelectionHome, Amount: decimal.NewFromInt(10), Status: BetPending})
	}))

	list := func() []Game {
		var out []Game
		require.NoError(t, m.InTx(ctx, func(tx Tx) error {
			var err error
			out, err = tx.ListSettleableGames(ctx)
			return err
		}))
		return out
	}
	assert.Empty(t, list(), "scheduled game is not settleable")

	home, away := 101, 99
	require.NoError(t, m.InTx(ctx, func(tx Tx) error {
		g.Status = GameCompleted
		g.HomeScore, g.AwayScore = &home, &away
		return tx.UpdateGame(ctx, &g)
	}))
	got := list()
	require.Len(t, got, 1)
	assert.Equal(t, g.ID, got[0].ID)
}

func TestMemory_LastJobExecution(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, m.InTx(ctx, func(tx Tx) error {
		for i, st := range []string{JobSuccess, JobFailed} {
			j := &JobExecution{JobName: "sync_live", Status: st, ExecutedAt: base.Add(time.Duration(i) * time.Minute)}
			if err := tx.InsertJobExecution(ctx, j); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, m.InTx(ctx, func(tx Tx) error {
		j, err := tx.LastJobExecution(ctx, "sync_live")
		require.NoError(t, err)
		assert.Equal(t, JobFailed, j.Status)

		_, err = tx.LastJobExecution(ctx, "sync_all")
		assert.ErrorIs(t, err, ErrNotFound)
		return nil
	}))
}
