package player

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hezhaoyun/ichess-server/internal/elo"
)

// memRepo is an in-memory Repository for tests.
type memRepo struct {
	records map[string]*Record
	fail    bool
	upserts int
}

func newMemRepo() *memRepo {
	return &memRepo{records: make(map[string]*Record)}
}

func (r *memRepo) FindByPID(_ context.Context, pid string) (*Record, error) {
	if r.fail {
		return nil, errors.New("repo down")
	}
	rec, ok := r.records[pid]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *memRepo) Upsert(_ context.Context, rec *Record) error {
	if r.fail {
		return errors.New("repo down")
	}
	r.upserts++
	cp := *rec
	r.records[rec.PID] = &cp
	return nil
}

func (r *memRepo) DeleteByPID(_ context.Context, pid string) error {
	delete(r.records, pid)
	return nil
}

func TestResolveCreatesDefaultRecord(t *testing.T) {
	repo := newMemRepo()
	store := NewStore(repo)

	store.Bind("sid-1", "alice", "Alice")
	rec := store.Resolve("sid-1")
	require.NotNil(t, rec)
	assert.Equal(t, "alice", rec.PID)
	assert.Equal(t, "Alice", rec.Name)
	assert.Equal(t, elo.DefaultRating, rec.Elo)

	// A fresh record is persisted right away.
	saved, err := repo.FindByPID(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, elo.DefaultRating, saved.Elo)
}

func TestResolveReadsExistingRecord(t *testing.T) {
	repo := newMemRepo()
	repo.records["bob"] = &Record{PID: "bob", Name: "Bob", Elo: 1712}
	store := NewStore(repo)

	store.Bind("sid-2", "bob", "Bob")
	rec := store.Resolve("sid-2")
	assert.Equal(t, 1712, rec.Elo)
}

func TestResolveWithoutJoinFallsBackToSID(t *testing.T) {
	store := NewStore(newMemRepo())

	rec := store.Resolve("sid-anon")
	assert.Equal(t, "sid-anon", rec.PID)
	assert.Equal(t, "sid-anon", rec.Name)
	assert.Equal(t, elo.DefaultRating, rec.Elo)
}

func TestResolveCached(t *testing.T) {
	repo := newMemRepo()
	store := NewStore(repo)

	store.Bind("sid-3", "carol", "Carol")
	first := store.Resolve("sid-3")
	second := store.Resolve("sid-3")
	assert.Same(t, first, second)

	// Rebinding under a new identity invalidates the cached record.
	store.Bind("sid-3", "dave", "Dave")
	third := store.Resolve("sid-3")
	assert.Equal(t, "dave", third.PID)
}

func TestResolveSurvivesRepositoryFailure(t *testing.T) {
	repo := newMemRepo()
	repo.fail = true
	store := NewStore(repo)

	store.Bind("sid-4", "erin", "Erin")
	rec := store.Resolve("sid-4")
	require.NotNil(t, rec)
	assert.Equal(t, elo.DefaultRating, rec.Elo)

	// The in-memory record stays authoritative for the session.
	repo.fail = false
	again := store.Resolve("sid-4")
	assert.Same(t, rec, again)
}

func TestCreateSynthetic(t *testing.T) {
	repo := newMemRepo()
	store := NewStore(repo)

	rec := store.CreateSynthetic("bot_1", "Magnus", 1460)
	assert.Equal(t, "bot_1", rec.PID)
	assert.Equal(t, "Magnus", rec.Name)
	assert.Equal(t, 1460, rec.Elo)

	// Resolvable like any other session, and persisted.
	assert.Same(t, rec, store.Resolve("bot_1"))
	assert.NotNil(t, repo.records["bot_1"])
}

func TestApplyRatingWin(t *testing.T) {
	repo := newMemRepo()
	store := NewStore(repo)
	store.Bind("sw", "winner", "Winner")
	store.Bind("sl", "loser", "Loser")

	store.ApplyRating("sw", "sl", 1)

	assert.Equal(t, 1515, store.Resolve("sw").Elo)
	assert.Equal(t, 1485, store.Resolve("sl").Elo)

	// Written through to the repository.
	assert.Equal(t, 1515, repo.records["winner"].Elo)
	assert.Equal(t, 1485, repo.records["loser"].Elo)
}

func TestApplyRatingDraw(t *testing.T) {
	repo := newMemRepo()
	repo.records["a"] = &Record{PID: "a", Name: "A", Elo: 1300}
	repo.records["b"] = &Record{PID: "b", Name: "B", Elo: 1700}
	store := NewStore(repo)
	store.Bind("sa", "a", "A")
	store.Bind("sb", "b", "B")

	store.ApplyRating("sa", "sb", 0.5)

	// The lower-rated side gains on a draw, zero-sum overall.
	a := store.Resolve("sa").Elo
	b := store.Resolve("sb").Elo
	assert.Greater(t, a, 1300)
	assert.Less(t, b, 1700)
	assert.Equal(t, 3000, a+b)
}

func TestApplyRatingUsesPreGameValues(t *testing.T) {
	// Both deltas must come from the ratings as they stood before the
	// game, so equal opponents always trade exactly K/2.
	store := NewStore(newMemRepo())
	store.Bind("sw", "w", "W")
	store.Bind("sl", "l", "L")

	store.ApplyRating("sw", "sl", 1)

	winner := store.Resolve("sw").Elo
	loser := store.Resolve("sl").Elo
	assert.Equal(t, elo.DefaultRating+elo.KFactor/2, winner)
	assert.Equal(t, elo.DefaultRating-elo.KFactor/2, loser)
	assert.Equal(t, 2*elo.DefaultRating, winner+loser)
}

func TestUnbindDropsSession(t *testing.T) {
	store := NewStore(newMemRepo())
	store.Bind("sid-5", "frank", "Frank")
	require.Equal(t, "frank", store.Resolve("sid-5").PID)

	store.Unbind("sid-5")

	// The sid now resolves anonymously again.
	assert.Equal(t, "sid-5", store.Resolve("sid-5").PID)
}
