package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/apparel-storefront/internal/repository"
	"github.com/iliyamo/apparel-storefront/internal/testutil"
)

func TestAddressFirstBecomesDefault(t *testing.T) {
	db := testutil.NewDB(t)
	uid := newUser(t, db, "ada@example.com")

	first := newAddress(t, db, uid, "home", false)
	assert.True(t, first.IsDefault)
	assert.Equal(t, "GB", first.Country)

	second := newAddress(t, db, uid, "work", false)
	assert.False(t, second.IsDefault)
	assert.Equal(t, 1, countDefaults(t, db, uid))
}

func TestAddressSingleDefault(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := repository.NewAddressRepo(db)
	uid := newUser(t, db, "ada@example.com")
	other := newUser(t, db, "bob@example.com")
	otherAddr := newAddress(t, db, other, "home", true)

	var ids []uint64
	for _, label := range []string{"a", "b", "c", "d"} {
		ids = append(ids, newAddress(t, db, uid, label, true).ID)
		assert.Equal(t, 1, countDefaults(t, db, uid))
	}

	require.NoError(t, repo.SetDefault(ctx, ids[1], uid))
	assert.Equal(t, 1, countDefaults(t, db, uid))
	list, err := repo.ListByUser(ctx, uid)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, ids[1], list[0].ID)
	assert.True(t, list[0].IsDefault)

	a, err := repo.Get(ctx, ids[2], uid)
	require.NoError(t, err)
	a.IsDefault = true
	a.City = "Paris"
	require.NoError(t, repo.Update(ctx, a))
	assert.Equal(t, 1, countDefaults(t, db, uid))

	// other users are untouched
	assert.Equal(t, 1, countDefaults(t, db, other))
	_, err = repo.Get(ctx, otherAddr.ID, uid)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, repo.SetDefault(ctx, otherAddr.ID, uid), repository.ErrNotFound)
}

func TestAddressDeleteMovesDefault(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := repository.NewAddressRepo(db)
	uid := newUser(t, db, "ada@example.com")

	home := newAddress(t, db, uid, "home", true)
	newAddress(t, db, uid, "work", false)

	require.NoError(t, repo.Delete(ctx, home.ID, uid))
	assert.Equal(t, 1, countDefaults(t, db, uid))

	list, err := repo.ListByUser(ctx, uid)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsDefault)
}

func TestAddressUpdateKeepsDefault(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := repository.NewAddressRepo(db)
	uid := newUser(t, db, "ada@example.com")
	home := newAddress(t, db, uid, "home", true)

	home.IsDefault = false
	require.NoError(t, repo.Update(ctx, home))
	assert.Equal(t, 1, countDefaults(t, db, uid))
}
