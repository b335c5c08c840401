package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-logbook/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMemoryStore_RoadLists(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	a := models.RoadList{ID: primitive.NewObjectID(), VehicleID: "v", End: day.AddDate(0, 0, 1)}
	b := models.RoadList{ID: primitive.NewObjectID(), VehicleID: "v", End: day}
	c := models.RoadList{ID: primitive.NewObjectID(), VehicleID: "w", End: day}
	for _, d := range []models.RoadList{a, b, c} {
		require.NoError(t, s.PutRoadList(ctx, d))
	}

	docs, err := s.FindRoadLists(ctx, "v")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, b.ID, docs[0].ID)
	assert.Equal(t, a.ID, docs[1].ID)

	empty, err := s.FindRoadLists(ctx, "none")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	found, err := s.FindRoadListByID(ctx, c.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "w", found.VehicleID)

	_, err = s.FindRoadListByID(ctx, "zz")
	assert.True(t, errors.Is(err, ErrInvalidID))

	require.NoError(t, s.DeleteRoadList(ctx, c.ID))
	_, err = s.FindRoadListByID(ctx, c.ID.Hex())
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(s.DeleteRoadList(ctx, c.ID), ErrNotFound))

	assert.True(t, errors.Is(s.PutRoadList(ctx, models.RoadList{}), ErrInvalidID))
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	doc := models.RoadList{
		ID:          primitive.NewObjectID(),
		VehicleID:   "v",
		Itineraries: []models.Itinerary{{Usage: map[string]*float64{"hh": models.Float(1)}}},
	}
	require.NoError(t, s.PutRoadList(ctx, doc))

	got, err := s.FindRoadListByID(ctx, doc.ID.Hex())
	require.NoError(t, err)
	*got.Itineraries[0].Usage["hh"] = 99
	got.Itineraries[0].Comment = "changed"

	again, err := s.FindRoadListByID(ctx, doc.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 1.0, again.Itineraries[0].Amount("hh"))
	assert.Equal(t, "", again.Itineraries[0].Comment)
}

func TestMemoryStore_WithChainRollsBack(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	keep := models.RoadList{ID: primitive.NewObjectID(), VehicleID: "v", StartFuel: 5}
	require.NoError(t, s.PutRoadList(ctx, keep))

	boom := errors.New("boom")
	err := s.WithChain(ctx, "v", func(ctx context.Context) error {
		changed := keep
		changed.StartFuel = 50
		require.NoError(t, s.PutRoadList(ctx, changed))
		require.NoError(t, s.PutRoadList(ctx, models.RoadList{ID: primitive.NewObjectID(), VehicleID: "v"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(0), s.ChainVersion("v"))

	docs, err := s.FindRoadLists(ctx, "v")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 5.0, docs[0].StartFuel)

	require.NoError(t, s.WithChain(ctx, "v", func(ctx context.Context) error {
		return s.DeleteRoadList(ctx, keep.ID)
	}))
	assert.Equal(t, int64(1), s.ChainVersion("v"))
}

func TestMemoryStore_Vehicles(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, SeedVehicles(ctx, s, []models.Vehicle{{ID: "b"}, {ID: "a"}}))

	first, err := s.FindVehicleByID(ctx, "a")
	require.NoError(t, err)
	created := first.CreatedAt
	assert.False(t, created.IsZero())

	// Reseeding never overwrites a stored vehicle.
	edited := *first
	edited.Modes = []models.Mode{{ID: "sh", Rate: 99}}
	require.NoError(t, SaveVehicle(ctx, s, edited))
	require.NoError(t, SeedVehicles(ctx, s, []models.Vehicle{{ID: "a", Name: "renamed", Modes: []models.Mode{{ID: "sh", Rate: 11.6}}}}))
	again, err := s.FindVehicleByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "", again.Name)
	assert.Equal(t, 99.0, again.Rate("sh"))
	assert.Equal(t, created, again.CreatedAt)

	// SaveVehicle replaces, keeping the creation time.
	edited.Name = "renamed"
	require.NoError(t, SaveVehicle(ctx, s, edited))
	again, err = s.FindVehicleByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "renamed", again.Name)
	assert.Equal(t, created, again.CreatedAt)

	require.NoError(t, SaveVehicle(ctx, s, models.Vehicle{ID: "c"}))
	fresh, err := s.FindVehicleByID(ctx, "c")
	require.NoError(t, err)
	assert.False(t, fresh.CreatedAt.IsZero())

	all, err := s.FindVehicles(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID)

	_, err = s.FindVehicleByID(ctx, "zzz")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(s.UpsertVehicle(ctx, models.Vehicle{}), ErrInvalidID))
}

func TestMemoryStore_VehicleModesAreCopied(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	modes := []models.Mode{{ID: "sh", Rate: 11.6}}
	require.NoError(t, s.UpsertVehicle(ctx, models.Vehicle{ID: "a", Modes: modes}))
	modes[0].Rate = 1

	got, err := s.FindVehicleByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 11.6, got.Rate("sh"))
	got.Modes[0].Rate = 2

	all, err := s.FindVehicles(ctx)
	require.NoError(t, err)
	all[0].Modes[0].Rate = 3

	again, err := s.FindVehicleByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 11.6, again.Rate("sh"))
}

func TestMemoryStore_Users(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.InsertUser(ctx, models.User{Username: "ann", Role: models.RoleViewer}))
	assert.Error(t, s.InsertUser(ctx, models.User{Username: "ann"}))

	u, err := s.FindUserByUsername(ctx, "ann")
	require.NoError(t, err)
	assert.True(t, u.IsActive)
	assert.Nil(t, u.LastLogin)

	require.NoError(t, s.UpdateLastLogin(ctx, u.ID.Hex()))
	u, err = s.FindUserByID(ctx, u.ID.Hex())
	require.NoError(t, err)
	assert.NotNil(t, u.LastLogin)

	u.FullName = "Ann"
	require.NoError(t, s.UpdateUser(ctx, u.ID.Hex(), *u))
	u, err = s.FindUserByID(ctx, u.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.FullName)

	n, err := s.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.FindUserByUsername(ctx, "bob")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(s.UpdateUser(ctx, primitive.NewObjectID().Hex(), models.User{}), ErrNotFound))
}
