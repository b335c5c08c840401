package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-logbook/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// testDatabase connects to MONGO_URI and returns a scratch database, skipping
// the test when no server is configured.
func testDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" || uri == "uri" {
		t.Skip("MONGO_URI not set or invalid, skipping integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := ConnectMongo(ctx, uri)
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	database := client.Database("test_logbook")
	require.NoError(t, database.Drop(context.Background()))
	return database
}

func TestConnectMongo_BadURI(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	client, err := ConnectMongo(ctx, "mongodb://bad:uri")
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestRoadListCollection_NilCollection(t *testing.T) {
	coll := &RoadListCollection{}
	ctx := context.Background()

	_, err := coll.FindRoadLists(ctx, "mamba-1")
	assert.Error(t, err)
	assert.Error(t, coll.PutRoadList(ctx, models.RoadList{ID: primitive.NewObjectID()}))
	assert.Error(t, coll.DeleteRoadList(ctx, primitive.NewObjectID()))
	assert.Error(t, coll.WithChain(ctx, "mamba-1", func(context.Context) error { return nil }))
}

func TestRoadListCollection_InvalidID(t *testing.T) {
	coll := &RoadListCollection{Collection: &mongo.Collection{}}
	_, err := coll.FindRoadListByID(context.Background(), "not-hex")
	assert.True(t, errors.Is(err, ErrInvalidID))
}

func TestRoadListCollection_Integration(t *testing.T) {
	database := testDatabase(t)
	coll := &RoadListCollection{
		Collection: database.Collection(RoadListsCollection),
		Versions:   database.Collection(ChainVersionsCollection),
	}
	ctx := context.Background()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	later := models.RoadList{ID: primitive.NewObjectID(), VehicleID: "kmar-1", End: day.AddDate(0, 0, 2), StartHours: models.Scalar(10)}
	earlier := models.RoadList{ID: primitive.NewObjectID(), VehicleID: "kmar-1", End: day, StartHours: models.Scalar(1)}
	other := models.RoadList{ID: primitive.NewObjectID(), VehicleID: "car-1", End: day}

	err := coll.WithChain(ctx, "kmar-1", func(ctx context.Context) error {
		for _, d := range []models.RoadList{later, earlier, other} {
			if err := coll.PutRoadList(ctx, d); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	docs, err := coll.FindRoadLists(ctx, "kmar-1")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, earlier.ID, docs[0].ID)
	assert.Equal(t, later.ID, docs[1].ID)
	assert.True(t, docs[1].StartHours.Equal(models.Scalar(10)))

	found, err := coll.FindRoadListByID(ctx, earlier.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "kmar-1", found.VehicleID)

	require.NoError(t, coll.DeleteRoadList(ctx, earlier.ID))
	_, err = coll.FindRoadListByID(ctx, earlier.ID.Hex())
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(coll.DeleteRoadList(ctx, earlier.ID), ErrNotFound))
}

func TestMongoVehicleCollection_Integration(t *testing.T) {
	database := testDatabase(t)
	coll := &MongoVehicleCollection{Collection: database.Collection(VehiclesCollection)}
	ctx := context.Background()

	vehicles := []models.Vehicle{
		{ID: "kmar-1", Name: "KMAR", Unit: models.UnitHours, Modes: []models.Mode{{ID: "hh", Rate: 2.8}}},
		{ID: "car-1", Name: "Car", Unit: models.UnitDistanceKm},
	}
	require.NoError(t, SeedVehicles(ctx, coll, vehicles))

	all, err := coll.FindVehicles(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "car-1", all[0].ID)

	k, err := coll.FindVehicleByID(ctx, "kmar-1")
	require.NoError(t, err)
	assert.Equal(t, 2.8, k.Rate("hh"))

	_, err = coll.FindVehicleByID(ctx, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}
