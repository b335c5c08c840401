package db

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-logbook/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

func newTestUser() models.User {
	return models.User{
		Username:     "testuser",
		PasswordHash: "hashedpassword",
		Role:         models.RoleOperator,
		FullName:     "Test User",
		Vehicles:     []string{"kmar-1"},
	}
}

func TestMongoUserCollection_InsertAndFind(t *testing.T) {
	database := testDatabase(t)
	collection := database.Collection(UsersCollection)
	userCollection := &MongoUserCollection{Collection: collection}
	ctx := context.Background()

	user := newTestUser()
	require.NoError(t, userCollection.InsertUser(ctx, user))

	var inserted models.User
	require.NoError(t, collection.FindOne(ctx, bson.M{"username": "testuser"}).Decode(&inserted))
	assert.True(t, inserted.IsActive)
	assert.NotZero(t, inserted.CreatedAt)
	assert.Equal(t, []string{"kmar-1"}, inserted.Vehicles)

	byID, err := userCollection.FindUserByID(ctx, inserted.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, user.Username, byID.Username)

	byName, err := userCollection.FindUserByUsername(ctx, "testuser")
	require.NoError(t, err)
	assert.Equal(t, inserted.ID, byName.ID)

	_, err = userCollection.FindUserByUsername(ctx, "nonexistent")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = userCollection.FindUserByID(ctx, "invalid-id")
	assert.True(t, errors.Is(err, ErrInvalidID))

	n, err := userCollection.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMongoUserCollection_UpdateUser(t *testing.T) {
	database := testDatabase(t)
	collection := database.Collection(UsersCollection)
	userCollection := &MongoUserCollection{Collection: collection}
	ctx := context.Background()

	require.NoError(t, userCollection.InsertUser(ctx, newTestUser()))
	inserted, err := userCollection.FindUserByUsername(ctx, "testuser")
	require.NoError(t, err)

	updated := *inserted
	updated.FullName = "Updated Name"
	require.NoError(t, userCollection.UpdateUser(ctx, inserted.ID.Hex(), updated))

	found, err := userCollection.FindUserByID(ctx, inserted.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Updated Name", found.FullName)
	assert.True(t, found.UpdatedAt.After(inserted.UpdatedAt))
}

func TestMongoUserCollection_UpdateLastLogin(t *testing.T) {
	database := testDatabase(t)
	userCollection := &MongoUserCollection{Collection: database.Collection(UsersCollection)}
	ctx := context.Background()

	require.NoError(t, userCollection.InsertUser(ctx, newTestUser()))
	inserted, err := userCollection.FindUserByUsername(ctx, "testuser")
	require.NoError(t, err)

	require.NoError(t, userCollection.UpdateLastLogin(ctx, inserted.ID.Hex()))

	found, err := userCollection.FindUserByID(ctx, inserted.ID.Hex())
	require.NoError(t, err)
	require.NotNil(t, found.LastLogin)
	assert.False(t, found.LastLogin.Before(inserted.CreatedAt))
}
