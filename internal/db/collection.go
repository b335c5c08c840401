package db

import (
	"context"

	"github.com/ukydev/fleet-logbook/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RoadListStore defines road list persistence.
type RoadListStore interface {
	// FindRoadLists returns a vehicle's road lists ordered by end ascending.
	FindRoadLists(ctx context.Context, vehicleID string) ([]models.RoadList, error)
	FindRoadListByID(ctx context.Context, id string) (*models.RoadList, error)
	// PutRoadList inserts or replaces doc by its id.
	PutRoadList(ctx context.Context, doc models.RoadList) error
	DeleteRoadList(ctx context.Context, id primitive.ObjectID) error
	// WithChain runs fn as one atomic unit against vehicleID's chain. Store
	// calls made by fn must use the context it is given.
	WithChain(ctx context.Context, vehicleID string, fn func(ctx context.Context) error) error
}

// VehicleCollection defines vehicle reference data operations.
type VehicleCollection interface {
	FindVehicles(ctx context.Context) ([]models.Vehicle, error)
	FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error)
	UpsertVehicle(ctx context.Context, vehicle models.Vehicle) error
}

// UserCollection defines user operations.
type UserCollection interface {
	InsertUser(ctx context.Context, user models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, user models.User) error
	UpdateLastLogin(ctx context.Context, id string) error
	CountUsers(ctx context.Context) (int64, error)
}

var (
	_ RoadListStore     = (*RoadListCollection)(nil)
	_ RoadListStore     = (*MemoryStore)(nil)
	_ VehicleCollection = (*MongoVehicleCollection)(nil)
	_ VehicleCollection = (*MemoryStore)(nil)
	_ UserCollection    = (*MongoUserCollection)(nil)
	_ UserCollection    = (*MemoryStore)(nil)
)
