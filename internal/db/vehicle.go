package db

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-logbook/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoVehicleCollection implements VehicleCollection for MongoDB.
type MongoVehicleCollection struct {
	Collection *mongo.Collection
}

// FindVehicles returns all vehicles sorted by id.
func (c *MongoVehicleCollection) FindVehicles(ctx context.Context) ([]models.Vehicle, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	cursor, err := c.Collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find vehicles: %w", err)
	}
	defer cursor.Close(ctx)

	vehicles := []models.Vehicle{}
	if err := cursor.All(ctx, &vehicles); err != nil {
		return nil, fmt.Errorf("decode vehicles: %w", err)
	}
	return vehicles, nil
}

// FindVehicleByID finds a vehicle by its id.
func (c *MongoVehicleCollection) FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	var vehicle models.Vehicle
	if err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&vehicle); err != nil {
		return nil, notFound(err, "vehicle "+id)
	}
	return &vehicle, nil
}

// UpsertVehicle inserts or replaces a vehicle.
func (c *MongoVehicleCollection) UpsertVehicle(ctx context.Context, vehicle models.Vehicle) error {
	if c.Collection == nil {
		return errNilCollection
	}
	if vehicle.ID == "" {
		return fmt.Errorf("%w: empty vehicle id", ErrInvalidID)
	}
	_, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": vehicle.ID}, vehicle, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert vehicle %s: %w", vehicle.ID, err)
	}
	return nil
}

// SeedVehicles inserts the catalog vehicles that coll does not hold yet.
// Stored vehicles are left alone, so rate tables edited through the API
// survive a restart.
func SeedVehicles(ctx context.Context, coll VehicleCollection, vehicles []models.Vehicle) error {
	now := time.Now().UTC()
	added := 0
	for _, v := range vehicles {
		_, err := coll.FindVehicleByID(ctx, v.ID)
		switch {
		case err == nil:
			continue
		case !isNotFound(err):
			return err
		}
		v.CreatedAt = now
		if err := coll.UpsertVehicle(ctx, v); err != nil {
			return err
		}
		added++
	}
	log.WithFields(log.Fields{"catalog": len(vehicles), "added": added}).Info("vehicle catalog seeded")
	return nil
}

// SaveVehicle replaces v in coll, keeping the creation time of an existing
// vehicle.
func SaveVehicle(ctx context.Context, coll VehicleCollection, v models.Vehicle) error {
	existing, err := coll.FindVehicleByID(ctx, v.ID)
	switch {
	case err == nil:
		v.CreatedAt = existing.CreatedAt
	case isNotFound(err):
		v.CreatedAt = time.Now().UTC()
	default:
		return err
	}
	return coll.UpsertVehicle(ctx, v)
}
