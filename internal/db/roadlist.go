package db

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-logbook/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RoadListCollection stores road lists in MongoDB.
//
// Versions holds one document per vehicle whose counter is bumped first in
// every chain write, so two concurrent repairs of one chain write-conflict
// and the driver retries the later one. Client is needed for transactions;
// without it WithChain still bumps the version but is not atomic.
type RoadListCollection struct {
	Collection *mongo.Collection
	Versions   *mongo.Collection
	Client     *mongo.Client
}

// FindRoadLists returns a vehicle's road lists sorted by end.
func (c *RoadListCollection) FindRoadLists(ctx context.Context, vehicleID string) ([]models.RoadList, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	opts := options.Find().SetSort(bson.D{{Key: "end", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := c.Collection.Find(ctx, bson.M{"vehicle_id": vehicleID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find roadlists: %w", err)
	}
	defer cursor.Close(ctx)

	docs := []models.RoadList{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode roadlists: %w", err)
	}
	return docs, nil
}

// FindRoadListByID finds a road list by its hex id.
func (c *RoadListCollection) FindRoadListByID(ctx context.Context, id string) (*models.RoadList, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var doc models.RoadList
	if err := c.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, notFound(err, "roadlist "+id)
	}
	return &doc, nil
}

// PutRoadList replaces doc, inserting it when absent.
func (c *RoadListCollection) PutRoadList(ctx context.Context, doc models.RoadList) error {
	if c.Collection == nil {
		return errNilCollection
	}
	if doc.ID.IsZero() {
		return fmt.Errorf("%w: empty roadlist id", ErrInvalidID)
	}
	doc.UpdatedAt = time.Now().UTC()
	_, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("put roadlist %s: %w", doc.ID.Hex(), err)
	}
	return nil
}

// DeleteRoadList deletes a road list by id.
func (c *RoadListCollection) DeleteRoadList(ctx context.Context, id primitive.ObjectID) error {
	if c.Collection == nil {
		return errNilCollection
	}
	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete roadlist %s: %w", id.Hex(), err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("roadlist %s: %w", id.Hex(), ErrNotFound)
	}
	return nil
}

// WithChain runs fn inside a transaction that starts by bumping the
// vehicle's chain version.
func (c *RoadListCollection) WithChain(ctx context.Context, vehicleID string, fn func(ctx context.Context) error) error {
	if c.Collection == nil || c.Versions == nil {
		return errNilCollection
	}
	if c.Client == nil {
		if err := c.bumpVersion(ctx, vehicleID); err != nil {
			return err
		}
		return fn(ctx)
	}

	session, err := c.Client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	attempts := 0
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		attempts++
		if attempts > 1 {
			log.WithFields(log.Fields{"vehicle_id": vehicleID, "attempt": attempts}).Debug("retrying chain transaction")
		}
		if err := c.bumpVersion(sc, vehicleID); err != nil {
			return nil, err
		}
		return nil, fn(sc)
	})
	return err
}

func (c *RoadListCollection) bumpVersion(ctx context.Context, vehicleID string) error {
	_, err := c.Versions.UpdateOne(ctx,
		bson.M{"_id": vehicleID},
		bson.M{"$inc": bson.M{"version": 1}, "$set": bson.M{"updated_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("bump chain version %s: %w", vehicleID, err)
	}
	return nil
}
