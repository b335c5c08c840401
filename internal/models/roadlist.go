package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Itinerary is one dated row of a road list.
type Itinerary struct {
	Date time.Time `bson:"date" json:"date"`
	// BR is carried through untouched.
	BR   *float64            `bson:"br,omitempty" json:"br,omitempty"`
	Fuel *float64            `bson:"fuel,omitempty" json:"fuel"`
	// Usage maps a mode id to the hours or km spent in that mode. Absent or
	// null entries count as 0.
	Usage     map[string]*float64 `bson:"usage" json:"usage"`
	Comment   string              `bson:"comment" json:"comment"`
	Documents []string            `bson:"documents,omitempty" json:"documents,omitempty"`
}

// Amount returns the usage recorded for mode id, 0 when absent.
func (it *Itinerary) Amount(mode string) float64 {
	if v, ok := it.Usage[mode]; ok && v != nil {
		return *v
	}
	return 0
}

// ReceivedFuel returns the fuel received on this row, 0 when absent.
func (it *Itinerary) ReceivedFuel() float64 {
	if it.Fuel == nil {
		return 0
	}
	return *it.Fuel
}

// RoadList is one logbook document: one shift or period of one vehicle.
type RoadList struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	VehicleID   string             `bson:"vehicle_id" json:"vehicle_id"`
	Number      string             `bson:"number,omitempty" json:"number,omitempty"`
	Start       time.Time          `bson:"start" json:"start"`
	End         time.Time          `bson:"end" json:"end"`
	StartFuel   float64            `bson:"start_fuel" json:"startFuel"`
	StartHours  Usage              `bson:"start_hours" json:"startHours"`
	Itineraries []Itinerary        `bson:"itineraries" json:"itineraries"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// Float returns a pointer to v, for building rows.
func Float(v float64) *float64 {
	return &v
}
