package models

import (
	"time"
)

// Category is the kind of physical asset.
type Category string

const (
	CategoryBoat Category = "boat"
	CategoryCar  Category = "car"
)

// Unit is what a vehicle's usage counter measures.
type Unit string

const (
	UnitHours      Unit = "hours"
	UnitDistanceKm Unit = "distance-km"
)

// Rounding selects how a row's consumed fuel is rounded to 2 decimals.
type Rounding string

const (
	// RoundNearest rounds to the nearest cent, halves toward +Inf.
	RoundNearest Rounding = "nearest"
	// RoundUp always rounds up (ceiling).
	RoundUp Rounding = "up"
)

// Mode is one usage category (throttle setting, terrain type) with its own rate.
// Rate is fuel consumed per unit of usage: per hour for boats, per km for cars.
type Mode struct {
	ID    string  `bson:"id" json:"id"`
	Label string  `bson:"label" json:"label"`
	Rate  float64 `bson:"rate" json:"rate"`
}

// Vehicle is reference data consumed read-only by the ledger.
type Vehicle struct {
	ID         string    `bson:"_id" json:"id"`
	Name       string    `bson:"name" json:"name"`
	Profile    string    `bson:"profile" json:"profile"` // "mamba", "kmar", "truck", "car"
	Category   Category  `bson:"category" json:"category"`
	Unit       Unit      `bson:"unit" json:"unit"`
	DualEngine bool      `bson:"dual_engine" json:"dual_engine"`
	Rounding   Rounding  `bson:"rounding" json:"rounding"`
	Active     bool      `bson:"active" json:"active"`
	Modes      []Mode    `bson:"modes" json:"modes"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

// Rate returns the consumption rate of mode id, or 0 when the vehicle has no such mode.
func (v *Vehicle) Rate(id string) float64 {
	for _, m := range v.Modes {
		if m.ID == id {
			return m.Rate
		}
	}
	return 0
}

// ZeroUsage returns a zero counter in this vehicle's shape.
func (v *Vehicle) ZeroUsage() Usage {
	if v.DualEngine {
		return Dual(0, 0)
	}
	return Scalar(0)
}
