// Package ledger computes running fuel and engine-hours (or odometer)
// balances over a vehicle's chain of road lists, and repairs the chain's
// stored start balances when a road list is inserted, edited or removed.
//
// Everything in this package is pure: no I/O, no logging, no shared state.
package ledger

import (
	"fmt"
	"os"
	"sort"

	"github.com/ukydev/fleet-logbook/internal/models"
	"gopkg.in/yaml.v3"
)

// Built-in vehicle profiles.
const (
	ProfileMamba = "mamba" // 4-mode dual-engine boat
	ProfileKMAR  = "kmar"  // 3-mode single-counter boat
	ProfileTruck = "truck" // 5-mode truck, per-km rates
	ProfileCar   = "car"   // single-mode car, per-km rates
)

// Boat throttle modes.
const (
	ModeIdle   = "hh"
	ModeLow    = "mh"
	ModeCruise = "sh"
	ModeFull   = "ph"
)

// Truck terrain modes.
const (
	ModeHighway = "road"
	ModeGrade5  = "grade5"
	ModeGrade10 = "grade10"
	ModeGrade15 = "grade15"
	ModeOffroad = "awd"
)

func mambaModes() []models.Mode {
	return []models.Mode{
		{ID: ModeIdle, Label: "Idle", Rate: 6.3},
		{ID: ModeLow, Label: "Low throttle", Rate: 21.5},
		{ID: ModeCruise, Label: "Cruise", Rate: 47.2},
		{ID: ModeFull, Label: "Full throttle", Rate: 83.4},
	}
}

func kmarModes() []models.Mode {
	return []models.Mode{
		{ID: ModeIdle, Label: "Idle", Rate: 2.8},
		{ID: ModeCruise, Label: "Cruise", Rate: 11.6},
		{ID: ModeFull, Label: "Full throttle", Rate: 19.9},
	}
}

func truckModes() []models.Mode {
	return []models.Mode{
		{ID: ModeHighway, Label: "Highway", Rate: 0.245},
		{ID: ModeGrade5, Label: "5% grade", Rate: 0.27},
		{ID: ModeGrade10, Label: "10% grade", Rate: 0.294},
		{ID: ModeGrade15, Label: "15% grade", Rate: 0.318},
		{ID: ModeOffroad, Label: "4x4", Rate: 0.343},
	}
}

func carModes() []models.Mode {
	return []models.Mode{
		{ID: ModeHighway, Label: "Highway", Rate: 0.089},
	}
}

// NewProfileVehicle returns a vehicle preset with the rate table, unit,
// rounding and engine layout of a built-in profile.
func NewProfileVehicle(id, name, profile string) (models.Vehicle, error) {
	v := models.Vehicle{ID: id, Name: name, Profile: profile, Active: true}
	switch profile {
	case ProfileMamba:
		v.Category, v.Unit = models.CategoryBoat, models.UnitHours
		v.DualEngine, v.Rounding = true, models.RoundUp
		v.Modes = mambaModes()
	case ProfileKMAR:
		v.Category, v.Unit = models.CategoryBoat, models.UnitHours
		v.Rounding = models.RoundNearest
		v.Modes = kmarModes()
	case ProfileTruck:
		v.Category, v.Unit = models.CategoryCar, models.UnitDistanceKm
		v.Rounding = models.RoundNearest
		v.Modes = truckModes()
	case ProfileCar:
		v.Category, v.Unit = models.CategoryCar, models.UnitDistanceKm
		v.Rounding = models.RoundNearest
		v.Modes = carModes()
	default:
		return models.Vehicle{}, fmt.Errorf("unknown vehicle profile %q", profile)
	}
	return v, nil
}

// Catalog is an immutable set of vehicles keyed by id.
type Catalog struct {
	vehicles map[string]models.Vehicle
}

// DefaultCatalog is the fleet the logbook ships with.
func DefaultCatalog() *Catalog {
	c := &Catalog{vehicles: make(map[string]models.Vehicle)}
	for _, d := range []struct{ id, name, profile string }{
		{"mamba-1", "Mamba 1", ProfileMamba},
		{"kmar-1", "KMAR 1", ProfileKMAR},
		{"truck-1", "Survey truck", ProfileTruck},
		{"car-1", "Pool car", ProfileCar},
	} {
		v, _ := NewProfileVehicle(d.id, d.name, d.profile)
		c.vehicles[v.ID] = v
	}
	return c
}

type catalogEntry struct {
	ID         string          `yaml:"id"`
	Name       string          `yaml:"name"`
	Profile    string          `yaml:"profile"`
	Category   models.Category `yaml:"category"`
	Unit       models.Unit     `yaml:"unit"`
	DualEngine *bool           `yaml:"dual_engine"`
	Rounding   models.Rounding `yaml:"rounding"`
	Active     *bool           `yaml:"active"`
	Modes      []models.Mode   `yaml:"modes"`
}

type catalogFile struct {
	Vehicles []catalogEntry `yaml:"vehicles"`
}

// LoadCatalog reads vehicles from a YAML file. An entry naming a built-in
// profile starts from that profile; any modes, unit, rounding or engine
// layout given in the file override the preset.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vehicle catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML vehicle catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse vehicle catalog: %w", err)
	}
	c := &Catalog{vehicles: make(map[string]models.Vehicle, len(f.Vehicles))}
	for _, e := range f.Vehicles {
		v, err := e.vehicle()
		if err != nil {
			return nil, err
		}
		c.vehicles[v.ID] = v
	}
	return c, nil
}

func (e catalogEntry) vehicle() (models.Vehicle, error) {
	if e.ID == "" {
		return models.Vehicle{}, fmt.Errorf("vehicle catalog: entry without id")
	}
	v := models.Vehicle{ID: e.ID, Name: e.Name, Active: true, Rounding: models.RoundNearest}
	if e.Profile != "" {
		base, err := NewProfileVehicle(e.ID, e.Name, e.Profile)
		if err != nil {
			return models.Vehicle{}, fmt.Errorf("vehicle %s: %w", e.ID, err)
		}
		v = base
	}
	if e.Category != "" {
		v.Category = e.Category
	}
	if e.Unit != "" {
		v.Unit = e.Unit
	}
	if e.DualEngine != nil {
		v.DualEngine = *e.DualEngine
	}
	if e.Rounding != "" {
		v.Rounding = e.Rounding
	}
	if e.Active != nil {
		v.Active = *e.Active
	}
	if len(e.Modes) > 0 {
		v.Modes = e.Modes
	}
	if len(v.Modes) == 0 {
		return models.Vehicle{}, fmt.Errorf("vehicle %s: no modes", e.ID)
	}
	for _, m := range v.Modes {
		if m.Rate < 0 {
			return models.Vehicle{}, fmt.Errorf("vehicle %s: mode %s has negative rate", e.ID, m.ID)
		}
	}
	return v, nil
}

// Get returns the vehicle with the given id.
func (c *Catalog) Get(id string) (models.Vehicle, bool) {
	v, ok := c.vehicles[id]
	return v, ok
}

// Vehicles returns all vehicles ordered by id.
func (c *Catalog) Vehicles() []models.Vehicle {
	out := make([]models.Vehicle, 0, len(c.vehicles))
	for _, v := range c.vehicles {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
