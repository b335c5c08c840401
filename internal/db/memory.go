package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ukydev/fleet-logbook/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore keeps road lists, vehicles and users in process memory. It
// serves tests and runs without MongoDB. WithChain calls are serialized and
// roll back every road list write when fn fails.
type MemoryStore struct {
	mu        sync.RWMutex
	roadLists map[primitive.ObjectID]models.RoadList
	vehicles  map[string]models.Vehicle
	users     map[primitive.ObjectID]models.User
	versions  map[string]int64

	chainMu sync.Mutex
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		roadLists: make(map[primitive.ObjectID]models.RoadList),
		vehicles:  make(map[string]models.Vehicle),
		users:     make(map[primitive.ObjectID]models.User),
		versions:  make(map[string]int64),
	}
}

// FindRoadLists returns copies of a vehicle's road lists in end-date order.
func (s *MemoryStore) FindRoadLists(_ context.Context, vehicleID string) ([]models.RoadList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := []models.RoadList{}
	for _, d := range s.roadLists {
		if d.VehicleID == vehicleID {
			docs = append(docs, cloneRoadList(d))
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].End.Equal(docs[j].End) {
			return docs[i].End.Before(docs[j].End)
		}
		return docs[i].ID.Hex() < docs[j].ID.Hex()
	})
	return docs, nil
}

// FindRoadListByID returns a copy of one road list.
func (s *MemoryStore) FindRoadListByID(_ context.Context, id string) (*models.RoadList, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.roadLists[oid]
	if !ok {
		return nil, fmt.Errorf("roadlist %s: %w", id, ErrNotFound)
	}
	d = cloneRoadList(d)
	return &d, nil
}

// PutRoadList inserts or replaces doc.
func (s *MemoryStore) PutRoadList(_ context.Context, doc models.RoadList) error {
	if doc.ID.IsZero() {
		return fmt.Errorf("%w: empty roadlist id", ErrInvalidID)
	}
	doc.UpdatedAt = time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roadLists[doc.ID] = cloneRoadList(doc)
	return nil
}

// DeleteRoadList removes one road list.
func (s *MemoryStore) DeleteRoadList(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roadLists[id]; !ok {
		return fmt.Errorf("roadlist %s: %w", id.Hex(), ErrNotFound)
	}
	delete(s.roadLists, id)
	return nil
}

// WithChain runs fn alone and restores the road lists when it fails.
func (s *MemoryStore) WithChain(ctx context.Context, vehicleID string, fn func(ctx context.Context) error) error {
	s.chainMu.Lock()
	defer s.chainMu.Unlock()

	s.mu.Lock()
	snapshot := make(map[primitive.ObjectID]models.RoadList, len(s.roadLists))
	for id, d := range s.roadLists {
		snapshot[id] = d
	}
	s.versions[vehicleID]++
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.roadLists = snapshot
		s.versions[vehicleID]--
		s.mu.Unlock()
		return err
	}
	return nil
}

// ChainVersion returns how many chain writes of vehicleID have committed.
func (s *MemoryStore) ChainVersion(vehicleID string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versions[vehicleID]
}

// FindVehicles returns every vehicle ordered by id.
func (s *MemoryStore) FindVehicles(_ context.Context) ([]models.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vehicles := make([]models.Vehicle, 0, len(s.vehicles))
	for _, v := range s.vehicles {
		vehicles = append(vehicles, cloneVehicle(v))
	}
	sort.Slice(vehicles, func(i, j int) bool { return vehicles[i].ID < vehicles[j].ID })
	return vehicles, nil
}

// FindVehicleByID returns a copy of one vehicle.
func (s *MemoryStore) FindVehicleByID(_ context.Context, id string) (*models.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vehicles[id]
	if !ok {
		return nil, fmt.Errorf("vehicle %s: %w", id, ErrNotFound)
	}
	v = cloneVehicle(v)
	return &v, nil
}

// UpsertVehicle inserts or replaces a vehicle.
func (s *MemoryStore) UpsertVehicle(_ context.Context, vehicle models.Vehicle) error {
	if vehicle.ID == "" {
		return fmt.Errorf("%w: empty vehicle id", ErrInvalidID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles[vehicle.ID] = cloneVehicle(vehicle)
	return nil
}

// InsertUser adds an active user. Usernames are unique.
func (s *MemoryStore) InsertUser(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == user.Username {
			return fmt.Errorf("user %s already exists", user.Username)
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	user.IsActive = true
	s.users[user.ID] = user
	return nil
}

// FindUserByID returns one user by hex id.
func (s *MemoryStore) FindUserByID(_ context.Context, id string) (*models.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[oid]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return &u, nil
}

// FindUserByUsername returns one user by name.
func (s *MemoryStore) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", username, ErrNotFound)
}

// UpdateUser replaces an existing user.
func (s *MemoryStore) UpdateUser(_ context.Context, id string, user models.User) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[oid]; !ok {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	user.ID = oid
	user.UpdatedAt = time.Now()
	s.users[oid] = user
	return nil
}

// UpdateLastLogin stamps the user's last login with the current time.
func (s *MemoryStore) UpdateLastLogin(_ context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[oid]
	if !ok {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	now := time.Now()
	u.LastLogin = &now
	u.UpdatedAt = now
	s.users[oid] = u
	return nil
}

// CountUsers returns the number of stored users.
func (s *MemoryStore) CountUsers(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}

func cloneRoadList(d models.RoadList) models.RoadList {
	if d.Itineraries == nil {
		return d
	}
	rows := make([]models.Itinerary, len(d.Itineraries))
	for i, it := range d.Itineraries {
		if it.Usage != nil {
			usage := make(map[string]*float64, len(it.Usage))
			for k, v := range it.Usage {
				if v != nil {
					usage[k] = models.Float(*v)
				} else {
					usage[k] = nil
				}
			}
			it.Usage = usage
		}
		rows[i] = it
	}
	d.Itineraries = rows
	return d
}

func cloneVehicle(v models.Vehicle) models.Vehicle {
	if v.Modes != nil {
		v.Modes = append([]models.Mode(nil), v.Modes...)
	}
	return v
}
