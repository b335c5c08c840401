// Package logbook runs the road list read path and the chain repair write
// path on top of the pure ledger package: it loads chains from the store,
// serializes repairs per vehicle, persists the rewritten documents and
// announces each repair.
package logbook

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-logbook/internal/db"
	"github.com/ukydev/fleet-logbook/internal/events"
	"github.com/ukydev/fleet-logbook/internal/ledger"
	"github.com/ukydev/fleet-logbook/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrVehicleMismatch = errors.New("road list belongs to another vehicle")
	ErrInvalidPeriod   = errors.New("road list starts after it ends")
)

const publishTimeout = 5 * time.Second

// Options configure a Service. Zero values are usable.
type Options struct {
	CacheTTL  time.Duration
	Metrics   *Metrics
	Publisher events.Publisher
}

// Service is safe for concurrent use.
type Service struct {
	roadLists db.RoadListStore
	vehicles  db.VehicleCollection
	publisher events.Publisher
	metrics   *Metrics
	chains    *cache.Cache

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	// gens counts chain writes per vehicle. A cache fill is dropped when a
	// write committed after the fill started reading the store.
	gensMu sync.Mutex
	gens   map[string]uint64
}

// NewService creates a service over the given stores.
func NewService(roadLists db.RoadListStore, vehicles db.VehicleCollection, opts Options) *Service {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{
		roadLists: roadLists,
		vehicles:  vehicles,
		publisher: publisher,
		metrics:   opts.Metrics,
		chains:    cache.New(ttl, 2*ttl),
		locks:     make(map[string]*sync.Mutex),
		gens:      make(map[string]uint64),
	}
}

// Result describes a completed write.
type Result struct {
	// Document is the upserted road list, calculated. Nil for deletes and rebuilds.
	Document *ledger.CalculatedDocument `json:"document,omitempty"`
	// Rewritten lists the ids persisted by the repair, in chain order.
	Rewritten []string `json:"rewritten"`
}

// NextStart is the pre-fill for a new road list.
type NextStart struct {
	StartFuel   float64      `json:"startFuel"`
	StartHours  models.Usage `json:"startHours"`
	HasPrevious bool         `json:"hasPrevious"`
}

// Vehicles returns all vehicles.
func (s *Service) Vehicles(ctx context.Context) ([]models.Vehicle, error) {
	return s.vehicles.FindVehicles(ctx)
}

// Vehicle returns one vehicle.
func (s *Service) Vehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	return s.vehicles.FindVehicleByID(ctx, id)
}

// SaveVehicle stores v and drops its cached chain. Stored start balances are
// left alone; a rate change shows up in Verify until the chain is rebuilt.
func (s *Service) SaveVehicle(ctx context.Context, v models.Vehicle) error {
	if err := db.SaveVehicle(ctx, s.vehicles, v); err != nil {
		return err
	}
	s.invalidate(v.ID)
	return nil
}

// Chain returns a vehicle's calculated road lists in end-date order.
func (s *Service) Chain(ctx context.Context, vehicleID string) ([]ledger.CalculatedDocument, error) {
	if cached, ok := s.chains.Get(vehicleID); ok {
		s.metrics.recordCache(true)
		return cached.([]ledger.CalculatedDocument), nil
	}
	s.metrics.recordCache(false)

	gen := s.generation(vehicleID)
	v, err := s.vehicles.FindVehicleByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	docs, err := s.roadLists.FindRoadLists(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	chain := ledger.CalculateChain(v, docs)

	s.gensMu.Lock()
	if s.gens[vehicleID] == gen {
		s.chains.SetDefault(vehicleID, chain)
	}
	s.gensMu.Unlock()
	return chain, nil
}

// Document returns one calculated road list.
func (s *Service) Document(ctx context.Context, id string) (*ledger.CalculatedDocument, error) {
	doc, err := s.roadLists.FindRoadListByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v, err := s.vehicles.FindVehicleByID(ctx, doc.VehicleID)
	if err != nil {
		return nil, err
	}
	calc := ledger.CalculateDocument(*doc, v)
	return &calc, nil
}

// Upsert stores doc, creating it when it has no id, and repairs the rest of
// its vehicle's chain.
func (s *Service) Upsert(ctx context.Context, doc models.RoadList) (Result, error) {
	if !doc.Start.IsZero() && !doc.End.IsZero() && doc.Start.After(doc.End) {
		return Result{}, ErrInvalidPeriod
	}
	v, err := s.vehicles.FindVehicleByID(ctx, doc.VehicleID)
	if err != nil {
		return Result{}, err
	}

	now := time.Now().UTC()
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
		doc.CreatedAt = now
	} else {
		existing, err := s.roadLists.FindRoadListByID(ctx, doc.ID.Hex())
		switch {
		case err == nil:
			if existing.VehicleID != doc.VehicleID {
				return Result{}, fmt.Errorf("%w: %s belongs to %s", ErrVehicleMismatch, doc.ID.Hex(), existing.VehicleID)
			}
			doc.CreatedAt = existing.CreatedAt
		case errors.Is(err, db.ErrNotFound):
			doc.CreatedAt = now
		default:
			return Result{}, err
		}
	}

	var repair ledger.Repair
	err = s.repairChain(ctx, events.OpUpsert, v.ID, doc.ID.Hex(), func(chain []models.RoadList) ([]models.RoadList, error) {
		repair = ledger.Upsert(v, chain, doc)
		return repair.Changed, nil
	}, nil)
	if err != nil {
		return Result{}, err
	}

	calc := ledger.CalculateDocument(repair.Chain[repair.Position], v)
	return Result{Document: &calc, Rewritten: ids(repair.Changed)}, nil
}

// Delete removes a road list and repairs the rest of its vehicle's chain.
func (s *Service) Delete(ctx context.Context, id string) (Result, error) {
	doc, err := s.roadLists.FindRoadListByID(ctx, id)
	if err != nil {
		return Result{}, err
	}
	v, err := s.vehicles.FindVehicleByID(ctx, doc.VehicleID)
	if err != nil {
		return Result{}, err
	}

	var repair ledger.Repair
	err = s.repairChain(ctx, events.OpDelete, v.ID, id, func(chain []models.RoadList) ([]models.RoadList, error) {
		r, ok := ledger.Delete(v, chain, doc.ID)
		if !ok {
			return nil, fmt.Errorf("roadlist %s: %w", id, db.ErrNotFound)
		}
		repair = r
		return r.Changed, nil
	}, func(ctx context.Context) error {
		return s.roadLists.DeleteRoadList(ctx, doc.ID)
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Rewritten: ids(repair.Changed)}, nil
}

// Rebuild re-derives every start balance after the first road list of a
// vehicle and persists the ones that differ.
func (s *Service) Rebuild(ctx context.Context, vehicleID string) (Result, error) {
	v, err := s.vehicles.FindVehicleByID(ctx, vehicleID)
	if err != nil {
		return Result{}, err
	}
	var repair ledger.Repair
	err = s.repairChain(ctx, events.OpRebuild, v.ID, "", func(chain []models.RoadList) ([]models.RoadList, error) {
		repair = ledger.Rebuild(v, chain)
		return repair.Changed, nil
	}, nil)
	if err != nil {
		return Result{}, err
	}
	return Result{Rewritten: ids(repair.Changed)}, nil
}

// Verify reports the broken links of a vehicle's chain.
func (s *Service) Verify(ctx context.Context, vehicleID string) ([]ledger.Discrepancy, error) {
	v, err := s.vehicles.FindVehicleByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	docs, err := s.roadLists.FindRoadLists(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	found := ledger.Verify(v, docs)
	if found == nil {
		found = []ledger.Discrepancy{}
	}
	s.metrics.recordDiscrepancies(vehicleID, len(found))
	if len(found) > 0 {
		log.WithFields(log.Fields{"vehicle_id": vehicleID, "discrepancies": len(found)}).Warn("road list chain is inconsistent")
	}
	return found, nil
}

// NextStart returns the balances a new road list of the vehicle starts from.
func (s *Service) NextStart(ctx context.Context, vehicleID string) (NextStart, error) {
	v, err := s.vehicles.FindVehicleByID(ctx, vehicleID)
	if err != nil {
		return NextStart{}, err
	}
	docs, err := s.roadLists.FindRoadLists(ctx, vehicleID)
	if err != nil {
		return NextStart{}, err
	}
	fuel, hours, ok := ledger.NextStart(v, docs)
	return NextStart{StartFuel: fuel, StartHours: hours, HasPrevious: ok}, nil
}

// repairChain runs one load-repair-persist cycle under the vehicle's lock and
// inside a store transaction. repair computes the documents to write from the
// freshly loaded chain; before, when set, runs first inside the transaction.
func (s *Service) repairChain(
	ctx context.Context,
	op events.Operation,
	vehicleID, documentID string,
	repair func(chain []models.RoadList) ([]models.RoadList, error),
	before func(ctx context.Context) error,
) error {
	start := time.Now()
	unlock := s.lock(vehicleID)
	defer unlock()

	var written []models.RoadList
	err := s.roadLists.WithChain(ctx, vehicleID, func(ctx context.Context) error {
		chain, err := s.roadLists.FindRoadLists(ctx, vehicleID)
		if err != nil {
			return err
		}
		changed, err := repair(chain)
		if err != nil {
			return err
		}
		if before != nil {
			if err := before(ctx); err != nil {
				return err
			}
		}
		for _, d := range changed {
			if err := s.roadLists.PutRoadList(ctx, d); err != nil {
				return err
			}
		}
		written = changed
		return nil
	})
	s.invalidate(vehicleID)
	s.metrics.recordRepair(string(op), err, len(written), time.Since(start))

	fields := log.Fields{"vehicle_id": vehicleID, "operation": op, "document_id": documentID}
	if err != nil {
		log.WithError(err).WithFields(fields).Error("chain repair failed")
		return err
	}
	fields["rewritten"] = len(written)
	log.WithFields(fields).Info("chain repaired")

	s.publish(ctx, events.NewChainRepaired(vehicleID, op, documentID, ids(written)))
	return nil
}

// publish announces a committed repair. Failures are logged only; the
// repair itself already succeeded.
func (s *Service) publish(ctx context.Context, ev events.ChainRepaired) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.metrics.recordPublishFailure()
		log.WithError(err).WithFields(log.Fields{"vehicle_id": ev.VehicleID, "event_id": ev.ID}).Warn("failed to publish chain event")
	}
}

func (s *Service) generation(vehicleID string) uint64 {
	s.gensMu.Lock()
	defer s.gensMu.Unlock()
	return s.gens[vehicleID]
}

// invalidate drops the cached chain after a write has committed.
func (s *Service) invalidate(vehicleID string) {
	s.gensMu.Lock()
	s.gens[vehicleID]++
	s.chains.Delete(vehicleID)
	s.gensMu.Unlock()
}

// lock serializes repairs of one vehicle's chain within this process.
func (s *Service) lock(vehicleID string) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[vehicleID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[vehicleID] = mu
	}
	s.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

func ids(docs []models.RoadList) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID.Hex()
	}
	return out
}
