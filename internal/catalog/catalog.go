// Package catalog holds the reference data store: an immutable, indexed
// snapshot of crops, vehicles, locations, markets and the precomputed
// location-to-market distance table.
//
// A Snapshot is built once at process start and never mutated afterwards,
// so it can be shared by concurrent readers without synchronization.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/yourorg/mandi-compare/internal/model"
	"github.com/yourorg/mandi-compare/internal/validation"
)

// ErrInvalidCatalog indicates the reference data failed validation
var ErrInvalidCatalog = errors.New("invalid catalog")

// Document is the on-disk schema of a catalog file.
type Document struct {
	Locations []model.Location `json:"locations" yaml:"locations"`
	Vehicles  []model.Vehicle  `json:"vehicles" yaml:"vehicles"`
	Crops     []model.Crop     `json:"crops" yaml:"crops"`
	Markets   []model.Market   `json:"markets" yaml:"markets"`

	// Distances is keyed by "<locationId>_<marketId>" in kilometers
	Distances map[string]float64 `json:"distances" yaml:"distances"`
}

// DistanceKey builds the composite key used in catalog files.
func DistanceKey(locationID, marketID string) string {
	return locationID + "_" + marketID
}

type pairKey struct {
	location string
	market   string
}

// Snapshot is the read-only reference data store.
type Snapshot struct {
	crops     []model.Crop
	vehicles  []model.Vehicle
	locations []model.Location
	markets   []model.Market

	cropIdx     map[string]int
	vehicleIdx  map[string]int
	locationIdx map[string]int
	marketIdx   map[string]int
	distances   map[pairKey]float64

	digest string
}

// Build validates a document and indexes it into a Snapshot.
func Build(doc Document) (*Snapshot, error) {
	s := &Snapshot{
		crops:       append([]model.Crop(nil), doc.Crops...),
		vehicles:    append([]model.Vehicle(nil), doc.Vehicles...),
		locations:   append([]model.Location(nil), doc.Locations...),
		markets:     append([]model.Market(nil), doc.Markets...),
		cropIdx:     make(map[string]int, len(doc.Crops)),
		vehicleIdx:  make(map[string]int, len(doc.Vehicles)),
		locationIdx: make(map[string]int, len(doc.Locations)),
		marketIdx:   make(map[string]int, len(doc.Markets)),
		distances:   make(map[pairKey]float64, len(doc.Distances)),
	}

	for i, c := range s.crops {
		if err := validation.Struct(c); err != nil {
			return nil, fmt.Errorf("%w: crop %d: %v", ErrInvalidCatalog, i, err)
		}
		if _, dup := s.cropIdx[c.Type]; dup {
			return nil, fmt.Errorf("%w: duplicate crop type %q", ErrInvalidCatalog, c.Type)
		}
		s.cropIdx[c.Type] = i
	}

	for i, v := range s.vehicles {
		if err := validation.Struct(v); err != nil {
			return nil, fmt.Errorf("%w: vehicle %d: %v", ErrInvalidCatalog, i, err)
		}
		if _, dup := s.vehicleIdx[v.Type]; dup {
			return nil, fmt.Errorf("%w: duplicate vehicle type %q", ErrInvalidCatalog, v.Type)
		}
		s.vehicleIdx[v.Type] = i
	}

	for i, l := range s.locations {
		if err := validation.Struct(l); err != nil {
			return nil, fmt.Errorf("%w: location %d: %v", ErrInvalidCatalog, i, err)
		}
		if _, dup := s.locationIdx[l.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate location id %q", ErrInvalidCatalog, l.ID)
		}
		s.locationIdx[l.ID] = i
	}

	for i, m := range s.markets {
		if err := validation.Struct(m); err != nil {
			return nil, fmt.Errorf("%w: market %d: %v", ErrInvalidCatalog, i, err)
		}
		if _, dup := s.marketIdx[m.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate market id %q", ErrInvalidCatalog, m.ID)
		}
		s.marketIdx[m.ID] = i
	}

	// Keys are resolved against known ids rather than split, since ids may
	// themselves contain underscores. A key that two pairs join to is
	// ambiguous and rejected.
	claimed := make(map[string]pairKey, len(doc.Distances))
	for _, l := range s.locations {
		for _, m := range s.markets {
			key := DistanceKey(l.ID, m.ID)
			d, ok := doc.Distances[key]
			if !ok {
				continue
			}
			pair := pairKey{location: l.ID, market: m.ID}
			if prev, dup := claimed[key]; dup {
				return nil, fmt.Errorf("%w: distance key %q is ambiguous between %s/%s and %s/%s",
					ErrInvalidCatalog, key, prev.location, prev.market, pair.location, pair.market)
			}
			if d < 0 {
				return nil, fmt.Errorf("%w: negative distance %v for %s", ErrInvalidCatalog, d, key)
			}
			claimed[key] = pair
			s.distances[pair] = d
		}
	}
	for key := range doc.Distances {
		if _, ok := claimed[key]; !ok {
			return nil, fmt.Errorf("%w: distance key %q does not match a location and market", ErrInvalidCatalog, key)
		}
	}

	canonical, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode catalog: %w", err)
	}
	s.digest = crypto.Keccak256Hash(canonical).Hex()

	return s, nil
}

// Digest returns the keccak256 hash of the canonical catalog encoding.
// Two snapshots with the same digest produce identical comparisons.
func (s *Snapshot) Digest() string {
	return s.digest
}

// Crops returns all crops in catalog order.
func (s *Snapshot) Crops() []model.Crop {
	return append([]model.Crop(nil), s.crops...)
}

// Vehicles returns all vehicles in catalog order.
func (s *Snapshot) Vehicles() []model.Vehicle {
	return append([]model.Vehicle(nil), s.vehicles...)
}

// Locations returns all locations in catalog order.
func (s *Snapshot) Locations() []model.Location {
	return append([]model.Location(nil), s.locations...)
}

// Markets returns all markets in catalog order. The price and trend maps
// are shared with the snapshot and must not be modified.
func (s *Snapshot) Markets() []model.Market {
	return append([]model.Market(nil), s.markets...)
}

// Crop looks up a crop by type.
func (s *Snapshot) Crop(cropType string) (model.Crop, bool) {
	i, ok := s.cropIdx[cropType]
	if !ok {
		return model.Crop{}, false
	}
	return s.crops[i], true
}

// Vehicle looks up a vehicle by type.
func (s *Snapshot) Vehicle(vehicleType string) (model.Vehicle, bool) {
	i, ok := s.vehicleIdx[vehicleType]
	if !ok {
		return model.Vehicle{}, false
	}
	return s.vehicles[i], true
}

// Location looks up a location by id.
func (s *Snapshot) Location(id string) (model.Location, bool) {
	i, ok := s.locationIdx[id]
	if !ok {
		return model.Location{}, false
	}
	return s.locations[i], true
}

// Market looks up a market by id.
func (s *Snapshot) Market(id string) (model.Market, bool) {
	i, ok := s.marketIdx[id]
	if !ok {
		return model.Market{}, false
	}
	return s.markets[i], true
}

// Distance returns the precomputed distance in km between a location and a
// market. The boolean is false when no entry exists; a missing entry means
// unknown, not zero.
func (s *Snapshot) Distance(locationID, marketID string) (float64, bool) {
	d, ok := s.distances[pairKey{location: locationID, market: marketID}]
	return d, ok
}

// MarketsForLocation returns the markets reachable from a location, i.e.
// those with a distance entry, in catalog order.
func (s *Snapshot) MarketsForLocation(locationID string) []model.Market {
	var reachable []model.Market
	for _, m := range s.markets {
		if _, ok := s.Distance(locationID, m.ID); ok {
			reachable = append(reachable, m)
		}
	}
	return reachable
}
