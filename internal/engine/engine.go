// Package engine orchestrates a profitability comparison: it validates the
// trip request, evaluates every catalog market, ranks the eligible ones and
// derives the insights returned to the caller.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/yourorg/mandi-compare/internal/catalog"
	"github.com/yourorg/mandi-compare/internal/evaluate"
	"github.com/yourorg/mandi-compare/internal/insight"
	"github.com/yourorg/mandi-compare/internal/model"
	"github.com/yourorg/mandi-compare/internal/otel"
	"github.com/yourorg/mandi-compare/internal/ranking"
	"github.com/yourorg/mandi-compare/internal/units"
	"github.com/yourorg/mandi-compare/internal/validation"
	"go.opentelemetry.io/otel/attribute"
)

// Engine runs comparisons against an immutable catalog snapshot. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	snapshot    *catalog.Snapshot
	thresholds  insight.Thresholds
	parallelism int
	observer    func(evaluate.Outcome)
	logFields   logrus.Fields
}

// Option configures an Engine
type Option func(*Engine)

// WithThresholds overrides the impact thresholds
func WithThresholds(th insight.Thresholds) Option {
	return func(e *Engine) {
		e.thresholds = th
	}
}

// WithParallelism evaluates markets on n workers. Values below 2 evaluate
// sequentially.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		e.parallelism = n
	}
}

// WithIneligibleObserver registers a callback invoked once per market left out
// of a comparison, in catalog order.
func WithIneligibleObserver(fn func(evaluate.Outcome)) Option {
	return func(e *Engine) {
		e.observer = fn
	}
}

// WithLogFields adds fields to every log entry written by the engine
func WithLogFields(fields logrus.Fields) Option {
	return func(e *Engine) {
		for k, v := range fields {
			e.logFields[k] = v
		}
	}
}

// New creates an engine over the given snapshot
func New(snapshot *catalog.Snapshot, opts ...Option) *Engine {
	e := &Engine{
		snapshot:   snapshot,
		thresholds: insight.DefaultThresholds(),
		logFields:  logrus.Fields{"component": "engine"},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Snapshot returns the catalog the engine compares against
func (e *Engine) Snapshot() *catalog.Snapshot {
	return e.snapshot
}

// EvaluateMarkets compares every market in the catalog for the given trip and
// returns them ranked by net profit. Invalid requests fail with an error
// wrapping model.ErrInvalidInput. A request for which no market has both a
// price and a distance is not an error: the result is empty and
// NoEligibleMarkets is set.
func (e *Engine) EvaluateMarkets(ctx context.Context, req model.TripRequest) (*model.ProfitabilityResult, error) {
	ctx, span := otel.Tracer().Start(ctx, "engine.EvaluateMarkets")
	defer span.End()

	span.SetAttributes(
		attribute.String("trip.crop", req.Crop),
		attribute.String("trip.vehicle", req.Vehicle),
		attribute.String("trip.location", req.Location),
		attribute.String("trip.unit", req.Unit),
	)

	result, err := e.evaluate(ctx, req)
	if err != nil {
		otel.RecordError(ctx, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("result.eligible", len(result.Markets)),
		attribute.Int("result.total", result.TotalMarketsCompared),
	)
	return result, nil
}

func (e *Engine) evaluate(ctx context.Context, req model.TripRequest) (*model.ProfitabilityResult, error) {
	if err := validation.ValidateTrip(req); err != nil {
		return nil, err
	}

	trip, crop, location, vehicle, err := e.resolve(req)
	if err != nil {
		return nil, err
	}

	markets := e.snapshot.Markets()
	outcomes, err := e.evaluateAll(ctx, trip, markets)
	if err != nil {
		return nil, err
	}

	eligible := make([]model.EvaluatedMarket, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Eligible() {
			eligible = append(eligible, *o.Market)
			continue
		}
		e.reportIneligible(req, o)
	}

	ranked := ranking.ByProfit(eligible)
	ranking.Rate(ranked)
	best := ranking.Best(ranked)
	nearest := ranking.Nearest(ranked)
	insights := insight.Generate(ranked, best, nearest, e.thresholds)

	logrus.WithFields(e.logFields).WithFields(logrus.Fields{
		"crop":     crop.Type,
		"location": location.ID,
		"vehicle":  vehicle.Type,
		"quintals": trip.Quintals,
		"eligible": len(ranked),
		"markets":  len(markets),
	}).Debug("Comparison complete")

	return &model.ProfitabilityResult{
		Markets:              ranked,
		BestMarket:           best,
		NearestMarket:        nearest,
		PotentialSavings:     insights.PotentialSavings,
		TotalMarketsCompared: len(ranked),
		NoEligibleMarkets:    len(ranked) == 0,
		Crop:                 crop,
		Location:             location,
		Vehicle:              vehicle,
		QuantityInQuintals:   trip.Quintals,
		Insights:             insights,
	}, nil
}

// resolve looks up the catalog entities named by the request and normalizes
// the quantity.
func (e *Engine) resolve(req model.TripRequest) (evaluate.Trip, model.Crop, model.Location, model.Vehicle, error) {
	var trip evaluate.Trip

	crop, ok := e.snapshot.Crop(strings.TrimSpace(req.Crop))
	if !ok {
		return trip, model.Crop{}, model.Location{}, model.Vehicle{},
			fmt.Errorf("%w: unknown crop %q", model.ErrInvalidInput, req.Crop)
	}

	vehicle, ok := e.snapshot.Vehicle(strings.TrimSpace(req.Vehicle))
	if !ok {
		return trip, model.Crop{}, model.Location{}, model.Vehicle{},
			fmt.Errorf("%w: unknown vehicle %q", model.ErrInvalidInput, req.Vehicle)
	}

	location, ok := e.snapshot.Location(strings.TrimSpace(req.Location))
	if !ok {
		return trip, model.Crop{}, model.Location{}, model.Vehicle{},
			fmt.Errorf("%w: unknown location %q", model.ErrInvalidInput, req.Location)
	}

	quintals, err := units.Normalize(req.Quantity, req.Unit)
	if err != nil {
		return trip, model.Crop{}, model.Location{}, model.Vehicle{}, err
	}

	trip = evaluate.Trip{
		Crop:       crop,
		Vehicle:    vehicle,
		LocationID: location.ID,
		Quintals:   quintals,
		Distance:   e.snapshot.Distance,
	}
	return trip, crop, location, vehicle, nil
}

// evaluateAll evaluates every market and returns the outcomes in catalog
// order regardless of parallelism.
func (e *Engine) evaluateAll(ctx context.Context, trip evaluate.Trip, markets []model.Market) ([]evaluate.Outcome, error) {
	outcomes := make([]evaluate.Outcome, len(markets))

	workers := e.parallelism
	if workers > len(markets) {
		workers = len(markets)
	}

	if workers < 2 {
		for i, m := range markets {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			outcomes[i] = evaluate.Evaluate(trip, m)
		}
		return outcomes, nil
	}

	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = evaluate.Evaluate(trip, markets[i])
			}
		}()
	}

feed:
	for i := range markets {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (e *Engine) reportIneligible(req model.TripRequest, o evaluate.Outcome) {
	logrus.WithFields(e.logFields).WithFields(logrus.Fields{
		"market":   o.MarketID,
		"crop":     req.Crop,
		"location": req.Location,
		"reason":   o.Reason.String(),
	}).Debug("Market excluded from comparison")

	if e.observer != nil {
		e.observer(o)
	}
}
