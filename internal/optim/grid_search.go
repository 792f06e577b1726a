// Package optim searches physical parameters for the run that minimizes a
// diagnostic.
package optim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/fluidsim/internal/experiment"
	"github.com/san-kum/fluidsim/internal/physics"
)

// Point is one evaluated parameter combination.
type Point struct {
	Values map[string]float64
	Score  float64
	Err    error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

// NewGridSearch tries every combination of ranges, one range per parameter
// name. Names are physics.ParamNames entries.
func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d parameters but %d ranges", len(params), len(ranges))
	}
	probe := physics.DefaultParams()
	for i, name := range params {
		if err := probe.Set(name, 0); err != nil {
			return nil, err
		}
		if len(ranges[i]) == 0 {
			return nil, fmt.Errorf("optim: empty range for %s", name)
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Size is the number of combinations Search evaluates.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search runs one experiment per combination and scores it by the named
// metric. Failed or non-finite runs are kept in the returned points but never
// chosen as best. The search stops early when ctx is canceled.
func (g *GridSearch) Search(
	ctx context.Context,
	base physics.Params,
	build func(p physics.Params) (*experiment.Experiment, error),
	metricName string,
) (*Point, []Point, error) {
	points := make([]Point, 0, g.Size())
	bestIdx := -1

	err := g.searchRecursive(ctx, 0, base, make(map[string]float64), func(p physics.Params, values map[string]float64) error {
		pt := Point{Values: values}
		pt.Score, pt.Err = evaluate(ctx, p, build, metricName)
		points = append(points, pt)

		if pt.Err == nil && !math.IsNaN(pt.Score) && !math.IsInf(pt.Score, 0) {
			if bestIdx < 0 || pt.Score < points[bestIdx].Score {
				bestIdx = len(points) - 1
			}
		}
		return ctx.Err()
	})

	if bestIdx < 0 {
		return nil, points, err
	}
	best := points[bestIdx]
	return &best, points, err
}

func evaluate(ctx context.Context, p physics.Params, build func(physics.Params) (*experiment.Experiment, error), metricName string) (float64, error) {
	exp, err := build(p)
	if err != nil {
		return math.Inf(1), err
	}
	outcome, err := exp.Run(ctx)
	if err != nil {
		return math.Inf(1), err
	}
	if len(outcome.Result.Errors) > 0 {
		return math.Inf(1), outcome.Result.Errors[0]
	}
	val, ok := outcome.Result.Metrics[metricName]
	if !ok {
		return math.Inf(1), fmt.Errorf("optim: metric %s not observed", metricName)
	}
	return val, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	params physics.Params,
	current map[string]float64,
	visit func(physics.Params, map[string]float64) error,
) error {
	if depth == len(g.paramNames) {
		return visit(params, current)
	}

	name := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		next := make(map[string]float64, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[name] = val

		p := params
		if err := p.Set(name, val); err != nil {
			return err
		}
		if err := g.searchRecursive(ctx, depth+1, p, next, visit); err != nil {
			return err
		}
	}
	return nil
}
