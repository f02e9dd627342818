package api

import (
	"errors"
	"fmt"

	"github.com/hungkimanh/gatest/internal/model"
)

const (
	maxPopulation = 10000
	maxVehicles   = 1000
	// maxNodes keeps the N×N distance matrix of one request bounded.
	maxNodes      = 5000
)

func validateSolveRequest(req *model.SolveRequest) error {
	if req.Instance == nil {
		return errors.New("instance is required")
	}
	if len(req.Instance.Nodes) < 2 {
		return fmt.Errorf("instance needs at least 2 nodes (got %d)", len(req.Instance.Nodes))
	}
	if len(req.Instance.Nodes) > maxNodes {
		return fmt.Errorf("instance has %d nodes, limit is %d", len(req.Instance.Nodes), maxNodes)
	}
	if req.Vehicles < 0 || req.Vehicles > maxVehicles {
		return fmt.Errorf("vehicles must be in 0..%d", maxVehicles)
	}
	if req.Population < 0 || req.Population > maxPopulation {
		return fmt.Errorf("population must be in 0..%d", maxPopulation)
	}
	if req.Generations < 0 {
		return fmt.Errorf("generations must be >= 0")
	}
	return nil
}
