// Package tsplib reads CVRP instances in the TSPLIB text format.
package tsplib

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/hungkimanh/gatest/internal/cvrp"
)

// ErrUnexpectedEOF is returned when a section ends before all of its entries.
var ErrUnexpectedEOF = errors.New("tsplib: unexpected end of file")

// MaxDimension bounds DIMENSION so a header alone cannot force huge
// allocations.
const MaxDimension = 100000

var (
	trucksHint  = regexp.MustCompile(`(?i)(?:no of trucks|trucks)\s*:\s*(\d+)`)
	optimalHint = regexp.MustCompile(`(?i)(?:optimal|best)\s+value\s*:\s*([0-9]+(?:\.[0-9]+)?)`)
	nameTrucks  = regexp.MustCompile(`(?i)-k(\d+)\b`)
)

// Load opens path and reads one instance from it.
func Load(path string) (*cvrp.Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tsplib: open %q: %w", path, err)
	}
	defer f.Close()

	inst, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("tsplib: read %q: %w", path, err)
	}
	return inst, nil
}

type section int

const (
	header section = iota
	coords
	demands
	depots
	done
)

// Read parses a TSPLIB CVRP document. NODE_COORD_SECTION and
// DEMAND_SECTION must list DIMENSION entries each and DEPOT_SECTION must
// name at least one depot; only the first depot is used.
func Read(r io.Reader) (*cvrp.Instance, error) {
	inst := &cvrp.Instance{}
	state := header
	var seenCoords, seenDemand []bool
	depot := 0

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() && state != done {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		upper := strings.ToUpper(text)
		switch {
		case strings.HasPrefix(upper, "NODE_COORD_SECTION"):
			if err := allocate(inst); err != nil {
				return nil, err
			}
			seenCoords = make([]bool, inst.N+1)
			state = coords
			continue
		case strings.HasPrefix(upper, "DEMAND_SECTION"):
			if err := allocate(inst); err != nil {
				return nil, err
			}
			seenDemand = make([]bool, inst.N+1)
			state = demands
			continue
		case strings.HasPrefix(upper, "DEPOT_SECTION"):
			state = depots
			continue
		case upper == "EOF":
			state = done
			continue
		}

		switch state {
		case header:
			if err := parseHeader(inst, text); err != nil {
				return nil, fmt.Errorf("tsplib: line %d: %w", line, err)
			}
		case coords:
			fields := strings.Fields(text)
			if len(fields) < 3 {
				return nil, fmt.Errorf("tsplib: line %d: coordinate needs id x y, got %q", line, text)
			}
			id, err := nodeID(fields[0], inst.N)
			if err != nil {
				return nil, fmt.Errorf("tsplib: line %d: %w", line, err)
			}
			x, errX := strconv.ParseFloat(fields[1], 64)
			y, errY := strconv.ParseFloat(fields[2], 64)
			if err := errors.Join(errX, errY); err != nil {
				return nil, fmt.Errorf("tsplib: line %d: coordinate: %w", line, err)
			}
			if seenCoords[id] {
				return nil, fmt.Errorf("tsplib: line %d: duplicate coordinate for node %d", line, id)
			}
			inst.Coords[id] = cvrp.Point{X: x, Y: y}
			seenCoords[id] = true
		case demands:
			fields := strings.Fields(text)
			if len(fields) < 2 {
				return nil, fmt.Errorf("tsplib: line %d: demand needs id value, got %q", line, text)
			}
			id, err := nodeID(fields[0], inst.N)
			if err != nil {
				return nil, fmt.Errorf("tsplib: line %d: %w", line, err)
			}
			d, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("tsplib: line %d: demand: %w", line, err)
			}
			if seenDemand[id] {
				return nil, fmt.Errorf("tsplib: line %d: duplicate demand for node %d", line, id)
			}
			inst.Demand[id] = d
			seenDemand[id] = true
		case depots:
			v, err := strconv.Atoi(strings.Fields(text)[0])
			if err != nil {
				return nil, fmt.Errorf("tsplib: line %d: depot: %w", line, err)
			}
			if v == -1 {
				state = done
				continue
			}
			if depot == 0 {
				depot = v
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("tsplib: scan: %w", err)
	}

	if inst.N == 0 {
		return nil, fmt.Errorf("%w: DIMENSION not found", ErrUnexpectedEOF)
	}
	if id := missing(seenCoords, inst.N); id > 0 {
		return nil, fmt.Errorf("%w: no coordinate for node %d", ErrUnexpectedEOF, id)
	}
	if id := missing(seenDemand, inst.N); id > 0 {
		return nil, fmt.Errorf("%w: no demand for node %d", ErrUnexpectedEOF, id)
	}
	if depot == 0 {
		return nil, fmt.Errorf("%w: no depot", ErrUnexpectedEOF)
	}
	inst.Depot = depot
	if inst.Vehicles == 0 {
		if m := nameTrucks.FindStringSubmatch(inst.Name); m != nil {
			inst.Vehicles, _ = strconv.Atoi(m[1])
		}
	}
	if err := inst.Validate(); err != nil {
		return nil, fmt.Errorf("tsplib: %w", err)
	}
	return inst, nil
}

func parseHeader(inst *cvrp.Instance, text string) error {
	key, value, ok := strings.Cut(text, ":")
	if !ok {
		return nil
	}
	key = strings.ToUpper(strings.TrimSpace(key))
	value = strings.TrimSpace(value)
	switch key {
	case "NAME":
		inst.Name = value
	case "COMMENT":
		if m := trucksHint.FindStringSubmatch(value); m != nil {
			inst.Vehicles, _ = strconv.Atoi(m[1])
		}
		if m := optimalHint.FindStringSubmatch(value); m != nil {
			inst.Optimal, _ = strconv.ParseFloat(m[1], 64)
		}
	case "DIMENSION":
		n, err := strconv.Atoi(value)
		if err != nil || n < 2 {
			return fmt.Errorf("bad DIMENSION %q", value)
		}
		if n > MaxDimension {
			return fmt.Errorf("DIMENSION %d exceeds %d", n, MaxDimension)
		}
		inst.N = n
	case "CAPACITY":
		c, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("bad CAPACITY %q: %w", value, err)
		}
		inst.Capacity = c
	case "TYPE":
		if t := strings.ToUpper(value); t != "CVRP" {
			return fmt.Errorf("unsupported TYPE %q", value)
		}
	case "EDGE_WEIGHT_TYPE":
		if t := strings.ToUpper(value); t != "EUC_2D" {
			return fmt.Errorf("unsupported EDGE_WEIGHT_TYPE %q", value)
		}
	}
	return nil
}

func allocate(inst *cvrp.Instance) error {
	if inst.N == 0 {
		return errors.New("tsplib: section before DIMENSION")
	}
	if inst.Coords == nil {
		inst.Coords = make([]cvrp.Point, inst.N+1)
	}
	if inst.Demand == nil {
		inst.Demand = make([]int, inst.N+1)
	}
	return nil
}

// missing returns the first id in 1..n not marked in seen, or 0.
func missing(seen []bool, n int) int {
	for id := 1; id <= n; id++ {
		if id >= len(seen) || !seen[id] {
			return id
		}
	}
	return 0
}

func nodeID(field string, n int) (int, error) {
	id, err := strconv.Atoi(field)
	if err != nil {
		return 0, fmt.Errorf("node id: %w", err)
	}
	if id < 1 || id > n {
		return 0, fmt.Errorf("node id %d outside 1..%d", id, n)
	}
	return id, nil
}
