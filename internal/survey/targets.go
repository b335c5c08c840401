// Package survey plans boustrophedon survey routes over a list of targets:
// parallel tracks around each target, lead-ins between targets and turn
// patterns between tracks, using Vincenty geodesy on the WGS-84 ellipsoid.
package survey

import (
	"bufio"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ukydev/fleet-logbook/internal/models"
)

// Defaults applied to every parsed target.
const (
	DefaultNumTracks = 3
	DefaultSpacing   = 5.0
	DefaultBearing   = 0.0

	// MaxNumTracks bounds the track count override.
	MaxNumTracks = 100
)

// Target is one survey object and the track pattern to run over it.
type Target struct {
	Position  models.Location `json:"position"`
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	NumTracks int             `json:"num_tracks"`
	Spacing   float64         `json:"spacing"`
	Bearing   float64         `json:"bearing"`
}

// ParseTargets reads one target per line: "lat lon type id", whitespace
// separated. Blank lines and lines starting with '#' are skipped. Up to three
// more fields override the track count, spacing and bearing. An override that
// is not a finite number, or a track count outside 1..MaxNumTracks, keeps the
// default.
//
// Parsing is permissive: a coordinate that is not a number becomes NaN, and
// the line is kept. A missing id becomes T<n>, n counting kept lines from 1.
func ParseTargets(text string) []Target {
	var out []Target
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f := strings.Fields(line)
		t := Target{
			Position:  models.Location{Lat: number(f, 0), Lon: number(f, 1)},
			ID:        fmt.Sprintf("T%d", len(out)+1),
			NumTracks: DefaultNumTracks,
			Spacing:   DefaultSpacing,
			Bearing:   DefaultBearing,
		}
		if len(f) > 2 {
			t.Type = f[2]
		}
		if len(f) > 3 {
			t.ID = f[3]
		}
		if len(f) > 4 {
			if n, err := strconv.Atoi(f[4]); err == nil && n > 0 && n <= MaxNumTracks {
				t.NumTracks = n
			}
		}
		if len(f) > 5 {
			if v := number(f, 5); finite(v) {
				t.Spacing = v
			}
		}
		if len(f) > 6 {
			if v := number(f, 6); finite(v) {
				t.Bearing = v
			}
		}
		out = append(out, t)
	}
	return out
}

func number(fields []string, i int) float64 {
	if i >= len(fields) {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(fields[i], 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
