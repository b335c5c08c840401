package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocation_Valid(t *testing.T) {
	tests := []struct {
		name string
		loc  Location
		want bool
	}{
		{"finite", Location{Lat: 10.5, Lon: -20.25}, true},
		{"origin", Location{}, true},
		{"nan latitude", Location{Lat: math.NaN()}, false},
		{"nan longitude", Location{Lon: math.NaN()}, false},
		{"positive infinity", Location{Lat: math.Inf(1)}, false},
		{"negative infinity", Location{Lon: math.Inf(-1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.loc.Valid())
		})
	}
}
