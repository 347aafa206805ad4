package utils

import (
	"testing"
	"time"

	"github.com/campusgo/campusgo-backend/internal/models"
)

func at(hour int) time.Time {
	return time.Date(2025, 3, 1, hour, 15, 0, 0, time.UTC)
}

func TestSurgeMultiplier(t *testing.T) {
	tests := []struct {
		hour int
		want float64
	}{
		{7, 1.0},
		{8, 1.3},
		{9, 1.3},
		{10, 1.0},
		{14, 1.0},
		{17, 1.3},
		{18, 1.3},
		{19, 1.0},
		{21, 1.0},
		{22, 1.5}, // night surge capped from 1.8
		{23, 1.5},
		{0, 1.5},
		{4, 1.5},
		{5, 1.0},
	}
	for _, tt := range tests {
		if got := SurgeMultiplier(at(tt.hour)); got != tt.want {
			t.Errorf("SurgeMultiplier(hour=%d) = %v, want %v", tt.hour, got, tt.want)
		}
	}
}

func TestLookupRoute(t *testing.T) {
	d, m := LookupRoute("MBU Main Gate", "Tirupati Railway Station")
	if d != 8 || m != 30 {
		t.Errorf("known route = (%v, %v), want (8, 30)", d, m)
	}

	// Reverse direction uses the same historical entry.
	d, m = LookupRoute("Tirupati Railway Station", "MBU Main Gate")
	if d != 8 || m != 30 {
		t.Errorf("reverse route = (%v, %v), want (8, 30)", d, m)
	}

	d, m = LookupRoute("Unknown A", "Unknown B")
	if d != 9 || m != 22 {
		t.Errorf("default route = (%v, %v), want (9, 22)", d, m)
	}
}

func TestCalculateFare(t *testing.T) {
	tests := []struct {
		name        string
		pickup      string
		destination string
		rideType    models.RideType
		hour        int
		wantTotal   float64
		wantSurge   float64
	}{
		{
			// 40 + 8*10 + 30*1 = 150, x1.3 = 195, already a multiple of 5
			name:        "solo peak hour known route",
			pickup:      "MBU Main Gate",
			destination: "Tirupati Railway Station",
			rideType:    models.RideTypeSolo,
			hour:        9,
			wantTotal:   195,
			wantSurge:   1.3,
		},
		{
			// 40 + 80 + 30 = 150, no surge
			name:        "solo off peak known route",
			pickup:      "MBU Main Gate",
			destination: "Tirupati Railway Station",
			rideType:    models.RideTypeSolo,
			hour:        14,
			wantTotal:   150,
			wantSurge:   1.0,
		},
		{
			// 25 + 90 + 22 = 137, x1.5 = 205.5, rounds to 205
			name:        "shared night surge default route",
			pickup:      "Unknown A",
			destination: "Unknown B",
			rideType:    models.RideTypeShared,
			hour:        23,
			wantTotal:   205,
			wantSurge:   1.5,
		},
		{
			// 25 + 100 + 25 = 150
			name:        "shared off peak library route",
			pickup:      "Library",
			destination: "City Bus Stand",
			rideType:    models.RideTypeShared,
			hour:        12,
			wantTotal:   150,
			wantSurge:   1.0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateFare(tt.pickup, tt.destination, tt.rideType, at(tt.hour))
			if got.TotalFare != tt.wantTotal {
				t.Errorf("TotalFare = %v, want %v", got.TotalFare, tt.wantTotal)
			}
			if got.SurgeMultiplier != tt.wantSurge {
				t.Errorf("SurgeMultiplier = %v, want %v", got.SurgeMultiplier, tt.wantSurge)
			}
			if got.Breakdown.Total != got.TotalFare {
				t.Errorf("Breakdown.Total = %v, TotalFare = %v", got.Breakdown.Total, got.TotalFare)
			}
		})
	}
}

func TestFareRoundsToNearestFive(t *testing.T) {
	got := CalculateFare("Unknown A", "Unknown B", models.RideTypeShared, at(23))
	if r := int(got.TotalFare) % 5; r != 0 {
		t.Errorf("TotalFare %v not a multiple of 5", got.TotalFare)
	}
}
