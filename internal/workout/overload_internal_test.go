package workout

import (
	"math"
	"testing"
)

func TestOverloadMultiplier(t *testing.T) {
	tests := []struct {
		name  string
		rho   float64
		level ExperienceLevel
		want  float64
	}{
		{name: "neutral", rho: 0.5, level: ExperienceIntermediate, want: 1},
		{name: "good readiness", rho: 0.8, level: ExperienceIntermediate, want: 1.09},
		{name: "upper clip", rho: 1, level: ExperienceAdvanced, want: 1.1},
		{name: "lower clip", rho: 0, level: ExperienceAdvanced, want: 0.9},
		{name: "beginner cap", rho: 1, level: ExperienceBeginner, want: 1.05},
		{name: "beginner below cap", rho: 0.6, level: ExperienceBeginner, want: 1.03},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OverloadMultiplier(tt.rho, tt.level); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("OverloadMultiplier(%v, %s) = %v, want %v", tt.rho, tt.level, got, tt.want)
			}
		})
	}
}

func TestOverloadMultiplier_beginnerNeverExceedsCap(t *testing.T) {
	for rho := -1.0; rho <= 2; rho += 0.01 {
		if got := OverloadMultiplier(rho, ExperienceBeginner); got > 1.05 {
			t.Fatalf("OverloadMultiplier(%v, beginner) = %v, want <= 1.05", rho, got)
		}
	}
}

func TestRoundToIncrement(t *testing.T) {
	tests := []struct {
		weight, increment, want float64
	}{
		{weight: 101.2, increment: 2.5, want: 100},
		{weight: 101.3, increment: 2.5, want: 102.5},
		{weight: 60, increment: 2.5, want: 60},
		{weight: 61, increment: 0, want: 60},
		{weight: 61, increment: -1, want: 60},
		{weight: 33, increment: 5, want: 35},
		{weight: 21.3, increment: 1.25, want: 21.25},
	}

	for _, tt := range tests {
		if got := RoundToIncrement(tt.weight, tt.increment); got != tt.want {
			t.Errorf("RoundToIncrement(%v, %v) = %v, want %v", tt.weight, tt.increment, got, tt.want)
		}
	}
}

func TestRoundToIncrement_idempotent(t *testing.T) {
	for x := -20.0; x < 300; x += 0.37 {
		once := RoundToIncrement(x, 2.5)
		if twice := RoundToIncrement(once, 2.5); twice != once {
			t.Fatalf("RoundToIncrement not idempotent for %v: %v then %v", x, once, twice)
		}
	}
}

func TestSuggestLoad(t *testing.T) {
	tests := []struct {
		name     string
		previous float64
		rho      float64
		level    ExperienceLevel
		want     float64
	}{
		{name: "good readiness intermediate", previous: 100, rho: 0.8, level: ExperienceIntermediate, want: 107.5},
		{name: "neutral keeps load", previous: 100, rho: 0.5, level: ExperienceIntermediate, want: 100},
		{name: "poor readiness deloads", previous: 100, rho: 0, level: ExperienceAdvanced, want: 90},
		{name: "beginner capped", previous: 100, rho: 1, level: ExperienceBeginner, want: 105},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SuggestLoad(tt.previous, tt.rho, tt.level, 2.5); got != tt.want {
				t.Errorf("SuggestLoad() = %v, want %v", got, tt.want)
			}
		})
	}
}
