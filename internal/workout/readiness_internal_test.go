package workout

import (
	"math"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/steviebd/swole-tracker/internal/ptr"
)

func TestScoreReadiness(t *testing.T) {
	tests := []struct {
		name      string
		snapshot  BiometricSnapshot
		wellness  *ManualWellness
		wantRho   float64
		wantFlags []string
	}{
		{
			name:      "no data degrades to neutral",
			snapshot:  BiometricSnapshot{}, //nolint:exhaustruct // all signals missing.
			wellness:  nil,
			wantRho:   0.4*0.5 + 0.3*0.5 + 0.15 + 0.15,
			wantFlags: []string{FlagMissingHRV, FlagMissingRHR},
		},
		{
			name: "full wearable snapshot",
			snapshot: BiometricSnapshot{
				RecoveryScore:    ptr.Ref(85.0),
				SleepPerformance: ptr.Ref(90.0),
				HRVNowMs:         ptr.Ref(66.0),
				HRVBaselineMs:    ptr.Ref(60.0),
				RHRNowBpm:        ptr.Ref(50.0),
				RHRBaselineBpm:   ptr.Ref(55.0),
				YesterdayStrain:  ptr.Ref(10.0),
			},
			wellness:  nil,
			wantRho:   0.4*0.85 + 0.3*0.9 + 0.15*1.1 + 0.15*1.1,
			wantFlags: []string{FlagGoodRecovery, FlagGoodSleep},
		},
		{
			name: "ratios are clipped",
			snapshot: BiometricSnapshot{
				RecoveryScore:    ptr.Ref(70.0),
				SleepPerformance: ptr.Ref(70.0),
				HRVNowMs:         ptr.Ref(200.0),
				HRVBaselineMs:    ptr.Ref(50.0),
				RHRNowBpm:        ptr.Ref(100.0),
				RHRBaselineBpm:   ptr.Ref(50.0),
				YesterdayStrain:  nil,
			},
			wellness:  nil,
			wantRho:   0.4*0.7 + 0.3*0.7 + 0.15*1.2 + 0.15*0.8,
			wantFlags: []string{},
		},
		{
			name: "high strain and low recovery",
			snapshot: BiometricSnapshot{
				RecoveryScore:    ptr.Ref(30.0),
				SleepPerformance: ptr.Ref(40.0),
				HRVNowMs:         nil,
				HRVBaselineMs:    ptr.Ref(60.0),
				RHRNowBpm:        ptr.Ref(60.0),
				RHRBaselineBpm:   ptr.Ref(0.0),
				YesterdayStrain:  ptr.Ref(16.5),
			},
			wellness:  nil,
			wantRho:   0.4*0.3 + 0.3*0.4 + 0.15 + 0.15 - 0.05,
			wantFlags: []string{FlagMissingHRV, FlagMissingRHR, FlagHighStrainYesterday, FlagLowRecovery, FlagPoorSleep},
		},
		{
			name: "manual wellness dominates",
			snapshot: BiometricSnapshot{
				RecoveryScore:    ptr.Ref(10.0),
				SleepPerformance: ptr.Ref(10.0),
				HRVNowMs:         ptr.Ref(60.0),
				HRVBaselineMs:    ptr.Ref(60.0),
				RHRNowBpm:        ptr.Ref(60.0),
				RHRBaselineBpm:   ptr.Ref(60.0),
				YesterdayStrain:  nil,
			},
			wellness:  &ManualWellness{EnergyLevel: 9, SleepQuality: 8, Notes: "felt great"},
			wantRho:   0.5*0.9 + 0.4*0.8 + 0.05 + 0.05,
			wantFlags: []string{FlagLowRecovery, FlagGoodSleep},
		},
		{
			name:      "strain cannot push below zero",
			snapshot:  BiometricSnapshot{YesterdayStrain: ptr.Ref(21.0)}, //nolint:exhaustruct // strain only.
			wellness:  &ManualWellness{EnergyLevel: 0, SleepQuality: 0, Notes: ""},
			wantRho:   0.05,
			wantFlags: []string{FlagMissingHRV, FlagMissingRHR, FlagHighStrainYesterday, FlagPoorSleep},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreReadiness(tt.snapshot, tt.wellness)
			if math.Abs(got.Rho-tt.wantRho) > 1e-9 {
				t.Errorf("Rho = %v, want %v", got.Rho, tt.wantRho)
			}
			if diff := cmp.Diff(tt.wantFlags, got.Flags); diff != "" {
				t.Errorf("Flags mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScoreReadiness_rhoAlwaysInUnitInterval(t *testing.T) {
	values := []*float64{nil, ptr.Ref(-50.0), ptr.Ref(0.0), ptr.Ref(35.0), ptr.Ref(100.0), ptr.Ref(1e6)}
	for _, recovery := range values {
		for _, sleep := range values {
			for _, hrv := range values {
				for _, strain := range values {
					snapshot := BiometricSnapshot{
						RecoveryScore:    recovery,
						SleepPerformance: sleep,
						HRVNowMs:         hrv,
						HRVBaselineMs:    ptr.Ref(60.0),
						RHRNowBpm:        hrv,
						RHRBaselineBpm:   ptr.Ref(55.0),
						YesterdayStrain:  strain,
					}
					for _, wellness := range []*ManualWellness{nil, {EnergyLevel: 11, SleepQuality: -3, Notes: ""}} {
						got := ScoreReadiness(snapshot, wellness)
						if got.Rho < 0 || got.Rho > 1 || math.IsNaN(got.Rho) {
							t.Fatalf("rho %v outside [0,1] for %+v, wellness %+v", got.Rho, snapshot, wellness)
						}
						if slices.Contains(got.Flags, FlagGoodRecovery) && slices.Contains(got.Flags, FlagLowRecovery) {
							t.Fatalf("contradicting recovery flags %v", got.Flags)
						}
					}
				}
			}
		}
	}
}
