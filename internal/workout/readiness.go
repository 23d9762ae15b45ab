package workout

// Readiness flags.
const (
	FlagMissingHRV          = "missing_hrv"
	FlagMissingRHR          = "missing_rhr"
	FlagHighStrainYesterday = "high_strain_yesterday"
	FlagLowRecovery         = "low_recovery"
	FlagGoodRecovery        = "good_recovery"
	FlagPoorSleep           = "poor_sleep"
	FlagGoodSleep           = "good_sleep"
)

const (
	neutralScore = 0.5
	neutralRatio = 1.0
	minRatio     = 0.8
	maxRatio     = 1.2

	highStrainThreshold = 14
	highStrainPenalty   = 0.05

	lowComponentThreshold  = 0.6
	goodComponentThreshold = 0.8

	wellnessScale = 10
)

// ReadinessComponents are the normalized inputs that went into rho.
type ReadinessComponents struct {
	Recovery float64 `json:"recovery"`
	Sleep    float64 `json:"sleep"`
	HRVRatio float64 `json:"hrvRatio"`
	RHRRatio float64 `json:"rhrRatio"`
}

// Readiness is a normalized composite of physiological recovery.
type Readiness struct {
	Rho        float64             `json:"rho"`
	Flags      []string            `json:"flags"`
	Components ReadinessComponents `json:"components"`
}

// ScoreReadiness fuses the biometric snapshot into rho in [0,1].
//
// A non-nil wellness override dominates the wearable signals. Missing signals degrade to neutral values and never
// cause an error.
func ScoreReadiness(snapshot BiometricSnapshot, wellness *ManualWellness) Readiness {
	flags := []string{}

	hrv, ok := ratio(snapshot.HRVNowMs, snapshot.HRVBaselineMs)
	if !ok {
		flags = append(flags, FlagMissingHRV)
	}
	// Lower resting heart rate is better so the ratio is inverted.
	rhr, ok := ratio(snapshot.RHRBaselineBpm, snapshot.RHRNowBpm)
	if !ok {
		flags = append(flags, FlagMissingRHR)
	}

	recovery, recoveryMeasured := normalizePercent(snapshot.RecoveryScore)
	sleep, sleepMeasured := normalizePercent(snapshot.SleepPerformance)

	var rho float64
	if wellness != nil {
		// Self-reported values are on a 1-10 scale.
		energy := clip(wellness.EnergyLevel/wellnessScale, 0, 1)
		sleep = clip(wellness.SleepQuality/wellnessScale, 0, 1)
		sleepMeasured = true
		rho = clip(0.5*energy+0.4*sleep+0.05*hrv+0.05*rhr, 0, 1) //nolint:mnd // self-report weights.
	} else {
		rho = clip(0.4*recovery+0.3*sleep+0.15*hrv+0.15*rhr, 0, 1) //nolint:mnd // wearable weights.
	}

	if snapshot.YesterdayStrain != nil && *snapshot.YesterdayStrain > highStrainThreshold {
		rho = max(0, rho-highStrainPenalty)
		flags = append(flags, FlagHighStrainYesterday)
	}

	if recoveryMeasured {
		flags = appendThresholdFlag(flags, recovery, FlagLowRecovery, FlagGoodRecovery)
	}
	if sleepMeasured {
		flags = appendThresholdFlag(flags, sleep, FlagPoorSleep, FlagGoodSleep)
	}

	return Readiness{
		Rho:   rho,
		Flags: flags,
		Components: ReadinessComponents{
			Recovery: recovery,
			Sleep:    sleep,
			HRVRatio: hrv,
			RHRRatio: rhr,
		},
	}
}

// normalizePercent maps a 0-100 score to [0,1], neutral when missing.
func normalizePercent(v *float64) (float64, bool) {
	if v == nil {
		return neutralScore, false
	}
	return clip(*v/100, 0, 1), true //nolint:mnd // percent.
}

// ratio returns clip(num/den) or the neutral ratio when either side is missing or non-positive.
func ratio(num, den *float64) (float64, bool) {
	if num == nil || den == nil || *num <= 0 || *den <= 0 {
		return neutralRatio, false
	}
	return clip(*num / *den, minRatio, maxRatio), true
}

func appendThresholdFlag(flags []string, v float64, low, good string) []string {
	switch {
	case v < lowComponentThreshold:
		return append(flags, low)
	case v >= goodComponentThreshold:
		return append(flags, good)
	default:
		return flags
	}
}

func clip(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
