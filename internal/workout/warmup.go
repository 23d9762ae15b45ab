package workout

const (
	defaultMinSessions      = 2
	defaultLookbackSessions = 10
	highConfidenceSessions  = 5
	defaultWarmupSets       = 3
	defaultFixedReps        = 5
	minDescendingReps       = 5
)

// DetectOptions configures [DetectWarmupPattern].
type DetectOptions struct {
	MinSessions      int
	LookbackSessions int
	Increment        float64
}

func (o DetectOptions) withDefaults() DetectOptions {
	if o.MinSessions <= 0 {
		o.MinSessions = defaultMinSessions
	}
	if o.LookbackSessions <= 0 {
		o.LookbackSessions = defaultLookbackSessions
	}
	if o.Increment <= 0 {
		o.Increment = defaultIncrement
	}
	return o
}

// emptyWarmupPattern is returned when history is too thin to infer a pattern.
func emptyWarmupPattern() WarmupPattern {
	return WarmupPattern{
		Confidence:   WarmupConfidenceLow,
		Sets:         []WarmupSet{},
		Source:       WarmupSourceProtocol,
		SessionCount: 0,
	}
}

// DetectWarmupPattern scales the warm-up sets of the most recent warm-up-bearing session to targetWeight.
// History is ordered most recent first.
func DetectWarmupPattern(history []ExerciseSessionRecord, targetWeight float64, opts DetectOptions) WarmupPattern {
	opts = opts.withDefaults()

	if len(history) > opts.LookbackSessions {
		history = history[:opts.LookbackSessions]
	}
	if len(history) < opts.MinSessions {
		return emptyWarmupPattern()
	}

	var withWarmups []ExerciseSessionRecord
	for _, session := range history {
		if len(session.WarmupSets()) > 0 {
			withWarmups = append(withWarmups, session)
		}
	}
	if len(withWarmups) == 0 {
		return emptyWarmupPattern()
	}

	latest := withWarmups[0]
	top := latest.TopWorkingWeight()
	if top <= 0 {
		return emptyWarmupPattern()
	}

	warmups := latest.WarmupSets()
	sets := make([]WarmupSet, 0, len(warmups))
	for i, w := range warmups {
		fraction := w.Weight / top
		sets = append(sets, WarmupSet{
			SetNumber:       i + 1,
			Weight:          RoundToIncrement(fraction*targetWeight, opts.Increment),
			Reps:            w.Reps,
			PercentageOfTop: roundTo(fraction, 2), //nolint:mnd // two decimals.
		})
	}

	return WarmupPattern{
		Confidence:   warmupConfidence(len(withWarmups)),
		Sets:         sets,
		Source:       WarmupSourceHistory,
		SessionCount: len(withWarmups),
	}
}

func warmupConfidence(sessions int) WarmupConfidence {
	switch {
	case sessions >= highConfidenceSessions:
		return WarmupConfidenceHigh
	case sessions >= defaultMinSessions:
		return WarmupConfidenceMedium
	default:
		return WarmupConfidenceLow
	}
}

// RepsStrategy selects the rep count of generated warm-up sets.
type RepsStrategy string

const (
	RepsMatchWorking RepsStrategy = "match_working"
	RepsDescending   RepsStrategy = "descending"
	RepsFixed        RepsStrategy = "fixed"
)

// ProtocolOptions describes a percentage ladder warm-up protocol.
type ProtocolOptions struct {
	SetsCount    int          `json:"setsCount"`
	Percentages  []float64    `json:"percentages"`
	RepsStrategy RepsStrategy `json:"repsStrategy"`
	FixedReps    int          `json:"fixedReps,omitempty"`
}

// DefaultProtocolOptions is three sets at 40, 60 and 80 percent with descending reps.
func DefaultProtocolOptions() ProtocolOptions {
	return ProtocolOptions{
		SetsCount:    defaultWarmupSets,
		Percentages:  []float64{40, 60, 80}, //nolint:mnd // default ladder.
		RepsStrategy: RepsDescending,
		FixedReps:    defaultFixedReps,
	}
}

// GenerateDefaultWarmupProtocol builds a warm-up ladder at the configured percentages of targetWeight.
//
// When the number of percentages does not match SetsCount the ladder is spread evenly between the first and the last
// configured percentage.
func GenerateDefaultWarmupProtocol(
	targetWeight float64,
	workingReps int,
	opts ProtocolOptions,
	increment float64,
) WarmupPattern {
	if opts.SetsCount <= 0 {
		opts.SetsCount = defaultWarmupSets
	}
	if opts.FixedReps <= 0 {
		opts.FixedReps = defaultFixedReps
	}

	percentages := ladder(opts.Percentages, opts.SetsCount)
	sets := make([]WarmupSet, 0, len(percentages))
	for i, pct := range percentages {
		fraction := pct / 100 //nolint:mnd // percent.
		sets = append(sets, WarmupSet{
			SetNumber:       i + 1,
			Weight:          RoundToIncrement(fraction*targetWeight, increment),
			Reps:            warmupReps(opts, i, workingReps),
			PercentageOfTop: roundTo(fraction, 2), //nolint:mnd // two decimals.
		})
	}

	return WarmupPattern{
		Confidence:   WarmupConfidenceLow,
		Sets:         sets,
		Source:       WarmupSourceDefault,
		SessionCount: 0,
	}
}

func ladder(percentages []float64, count int) []float64 {
	if len(percentages) == count {
		return percentages
	}
	first, last := 40.0, 80.0
	if len(percentages) > 0 {
		first, last = percentages[0], percentages[len(percentages)-1]
	}
	if count == 1 {
		return []float64{first}
	}
	out := make([]float64, count)
	for i := range count {
		out[i] = first + (last-first)*float64(i)/float64(count-1)
	}
	return out
}

func warmupReps(opts ProtocolOptions, i, workingReps int) int {
	switch opts.RepsStrategy {
	case RepsMatchWorking:
		if workingReps > 0 {
			return workingReps
		}
		return opts.FixedReps
	case RepsFixed:
		return opts.FixedReps
	case RepsDescending:
		return max(minDescendingReps, 10-2*i) //nolint:mnd // 10, 8, 6, 5...
	default:
		return max(minDescendingReps, 10-2*i) //nolint:mnd // 10, 8, 6, 5...
	}
}
