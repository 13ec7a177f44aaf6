// internal/morse/classify.go
package morse

// CalcError scores a span against one candidate at the given unit time.
// The score is the absolute difference between the span's duration and
// the candidate's ideal duration. The second return value is false when
// the span and candidate disagree on light state; such pairs have no
// score.
func CalcError(event TimedLightEvent, candidate MorseCandidate, unitMillis Time) (int64, bool) {
	if event.State != candidate.State {
		return 0, false
	}
	diff := event.Duration - candidate.Units*unitMillis
	if diff < 0 {
		diff = -diff
	}
	return diff, true
}

// BestError returns the lowest-scoring candidate for the span at the
// given unit time. Candidates of the other light state are excluded. On
// an equal score the earlier candidate in the fixed template order wins:
// the running minimum is only replaced on a strictly smaller score.
func BestError(event TimedLightEvent, unitMillis Time) (Scored[MorseCandidate], error) {
	var best Scored[MorseCandidate]
	found := false
	for _, mc := range morseCandidates {
		score, ok := CalcError(event, mc, unitMillis)
		if !ok {
			continue
		}
		if !found || score < best.Score {
			best = Scored[MorseCandidate]{Item: mc, Score: score}
			found = true
		}
	}
	if !found {
		return Scored[MorseCandidate]{}, ErrBestErrorBug
	}
	return best, nil
}

// Classify maps a span to the closest pipeline symbol at the given unit
// time.
func Classify(event TimedLightEvent, unitMillis Time) (Morse, error) {
	best, err := BestError(event, unitMillis)
	if err != nil {
		return 0, err
	}
	return CandidateSymbol(best.Item)
}
