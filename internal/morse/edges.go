// internal/morse/edges.go
package morse

import (
	"fmt"

	"github.com/ColonelBlimp/morselight/internal/container"
)

// EdgeState is the detector position carried between DetectEdges calls:
// the time of the last committed transition and the state held since.
type EdgeState struct {
	LastTime  Time
	LastState LightState
}

// DetectEdges drains the sample queue and emits one span per state
// transition, applying hysteresis between the calibrated cutoffs:
//
//   - in Dark, an intensity above cutoffs.High transitions to Light;
//   - in Light, an intensity below cutoffs.Low transitions to Dark;
//   - otherwise, when darkPushMillis is positive, a sample more than
//     darkPushMillis after the last transition with intensity below
//     cutoffs.Low forces Light to Dark, terminating the trailing light
//     span on very long pauses.
//
// Non-transitions emit nothing. A span carries the state being left and
// the time since the previous transition; the state advances in place.
//
// Failures wrap ErrFailedTLEConversion: ErrTooSmallOutgoingCapacity when
// the span queue cannot take an emission, ErrBadQueueCode on a dequeue
// anomaly.
func DetectEdges(
	samples *container.Queue[SampledLightIntensity],
	spans *container.Queue[TimedLightEvent],
	st *EdgeState,
	cutoffs IntensityCutoffs,
	darkPushMillis Time,
) error {
	for samples.Len() > 0 {
		s, ok := samples.Pop()
		if !ok {
			return fmt.Errorf("%w: %w", ErrFailedTLEConversion, ErrBadQueueCode)
		}

		next := st.LastState
		switch {
		case st.LastState == Dark && s.Intensity > cutoffs.High:
			next = Light
		case st.LastState == Light && s.Intensity < cutoffs.Low:
			next = Dark
		case darkPushMillis > 0 && st.LastState == Light &&
			s.Time-st.LastTime > darkPushMillis && s.Intensity < cutoffs.Low:
			next = Dark
		}
		if next == st.LastState {
			continue
		}

		span := TimedLightEvent{State: st.LastState, Duration: s.Time - st.LastTime}
		if err := spans.Push(span); err != nil {
			return fmt.Errorf("%w: %w", ErrFailedTLEConversion, ErrTooSmallOutgoingCapacity)
		}
		st.LastTime = s.Time
		st.LastState = next
	}
	return nil
}
