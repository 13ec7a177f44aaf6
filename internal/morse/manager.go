// internal/morse/manager.go
package morse

import (
	"errors"

	"github.com/ColonelBlimp/morselight/internal/container"
)

const (
	// DefaultSampleBufferCap is the calibration buffer capacity when the
	// config leaves it zero. It matches DefaultQueueCap so the buffered
	// samples always fit the converter's sample queue on replay.
	DefaultSampleBufferCap = 64
	// DefaultQueueCap is the per-stage queue capacity when the config
	// leaves it zero
	DefaultQueueCap = 64

	// calibrationSpanCount is how many coarse spans must be observed
	// before buffered samples are trusted for calibration
	calibrationSpanCount = 7
)

var (
	// ErrInvalidUnitTime indicates a provided unit time must be positive
	ErrInvalidUnitTime = errors.New("unit time must be positive")
	// ErrInvalidUnitRange indicates the estimation range must satisfy
	// 0 <= min < max
	ErrInvalidUnitRange = errors.New("unit time range must satisfy 0 <= min < max")
	// ErrInvalidTrigger indicates the estimation trigger must be positive
	ErrInvalidTrigger = errors.New("estimation trigger span count must be positive")
	// ErrInvalidDarkPush indicates the dark-push interval must be non-negative
	ErrInvalidDarkPush = errors.New("dark push interval must be non-negative")
)

// UnitTimeDecision selects how the pipeline obtains its unit time:
// either fixed up front, or estimated by search once enough spans have
// been observed. Once estimation commits, the decision becomes provided
// and never changes again.
type UnitTimeDecision struct {
	unitMillis Time
	minMillis  Time
	maxMillis  Time
	afterSpans uint32
	provided   bool
}

// ProvidedUnit fixes the unit time to unitMillis.
func ProvidedUnit(unitMillis Time) UnitTimeDecision {
	return UnitTimeDecision{unitMillis: unitMillis, provided: true}
}

// UnitToBeDetermined defers the unit time to a grid search over
// [minMillis, maxMillis), run once afterSpans spans are queued.
func UnitToBeDetermined(minMillis, maxMillis Time, afterSpans uint32) UnitTimeDecision {
	return UnitTimeDecision{minMillis: minMillis, maxMillis: maxMillis, afterSpans: afterSpans}
}

// Provided reports whether the unit time is committed, and its value.
func (d UnitTimeDecision) Provided() (Time, bool) {
	return d.unitMillis, d.provided
}

func (d UnitTimeDecision) validate() error {
	if d.provided {
		if d.unitMillis <= 0 {
			return ErrInvalidUnitTime
		}
		return nil
	}
	if d.minMillis < 0 || d.minMillis >= d.maxMillis {
		return ErrInvalidUnitRange
	}
	if d.afterSpans == 0 {
		return ErrInvalidTrigger
	}
	return nil
}

// ManagerConfig holds construction parameters for the pipeline manager.
type ManagerConfig struct {
	// LikelyMiddle is a coarse guess at the light/dark midpoint, used
	// only to count spans before calibration commits
	LikelyMiddle LightIntensity
	// UnitTime is the unit-time decision the converter starts with
	UnitTime UnitTimeDecision
	// SampleBufferCap bounds the calibration sample buffer (0 = default)
	SampleBufferCap int
	// QueueCap bounds each pipeline stage queue (0 = default)
	QueueCap int
	// DarkPushMillis forces a Light to Dark transition after this long a
	// quiet interval; 0 disables the rule
	DarkPushMillis Time
}

// Manager is the top-level streaming state machine. It buffers early
// samples until enough coarse spans prove the signal worth calibrating,
// then commits cutoffs, replays the buffer through the converter and
// streams every further sample straight in.
//
// The manager exclusively owns the sample buffer and all converter
// queues. It is not safe for concurrent use; the intended drive is one
// producer calling AddSample and one consumer calling ProduceChars from
// the same loop.
type Manager struct {
	cfg   ManagerConfig
	table *SymbolTable

	buf        *container.Vec[SampledLightIntensity]
	spanCount  uint32
	lastLikely LightState
	conv       *converter
}

// NewManager constructs an uncommitted manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.SampleBufferCap == 0 {
		cfg.SampleBufferCap = DefaultSampleBufferCap
	}
	if cfg.QueueCap == 0 {
		cfg.QueueCap = DefaultQueueCap
	}
	if cfg.SampleBufferCap < 0 || cfg.QueueCap < 0 {
		return nil, container.ErrInvalidCapacity
	}
	if cfg.DarkPushMillis < 0 {
		return nil, ErrInvalidDarkPush
	}
	if err := cfg.UnitTime.validate(); err != nil {
		return nil, err
	}

	table, err := NewSymbolTable()
	if err != nil {
		return nil, err
	}
	buf, err := container.NewVec[SampledLightIntensity](cfg.SampleBufferCap)
	if err != nil {
		return nil, err
	}
	return &Manager{
		cfg:        cfg,
		table:      table,
		buf:        buf,
		lastLikely: Dark,
	}, nil
}

// AddSample feeds one reading into the pipeline. Before calibration the
// sample lands in the bounded buffer and advances the coarse span count;
// afterwards it goes straight to the converter. The only failure is
// ErrInputTooLarge when a bounded container is full.
func (m *Manager) AddSample(s SampledLightIntensity) error {
	if m.conv != nil {
		return m.conv.addSample(s)
	}

	switch {
	case m.lastLikely == Dark && s.Intensity > m.cfg.LikelyMiddle:
		m.lastLikely = Light
		m.spanCount++
	case m.lastLikely == Light && s.Intensity < m.cfg.LikelyMiddle:
		m.lastLikely = Dark
		m.spanCount++
	}
	if err := m.buf.Push(s); err != nil {
		return ErrInputTooLarge
	}
	return nil
}

// ProduceChars flushes the pipeline and returns the characters decoded
// so far. Before calibration it returns nothing until the coarse span
// count proves the buffer holds real signal; the first flush past that
// point calibrates cutoffs, replays the buffer through the converter and
// re-enters. Stage errors surface unwrapped; the manager neither retries
// nor drops.
func (m *Manager) ProduceChars() ([]rune, error) {
	if m.conv == nil {
		if m.spanCount <= calibrationSpanCount {
			return nil, nil
		}
		cutoffs, err := CalcDigitalCutoffs(m.buf.Items())
		if err != nil {
			return nil, err
		}
		conv, err := newConverter(m.buf.At(0).Time, cutoffs, m.cfg, m.table)
		if err != nil {
			return nil, err
		}
		for _, s := range m.buf.Items() {
			if err := conv.addSample(s); err != nil {
				return nil, err
			}
		}
		m.conv = conv
		m.buf.Clear()
		return m.ProduceChars()
	}
	return m.conv.produceChars()
}

// Cutoffs returns the calibrated thresholds, valid once calibration has
// committed.
func (m *Manager) Cutoffs() (IntensityCutoffs, bool) {
	if m.conv == nil {
		return IntensityCutoffs{}, false
	}
	return m.conv.cutoffs, true
}

// UnitTime returns the committed unit time, valid once either provided
// at construction or estimation has run.
func (m *Manager) UnitTime() (Time, bool) {
	if m.conv == nil {
		return m.cfg.UnitTime.Provided()
	}
	return m.conv.decision.Provided()
}

// Reset returns the manager to the uncommitted state for a new decode
// session with the same configuration.
func (m *Manager) Reset() {
	m.buf.Clear()
	m.spanCount = 0
	m.lastLikely = Dark
	m.conv = nil
}

// converter is the committed pipeline substate: four bounded queues and
// the edge-detector position, flushed top-down on every produceChars.
type converter struct {
	samples *container.Queue[SampledLightIntensity]
	spans   *container.Queue[TimedLightEvent]
	symbols *container.Queue[Morse]
	hold    *container.Queue[Morse]

	edge     EdgeState
	cutoffs  IntensityCutoffs
	decision UnitTimeDecision
	darkPush Time
	table    *SymbolTable
	scratch  []TimedLightEvent
	chars    *container.Vec[rune]
}

func newConverter(startTime Time, cutoffs IntensityCutoffs, cfg ManagerConfig, table *SymbolTable) (*converter, error) {
	samples, err := container.NewQueue[SampledLightIntensity](cfg.QueueCap)
	if err != nil {
		return nil, err
	}
	spans, err := container.NewQueue[TimedLightEvent](cfg.QueueCap)
	if err != nil {
		return nil, err
	}
	symbols, err := container.NewQueue[Morse](cfg.QueueCap)
	if err != nil {
		return nil, err
	}
	hold, err := container.NewQueue[Morse](cfg.QueueCap)
	if err != nil {
		return nil, err
	}
	chars, err := container.NewVec[rune](cfg.QueueCap)
	if err != nil {
		return nil, err
	}
	return &converter{
		samples:  samples,
		spans:    spans,
		symbols:  symbols,
		hold:     hold,
		edge:     EdgeState{LastTime: startTime, LastState: Dark},
		cutoffs:  cutoffs,
		decision: cfg.UnitTime,
		darkPush: cfg.DarkPushMillis,
		table:    table,
		scratch:  make([]TimedLightEvent, cfg.QueueCap),
		chars:    chars,
	}, nil
}

func (c *converter) addSample(s SampledLightIntensity) error {
	if err := c.samples.Push(s); err != nil {
		return ErrInputTooLarge
	}
	return nil
}

func (c *converter) produceChars() ([]rune, error) {
	if err := DetectEdges(c.samples, c.spans, &c.edge, c.cutoffs, c.darkPush); err != nil {
		return nil, err
	}

	if _, ok := c.decision.Provided(); !ok {
		if uint32(c.spans.Len()) < c.decision.afterSpans {
			return nil, nil
		}
		snap, err := c.spans.Snapshot(c.scratch)
		if err != nil {
			return nil, ErrInputTooLarge
		}
		best, err := EstimateUnitTime(snap, c.decision.minMillis, c.decision.maxMillis)
		if err != nil {
			return nil, err
		}
		c.decision = ProvidedUnit(best.Item)
		return c.produceChars()
	}

	unitMillis, _ := c.decision.Provided()
	for c.spans.Len() > 0 {
		span, ok := c.spans.Pop()
		if !ok {
			return nil, ErrQueueBug
		}
		sym, err := Classify(span, unitMillis)
		if err != nil {
			return nil, err
		}
		if err := c.symbols.Push(sym); err != nil {
			return nil, ErrInputTooLarge
		}
	}

	c.chars.Clear()
	for {
		ch, ok, err := Assemble(c.symbols, c.hold, c.table)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if err := c.chars.Push(ch); err != nil {
			return nil, ErrInputTooLarge
		}
	}
	out := make([]rune, c.chars.Len())
	copy(out, c.chars.Items())
	return out, nil
}
