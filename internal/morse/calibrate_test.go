package morse

import (
	"errors"
	"testing"
)

// blinkTrace is a recorded two-level blink: dark floor around 50, light
// peaks at 500.
var blinkTrace = []SampledLightIntensity{
	{Time: 5, Intensity: 50},
	{Time: 10, Intensity: 50},
	{Time: 15, Intensity: 500},
	{Time: 20, Intensity: 50},
	{Time: 25, Intensity: 500},
	{Time: 30, Intensity: 50},
	{Time: 35, Intensity: 500},
	{Time: 40, Intensity: 50},
	{Time: 60, Intensity: 51},
}

func TestCalcDigitalCutoffs(t *testing.T) {
	got, err := CalcDigitalCutoffs(blinkTrace)
	if err != nil {
		t.Fatalf("CalcDigitalCutoffs() error = %v", err)
	}
	// avg 200; lows mean 50, highs mean 500; cutoffs at the quarter
	// points of the 450 gap.
	want := IntensityCutoffs{Low: 162, High: 387}
	if got != want {
		t.Errorf("CalcDigitalCutoffs() = %+v, want %+v", got, want)
	}
}

func TestCalcDigitalCutoffs_TwoLevels(t *testing.T) {
	samples := []SampledLightIntensity{
		{Time: 0, Intensity: 100},
		{Time: 10, Intensity: 900},
		{Time: 20, Intensity: 100},
		{Time: 30, Intensity: 900},
	}
	got, err := CalcDigitalCutoffs(samples)
	if err != nil {
		t.Fatalf("CalcDigitalCutoffs() error = %v", err)
	}
	want := IntensityCutoffs{Low: 300, High: 700}
	if got != want {
		t.Errorf("CalcDigitalCutoffs() = %+v, want %+v", got, want)
	}
	if got.Low > got.High {
		t.Errorf("cutoffs inverted: %+v", got)
	}
}

func TestCalcDigitalCutoffs_Empty(t *testing.T) {
	_, err := CalcDigitalCutoffs(nil)
	if !errors.Is(err, ErrCalcDigitalFailed) {
		t.Errorf("error = %v, want wrapped %v", err, ErrCalcDigitalFailed)
	}
	if !errors.Is(err, ErrNoIntensities) {
		t.Errorf("error = %v, want wrapped %v", err, ErrNoIntensities)
	}
}

func TestCalcDigitalCutoffs_SingleLevel(t *testing.T) {
	samples := make([]SampledLightIntensity, 8)
	for i := range samples {
		samples[i] = SampledLightIntensity{Time: Time(i * 10), Intensity: 700}
	}
	// Every sample sits at the mean, so the high partition is empty.
	_, err := CalcDigitalCutoffs(samples)
	if !errors.Is(err, ErrNoHighs) {
		t.Errorf("error = %v, want wrapped %v", err, ErrNoHighs)
	}
	if !errors.Is(err, ErrCalcDigitalFailed) {
		t.Errorf("error = %v, want wrapped %v", err, ErrCalcDigitalFailed)
	}
}

func TestCalcDigitalCutoffs_FullRange(t *testing.T) {
	samples := []SampledLightIntensity{
		{Time: 0, Intensity: 0},
		{Time: 10, Intensity: 65535},
	}
	got, err := CalcDigitalCutoffs(samples)
	if err != nil {
		t.Fatalf("CalcDigitalCutoffs() error = %v", err)
	}
	want := IntensityCutoffs{Low: 16383, High: 49151}
	if got != want {
		t.Errorf("CalcDigitalCutoffs() = %+v, want %+v", got, want)
	}
}
