package epiworld

import "testing"

func TestIndependentActionMixer_Empty(t *testing.T) {
	if got := IndependentActionMixer(nil); got != 0 {
		t.Errorf(UnequalFloatParameterError, "mixed effect with no tools", 0.0, got)
	}
}

func TestIndependentActionMixer_SingleValue(t *testing.T) {
	if got := IndependentActionMixer([]float64{0.4}); got != 0.4 {
		t.Errorf(UnequalFloatParameterError, "mixed effect with one tool", 0.4, got)
	}
}

func TestIndependentActionMixer_Composes(t *testing.T) {
	// 1 - (1-0.5)(1-0.5) = 0.75
	got := IndependentActionMixer([]float64{0.5, 0.5})
	if diff := got - 0.75; diff > 1e-9 || diff < -1e-9 {
		t.Errorf(UnequalFloatParameterError, "composed mixed effect", 0.75, got)
	}
}
