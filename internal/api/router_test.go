package api

import (
	"testing"

	"go.uber.org/zap"
)

func TestNewAppAppliesTunables(t *testing.T) {
	t.Setenv("MAX_THEORIES", "4")
	t.Setenv("MIN_THEORIES", "2")
	t.Setenv("EPSILON_CONSISTENT", "0.1")
	t.Setenv("EPSILON_MINOR", "0.3")
	t.Setenv("EPSILON_SIGNIFICANT", "0.45")
	t.Setenv("CONFIDENCE_EXPONENT", "2")

	app := NewApp(nil, zap.NewNop())

	sel := app.Engine.Selector()
	if sel.MaxTheories != 4 || sel.MinTheories != 2 {
		t.Errorf("selector bounds = %d/%d, want 4/2", sel.MaxTheories, sel.MinTheories)
	}
	res := app.Engine.Resolver()
	if res.EpsilonConsistent != 0.1 || res.EpsilonMinor != 0.3 || res.EpsilonSignificant != 0.45 {
		t.Errorf("resolver epsilons = %f/%f/%f, want 0.1/0.3/0.45",
			res.EpsilonConsistent, res.EpsilonMinor, res.EpsilonSignificant)
	}
	if res.ConfidenceExponent != 2.0 {
		t.Errorf("confidence exponent = %f, want 2", res.ConfidenceExponent)
	}
}
