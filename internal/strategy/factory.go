package strategy

import (
	"fmt"
	"sort"
)

// ErrUnknownStrategy is returned for names the registry does not know. The
// API layer maps it to a client error, not a crash.
type ErrUnknownStrategy struct {
	Name string
}

func (e ErrUnknownStrategy) Error() string {
	return fmt.Sprintf("unknown strategy: %s", e.Name)
}

type constructor func(params map[string]float64) Strategy

var registry = map[string]constructor{
	"trend_following":    func(p map[string]float64) Strategy { return NewTrendFollowing(p) },
	"mean_reversion":     func(p map[string]float64) Strategy { return NewMeanReversion(p) },
	"breakout":           func(p map[string]float64) Strategy { return NewBreakout(p) },
	"multi_timeframe":    func(p map[string]float64) Strategy { return NewMultiTimeframe(p) },
	"divergence":         func(p map[string]float64) Strategy { return NewDivergence(p) },
	"squeeze":            func(p map[string]float64) Strategy { return NewSqueeze(p) },
	"support_resistance": func(p map[string]float64) Strategy { return NewSupportResistance(p) },
}

// New instantiates a strategy by registry name. Params override the variant's
// defaults; nil is fine.
func New(name string, params map[string]float64) (Strategy, error) {
	build, ok := registry[name]
	if !ok {
		return nil, ErrUnknownStrategy{Name: name}
	}
	return build(params), nil
}

// Names lists the registered strategy names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
