package carbon

import (
	"sort"

	"github.com/rotisserie/eris"
)

// FactorMethod is a named emission-factor table for activity-based
// footprint estimates. Factors are kg CO2e per activity unit.
type FactorMethod struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Version     string             `json:"version"`
	Description string             `json:"description"`
	Factors     map[string]float64 `json:"factors"`
}

var factorMethods = map[string]FactorMethod{
	"ipcc": {
		ID:          "ipcc",
		Name:        "IPCC Guidelines",
		Version:     "2006",
		Description: "Intergovernmental Panel on Climate Change calculation methods",
		Factors: map[string]float64{
			"electricity": 0.5, // per kWh
			"naturalGas":  2.0, // per m3
			"diesel":      2.7, // per liter
			"gasoline":    2.3, // per liter
			"waste":       0.5, // per kg
			"water":       0.3, // per m3
			"paper":       0.8, // per kg
			"travel":      0.2, // per km
		},
	},
	"ghg-protocol": {
		ID:          "ghg-protocol",
		Name:        "GHG Protocol",
		Version:     "2015",
		Description: "Greenhouse Gas Protocol calculation methods",
		Factors: map[string]float64{
			"electricity": 0.6,
			"naturalGas":  2.1,
			"diesel":      2.8,
			"gasoline":    2.4,
			"waste":       0.6,
			"water":       0.4,
			"paper":       0.9,
			"travel":      0.25,
		},
	},
}

// Methods lists the available factor tables in a stable order.
func Methods() []FactorMethod {
	keys := make([]string, 0, len(factorMethods))
	for k := range factorMethods {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]FactorMethod, 0, len(keys))
	for _, k := range keys {
		out = append(out, factorMethods[k])
	}
	return out
}

// Footprint sums activity data against the chosen factor table. Activities
// without a factor are ignored.
func Footprint(activity map[string]float64, method string) (float64, error) {
	fm, ok := factorMethods[method]
	if !ok {
		return 0, eris.Errorf("carbon: calculation method %s not found", method)
	}

	total := 0.0
	for name, value := range activity {
		if factor, ok := fm.Factors[name]; ok {
			total += value * factor
		}
	}
	return total, nil
}
