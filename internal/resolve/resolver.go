// =============================================================================
// Meter Aggregator - Quantity Resolver
// =============================================================================
//
// This module maps raw meter identifiers to the two semantic quantities,
// consumption (Bezug) and feed-in (Einspeisung).
//
// PERIODIC DIALECT:
//   Four fixed OBIS register codes, two per quantity. A quantity is the sum of
//   its two sub-registers, and only when both are present in the period.
//
//     1-1:1.8.1 + 1-1:1.8.2  ->  Bezug
//     1-1:2.8.1 + 1-1:2.8.2  ->  Einspeisung
//
// INTERVAL DIALECT:
//   The document identity is matched against two marker substrings.
//
//     ...ID742...  ->  Bezug
//     ...ID735...  ->  Einspeisung
//     otherwise    ->  Unknown (kept in the pipeline, flagged as a warning)
//
// The tables are fixed. Register-code taxonomies beyond these four codes are
// out of scope.
//
// =============================================================================

package resolve

import (
	"strings"

	"github.com/ginjaninja78/meteragg/internal/types"
)

// =============================================================================
// REGISTER CODES
// =============================================================================

const (
	ConsumptionHigh = "1-1:1.8.1"
	ConsumptionLow  = "1-1:1.8.2"
	FeedInHigh      = "1-1:2.8.1"
	FeedInLow       = "1-1:2.8.2"
)

// registerPairs lists the two sub-registers summed into each quantity.
var registerPairs = map[types.Quantity][2]string{
	types.Consumption: {ConsumptionHigh, ConsumptionLow},
	types.FeedIn:      {FeedInHigh, FeedInLow},
}

// Registers returns the two sub-register codes of q. ok is false when q is not
// a register quantity.
func Registers(q types.Quantity) (codes [2]string, ok bool) {
	codes, ok = registerPairs[q]
	return codes, ok
}

// IsRegister reports whether code is one of the four recognised registers.
func IsRegister(code string) bool {
	for _, pair := range registerPairs {
		if code == pair[0] || code == pair[1] {
			return true
		}
	}
	return false
}

// Periodic resolves a period's register mapping into a quantity pair.
//
// PARAMETERS:
//   - registers: Register code to value for one period.
//
// RETURNS:
//   - A Pair whose quantities are nil unless both of their sub-registers are
//     present. A single sub-register never yields a partial sum.
func Periodic(registers map[string]float64) types.Pair {
	var pair types.Pair
	for _, q := range types.Quantities {
		codes := registerPairs[q]
		a, okA := registers[codes[0]]
		b, okB := registers[codes[1]]
		if okA && okB {
			pair.Set(q, types.Float(a+b))
		}
	}
	return pair
}

// Incomplete returns the quantities for which exactly one of the two
// sub-registers is present.
func Incomplete(registers map[string]float64) []types.Quantity {
	var out []types.Quantity
	for _, q := range types.Quantities {
		codes := registerPairs[q]
		_, okA := registers[codes[0]]
		_, okB := registers[codes[1]]
		if okA != okB {
			out = append(out, q)
		}
	}
	return out
}

// =============================================================================
// DOCUMENT IDENTITY MARKERS
// =============================================================================

const (
	// ConsumptionMarker identifies a consumption load profile. It doubles as
	// the consumption sensor identifier in series exports.
	ConsumptionMarker = "ID742"

	// FeedInMarker identifies a feed-in load profile.
	FeedInMarker = "ID735"
)

// Label classifies an interval document by its identity string. An identity
// matching neither marker yields types.Unknown.
func Label(documentID string) types.Quantity {
	switch {
	case strings.Contains(documentID, ConsumptionMarker):
		return types.Consumption
	case strings.Contains(documentID, FeedInMarker):
		return types.FeedIn
	default:
		return types.Unknown
	}
}

// SensorID maps a quantity label back to its sensor identifier for the
// Sensor_ID column. Everything that is not consumption is written as feed-in.
func SensorID(label types.Quantity) string {
	if label == types.Consumption {
		return ConsumptionMarker
	}
	return FeedInMarker
}
