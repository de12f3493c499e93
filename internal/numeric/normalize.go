package numeric

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Num coerces a decoded JSON value to a float64. Strings are trimmed and may
// carry thousands separators. Anything unparsable is 0.
func Num(v any) float64 {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0
		}
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		return ParseFloat(x)
	default:
		return 0
	}
}

// ParseFloat parses a numeric string, tolerating whitespace and commas.
// Returns 0 on failure.
func ParseFloat(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ParseInt parses an integer string, tolerating whitespace. Returns 0 on
// failure. Fractional strings are truncated toward zero.
func ParseInt(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return int64(ParseFloat(s))
}

// Scalar decodes a raw JSON value (number or numeric string) to a float64.
func Scalar(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0
	}
	return Num(v)
}

// valueEntry is the nested shape some report fields arrive in:
// [{"values":[{"value": ...}]}, ...].
type valueEntry struct {
	Values []struct {
		Value json.RawMessage `json:"value"`
	} `json:"values"`
}

// ReadResults normalizes a results field. The source reports either a scalar
// or a list of value entries; list shapes are summed across all values.
func ReadResults(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	if isArray(raw) {
		var entries []valueEntry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return 0
		}
		var sum float64
		for _, e := range entries {
			for _, v := range e.Values {
				sum += Scalar(v.Value)
			}
		}
		return sum
	}
	return Scalar(raw)
}

// ReadCostPerResult normalizes a cost-per-result field. List shapes take the
// first value of the first entry; scalars pass through.
func ReadCostPerResult(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	if isArray(raw) {
		var entries []valueEntry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return 0
		}
		if len(entries) > 0 && len(entries[0].Values) > 0 {
			return Scalar(entries[0].Values[0].Value)
		}
		return 0
	}
	return Scalar(raw)
}

func isArray(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}

// minorUnits holds the currencies whose minor unit is not 2 decimal places.
var minorUnits = map[string]int{
	"JPY": 0, "KRW": 0, "VND": 0, "IDR": 0, "CLP": 0,
	"BHD": 3, "JOD": 3, "KWD": 3, "OMR": 3, "TND": 3, "LYD": 3, "IQD": 3,
}

// MinorUnitDigits returns the number of minor-unit decimal places for a
// currency code. Unknown currencies use 2.
func MinorUnitDigits(currency string) int {
	if d, ok := minorUnits[currency]; ok {
		return d
	}
	return 2
}

// MinorToMajor converts a minor-unit amount to major units for the given
// currency: zero-decimal currencies pass through, three-decimal currencies
// divide by 1000, all others divide by 100.
func MinorToMajor(minor int64, currency string) float64 {
	return float64(minor) / math.Pow10(MinorUnitDigits(currency))
}

// MinorStringToMajor converts a minor-unit amount given as a string.
func MinorStringToMajor(minor, currency string) float64 {
	return MinorToMajor(ParseInt(minor), currency)
}

// FormatMoney renders a minor-unit amount as a display string with the
// currency's own precision, e.g. "12.34 USD", "500 JPY", "0.500 KWD".
func FormatMoney(minor int64, currency string) string {
	d := MinorUnitDigits(currency)
	return strconv.FormatFloat(MinorToMajor(minor, currency), 'f', d, 64) + " " + currency
}
