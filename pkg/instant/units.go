package instant

import (
	"strings"

	"github.com/glimpse-search/glimpse/pkg/types"
)

// unitClass groups units convertible among themselves.
type unitClass int

const (
	classLength unitClass = iota
	classMass
	classTemperature
	classVolume
	classDuration
)

// unitDef converts through an SI intermediate: meters, kilograms,
// kelvin, liters, seconds. toSI is the multiplier except for
// temperature, which has affine conversions handled separately.
type unitDef struct {
	class unitClass
	toSI  float64
}

var unitTable = map[string]unitDef{
	// length (SI: meter)
	"mm": {classLength, 0.001}, "millimeter": {classLength, 0.001}, "millimeters": {classLength, 0.001},
	"cm": {classLength, 0.01}, "centimeter": {classLength, 0.01}, "centimeters": {classLength, 0.01},
	"m": {classLength, 1}, "meter": {classLength, 1}, "meters": {classLength, 1},
	"km": {classLength, 1000}, "kilometer": {classLength, 1000}, "kilometers": {classLength, 1000},
	"in": {classLength, 0.0254}, "inch": {classLength, 0.0254}, "inches": {classLength, 0.0254},
	"ft": {classLength, 0.3048}, "foot": {classLength, 0.3048}, "feet": {classLength, 0.3048},
	"yd": {classLength, 0.9144}, "yard": {classLength, 0.9144}, "yards": {classLength, 0.9144},
	"mi": {classLength, 1609.344}, "mile": {classLength, 1609.344}, "miles": {classLength, 1609.344},

	// mass (SI: kilogram)
	"mg": {classMass, 1e-6}, "milligram": {classMass, 1e-6}, "milligrams": {classMass, 1e-6},
	"g": {classMass, 0.001}, "gram": {classMass, 0.001}, "grams": {classMass, 0.001},
	"kg": {classMass, 1}, "kilogram": {classMass, 1}, "kilograms": {classMass, 1},
	"t": {classMass, 1000}, "tonne": {classMass, 1000}, "tonnes": {classMass, 1000},
	"oz": {classMass, 0.028349523125}, "ounce": {classMass, 0.028349523125}, "ounces": {classMass, 0.028349523125},
	"lb": {classMass, 0.45359237}, "lbs": {classMass, 0.45359237}, "pound": {classMass, 0.45359237}, "pounds": {classMass, 0.45359237},

	// temperature (SI: kelvin, affine)
	"c": {classTemperature, 0}, "celsius": {classTemperature, 0},
	"f": {classTemperature, 0}, "fahrenheit": {classTemperature, 0},
	"k": {classTemperature, 0}, "kelvin": {classTemperature, 0},

	// volume (SI: liter)
	"ml": {classVolume, 0.001}, "milliliter": {classVolume, 0.001}, "milliliters": {classVolume, 0.001},
	"l": {classVolume, 1}, "liter": {classVolume, 1}, "liters": {classVolume, 1}, "litre": {classVolume, 1}, "litres": {classVolume, 1},
	"gal": {classVolume, 3.785411784}, "gallon": {classVolume, 3.785411784}, "gallons": {classVolume, 3.785411784},
	"pt": {classVolume, 0.473176473}, "pint": {classVolume, 0.473176473}, "pints": {classVolume, 0.473176473},
	"cup": {classVolume, 0.2365882365}, "cups": {classVolume, 0.2365882365},

	// duration (SI: second)
	"ms": {classDuration, 0.001}, "millisecond": {classDuration, 0.001}, "milliseconds": {classDuration, 0.001},
	"s": {classDuration, 1}, "sec": {classDuration, 1}, "second": {classDuration, 1}, "seconds": {classDuration, 1},
	"min": {classDuration, 60}, "minute": {classDuration, 60}, "minutes": {classDuration, 60},
	"h": {classDuration, 3600}, "hr": {classDuration, 3600}, "hour": {classDuration, 3600}, "hours": {classDuration, 3600},
	"d": {classDuration, 86400}, "day": {classDuration, 86400}, "days": {classDuration, 86400},
	"wk": {classDuration, 604800}, "week": {classDuration, 604800}, "weeks": {classDuration, 604800},
}

// ConvertUnits converts amount between two named units of the same
// class. Unknown units or class mismatches are validation errors.
func ConvertUnits(amount float64, from, to string) (float64, error) {
	fromDef, ok := unitTable[strings.ToLower(strings.TrimSpace(from))]
	if !ok {
		return 0, types.NewError(types.KindValidation, "unknown unit "+from)
	}
	toDef, ok := unitTable[strings.ToLower(strings.TrimSpace(to))]
	if !ok {
		return 0, types.NewError(types.KindValidation, "unknown unit "+to)
	}
	if fromDef.class != toDef.class {
		return 0, types.NewError(types.KindValidation,
			"cannot convert "+from+" to "+to)
	}
	if fromDef.class == classTemperature {
		return convertTemperature(amount, from, to)
	}
	return amount * fromDef.toSI / toDef.toSI, nil
}

func convertTemperature(amount float64, from, to string) (float64, error) {
	var kelvin float64
	switch normTemp(from) {
	case "c":
		kelvin = amount + 273.15
	case "f":
		kelvin = (amount-32)*5/9 + 273.15
	case "k":
		kelvin = amount
	}
	switch normTemp(to) {
	case "c":
		return kelvin - 273.15, nil
	case "f":
		return (kelvin-273.15)*9/5 + 32, nil
	default:
		return kelvin, nil
	}
}

func normTemp(u string) string {
	switch strings.ToLower(strings.TrimSpace(u)) {
	case "c", "celsius":
		return "c"
	case "f", "fahrenheit":
		return "f"
	default:
		return "k"
	}
}
