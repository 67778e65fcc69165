// internal/registers/catalog.go
package registers

import "fmt"

// Def describes one holding register and how to decode it.
// Defs are immutable once the catalog is built.
type Def struct {
	Address uint16
	Name    string

	// Signed reinterprets the word as two's-complement int16.
	Signed bool

	// Multiplier scales the (possibly signed) value. Nil means no scaling.
	Multiplier *float64

	// RoundDigits rounds the scaled value to this many decimals. Nil means no rounding.
	RoundDigits *int
}

// Option customizes a Def built with Reg.
type Option func(*Def)

// Signed marks the register as two's-complement.
func Signed() Option {
	return func(d *Def) { d.Signed = true }
}

// Scale sets a multiplier.
func Scale(m float64) Option {
	return func(d *Def) { d.Multiplier = &m }
}

// Round sets the number of decimal digits kept.
func Round(digits int) Option {
	return func(d *Def) { d.RoundDigits = &digits }
}

// Reg builds a Def.
func Reg(addr uint16, name string, opts ...Option) Def {
	d := Def{Address: addr, Name: name}
	for _, o := range opts {
		o(&d)
	}
	return d
}

// temperature is the decode rule shared by every LTO temperature/voltage
// register: signed tenths, rounded to 3 digits.
func temperature(addr uint16, name string) Def {
	return Reg(addr, name, Signed(), Scale(0.1), Round(3))
}

// LTO returns the built-in catalog for the LTO air handling unit.
// A fresh slice is returned on every call.
func LTO() []Def {
	return []Def{
		Reg(3, "fan_speed_supply"),
		Reg(4, "fan_speed_exhaust"),
		temperature(6, "temp_air_intake"),
		temperature(7, "temp_air_supply_hrc"),
		temperature(8, "temp_air_supply"),
		temperature(9, "temp_air_out_post"),
		temperature(10, "temp_air_out_pre"),

		temperature(12, "temp_water_return"),
		Reg(13, "hum_air_out_pre"),

		Reg(29, "eff_supply"),
		Reg(30, "eff_exhaust"),
		Reg(35, "hum_air_out_pre_48h"),

		temperature(47, "temp_air_setpoint"),
		temperature(134, "temp_air_intake_avg"),
		temperature(137, "summer_winter_threshold"),

		temperature(782, "ctrl_ao3_v_cool_water"),
		temperature(784, "ctrl_ao5_v_heat_water"),
	}
}

// CheckSorted verifies addresses are strictly ascending (sorted, unique)
// and names are non-empty and unique.
func CheckSorted(defs []Def) error {
	names := make(map[string]struct{}, len(defs))
	for i, d := range defs {
		if d.Name == "" {
			return fmt.Errorf("registers: entry %d (address %d) has no name", i, d.Address)
		}
		if _, dup := names[d.Name]; dup {
			return fmt.Errorf("registers: duplicate name %q", d.Name)
		}
		names[d.Name] = struct{}{}

		if d.RoundDigits != nil && *d.RoundDigits < 0 {
			return fmt.Errorf("registers: %q round must be >= 0", d.Name)
		}

		if i > 0 && d.Address <= defs[i-1].Address {
			return fmt.Errorf(
				"registers: address %d (%q) not ascending after %d (%q)",
				d.Address, d.Name, defs[i-1].Address, defs[i-1].Name,
			)
		}
	}
	return nil
}
