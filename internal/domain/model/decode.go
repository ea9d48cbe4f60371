package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// columnAliases maps source column spellings onto attribute names.
var columnAliases = map[string]string{
	"drive_bays_3.5": "drive_bays_3_5",
	"name":           "model_name",
}

// Decode builds a component of category c from a loosely typed row such as a
// CSV record or an SQL row. Blank and null-like values are treated as absent,
// as are numbers that fail to parse. Only the id is mandatory.
func Decode(c Category, fields map[string]string) (Component, error) {
	if !c.Valid() {
		return Component{}, fmt.Errorf("%w: %q", ErrUnknownCategory, string(c))
	}

	row := make(map[string]string, len(fields))
	for k, v := range fields {
		k = strings.ToLower(strings.TrimSpace(k))
		if alias, ok := columnAliases[k]; ok {
			k = alias
		}
		v = strings.TrimSpace(v)
		if isNull(v) {
			continue
		}
		// keep the first spelling when an alias collides with a real column
		if _, exists := row[k]; !exists {
			row[k] = v
		}
	}

	idVal, ok := parseNumber(row["id"])
	if !ok {
		return Component{}, fmt.Errorf("%w: %q", ErrMissingID, fields["id"])
	}
	id, ok := IntValue(idVal)
	if !ok {
		return Component{}, fmt.Errorf("%w: %q", ErrMissingID, fields["id"])
	}

	comp := Component{
		ID:        id,
		Category:  c,
		ModelName: row["model_name"],
		Brand:     row["brand"],
	}
	if p, ok := parseNumber(row["price"]); ok {
		comp.Price = &p
	}

	f := func(name string) *float64 {
		v, ok := parseNumber(row[name])
		if !ok {
			return nil
		}
		return &v
	}

	switch c {
	case CategoryCPU:
		comp.Specs = CPUSpecs{
			Socket:             row["socket"],
			Cores:              f("cores"),
			Threads:            f("threads"),
			BaseClock:          f("baseclock"),
			BoostClock:         f("boostclock"),
			TDP:                f("tdp"),
			IntegratedGraphics: row["integratedgraphics"],
		}
	case CategoryGPU:
		comp.Specs = GPUSpecs{
			VRAM:       f("vram"),
			CoreClock:  f("core_clock"),
			BoostClock: f("boostclock"),
			TDP:        f("tdp"),
			LengthMM:   f("length_mm"),
		}
	case CategoryMotherboard:
		comp.Specs = MotherboardSpecs{
			Socket:      row["socket"],
			Chipset:     row["chipset"],
			FormFactor:  row["form_factor"],
			MemoryType:  row["memory_type"],
			MemorySlots: f("memory_slots"),
			MaxMemory:   f("max_memory"),
			M2Slots:     f("m2_slots"),
			SATAPorts:   f("sata_ports"),
		}
	case CategoryRAM:
		comp.Specs = RAMSpecs{
			MemoryType: row["memory_type"],
			Capacity:   f("capacity"),
			Speed:      f("speed"),
			Modules:    row["modules"],
		}
	case CategoryStorage:
		comp.Specs = StorageSpecs{
			Interface: row["interface"],
			Capacity:  row["capacity"],
			Type:      row["type"],
		}
	case CategoryPSU:
		comp.Specs = PSUSpecs{
			Wattage:          f("wattage"),
			FormFactor:       row["form_factor"],
			EfficiencyRating: row["efficiency_rating"],
		}
	case CategoryCase:
		comp.Specs = CaseSpecs{
			FormFactor:         row["form_factor"],
			MaxGPULength:       f("max_gpu_length"),
			EstimatedPower:     f("estimated_power"),
			DriveBays35:        f("drive_bays_3_5"),
			RadiatorSupport:    row["radiator_support"],
			MaxCPUCoolerHeight: f("max_cpu_cooler_height"),
		}
	case CategoryCooling:
		comp.Specs = CoolingSpecs{
			Type:             row["type"],
			SupportedSockets: row["supported_sockets"],
			RadiatorSize:     row["radiator_size"],
			HeightMM:         f("height_mm"),
		}
	}
	return comp, nil
}

func isNull(v string) bool {
	switch strings.ToLower(v) {
	case "", "null", "nan", "none", "<nil>":
		return true
	}
	return false
}

// IntValue converts a whole number within the int range.
func IntValue(f float64) (int, bool) {
	if f != math.Trunc(f) || f < math.MinInt || f >= -math.MinInt {
		return 0, false
	}
	return int(f), true
}

func parseNumber(v string) (float64, bool) {
	if v == "" {
		return 0, false
	}
	x, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, false
	}
	return x, true
}
