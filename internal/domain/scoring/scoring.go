// Package scoring computes rule-based compatibility scores of a candidate
// component against a partial build.
package scoring

import (
	"math"
	"strings"

	"github.com/okian/rigmatch/internal/domain/model"
)

// Rule weights.
const (
	cpuSocketWeight      = 0.5
	ramMemoryWeight      = 0.5
	gpuLengthWeight      = 0.3
	gpuPowerWeight       = 0.2
	storageBusWeight     = 0.4
	storageBayWeight     = 0.1
	coolerSocketWeight   = 0.5
	coolerRadiatorWeight = 0.3
	coolerHeightWeight   = 0.2
	maxScoreValue        = 1.0

	// DefaultPSUHeadroom is the wattage a PSU must exceed a GPU's TDP by.
	DefaultPSUHeadroom = 100.0
)

// Option applies a configuration option to the RuleScorer.
type Option func(*RuleScorer)

// WithPSUHeadroom sets the required PSU headroom over GPU TDP in watts.
func WithPSUHeadroom(watts float64) Option {
	return func(s *RuleScorer) {
		if watts >= 0 {
			s.psuHeadroom = watts
		}
	}
}

// Lookup resolves a build reference to a catalog component.
type Lookup interface {
	Lookup(key model.Key) (*model.Component, bool)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(key model.Key) (*model.Component, bool)

// Lookup implements Lookup.
func (f LookupFunc) Lookup(key model.Key) (*model.Component, bool) { return f(key) }

// Result contains the compatibility score and the notes explaining it.
type Result struct {
	Score float64
	Notes []string
}

// Scorer computes compatibility of a candidate with a build.
type Scorer interface {
	Score(candidate *model.Component, build model.Build, lookup Lookup) Result
}

// RuleScorer implements Scorer with fixed hardware fit rules. Rules whose
// build component is absent or unresolved are skipped without a note. A
// rule whose attributes are missing on either side contributes nothing and
// reports its negative note.
type RuleScorer struct {
	psuHeadroom float64
}

// NewRuleScorer creates a rule scorer with configuration options.
func NewRuleScorer(opts ...Option) *RuleScorer {
	s := &RuleScorer{psuHeadroom: DefaultPSUHeadroom}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the compatibility of candidate with build.
func (s *RuleScorer) Score(candidate *model.Component, build model.Build, lookup Lookup) Result {
	if candidate == nil {
		return Result{}
	}
	r := &accumulator{}
	ref := func(c model.Category) (*model.Component, bool) {
		id, ok := build[c]
		if !ok || lookup == nil {
			return nil, false
		}
		return lookup.Lookup(model.Key{ID: id, Category: c})
	}

	switch spec := candidate.Specs.(type) {
	case model.CPUSpecs:
		if mobo, ok := ref(model.CategoryMotherboard); ok {
			socket, _ := mobo.Attribute("socket")
			r.check(sameText(socket, spec.Socket), cpuSocketWeight,
				"Socket compatible with motherboard", "Socket mismatch with motherboard")
		}
	case model.RAMSpecs:
		if mobo, ok := ref(model.CategoryMotherboard); ok {
			memType, _ := mobo.Attribute("memory_type")
			r.check(sameText(memType, spec.MemoryType), ramMemoryWeight,
				"Memory type compatible", "Memory type mismatch")
		}
	case model.GPUSpecs:
		if pc, ok := ref(model.CategoryCase); ok {
			maxLen := numAttr(pc, "max_gpu_length")
			r.check(atLeast(maxLen, spec.LengthMM, 0), gpuLengthWeight,
				"Fits in selected case", "May not fit in case")
		}
		if psu, ok := ref(model.CategoryPSU); ok {
			watts := numAttr(psu, "wattage")
			r.check(atLeast(watts, spec.TDP, s.psuHeadroom), gpuPowerWeight,
				"Sufficient PSU power", "Check PSU wattage")
		}
	case model.StorageSpecs:
		s.storage(r, strings.ToLower(spec.Interface), ref)
	case model.CoolingSpecs:
		s.cooling(r, spec, ref)
	}

	return Result{Score: math.Max(0, math.Min(maxScoreValue, r.score)), Notes: r.notes}
}

func (s *RuleScorer) storage(r *accumulator, iface string, ref func(model.Category) (*model.Component, bool)) {
	mobo, ok := ref(model.CategoryMotherboard)
	if !ok {
		return
	}
	switch {
	case strings.Contains(iface, "m.2") || strings.Contains(iface, "nvme"):
		r.check(positive(numAttr(mobo, "m2_slots")), storageBusWeight,
			"M.2 slot available on motherboard", "No M.2 slots on motherboard")
	case strings.Contains(iface, "sata"):
		r.check(positive(numAttr(mobo, "sata_ports")), storageBusWeight,
			"SATA ports available", "No SATA ports available")
	}
	// the bay rule only applies alongside a motherboard
	if pc, ok := ref(model.CategoryCase); ok && strings.Contains(iface, "3.5") {
		r.check(positive(numAttr(pc, "drive_bays_3_5")), storageBayWeight,
			`3.5" drive bay available in case`, `No 3.5" drive bays in case`)
	}
}

func (s *RuleScorer) cooling(r *accumulator, spec model.CoolingSpecs, ref func(model.Category) (*model.Component, bool)) {
	if cpu, ok := ref(model.CategoryCPU); ok {
		socket, _ := cpu.Attribute("socket")
		socket = strings.TrimSpace(socket)
		fits := socket != "" && strings.Contains(strings.ToLower(spec.SupportedSockets), strings.ToLower(socket))
		label := orUnknown(socket)
		r.check(fits, coolerSocketWeight,
			"Compatible with "+label+" socket", "Not compatible with "+label+" socket")
	}

	pc, ok := ref(model.CategoryCase)
	if !ok {
		return
	}
	switch coolerKind(spec.Type) {
	case "liquid":
		support, _ := pc.Attribute("radiator_support")
		size := strings.TrimSpace(spec.RadiatorSize)
		fits := size != "" && support != "" && strings.Contains(strings.ToLower(support), strings.ToLower(size))
		label := orUnknown(size)
		r.check(fits, coolerRadiatorWeight,
			label+" radiator supported by case", label+" radiator may not fit in case")
	case "air":
		clearance := numAttr(pc, "max_cpu_cooler_height")
		fits := spec.HeightMM != nil && clearance != nil && *spec.HeightMM <= *clearance
		label := "unknown"
		if clearance != nil {
			label = model.FormatNumber(*clearance)
		}
		r.check(fits, coolerHeightWeight,
			"Fits within case cooler clearance ("+label+"mm)",
			"May exceed case cooler clearance ("+label+"mm)")
	}
}

type accumulator struct {
	score float64
	notes []string
}

func (a *accumulator) check(ok bool, weight float64, pass, fail string) {
	if ok {
		a.score += weight
		a.notes = append(a.notes, pass)
		return
	}
	a.notes = append(a.notes, fail)
}

func coolerKind(t string) string {
	t = strings.Join(strings.Fields(strings.ToLower(strings.ReplaceAll(t, "_", " "))), " ")
	switch t {
	case "liquid", "aio":
		return "liquid"
	case "air", "cpu cooler":
		return "air"
	}
	return ""
}

func sameText(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && b != "" && strings.EqualFold(a, b)
}

// atLeast reports whether have >= need + margin with both present.
func atLeast(have, need *float64, margin float64) bool {
	return have != nil && need != nil && *have >= *need+margin
}

func positive(v *float64) bool { return v != nil && *v > 0 }

func numAttr(c *model.Component, name string) *float64 {
	switch spec := c.Specs.(type) {
	case model.MotherboardSpecs:
		switch name {
		case "m2_slots":
			return spec.M2Slots
		case "sata_ports":
			return spec.SATAPorts
		}
	case model.CaseSpecs:
		switch name {
		case "max_gpu_length":
			return spec.MaxGPULength
		case "drive_bays_3_5":
			return spec.DriveBays35
		case "max_cpu_cooler_height":
			return spec.MaxCPUCoolerHeight
		}
	case model.PSUSpecs:
		if name == "wattage" {
			return spec.Wattage
		}
	}
	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
