package model

import "strconv"

// Specs is the category-specific attribute set of a component. Each
// category has its own variant so attributes that do not apply to a
// category cannot be set on it.
type Specs interface {
	Category() Category
	// Attribute returns the textual value of name and whether it is present.
	Attribute(name string) (string, bool)
}

// CPUSpecs describes a processor.
type CPUSpecs struct {
	Socket             string
	Cores              *float64
	Threads            *float64
	BaseClock          *float64
	BoostClock         *float64
	TDP                *float64
	IntegratedGraphics string
}

// GPUSpecs describes a graphics card.
type GPUSpecs struct {
	VRAM       *float64
	CoreClock  *float64
	BoostClock *float64
	TDP        *float64
	LengthMM   *float64
}

// MotherboardSpecs describes a mainboard.
type MotherboardSpecs struct {
	Socket      string
	Chipset     string
	FormFactor  string
	MemoryType  string
	MemorySlots *float64
	MaxMemory   *float64
	M2Slots     *float64
	SATAPorts   *float64
}

// RAMSpecs describes a memory kit.
type RAMSpecs struct {
	MemoryType string
	Capacity   *float64
	Speed      *float64
	Modules    string
}

// StorageSpecs describes a drive.
type StorageSpecs struct {
	Interface string
	Capacity  string
	Type      string
}

// PSUSpecs describes a power supply.
type PSUSpecs struct {
	Wattage          *float64
	FormFactor       string
	EfficiencyRating string
}

// CaseSpecs describes a chassis.
type CaseSpecs struct {
	FormFactor         string
	MaxGPULength       *float64
	EstimatedPower     *float64
	DriveBays35        *float64
	RadiatorSupport    string
	MaxCPUCoolerHeight *float64
}

// CoolingSpecs describes a CPU cooler.
type CoolingSpecs struct {
	Type             string
	SupportedSockets string
	RadiatorSize     string
	HeightMM         *float64
}

func (CPUSpecs) Category() Category         { return CategoryCPU }
func (GPUSpecs) Category() Category         { return CategoryGPU }
func (MotherboardSpecs) Category() Category { return CategoryMotherboard }
func (RAMSpecs) Category() Category         { return CategoryRAM }
func (StorageSpecs) Category() Category     { return CategoryStorage }
func (PSUSpecs) Category() Category         { return CategoryPSU }
func (CaseSpecs) Category() Category        { return CategoryCase }
func (CoolingSpecs) Category() Category     { return CategoryCooling }

func (s CPUSpecs) Attribute(name string) (string, bool) {
	switch name {
	case "socket":
		return text(s.Socket)
	case "cores":
		return num(s.Cores)
	case "threads":
		return num(s.Threads)
	case "baseclock":
		return num(s.BaseClock)
	case "boostclock":
		return num(s.BoostClock)
	case "tdp":
		return num(s.TDP)
	case "integratedgraphics":
		return text(s.IntegratedGraphics)
	}
	return "", false
}

func (s GPUSpecs) Attribute(name string) (string, bool) {
	switch name {
	case "vram":
		return num(s.VRAM)
	case "core_clock":
		return num(s.CoreClock)
	case "boostclock":
		return num(s.BoostClock)
	case "tdp":
		return num(s.TDP)
	case "length_mm":
		return num(s.LengthMM)
	}
	return "", false
}

func (s MotherboardSpecs) Attribute(name string) (string, bool) {
	switch name {
	case "socket":
		return text(s.Socket)
	case "chipset":
		return text(s.Chipset)
	case "form_factor":
		return text(s.FormFactor)
	case "memory_type":
		return text(s.MemoryType)
	case "memory_slots":
		return num(s.MemorySlots)
	case "max_memory":
		return num(s.MaxMemory)
	case "m2_slots":
		return num(s.M2Slots)
	case "sata_ports":
		return num(s.SATAPorts)
	}
	return "", false
}

func (s RAMSpecs) Attribute(name string) (string, bool) {
	switch name {
	case "memory_type":
		return text(s.MemoryType)
	case "capacity":
		return num(s.Capacity)
	case "speed":
		return num(s.Speed)
	case "modules":
		return text(s.Modules)
	}
	return "", false
}

func (s StorageSpecs) Attribute(name string) (string, bool) {
	switch name {
	case "interface":
		return text(s.Interface)
	case "capacity":
		return text(s.Capacity)
	case "type":
		return text(s.Type)
	}
	return "", false
}

func (s PSUSpecs) Attribute(name string) (string, bool) {
	switch name {
	case "wattage":
		return num(s.Wattage)
	case "form_factor":
		return text(s.FormFactor)
	case "efficiency_rating":
		return text(s.EfficiencyRating)
	}
	return "", false
}

func (s CaseSpecs) Attribute(name string) (string, bool) {
	switch name {
	case "form_factor":
		return text(s.FormFactor)
	case "max_gpu_length":
		return num(s.MaxGPULength)
	case "estimated_power":
		return num(s.EstimatedPower)
	case "drive_bays_3_5":
		return num(s.DriveBays35)
	case "radiator_support":
		return text(s.RadiatorSupport)
	case "max_cpu_cooler_height":
		return num(s.MaxCPUCoolerHeight)
	}
	return "", false
}

func (s CoolingSpecs) Attribute(name string) (string, bool) {
	switch name {
	case "type":
		return text(s.Type)
	case "supported_sockets":
		return text(s.SupportedSockets)
	case "radiator_size":
		return text(s.RadiatorSize)
	case "height_mm":
		return num(s.HeightMM)
	}
	return "", false
}

func text(s string) (string, bool) { return s, s != "" }

func num(v *float64) (string, bool) {
	if v == nil {
		return "", false
	}
	return FormatNumber(*v), true
}

// FormatNumber renders v in its shortest form: 65 rather than 65.000000.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Float returns a pointer to v. Handy for literals in tests and loaders.
func Float(v float64) *float64 { return &v }
