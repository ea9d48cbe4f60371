package model

import "strconv"

// attributeNames lists the spec attributes of each category in column order.
var attributeNames = map[Category][]string{
	CategoryCPU:         {"socket", "cores", "threads", "baseclock", "boostclock", "tdp", "integratedgraphics"},
	CategoryGPU:         {"vram", "core_clock", "boostclock", "tdp", "length_mm"},
	CategoryMotherboard: {"socket", "chipset", "form_factor", "memory_type", "memory_slots", "max_memory", "m2_slots", "sata_ports"},
	CategoryRAM:         {"memory_type", "capacity", "speed", "modules"},
	CategoryStorage:     {"interface", "capacity", "type"},
	CategoryPSU:         {"wattage", "form_factor", "efficiency_rating"},
	CategoryCase:        {"form_factor", "max_gpu_length", "estimated_power", "drive_bays_3_5", "radiator_support", "max_cpu_cooler_height"},
	CategoryCooling:     {"type", "supported_sockets", "radiator_size", "height_mm"},
}

// Fields flattens the component into the row form accepted by Decode.
// Absent attributes are left out.
func (c *Component) Fields() map[string]string {
	out := map[string]string{"id": strconv.Itoa(c.ID)}
	if c.ModelName != "" {
		out["model_name"] = c.ModelName
	}
	if c.Brand != "" {
		out["brand"] = c.Brand
	}
	if c.Price != nil {
		out["price"] = FormatNumber(*c.Price)
	}
	if c.Specs == nil {
		return out
	}
	for _, name := range attributeNames[c.Category] {
		if v, ok := c.Specs.Attribute(name); ok {
			out[name] = v
		}
	}
	return out
}
