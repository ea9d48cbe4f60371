// Package features turns component attributes into the flat text documents
// the similarity index is fitted on.
package features

import (
	"strings"

	"github.com/okian/rigmatch/internal/domain/model"
)

// Attributer exposes named textual attributes.
type Attributer interface {
	Attribute(name string) (string, bool)
}

var schemas = map[model.Category][]string{
	model.CategoryCPU:         {"brand", "socket", "cores", "threads", "baseclock", "boostclock", "tdp", "integratedgraphics"},
	model.CategoryGPU:         {"brand", "vram", "core_clock", "boostclock", "tdp", "length_mm"},
	model.CategoryMotherboard: {"brand", "socket", "chipset", "form_factor", "memory_type", "memory_slots", "max_memory"},
	model.CategoryRAM:         {"memory_type", "capacity", "speed", "modules"},
	model.CategoryStorage:     {"brand", "interface", "capacity", "type"},
	model.CategoryPSU:         {"brand", "wattage", "form_factor", "efficiency_rating"},
	model.CategoryCase:        {"brand", "form_factor", "max_gpu_length", "estimated_power"},
	model.CategoryCooling:     {"type", "supported_sockets"},
}

// Schema returns the feature attribute names of c in encoding order.
// Unknown categories have no schema.
func Schema(c model.Category) []string {
	s := schemas[c]
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// Encode renders the named attributes as "name value" pairs joined by a
// single space. Absent or blank attributes are skipped.
func Encode(attrs Attributer, names []string) string {
	var b strings.Builder
	for _, name := range names {
		v, ok := attrs.Attribute(name)
		if !ok {
			continue
		}
		v = normalize(v)
		if v == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(name)
		b.WriteByte(' ')
		b.WriteString(v)
	}
	return b.String()
}

// EncodeComponent encodes c using its category schema.
func EncodeComponent(c *model.Component) string {
	return Encode(c, schemas[c.Category])
}

func normalize(v string) string {
	v = strings.ToLower(strings.ReplaceAll(v, "_", " "))
	return strings.Join(strings.Fields(v), " ")
}
