// Package catalog holds the immutable catalog snapshot: the combined
// component set, its encoded documents and the fitted similarity index.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/okian/rigmatch/internal/domain/features"
	"github.com/okian/rigmatch/internal/domain/model"
	"github.com/okian/rigmatch/internal/domain/similarity"
)

// Meta identifies one snapshot version.
type Meta struct {
	Version     string
	Seq         uint64
	BuiltAt     time.Time
	Fingerprint string
}

// Snapshot is one immutable catalog version. Readers must not mutate any
// of its slices.
type Snapshot struct {
	Meta

	Components []model.Component
	Texts      []string
	Index      *similarity.Index

	byKey      map[model.Key][]int
	byCategory map[model.Category][]int
}

// Build encodes comps, fits the similarity index over all of them and
// returns a new snapshot with sequence seq.
func Build(comps []model.Component, seq uint64, opts ...similarity.Option) (*Snapshot, error) {
	if len(comps) == 0 {
		return nil, ErrEmptyCatalog
	}
	texts := Encode(comps)
	idx, err := similarity.Fit(texts, opts...)
	if err != nil {
		return nil, fmt.Errorf("fit similarity index: %w", err)
	}
	meta := Meta{
		Version:     uuid.NewString(),
		Seq:         seq,
		BuiltAt:     time.Now().UTC(),
		Fingerprint: Fingerprint(comps, texts),
	}
	return New(meta, comps, texts, idx)
}

// New assembles a snapshot from already computed parts, e.g. a stored model.
func New(meta Meta, comps []model.Component, texts []string, idx *similarity.Index) (*Snapshot, error) {
	if len(comps) == 0 {
		return nil, ErrEmptyCatalog
	}
	if len(texts) != len(comps) || idx.Len() != len(comps) {
		return nil, fmt.Errorf("%w: %d components, %d texts, %d rows",
			ErrMismatch, len(comps), len(texts), idx.Len())
	}
	s := &Snapshot{
		Meta:       meta,
		Components: comps,
		Texts:      texts,
		Index:      idx,
		byKey:      make(map[model.Key][]int, len(comps)),
		byCategory: make(map[model.Category][]int),
	}
	for i := range comps {
		k := comps[i].Key()
		s.byKey[k] = append(s.byKey[k], i)
		s.byCategory[k.Category] = append(s.byCategory[k.Category], i)
	}
	return s, nil
}

// Encode renders the feature document of every component.
func Encode(comps []model.Component) []string {
	texts := make([]string, len(comps))
	for i := range comps {
		texts[i] = features.EncodeComponent(&comps[i])
	}
	return texts
}

// Fingerprint hashes the identity, availability and encoded features of
// comps in order. Two catalogs with the same fingerprint build the same index.
func Fingerprint(comps []model.Component, texts []string) string {
	h := sha256.New()
	for i := range comps {
		c := &comps[i]
		h.Write([]byte(c.Category))
		h.Write([]byte{0})
		h.Write([]byte(strconv.Itoa(c.ID)))
		h.Write([]byte{0})
		h.Write([]byte(c.Availability.String()))
		h.Write([]byte{0})
		h.Write([]byte(c.ModelName))
		h.Write([]byte{0})
		if c.Price != nil {
			h.Write([]byte(model.FormatNumber(*c.Price)))
		}
		h.Write([]byte{0})
		if i < len(texts) {
			h.Write([]byte(texts[i]))
		}
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Len returns the number of components.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Components)
}

// Lookup returns the first component with key k.
func (s *Snapshot) Lookup(k model.Key) (*model.Component, bool) {
	pos, ok := s.Position(k)
	if !ok {
		return nil, false
	}
	return &s.Components[pos], true
}

// Position returns the catalog position of the first component with key k.
func (s *Snapshot) Position(k model.Key) (int, bool) {
	if s == nil {
		return 0, false
	}
	p := s.byKey[k]
	if len(p) == 0 {
		return 0, false
	}
	return p[0], true
}

// InCategory returns the catalog positions of category c in catalog order.
func (s *Snapshot) InCategory(c model.Category) []int {
	if s == nil {
		return nil
	}
	return s.byCategory[c]
}

// Counts returns the number of components per category.
func (s *Snapshot) Counts() map[model.Category]int {
	out := make(map[model.Category]int)
	if s == nil {
		return out
	}
	for c, p := range s.byCategory {
		out[c] = len(p)
	}
	return out
}
