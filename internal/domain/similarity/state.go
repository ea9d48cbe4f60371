package similarity

import "fmt"

// State is the serializable form of an Index.
type State struct {
	Terms []string
	IDF   []float64
	Rows  []Vector
}

// State exports the fitted index.
func (x *Index) State() (State, error) {
	if x == nil || x.rows == nil {
		return State{}, ErrNotTrained
	}
	return State{Terms: x.terms, IDF: x.idf, Rows: x.rows}, nil
}

// FromState restores an index exported by State.
func FromState(s State) (*Index, error) {
	if len(s.Rows) == 0 {
		return nil, ErrEmptyCorpus
	}
	if len(s.Terms) != len(s.IDF) {
		return nil, fmt.Errorf("%w: %d terms, %d idf weights", ErrBadState, len(s.Terms), len(s.IDF))
	}
	x := &Index{
		vocab: make(map[string]int, len(s.Terms)),
		terms: s.Terms,
		idf:   s.IDF,
		rows:  s.Rows,
	}
	for i, t := range s.Terms {
		x.vocab[t] = i
	}
	for i, r := range s.Rows {
		if len(r.Terms) != len(r.Weights) {
			return nil, fmt.Errorf("%w: row %d is ragged", ErrBadState, i)
		}
		for _, col := range r.Terms {
			if col < 0 || col >= len(s.Terms) {
				return nil, fmt.Errorf("%w: row %d references term %d", ErrBadState, i, col)
			}
		}
	}
	return x, nil
}
