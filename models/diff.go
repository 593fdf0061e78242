package models

import (
	"pherosim/catalog"
)

// Quantity is the value of one substance for one owner at a cell.
type Quantity struct {
	PheromoneType catalog.Type `json:"substanceType"`
	Quantity      float64      `json:"quantity"`
	OwnerID       int          `json:"ownerId"`
}

// Diff maps encoded position keys to the latest value written there. One diff holds
// writes of a single substance and owner, so a key identifies the write completely.
type Diff map[string]Quantity

// Put records a write, replacing any earlier write to the same position.
func (d Diff) Put(pos Position, typ catalog.Type, owner int, quantity float64) {
	d[pos.Key()] = Quantity{PheromoneType: typ, Quantity: quantity, OwnerID: owner}
}

// Merge copies other into d; entries of other win.
func (d Diff) Merge(other Diff) {
	for key, q := range other {
		d[key] = q
	}
}

// Each decodes every key and calls fn. Malformed keys are skipped and the first
// decoding error is returned after the walk.
func (d Diff) Each(fn func(Position, Quantity)) (err error) {
	for key, q := range d {
		pos, keyErr := ParseKey(key)
		if keyErr != nil {
			if err == nil {
				err = keyErr
			}
			continue
		}
		fn(pos, q)
	}
	return
}
