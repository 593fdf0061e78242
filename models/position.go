package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Position is a cell coordinate. Rows grow downward: y+1 is the cell below.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ErrMalformedKey is returned when a position key is not of the form "x,y".
var ErrMalformedKey = errors.New("malformed position key")

// Add returns the position offset by dx, dy.
func (p Position) Add(dx, dy int) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Sub returns the offset from other to p.
func (p Position) Sub(other Position) Position {
	return Position{X: p.X - other.X, Y: p.Y - other.Y}
}

// Key encodes the position as "x,y".
func (p Position) Key() string {
	return strconv.Itoa(p.X) + "," + strconv.Itoa(p.Y)
}

func (p Position) String() string {
	return p.Key()
}

// ParseKey decodes a key produced by Key.
func ParseKey(key string) (pos Position, err error) {
	xs, ys, found := strings.Cut(key, ",")
	if !found {
		return pos, fmt.Errorf("%w: %q", ErrMalformedKey, key)
	}
	if pos.X, err = strconv.Atoi(xs); err != nil {
		return pos, fmt.Errorf("%w: %q: %v", ErrMalformedKey, key, err)
	}
	if pos.Y, err = strconv.Atoi(ys); err != nil {
		return pos, fmt.Errorf("%w: %q: %v", ErrMalformedKey, key, err)
	}
	return pos, nil
}

// Orthogonal returns the 4 edge-adjacent positions: up, right, down, left.
func (p Position) Orthogonal() [4]Position {
	return [4]Position{
		p.Add(0, -1),
		p.Add(1, 0),
		p.Add(0, 1),
		p.Add(-1, 0),
	}
}

// Moore returns the 8 positions surrounding p, orthogonal neighbors first.
func (p Position) Moore() [8]Position {
	return [8]Position{
		p.Add(0, -1),
		p.Add(1, 0),
		p.Add(0, 1),
		p.Add(-1, 0),
		p.Add(-1, -1),
		p.Add(1, -1),
		p.Add(1, 1),
		p.Add(-1, 1),
	}
}
