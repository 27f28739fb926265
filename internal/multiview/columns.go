package multiview

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Columns is the ordered-list model of the two columns. Every method returns a
// new value and leaves the receiver untouched, so callers can compare before
// and after or discard a rejected move.
type Columns struct {
	Left  []StreamID
	Right []StreamID
}

// Column returns the ids of one side.
func (c Columns) Column(side Side) []StreamID {
	if side == SideRight {
		return c.Right
	}
	return c.Left
}

// Len returns the number of ids across both columns.
func (c Columns) Len() int {
	return len(c.Left) + len(c.Right)
}

// IDs returns every id in layout order: left column first, then right.
func (c Columns) IDs() []StreamID {
	out := make([]StreamID, 0, c.Len())
	out = append(out, c.Left...)
	return append(out, c.Right...)
}

// Locate returns the side and position of id.
func (c Columns) Locate(id StreamID) (Side, int, bool) {
	if i := slices.Index(c.Left, id); i >= 0 {
		return SideLeft, i, true
	}
	if i := slices.Index(c.Right, id); i >= 0 {
		return SideRight, i, true
	}
	return "", -1, false
}

// Contains reports whether id is in either column.
func (c Columns) Contains(id StreamID) bool {
	_, _, ok := c.Locate(id)
	return ok
}

// Full reports whether side is at ColumnCapacity.
func (c Columns) Full(side Side) bool {
	return len(c.Column(side)) >= ColumnCapacity
}

// Equal reports whether both columns hold the same ids in the same order.
func (c Columns) Equal(o Columns) bool {
	return slices.Equal(c.Left, o.Left) && slices.Equal(c.Right, o.Right)
}

// Append adds id to the end of side. Capacity is the caller's concern.
func (c Columns) Append(side Side, id StreamID) Columns {
	out := c.clone()
	out.set(side, append(out.Column(side), id))
	return out
}

// Remove drops id from whichever column holds it.
func (c Columns) Remove(id StreamID) Columns {
	side, i, ok := c.Locate(id)
	if !ok {
		return c
	}
	out := c.clone()
	out.set(side, slices.Delete(out.Column(side), i, i+1))
	return out
}

// Step moves id delta positions within its own column. It reports false when
// id is absent or the move would leave the column.
func (c Columns) Step(id StreamID, delta int) (Columns, bool) {
	side, i, ok := c.Locate(id)
	if !ok || delta == 0 {
		return c, false
	}
	j := i + delta
	col := c.Column(side)
	if j < 0 || j >= len(col) {
		return c, false
	}
	out := c.clone()
	moved := slices.Delete(out.Column(side), i, i+1)
	out.set(side, slices.Insert(moved, j, id))
	return out, true
}

// MoveBefore relocates id next to target: before it, or after it when after is
// true. The target may sit in the other column; that move is refused when the
// other column is already full.
func (c Columns) MoveBefore(id, target StreamID, after bool) (Columns, bool) {
	if id == target {
		return c, false
	}
	fromSide, _, ok := c.Locate(id)
	if !ok {
		return c, false
	}
	toSide, _, ok := c.Locate(target)
	if !ok {
		return c, false
	}
	if fromSide != toSide && c.Full(toSide) {
		return c, false
	}

	out := c.Remove(id)
	_, j, _ := out.Locate(target)
	if after {
		j++
	}
	out.set(toSide, slices.Insert(out.Column(toSide), j, id))
	if out.Equal(c) {
		return c, false
	}
	return out, true
}

// MoveToColumn appends id to the end of side. It reports false without error
// when id is absent or already on side.
func (c Columns) MoveToColumn(id StreamID, side Side) (Columns, bool, error) {
	from, _, ok := c.Locate(id)
	if !ok || from == side {
		return c, false, nil
	}
	if c.Full(side) {
		return c, false, ErrTargetColumnFull
	}
	return c.Remove(id).Append(side, id), true, nil
}

// Redistribute deals the ids in layout order into a left column of at most
// leftMax and a right column of at most rightMax. Both limits are clamped to
// ColumnCapacity; ids that do not fit fill whatever capacity remains, left
// first, so no id is dropped.
func (c Columns) Redistribute(leftMax, rightMax int) Columns {
	leftMax = clamp(leftMax, 0, ColumnCapacity)
	rightMax = clamp(rightMax, 0, ColumnCapacity)

	all := c.IDs()
	var out Columns
	var rest []StreamID
	for _, id := range all {
		switch {
		case len(out.Left) < leftMax:
			out.Left = append(out.Left, id)
		case len(out.Right) < rightMax:
			out.Right = append(out.Right, id)
		default:
			rest = append(rest, id)
		}
	}
	for _, id := range rest {
		if !out.Full(SideLeft) {
			out.Left = append(out.Left, id)
		} else {
			out.Right = append(out.Right, id)
		}
	}
	return out
}

// ParsePreset parses an "L-R" preset such as "3-3" or "2-3". The second return
// is false for "auto" or an empty value, which leave the layout as it is.
func ParsePreset(preset string) (leftMax, rightMax int, apply bool, err error) {
	preset = strings.TrimSpace(preset)
	if preset == "" || preset == "auto" {
		return 0, 0, false, nil
	}
	l, r, ok := strings.Cut(preset, "-")
	if !ok {
		return 0, 0, false, fmt.Errorf("%w: %q", ErrInvalidPreset, preset)
	}
	leftMax, lerr := strconv.Atoi(l)
	rightMax, rerr := strconv.Atoi(r)
	if lerr != nil || rerr != nil || leftMax < 0 || rightMax < 0 {
		return 0, 0, false, fmt.Errorf("%w: %q", ErrInvalidPreset, preset)
	}
	return leftMax, rightMax, true, nil
}

func (c Columns) clone() Columns {
	return Columns{Left: slices.Clone(c.Left), Right: slices.Clone(c.Right)}
}

func (c *Columns) set(side Side, ids []StreamID) {
	if side == SideRight {
		c.Right = ids
	} else {
		c.Left = ids
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
