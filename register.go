package qalarm

import (
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"
)

// Cell indices used by the safety program.
const (
	CellGas         = 0
	CellTemperature = 1
	CellAlarm       = 2
)

/*
Register holds the cells a program operates on and the classical slots that
measurements write into. A fresh register is allocated for every shot, so a
Register is never shared between goroutines.
*/
type Register struct {
	cells    []Qubit
	slots    []Bit
	recorded []bool
}

// NewRegister allocates numCells cells, all |0⟩, and numSlots unwritten
// classical slots.
func NewRegister(numCells, numSlots int) (*Register, error) {
	if numCells < 0 || numSlots < 0 {
		return nil, fmt.Errorf(
			"%w: register size must be non-negative, got %d cells and %d slots",
			ErrInvalidArgument, numCells, numSlots,
		)
	}

	return &Register{
		cells:    make([]Qubit, numCells),
		slots:    make([]Bit, numSlots),
		recorded: make([]bool, numSlots),
	}, nil
}

func (r *Register) NumCells() int { return len(r.cells) }
func (r *Register) NumSlots() int { return len(r.slots) }

// Cell returns the current value of a cell.
func (r *Register) Cell(index int) (Bit, error) {
	if err := r.checkCell(index); err != nil {
		return Zero, err
	}
	return r.cells[index].Value(), nil
}

// SetOne forces a cell to |1⟩.
func (r *Register) SetOne(index int) error {
	if err := r.checkCell(index); err != nil {
		return err
	}
	r.cells[index].SetOne()
	return nil
}

/*
ControlledInvert flips the target cell if and only if every control cell
holds 1. With two controls this is the Toffoli (CCX) gate, with one it is
CNOT, and with none it is a plain X.

The target may not appear among the controls; a gate that controls on its
own target is not reversible.
*/
func (r *Register) ControlledInvert(controls []int, target int) error {
	if err := r.checkCell(target); err != nil {
		return err
	}

	for _, c := range controls {
		if err := r.checkCell(c); err != nil {
			return err
		}
		if c == target {
			return fmt.Errorf("%w: target cell %d is also a control", ErrIndex, target)
		}
	}

	for _, c := range controls {
		if r.cells[c].Value() != One {
			return nil
		}
	}

	r.cells[target].ApplyX()
	return nil
}

// CollapseAndRecord measures a cell and writes the outcome into a classical
// slot. Cells here are always in a basis state, so the read is exact.
func (r *Register) CollapseAndRecord(cell, slot int) error {
	if err := r.checkCell(cell); err != nil {
		return err
	}
	if slot < 0 || slot >= len(r.slots) {
		return fmt.Errorf("%w: slot %d not in [0, %d)", ErrIndex, slot, len(r.slots))
	}

	r.slots[slot] = r.cells[cell].Value()
	r.recorded[slot] = true
	return nil
}

// Recorded reports whether a measurement has written the slot.
func (r *Register) Recorded(slot int) bool {
	return slot >= 0 && slot < len(r.recorded) && r.recorded[slot]
}

// Outcome renders the classical slots as a bit string with the highest slot
// first, the ordering used for counts keys. Slots never written read as 0.
func (r *Register) Outcome() string {
	var sb strings.Builder
	sb.Grow(len(r.slots))
	for i := len(r.slots) - 1; i >= 0; i-- {
		sb.WriteString(r.slots[i].String())
	}
	return sb.String()
}

// Dump returns a verbose rendering of the register for debug logs.
func (r *Register) Dump() string {
	return spew.Sdump(r)
}

func (r *Register) checkCell(index int) error {
	if index < 0 || index >= len(r.cells) {
		return fmt.Errorf("%w: cell %d not in [0, %d)", ErrIndex, index, len(r.cells))
	}
	return nil
}
