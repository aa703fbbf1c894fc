package qalarm

// Bit is a classical two-valued reading.
type Bit uint8

const (
	Zero Bit = 0
	One  Bit = 1
)

func (b Bit) String() string {
	if b == One {
		return "1"
	}
	return "0"
}

// BitFromInt converts a sensor reading to a Bit, rejecting anything that is
// not 0 or 1.
func BitFromInt(v int) (Bit, bool) {
	switch v {
	case 0:
		return Zero, true
	case 1:
		return One, true
	}
	return Zero, false
}

/*
Qubit is a single cell of the register. The operations applied by the safety
program never put a cell into superposition, so the cell is modelled as a
basis state: it is always exactly |0⟩ or |1⟩, and the zero value is |0⟩.
*/
type Qubit struct {
	value Bit
}

// Value returns the basis state the cell currently holds.
func (q *Qubit) Value() Bit {
	return q.value
}

// SetOne prepares |1⟩ regardless of the previous state.
func (q *Qubit) SetOne() {
	q.value = One
}

// ApplyX inverts the cell.
//
//	X = [0 1]
//	    [1 0]
func (q *Qubit) ApplyX() {
	q.value ^= One
}
