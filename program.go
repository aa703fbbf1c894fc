package qalarm

import (
	"fmt"
	"strings"
)

// Opcode identifies a register operation.
type Opcode int

const (
	OpSetOne Opcode = iota
	OpControlledInvert
	OpCollapse
)

func (op Opcode) String() string {
	switch op {
	case OpSetOne:
		return "SET1"
	case OpControlledInvert:
		return "CINV"
	case OpCollapse:
		return "MEASURE"
	default:
		return "UNKNOWN"
	}
}

// Operation is a single step of a Program.
type Operation struct {
	Op       Opcode
	Controls []int // OpControlledInvert only
	Target   int   // cell operated on or measured
	Slot     int   // OpCollapse only
}

func SetOne(cell int) Operation {
	return Operation{Op: OpSetOne, Target: cell}
}

func ControlledInvert(target int, controls ...int) Operation {
	return Operation{
		Op:       OpControlledInvert,
		Controls: append([]int(nil), controls...),
		Target:   target,
	}
}

func Collapse(cell, slot int) Operation {
	return Operation{Op: OpCollapse, Target: cell, Slot: slot}
}

func (o Operation) String() string {
	switch o.Op {
	case OpSetOne:
		return fmt.Sprintf("set1 q[%d]", o.Target)
	case OpControlledInvert:
		if len(o.Controls) == 0 {
			return fmt.Sprintf("x q[%d]", o.Target)
		}
		ctrl := make([]string, len(o.Controls))
		for i, c := range o.Controls {
			ctrl[i] = fmt.Sprintf("q[%d]", c)
		}
		return fmt.Sprintf("%sx %s -> q[%d]", strings.Repeat("c", len(o.Controls)), strings.Join(ctrl, ","), o.Target)
	case OpCollapse:
		return fmt.Sprintf("measure q[%d] -> c[%d]", o.Target, o.Slot)
	default:
		return o.Op.String()
	}
}

func (o Operation) apply(reg *Register) error {
	switch o.Op {
	case OpSetOne:
		return reg.SetOne(o.Target)
	case OpControlledInvert:
		return reg.ControlledInvert(o.Controls, o.Target)
	case OpCollapse:
		return reg.CollapseAndRecord(o.Target, o.Slot)
	default:
		return fmt.Errorf("%w: unknown opcode %d", ErrInvalidArgument, int(o.Op))
	}
}

/*
Program is an ordered, immutable list of operations together with the
register shape it needs. The same Program is executed once per shot against
a fresh Register.
*/
type Program struct {
	numCells int
	numSlots int
	ops      []Operation
}

// NewProgram copies ops so later changes by the caller cannot alter the
// program.
func NewProgram(numCells, numSlots int, ops ...Operation) *Program {
	cp := make([]Operation, len(ops))
	for i, op := range ops {
		op.Controls = append([]int(nil), op.Controls...)
		cp[i] = op
	}

	return &Program{
		numCells: numCells,
		numSlots: numSlots,
		ops:      cp,
	}
}

/*
NewSafetyProgram builds the gas/temperature alarm rule. Readings use
1 = safe, 0 = danger; the recorded alarm uses 1 = active.

The alarm cell is switched on unconditionally before any logic runs, and the
Toffoli on (gas, temperature) is the only operation that can switch it off
again. Anything short of both sensors reporting safe leaves the alarm on.

	alarm = NOT(gas AND temperature)
*/
func NewSafetyProgram(gasOk, tempOk int) (*Program, error) {
	gas, ok := BitFromInt(gasOk)
	if !ok {
		return nil, fmt.Errorf("%w: gas reading must be 0 or 1, got %d", ErrInvalidArgument, gasOk)
	}
	temp, ok := BitFromInt(tempOk)
	if !ok {
		return nil, fmt.Errorf("%w: temperature reading must be 0 or 1, got %d", ErrInvalidArgument, tempOk)
	}

	ops := make([]Operation, 0, 5)

	// Input encoding.
	if gas == One {
		ops = append(ops, SetOne(CellGas))
	}
	if temp == One {
		ops = append(ops, SetOne(CellTemperature))
	}

	// Fail-safe default: alarm on.
	ops = append(ops, SetOne(CellAlarm))

	// Silence only when both sensors are safe.
	ops = append(ops, ControlledInvert(CellAlarm, CellGas, CellTemperature))

	ops = append(ops, Collapse(CellAlarm, 0))

	return NewProgram(3, 1, ops...), nil
}

func (p *Program) NumCells() int { return p.numCells }
func (p *Program) NumSlots() int { return p.numSlots }

// Operations returns a copy of the program's steps in execution order.
func (p *Program) Operations() []Operation {
	return NewProgram(p.numCells, p.numSlots, p.ops...).ops
}

// Execute applies every operation, in order, to reg.
func (p *Program) Execute(reg *Register) error {
	for i, op := range p.ops {
		if err := op.apply(reg); err != nil {
			return fmt.Errorf("operation %d (%s): %w", i, op, err)
		}
	}
	return nil
}

// Run allocates a fresh register, executes the program on it and returns
// the register.
func (p *Program) Run() (*Register, error) {
	reg, err := NewRegister(p.numCells, p.numSlots)
	if err != nil {
		return nil, err
	}
	if err := p.Execute(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

/*
QASM renders the program as an OpenQASM 2.0 circuit. A set-one on a cell no
earlier operation has touched is emitted as a bare x, since every cell starts
at |0⟩; otherwise it is preceded by a reset. Controlled inverts map to x, cx
or ccx, and more than two controls cannot be expressed in qelib1.
*/
func (p *Program) QASM() (string, error) {
	var sb strings.Builder

	sb.WriteString("OPENQASM 2.0;\n")
	sb.WriteString("include \"qelib1.inc\";\n\n")
	fmt.Fprintf(&sb, "qreg q[%d];\n", p.numCells)
	fmt.Fprintf(&sb, "creg c[%d];\n\n", p.numSlots)

	touched := make(map[int]bool, p.numCells)

	for _, op := range p.ops {
		switch op.Op {
		case OpSetOne:
			if touched[op.Target] {
				fmt.Fprintf(&sb, "reset q[%d];\n", op.Target)
			}
			fmt.Fprintf(&sb, "x q[%d];\n", op.Target)
		case OpControlledInvert:
			switch len(op.Controls) {
			case 0:
				fmt.Fprintf(&sb, "x q[%d];\n", op.Target)
			case 1:
				fmt.Fprintf(&sb, "cx q[%d],q[%d];\n", op.Controls[0], op.Target)
			case 2:
				fmt.Fprintf(&sb, "ccx q[%d],q[%d],q[%d];\n", op.Controls[0], op.Controls[1], op.Target)
			default:
				return "", fmt.Errorf(
					"%w: %d-control invert has no OpenQASM 2.0 gate", ErrInvalidArgument, len(op.Controls),
				)
			}
		case OpCollapse:
			fmt.Fprintf(&sb, "measure q[%d] -> c[%d];\n", op.Target, op.Slot)
		default:
			return "", fmt.Errorf("%w: unknown opcode %d", ErrInvalidArgument, int(op.Op))
		}
		touched[op.Target] = true
	}

	return sb.String(), nil
}
