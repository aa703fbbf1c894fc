package qalarm

import (
	"context"
	"errors"
	"fmt"

	"github.com/theapemachine/errnie"
)

// SystemState is a state of the mitigation controller.
type SystemState int

const (
	StateStandby SystemState = iota
	StateHazardMitigation
	StateFaultMitigation
	StateWaitingForReset
	StateFailsafePowerFail
	StateHazardPowerFail
)

func (s SystemState) String() string {
	switch s {
	case StateStandby:
		return "STANDBY"
	case StateHazardMitigation:
		return "HAZARD_MITIGATION"
	case StateFaultMitigation:
		return "FAULT_MITIGATION"
	case StateWaitingForReset:
		return "WAITING_FOR_RESET"
	case StateFailsafePowerFail:
		return "FAILSAFE_POWERFAIL"
	case StateHazardPowerFail:
		return "HAZARD_POWERFAIL"
	default:
		return "UNKNOWN"
	}
}

// Inputs are the controller's readings for one update. Every field uses
// true = healthy, except ResetAuthorized which is true when an operator has
// authorised a reset.
type Inputs struct {
	Gas             bool
	Temperature     bool
	Power           bool
	FanCurrent      bool
	Airflow         bool
	ResetAuthorized bool
}

// NominalInputs is the all-healthy, no-reset reading.
func NominalInputs() Inputs {
	return Inputs{Gas: true, Temperature: true, Power: true, FanCurrent: true, Airflow: true}
}

// Outputs are the actuator commands for a state.
type Outputs struct {
	Fan    bool
	Backup bool
	Valve  bool
	Alarm  bool
	Alert  bool
	Visual bool
}

func (o Outputs) String() string {
	return fmt.Sprintf(
		"fan=%t backup=%t valve=%t alarm=%t alert=%t visual=%t",
		o.Fan, o.Backup, o.Valve, o.Alarm, o.Alert, o.Visual,
	)
}

// OutputsFor returns the actuator commands driven while in state s.
func OutputsFor(s SystemState) Outputs {
	switch s {
	case StateHazardMitigation, StateFaultMitigation:
		return Outputs{Fan: true, Valve: true, Alarm: true, Alert: true, Visual: true}
	case StateWaitingForReset:
		return Outputs{Alarm: true, Alert: true, Visual: true}
	case StateFailsafePowerFail:
		return Outputs{Backup: true}
	case StateHazardPowerFail:
		return Outputs{Fan: true, Backup: true, Valve: true, Alarm: true, Alert: true, Visual: true}
	default:
		return Outputs{}
	}
}

/*
Controller is the hazardous-gas mitigation state machine. Hazard detection
is not computed inline: every update samples the safety circuit with the gas
and temperature readings, and a dominant outcome of "1" (alarm active) counts
as a hazard. Power loss is always handled before any other condition.
*/
type Controller struct {
	sampler *Sampler
	shots   int
	state   SystemState

	// OnTransition, when set, is called after every state change.
	OnTransition func(from, to SystemState)
}

// NewController starts in standby. shots <= 0 uses the sampler's configured
// shot count.
func NewController(sampler *Sampler, shots int) *Controller {
	if sampler == nil {
		sampler = NewSampler(nil, nil)
	}
	if shots <= 0 {
		shots = sampler.Config().Shots
	}

	return &Controller{
		sampler: sampler,
		shots:   shots,
		state:   StateStandby,
	}
}

func (c *Controller) State() SystemState { return c.state }
func (c *Controller) Outputs() Outputs   { return OutputsFor(c.state) }

// Hazard samples the safety circuit and reports whether the alarm is active.
func (c *Controller) Hazard(ctx context.Context, gas, temperature bool) (bool, error) {
	counts, err := c.sampler.RunShots(ctx, boolToInt(gas), boolToInt(temperature), c.shots)
	if err != nil {
		return false, err
	}

	outcome, ok := counts.Dominant()
	if !ok {
		return false, errors.New("safety circuit returned no outcomes")
	}
	return outcome == One.String(), nil
}

// Update evaluates one set of readings and moves to the next state.
func (c *Controller) Update(ctx context.Context, in Inputs) (SystemState, error) {
	hazard, err := c.Hazard(ctx, in.Gas, in.Temperature)
	if err != nil {
		return c.state, err
	}

	var (
		safe            = !hazard
		powerFail       = !in.Power
		mitigationFault = !in.FanCurrent || !in.Airflow
		next            = c.state
	)

	switch c.state {
	case StateStandby:
		switch {
		case powerFail:
			next = StateFailsafePowerFail
		case hazard:
			next = StateHazardMitigation
		}
	case StateHazardMitigation:
		switch {
		case powerFail:
			next = StateHazardPowerFail
		case mitigationFault:
			next = StateFaultMitigation
		case safe:
			next = StateWaitingForReset
		}
	case StateFaultMitigation:
		switch {
		case powerFail:
			next = StateHazardPowerFail
		case safe:
			next = StateWaitingForReset
		}
	case StateWaitingForReset:
		switch {
		case powerFail:
			next = StateFailsafePowerFail
		case in.ResetAuthorized:
			next = StateStandby
		case hazard:
			next = StateHazardMitigation
		}
	case StateFailsafePowerFail:
		if !powerFail {
			next = StateStandby
		}
	case StateHazardPowerFail:
		if !powerFail {
			next = StateHazardMitigation
		}
	}

	if next != c.state {
		from := c.state
		c.state = next
		errnie.Info("mitigation state %v -> %v", from, next)

		if c.OnTransition != nil {
			c.OnTransition(from, next)
		}
	}

	return c.state, nil
}

// Step is one stage of a Scenario.
type Step struct {
	Name   string
	Inputs Inputs
}

/*
Scenario is the reference walk-through for the controller: normal
operation, a gas leak, the extraction fan failing, mains power lost and
restored, the hazard clearing, and finally an operator reset.
*/
func Scenario() []Step {
	in := NominalInputs()
	steps := make([]Step, 0, 7)

	add := func(name string) {
		steps = append(steps, Step{Name: name, Inputs: in})
	}

	add("normal operation")

	in.Gas = false
	add("gas leak")

	in.FanCurrent = false
	add("fan fault")

	in.Power = false
	add("mains power lost")

	in.Power = true
	add("mains power restored")

	in.Gas = true
	in.FanCurrent = true
	add("hazard cleared")

	in.ResetAuthorized = true
	add("reset authorised")

	return steps
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
