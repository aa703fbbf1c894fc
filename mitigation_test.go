package qalarm

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type transition struct {
	from, to SystemState
}

func newTestController() (*Controller, *[]transition) {
	sampler := NewSampler(&Config{Shots: 64, Workers: 2, BatchSize: 16}, nil)
	controller := NewController(sampler, 0)

	seen := make([]transition, 0)
	controller.OnTransition = func(from, to SystemState) {
		seen = append(seen, transition{from, to})
	}
	return controller, &seen
}

func TestController(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new controller", t, func() {
		controller, seen := newTestController()

		So(controller.State(), ShouldEqual, StateStandby)
		So(controller.Outputs(), ShouldResemble, Outputs{})

		Convey("The hazard check should follow the alarm circuit", func() {
			for _, tc := range []struct {
				gas, temp, hazard bool
			}{
				{true, true, false},
				{false, true, true},
				{true, false, true},
				{false, false, true},
			} {
				hazard, err := controller.Hazard(ctx, tc.gas, tc.temp)
				So(err, ShouldBeNil)
				So(hazard, ShouldEqual, tc.hazard)
			}
		})

		Convey("Nominal readings should keep it in standby", func() {
			state, err := controller.Update(ctx, NominalInputs())
			So(err, ShouldBeNil)
			So(state, ShouldEqual, StateStandby)
			So(*seen, ShouldBeEmpty)
		})

		Convey("Losing power without a hazard should switch to backup only", func() {
			in := NominalInputs()
			in.Power = false

			state, err := controller.Update(ctx, in)
			So(err, ShouldBeNil)
			So(state, ShouldEqual, StateFailsafePowerFail)
			So(controller.Outputs(), ShouldResemble, Outputs{Backup: true})

			Convey("Power loss should win over a hazard", func() {
				in.Gas = false
				state, err := controller.Update(ctx, in)
				So(err, ShouldBeNil)
				So(state, ShouldEqual, StateFailsafePowerFail)
			})

			Convey("Restoring power should return to standby", func() {
				state, err := controller.Update(ctx, NominalInputs())
				So(err, ShouldBeNil)
				So(state, ShouldEqual, StateStandby)
				So(*seen, ShouldResemble, []transition{
					{StateStandby, StateFailsafePowerFail},
					{StateFailsafePowerFail, StateStandby},
				})
			})
		})

		Convey("A temperature hazard that returns while waiting for reset should restart mitigation", func() {
			in := NominalInputs()
			in.Temperature = false
			_, err := controller.Update(ctx, in)
			So(err, ShouldBeNil)

			state, err := controller.Update(ctx, NominalInputs())
			So(err, ShouldBeNil)
			So(state, ShouldEqual, StateWaitingForReset)
			So(controller.Outputs(), ShouldResemble, Outputs{Alarm: true, Alert: true, Visual: true})

			state, err = controller.Update(ctx, in)
			So(err, ShouldBeNil)
			So(state, ShouldEqual, StateHazardMitigation)
		})

		Convey("A sampling failure should leave the state untouched", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			in := NominalInputs()
			in.Gas = false
			state, err := controller.Update(cancelled, in)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(state, ShouldEqual, StateStandby)
		})
	})

	Convey("Given the reference scenario", t, func() {
		controller, seen := newTestController()
		steps := Scenario()
		So(steps, ShouldHaveLength, 7)

		expected := []struct {
			state   SystemState
			outputs Outputs
		}{
			{StateStandby, Outputs{}},
			{StateHazardMitigation, Outputs{Fan: true, Valve: true, Alarm: true, Alert: true, Visual: true}},
			{StateFaultMitigation, Outputs{Fan: true, Valve: true, Alarm: true, Alert: true, Visual: true}},
			{StateHazardPowerFail, Outputs{Fan: true, Backup: true, Valve: true, Alarm: true, Alert: true, Visual: true}},
			{StateHazardMitigation, Outputs{Fan: true, Valve: true, Alarm: true, Alert: true, Visual: true}},
			{StateWaitingForReset, Outputs{Alarm: true, Alert: true, Visual: true}},
			{StateStandby, Outputs{}},
		}

		for i, step := range steps {
			state, err := controller.Update(context.Background(), step.Inputs)
			So(err, ShouldBeNil)
			So(state, ShouldEqual, expected[i].state)
			So(controller.Outputs(), ShouldResemble, expected[i].outputs)
		}

		So(*seen, ShouldHaveLength, 6)
		So(StateHazardPowerFail.String(), ShouldEqual, "HAZARD_POWERFAIL")
	})
}
