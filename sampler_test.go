package qalarm

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSampler(t *testing.T) {
	Convey("Given a sampler with the default configuration", t, func() {
		sampler := NewSampler(nil, nil)
		ctx := context.Background()

		Convey("It should default to 1024 shots", func() {
			So(sampler.Config().Shots, ShouldEqual, 1024)
		})

		Convey("Both sensors safe should silence the alarm on every shot", func() {
			counts, err := sampler.Run(ctx, 1, 1)
			So(err, ShouldBeNil)
			So(counts, ShouldResemble, Counts{"0": 1024})
		})

		Convey("Any unsafe sensor should keep the alarm on every shot", func() {
			for _, in := range [][2]int{{0, 1}, {1, 0}, {0, 0}} {
				counts, err := sampler.RunShots(ctx, in[0], in[1], 1024)
				So(err, ShouldBeNil)
				So(counts, ShouldResemble, Counts{"1": 1024})
			}
		})

		Convey("Repeated runs should produce identical tables", func() {
			first, err := sampler.RunShots(ctx, 0, 1, 300)
			So(err, ShouldBeNil)
			second, err := sampler.RunShots(ctx, 0, 1, 300)
			So(err, ShouldBeNil)
			So(second, ShouldResemble, first)
		})

		Convey("Non-positive shot counts should be rejected", func() {
			for _, shots := range []int{0, -1, -1024} {
				counts, err := sampler.RunShots(ctx, 1, 1, shots)
				So(errors.Is(err, ErrInvalidArgument), ShouldBeTrue)
				So(counts, ShouldBeNil)
			}
		})

		Convey("Readings outside {0, 1} should be rejected", func() {
			for _, in := range [][2]int{{2, 1}, {1, 2}, {-1, 0}, {0, -1}} {
				counts, err := sampler.Run(ctx, in[0], in[1])
				So(errors.Is(err, ErrInvalidArgument), ShouldBeTrue)
				So(counts, ShouldBeNil)
			}
		})

		Convey("A cancelled context should abort without a table", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			counts, err := sampler.Run(cancelled, 1, 1)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(counts, ShouldBeNil)
		})
	})

	Convey("Given different worker and batch layouts", t, func() {
		for _, config := range []*Config{
			{Shots: 1, Workers: 4, BatchSize: 128},
			{Shots: 1000, Workers: 1, BatchSize: 1},
			{Shots: 1000, Workers: 8, BatchSize: 7},
			{Shots: 4096, Workers: 3, BatchSize: 4096},
		} {
			sampler := NewSampler(config, nil)

			for _, in := range [][2]int{{0, 0}, {0, 1}, {1, 0}, {1, 1}} {
				counts, err := sampler.Run(context.Background(), in[0], in[1])
				So(err, ShouldBeNil)
				So(counts.Total(), ShouldEqual, config.Shots)
				So(counts, ShouldHaveLength, 1)
			}
		}
	})

	Convey("Given an arbitrary program", t, func() {
		sampler := NewSampler(&Config{Shots: 10, Workers: 2, BatchSize: 3}, nil)

		Convey("Unwritten slots should be counted as zero", func() {
			program := NewProgram(1, 2, SetOne(0), Collapse(0, 0))

			counts, err := sampler.Sample(context.Background(), program, 10)
			So(err, ShouldBeNil)
			So(counts, ShouldResemble, Counts{"01": 10})
		})

		Convey("A failing operation should fail the whole run", func() {
			program := NewProgram(2, 1, ControlledInvert(1, 1))

			counts, err := sampler.Sample(context.Background(), program, 10)
			So(errors.Is(err, ErrIndex), ShouldBeTrue)
			So(counts, ShouldBeNil)
		})
	})

	Convey("Given the package-level entry point", t, func() {
		counts, err := Simulate(1, 1)
		So(err, ShouldBeNil)
		So(counts, ShouldResemble, Counts{"0": DefaultShots})

		_, err = Simulate(3, 1)
		So(errors.Is(err, ErrInvalidArgument), ShouldBeTrue)
	})
}

func TestSamplerMetrics(t *testing.T) {
	Convey("Given a sampler with its own metrics", t, func() {
		metrics := NewMetrics()
		sampler := NewSampler(&Config{Shots: 100, Workers: 2, BatchSize: 16}, metrics)

		_, err := sampler.Run(context.Background(), 1, 1)
		So(err, ShouldBeNil)
		_, err = sampler.Run(context.Background(), 0, 1)
		So(err, ShouldBeNil)
		_, err = sampler.RunShots(context.Background(), 1, 1, 0)
		So(err, ShouldNotBeNil)

		Convey("Runs, failures and outcomes should be recorded", func() {
			So(sampler.Metrics(), ShouldEqual, metrics)

			exported := metrics.ExportMetrics()
			So(exported["run_count"], ShouldEqual, int64(3))
			So(exported["failed_runs"], ShouldEqual, int64(1))
			So(exported["shot_count"], ShouldEqual, int64(200))
			So(exported["outcomes"], ShouldResemble, map[string]int64{"0": 100, "1": 100})
		})
	})
}
