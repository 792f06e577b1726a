package experiment

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/fluidsim/internal/checkpoint"
	"github.com/san-kum/fluidsim/internal/fld"
	"github.com/san-kum/fluidsim/internal/physics"
	"github.com/san-kum/fluidsim/internal/sim"
)

func writeInput(t *testing.T, h fld.Header, ps []physics.Particle) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.fld")
	var buf bytes.Buffer
	if err := fld.WriteInput(&buf, h, ps); err != nil {
		t.Fatalf("encode input: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func inputParticle(pos, hv, vel physics.Vec3f) physics.Particle {
	return physics.Particle{Position: pos, HalfVelocity: hv, Velocity: vel}
}

// goldenSingleStep is two particles at ppm 10 after one step. The grid has a
// single block, so only gravity, box collisions and motion act. Output
// records carry acceleration where the input carried velocity.
const goldenSingleStep = "0000204102000000" +
	"fb00243c7dc2a33c8fc2f53c0ad7233c2e9020bc0000000000000000cdcc1cc100000000" +
	"0ad723bcae6a24b700000000000000002e9020bc0000000000000000cdcc1cc100000000"

// goldenAdjacentBlocks is five particles at ppm 100 after two steps. Particles
// 0, 2 and 4 sit in neighboring blocks and exchange density and acceleration.
// Particles 1 and 3 are about to reach the lower and upper y walls.
const goldenAdjacentBlocks = "0000c84205000000" +
	"e2e58ae9819afbe8160202e98c5afded417765ed6e236dedda168cf1eec2fdf0891f03f1" +
	"0ad7a33cc1b1a3bd0000000000000000e613a43d0000000000000000cb242e4100000000" +
	"a4279d682d8ad167bfa12767cd530f6d651a3f6cebe1986bb1809e703f56d36fcd11296f" +
	"8fc2f5bc12c5cc3d0ad7233c00000000078c31bd00000000000000009f6de0c100000000" +
	"f2374769f537c768f50fef68a5b0b56da7b0356d31075a6d5bed48715eedc870d91cf170"

func runGolden(t *testing.T, h fld.Header, ps []physics.Particle, steps int) []byte {
	t.Helper()
	in := writeInput(t, h, ps)
	out := filepath.Join(t.TempDir(), "out.fld")

	exp := New(Config{Input: in, Output: out, Steps: steps, Params: physics.DefaultParams()}, nil)
	if err := exp.Setup(); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	outcome, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if outcome.Result.StepsTaken != steps {
		t.Errorf("expected %d steps, got %d", steps, outcome.Result.StepsTaken)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func expectBytes(t *testing.T, want string, got []byte) {
	t.Helper()
	expected, err := hex.DecodeString(want)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(got, expected) {
		return
	}
	if len(got) != len(expected) {
		t.Fatalf("expected %d bytes, got %d", len(expected), len(got))
	}
	for i := range got {
		if got[i] != expected[i] {
			rec := (i - fld.HeaderSize) / fld.RecordSize
			t.Fatalf("output differs at byte %d (record %d): expected % x, got % x",
				i, rec, expected[i:min(i+4, len(expected))], got[i:min(i+4, len(got))])
		}
	}
}

func TestGoldenSingleStep(t *testing.T) {
	data := runGolden(t, fld.Header{PPM: 10, NP: 2}, []physics.Particle{
		inputParticle(physics.Vec3f{0.01, 0.02, 0.03}, physics.Vec3f{0.01, 0, 0}, physics.Vec3f{5, 6, 7}),
		inputParticle(physics.Vec3f{-0.01, 0, 0}, physics.Vec3f{}, physics.Vec3f{8, 9, 10}),
	}, 1)
	expectBytes(t, goldenSingleStep, data)

	_, recs, err := fld.ReadOutput(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	gravity := physics.Vec3f{0, float32(physics.DefaultGravity[1]), 0}
	for i, r := range recs {
		if r.Acceleration != gravity {
			t.Errorf("record %d: expected acceleration %v, got %v", i, gravity, r.Acceleration)
		}
	}
}

func TestGoldenAdjacentBlocks(t *testing.T) {
	data := runGolden(t, fld.Header{PPM: 100, NP: 5}, []physics.Particle{
		inputParticle(physics.Vec3f{0.0105, 0.0015, 0.0012}, physics.Vec3f{-0.02, 0, 0.01}, physics.Vec3f{}),
		inputParticle(physics.Vec3f{0.02, -0.0799, 0}, physics.Vec3f{0, -0.1, 0}, physics.Vec3f{0, -0.1, 0}),
		inputParticle(physics.Vec3f{0.009, 0.001, 0.001}, physics.Vec3f{0.02, 0, 0}, physics.Vec3f{}),
		inputParticle(physics.Vec3f{-0.03, 0.0999, 0.01}, physics.Vec3f{0, 0.1, 0}, physics.Vec3f{0, 0.1, 0}),
		inputParticle(physics.Vec3f{0.0085, 0.0005, 0}, physics.Vec3f{0, 0.01, 0}, physics.Vec3f{}),
	}, 2)
	expectBytes(t, goldenAdjacentBlocks, data)
}

func TestCountMismatchStillWritesOutput(t *testing.T) {
	ps := []physics.Particle{
		inputParticle(physics.Vec3f{0, 0, 0}, physics.Vec3f{1, 0, 0}, physics.Vec3f{}),
	}
	in := writeInput(t, fld.Header{PPM: 10, NP: 3}, ps)
	out := filepath.Join(t.TempDir(), "out.fld")

	exp := New(Config{Input: in, Output: out, Steps: 5, Params: physics.DefaultParams()}, nil)
	if err := exp.Setup(); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if exp.CountMatches() {
		t.Error("expected count mismatch")
	}

	outcome, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if outcome.Result.StepsTaken != 0 {
		t.Errorf("expected no steps, got %d", outcome.Result.StepsTaken)
	}
	if len(outcome.Result.Errors) != 1 || !errors.Is(outcome.Result.Errors[0], sim.ErrCountMismatch) {
		t.Errorf("expected ErrCountMismatch, got %v", outcome.Result.Errors)
	}

	h, recs, err := fld.ReadOutput(mustOpen(t, out))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if h.NP != 3 {
		t.Errorf("expected header count 3 to be kept, got %d", h.NP)
	}
	if len(recs) != 1 || recs[0].Position != (physics.Vec3f{}) {
		t.Errorf("expected unchanged particle, got %+v", recs)
	}
}

func mustOpen(t *testing.T, path string) *os.File {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestResumeMatchesContinuousRun(t *testing.T) {
	ps := []physics.Particle{
		inputParticle(physics.Vec3f{0.009, 0, 0}, physics.Vec3f{10, 0, 0}, physics.Vec3f{}),
		inputParticle(physics.Vec3f{-0.05, 0.05, 0.04}, physics.Vec3f{0, 0, -0.5}, physics.Vec3f{}),
		inputParticle(physics.Vec3f{0.05, -0.07, -0.05}, physics.Vec3f{0, 0.2, 0}, physics.Vec3f{}),
	}
	in := writeInput(t, fld.Header{PPM: 100, NP: 3}, ps)

	continuous := New(Config{Input: in, Steps: 4, Params: physics.DefaultParams()}, nil)
	if err := continuous.Setup(); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	want, err := continuous.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	ckpt := filepath.Join(t.TempDir(), "run.ckpt")
	first := New(Config{Input: in, Steps: 2, Params: physics.DefaultParams(), Checkpoint: ckpt}, nil)
	if err := first.Setup(); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if _, err := first.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	snap, err := checkpoint.Load(ckpt)
	if err != nil {
		t.Fatalf("load checkpoint: %v", err)
	}
	if snap.Step != 2 {
		t.Errorf("expected checkpoint at step 2, got %d", snap.Step)
	}

	resumed := New(Config{Steps: 2}, nil)
	if err := resumed.SetupSnapshot(snap); err != nil {
		t.Fatalf("resume setup failed: %v", err)
	}
	got, err := resumed.Run(context.Background())
	if err != nil {
		t.Fatalf("resume run failed: %v", err)
	}
	if resumed.GetEngine().StepCount() != 4 {
		t.Errorf("expected step count 4, got %d", resumed.GetEngine().StepCount())
	}

	for i := range want.Particles {
		if got.Particles[i] != want.Particles[i] {
			t.Errorf("particle %d: expected %+v, got %+v", i, want.Particles[i], got.Particles[i])
		}
	}
}

func TestSetupErrors(t *testing.T) {
	if _, err := New(Config{}, nil).Run(context.Background()); err == nil {
		t.Error("expected error running without setup")
	}

	missing := New(Config{Input: filepath.Join(t.TempDir(), "missing.fld")}, nil)
	if err := missing.Setup(); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}

	in := writeInput(t, fld.Header{PPM: 10, NP: 0}, nil)
	unknown := New(Config{Input: in, Params: physics.DefaultParams(), Metrics: []string{"entropy"}}, nil)
	if err := unknown.Setup(); err == nil {
		t.Error("expected unknown metric error")
	}
}

func TestDefaultMetricsObserved(t *testing.T) {
	in := writeInput(t, fld.Header{PPM: 10, NP: 1}, []physics.Particle{
		inputParticle(physics.Vec3f{}, physics.Vec3f{}, physics.Vec3f{}),
	})
	exp := New(Config{Input: in, Steps: 3, Params: physics.DefaultParams()}, nil)
	if err := exp.Setup(); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	outcome, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	for _, name := range DefaultMetrics {
		if _, ok := outcome.Result.Metrics[name]; !ok {
			t.Errorf("expected metric %s in result", name)
		}
	}
	if outcome.Result.Series.Len() != 3 {
		t.Errorf("expected 3 series rows, got %d", outcome.Result.Series.Len())
	}
	if outcome.Result.Metrics["max_speed"] <= 0 {
		t.Errorf("expected falling particle to have a speed, got %f", outcome.Result.Metrics["max_speed"])
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	c := physics.NewConstants(physics.DefaultParams(), 10)

	for _, name := range r.ListMetrics() {
		m, err := r.GetMetric(name, c)
		if err != nil {
			t.Errorf("metric %s: %v", name, err)
			continue
		}
		if m.Name() != name {
			t.Errorf("expected name %s, got %s", name, m.Name())
		}
	}
	if len(r.ListMetrics()) != 5 {
		t.Errorf("expected 5 metrics, got %d", len(r.ListMetrics()))
	}
}
