package main

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/fluidsim/internal/fld"
	"github.com/san-kum/fluidsim/internal/physics"
)

var (
	genPPM  float64
	genFrom []float64
	genTo   []float64
)

func newGenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen [output]",
		Short: "write a cubic lattice of resting particles",
		Long: "gen fills the block between --from and --to with particles spaced 1/ppm apart\n" +
			"and writes them as an input file. The default block is a dam break in the\n" +
			"lower corner of the reference box.",
		Args: cobra.ExactArgs(1),
		RunE: genLattice,
	}
	cmd.Flags().Float64Var(&genPPM, "ppm", 100, "particles per meter")
	cmd.Flags().Float64SliceVar(&genFrom, "from", []float64{-0.06, -0.075, -0.06}, "lower corner x,y,z")
	cmd.Flags().Float64SliceVar(&genTo, "to", []float64{0, 0.02, 0}, "upper corner x,y,z")
	return cmd
}

func genLattice(cmd *cobra.Command, args []string) error {
	if len(genFrom) != 3 || len(genTo) != 3 {
		return fmt.Errorf("--from and --to need three coordinates")
	}
	ps, err := lattice(genPPM, [3]float64(genFrom), [3]float64(genTo))
	if err != nil {
		return err
	}

	h := fld.Header{PPM: float32(genPPM), NP: int32(len(ps))}
	if err := fld.WriteInputFile(args[0], h, ps); err != nil {
		return err
	}
	logger.Info("lattice written", "path", args[0], "particles", len(ps), "ppm", genPPM)
	return nil
}

// lattice places particles 1/ppm apart on every axis, starting at from and
// not passing to. IDs follow x, then y, then z.
func lattice(ppm float64, from, to [3]float64) ([]physics.Particle, error) {
	if ppm <= 0 {
		return nil, fmt.Errorf("ppm must be positive, got %g", ppm)
	}

	var axes [3][]float64
	for a := 0; a < 3; a++ {
		if to[a] < from[a] {
			return nil, fmt.Errorf("axis %d: upper corner %g below lower corner %g", a, to[a], from[a])
		}
		// small epsilon so a corner exactly on the lattice is kept
		n := int(math.Floor((to[a]-from[a])*ppm+1e-9)) + 1
		axes[a] = make([]float64, n)
		if n == 1 {
			axes[a][0] = from[a]
			continue
		}
		floats.Span(axes[a], from[a], from[a]+float64(n-1)/ppm)
	}

	ps := make([]physics.Particle, 0, len(axes[0])*len(axes[1])*len(axes[2]))
	for _, z := range axes[2] {
		for _, y := range axes[1] {
			for _, x := range axes[0] {
				pos := physics.Vec3f{float32(x), float32(y), float32(z)}
				ps = append(ps, physics.Particle{ID: len(ps), Position: pos})
			}
		}
	}
	return ps, nil
}
