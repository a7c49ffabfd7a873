/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/gobilinear/InputParameters"
	"github.com/notargets/gobilinear/assembly"
	"github.com/notargets/gobilinear/fespace"
	"github.com/notargets/gobilinear/integrators"
	"github.com/notargets/gobilinear/mesh"
)

type AssembleOptions struct {
	InputFile string
	Profile   string // cpu or mem
	Perf      bool
	Verbose   bool
}

type Report struct {
	Title                     string
	NumElements, NumDofs, NNZ int
	Eliminated                int
	AssemblyTime              time.Duration
	Instructions              uint64 // zero when not counted
	Solution                  []float64
	MinU, MaxU                float64
	Residual                  float64 // |A x - b| of the eliminated system
}

// AssembleCmd represents the assemble command
var AssembleCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Assemble, constrain and solve a model problem described in a YAML file",
	Long: `
Builds the mesh and space of a model problem, assembles its bilinear form,
eliminates the essential boundary DOFs and solves the resulting system,

gobilinear assemble -I problem.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err  error
			opts = &AssembleOptions{}
		)
		opts.InputFile = viper.GetString("inputFile")
		opts.Verbose = viper.GetBool("verbose")
		opts.Profile, _ = cmd.Flags().GetString("profile")
		opts.Perf, _ = cmd.Flags().GetBool("perf")
		ip := processProblemInput(opts)
		ip.Print()
		var rpt *Report
		if rpt, err = runProfiled(ip, opts); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
		rpt.Print()
	},
}

func init() {
	rootCmd.AddCommand(AssembleCmd)
	AssembleCmd.Flags().StringP("inputFile", "I", "", "YAML file describing the problem: mesh, space, integrators, essential BCs")
	AssembleCmd.Flags().StringP("profile", "p", "", "write a pprof profile of the run: cpu or mem")
	AssembleCmd.Flags().Bool("perf", false, "count CPU instructions spent in assembly (Linux perf events)")
	if err := viper.BindPFlag("inputFile", AssembleCmd.Flags().Lookup("inputFile")); err != nil {
		panic(err)
	}
}

func processProblemInput(opts *AssembleOptions) (ip *InputParameters.ProblemParameters) {
	var (
		err  error
		data []byte
	)
	if len(opts.InputFile) == 0 {
		err = fmt.Errorf("must supply a problem file (-I, --inputFile) in YAML format")
		fmt.Printf("error: %s\n", err.Error())
		exampleFile := `
########################################
Title: "Poisson"
Mesh:
  Type: line # or rectangle, gambit
  Elements: 16
  XMin: 0
  XMax: 1
Order: 2
Continuous: true
Integrators:
  - {Kind: Domain, Type: Diffusion}
Essential:
  1: 0.
  2: 1.
Source: 1
########################################
`
		fmt.Printf("Example File:%s\n", exampleFile)
		os.Exit(1)
	}
	if data, err = os.ReadFile(opts.InputFile); err != nil {
		panic(err)
	}
	ip = &InputParameters.ProblemParameters{}
	if err = ip.Parse(data); err != nil {
		panic(err)
	}
	return
}

// runProfiled wraps RunAssemble in the requested profile, which is written out
// before returning on success and on error.
func runProfiled(ip *InputParameters.ProblemParameters, opts *AssembleOptions) (rpt *Report, err error) {
	var stop func()
	if stop, err = startProfile(opts.Profile); err != nil {
		return
	}
	defer stop()
	return RunAssemble(ip, opts)
}

func startProfile(kind string) (stop func(), err error) {
	switch kind {
	case "":
		stop = func() {}
	case "cpu":
		stop = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop
	case "mem":
		stop = profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop
	default:
		err = fmt.Errorf("unknown profile type \"%s\", must be cpu or mem", kind)
	}
	return
}

func buildMesh(mp InputParameters.MeshParameters, verbose bool) (m *mesh.Mesh, err error) {
	switch mp.Type {
	case "line":
		m = mesh.NewLine(mp.Elements, mp.XMin, mp.XMax)
	case "rectangle":
		m, err = mesh.NewRectangle(mp.NX, mp.NY, mp.XMin, mp.XMax, mp.YMin, mp.YMax)
	case "gambit":
		m = mesh.ReadGambit2D(mp.File, verbose)
	default:
		err = fmt.Errorf("unknown mesh type \"%s\"", mp.Type)
	}
	return
}

// coefficient maps an absent (zero) Coef to a unit coefficient.
func coefficient(c float64) integrators.Coefficient {
	if c == 0 {
		return nil
	}
	return integrators.Constant(c)
}

func buildForm(fes *fespace.Space, ip *InputParameters.ProblemParameters) (b *assembly.BilinearForm, err error) {
	b = assembly.NewBilinearForm(fes)
	for _, integ := range ip.Integrators {
		sigma := integ.Coef
		if sigma == 0 {
			sigma = 1
		}
		switch integ.Kind + "/" + integ.Type {
		case "Domain/Mass":
			b.AddDomainIntegrator(integrators.Mass{Q: coefficient(integ.Coef)})
		case "Domain/Diffusion":
			b.AddDomainIntegrator(integrators.Diffusion{Q: coefficient(integ.Coef)})
		case "Boundary/Mass":
			b.AddBoundaryIntegrator(integrators.Mass{Q: coefficient(integ.Coef)})
		case "InteriorFace/JumpPenalty":
			b.AddInteriorFaceIntegrator(integrators.JumpPenalty{Sigma: sigma})
		case "BoundaryFace/JumpPenalty":
			b.AddBdrFaceIntegrator(integrators.JumpPenalty{Sigma: sigma})
		default:
			err = fmt.Errorf("unsupported integrator %s %s", integ.Kind, integ.Type)
			return
		}
	}
	b.UsePrecomputedSparsity(ip.PrecomputedSparsity)
	return
}

// essentialValues marks the essential boundary attributes and fills sol with
// their prescribed values, in increasing attribute order so that DOFs shared
// by two attributes take the value of the larger one.
func essentialValues(fes *fespace.Space, essential map[int]float64) (ess []bool, sol []float64, err error) {
	var (
		m     = fes.GetMesh()
		attrs = make([]int, 0, len(essential))
	)
	ess = make([]bool, m.MaxBdrAttribute())
	sol = make([]float64, fes.GetVSize())
	for attr := range essential {
		if attr < 1 || attr > len(ess) {
			err = fmt.Errorf("essential boundary attribute %d not present in mesh, max attribute is %d", attr, len(ess))
			return
		}
		ess[attr-1] = true
		attrs = append(attrs, attr)
	}
	sort.Ints(attrs)
	for _, attr := range attrs {
		for be, a := range m.BdrAttributes {
			if a != attr {
				continue
			}
			for _, d := range fes.GetBdrElementDofs(be).Indices() {
				sol[d] = essential[attr]
			}
		}
	}
	return
}

// RunAssemble builds and solves the problem described by ip.
func RunAssemble(ip *InputParameters.ProblemParameters, opts *AssembleOptions) (rpt *Report, err error) {
	var (
		m   *mesh.Mesh
		fes *fespace.Space
		b   *assembly.BilinearForm
	)
	if m, err = buildMesh(ip.Mesh, opts.Verbose); err != nil {
		return
	}
	if ip.Continuous {
		fes, err = fespace.NewH1(m, ip.Order)
	} else {
		fes, err = fespace.NewL2(m, ip.Order)
	}
	if err != nil {
		return
	}
	fes.Verbose = opts.Verbose
	if b, err = buildForm(fes, ip); err != nil {
		return
	}
	b.SetVerbose(opts.Verbose)
	rpt = &Report{
		Title:       ip.Title,
		NumElements: m.NumElements(),
		NumDofs:     fes.GetVSize(),
	}

	assemble := func() error { return b.Assemble(ip.SkipZeros) }
	start := time.Now()
	if opts.Perf {
		if rpt.Instructions, err = countInstructions(assemble); err != nil {
			fmt.Printf("instruction count unavailable: %v\n", err)
			err = assemble()
		}
	} else {
		err = assemble()
	}
	if err != nil {
		return
	}
	if err = b.Finalize(ip.SkipZeros); err != nil {
		return
	}
	rpt.AssemblyTime = time.Since(start)
	rpt.NNZ = b.SpMat().NNZ()

	var (
		n   = fes.GetVSize()
		rhs = make([]float64, n)
		ess []bool
		sol []float64
	)
	if ip.Source != 0 {
		load := assembly.NewBilinearForm(fes)
		load.AddDomainIntegrator(integrators.Mass{Q: integrators.Constant(ip.Source)})
		if err = load.Assemble(false); err != nil {
			return
		}
		ones := make([]float64, n)
		for i := range ones {
			ones[i] = 1
		}
		load.Mult(ones, rhs)
	}
	if ess, sol, err = essentialValues(fes, ip.Essential); err != nil {
		return
	}
	if len(ip.Essential) > 0 {
		policy := assembly.SetDiagonal(ip.DiagonalValue)
		if ip.Diagonal == "preserve" {
			policy = assembly.PreserveDiagonal()
		}
		if ip.Deferred {
			pc := b.EliminateEssentialBCDeferred(ess, policy)
			pc.Apply(sol, rhs)
			rpt.Eliminated = len(pc.Dofs())
		} else {
			marker := fes.GetEssentialVDofs(ess)
			b.EliminateEssentialBCFromDofs(marker, sol, rhs, policy)
			for _, val := range marker {
				if val < 0 {
					rpt.Eliminated++
				}
			}
		}
	}

	var inv assembly.Operator
	if inv, err = b.Inverse(assembly.NewDenseLU); err != nil {
		return
	}
	rpt.Solution = make([]float64, n)
	inv.Mult(rhs, rpt.Solution)
	Ax := make([]float64, n)
	b.Mult(rpt.Solution, Ax)
	rpt.Residual = floats.Distance(Ax, rhs, 2)
	rpt.MinU, rpt.MaxU = floats.Min(rpt.Solution), floats.Max(rpt.Solution)
	return
}

func (rpt *Report) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", rpt.Title)
	fmt.Printf("[%d]\t\t\t\t= Elements\n", rpt.NumElements)
	fmt.Printf("[%d]\t\t\t\t= DOFs\n", rpt.NumDofs)
	fmt.Printf("[%d]\t\t\t\t= Non Zeros\n", rpt.NNZ)
	fmt.Printf("[%d]\t\t\t\t= Eliminated DOFs\n", rpt.Eliminated)
	fmt.Printf("%v\t\t= Assembly Time\n", rpt.AssemblyTime)
	if rpt.Instructions != 0 {
		fmt.Printf("%d\t\t= CPU Instructions\n", rpt.Instructions)
	}
	fmt.Printf("[%8.5f,%8.5f]\t= Solution Range\n", rpt.MinU, rpt.MaxU)
	fmt.Printf("%8.5e\t\t= Residual\n", rpt.Residual)
}
