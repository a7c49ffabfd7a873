package InputParameters

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ghodss/yaml"
)

type MeshParameters struct {
	Type     string  `yaml:"Type"` // line, rectangle or gambit
	Elements int     `yaml:"Elements"`
	NX       int     `yaml:"NX"`
	NY       int     `yaml:"NY"`
	XMin     float64 `yaml:"XMin"`
	XMax     float64 `yaml:"XMax"`
	YMin     float64 `yaml:"YMin"`
	YMax     float64 `yaml:"YMax"`
	File     string  `yaml:"File"` // Gambit neutral file
}

type IntegratorParameters struct {
	Kind string  `yaml:"Kind"` // Domain, Boundary, InteriorFace, BoundaryFace
	Type string  `yaml:"Type"` // Mass, Diffusion, JumpPenalty
	Coef float64 `yaml:"Coef"`
}

// Parameters obtained from the YAML input file
type ProblemParameters struct {
	Title               string                 `yaml:"Title"`
	Mesh                MeshParameters         `yaml:"Mesh"`
	Order               int                    `yaml:"Order"`
	Continuous          bool                   `yaml:"Continuous"`
	Integrators         []IntegratorParameters `yaml:"Integrators"`
	Essential           map[int]float64        `yaml:"Essential"` // boundary attribute -> prescribed value
	Diagonal            string                 `yaml:"Diagonal"`  // set or preserve
	DiagonalValue       float64                `yaml:"DiagonalValue"`
	SkipZeros           bool                   `yaml:"SkipZeros"`
	PrecomputedSparsity bool                   `yaml:"PrecomputedSparsity"`
	Deferred            bool                   `yaml:"Deferred"`
	Source              float64                `yaml:"Source"`
}

var (
	meshTypes       = []string{"line", "rectangle", "gambit"}
	integratorKinds = []string{"Domain", "Boundary", "InteriorFace", "BoundaryFace"}
	integratorTypes = map[string][]string{
		"Domain":       {"Mass", "Diffusion"},
		"Boundary":     {"Mass"},
		"InteriorFace": {"JumpPenalty"},
		"BoundaryFace": {"JumpPenalty"},
	}
)

// Parse fills ip from YAML; an absent DiagonalValue defaults to 1.
func (ip *ProblemParameters) Parse(data []byte) (err error) {
	ip.DiagonalValue = 1
	if err = yaml.Unmarshal(data, ip); err != nil {
		return
	}
	ip.Mesh.Type = strings.ToLower(ip.Mesh.Type)
	ip.Diagonal = strings.ToLower(ip.Diagonal)
	if ip.Diagonal == "" {
		ip.Diagonal = "set"
	}
	return ip.Validate()
}

func (ip *ProblemParameters) Validate() (err error) {
	if !contains(meshTypes, ip.Mesh.Type) {
		return fmt.Errorf("unknown mesh type \"%s\", must be one of %v", ip.Mesh.Type, meshTypes)
	}
	switch ip.Mesh.Type {
	case "line":
		if ip.Mesh.Elements < 1 || ip.Mesh.XMax <= ip.Mesh.XMin {
			return fmt.Errorf("line mesh needs Elements > 0 and XMax > XMin, have %d, [%g,%g]",
				ip.Mesh.Elements, ip.Mesh.XMin, ip.Mesh.XMax)
		}
	case "rectangle":
		if ip.Mesh.NX < 1 || ip.Mesh.NY < 1 || ip.Mesh.XMax <= ip.Mesh.XMin || ip.Mesh.YMax <= ip.Mesh.YMin {
			return fmt.Errorf("rectangle mesh needs NX, NY > 0 and a non empty box")
		}
	case "gambit":
		if len(ip.Mesh.File) == 0 {
			return fmt.Errorf("gambit mesh needs a File")
		}
	}
	if ip.Diagonal != "set" && ip.Diagonal != "preserve" {
		return fmt.Errorf("unknown diagonal policy \"%s\", must be set or preserve", ip.Diagonal)
	}
	if len(ip.Integrators) == 0 {
		return fmt.Errorf("no integrators given")
	}
	for _, integ := range ip.Integrators {
		if !contains(integratorKinds, integ.Kind) {
			return fmt.Errorf("unknown integrator kind \"%s\", must be one of %v", integ.Kind, integratorKinds)
		}
		if !contains(integratorTypes[integ.Kind], integ.Type) {
			return fmt.Errorf("integrator %s is not available for kind %s, use one of %v",
				integ.Type, integ.Kind, integratorTypes[integ.Kind])
		}
	}
	return
}

func contains(list []string, s string) bool {
	for _, l := range list {
		if l == s {
			return true
		}
	}
	return false
}

func (ip *ProblemParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("[%s]\t\t= Mesh Type\n", ip.Mesh.Type)
	switch ip.Mesh.Type {
	case "line":
		fmt.Printf("[%d] on [%8.5f,%8.5f]\t= Elements\n", ip.Mesh.Elements, ip.Mesh.XMin, ip.Mesh.XMax)
	case "rectangle":
		fmt.Printf("[%dx%d] on [%8.5f,%8.5f]x[%8.5f,%8.5f]\t= Cells\n",
			ip.Mesh.NX, ip.Mesh.NY, ip.Mesh.XMin, ip.Mesh.XMax, ip.Mesh.YMin, ip.Mesh.YMax)
	case "gambit":
		fmt.Printf("[%s]\t= Mesh File\n", ip.Mesh.File)
	}
	fmt.Printf("[%d]\t\t\t\t= Polynomial Order\n", ip.Order)
	fmt.Printf("[%v]\t\t\t= Continuous\n", ip.Continuous)
	for _, integ := range ip.Integrators {
		fmt.Printf("%s %s(%g)\n", integ.Kind, integ.Type, integ.Coef)
	}
	keys := make([]int, len(ip.Essential))
	i := 0
	for k := range ip.Essential {
		keys[i] = k
		i++
	}
	sort.Ints(keys)
	for _, key := range keys {
		fmt.Printf("Essential[%d] = %v\n", key, ip.Essential[key])
	}
	if ip.Diagonal == "preserve" {
		fmt.Printf("[preserve]\t\t= Diagonal\n")
	} else {
		fmt.Printf("[set %g]\t\t= Diagonal\n", ip.DiagonalValue)
	}
	fmt.Printf("%8.5f\t\t= Source\n", ip.Source)
}
