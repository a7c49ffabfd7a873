package InputParameters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	{
		fileInput := []byte(`
Title: Poisson on a line
Mesh:
  Type: Line
  Elements: 8
  XMin: 0
  XMax: 2
Order: 2
Continuous: true
Integrators:
  - Kind: Domain
    Type: Diffusion
    Coef: 1
  - Kind: Boundary
    Type: Mass
    Coef: 3.5
Essential:
  1: 1.
  2: -0.5
Deferred: true
Source: 2
`)
		var ip ProblemParameters
		require.NoError(t, ip.Parse(fileInput))
		assert.Equal(t, "line", ip.Mesh.Type)
		assert.Equal(t, 8, ip.Mesh.Elements)
		assert.Equal(t, 2., ip.Mesh.XMax)
		assert.Equal(t, 2, ip.Order)
		assert.True(t, ip.Continuous)
		require.Len(t, ip.Integrators, 2)
		assert.Equal(t, "Boundary", ip.Integrators[1].Kind)
		assert.Equal(t, 3.5, ip.Integrators[1].Coef)
		assert.Equal(t, 1., ip.Essential[1])
		assert.Equal(t, -0.5, ip.Essential[2])
		// defaults
		assert.Equal(t, "set", ip.Diagonal)
		assert.Equal(t, 1., ip.DiagonalValue)
		assert.True(t, ip.Deferred)
		assert.False(t, ip.PrecomputedSparsity)
		ip.Print()
	}
	{
		fileInput := []byte(`
Title: Penalty
Mesh:
  Type: rectangle
  NX: 2
  NY: 3
  XMax: 1
  YMax: 1
Order: 1
Integrators:
  - {Kind: Domain, Type: Mass}
  - {Kind: InteriorFace, Type: JumpPenalty, Coef: 10}
Diagonal: Preserve
`)
		var ip ProblemParameters
		require.NoError(t, ip.Parse(fileInput))
		assert.Equal(t, "preserve", ip.Diagonal)
		assert.Equal(t, 3, ip.Mesh.NY)
		assert.False(t, ip.Continuous)
		ip.Print()
	}
	for _, bad := range []string{
		"Mesh: {Type: sphere}\nIntegrators: [{Kind: Domain, Type: Mass}]",
		"Mesh: {Type: line, Elements: 0, XMax: 1}\nIntegrators: [{Kind: Domain, Type: Mass}]",
		"Mesh: {Type: line, Elements: 2, XMax: 1}",
		"Mesh: {Type: line, Elements: 2, XMax: 1}\nIntegrators: [{Kind: Boundary, Type: Diffusion}]",
		"Mesh: {Type: line, Elements: 2, XMax: 1}\nIntegrators: [{Kind: Domain, Type: Mass}]\nDiagonal: keep",
		"Mesh: {Type: gambit}\nIntegrators: [{Kind: Domain, Type: Mass}]",
		"Mesh: [",
	} {
		var ip ProblemParameters
		assert.Error(t, ip.Parse([]byte(bad)), bad)
	}
}
