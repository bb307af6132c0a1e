package lp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinimize_SimpleLowerBoundBinding(t *testing.T) {
	p := New()
	x := p.AddVar(0, 10)
	require.NoError(t, p.AddConstraint(map[VarID]float64{x: 1}, GE, 3))
	p.SetObjective(map[VarID]float64{x: 1})

	status, err := p.Minimize()
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, status)
	assert.InDelta(t, 3, p.Value(x), 1e-6)
}

func TestMinimize_UpperBoundBinding(t *testing.T) {
	p := New()
	x := p.AddVar(0, 5)
	require.NoError(t, p.AddConstraint(map[VarID]float64{x: 1}, LE, 10))
	p.SetObjective(map[VarID]float64{x: -1})

	status, err := p.Minimize()
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, status)
	assert.InDelta(t, 5, p.Value(x), 1e-6)
}

func TestMinimize_TwoVariableInequality(t *testing.T) {
	p := New()
	x := p.AddVar(0, 3)
	y := p.AddVar(0, 3)
	require.NoError(t, p.AddConstraint(map[VarID]float64{x: 1, y: 1}, GE, 4))
	p.SetObjective(map[VarID]float64{x: 1, y: 1})

	status, err := p.Minimize()
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, status)
	assert.InDelta(t, 4, p.Value(x)+p.Value(y), 1e-6)
}

func TestMinimize_EqualityConstraint(t *testing.T) {
	p := New()
	x := p.AddVar(0, 10)
	y := p.AddVar(0, 10)
	require.NoError(t, p.AddConstraint(map[VarID]float64{x: 1, y: 1}, EQ, 5))
	p.SetObjective(map[VarID]float64{x: 2, y: 1})

	status, err := p.Minimize()
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, status)
	assert.InDelta(t, 5, p.Value(x)+p.Value(y), 1e-6)
	// minimizing 2x+y with x+y=5, x,y>=0: optimum puts all weight on y.
	assert.InDelta(t, 0, p.Value(x), 1e-6)
	assert.InDelta(t, 5, p.Value(y), 1e-6)
}

func TestMinimize_Infeasible(t *testing.T) {
	p := New()
	x := p.AddVar(0, 3)
	require.NoError(t, p.AddConstraint(map[VarID]float64{x: 1}, GE, 5))
	p.SetObjective(map[VarID]float64{x: 1})

	status, err := p.Minimize()
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, status)
}

func TestMinimize_Unbounded(t *testing.T) {
	p := New()
	x := p.AddVar(0, math.Inf(1))
	p.SetObjective(map[VarID]float64{x: -1})

	status, err := p.Minimize()
	require.NoError(t, err)
	assert.Equal(t, StatusUnbounded, status)
}

func TestMinimize_ChainedEqualitySOCLikeDynamics(t *testing.T) {
	// Mirrors the dispatch model's SOC-chain shape: soc[t+1] = soc[t] + ch[t].
	p := New()
	soc0 := p.AddVar(0, 100)
	soc1 := p.AddVar(0, 100)
	ch0 := p.AddVar(0, 10)

	require.NoError(t, p.AddConstraint(map[VarID]float64{soc0: 1}, EQ, 20))
	require.NoError(t, p.AddConstraint(map[VarID]float64{soc1: 1, soc0: -1, ch0: -1}, EQ, 0))
	p.SetObjective(map[VarID]float64{ch0: 1})

	status, err := p.Minimize()
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, status)
	assert.InDelta(t, 20, p.Value(soc0), 1e-6)
	assert.InDelta(t, 0, p.Value(ch0), 1e-6)
	assert.InDelta(t, 20, p.Value(soc1), 1e-6)
}
