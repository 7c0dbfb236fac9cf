package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMustNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := MustNew(reg)

	m.Tasks.Set(3)
	m.Mutations.WithLabelValues("add").Inc()
	m.Exports.WithLabelValues("file", "success").Inc()

	assert.Equal(t, float64(3), testutil.ToFloat64(m.Tasks))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Mutations.WithLabelValues("add")))

	families, err := reg.Gather()
	assert.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMustNewPanicsOnDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	MustNew(reg)
	assert.Panics(t, func() { MustNew(reg) })
}

func TestDefaultIsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
}
