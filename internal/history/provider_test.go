package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_KnownPatient(t *testing.T) {
	p := NewProvider()

	h := p.Lookup("1")

	assert.Equal(t, "1", h.PatientID)
	assert.Equal(t, "2024-01-15", h.LastVisit)
	assert.Contains(t, h.RelevantBackground, "HTA")
	require.NotEmpty(t, h.CurrentMedication)
}

func TestLookup_UnknownPatientFallsBack(t *testing.T) {
	p := NewProvider()

	h := p.Lookup("zzz")

	assert.Equal(t, "zzz", h.PatientID, "fallback keeps the requested id")
	assert.NotEmpty(t, h.Summary)
	assert.Empty(t, h.LastVisit)
	assert.Empty(t, h.RelevantBackground)
	assert.Empty(t, h.CurrentMedication)
	assert.NotNil(t, h.RelevantBackground, "lists marshal as [] not null")
	assert.NotNil(t, h.CurrentMedication)
}

func TestLookup_ContextText(t *testing.T) {
	p := NewProvider()

	ctx := p.Lookup("1").ContextText()

	assert.Contains(t, ctx, "hipertensión")
	assert.Contains(t, ctx, "Última consulta: 2024-01-15")
	assert.Contains(t, ctx, "Enalapril 10 mg 1x día")
}
