package crlv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanAfterSkipsNoiseAndLabels(t *testing.T) {
	lines := []string{"PLACA", "***", "CHASSI", "ABC1D23"}

	v, ok := ScanAfter(lines, 0, 3, nil)
	assert.True(t, ok)
	assert.Equal(t, "ABC1D23", v)

	_, ok = ScanAfter(lines, 0, 2, nil)
	assert.False(t, ok)
}

func TestScanAfterContinuesPastRejectedCandidates(t *testing.T) {
	lines := []string{"COR", "JOSE", "ALCOOL", "BRANCA"}

	v, ok := ScanAfter(lines, 0, 5, IsColor)
	assert.True(t, ok)
	assert.Equal(t, "BRANCA", v)
}

func TestScanLabelTriesEveryOccurrence(t *testing.T) {
	lines := []string{"COR", "XYZ", "PLACA", "COR", "PRETO"}

	v, ok := ScanLabel(lines, labelLine(`COR`), 1, IsColor)
	assert.True(t, ok)
	assert.Equal(t, "PRETO", v)
}

func TestScanNeverReturnsLabel(t *testing.T) {
	var lines []string
	for i, l := range KnownLabels() {
		lines = append(lines, l, "***")
		if i%3 == 0 {
			lines = append(lines, "VALOR "+l)
		}
		lines = append(lines, "ITEM: "+l)
	}

	for _, spec := range Registry() {
		if spec.Label == nil {
			continue
		}
		for _, validate := range []Validator{nil, spec.Validate} {
			v, ok := ScanLabel(lines, spec.Label, spec.Lookahead, validate)
			if ok {
				assert.False(t, IsLabel(v), "field %s returned label %q", spec.Field, v)
			}
		}
	}
}
