package crlv

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrectPlate(t *testing.T) {
	assert.Equal(t, "ABC1234", CorrectPlate("ABC-1234"))
	assert.Equal(t, "ABC1D23", CorrectPlate("abc1d23"))
	assert.Equal(t, "ABC1234", CorrectPlate("A8C1234"))
	assert.Equal(t, "ABC0234", CorrectPlate("ABCO234"))

	// Tokens that cannot become a plate come back untouched.
	assert.Equal(t, "XYZ", CorrectPlate("XYZ"))
	assert.Equal(t, "12345678", CorrectPlate("12345678"))
	assert.Equal(t, "RENAVAM", CorrectPlate("RENAVAM"))
}

const (
	plateLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	plateDigits  = "0123456789"
)

func randomPlate(r *rand.Rand, digits [7]bool) string {
	b := make([]byte, 7)
	for i, isDigit := range digits {
		if isDigit {
			b[i] = plateDigits[r.IntN(len(plateDigits))]
		} else {
			b[i] = plateLetters[r.IntN(len(plateLetters))]
		}
	}
	return string(b)
}

// confusion returns the glyph OCR mistakes c for.
func confusion(c rune) (rune, bool) {
	if d, ok := letterToDigit[c]; ok {
		return d, true
	}
	l, ok := digitToLetter[c]
	return l, ok
}

// repairsExactly reports whether a confusion at position i of plate reads
// back as plate itself. L comes back as I, and a legacy plate whose fifth
// character is a confusable digit is first read as Mercosul.
func repairsExactly(plate string, i int) bool {
	if plate[i] == 'L' {
		return false
	}
	if reLegacyPlate.MatchString(plate) {
		_, ambiguous := digitToLetter[rune(plate[4])]
		return !ambiguous
	}
	return true
}

func checkSingleConfusion(t *testing.T, plate string, i int) {
	t.Helper()
	require.True(t, IsValidPlate(plate), plate)

	assert.Equal(t, plate, CorrectPlate(plate))
	assert.Equal(t, plate, CorrectPlate(plate[:3]+"-"+plate[3:]))
	assert.Equal(t, plate, CorrectPlate(strings.ToLower(plate)))

	swapped, ok := confusion(rune(plate[i]))
	require.True(t, ok, "%s[%d] is not confusable", plate, i)
	m := []rune(plate)
	m[i] = swapped
	mutated := string(m)

	got := CorrectPlate(mutated)
	if IsValidPlate(mutated) {
		// The other format already accepts it.
		assert.Equal(t, mutated, got)
		return
	}
	assert.True(t, IsValidPlate(got), "%s corrected to %s", mutated, got)
	if repairsExactly(plate, i) {
		assert.Equal(t, plate, got, "mutated %s", mutated)
	}
}

func TestCorrectPlateRepairsSingleConfusion(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))

	for _, digits := range plateFormats {
		for i, isDigit := range digits {
			glyphs := "OILBS"
			if isDigit {
				glyphs = "0185"
			}
			for _, g := range glyphs {
				for n := 0; n < 25; n++ {
					b := []byte(randomPlate(r, digits))
					b[i] = byte(g)
					checkSingleConfusion(t, string(b), i)
				}
			}
		}
	}
}

func TestCorrectPlateKeepsValidPlates(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 5))

	for _, digits := range plateFormats {
		for n := 0; n < 500; n++ {
			plate := randomPlate(r, digits)
			require.True(t, IsValidPlate(plate), plate)
			assert.Equal(t, plate, CorrectPlate(plate))
		}
	}
}

func TestCorrectPlateSpecificReadings(t *testing.T) {
	// Mercosul is tried first.
	assert.Equal(t, "SBC1S34", CorrectPlate("5BC1534"))
	// L and I both read as 1; 1 reads back as I.
	assert.Equal(t, "IBC1234", CorrectPlate("1BC1234"))
	assert.Equal(t, "ABC1D23", CorrectPlate("ABCID23"))
}

func TestFixOCRDigits(t *testing.T) {
	assert.Equal(t, "0123456789", FixOCRDigits("O1234S6789"))
	assert.Equal(t, "1118", FixOCRDigits("IlLB"))
}
