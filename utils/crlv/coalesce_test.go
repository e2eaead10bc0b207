package crlv

import (
	"testing"

	"github.com/Aashish23092/crlv-reader/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id string, kv ...string) dto.ExtractedRecord {
	fields := dto.NewFields()
	for i := 0; i+1 < len(kv); i += 2 {
		fields[dto.Field(kv[i])] = kv[i+1]
	}
	return dto.ExtractedRecord{DocumentID: id, Fields: fields}
}

func TestMergeKeyOf(t *testing.T) {
	assert.Equal(t, dto.MergeKey{Kind: dto.MergeByRenavam, Value: "01234567890"},
		MergeKeyOf(record("a", "renavam", "0123456789-0", "plate", "ABC1234")))
	assert.Equal(t, dto.MergeKey{Kind: dto.MergeByPlate, Value: "ABC1234"},
		MergeKeyOf(record("a", "plate", "abc1-234", "crv_number", "123456")))
	assert.Equal(t, dto.MergeKey{Kind: dto.MergeByCRVNumber, Value: "123456"},
		MergeKeyOf(record("a", "crv_number", "123.456")))
	assert.Equal(t, dto.MergeKey{Kind: dto.MergeBySecurityCRV, Value: "45678901234"},
		MergeKeyOf(record("a", "crv_security_number", "45678901234")))
	assert.Equal(t, dto.MergeKey{Kind: dto.MergeByDocument, Value: "a"},
		MergeKeyOf(record("a", "color", "BRANCA")))
}

func TestCoalesceFirstWins(t *testing.T) {
	out := Coalesce([]dto.ExtractedRecord{
		record("a", "renavam", "01234567890", "color", "BRANCA"),
		record("b", "renavam", "01234567890", "color", "PRETA", "fuel", "DIESEL"),
	})

	require.Len(t, out, 1)
	v := out[0]
	assert.Equal(t, "BRANCA", v.Fields.Get(dto.FieldColor))
	assert.Equal(t, "DIESEL", v.Fields.Get(dto.FieldFuel))
	assert.Equal(t, []string{"a", "b"}, v.Sources)

	require.Len(t, v.Conflicts, 1)
	assert.Equal(t, dto.FieldConflict{Field: dto.FieldColor, Kept: "BRANCA", Discarded: "PRETA", DocumentID: "b"}, v.Conflicts[0])
}

func TestCoalesceFillsEmptyFields(t *testing.T) {
	out := Coalesce([]dto.ExtractedRecord{
		record("a", "plate", "ABC1234"),
		record("b", "plate", "ABC-1234", "owner", "JOSE DA SILVA"),
		record("c", "plate", "ABC1234", "owner", "JOSE DA SILVA."),
	})

	require.Len(t, out, 1)
	assert.Equal(t, "JOSE DA SILVA", out[0].Fields.Get(dto.FieldOwner))
	assert.Empty(t, out[0].Conflicts)
	assert.Equal(t, []string{"a", "b", "c"}, out[0].Sources)
}

func TestCoalesceExtras(t *testing.T) {
	a := record("a", "renavam", "111111111")
	a.Extras = map[string]string{dto.ExtraCenter: "C1"}
	b := record("b", "renavam", "111111111")
	b.Extras = map[string]string{dto.ExtraCenter: "C2", dto.ExtraDivision: "D2"}

	out := Coalesce([]dto.ExtractedRecord{a, b})

	require.Len(t, out, 1)
	assert.Equal(t, "C1", out[0].Extras[dto.ExtraCenter])
	assert.Equal(t, "D2", out[0].Extras[dto.ExtraDivision])
}

func TestCoalesceFallsBackToDocument(t *testing.T) {
	out := Coalesce([]dto.ExtractedRecord{
		record("a", "color", "BRANCA"),
		record("b", "color", "BRANCA"),
		record("", "color", "PRETA"),
		record("", "color", "PRETA"),
	})

	require.Len(t, out, 4)
	assert.Equal(t, dto.MergeKey{Kind: dto.MergeByDocument, Value: "a"}, out[0].Key)
	assert.Equal(t, dto.MergeKey{Kind: dto.MergeByDocument, Value: "#2"}, out[2].Key)
	assert.Empty(t, out[2].Sources)
}

func TestCoalesceIsOrderIndependent(t *testing.T) {
	records := []dto.ExtractedRecord{
		record("a", "renavam", "01234567890", "plate", "ABC1234"),
		record("b", "renavam", "01234567890", "color", "BRANCA"),
		record("c", "plate", "XYZ9A87", "fuel", "FLEX"),
		record("d", "crv_number", "555555", "owner", "MARIA SOUZA"),
		record("e", "plate", "XYZ9A87", "model", "VW/GOL"),
	}
	permuted := []dto.ExtractedRecord{records[4], records[2], records[1], records[3], records[0]}

	index := func(vs []dto.VehicleRecord) map[string]dto.VehicleRecord {
		m := make(map[string]dto.VehicleRecord)
		for _, v := range vs {
			m[v.Key.String()] = v
		}
		return m
	}

	got, want := index(Coalesce(permuted)), index(Coalesce(records))
	require.Len(t, got, 3)
	require.Len(t, want, 3)
	for key, w := range want {
		g, ok := got[key]
		require.True(t, ok, key)
		assert.Equal(t, w.Fields, g.Fields, key)
		assert.ElementsMatch(t, w.Sources, g.Sources, key)
	}
}

func TestCoalesceEndToEnd(t *testing.T) {
	e := NewEngine(DefaultConfig())

	a, err := e.ExtractDocument("pagina-1", "RENAVAM 01234567890")
	require.NoError(t, err)
	b, err := e.ExtractDocument("pagina-2", "RENAVAM 01234567890\nPLACA ABC1234")
	require.NoError(t, err)
	assert.Equal(t, "", a.Fields.Get(dto.FieldPlate))

	out := Coalesce([]dto.ExtractedRecord{a, b})

	require.Len(t, out, 1)
	v := out[0]
	assert.Equal(t, dto.MergeByRenavam, v.Key.Kind)
	assert.Equal(t, "01234567890", v.Fields.Get(dto.FieldRenavam))
	assert.Equal(t, "ABC1-234", v.Fields.Get(dto.FieldPlate))
	assert.Equal(t, []string{"pagina-1", "pagina-2"}, v.Sources)
}
