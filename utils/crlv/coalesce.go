package crlv

import (
	"strconv"

	"github.com/Aashish23092/crlv-reader/dto"
	"github.com/Aashish23092/crlv-reader/utils"
)

// ownerMatchThreshold is the name similarity above which two owner spellings
// are treated as the same person.
const ownerMatchThreshold = 0.85

// MergeKeyOf computes the identity of the vehicle a record describes:
// Renavam, then plate, then CRV number, then CRV security number, then the
// document itself.
func MergeKeyOf(rec dto.ExtractedRecord) dto.MergeKey {
	if v := utils.OnlyDigits(rec.Fields.Get(dto.FieldRenavam)); v != "" {
		return dto.MergeKey{Kind: dto.MergeByRenavam, Value: v}
	}
	if v := CleanPlate(rec.Fields.Get(dto.FieldPlate)); v != "" {
		return dto.MergeKey{Kind: dto.MergeByPlate, Value: v}
	}
	if v := utils.OnlyDigits(rec.Fields.Get(dto.FieldCRVNumber)); v != "" {
		return dto.MergeKey{Kind: dto.MergeByCRVNumber, Value: v}
	}
	if v := utils.OnlyDigits(rec.Fields.Get(dto.FieldCRVSecurityNumber)); v != "" {
		return dto.MergeKey{Kind: dto.MergeBySecurityCRV, Value: v}
	}
	return dto.MergeKey{Kind: dto.MergeByDocument, Value: rec.DocumentID}
}

// Coalesce merges the records of a whole batch into one record per vehicle.
// Groups come out in order of first appearance. Within a group the first
// non-empty value of each field wins; later differing values are reported as
// conflicts. Every contributing document is listed in Sources.
func Coalesce(records []dto.ExtractedRecord) []dto.VehicleRecord {
	index := make(map[dto.MergeKey]int)
	out := make([]dto.VehicleRecord, 0, len(records))

	for i, rec := range records {
		key := MergeKeyOf(rec)
		if key.Kind == dto.MergeByDocument && key.Value == "" {
			// Anonymous documents never merge with each other.
			key.Value = "#" + strconv.Itoa(i)
		}

		pos, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, newVehicle(key, rec))
			continue
		}
		mergeInto(&out[pos], rec)
	}
	return out
}

func newVehicle(key dto.MergeKey, rec dto.ExtractedRecord) dto.VehicleRecord {
	v := dto.VehicleRecord{
		Key:     key,
		Fields:  dto.NewFields(),
		Extras:  make(map[string]string),
		Sources: make([]string, 0, 1),
	}
	for f, val := range rec.Fields {
		v.Fields[f] = val
	}
	for k, val := range rec.Extras {
		if val != "" {
			v.Extras[k] = val
		}
	}
	if rec.DocumentID != "" {
		v.Sources = append(v.Sources, rec.DocumentID)
	}
	return v
}

func mergeInto(v *dto.VehicleRecord, rec dto.ExtractedRecord) {
	for _, f := range dto.CanonicalFields {
		incoming := rec.Fields.Get(f)
		if incoming == "" {
			continue
		}
		kept := v.Fields.Get(f)
		if kept == "" {
			v.Fields[f] = incoming
			continue
		}
		if !sameValue(f, kept, incoming) {
			v.Conflicts = append(v.Conflicts, dto.FieldConflict{
				Field:      f,
				Kept:       kept,
				Discarded:  incoming,
				DocumentID: rec.DocumentID,
			})
		}
	}

	for k, val := range rec.Extras {
		if val != "" && v.Extras[k] == "" {
			v.Extras[k] = val
		}
	}
	if rec.DocumentID != "" {
		v.Sources = append(v.Sources, rec.DocumentID)
	}
}

// digitFields compare on digits only; punctuation differs between layouts.
var digitFields = map[dto.Field]bool{
	dto.FieldRenavam:           true,
	dto.FieldCRVNumber:         true,
	dto.FieldCRVSecurityNumber: true,
	dto.FieldCLASecurityCode:   true,
	dto.FieldCPF:               true,
	dto.FieldCNPJ:              true,
}

func sameValue(f dto.Field, a, b string) bool {
	switch {
	case digitFields[f]:
		return utils.OnlyDigits(a) == utils.OnlyDigits(b)
	case f == dto.FieldPlate:
		return CleanPlate(a) == CleanPlate(b)
	case f == dto.FieldOwner:
		return utils.CalculateNameSimilarity(a, b) >= ownerMatchThreshold
	default:
		return utils.FoldKey(a) == utils.FoldKey(b)
	}
}
