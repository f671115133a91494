// Package mapping assigns source columns of an uploaded table to the
// fixed set of import fields, first by keyword heuristics over the header
// row and then by user adjustment.
package mapping

// Field is one of the fixed target attributes a source column can be
// mapped onto.
type Field string

const (
	FieldTutorName   Field = "tutor_name"
	FieldTutorEmail  Field = "tutor_email"
	FieldTutorPhone  Field = "tutor_phone"
	FieldPetName     Field = "pet_name"
	FieldPetSpecies  Field = "pet_species"
	FieldPetBreed    Field = "pet_breed"
	FieldMicrochipID Field = "microchip_id"
)

// Fields lists every import field in display order.
var Fields = []Field{
	FieldTutorName,
	FieldTutorEmail,
	FieldTutorPhone,
	FieldPetName,
	FieldPetSpecies,
	FieldPetBreed,
	FieldMicrochipID,
}

// RequiredFields must be mapped to a source column before an import may
// proceed.
var RequiredFields = []Field{FieldTutorName, FieldTutorEmail, FieldPetName}

// Mapping assigns each import field the name of a source column. An
// absent or empty entry means the field is unmapped. The same source
// column may be assigned to more than one field; nothing here enforces
// uniqueness.
type Mapping map[Field]string

// Column returns the source column assigned to field, or "" when unmapped.
func (m Mapping) Column(field Field) string {
	return m[field]
}

// CanProceed reports whether every required field has a source column
// assigned. It is the gate between the mapping step and the import run;
// the caller decides how to block progress when false.
func (m Mapping) CanProceed() bool {
	for _, field := range RequiredFields {
		if m[field] == "" {
			return false
		}
	}
	return true
}

// ColumnIndex resolves the mapped column for field to its position in
// headers, or -1 when the field is unmapped or the column is absent.
// Duplicate header names resolve to the first occurrence.
func (m Mapping) ColumnIndex(field Field, headers []string) int {
	column := m[field]
	if column == "" {
		return -1
	}
	for i, header := range headers {
		if header == column {
			return i
		}
	}
	return -1
}
