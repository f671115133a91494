package mapping

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// rule associates an import field with the header keywords that suggest
// it. Rules are evaluated in declaration order: tutor fields come before
// pet fields so a header like "Nome do Tutor" is claimed by the tutor
// name rule, whose keywords include the bare "nome". A header consumed by
// one rule stays eligible for later rules; the classifier does not
// enforce exclusivity.
type rule struct {
	field    Field
	keywords []string
}

var rules = []rule{
	{FieldTutorName, []string{"tutor", "proprietario", "dono", "respons", "cliente", "nome", "name"}},
	{FieldTutorEmail, []string{"email", "e-mail", "mail"}},
	{FieldTutorPhone, []string{"telefone", "phone", "celular", "whatsapp", "fone", "tel"}},
	{FieldPetName, []string{"pet", "animal", "nome do pet", "nome pet"}},
	{FieldPetSpecies, []string{"especie", "species", "tipo"}},
	{FieldPetBreed, []string{"raca", "breed"}},
	{FieldMicrochipID, []string{"microchip", "chip", "id"}},
}

// Classify guesses a mapping from the header row. For each field the
// first header whose normalized text contains one of the field's
// keywords is chosen; fields with no matching header are left unmapped.
// The result is a starting point the user may adjust.
func Classify(headers []string) Mapping {
	normalized := make([]string, len(headers))
	for i, header := range headers {
		normalized[i] = normalizeHeader(header)
	}

	result := make(Mapping, len(rules))
	for _, r := range rules {
		for i, header := range normalized {
			if header == "" {
				continue
			}
			if matchesAny(header, r.keywords) {
				result[r.field] = headers[i]
				break
			}
		}
	}
	return result
}

func matchesAny(header string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(header, keyword) {
			return true
		}
	}
	return false
}

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func normalizeHeader(header string) string {
	stripped, _, err := transform.String(diacriticStripper, header)
	if err != nil {
		stripped = header
	}
	return strings.ToLower(strings.TrimSpace(stripped))
}
