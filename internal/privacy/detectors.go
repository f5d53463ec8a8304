// Package privacy masks personal data in complaint text before it reaches
// any capability provider, log or prompt.
package privacy

import "regexp"

// Kind names a class of sensitive data.
type Kind string

// Detector kinds.
const (
	KindCard        Kind = "card"
	KindIdentityDoc Kind = "identity_doc"
	KindEmail       Kind = "email"
	KindPhone       Kind = "phone"
	KindAddress     Kind = "address"
)

type detector struct {
	kind    Kind
	label   string
	pattern *regexp.Regexp
}

// detectors run in order: cards before identity documents so a 16 digit
// card is never half-consumed as a CPF, and identity documents before
// phones for the same reason.
var detectors = []detector{
	{
		kind:    KindCard,
		label:   "CARTAO",
		pattern: regexp.MustCompile(`\b(?:\d{4}[ -]?){3}\d{4}\b`),
	},
	{
		kind:  KindIdentityDoc,
		label: "DOCUMENTO",
		// CPF, CNPJ, then RG. RG only matches with punctuation.
		pattern: regexp.MustCompile(`\b\d{3}\.?\d{3}\.?\d{3}-?\d{2}\b|\b\d{2}\.?\d{3}\.?\d{3}/?\d{4}-?\d{2}\b|\b\d{1,2}\.\d{3}\.\d{3}-[\dXx]\b`),
	},
	{
		kind:    KindEmail,
		label:   "EMAIL",
		pattern: regexp.MustCompile(`[A-Za-z0-9_.+-]+@[A-Za-z0-9-]+\.[A-Za-z0-9.-]+`),
	},
	{
		kind:    KindPhone,
		label:   "TELEFONE",
		pattern: regexp.MustCompile(`(?:\+?55[ -]?)?\(?\b\d{2}\)?[ -]?\d{4,5}-?\d{4}\b`),
	},
	{
		kind:  KindAddress,
		label: "ENDERECO",
		// Street lines with a number, then CEP postal codes.
		pattern: regexp.MustCompile(`(?i)\b(?:rua|r\.|avenida|av\.|alameda|travessa|estrada|rodovia|pra[çc]a)\s+[^\d\n,;]{2,60}?,?\s*(?:n[º°o.]?\s*)?\d{1,5}\b|\b\d{5}-\d{3}\b`),
	},
}

// Kinds returns every detector kind in application order.
func Kinds() []Kind {
	out := make([]Kind, len(detectors))
	for i, d := range detectors {
		out[i] = d.kind
	}
	return out
}

// Detect reports whether any detector matches text.
func Detect(text string) bool {
	for _, d := range detectors {
		if d.pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// lengthClass buckets the rune length of a matched value so tokens keep a
// rough sense of size without leaking it.
func lengthClass(s string) string {
	n := len([]rune(s))
	switch {
	case n <= 10:
		return "P"
	case n <= 20:
		return "M"
	default:
		return "G"
	}
}

func token(label, original string) string {
	return "[" + label + "-" + lengthClass(original) + "]"
}
