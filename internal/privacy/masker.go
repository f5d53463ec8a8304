package privacy

import (
	"strings"
	"sync"
)

// maxPasses bounds re-scanning after replacement.
const maxPasses = 3

// Result is masked text plus the number of matches removed per kind.
type Result struct {
	Text   string
	Counts map[Kind]int
}

// Total returns the number of matches removed.
func (r Result) Total() int {
	n := 0
	for _, c := range r.Counts {
		n += c
	}
	return n
}

type finding struct {
	kind     Kind
	original string
}

// Mask replaces every sensitive match in text with a fixed-shape token.
// It is deterministic and safe for concurrent use.
func Mask(text string) Result {
	res, _ := mask(text)
	return res
}

func mask(text string) (Result, []finding) {
	res := Result{Text: text, Counts: make(map[Kind]int)}
	var found []finding

	for pass := 0; pass < maxPasses; pass++ {
		changed := false
		for _, d := range detectors {
			res.Text = d.pattern.ReplaceAllStringFunc(res.Text, func(m string) string {
				changed = true
				res.Counts[d.kind]++
				found = append(found, finding{kind: d.kind, original: m})
				return token(d.label, m)
			})
		}
		if !changed {
			break
		}
	}
	return res, found
}

// Document is the set of complaint fields that carry personal data.
type Document struct {
	Contact     string
	Title       string
	Description string
}

// MaskedDocument is the masked form of a Document. The masked contact is
// not returned; contacts are restored only through Masker.ContactChannel.
type MaskedDocument struct {
	Title       string
	Description string
	Counts      map[Kind]int
}

// CountsByName converts the per-kind counts to a string keyed map.
func (m MaskedDocument) CountsByName() map[string]int {
	out := make(map[string]int, len(m.Counts))
	for k, v := range m.Counts {
		out[string(k)] = v
	}
	return out
}

// Masker masks complaint documents and keeps the originals it removed,
// keyed by complaint id, for authorized restoration. The originals never
// leave the package except through ContactChannel.
type Masker struct {
	mu    sync.Mutex
	vault map[string][]finding
}

// NewMasker creates a Masker with an empty vault.
func NewMasker() *Masker {
	return &Masker{vault: make(map[string][]finding)}
}

// MaskDocument masks doc and records what was removed under complaintID.
// Masking the same document again replaces the previous vault entry.
func (m *Masker) MaskDocument(complaintID string, doc Document) MaskedDocument {
	out := MaskedDocument{Counts: make(map[Kind]int)}
	var found []finding

	for i, field := range []string{doc.Contact, doc.Title, doc.Description} {
		res, f := mask(field)
		for k, v := range res.Counts {
			out.Counts[k] += v
		}
		found = append(found, f...)
		switch i {
		case 1:
			out.Title = res.Text
		case 2:
			out.Description = res.Text
		}
	}

	m.mu.Lock()
	m.vault[complaintID] = found
	m.mu.Unlock()
	return out
}

// ContactChannel returns the first email, or failing that the first phone
// number, removed from the complaint. When the vault has no entry (for
// example after a restart) and doc is given, doc is masked again to rebuild
// it.
func (m *Masker) ContactChannel(complaintID string, doc *Document) (string, bool) {
	m.mu.Lock()
	found, ok := m.vault[complaintID]
	m.mu.Unlock()
	if !ok && doc != nil {
		m.MaskDocument(complaintID, *doc)
		m.mu.Lock()
		found = m.vault[complaintID]
		m.mu.Unlock()
	}

	for _, kind := range []Kind{KindEmail, KindPhone} {
		for _, f := range found {
			if f.kind == kind {
				return strings.TrimSpace(f.original), true
			}
		}
	}
	return "", false
}

// Forget drops the vault entry of a complaint.
func (m *Masker) Forget(complaintID string) {
	m.mu.Lock()
	delete(m.vault, complaintID)
	m.mu.Unlock()
}

// RedactContact returns a log-safe form of a recipient address.
func RedactContact(contact string) string {
	if strings.HasPrefix(contact, "#") {
		return contact
	}
	res := Mask(contact)
	if res.Total() == 0 {
		return "[REDACTED]"
	}
	return res.Text
}
