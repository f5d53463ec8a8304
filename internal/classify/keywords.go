package classify

import (
	"strings"

	"github.com/sells-group/complaint-cli/internal/model"
)

// Escalation keywords per urgency tier, stored folded.
var (
	criticalKeywords = []string{
		"procon", "processo", "justica", "advogado", "juizado",
		"fraude", "golpe", "roubo", "clonado", "clonaram",
		"saude", "doenca", "alergico", "vencido", "contaminado",
		"urgente", "urgencia", "imediato", "hoje",
	}
	highKeywords = []string{
		"prazo", "evento", "aniversario", "casamento", "viagem",
		"presente", "amanha", "semana", "dias", "garantia",
		"precisando", "necessito", "dependo",
	}
)

// KeywordMatch is the highest escalation tier found in a text.
type KeywordMatch struct {
	Tier    model.Urgency
	Keyword string
}

// Found reports whether any escalation keyword matched.
func (m KeywordMatch) Found() bool { return m.Keyword != "" }

// Satisfies reports whether the match justifies urgency u. Low and medium
// need no keyword; high needs any tier; critical needs a critical keyword.
func (m KeywordMatch) Satisfies(u model.Urgency) bool {
	switch u {
	case model.UrgencyCritical:
		return m.Tier == model.UrgencyCritical
	case model.UrgencyHigh:
		return m.Found()
	}
	return true
}

// MatchKeywords scans the given texts for escalation keywords, critical
// tier first. Matching ignores case and accents.
func MatchKeywords(texts ...string) KeywordMatch {
	folded := Fold(strings.Join(texts, " "))
	for _, kw := range criticalKeywords {
		if strings.Contains(folded, kw) {
			return KeywordMatch{Tier: model.UrgencyCritical, Keyword: kw}
		}
	}
	for _, kw := range highKeywords {
		if strings.Contains(folded, kw) {
			return KeywordMatch{Tier: model.UrgencyHigh, Keyword: kw}
		}
	}
	return KeywordMatch{}
}

// UrgencyFloor raises u to the keyword tier when the tier is higher.
func UrgencyFloor(u model.Urgency, m KeywordMatch) model.Urgency {
	if m.Found() && m.Tier.Rank() > u.Rank() {
		return m.Tier
	}
	return u
}
