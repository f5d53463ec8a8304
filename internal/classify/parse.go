package classify

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/complaint-cli/internal/model"
)

// rawAnalysis is the JSON shape the model is asked to produce.
type rawAnalysis struct {
	Category  string          `json:"category"`
	Sentiment string          `json:"sentiment"`
	Urgency   string          `json:"urgency"`
	Summary   string          `json:"summary"`
	KeyIssues json.RawMessage `json:"key_issues"`
}

// categoryAliases maps folded spellings to categories. Order matters for
// partial matching: longer phrases come first.
var categoryAliases = []struct {
	alias    string
	category model.Category
}{
	{"problema com vendedor (marketplace)", model.CategoryMarketplace},
	{"produto diferente do anunciado", model.CategoryNotAsAdvertised},
	{"reembolso nao processado", model.CategoryRefundPending},
	{"produto nao entregue", model.CategoryNotDelivered},
	{"problema com vendedor", model.CategoryMarketplace},
	{"dificuldade de contato", model.CategoryHardToReach},
	{"produto com defeito", model.CategoryDefective},
	{"cancelamento negado", model.CategoryCancelDenied},
	{"dificuldade contato", model.CategoryHardToReach},
	{"produto diferente", model.CategoryNotAsAdvertised},
	{"atraso na entrega", model.CategoryLateDelivery},
	{"cobranca indevida", model.CategoryWrongCharge},
	{"atendimento ruim", model.CategoryPoorService},
	{"atraso entrega", model.CategoryLateDelivery},
	{"nao entregue", model.CategoryNotDelivered},
	{"cancelamento", model.CategoryCancelDenied},
	{"marketplace", model.CategoryMarketplace},
	{"reembolso", model.CategoryRefundPending},
	{"defeito", model.CategoryDefective},
}

var sentimentAliases = map[string]model.Sentiment{
	"neutro":             model.SentimentNeutral,
	"neutral":            model.SentimentNeutral,
	"insatisfeito":       model.SentimentDissatisfied,
	"dissatisfied":       model.SentimentDissatisfied,
	"muito_insatisfeito": model.SentimentVeryDissatisfied,
	"muito insatisfeito": model.SentimentVeryDissatisfied,
	"very-dissatisfied":  model.SentimentVeryDissatisfied,
	"very_dissatisfied":  model.SentimentVeryDissatisfied,
}

var urgencyAliases = map[string]model.Urgency{
	"baixa":    model.UrgencyLow,
	"low":      model.UrgencyLow,
	"media":    model.UrgencyMedium,
	"medium":   model.UrgencyMedium,
	"alta":     model.UrgencyHigh,
	"high":     model.UrgencyHigh,
	"critica":  model.UrgencyCritical,
	"critical": model.UrgencyCritical,
}

// ParseCategory resolves a model-provided category, exact first and then by
// partial match.
func ParseCategory(s string) (model.Category, bool) {
	folded := Fold(s)
	if folded == "" {
		return "", false
	}
	for _, c := range model.Categories() {
		if Fold(string(c)) == folded {
			return c, true
		}
	}
	for _, a := range categoryAliases {
		if a.alias == folded {
			return a.category, true
		}
	}
	for _, a := range categoryAliases {
		if strings.Contains(folded, a.alias) || strings.Contains(a.alias, folded) {
			return a.category, true
		}
	}
	return "", false
}

// ParseSentiment resolves a sentiment alias.
func ParseSentiment(s string) (model.Sentiment, bool) {
	v, ok := sentimentAliases[Fold(s)]
	return v, ok
}

// ParseUrgency resolves an urgency alias.
func ParseUrgency(s string) (model.Urgency, bool) {
	v, ok := urgencyAliases[Fold(s)]
	return v, ok
}

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// parseAnalysis converts model output into an AnalysisResult. Any field that
// cannot be resolved is an error; there is no default classification.
func parseAnalysis(text string) (*model.AnalysisResult, error) {
	var raw rawAnalysis
	if err := json.Unmarshal([]byte(cleanJSON(text)), &raw); err != nil {
		return nil, eris.Wrap(err, "classify: decode response")
	}

	category, ok := ParseCategory(raw.Category)
	if !ok {
		return nil, eris.Errorf("classify: unknown category %q", raw.Category)
	}
	sentiment, ok := ParseSentiment(raw.Sentiment)
	if !ok {
		return nil, eris.Errorf("classify: unknown sentiment %q", raw.Sentiment)
	}
	urgency, ok := ParseUrgency(raw.Urgency)
	if !ok {
		return nil, eris.Errorf("classify: unknown urgency %q", raw.Urgency)
	}

	issues, err := parseKeyIssues(raw.KeyIssues)
	if err != nil {
		return nil, err
	}

	res := &model.AnalysisResult{
		Summary:   strings.TrimSpace(raw.Summary),
		Category:  category,
		Sentiment: sentiment,
		Urgency:   urgency,
		KeyIssues: issues,
	}
	if err := res.CheckShape(); err != nil {
		return nil, err
	}
	return res, nil
}

// parseKeyIssues accepts either a list or a single string.
func parseKeyIssues(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		var single string
		if err2 := json.Unmarshal(raw, &single); err2 != nil {
			return nil, eris.Wrap(err, "classify: decode key_issues")
		}
		list = []string{single}
	}
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
		if len(out) == model.MaxKeyIssues {
			break
		}
	}
	return out, nil
}
