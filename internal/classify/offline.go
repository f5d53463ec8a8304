package classify

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/sells-group/complaint-cli/internal/capability"
	"github.com/sells-group/complaint-cli/internal/model"
	"github.com/sells-group/complaint-cli/internal/resilience"
)

// KeywordModel is the model name stamped on keyword classifications.
const KeywordModel = "keyword-rules"

// categoryCues maps folded text cues to categories. The first category with
// a matching cue wins, so the more specific cues come first.
var categoryCues = []struct {
	category model.Category
	cues     []string
}{
	{model.CategoryWrongCharge, []string{"cobranca", "cobrado", "cobraram", "fatura", "duas vezes", "valor errado"}},
	{model.CategoryRefundPending, []string{"reembolso", "estorno", "devolucao do dinheiro", "dinheiro de volta"}},
	{model.CategoryCancelDenied, []string{"cancelar", "cancelamento", "cancelaram"}},
	{model.CategoryMarketplace, []string{"vendedor", "marketplace", "loja parceira", "lojista"}},
	{model.CategoryDefective, []string{"defeito", "quebrad", "nao funciona", "parou de funcionar", "nao liga", "danificad"}},
	{model.CategoryNotAsAdvertised, []string{"diferente do anunciado", "produto diferente", "modelo errado", "cor errada", "veio errado"}},
	{model.CategoryNotDelivered, []string{"nao recebi", "nunca chegou", "extraviad", "nao foi entregue", "consta como entregue"}},
	{model.CategoryLateDelivery, []string{"atraso", "atrasad", "ainda nao chegou", "prazo de entrega"}},
	{model.CategoryHardToReach, []string{"ninguem atende", "sem resposta", "nao responde", "nao consigo contato", "nao consigo falar"}},
}

var angerCues = []string{"absurdo", "pessimo", "revoltad", "nunca mais", "descaso", "vergonha", "inaceitavel"}

// KeywordClassifier classifies complaints from text cues alone. It backs
// offline runs where no language model is configured.
type KeywordClassifier struct {
	now func() time.Time
}

var _ capability.Classifier = (*KeywordClassifier)(nil)

// NewKeywordClassifier creates a KeywordClassifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{now: time.Now}
}

// Analyze classifies one complaint. Urgency is exactly the escalation
// keyword tier, so strict re-analysis yields the same result.
func (c *KeywordClassifier) Analyze(ctx context.Context, req capability.AnalysisRequest) (*model.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(req.Title + "\n" + req.Description)
	if text == "" {
		return nil, resilience.NewFatalError(eris.New("classify: empty complaint text"), "nothing to classify")
	}
	folded := Fold(text)

	category := model.CategoryPoorService
	var issues []string
	for _, cc := range categoryCues {
		if !containsAny(folded, cc.cues) {
			continue
		}
		if len(issues) == 0 {
			category = cc.category
		}
		issues = append(issues, string(cc.category))
		if len(issues) == model.MaxKeyIssues {
			break
		}
	}
	if len(issues) == 0 {
		issues = []string{string(category)}
	}

	match := MatchKeywords(req.Title, req.Description)
	sentiment := model.SentimentDissatisfied
	if match.Tier == model.UrgencyCritical || containsAny(folded, angerCues) {
		sentiment = model.SentimentVeryDissatisfied
	}

	return &model.AnalysisResult{
		Summary:   summarize(req.Title, req.Description),
		Category:  category,
		Sentiment: sentiment,
		Urgency:   UrgencyFloor(model.UrgencyLow, match),
		KeyIssues: issues,
		Strict:    req.Strict,
		Model:     KeywordModel,
		CreatedAt: c.now().UTC(),
	}, nil
}

func containsAny(folded string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(folded, cue) {
			return true
		}
	}
	return false
}

const maxSummaryRunes = 160

// summarize returns the title, or the first sentence of the description,
// capped at maxSummaryRunes.
func summarize(title, description string) string {
	s := strings.TrimSpace(title)
	if s == "" {
		s = strings.TrimSpace(description)
		if i := strings.IndexAny(s, ".!?\n"); i > 0 {
			s = s[:i]
		}
	}
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) > maxSummaryRunes {
		r := []rune(s)
		s = strings.TrimSpace(string(r[:maxSummaryRunes-3])) + "..."
	}
	return s
}
