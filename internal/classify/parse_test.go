package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/complaint-cli/internal/model"
)

func TestFold(t *testing.T) {
	assert.Equal(t, "critica", Fold(" Crítica "))
	assert.Equal(t, "cobranca indevida", Fold("Cobrança Indevida"))
	assert.Equal(t, "produto nao entregue", Fold("PRODUTO NÃO ENTREGUE"))
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want model.Category
	}{
		{"Produto com defeito", model.CategoryDefective},
		{"produto com defeito", model.CategoryDefective},
		{"Cobranca indevida", model.CategoryWrongCharge},
		{"Produto nao entregue", model.CategoryNotDelivered},
		{"reembolso", model.CategoryRefundPending},
		{"Problema com vendedor", model.CategoryMarketplace},
		{"Categoria: Atraso na entrega do pedido", model.CategoryLateDelivery},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseCategory(tt.in)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := ParseCategory("")
	assert.False(t, ok)
	_, ok = ParseCategory("elogio ao produto")
	assert.False(t, ok)
}

func TestParseSentimentAndUrgency(t *testing.T) {
	s, ok := ParseSentiment("Muito Insatisfeito")
	require.True(t, ok)
	assert.Equal(t, model.SentimentVeryDissatisfied, s)

	u, ok := ParseUrgency("Média")
	require.True(t, ok)
	assert.Equal(t, model.UrgencyMedium, u)

	u, ok = ParseUrgency("crítica")
	require.True(t, ok)
	assert.Equal(t, model.UrgencyCritical, u)

	_, ok = ParseUrgency("imediata")
	assert.False(t, ok)
}

func TestCleanJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanJSON("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanJSON("Segue a análise: {\"a\":1} obrigado"))
	assert.Equal(t, "sem json", cleanJSON("sem json"))
}

func TestParseAnalysis(t *testing.T) {
	res, err := parseAnalysis("```json\n" + `{
		"category": "Produto com defeito",
		"sentiment": "muito_insatisfeito",
		"urgency": "alta",
		"summary": "Notebook parou de ligar dentro da garantia.",
		"key_issues": ["não liga", "garantia", "assistência", "troca", "reembolso"]
	}` + "\n```")
	require.NoError(t, err)
	assert.Equal(t, model.CategoryDefective, res.Category)
	assert.Equal(t, model.SentimentVeryDissatisfied, res.Sentiment)
	assert.Equal(t, model.UrgencyHigh, res.Urgency)
	assert.Len(t, res.KeyIssues, model.MaxKeyIssues)
}

func TestParseAnalysis_SingleKeyIssue(t *testing.T) {
	res, err := parseAnalysis(`{"category":"Atendimento ruim","sentiment":"neutro","urgency":"baixa","summary":"ok","key_issues":"demora"}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"demora"}, res.KeyIssues)
}

func TestParseAnalysis_Malformed(t *testing.T) {
	tests := map[string]string{
		"not json":         "não consegui analisar",
		"unknown category": `{"category":"Elogio","sentiment":"neutro","urgency":"baixa","summary":"x"}`,
		"unknown urgency":  `{"category":"Atendimento ruim","sentiment":"neutro","urgency":"imediata","summary":"x"}`,
		"empty summary":    `{"category":"Atendimento ruim","sentiment":"neutro","urgency":"baixa","summary":" "}`,
		"bad key issues":   `{"category":"Atendimento ruim","sentiment":"neutro","urgency":"baixa","summary":"x","key_issues":42}`,
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseAnalysis(in)
			assert.Error(t, err)
		})
	}
}
