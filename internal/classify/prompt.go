package classify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/complaint-cli/internal/capability"
	"github.com/sells-group/complaint-cli/internal/model"
)

const systemPrompt = `Você é um analista especializado em reclamações de e-commerce brasileiro.
Sua função é classificar reclamações com precisão e objetividade.

CATEGORIAS VÁLIDAS (use EXATAMENTE uma dessas):
%s

NÍVEIS DE SENTIMENTO:
- neutro: cliente objetivo, sem emoção aparente
- insatisfeito: cliente reclamando mas controlado
- muito_insatisfeito: cliente irritado, usa CAPS LOCK, múltiplas exclamações, ameaças

NÍVEIS DE URGÊNCIA:
- baixa: problema menor, sem prazo definido
- media: cliente quer solução mas sem urgência extrema
- alta: menção a prazos, eventos, garantia, necessidade imediata
- critica: ameaça PROCON/justiça, fraude, risco à saúde, valores altos (>R$5000)

REGRAS IMPORTANTES:
1. Sempre responda em JSON válido
2. O resumo deve ter no máximo 2 frases
3. Identifique de 2 a 4 pontos-chave
4. Seja objetivo e imparcial na análise
5. Marcadores como [EMAIL-M] substituem dados pessoais; não tente reconstruí-los`

const strictDirective = `
REVISÃO: uma análise anterior foi rejeitada pelo controle de qualidade.
Use "critica" SOMENTE se o texto mencionar explicitamente PROCON, ação judicial,
fraude ou risco à saúde. Use "alta" SOMENTE com prazo, evento ou garantia citados.
Na dúvida, escolha o nível mais baixo.`

const userPromptTemplate = `Analise a seguinte reclamação e classifique-a.

**Título:** %s

**Descrição:**
%s
%s
Responda EXATAMENTE neste formato JSON:
{
    "category": "<categoria exata da lista>",
    "sentiment": "<neutro|insatisfeito|muito_insatisfeito>",
    "urgency": "<baixa|media|alta|critica>",
    "summary": "<resumo objetivo em 1-2 frases>",
    "key_issues": ["<ponto 1>", "<ponto 2>", "<ponto 3>"]
}`

// buildSystemPrompt renders the system prompt, adding the strict directive
// on re-analysis.
func buildSystemPrompt(strict bool) string {
	var cats strings.Builder
	for i, c := range model.Categories() {
		fmt.Fprintf(&cats, "%d. %s\n", i+1, c)
	}
	out := fmt.Sprintf(systemPrompt, strings.TrimRight(cats.String(), "\n"))
	if strict {
		out += "\n" + strictDirective
	}
	return out
}

// buildUserPrompt renders the masked complaint and its metadata.
func buildUserPrompt(req capability.AnalysisRequest) string {
	var meta strings.Builder
	if len(req.Metadata) > 0 {
		keys := make([]string, 0, len(req.Metadata))
		for k := range req.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		meta.WriteString("\n")
		for _, k := range keys {
			fmt.Fprintf(&meta, "**%s:** %s\n", k, req.Metadata[k])
		}
	}
	return fmt.Sprintf(userPromptTemplate, req.Title, req.Description, meta.String())
}
