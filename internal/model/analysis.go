package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Category is one of the fixed complaint categories.
type Category string

// Complaint categories.
const (
	CategoryLateDelivery    Category = "Atraso na entrega"
	CategoryNotDelivered    Category = "Produto não entregue"
	CategoryDefective       Category = "Produto com defeito"
	CategoryNotAsAdvertised Category = "Produto diferente do anunciado"
	CategoryWrongCharge     Category = "Cobrança indevida"
	CategoryRefundPending   Category = "Reembolso não processado"
	CategoryPoorService     Category = "Atendimento ruim"
	CategoryMarketplace     Category = "Problema com vendedor (marketplace)"
	CategoryCancelDenied    Category = "Cancelamento negado"
	CategoryHardToReach     Category = "Dificuldade de contato"
)

// Categories returns the closed category set.
func Categories() []Category {
	return []Category{
		CategoryLateDelivery, CategoryNotDelivered, CategoryDefective,
		CategoryNotAsAdvertised, CategoryWrongCharge, CategoryRefundPending,
		CategoryPoorService, CategoryMarketplace, CategoryCancelDenied,
		CategoryHardToReach,
	}
}

// Valid reports whether c belongs to the closed category set.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Sentiment of the consumer.
type Sentiment string

// Sentiments.
const (
	SentimentNeutral          Sentiment = "neutral"
	SentimentDissatisfied     Sentiment = "dissatisfied"
	SentimentVeryDissatisfied Sentiment = "very-dissatisfied"
)

// Valid reports whether s is a known sentiment.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentNeutral, SentimentDissatisfied, SentimentVeryDissatisfied:
		return true
	}
	return false
}

// Urgency of a complaint.
type Urgency string

// Urgencies, lowest first.
const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Rank orders urgencies; unknown values rank 0.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyLow:
		return 1
	case UrgencyMedium:
		return 2
	case UrgencyHigh:
		return 3
	case UrgencyCritical:
		return 4
	}
	return 0
}

// Valid reports whether u is a known urgency.
func (u Urgency) Valid() bool { return u.Rank() > 0 }

// QualityFlag is the QA verdict attached to an analysis.
type QualityFlag string

// Quality flags. An empty flag means the analysis has not passed QA yet.
const (
	QualityApproved    QualityFlag = "approved"
	QualityNeedsReview QualityFlag = "needs-review"
)

// MaxKeyIssues caps the key issues kept per analysis.
const MaxKeyIssues = 4

// AnalysisResult is the classification output for one complaint. A result is
// never modified after it is produced; re-analysis yields a new version.
type AnalysisResult struct {
	Version   int         `json:"version"`
	Summary   string      `json:"summary"`
	Category  Category    `json:"category"`
	Sentiment Sentiment   `json:"sentiment"`
	Urgency   Urgency     `json:"urgency"`
	KeyIssues []string    `json:"key_issues,omitempty"`
	Quality   QualityFlag `json:"quality,omitempty"`
	QANotes   string      `json:"qa_notes,omitempty"`
	Strict    bool        `json:"strict,omitempty"`
	Model     string      `json:"model,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// CheckShape verifies the result is fully populated with known values.
func (a *AnalysisResult) CheckShape() error {
	switch {
	case strings.TrimSpace(a.Summary) == "":
		return eris.New("analysis: empty summary")
	case !a.Category.Valid():
		return eris.Errorf("analysis: unknown category %q", a.Category)
	case !a.Sentiment.Valid():
		return eris.Errorf("analysis: unknown sentiment %q", a.Sentiment)
	case !a.Urgency.Valid():
		return eris.Errorf("analysis: unknown urgency %q", a.Urgency)
	}
	return nil
}

// WithQuality returns a copy of a stamped with the QA verdict.
func (a AnalysisResult) WithQuality(flag QualityFlag, notes string) *AnalysisResult {
	a.Quality = flag
	a.QANotes = notes
	if a.KeyIssues != nil {
		a.KeyIssues = append([]string(nil), a.KeyIssues...)
	}
	return &a
}
