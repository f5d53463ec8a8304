// Package model defines the complaint, analysis, routing, ticket and workflow
// types shared by the orchestrator and its capability providers.
package model

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sells-group/complaint-cli/internal/resilience"
)

// SourceKind identifies the channel a complaint arrived through.
type SourceKind string

// Source kinds.
const (
	SourceFeedbackSite SourceKind = "feedback-site"
	SourceIssueTracker SourceKind = "issue-tracker"
	SourceChat         SourceKind = "chat"
	SourcePhone        SourceKind = "phone"
	SourceEmail        SourceKind = "email"
)

// MaxDescriptionLength bounds the free-text description of a complaint.
const MaxDescriptionLength = 20000

var sourceAliases = map[string]SourceKind{
	"feedback-site": SourceFeedbackSite,
	"reclame_aqui":  SourceFeedbackSite,
	"reclame-aqui":  SourceFeedbackSite,
	"issue-tracker": SourceIssueTracker,
	"jira":          SourceIssueTracker,
	"chat":          SourceChat,
	"whatsapp":      SourceChat,
	"phone":         SourcePhone,
	"telefone":      SourcePhone,
	"email":         SourceEmail,
}

// SourceKinds returns every known source kind in display order.
func SourceKinds() []SourceKind {
	return []SourceKind{SourceFeedbackSite, SourceIssueTracker, SourceChat, SourcePhone, SourceEmail}
}

// ParseSourceKind resolves a source kind or one of its aliases.
func ParseSourceKind(s string) (SourceKind, bool) {
	k, ok := sourceAliases[strings.ToLower(strings.TrimSpace(s))]
	return k, ok
}

// Valid reports whether k is a known source kind.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceFeedbackSite, SourceIssueTracker, SourceChat, SourcePhone, SourceEmail:
		return true
	}
	return false
}

// ComplaintRecord is a normalized complaint as produced by a source adapter.
// Records are immutable once stored.
type ComplaintRecord struct {
	ID              string     `json:"id"`
	ExternalID      string     `json:"external_id"`
	Source          SourceKind `json:"source"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	ConsumerName    string     `json:"consumer_name,omitempty"`
	ConsumerContact string     `json:"consumer_contact,omitempty"`
	CompanyName     string     `json:"company_name,omitempty"`
	Channel         string     `json:"channel,omitempty"`
	City            string     `json:"city,omitempty"`
	State           string     `json:"state,omitempty"`
	ProductCategory string     `json:"product_category,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Validate checks the record for the fields the orchestrator depends on.
func (r *ComplaintRecord) Validate() error {
	if !r.Source.Valid() {
		return resilience.NewValidationError("source", "unknown source kind "+string(r.Source))
	}
	if strings.TrimSpace(r.ExternalID) == "" {
		return resilience.NewValidationError("external_id", "required")
	}
	if strings.ContainsAny(r.ID, " \t\r\n") {
		return resilience.NewValidationError("id", "must not contain whitespace")
	}
	if strings.TrimSpace(r.Title) == "" && strings.TrimSpace(r.Description) == "" {
		return resilience.NewValidationError("description", "title or description required")
	}
	if utf8.RuneCountInString(r.Description) > MaxDescriptionLength {
		return resilience.NewValidationError("description", "exceeds maximum length")
	}
	return nil
}

// SourceKey is the dedup key of the record.
func (r *ComplaintRecord) SourceKey() string {
	return string(r.Source) + ":" + r.ExternalID
}

// Metadata returns the non-sensitive descriptive fields forwarded to the
// classification capability.
func (r *ComplaintRecord) Metadata() map[string]string {
	md := map[string]string{"source": string(r.Source)}
	for k, v := range map[string]string{
		"company":          r.CompanyName,
		"channel":          r.Channel,
		"city":             r.City,
		"state":            r.State,
		"product_category": r.ProductCategory,
	} {
		if v = strings.TrimSpace(v); v != "" {
			md[k] = v
		}
	}
	return md
}
