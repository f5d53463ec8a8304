// Package ingest loads complaint feeds exported by the source channels and
// normalizes them into complaint records.
package ingest

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/complaint-cli/internal/model"
)

// DefaultCompany is used when a feed does not name the company.
const DefaultCompany = "TechNova Store"

// Feed describes one source export file.
type Feed struct {
	Kind   model.SourceKind
	File   string
	decode func(data []byte) ([]model.ComplaintRecord, error)
}

// Feeds returns the known feeds in load order.
func Feeds() []Feed {
	return []Feed{
		{Kind: model.SourceFeedbackSite, File: "reclame_aqui.json", decode: decodeReclameAqui},
		{Kind: model.SourceIssueTracker, File: "jira_issues.json", decode: decodeJiraIssues},
		{Kind: model.SourceChat, File: "chat_transcripts.json", decode: decodeChat},
		{Kind: model.SourcePhone, File: "phone_transcripts.json", decode: decodePhone},
		{Kind: model.SourceEmail, File: "support_emails.json", decode: decodeEmails},
	}
}

// FeedFor returns the feed of kind.
func FeedFor(kind model.SourceKind) (Feed, bool) {
	for _, f := range Feeds() {
		if f.Kind == kind {
			return f, true
		}
	}
	return Feed{}, false
}

// timestamp accepts RFC 3339 with or without zone, or a bare date.
type timestamp struct{ time.Time }

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

func (t *timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return eris.Wrap(err, "ingest: timestamp must be a string")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return eris.Errorf("ingest: unparseable timestamp %q", s)
}

type reclameAquiFeed struct {
	Company struct {
		Name string `json:"name"`
	} `json:"company"`
	Complaints []struct {
		ExternalID      string    `json:"external_id"`
		Title           string    `json:"title"`
		Description     string    `json:"description"`
		ConsumerName    string    `json:"consumer_name"`
		City            string    `json:"city"`
		State           string    `json:"state"`
		ProductCategory string    `json:"product_category"`
		CreatedAt       timestamp `json:"created_at"`
	} `json:"complaints"`
}

func decodeReclameAqui(data []byte) ([]model.ComplaintRecord, error) {
	var feed reclameAquiFeed
	if err := json.Unmarshal(data, &feed); err != nil {
		return nil, eris.Wrap(err, "ingest: decode reclame_aqui feed")
	}
	company := feed.Company.Name
	if company == "" {
		company = DefaultCompany
	}
	out := make([]model.ComplaintRecord, 0, len(feed.Complaints))
	for _, it := range feed.Complaints {
		out = append(out, model.ComplaintRecord{
			ExternalID:      it.ExternalID,
			Source:          model.SourceFeedbackSite,
			Title:           it.Title,
			Description:     it.Description,
			ConsumerName:    it.ConsumerName,
			CompanyName:     company,
			Channel:         "Reclame Aqui",
			City:            it.City,
			State:           it.State,
			ProductCategory: it.ProductCategory,
			CreatedAt:       it.CreatedAt.Time,
		})
	}
	return out, nil
}

type jiraFeed struct {
	Issues []struct {
		ExternalID  string    `json:"external_id"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Reporter    string    `json:"reporter"`
		CreatedAt   timestamp `json:"created_at"`
	} `json:"issues"`
}

func decodeJiraIssues(data []byte) ([]model.ComplaintRecord, error) {
	var feed jiraFeed
	if err := json.Unmarshal(data, &feed); err != nil {
		return nil, eris.Wrap(err, "ingest: decode jira feed")
	}
	out := make([]model.ComplaintRecord, 0, len(feed.Issues))
	for _, it := range feed.Issues {
		reporter := it.Reporter
		if reporter == "" {
			reporter = "Não informado"
		}
		out = append(out, model.ComplaintRecord{
			ExternalID:   it.ExternalID,
			Source:       model.SourceIssueTracker,
			Title:        it.Title,
			Description:  it.Description,
			ConsumerName: reporter,
			CompanyName:  DefaultCompany,
			Channel:      "Jira",
			CreatedAt:    it.CreatedAt.Time,
		})
	}
	return out, nil
}

type transcriptFeed struct {
	Transcripts []struct {
		ExternalID    string    `json:"external_id"`
		Title         string    `json:"title"`
		Transcript    string    `json:"transcript"`
		ConsumerName  string    `json:"consumer_name"`
		ConsumerPhone string    `json:"consumer_phone"`
		Channel       string    `json:"channel"`
		City          string    `json:"city"`
		State         string    `json:"state"`
		CreatedAt     timestamp `json:"created_at"`
	} `json:"transcripts"`
}

func decodeTranscripts(data []byte, kind model.SourceKind, defaultChannel string) ([]model.ComplaintRecord, error) {
	var feed transcriptFeed
	if err := json.Unmarshal(data, &feed); err != nil {
		return nil, eris.Wrapf(err, "ingest: decode %s feed", kind)
	}
	out := make([]model.ComplaintRecord, 0, len(feed.Transcripts))
	for _, it := range feed.Transcripts {
		channel := it.Channel
		if channel == "" {
			channel = defaultChannel
		}
		out = append(out, model.ComplaintRecord{
			ExternalID:      it.ExternalID,
			Source:          kind,
			Title:           it.Title,
			Description:     it.Transcript,
			ConsumerName:    it.ConsumerName,
			ConsumerContact: it.ConsumerPhone,
			CompanyName:     DefaultCompany,
			Channel:         channel,
			City:            it.City,
			State:           it.State,
			CreatedAt:       it.CreatedAt.Time,
		})
	}
	return out, nil
}

func decodeChat(data []byte) ([]model.ComplaintRecord, error) {
	return decodeTranscripts(data, model.SourceChat, "Chat")
}

func decodePhone(data []byte) ([]model.ComplaintRecord, error) {
	recs, err := decodeTranscripts(data, model.SourcePhone, "Telefone")
	for i := range recs {
		recs[i].Channel = "Telefone"
	}
	return recs, err
}

type emailFeed struct {
	Emails []struct {
		ExternalID   string    `json:"external_id"`
		Subject      string    `json:"subject"`
		Body         string    `json:"body"`
		From         string    `json:"from"`
		ConsumerName string    `json:"consumer_name"`
		City         string    `json:"city"`
		State        string    `json:"state"`
		CreatedAt    timestamp `json:"created_at"`
	} `json:"emails"`
}

func decodeEmails(data []byte) ([]model.ComplaintRecord, error) {
	var feed emailFeed
	if err := json.Unmarshal(data, &feed); err != nil {
		return nil, eris.Wrap(err, "ingest: decode email feed")
	}
	out := make([]model.ComplaintRecord, 0, len(feed.Emails))
	for _, it := range feed.Emails {
		out = append(out, model.ComplaintRecord{
			ExternalID:      it.ExternalID,
			Source:          model.SourceEmail,
			Title:           it.Subject,
			Description:     it.Body,
			ConsumerName:    it.ConsumerName,
			ConsumerContact: it.From,
			CompanyName:     DefaultCompany,
			Channel:         "Email",
			City:            it.City,
			State:           it.State,
			CreatedAt:       it.CreatedAt.Time,
		})
	}
	return out, nil
}
