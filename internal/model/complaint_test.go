package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/complaint-cli/internal/resilience"
)

func validRecord() ComplaintRecord {
	return ComplaintRecord{
		ID:          "RA-1001",
		ExternalID:  "1001",
		Source:      SourceFeedbackSite,
		Title:       "Geladeira com defeito",
		Description: "A geladeira parou de gelar em uma semana.",
	}
}

func TestParseSourceKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want SourceKind
		ok   bool
	}{
		{"reclame_aqui", SourceFeedbackSite, true},
		{"JIRA", SourceIssueTracker, true},
		{" whatsapp ", SourceChat, true},
		{"email", SourceEmail, true},
		{"telefone", SourcePhone, true},
		{"fax", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseSourceKind(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestComplaintRecord_Validate(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		rec := validRecord()
		assert.NoError(t, rec.Validate())
	})

	cases := map[string]func(*ComplaintRecord){
		"unknown source":   func(r *ComplaintRecord) { r.Source = "fax" },
		"no external id":   func(r *ComplaintRecord) { r.ExternalID = "  " },
		"no text":          func(r *ComplaintRecord) { r.Title, r.Description = "", " " },
		"id whitespace":    func(r *ComplaintRecord) { r.ID = "RA 1001" },
		"description long": func(r *ComplaintRecord) { r.Description = strings.Repeat("a", MaxDescriptionLength+1) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			rec := validRecord()
			mutate(&rec)
			err := rec.Validate()
			require.Error(t, err)
			var ve *resilience.ValidationError
			assert.True(t, errors.As(err, &ve))
		})
	}
}

func TestComplaintRecord_Metadata(t *testing.T) {
	t.Parallel()

	rec := validRecord()
	rec.City = "São Paulo"
	rec.Channel = " "
	rec.ConsumerContact = "maria@example.com"

	md := rec.Metadata()
	assert.Equal(t, "feedback-site", md["source"])
	assert.Equal(t, "São Paulo", md["city"])
	assert.NotContains(t, md, "channel")
	for _, v := range md {
		assert.NotContains(t, v, "maria@example.com")
	}
	assert.Equal(t, "feedback-site:1001", rec.SourceKey())
}
