package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/complaint-cli/internal/capability"
	"github.com/sells-group/complaint-cli/internal/classify"
	"github.com/sells-group/complaint-cli/internal/model"
	"github.com/sells-group/complaint-cli/internal/privacy"
	"github.com/sells-group/complaint-cli/internal/resilience"
)

// Capabilities bundles the providers the stage handlers call.
type Capabilities struct {
	Masker     *privacy.Masker
	Classifier capability.Classifier
	Router     capability.Router
	Ticketer   capability.Ticketer
	Notifier   capability.Notifier
	// QAKeywords extends the critical escalation keywords of the QA gate.
	QAKeywords []string
	// TeamChannels sends team notifications to the team chat channel when
	// the team has one, instead of the team contact address.
	TeamChannels bool
}

// NewHandlers builds the stage sequence over caps.
func NewHandlers(caps Capabilities) Handlers {
	return Handlers{
		Anonymize: NewAnonymizeHandler(caps.Masker),
		Analyze:   NewAnalyzeHandler(caps.Classifier),
		QA:        NewQAGate(caps.QAKeywords),
		Route:     NewRouteHandler(caps.Router),
		Ticket:    NewTicketHandler(caps.Ticketer, caps.Masker),
		Notify:    NewNotifyHandler(caps.Notifier, caps.Masker, caps.TeamChannels),
	}
}

func documentOf(rec *model.ComplaintRecord) privacy.Document {
	return privacy.Document{
		Contact:     rec.ConsumerContact,
		Title:       rec.Title,
		Description: rec.Description,
	}
}

func missing(stage model.Stage, what string) error {
	return resilience.NewFatalError(eris.Errorf("pipeline: %s: no %s in state", stage, what), "inconsistent workflow state")
}

// AnonymizeHandler masks the complaint text.
type AnonymizeHandler struct {
	masker *privacy.Masker
}

// NewAnonymizeHandler creates the anonymize stage.
func NewAnonymizeHandler(m *privacy.Masker) *AnonymizeHandler {
	return &AnonymizeHandler{masker: m}
}

// Stage implements Handler.
func (h *AnonymizeHandler) Stage() model.Stage { return model.StageAnonymize }

// Execute implements Handler.
func (h *AnonymizeHandler) Execute(ctx context.Context, v View) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	masked := h.masker.MaskDocument(v.Record.ID, documentOf(v.Record))
	if privacy.Detect(masked.Title) || privacy.Detect(masked.Description) {
		return nil, resilience.NewFatalError(eris.New("pipeline: sensitive data left after masking"), "masking incomplete")
	}
	return &Outcome{Masked: &model.MaskedComplaint{
		Title:       masked.Title,
		Description: masked.Description,
		Counts:      masked.CountsByName(),
	}}, nil
}

// Forget drops the restoration data kept for a complaint.
func (h *AnonymizeHandler) Forget(complaintID string) {
	h.masker.Forget(complaintID)
}

// AnalyzeHandler classifies the masked complaint.
type AnalyzeHandler struct {
	classifier capability.Classifier
}

// NewAnalyzeHandler creates the analyze stage.
func NewAnalyzeHandler(c capability.Classifier) *AnalyzeHandler {
	return &AnalyzeHandler{classifier: c}
}

// Stage implements Handler.
func (h *AnalyzeHandler) Stage() model.Stage { return model.StageAnalyze }

// Execute implements Handler. Only masked text reaches the classifier.
func (h *AnalyzeHandler) Execute(ctx context.Context, v View) (*Outcome, error) {
	if v.State.Masked == nil {
		return nil, missing(model.StageAnalyze, "masked text")
	}
	res, err := h.classifier.Analyze(ctx, capability.AnalysisRequest{
		ComplaintID: v.State.ComplaintID,
		Title:       v.State.Masked.Title,
		Description: v.State.Masked.Description,
		Metadata:    v.Record.Metadata(),
		Strict:      v.Strict,
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, resilience.NewFatalError(eris.New("pipeline: classifier returned no result"), "malformed classifier output")
	}
	if err := res.CheckShape(); err != nil {
		return nil, resilience.NewFatalError(err, "malformed classifier output")
	}
	out := *res
	out.Version = nextVersion(v.State)
	out.Strict = out.Strict || v.Strict
	out.Quality = ""
	out.QANotes = ""
	return &Outcome{Analysis: &out}, nil
}

func nextVersion(st *model.WorkflowState) int {
	v := len(st.PriorAnalyses) + 1
	if st.Analysis != nil {
		v++
	}
	return v
}

// QAGate checks the analysis against the complaint text.
type QAGate struct {
	extra []string
}

// NewQAGate creates the QA stage. extra keywords count as critical
// escalation keywords.
func NewQAGate(extra []string) *QAGate {
	g := &QAGate{}
	for _, kw := range extra {
		if kw = classify.Fold(kw); kw != "" {
			g.extra = append(g.extra, kw)
		}
	}
	return g
}

// Stage implements Handler.
func (g *QAGate) Stage() model.Stage { return model.StageQA }

// Execute implements Handler. An inconsistent analysis yields a
// *resilience.ConsistencyError.
func (g *QAGate) Execute(ctx context.Context, v View) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a := v.State.Analysis
	if a == nil {
		return nil, missing(model.StageQA, "analysis")
	}
	match, err := g.Check(v.Record, v.State.Masked, a)
	if err != nil {
		return nil, err
	}
	notes := "sem escalonamento"
	if match.Found() {
		notes = "palavra-chave de escalonamento: " + match.Keyword
	}
	return &Outcome{Analysis: a.WithQuality(model.QualityApproved, notes)}, nil
}

// Check verifies that a is fully populated and that its urgency is backed
// by an escalation keyword in the original or masked text.
func (g *QAGate) Check(rec *model.ComplaintRecord, masked *model.MaskedComplaint, a *model.AnalysisResult) (classify.KeywordMatch, error) {
	if err := a.CheckShape(); err != nil {
		return classify.KeywordMatch{}, &resilience.ConsistencyError{Check: "shape", Detail: err.Error()}
	}
	texts := []string{rec.Title, rec.Description}
	if masked != nil {
		texts = append(texts, masked.Title, masked.Description)
	}
	match := g.match(texts...)
	if !match.Satisfies(a.Urgency) {
		return match, &resilience.ConsistencyError{
			Check:  "urgency",
			Detail: fmt.Sprintf("urgency %s without a matching escalation keyword", a.Urgency),
		}
	}
	return match, nil
}

func (g *QAGate) match(texts ...string) classify.KeywordMatch {
	m := classify.MatchKeywords(texts...)
	if m.Tier == model.UrgencyCritical || len(g.extra) == 0 {
		return m
	}
	folded := classify.Fold(strings.Join(texts, " "))
	for _, kw := range g.extra {
		if strings.Contains(folded, kw) {
			return classify.KeywordMatch{Tier: model.UrgencyCritical, Keyword: kw}
		}
	}
	return m
}

// RouteHandler assigns the responsible team.
type RouteHandler struct {
	router capability.Router
}

// NewRouteHandler creates the route stage.
func NewRouteHandler(r capability.Router) *RouteHandler {
	return &RouteHandler{router: r}
}

// Stage implements Handler.
func (h *RouteHandler) Stage() model.Stage { return model.StageRoute }

// Execute implements Handler.
func (h *RouteHandler) Execute(ctx context.Context, v View) (*Outcome, error) {
	a := v.State.Analysis
	if a == nil {
		return nil, missing(model.StageRoute, "analysis")
	}
	dec, err := h.router.Route(ctx, capability.RouteRequest{
		Summary:   a.Summary,
		Category:  a.Category,
		Sentiment: a.Sentiment,
		Urgency:   a.Urgency,
	})
	if err != nil {
		return nil, err
	}
	if dec == nil || dec.TeamID == "" {
		return nil, resilience.NewFatalError(eris.New("pipeline: router returned no team"), "malformed routing decision")
	}
	return &Outcome{Routing: dec}, nil
}

// TicketHandler raises the external ticket. The orchestrator performs the
// linked-ticket lookup before calling it.
type TicketHandler struct {
	ticketer capability.Ticketer
	masker   *privacy.Masker
}

// NewTicketHandler creates the ticket stage. The masker restores the
// consumer contact channel for the ticket body.
func NewTicketHandler(t capability.Ticketer, m *privacy.Masker) *TicketHandler {
	return &TicketHandler{ticketer: t, masker: m}
}

// Stage implements Handler.
func (h *TicketHandler) Stage() model.Stage { return model.StageTicket }

// Execute implements Handler.
func (h *TicketHandler) Execute(ctx context.Context, v View) (*Outcome, error) {
	st := v.State
	if st.Analysis == nil || st.Routing == nil || st.Masked == nil {
		return nil, missing(model.StageTicket, "analysis or routing")
	}
	req := capability.TicketRequest{
		IdempotencyToken: st.IdempotencyToken(),
		Title:            fmt.Sprintf("[%s] %s", st.Analysis.Category, ticketTitle(st)),
		Body:             h.body(v),
		Priority:         st.Routing.Priority,
		Assignee:         st.Routing.Contact,
		Labels:           []string{"team-" + st.Routing.TeamID, "source-" + string(st.Source)},
	}
	t, err := h.ticketer.CreateTicket(ctx, req)
	if err != nil {
		return nil, err
	}
	if t == nil || t.Key == "" {
		return nil, resilience.NewFatalError(eris.New("pipeline: ticketer returned no ticket"), "malformed ticket response")
	}
	out := *t
	return &Outcome{Ticket: &out}, nil
}

func ticketTitle(st *model.WorkflowState) string {
	if t := strings.TrimSpace(st.Masked.Title); t != "" {
		return t
	}
	return st.Analysis.Summary
}

func (h *TicketHandler) body(v View) string {
	st := v.State
	a, r := st.Analysis, st.Routing

	var b strings.Builder
	fmt.Fprintf(&b, "Reclamação %s (%s %s)\n\n", st.ComplaintID, st.Source, st.ExternalID)
	fmt.Fprintf(&b, "Categoria: %s\nUrgência: %s\nSentimento: %s\n", a.Category, a.Urgency, a.Sentiment)
	fmt.Fprintf(&b, "Time: %s\nPrioridade: %s\nSLA: %dh\n\n", r.Team, r.Priority, r.SLAHours)
	fmt.Fprintf(&b, "Resumo: %s\n\n", a.Summary)
	if len(a.KeyIssues) > 0 {
		b.WriteString("Principais problemas:\n")
		for _, issue := range a.KeyIssues {
			fmt.Fprintf(&b, "- %s\n", issue)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Descrição (anonimizada):\n%s\n\n", st.Masked.Description)
	fmt.Fprintf(&b, "Roteamento: %s\n", r.Justification)

	doc := documentOf(v.Record)
	if contact, ok := h.masker.ContactChannel(st.ComplaintID, &doc); ok {
		fmt.Fprintf(&b, "\nContato do cliente: %s\n", contact)
	}
	return b.String()
}

// NotifyHandler informs the team and confirms receipt to the customer.
type NotifyHandler struct {
	notifier     capability.Notifier
	masker       *privacy.Masker
	teamChannels bool
	now          func() time.Time
}

// NewNotifyHandler creates the notify stage.
func NewNotifyHandler(n capability.Notifier, m *privacy.Masker, teamChannels bool) *NotifyHandler {
	return &NotifyHandler{notifier: n, masker: m, teamChannels: teamChannels, now: time.Now}
}

// Stage implements Handler.
func (h *NotifyHandler) Stage() model.Stage { return model.StageNotify }

// Execute implements Handler. The team notification is required; the
// customer confirmation is best-effort and reported as a warning.
func (h *NotifyHandler) Execute(ctx context.Context, v View) (*Outcome, error) {
	st := v.State
	if st.Analysis == nil || st.Routing == nil || st.Ticket == nil {
		return nil, missing(model.StageNotify, "routing or ticket")
	}

	team := st.Routing.Contact
	if h.teamChannels && st.Routing.Channel != "" {
		team = st.Routing.Channel
	}
	if team == "" {
		return nil, resilience.NewFatalError(eris.Errorf("pipeline: team %s has no contact", st.Routing.TeamID), "routing decision without contact")
	}

	status, err := h.notifier.Notify(ctx, capability.Notification{
		Recipient:  team,
		Subject:    teamSubject(st),
		TicketLink: st.Ticket.Link,
		Summary:    st.Analysis.Summary,
	})
	if err != nil {
		return nil, err
	}
	if status != model.DeliverySent {
		return nil, resilience.NewTransientError(eris.Errorf("pipeline: team notification %s", status), 0)
	}

	out := &Outcome{Notifications: []model.NotificationRecord{{
		Audience:  model.AudienceTeam,
		Recipient: privacy.RedactContact(team),
		Status:    model.DeliverySent,
		SentAt:    h.now().UTC(),
	}}}

	doc := documentOf(v.Record)
	contact, ok := h.masker.ContactChannel(st.ComplaintID, &doc)
	if !ok {
		zap.L().Debug("pipeline: no customer contact channel", zap.String("complaint_id", st.ComplaintID))
		return out, nil
	}

	rec := model.NotificationRecord{
		Audience:  model.AudienceCustomer,
		Recipient: privacy.RedactContact(contact),
		Status:    model.DeliverySent,
	}
	status, err = h.notifier.Notify(ctx, capability.Notification{
		Recipient:  contact,
		Subject:    fmt.Sprintf("[TechNova] Recebemos sua reclamação - Protocolo %s", st.Ticket.Key),
		TicketLink: st.Ticket.Link,
		Summary:    st.Analysis.Summary,
	})
	if err == nil && status != model.DeliverySent {
		err = eris.Errorf("delivery %s", status)
	}
	if err != nil {
		rec.Status = model.DeliveryFailed
		out.Warnings = append(out.Warnings, eris.Wrap(err, "customer confirmation"))
	}
	rec.SentAt = h.now().UTC()
	out.Notifications = append(out.Notifications, rec)
	return out, nil
}

func teamSubject(st *model.WorkflowState) string {
	prefix := ""
	switch st.Analysis.Urgency {
	case model.UrgencyCritical:
		prefix = "[URGENTE] "
	case model.UrgencyHigh:
		prefix = "[ALTA PRIORIDADE] "
	}
	return prefix + "Nova reclamação atribuída - " + st.Ticket.Key
}
