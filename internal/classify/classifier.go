// Package classify implements the complaint classifier on top of the
// Anthropic Messages API, plus the keyword tables shared with the QA gate.
package classify

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/complaint-cli/internal/capability"
	"github.com/sells-group/complaint-cli/internal/model"
	"github.com/sells-group/complaint-cli/internal/resilience"
	"github.com/sells-group/complaint-cli/pkg/anthropic"
)

// Config configures the LLM classifier.
type Config struct {
	Model       string
	MaxTokens   int64
	Temperature float64
	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
}

// LLMClassifier classifies masked complaints with a language model.
type LLMClassifier struct {
	client  anthropic.Client
	cfg     Config
	limiter *rate.Limiter
	now     func() time.Time
}

var _ capability.Classifier = (*LLMClassifier)(nil)

// NewLLMClassifier creates a classifier backed by client.
func NewLLMClassifier(client anthropic.Client, cfg Config) *LLMClassifier {
	if cfg.Model == "" {
		cfg.Model = "claude-haiku-4-5-20251001"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	c := &LLMClassifier{client: client, cfg: cfg, now: time.Now}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return c
}

// Analyze classifies one complaint. Provider failures are classified as
// transient or fatal; output that cannot be parsed is fatal.
func (c *LLMClassifier) Analyze(ctx context.Context, req capability.AnalysisRequest) (*model.AnalysisResult, error) {
	log := zap.L().With(zap.String("complaint_id", req.ComplaintID), zap.Bool("strict", req.Strict))

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "classify: rate limit wait")
		}
	}

	temp := c.cfg.Temperature
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		System: []anthropic.SystemBlock{{
			Text:         buildSystemPrompt(req.Strict),
			CacheControl: &anthropic.CacheControl{TTL: "5m"},
		}},
		Messages:    []anthropic.Message{{Role: "user", Content: buildUserPrompt(req)}},
		Temperature: &temp,
	})
	if err != nil {
		if code := anthropic.StatusCode(err); code != 0 {
			return nil, resilience.FromHTTPStatus(err, code)
		}
		return nil, err
	}
	resp.Usage.LogCost(c.cfg.Model, "analyze")

	res, err := parseAnalysis(resp.Text())
	if err != nil {
		log.Warn("classify: unusable model output", zap.Error(err))
		return nil, resilience.NewFatalError(err, "malformed classifier output")
	}

	match := MatchKeywords(req.Title, req.Description)
	if floor := UrgencyFloor(res.Urgency, match); floor != res.Urgency {
		log.Info("classify: raising urgency from keywords",
			zap.String("from", string(res.Urgency)),
			zap.String("to", string(floor)),
			zap.String("keyword", match.Keyword),
		)
		res.Urgency = floor
	}

	res.Strict = req.Strict
	res.Model = resp.Model
	if res.Model == "" {
		res.Model = c.cfg.Model
	}
	res.CreatedAt = c.now().UTC()
	return res, nil
}
