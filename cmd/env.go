package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/sells-group/complaint-cli/internal/capability"
	"github.com/sells-group/complaint-cli/internal/classify"
	"github.com/sells-group/complaint-cli/internal/dispatch"
	"github.com/sells-group/complaint-cli/internal/events"
	"github.com/sells-group/complaint-cli/internal/notify"
	"github.com/sells-group/complaint-cli/internal/pipeline"
	"github.com/sells-group/complaint-cli/internal/privacy"
	"github.com/sells-group/complaint-cli/internal/routing"
	"github.com/sells-group/complaint-cli/internal/store"
	"github.com/sells-group/complaint-cli/internal/ticketing"
	anthropicpkg "github.com/sells-group/complaint-cli/pkg/anthropic"
	"github.com/sells-group/complaint-cli/pkg/jira"
)

// appEnv holds the initialized store, capabilities, orchestrator and
// dispatcher used by the processing commands.
type appEnv struct {
	Store        store.Store
	Recorder     *events.Recorder
	Orchestrator *pipeline.Orchestrator
	Dispatcher   *dispatch.Dispatcher
	Outbox       *notify.Outbox
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Recorder != nil {
		if err := e.Recorder.Close(); err != nil {
			zap.L().Warn("close event publishers", zap.Error(err))
		}
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens and migrates the configured store.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "complaints.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initEnv validates config for mode and wires every capability. Callers
// should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env := &appEnv{Store: st}

	catalog, err := initCatalog()
	if err != nil {
		env.Close()
		return nil, err
	}

	var publishers []events.Publisher
	if len(cfg.Events.Brokers) > 0 {
		publishers = append(publishers, events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic))
		zap.L().Info("audit events published to kafka",
			zap.Strings("brokers", cfg.Events.Brokers),
			zap.String("topic", cfg.Events.Topic),
		)
	}
	env.Recorder = events.NewRecorder(st, publishers...)

	env.Outbox = notify.NewOutbox(notify.WithSender(cfg.Notify.EmailFrom))
	handlers := pipeline.NewHandlers(pipeline.Capabilities{
		Masker:       privacy.NewMasker(),
		Classifier:   initClassifier(),
		Router:       routing.NewCatalogRouter(catalog),
		Ticketer:     initTicketer(st),
		Notifier:     notify.NewRouter(initSlack(), env.Outbox),
		QAKeywords:   cfg.QA.ExtraKeywords,
		TeamChannels: cfg.Notify.TeamChannels,
	})

	orch, err := pipeline.New(st, handlers, env.Recorder, pipeline.Options{
		Policy:   cfg.RetryPolicy(),
		Breakers: cfg.Breakers(),
	})
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Orchestrator = orch
	env.Dispatcher = dispatch.New(orch, cfg.Dispatch.MaxConcurrent)
	return env, nil
}

func initCatalog() (*routing.Catalog, error) {
	if cfg.Routing.CatalogPath == "" {
		return routing.DefaultCatalog()
	}
	return routing.LoadCatalog(cfg.Routing.CatalogPath)
}

func initClassifier() capability.Classifier {
	if cfg.Anthropic.Offline {
		zap.L().Info("classifier running offline on keyword rules")
		return classify.NewKeywordClassifier()
	}
	client := anthropicpkg.NewClient(cfg.Anthropic.Key)
	return classify.NewLLMClassifier(client, classify.Config{
		Model:     cfg.Anthropic.Model,
		MaxTokens: cfg.Anthropic.MaxTokens,
		RateLimit: cfg.Anthropic.RequestsPerSec,
	})
}

// initTicketer picks the configured tracker. The local tracker numbers and
// deduplicates tickets against the store so separate processes never reuse
// a key.
func initTicketer(st store.Store) capability.Ticketer {
	if cfg.Ticketing.Driver == "jira" {
		client := jira.NewClient(
			cfg.Ticketing.JiraBaseURL,
			cfg.Ticketing.ProjectKey,
			cfg.Ticketing.JiraEmail,
			cfg.Ticketing.JiraToken,
		)
		browse := cfg.Ticketing.BrowseURL
		if browse == "" {
			browse = cfg.Ticketing.JiraBaseURL + "/browse"
		}
		return ticketing.NewJiraTracker(client, browse)
	}
	return ticketing.NewLocalTracker(cfg.Ticketing.ProjectKey, cfg.Ticketing.BrowseURL, ticketing.WithLedger(st))
}

// initSlack returns nil when no token is configured, which makes the
// notification router reject channel recipients.
func initSlack() capability.Notifier {
	if cfg.Notify.SlackToken == "" {
		return nil
	}
	var opts []slack.Option
	if cfg.Notify.SlackAPIURL != "" {
		opts = append(opts, slack.OptionAPIURL(cfg.Notify.SlackAPIURL))
	}
	return notify.NewSlackNotifier(cfg.Notify.SlackToken, opts...)
}
