package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/zulandar/helpline/internal/agent"
	"github.com/zulandar/helpline/internal/api"
	"github.com/zulandar/helpline/internal/checkpoint"
	"github.com/zulandar/helpline/internal/config"
	"github.com/zulandar/helpline/internal/db"
	"github.com/zulandar/helpline/internal/escalation"
	"github.com/zulandar/helpline/internal/handoff"
	"github.com/zulandar/helpline/internal/metrics"
	"github.com/zulandar/helpline/internal/notify"
	"github.com/zulandar/helpline/internal/notify/discord"
	"github.com/zulandar/helpline/internal/notify/slack"
	"github.com/zulandar/helpline/internal/oracle"
	"github.com/zulandar/helpline/internal/tools"
	"gorm.io/gorm"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		mockOracle bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Helpline API server",
		Long:  "Starts the conversation pipeline, handoff queue, notification dispatcher, and HTTP API. Runs until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, mockOracle)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "helpline.yaml", "path to Helpline config file")
	cmd.Flags().BoolVar(&mockOracle, "mock", false, "use the keyword-based mock oracle instead of the model CLI")
	return cmd
}

func runServe(configPath string, mockOracle bool) error {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	if err := db.SeedAgents(gormDB, db.DefaultAgentSeeds); err != nil {
		return err
	}

	m := metrics.New()

	var base oracle.Oracle
	if mockOracle {
		log.Warn("running with the mock oracle, responses are canned")
		base = &oracle.Mock{}
	} else {
		base = oracle.NewClaude(oracle.ClaudeOpts{
			Command: cfg.Oracle.Command,
			Timeout: time.Duration(cfg.Oracle.TimeoutSec) * time.Second,
			Logger:  log,
		})
	}
	retrying := oracle.WithRetry(base, log)
	retrying.OnRetry = func(op string) {
		m.OracleRetries.WithLabelValues(op).Inc()
	}

	var archiveDB *gorm.DB
	if cfg.Queue.ArchiveTerminalState {
		archiveDB = gormDB
	}
	queue := handoff.NewQueue(handoff.QueueOpts{
		Logger:            log,
		MinutesPerRequest: cfg.Queue.MinutesPerRequest,
		ArchiveDB:         archiveDB,
	})

	pool, err := tools.NewAgentDirectory(gormDB)
	if err != nil {
		return err
	}
	notifiers, err := buildNotifiers(cfg.Notify, log)
	if err != nil {
		return err
	}
	dispatcher, err := handoff.NewDispatcher(handoff.DispatcherOpts{
		Pool:      pool,
		Notifiers: notifiers,
		Logger:    log,
	})
	if err != nil {
		return err
	}

	var gate *agent.ApprovalGate
	if cfg.Approval.Enabled {
		store, err := checkpoint.NewGormStore(gormDB)
		if err != nil {
			return err
		}
		gate, err = agent.NewGate(agent.GateOpts{
			Store:  store,
			Config: cfg.Approval,
			Logger: log,
		})
		if err != nil {
			return err
		}
		log.Info("approval gate enabled")
	}

	desk, err := tools.NewDesk(tools.DeskOpts{DB: gormDB, Logger: log})
	if err != nil {
		return err
	}

	machine, err := agent.New(agent.Opts{
		Oracle:     retrying,
		Orders:     tools.NewCatalog(log),
		Accounts:   tools.NewDirectory(log),
		Desk:       desk,
		Retriever:  tools.NewKeywordRetriever(knowledgeDocs(cfg.Knowledge)),
		Queue:      queue,
		Dispatcher: dispatcher,
		Gate:       gate,
		Thresholds: escalation.Thresholds{
			SentimentThreshold:  cfg.Escalation.SentimentThreshold,
			MaxTurns:            cfg.Escalation.MaxTurns,
			OrderValueThreshold: cfg.Escalation.OrderValueThreshold,
		},
		RetrievalK: cfg.Knowledge.RetrievalK,
		Metrics:    m,
		Logger:     log,
	})
	if err != nil {
		return err
	}

	store, err := agent.NewSessionStore(gormDB)
	if err != nil {
		return err
	}
	server, err := api.New(api.Opts{
		Machine: machine,
		Store:   store,
		Queue:   queue,
		Metrics: m,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := cron.New()
	_, err = sweeper.AddFunc(cfg.Queue.SweepCron, func() {
		stale := queue.SweepStale(time.Duration(cfg.Queue.StaleAfterMin) * time.Minute)
		if len(stale) > 0 {
			log.WithField("count", len(stale)).Info("abandoned stale handoff requests")
		}
	})
	if err != nil {
		return fmt.Errorf("serve: sweep schedule %q: %w", cfg.Queue.SweepCron, err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	log.WithFields(logrus.Fields{
		"port":   cfg.API.Port,
		"driver": cfg.Database.Driver,
	}).Info("helpline starting")

	if err := server.Start(ctx, cfg.API.Port); err != nil {
		return err
	}
	log.Info("helpline stopped")
	return nil
}

// knowledgeDocs converts configured help articles for the retriever.
// Empty means the built-in articles.
func knowledgeDocs(cfg config.KnowledgeConfig) []tools.Doc {
	if len(cfg.Docs) == 0 {
		return nil
	}
	docs := make([]tools.Doc, 0, len(cfg.Docs))
	for _, d := range cfg.Docs {
		docs = append(docs, tools.Doc{
			ID:       d.ID,
			Title:    d.Title,
			Category: d.Category,
			Content:  d.Content,
		})
	}
	return docs
}

// buildNotifiers assembles the notification channels that have credentials
// configured. With none configured, handoffs are still logged so a local
// deploy sees them.
func buildNotifiers(cfg config.NotifyConfig, log *logrus.Logger) ([]notify.Notifier, error) {
	var notifiers []notify.Notifier

	if cfg.Slack.Token != "" {
		n, err := slack.New(slack.Opts{
			Token:        cfg.Slack.Token,
			Channel:      cfg.Slack.Channel,
			AlertChannel: cfg.Slack.AlertChannel,
		})
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
		log.WithField("channel", cfg.Slack.Channel).Info("slack notifications enabled")
	}

	if cfg.Discord.Token != "" {
		n, err := discord.New(discord.Opts{
			Token:     cfg.Discord.Token,
			ChannelID: cfg.Discord.ChannelID,
		})
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
		log.WithField("channel_id", cfg.Discord.ChannelID).Info("discord notifications enabled")
	}

	if len(notifiers) == 0 {
		notifiers = append(notifiers, notify.NewLogNotifier(log))
	}
	return notifiers, nil
}
