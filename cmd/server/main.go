package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	answerhandler "kbv/internal/answer/handler"
	answermetrics "kbv/internal/answer/metrics"
	answerservice "kbv/internal/answer/service"
	"kbv/internal/audit"
	credentialhandler "kbv/internal/credential/handler"
	credentialmetrics "kbv/internal/credential/metrics"
	credentialservice "kbv/internal/credential/service"
	"kbv/internal/hmrc"
	"kbv/internal/platform/config"
	"kbv/internal/platform/httpserver"
	"kbv/internal/platform/kafka"
	"kbv/internal/platform/logger"
	"kbv/internal/platform/metrics"
	"kbv/internal/question"
	questionhandler "kbv/internal/question/handler"
	questionmetrics "kbv/internal/question/metrics"
	questionservice "kbv/internal/question/service"
	"kbv/internal/signing"
	signinghandler "kbv/internal/signing/handler"
	httptransport "kbv/internal/transport/http"
	platformaudit "kbv/pkg/platform/audit"
	"kbv/pkg/platform/audit/publisher"
	kafkasink "kbv/pkg/platform/audit/sink/kafka"
	auditlog "kbv/pkg/platform/audit/sink/logging"
	"kbv/pkg/platform/middleware/admin"
)

const shutdownTimeout = 10 * time.Second

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	if err := run(); err != nil {
		slog.Error("kbv stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Server.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()

	st, err := buildStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	auditPublisher, closeAudit, err := buildAuditPublisher(ctx, cfg.Kafka, reg, log)
	if err != nil {
		return err
	}
	defer closeAudit()
	emitter := audit.NewEmitter(auditPublisher, cfg.Issuer, audit.WithLogger(log))

	signer, err := buildSigner(cfg.Signing)
	if err != nil {
		return err
	}
	signingService := signing.NewService(signer,
		signing.WithLogger(log),
		signing.WithMetrics(signing.NewMetrics(reg)),
	)

	hmrcMetrics := hmrc.NewMetrics(reg)
	hmrcOpts := []hmrc.Option{
		hmrc.WithTimeout(cfg.HMRC.Timeout),
		hmrc.WithUserAgent(cfg.HMRC.UserAgent),
		hmrc.WithLogger(log),
		hmrc.WithMetrics(hmrcMetrics),
	}

	qMetrics := questionmetrics.New(reg)
	questionService := questionservice.New(
		st.questions,
		st.questions,
		st.sessions,
		hmrc.NewQuestionsClient(cfg.HMRC.QuestionsURL, hmrcOpts...),
		question.NewFilterEngine(question.DefaultCatalog, question.WithMetrics(qMetrics)),
		emitter,
		questionservice.WithLogger(log),
		questionservice.WithMetrics(qMetrics),
		questionservice.WithRecordTTL(cfg.RecordTTL),
	)
	answerService := answerservice.New(
		st.answers,
		st.questions,
		st.questions,
		st.sessions,
		hmrc.NewAnswersClient(cfg.HMRC.AnswersURL, hmrcOpts...),
		emitter,
		answerservice.WithLogger(log),
		answerservice.WithMetrics(answermetrics.New(reg)),
	)
	credentialService := credentialservice.New(
		st.answers,
		st.sessions,
		emitter,
		signingService,
		cfg.Issuer,
		cfg.Signing.KeyID,
		credentialservice.WithLogger(log),
		credentialservice.WithMetrics(credentialmetrics.New(reg)),
	)

	registrars := []httptransport.Registrar{
		questionhandler.New(questionService, log),
		answerhandler.New(answerService, log),
		credentialhandler.New(credentialService, log),
	}
	if cfg.Signing.AdminToken != "" {
		registrars = append(registrars, signinghandler.New(signingService, cfg.Signing.KeyID, log,
			admin.RequireAdminToken(cfg.Signing.AdminToken, log)))
	}
	router := httptransport.NewRouter(st.health, registrars...)

	api := httpserver.New(cfg.Server.Addr, router)
	metricsSrv := httpserver.New(cfg.Server.MetricsAddr, metrics.Handler(reg))

	g, gctx := errgroup.WithContext(ctx)
	for name, srv := range map[string]*http.Server{"api": api, "metrics": metricsSrv} {
		g.Go(func() error {
			log.Info("listening", "server", name, "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("%s server: %w", name, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(api.Shutdown(shutdownCtx), metricsSrv.Shutdown(shutdownCtx))
	})
	return g.Wait()
}

// buildAuditPublisher sends audit events to Kafka when brokers are configured
// and to the log otherwise.
func buildAuditPublisher(ctx context.Context, cfg config.KafkaConfig, reg prometheus.Registerer, log *slog.Logger) (*publisher.Publisher, func(), error) {
	var sink platformaudit.Sink = auditlog.New(log)
	cleanup := func() {}

	client, err := kafka.NewClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	if client != nil {
		if err := kafka.EnsureTopic(ctx, client, cfg); err != nil {
			client.Close()
			return nil, nil, err
		}
		sink = kafkasink.New(client, cfg.AuditTopic)
		cleanup = client.Close
		log.Info("audit sink", "backend", "kafka", "topic", cfg.AuditTopic)
	} else {
		log.Warn("audit sink", "backend", "log")
	}

	opts := []publisher.Option{
		publisher.WithLogger(log),
		publisher.WithMetrics(publisher.NewMetrics(reg)),
	}
	if cfg.AuditBuffer > 0 {
		opts = append(opts, publisher.WithAsyncBuffer(cfg.AuditBuffer))
	}
	p := publisher.NewPublisher(sink, opts...)
	return p, func() {
		_ = p.Close()
		cleanup()
	}, nil
}

func buildSigner(cfg config.SigningConfig) (signing.Signer, error) {
	if cfg.ServiceURL != "" {
		return signing.NewRemoteSigner(cfg.ServiceURL, cfg.Timeout), nil
	}
	local, err := signing.NewLocalSignerFromPEM([]byte(cfg.LocalKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("load local signing key: %w", err)
	}
	return local, nil
}
