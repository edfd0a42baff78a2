package app

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/niksmo/catalog-audit/config"
	"github.com/niksmo/catalog-audit/internal/adapter"
	"github.com/niksmo/catalog-audit/internal/adapter/httphandler"
	"github.com/niksmo/catalog-audit/internal/adapter/kafka"
	"github.com/niksmo/catalog-audit/internal/adapter/mailer"
	"github.com/niksmo/catalog-audit/internal/adapter/metrics"
	"github.com/niksmo/catalog-audit/internal/adapter/render"
	"github.com/niksmo/catalog-audit/internal/adapter/reportcache"
	"github.com/niksmo/catalog-audit/internal/adapter/scheduler"
	"github.com/niksmo/catalog-audit/internal/adapter/shopify"
	"github.com/niksmo/catalog-audit/internal/adapter/storage"
	"github.com/niksmo/catalog-audit/internal/core/checker"
	"github.com/niksmo/catalog-audit/internal/core/port"
	"github.com/niksmo/catalog-audit/internal/core/service"
	"github.com/niksmo/catalog-audit/pkg/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/twmb/franz-go/pkg/sr"
)

type outbound struct {
	catalog   *shopify.Client
	cache     port.ReportCache
	redis     *reportcache.Redis
	formatter render.Formatter
	mailer    *mailer.SMTPMailer
	sqldb     *storage.SQLDB
	archive   port.ReportArchive
	publisher *kafka.Publisher
	brands    *config.BrandTable
	metrics   *metrics.Metrics
}

type App struct {
	ctx        context.Context
	cfg        config.Config
	registry   *prometheus.Registry
	out        outbound
	service    *service.Service
	scheduler  *scheduler.Scheduler
	httpServer httphandler.HTTPServer
}

func New(ctx context.Context, cfg config.Config) *App {
	app := &App{ctx: ctx, cfg: cfg}

	app.initLogger()
	app.initMetrics()
	app.initOutboundAdapters()
	app.initCoreService()
	app.initInboundAdapters()

	return app
}

func (app *App) initLogger() {
	opts := &slog.HandlerOptions{Level: app.cfg.LogLevel}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, opts))
	slog.SetDefault(logger)
}

func (app *App) initMetrics() {
	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.out.metrics = metrics.New(app.registry)
}

func (app *App) initOutboundAdapters() {
	app.initCatalog()
	app.initBrandRules()
	app.initCache()
	app.initMailer()
	app.initArchive()
	app.initPublisher()
}

func (app *App) initCatalog() {
	const op = "App.initCatalog"

	namespace, key := splitMetafield(app.cfg.Policy.LinkMetafield)
	c := app.cfg.Catalog
	client, err := shopify.New(shopify.Config{
		Host:              c.Host,
		Shop:              c.Shop,
		APIVersion:        c.APIVersion,
		AccessToken:       c.AccessToken,
		RequestsPerSecond: c.RequestsPerSecond,
		Timeout:           c.Timeout,
		MaxAttempts:       c.MaxAttempts,
		LinkNamespace:     namespace,
		LinkKey:           key,
		GraphQLBatch:      c.GraphQLBatch,
		PublicationLimit:  publicationLimit(app.cfg.Policy.RequiredChannels),
	})
	if err != nil {
		app.fallDown(op, err)
	}
	app.out.catalog = client
}

func (app *App) initBrandRules() {
	const op = "App.initBrandRules"

	app.out.brands = config.NewBrandTable(app.cfg.Brands)
	if app.cfg.File == "" {
		return
	}
	if err := app.out.brands.Watch(app.cfg.File); err != nil {
		slog.Warn("brand rules will not be reloaded", "op", op, "err", err)
	}
}

func (app *App) initCache() {
	const op = "App.initCache"

	c := app.cfg.Cache
	if c.Backend != "redis" {
		app.out.cache = reportcache.NewMemory()
		return
	}

	redis, err := reportcache.NewRedis(c.RedisAddr, c.RedisPassword, c.RedisDB, c.RedisKey)
	if err != nil {
		app.fallDown(op, err)
	}
	app.out.redis = redis
	app.out.cache = redis
}

func (app *App) initMailer() {
	const op = "App.initMailer"

	app.out.formatter = render.New(app.cfg.Catalog.AdminURL)

	m := app.cfg.Mail
	smtp, err := mailer.New(mailer.Config{
		Host:     m.Host,
		Port:     m.Port,
		Username: m.Username,
		Password: m.Password,
		From:     m.From,
		To:       m.To,
	}, app.out.formatter)
	if err != nil {
		app.fallDown(op, err)
	}
	app.out.mailer = smtp
}

func (app *App) initArchive() {
	const op = "App.initArchive"

	if !app.cfg.ArchiveEnabled() {
		slog.Info("run archive is disabled", "op", op)
		return
	}

	sqldb, err := storage.NewSQLDB(app.ctx, app.cfg.SQLDB)
	if err != nil {
		app.fallDown(op, err)
	}
	app.out.sqldb = &sqldb
	app.out.archive = storage.NewRunsRepository(sqldb)
}

func (app *App) initPublisher() {
	const op = "App.initPublisher"

	if !app.cfg.PublishEnabled() {
		slog.Info("issue publishing is disabled", "op", op)
		return
	}

	ctx := app.ctx
	b := app.cfg.Broker

	var tlsCfg *tls.Config
	if b.TLS.Enabled() {
		var err error
		tlsCfg, err = adapter.MakeTLSConfig(b.TLS.CA, b.TLS.Cert, b.TLS.Key)
		if err != nil {
			app.fallDown(op, err)
		}
	}

	srOpts := []sr.ClientOpt{sr.URLs(b.SchemaRegistryURLs...)}
	if tlsCfg != nil {
		srOpts = append(srOpts, sr.DialTLSConfig(tlsCfg))
	}
	srClient, err := sr.NewClient(srOpts...)
	if err != nil {
		app.fallDown(op, err)
	}
	schemaCreater := schema.NewSchemaCreater(srClient)

	issueSerde, err := schema.NewSerdeIssueEventV1(
		ctx,
		schema.SubjectOpt(b.Topics.Issues+"-value"),
		schema.SchemaIdentifierOpt(schemaCreater),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	summarySerde, err := schema.NewSerdeRunSummaryV1(
		ctx,
		schema.SubjectOpt(b.Topics.RunSummaries+"-value"),
		schema.SchemaIdentifierOpt(schemaCreater),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	issuesProducer, err := kafka.NewIssuesProducer(
		kafka.ProducerClientOpt(ctx, b.SeedBrokers, b.Topics.Issues, tlsCfg),
		kafka.ProducerEncoderOpt(issueSerde),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	summaryEmitter, err := kafka.NewSummaryEmitter(kafka.EmitterConfig{
		SeedBrokers: b.SeedBrokers,
		Topic:       b.Topics.RunSummaries,
		Serde:       summarySerde,
		TLS:         tlsCfg,
	})
	if err != nil {
		issuesProducer.Close()
		app.fallDown(op, err)
	}

	app.out.publisher = kafka.NewPublisher(issuesProducer, summaryEmitter)
}

func (app *App) initCoreService() {
	p := app.cfg.Policy
	runner := service.NewRunner(checker.New(checker.Policy{
		RequiredChannels: p.RequiredChannels,
		LinkMetafield:    p.LinkMetafield,
		FlagUnbranded:    p.FlagUnbranded,
		DetailLimit:      p.DetailLimit,
	}))

	opts := []service.Opt{
		service.ObserverOpt(app.out.metrics),
		service.SkipCleanMailOpt(app.cfg.Mail.SkipWhenClean),
	}
	if app.out.archive != nil {
		opts = append(opts, service.ArchiveOpt(app.out.archive))
	}
	if app.out.publisher != nil {
		opts = append(opts, service.PublisherOpt(app.out.publisher))
	}

	app.service = service.New(
		app.out.catalog,
		app.out.brands,
		runner,
		app.out.cache,
		app.out.mailer,
		opts...,
	)
}

func (app *App) initInboundAdapters() {
	const op = "App.initInboundAdapters"

	s := app.cfg.Schedule
	sched, err := scheduler.New(app.service, scheduler.Config{
		Spec:       s.Cron,
		Timezone:   s.Timezone,
		RunOnStart: s.RunOnStart,
	})
	if err != nil {
		app.fallDown(op, err)
	}
	app.scheduler = sched

	mux := http.NewServeMux()
	httphandler.RegisterCheck(mux, app.service)
	httphandler.RegisterReport(mux, app.service, app.service, app.out.formatter)
	httphandler.RegisterRuns(mux, app.service)
	httphandler.RegisterHealth(mux)
	mux.Handle("GET /metrics", app.out.metrics.Handler())

	handler := app.out.metrics.Instrument(httphandler.AllowJSON(mux))
	app.httpServer = httphandler.NewHTTPServer(
		app.cfg.HTTPServerAddr, handler, app.cfg.HTTPHandlerTimeout,
	)
}

func (app *App) Run(stopFn context.CancelFunc) {
	go app.httpServer.Run(stopFn)
	app.scheduler.Run()

	slog.Info(
		"application is running",
		"addr", app.cfg.HTTPServerAddr,
		"nextCheck", app.scheduler.Next(),
	)
}

func (app *App) Close(ctx context.Context) {
	slog.Info("application is closing...")

	app.httpServer.Close(ctx)
	app.scheduler.Close(ctx)

	if app.out.publisher != nil {
		app.out.publisher.Close()
	}
	if app.out.redis != nil {
		app.out.redis.Close()
	}
	if app.out.sqldb != nil {
		app.out.sqldb.Close()
	}

	slog.Info("application is closed")
}

func (app *App) fallDown(op string, err error) {
	panic(fmt.Errorf("%s: %w", op, err))
}

// splitMetafield splits "namespace.key". Anything else yields empty
// parts and the client falls back to custom.link.
func splitMetafield(s string) (namespace, key string) {
	namespace, key, ok := strings.Cut(s, ".")
	if !ok {
		return "", ""
	}
	return namespace, key
}

// publicationLimit is the number of channels read per product. With no
// required channels every channel counts, so the default is kept.
func publicationLimit(required []string) int {
	return max(len(required), shopify.DefaultPublicationLimit)
}
