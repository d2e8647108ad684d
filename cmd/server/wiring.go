package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/kendra"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"penny/internal/account"
	accountStore "penny/internal/account/store"
	"penny/internal/chat"
	"penny/internal/platform/awsclient"
	"penny/internal/platform/config"
	"penny/internal/platform/postgres"
	"penny/internal/platform/redis"
	"penny/internal/providers/archive"
	"penny/internal/providers/bedrock"
	"penny/internal/providers/biometric"
	"penny/internal/providers/document"
	"penny/internal/providers/guard"
	"penny/internal/providers/knowledge"
	"penny/internal/providers/notify"
	"penny/internal/verification"
	verificationHandler "penny/internal/verification/handler"
	audit "penny/pkg/platform/audit"
	"penny/pkg/platform/audit/publisher"
	"penny/pkg/platform/audit/relay"
	auditmemory "penny/pkg/platform/audit/store/memory"
	auditpostgres "penny/pkg/platform/audit/store/postgres"
	"penny/pkg/platform/audit/worker"
	"penny/pkg/platform/circuit"
)

// infra holds the optional shared connections. Any of them may be nil.
type infra struct {
	db    *postgres.DB
	redis *redis.Client
	kafka *kgo.Client
}

func openInfra(ctx context.Context, cfg config.Server, log *slog.Logger) (*infra, error) {
	in := &infra{}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	in.db = db
	if db != nil && cfg.MigrateOnBoot {
		if err := db.Migrate(ctx); err != nil {
			in.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		log.Info("migrations applied")
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		in.Close()
		return nil, err
	}
	in.redis = rc

	if len(cfg.Kafka.Brokers) > 0 && db != nil {
		kc, err := kgo.NewClient(kgo.SeedBrokers(cfg.Kafka.Brokers...))
		if err != nil {
			in.Close()
			return nil, fmt.Errorf("create kafka client: %w", err)
		}
		in.kafka = kc
		if err := relay.EnsureTopic(ctx, kadm.NewClient(kc), cfg.Kafka.AuditTopic, 1, 1); err != nil {
			in.Close()
			return nil, fmt.Errorf("ensure audit topic: %w", err)
		}
	}

	log.Info("infrastructure ready",
		"postgres", in.db != nil,
		"redis", in.redis != nil,
		"kafka", in.kafka != nil,
	)
	return in, nil
}

func (in *infra) Close() {
	if in.kafka != nil {
		in.kafka.Close()
	}
	if in.redis != nil {
		_ = in.redis.Close()
	}
	if in.db != nil {
		in.db.Close()
	}
}

type services struct {
	coordinator    *verification.Coordinator
	chat           *chat.Gateway
	accounts       account.Store
	archive        verificationHandler.Archiver
	auditPublisher *publisher.Publisher
	relayWorker    *worker.Worker
	guards         []*guard.Guard
}

func buildServices(ctx context.Context, cfg config.Server, log *slog.Logger, in *infra) (*services, error) {
	awsCfg, err := awsclient.Load(ctx, cfg.AWS)
	if err != nil {
		return nil, err
	}

	svc := &services{}

	var auditStore audit.Store = auditmemory.NewInMemoryStore()
	if in.db != nil {
		auditStore = auditpostgres.New(in.db.SQL)
	}
	svc.auditPublisher = publisher.NewPublisher(auditStore, publisher.WithLogger(log))
	if in.kafka != nil {
		r := relay.New(in.db.SQL, in.kafka, cfg.Kafka.AuditTopic, relay.WithMetrics(relay.NewMetrics()))
		svc.relayWorker = worker.NewWorker(r, cfg.Kafka.RelayInterval, log)
	}

	switch cfg.AWS.AccountBackend {
	case "dynamodb":
		svc.accounts = accountStore.NewDynamo(dynamodb.NewFromConfig(awsCfg), cfg.AWS.AccountsTable)
	case "postgres":
		if in.db == nil {
			return nil, fmt.Errorf("account backend postgres requires DATABASE_URL")
		}
		svc.accounts = accountStore.NewPostgres(in.db.Pool)
	default:
		svc.accounts = accountStore.NewInMemory()
	}

	guardMetrics := guard.NewMetrics()
	newGuard := func(name string) *guard.Guard {
		b := circuit.New(name,
			circuit.WithFailureThreshold(cfg.Circuit.FailureThreshold),
			circuit.WithSuccessThreshold(cfg.Circuit.SuccessThreshold),
			circuit.WithCooldown(cfg.Circuit.Cooldown),
		)
		g := guard.New(b, log, guardMetrics)
		svc.guards = append(svc.guards, g)
		return g
	}

	extractor := guard.NewExtractor(document.NewTextractExtractor(textract.NewFromConfig(awsCfg)), newGuard("textract"))
	matcher := guard.NewFaceMatcher(biometric.NewRekognitionMatcher(rekognition.NewFromConfig(awsCfg)), newGuard("rekognition"))
	notifier := guard.NewNotifier(notify.NewSESNotifier(sesv2.NewFromConfig(awsCfg), cfg.AWS.SenderEmail), newGuard("ses"))

	svc.coordinator = verification.NewCoordinator(extractor, matcher, svc.accounts, notifier,
		verification.WithLogger(log),
		verification.WithMetrics(verification.NewMetrics()),
		verification.WithAuditPublisher(svc.auditPublisher),
		verification.WithFaceMatchThreshold(cfg.Verification.FaceMatchThreshold),
		verification.WithStepTimeout(cfg.Verification.StepTimeout),
		verification.WithRejectExpired(cfg.Verification.RejectExpired),
	)

	if cfg.AWS.DocumentBucket != "" {
		svc.archive = archive.NewS3Archive(s3.NewFromConfig(awsCfg), cfg.AWS.DocumentBucket)
	}

	if cfg.AWS.KendraIndexID == "" {
		log.Warn("KENDRA_INDEX_ID is not set; every question will be answered without reference material")
	}
	var cache knowledge.Cache = knowledge.NewInMemoryCache()
	if in.redis != nil {
		cache = knowledge.NewRedisCache(in.redis.Client)
	}
	retriever := knowledge.NewCachedRetriever(
		guard.NewRetriever(knowledge.NewKendraRetriever(kendra.NewFromConfig(awsCfg), cfg.AWS.KendraIndexID), newGuard("kendra")),
		cache, cfg.Chat.CacheTTL, log,
	)
	generator := guard.NewGenerator(
		bedrock.NewGenerator(bedrockruntime.NewFromConfig(awsCfg), cfg.AWS.BedrockModelID, bedrock.WithMaxTokens(cfg.Chat.MaxTokens)),
		newGuard("bedrock"),
	)

	svc.chat = chat.NewGateway(retriever, generator,
		chat.WithLogger(log),
		chat.WithMetrics(chat.NewMetrics()),
		chat.WithAuditPublisher(svc.auditPublisher),
		chat.WithTopN(cfg.Chat.TopN),
		chat.WithStepTimeout(cfg.Chat.StepTimeout),
	)
	return svc, nil
}
