package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"carma_server/adapter/in/http"
	"carma_server/adapter/out/cache"
	"carma_server/adapter/out/filestore"
	"carma_server/adapter/out/gmail"
	"carma_server/adapter/out/mongodb"
	"carma_server/adapter/out/observe"
	"carma_server/adapter/out/openai"
	"carma_server/adapter/out/spreadsheet"
	"carma_server/config"
	"carma_server/core/port/out"
	"carma_server/core/service/category"
	"carma_server/core/service/extract"
	"carma_server/core/service/inbox"
	"carma_server/core/service/procurement"
	"carma_server/core/service/project"
	"carma_server/core/service/report"
	"carma_server/core/service/risk"
	"carma_server/core/service/summary"
	"carma_server/core/service/vendor"
	kv "carma_server/pkg/cache"
	"carma_server/pkg/logger"
)

type Dependencies struct {
	Config *config.Config

	// Backends
	Records out.RecordStore
	Blobs   *filestore.Store
	LLM     out.TextCompletionService
	Mail    out.MailSource
	Sheets  out.SpreadsheetSource
	Checks  map[string]http.HealthChecker

	// Services
	Projects    *project.Service
	Summary     *summary.Service
	Inbox       *inbox.Service
	Vendor      *vendor.Service
	Report      *report.Service
	Procurement *procurement.Service
}

func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{
		Config: cfg,
		Checks: make(map[string]http.HealthChecker),
	}
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	// Blobs always live on disk so the spreadsheet reader can open them.
	files := filestore.New(cfg.BaseDir)
	deps.Blobs = files
	deps.Records = files

	switch cfg.StoreBackend {
	case "", "file":
		logger.Info("Record store: filesystem (%s)", files.Root())
	case "mongo", "mongodb":
		if cfg.MongoDBURL == "" {
			return nil, nil, fmt.Errorf("STORE_BACKEND=%s requires MONGODB_URL", cfg.StoreBackend)
		}
		mongoClient, err := mongodb.NewClient(cfg.MongoDBURL)
		if err != nil {
			return nil, nil, err
		}
		cleanups = append(cleanups, func() {
			mongoClient.Disconnect(context.Background())
		})

		records := mongodb.NewRecordStore(mongoClient.Database(cfg.MongoDBName))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = records.EnsureIndexes(ctx)
		cancel()
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		deps.Records = records
		deps.Checks["mongodb"] = mongoPinger{mongoClient}
		logger.Info("Record store: MongoDB (%s)", cfg.MongoDBName)
	default:
		return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	// OpenAI
	llm := openai.NewClient(openai.Config{
		APIKey:          cfg.OpenAIAPIKey,
		Model:           cfg.LLMModel,
		Timeout:         cfg.LLMTimeout,
		BreakerFailures: cfg.LLMBreakerFailures,
		BreakerTimeout:  cfg.LLMBreakerTimeout,
	})
	deps.LLM = llm
	if cfg.OpenAIAPIKey == "" {
		logger.Warn("OPENAI_API_KEY not set, AI endpoints will fall back or fail")
	}

	// Redis (optional completion cache)
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisCache, err := kv.Connect(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			logger.Warn("Redis connection failed: %v", err)
		} else {
			cleanups = append(cleanups, func() { redisCache.Close() })
			deps.LLM = cache.NewCompletionCache(llm, redisCache, cfg.CompletionTTL)
			deps.Checks["redis"] = redisCache
			logger.Info("Completion cache (Redis) enabled, ttl=%v", cfg.CompletionTTL)
		}
	}

	// Gmail
	deps.Mail = gmail.New(gmail.Config{
		CredentialsFile: cfg.CredentialsPath(),
		TokenFile:       cfg.TokenPath(),
		Timeout:         30 * time.Second,
	})

	deps.Sheets = spreadsheet.NewReader(cfg.BaseDir)

	obs := observe.NewLogObserver(logger.Default())
	ext := extract.New(deps.LLM, obs)
	conc := cfg.ExtractConcurrency

	deps.Projects = project.NewService(deps.Records, obs)
	deps.Vendor = vendor.NewService(deps.Records, ext, obs)
	deps.Summary = summary.NewService(deps.Records, deps.Projects, ext, category.NewFilter(ext, obs, conc), obs, conc)
	deps.Inbox = inbox.NewService(deps.Mail, deps.Records, deps.Blobs, risk.NewAnalyzer(ext, obs, conc), deps.Vendor, obs, cfg.GmailFetchMax)
	deps.Report = report.NewService(deps.Records, ext, obs)
	deps.Procurement = procurement.NewService(deps.Records, deps.Inbox, deps.Sheets, ext, obs, conc)

	return deps, cleanup, nil
}

type mongoPinger struct {
	client *mongo.Client
}

func (p mongoPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx, nil)
}
