package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"

	"github.com/flarexio/ragblade"
	"github.com/flarexio/ragblade/embedding"

	mcpE "github.com/flarexio/ragblade/mcp"
	httpT "github.com/flarexio/ragblade/transport/http"
	natsT "github.com/flarexio/ragblade/transport/nats"
)

func main() {
	cmd := &cli.Command{
		Name:  "ragblade",
		Usage: "RAGBlade service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Usage: "Path to the RAGBlade service",
			},
			&cli.StringFlag{
				Name:    "pinecone-api-key",
				Usage:   "Pinecone API key",
				Sources: cli.EnvVars("PINECONE_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "pinecone-env",
				Usage:   "Pinecone environment for pod-based indexes",
				Sources: cli.EnvVars("PINECONE_ENV"),
			},
			&cli.StringFlag{
				Name:    "qdrant-api-key",
				Usage:   "Qdrant API key",
				Sources: cli.EnvVars("QDRANT_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "openai-api-key",
				Usage:   "OpenAI API key for the embedding model",
				Sources: cli.EnvVars("OPENAI_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "nats",
				Usage:   "NATS server URL",
				Value:   "wss://nats.flarex.io",
				Sources: cli.EnvVars("NATS_URL"),
			},
			&cli.StringFlag{
				Name:    "nats-creds",
				Usage:   "NATS user credentials file",
				Sources: cli.EnvVars("NATS_CREDS"),
			},
			&cli.BoolFlag{
				Name:  "http",
				Usage: "Enable HTTP transport",
				Value: false,
			},
			&cli.StringFlag{
				Name:  "http-addr",
				Usage: "HTTP server address",
				Value: ":8080",
			},
		},
		Action: run,
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err.Error())
	}
}

func loadConfig(path string, cmd *cli.Command) (ragblade.Config, error) {
	var cfg ragblade.Config

	f, err := os.Open(filepath.Join(path, "config.yaml"))
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, err
	}

	if key := cmd.String("pinecone-api-key"); key != "" {
		cfg.Pinecone.APIKey = key
	}

	if env := cmd.String("pinecone-env"); env != "" {
		cfg.Pinecone.Environment = env
	}

	if key := cmd.String("qdrant-api-key"); key != "" {
		cfg.Qdrant.APIKey = key
	}

	if key := cmd.String("openai-api-key"); key != "" && cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = key
	}

	if cfg.Chromem.Persistent && cfg.Chromem.Path == "" {
		cfg.Chromem.Path = filepath.Join(path, "vectors")
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("path")
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		path = filepath.Join(homeDir, ".flarex", "ragblade")
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)

	cfg, err := loadConfig(path, cmd)
	if err != nil {
		return err
	}

	embedder, err := embedding.NewEmbedder(cfg.Embedding)
	if err != nil {
		return err
	}

	db, err := ragblade.NewVectorDB(ctx, cfg)
	if err != nil {
		return err
	}

	svc, err := ragblade.NewService(ctx, cfg, db, embedder)
	if err != nil {
		db.Close()
		return err
	}
	defer svc.Close()

	fieldKeys := []string{"method", "error"}

	svc = ragblade.LoggingMiddleware(log)(svc)
	svc = ragblade.InstrumentingMiddleware(
		kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: "ragblade",
			Subsystem: "service",
			Name:      "request_count",
			Help:      "Number of requests received.",
		}, fieldKeys),
		kitprometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: "ragblade",
			Subsystem: "service",
			Name:      "request_latency_seconds",
			Help:      "Total duration of requests in seconds.",
			Buckets:   stdprometheus.DefBuckets,
		}, fieldKeys),
		kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: "ragblade",
			Subsystem: "service",
			Name:      "documents_added",
			Help:      "Number of documents stored.",
		}, []string{}),
	)(svc)

	endpoints := ragblade.MakeEndpoints(svc)

	natsURL := cmd.String("nats")
	natsCreds := cmd.String("nats-creds")
	if natsCreds == "" {
		natsCreds = filepath.Join(path, "user.creds")
	}

	idBytes, err := os.ReadFile(filepath.Join(path, "id"))
	if err != nil {
		return err
	}

	// Add NATS Transport
	{
		edgeID := strings.TrimSpace(string(idBytes))

		nc, err := nats.Connect(natsURL,
			nats.Name("RAGBlade Server - "+edgeID),
			nats.UserCredentials(natsCreds),
		)

		if err != nil {
			return err
		}
		defer nc.Drain()

		srv, err := micro.AddService(nc, micro.Config{
			Name:    "ragblade",
			Version: "1.0.0",
		})

		if err != nil {
			return err
		}
		defer srv.Stop()

		topic := "edges." + edgeID + ".ragblade"

		root := srv.AddGroup(topic)
		if err := natsT.AddEndpoints(root, endpoints); err != nil {
			return err
		}
	}

	httpEnabled := cmd.Bool("http")
	if httpEnabled {
		r := gin.Default()
		httpT.AddRouters(r, endpoints)
		httpT.AddMetricsRouter(r)

		endpoints := make(map[mcp.MCPMethod]mcpE.MCPEndpoint)
		endpoints[mcp.MethodInitialize] = mcpE.InitializeEndpoint(svc)
		endpoints[mcp.MethodPing] = mcpE.PingEndpoint(svc)
		endpoints[mcp.MethodToolsList] = mcpE.ListToolsEndpoint(svc)
		endpoints[mcp.MethodToolsCall] = mcpE.CallToolEndpoint(svc)
		httpT.AddStreamableRouters(r, endpoints)

		httpAddr := cmd.String("http-addr")
		go r.Run(httpAddr)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sign := <-quit

	log.Info("graceful shutdown", zap.String("signal", sign.String()))
	return nil
}
