package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/readstack/readstack-mcp/api"
	"github.com/readstack/readstack-mcp/config"
	"github.com/readstack/readstack-mcp/library"
	"github.com/readstack/readstack-mcp/logging"
	"github.com/readstack/readstack-mcp/mcp"
	"github.com/readstack/readstack-mcp/notes"
	"github.com/readstack/readstack-mcp/scrape"
	"github.com/readstack/readstack-mcp/session"
	"github.com/readstack/readstack-mcp/usernotes"
)

func main() {
	// Define command line flags
	stdioMode := flag.Bool("stdio", true, "Run in stdio mode")
	httpAddr := flag.String("http", "", "HTTP server address (e.g., ':8080')")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := logging.New(cfg.App.LogFilePath, cfg.IsProd())
	defer logger.Sync() //nolint:errcheck
	if cfg.App.Debug {
		logger.Sugar().Debugf("configuration:\n%s", spew.Sdump(cfg))
	}

	client := api.NewClient(cfg.Client.BaseURL, cfg.Client.RequestTimeout, logger)

	store, err := session.NewFileTokenStore(cfg.Client.TokenPath)
	if err != nil {
		log.Fatalf("failed to open credential store: %v", err)
	}
	sess := session.New(store, client, logger)
	client.SetAuthHeaderFunc(sess.AuthHeader)

	// Verify any persisted credential before serving; an unreachable backend
	// only delays auth, it must not prevent startup.
	verifyCtx, cancel := context.WithTimeout(context.Background(), cfg.Client.RequestTimeout)
	if err := sess.Verify(verifyCtx); err != nil {
		logger.Warn("startup credential verification failed", zap.Error(err))
	}
	cancel()

	broker := mcp.NewEventBroker(logger, mcp.DefaultEventBrokerConfig())
	sess.OnAuthRequired(func() {
		broker.Publish("auth_required", map[string]string{"hint": "run the login tool"})
	})

	httpClient := &http.Client{Timeout: cfg.Client.RequestTimeout}
	controller := library.NewController(client, sess, logger, library.Options{
		PageSize:       cfg.Client.PageSize,
		SearchDebounce: cfg.Client.SearchDebounce,
		FetchTimeout:   cfg.Client.RequestTimeout,
	})
	defer controller.Close()

	deps := mcp.Deps{
		Client:     client,
		HTTPClient: httpClient,
		Session:    sess,
		Controller: controller,
		Tags:       library.NewTagCatalog(client, cfg.Client.TagCacheTTL, logger),
		UserNotes:  usernotes.NewService(client, sess, logger),
		NewViewer: func() *notes.Viewer {
			fetch := func(ctx context.Context, url string) (string, error) {
				return scrape.FetchNote(ctx, httpClient, url)
			}
			return notes.NewViewer(client, sess, fetch, cfg.Client.PollInterval, logger)
		},
		Events: broker,
		Logger: logger,
	}
	s := mcp.NewServer(deps)

	if *httpAddr != "" {
		logger.Info("starting MCP server over HTTP",
			zap.String("addr", *httpAddr),
			zap.String("backend", cfg.Client.BaseURL))
		handler := mcp.NewHTTPServer(logger, s, broker, "/mcp")
		srv := &http.Server{
			Addr:              *httpAddr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		if err := srv.ListenAndServe(); err != nil {
			log.Fatal(err)
		}
		return
	}

	if *stdioMode {
		logger.Info("starting MCP server in stdio mode", zap.String("backend", cfg.Client.BaseURL))
	}
	if err := server.ServeStdio(s); err != nil {
		log.Fatal(err)
	}
}
