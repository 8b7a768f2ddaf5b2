package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"

	"github.com/orchestraai/orchestra/internal/archive"
	"github.com/orchestraai/orchestra/internal/config"
	"github.com/orchestraai/orchestra/internal/conversation"
	"github.com/orchestraai/orchestra/internal/llm"
	"github.com/orchestraai/orchestra/internal/llm/providers/ollama"
	"github.com/orchestraai/orchestra/internal/orchestra"
	"github.com/orchestraai/orchestra/internal/phase"
	"github.com/orchestraai/orchestra/internal/server"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		serve(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  orchestra serve [--config <file.yaml>] [--addr <host:port>] [--backend-url <url>] [--model <name>]")
}

func serve(args []string) {
	var configPath string
	var addr string
	var backendURL string
	var model string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--config requires a value")
				os.Exit(1)
			}
			configPath = args[i]
		case "--addr":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--addr requires a value")
				os.Exit(1)
			}
			addr = args[i]
		case "--backend-url":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--backend-url requires a value")
				os.Exit(1)
			}
			backendURL = args[i]
		case "--model":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--model requires a value")
				os.Exit(1)
			}
			model = args[i]
		default:
			fmt.Fprintf(os.Stderr, "unknown arg: %s\n", args[i])
			os.Exit(1)
		}
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if backendURL != "" {
		cfg.Backend.BaseURL = backendURL
	}
	if model != "" {
		cfg.Backend.Model = model
	}

	logger := log.New(os.Stderr, "[orchestra] ", log.LstdFlags)

	client := llm.NewClient()
	client.Register(ollama.NewAdapter(ollama.Config{
		BaseURL:        cfg.Backend.BaseURL,
		RequestTimeout: cfg.RequestTimeout(),
	}))

	convLog := conversation.NewLog()
	summaries := conversation.NewSummaryStore()
	selector := conversation.NewSelector(convLog, summaries, conversation.DefaultVisibility(), conversation.SelectorConfig{
		CapMessages:      cfg.Selector.CapMessages,
		CapChars:         cfg.Selector.CapChars,
		HumanTruncChars:  cfg.Selector.HumanTruncChars,
		AITruncChars:     cfg.Selector.AITruncChars,
		SystemTruncChars: cfg.Selector.SystemTruncChars,
	})
	machine := phase.NewMachine(nil)
	models := orchestra.NewModelState(cfg.Backend.Model)
	broadcaster := server.NewBroadcaster(cfg.Backlog)

	var store *archive.Store
	if cfg.Archive.Path != "" {
		artifacts, err := archive.NewArtifactStore(cfg.Archive.ArtifactsRoot, cfg.Archive.AllowGlobs)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		store, err = archive.Open(cfg.Archive.Path, artifacts)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer store.Close()
	}

	publish := func(t conversation.Turn) {
		broadcaster.Publish(t)
		if store != nil {
			if err := store.RecordTurn(context.Background(), t); err != nil {
				logger.Printf("archive: %v", err)
			}
		}
	}

	compactor := conversation.NewCompactor(convLog, summaries,
		conversation.SummaryBackendFunc(func(ctx context.Context, prompt string) (string, error) {
			resp, err := client.Generate(ctx, llm.Request{Model: models.Selected(), Prompt: prompt})
			if err != nil {
				return "", err
			}
			return resp.Content, nil
		}),
		publish, logger)
	if store != nil {
		compactor.OnSummary = func(sum conversation.Summary) {
			if err := store.RecordSummary(context.Background(), sum); err != nil {
				logger.Printf("archive summary: %v", err)
			}
		}
	}

	baseCtx := context.Background()
	dispatcher := orchestra.NewDispatcher(orchestra.DispatcherDeps{
		Log:       convLog,
		Selector:  selector,
		Compactor: compactor,
		Machine:   machine,
		Client:    client,
		Models:    models,
		Publish:   publish,
		Logger:    logger,
		BaseCtx:   baseCtx,
	})

	models.Initialize(baseCtx, client, logger)

	if cfg.ProbePort {
		probed, err := probeAddr(cfg.Addr)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg.Addr = probed
	}

	srv := server.New(server.Config{Addr: cfg.Addr}, server.Deps{
		Dispatcher:  dispatcher,
		Log:         convLog,
		Summaries:   summaries,
		Machine:     machine,
		Models:      models,
		Client:      client,
		Broadcaster: broadcaster,
		Archive:     store,
	})

	if err := srv.ListenAndServe(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// probeAddr returns addr if it is bindable, otherwise an address on the same
// host with a kernel-assigned free port.
func probeAddr(addr string) (string, error) {
	if ln, err := net.Listen("tcp", addr); err == nil {
		ln.Close()
		return addr, nil
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("probe addr %q: %w", addr, err)
	}
	ln, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return "", fmt.Errorf("probe addr: %w", err)
	}
	defer ln.Close()
	return ln.Addr().String(), nil
}
