package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"freightdesk/internal/adapter/store"
	"freightdesk/internal/adapter/tool"
	"freightdesk/internal/domain"
	"freightdesk/internal/infra/config"
	"freightdesk/internal/infra/logger"
	"freightdesk/internal/infra/tracer"
	"freightdesk/internal/security"
	"freightdesk/internal/usecase"
	"freightdesk/internal/usecase/eventbus"

	"freightdesk/internal/adapter/llm"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	envCfg, err := config.LoadEnv()
	if err != nil {
		return err
	}

	cfg, err := config.Load(envCfg.ConfigPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		cfg = config.Default()
	}
	cfg.ApplyEnv(envCfg)

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer closeLog()

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return err
	}
	defer shutdownTracer(context.Background())

	backends, err := llm.BuildRegistry(cfg, log)
	if err != nil {
		return err
	}

	sessions, err := store.NewSQLiteSessionStore(cfg.Session.DBPath)
	if err != nil {
		return err
	}
	defer sessions.Close()

	audit, err := buildAuditLogger(cfg)
	if err != nil {
		return err
	}
	defer audit.Close()

	tools := tool.NewRegistry(log)
	shipments := tool.NewMemoryShipmentBackend()
	seedShipments(shipments)
	for _, t := range []domain.Tool{
		tool.NewCalculatePriceTool(cfg.Pricing, log),
		tool.NewShipmentStatusTool(shipments, log),
		tool.NewRevenueReportTool(tool.StaticRevenueBackend{Currency: cfg.Pricing.Currency}, log),
	} {
		if err := tools.Register(t); err != nil {
			return err
		}
	}

	broker := eventbus.New(log)
	defer broker.Close()

	engine := usecase.NewEngine(usecase.EngineDeps{
		Chat:          usecase.NewChatClient(usecase.NewResolver(cfg.Models), backends, log),
		Tools:         tools,
		Guardrail:     usecase.NewGuardrail(tools.List(), cfg.Guardrail, audit, log),
		Executor:      usecase.NewExecutor(tools, audit, log),
		Sessions:      sessions,
		Broadcast:     broker,
		Audit:         audit,
		Limiter:       usecase.NewActorLimiter(cfg.RateLimit),
		Logger:        log,
		SubscribeWait: cfg.Broadcast.SubscribeWait,
	})

	return repl(ctx, engine, broker)
}

func buildAuditLogger(cfg *config.Config) (domain.AuditLogger, error) {
	switch cfg.Audit.Backend {
	case "sqlite":
		return store.NewSQLiteAuditLogger(cfg.Audit.Path)
	default:
		fa, err := security.NewFileAuditLogger(cfg.Audit.Path)
		if err != nil {
			return nil, err
		}
		fa.SetMaxAge(cfg.Audit.MaxAge)
		return fa, nil
	}
}

// repl reads messages from stdin and runs one turn per line. Progress
// events are printed as they arrive, the way a web client would render
// them.
func repl(ctx context.Context, engine *usecase.Engine, broker *eventbus.Broker) error {
	actor := "local-user"
	sessionKey := "local-session"
	var history []domain.Message

	fmt.Println("freightdesk assistant (ctrl-d to exit)")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if ctx.Err() != nil {
			return nil
		}

		nonce := usecase.NewNonce()
		unsubscribe := broker.Subscribe(usecase.TypingChannelName(actor, nonce),
			func(_ context.Context, ev domain.TypingEvent) {
				if ev.Status != domain.TypingDone {
					fmt.Printf("  [%s] %s\n", ev.Status, ev.Worker)
				}
			})

		resp, err := engine.RunTurn(ctx, domain.TurnRequest{
			Message:        line,
			History:        history,
			Context:        domain.ActingContext{Actor: actor, Target: actor},
			BroadcastNonce: nonce,
			SessionKey:     sessionKey,
		})
		unsubscribe()
		if err != nil {
			fmt.Fprintf(os.Stderr, "turn failed: %v\n", err)
			continue
		}

		fmt.Println(resp.Message)
		history = append(history,
			domain.Message{Role: domain.RoleUser, Content: line, Timestamp: time.Now()},
			domain.Message{Role: domain.RoleAssistant, Content: resp.Message, Timestamp: time.Now()},
		)
		if len(history) > 20 {
			history = history[len(history)-20:]
		}
	}
}

func seedShipments(backend *tool.MemoryShipmentBackend) {
	backend.Put(tool.Shipment{
		TrackingCode: "FD-2024-001",
		Status:       "in_transit",
		Origin:       "Rotterdam",
		Destination:  "Milan",
		LastLocation: "Basel",
		UpdatedAt:    time.Now().Add(-2 * time.Hour),
	})
	backend.Put(tool.Shipment{
		TrackingCode: "FD-2024-002",
		Status:       "delivered",
		Origin:       "Hamburg",
		Destination:  "Lyon",
		LastLocation: "Lyon",
		UpdatedAt:    time.Now().Add(-26 * time.Hour),
	})
}
