package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hearthdash/hearth/internal/aggregate"
	"github.com/hearthdash/hearth/internal/calendar"
	"github.com/hearthdash/hearth/internal/chore"
	"github.com/hearthdash/hearth/internal/config"
	"github.com/hearthdash/hearth/internal/database"
	"github.com/hearthdash/hearth/internal/logging"
	"github.com/hearthdash/hearth/internal/model"
	"github.com/hearthdash/hearth/internal/reset"
	"github.com/hearthdash/hearth/internal/server"
	"github.com/hearthdash/hearth/internal/source"
	"github.com/hearthdash/hearth/internal/source/gtasks"
	"github.com/hearthdash/hearth/internal/source/hass"
	"github.com/hearthdash/hearth/internal/source/ics"
	"github.com/hearthdash/hearth/internal/store"
	ws "github.com/hearthdash/hearth/internal/websocket"
)

func main() {
	configPath := flag.String("config", "hearth.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel)

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("resolve timezone", "error", err)
		os.Exit(1)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	settings := store.NewSettingsStore(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := ws.NewHub(logger.With("component", "websocket"))

	// Calendar backends. ICS sources are routed by id; everything else goes
	// to Home Assistant when one is configured.
	var hassClient *hass.Client
	if cfg.Hass.URL != "" {
		hassClient = hass.New(cfg.Hass.URL, cfg.Hass.Token, loc, logger.With("component", "hass"))
	}
	mux := source.NewMux(eventSourceOrNil(hassClient))
	if subs := cfg.ICSSubscriptions(); len(subs) > 0 {
		feed := ics.New(subs, loc, logger.With("component", "ics"))
		for id := range subs {
			mux.Bind(id, feed)
		}
	}

	// Re-apply persisted visibility choices on top of the config defaults.
	sources := cfg.CalendarSources()
	for i := range sources {
		if visible, ok := settings.SourceVisibility(sources[i].ID); ok {
			sources[i].Visible = visible
		}
	}

	agg := aggregate.New(mux, sources, cfg.Debounce(), logger.With("component", "aggregate"), func(snap aggregate.Snapshot) {
		hub.Broadcast(ws.EventsUpdated(string(snap.Window.Mode)))
	})
	now := time.Now().In(loc)
	agg.Start(ctx, calendar.Resolve(now, model.ModeMonth, now, cfg.HorizonDays))

	// To-do backend: Google Tasks when configured, otherwise Home Assistant.
	var lists source.TaskLists
	switch {
	case cfg.GoogleTasks != nil:
		gt, err := gtasks.New(ctx, cfg.GoogleTasks.ClientFile, cfg.GoogleTasks.TokenFile, logger.With("component", "gtasks"))
		if err != nil {
			logger.Error("google tasks client", "error", err)
			os.Exit(1)
		}
		lists = gt
	case hassClient != nil:
		lists = hassClient
	}

	periods, err := cfg.ChorePeriods()
	if err != nil {
		logger.Error("parse chore periods", "error", err)
		os.Exit(1)
	}

	kids := make([]chore.Kid, 0, len(cfg.Kids))
	listIDs := make([]string, 0, len(cfg.Kids))
	for _, k := range cfg.Kids {
		kids = append(kids, chore.Kid{Name: k.Name, ListID: k.List, Image: k.Image})
		listIDs = append(listIDs, k.List)
	}
	board := chore.NewBoard(kids, periods, lists, logger.With("component", "chore"))
	if lists != nil {
		board.Refresh(ctx)
	}

	resetSched := reset.New(lists, listIDs, settings, loc, logger.With("component", "reset"), func() {
		board.Refresh(ctx)
		hub.Broadcast(ws.ResetCompleted(time.Now().In(loc).Format("2006-01-02")))
		hub.Broadcast(ws.ChoresUpdated())
	})

	crond := cron.New()
	if lists != nil {
		if _, err := crond.AddFunc(cfg.ResetCron, func() {
			resetSched.Check(ctx, time.Now().In(loc))
		}); err != nil {
			logger.Error("schedule reset check", "cron", cfg.ResetCron, "error", err)
			os.Exit(1)
		}
	}
	if _, err := crond.AddFunc(cfg.RefreshCron, func() {
		agg.Trigger()
		if lists != nil {
			board.Refresh(ctx)
			hub.Broadcast(ws.ChoresUpdated())
		}
	}); err != nil {
		logger.Error("schedule refresh", "cron", cfg.RefreshCron, "error", err)
		os.Exit(1)
	}
	crond.Start()
	defer crond.Stop()

	srv := server.New(server.Config{
		Aggregator:  agg,
		Board:       board,
		Commander:   commanderOrNil(hassClient),
		Settings:    settings,
		Hub:         hub,
		Location:    loc,
		HorizonDays: cfg.HorizonDays,
	}, logger)

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         cfg.Listen,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("hearth listening", "addr", cfg.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

// eventSourceOrNil keeps a nil *hass.Client from becoming a non-nil
// interface value.
func eventSourceOrNil(c *hass.Client) source.EventSource {
	if c == nil {
		return nil
	}
	return c
}

func commanderOrNil(c *hass.Client) source.Commander {
	if c == nil {
		return nil
	}
	return c
}
