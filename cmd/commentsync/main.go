package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/odookit/commentsync/internal/bus"
	"github.com/odookit/commentsync/internal/config"
	"github.com/odookit/commentsync/internal/odoo"
	"github.com/odookit/commentsync/internal/services"
	"github.com/odookit/commentsync/internal/session"
	"github.com/odookit/commentsync/internal/store"
)

func main() {
	configPathFlag := flag.String("config", "", "Path to JSON configuration file (default: ~/.config/commentsync/config.json)")
	serverFlag := flag.String("server", "", "Server base URL (overrides config)")
	entityTypeFlag := flag.String("entity-type", "activity", "Host entity type: activity or message")
	entityIDFlag := flag.Int64("entity-id", 0, "Host entity id to resolve")
	resModelFlag := flag.String("res-model", "", "Business record model of the host entity")
	resIDFlag := flag.String("res-id", "", "Business record id of the host entity")
	verboseFlag := flag.Bool("verbose", false, "Enable debug logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "commentsync - comment-thread synchronization engine\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  %s --entity-type activity --entity-id 12 --res-model res.partner --res-id 5\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --entity-type message --entity-id 42 --res-model res.partner --res-id 5\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	configPath := *configPathFlag
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Printf("Warning: could not load configuration: %v", err)
		cfg = config.DefaultConfig()
	}
	if *serverFlag != "" {
		cfg.Server.URL = *serverFlag
	}
	if *entityIDFlag == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var logger *log.Logger
	if *verboseFlag {
		logger = log.New(os.Stderr, "commentsync: ", log.LstdFlags)
	}

	ctx := context.Background()

	var storage session.Storage
	if cfg.Session.DBPath != "" {
		st, err := session.Open(ctx, cfg.Session.DBPath)
		if err != nil {
			log.Fatalf("Could not open session storage: %v", err)
		}
		defer func() { _ = st.Close() }()
		storage = st
	} else {
		storage = session.NewMemory()
	}

	client := odoo.NewClient(cfg.Server.URL, nil)
	sharedStore := store.New()
	eventBus := bus.New()

	threadSvc := services.NewThreadService(client, sharedStore)
	attachmentSvc := services.NewAttachmentService(client, cfg.Server.URL)
	normalizer := services.NewNormalizer(services.LocationFromCookie(cfg.Display.Timezone), 0)

	shareBase := cfg.Server.ShareBaseURL
	if shareBase == "" {
		shareBase = cfg.Server.URL
	}
	syncSvc := services.NewSyncService(client, sharedStore, eventBus,
		threadSvc, attachmentSvc, normalizer, shareBase, cfg.Sync.FetchLimit)
	visibilitySvc := services.NewVisibilityService(sharedStore,
		time.Duration(cfg.Sync.RenderSettleMs)*time.Millisecond)
	handoffSvc := services.NewHandoffService(storage, client)
	if logger != nil {
		threadSvc.SetLogger(logger)
		syncSvc.SetLogger(logger)
		visibilitySvc.SetLogger(logger)
		handoffSvc.SetLogger(logger)
	}

	entity := services.HostEntity{
		ID:       *entityIDFlag,
		Type:     services.EntityType(*entityTypeFlag),
		ResModel: *resModelFlag,
		ResID:    *resIDFlag,
	}
	if entity.Type != services.EntityActivity && entity.Type != services.EntityMessage {
		log.Fatalf("Unknown entity type %q (want activity or message)", *entityTypeFlag)
	}

	surf := syncSvc.NewSurface(entity)
	defer syncSvc.DisposeSurface(surf)

	if err := syncSvc.Initialize(ctx, surf); err != nil {
		log.Fatalf("Could not initialize surface: %v", err)
	}
	services.ApplyHandoff(ctx, handoffSvc, visibilitySvc, surf)

	thread := surf.Thread()
	fmt.Printf("Thread %d (%s %s/%d)\n", thread.ID, thread.Model, thread.ResModel, thread.ResID)
	visibilitySvc.RecomputeCount(surf)
	fmt.Printf("Toggle: %s\n\n", visibilitySvc.ToggleLabel(surf))

	for _, c := range surf.Comments() {
		fmt.Printf("#%s  %s  (%s)\n", strconv.FormatInt(c.ID, 10), c.Author.Name, c.DateLabel)
		fmt.Printf("  %s\n", c.RawBody)
		for _, att := range c.Attachments {
			fmt.Printf("  [attachment] %s (%s) %s\n", att.Name, att.Mimetype, att.URL)
		}
	}
}
