package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gameontext/room/internal/config"
	"github.com/gameontext/room/internal/engine"
	"github.com/gameontext/room/internal/mapclient"
	"github.com/gameontext/room/internal/registrar"
	"github.com/gameontext/room/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if len(cfg.Rooms) == 0 {
		log.Fatal("No rooms defined in config")
	}

	server := ws.NewServer(cfg.Server.WSToken)
	pending := registrar.NewPendingSet()

	for _, def := range cfg.Rooms {
		room := engine.NewRoom(def.ID, def.Name, def.Description, doorsFor(def), itemsFor(def))
		broadcaster := ws.NewBroadcaster()
		room.SetEvents(broadcaster)
		server.AddRoom(room, broadcaster)
		pending.Add(room)
		log.Printf("Hosting room %s (%s)", def.ID, def.Name)
	}

	client := mapclient.New(cfg.Map.ServiceURL, cfg.Map.HealthURL, cfg.Map.SystemID, cfg.Map.Key, cfg.Map.CallTimeout.Std())
	reconciler := registrar.New(client, pending, cfg.Map.SystemID, cfg.Server.Callback, cfg.Map.RegisterInterval.Std())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reconciler.Run(ctx)

	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		cancel()
		os.Exit(0)
	}()

	if err := ws.ListenAndServe(cfg.Server.Host, cfg.Server.Port, mux); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func doorsFor(def config.RoomDef) []engine.Door {
	doors := make([]engine.Door, 0, len(def.Doors))
	for _, dir := range engine.Directions {
		if desc, ok := def.Doors[string(dir)]; ok {
			doors = append(doors, engine.Door{Direction: dir, Description: desc})
		}
	}
	return doors
}

func itemsFor(def config.RoomDef) []engine.Item {
	items := make([]engine.Item, 0, len(def.Items))
	for _, it := range def.Items {
		items = append(items, engine.Item{Name: it.Name, Description: it.Description})
	}
	return items
}
