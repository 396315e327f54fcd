package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"dwelling_simulator/internal/ingest"
	"dwelling_simulator/internal/simulator"
	"dwelling_simulator/internal/weather"
	"dwelling_simulator/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.json", "simulation config JSON file")
	weatherPath := flag.String("weather", "weather.csv", "hourly weather CSV file")
	frontendDir := flag.String("frontend-dir", "frontend/build", "directory containing frontend build")
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	series, err := loadWeather(*weatherPath)
	if err != nil {
		log.Fatalf("Failed to load weather data: %v", err)
	}
	wStart, wEnd, ok := series.Range()
	if !ok {
		log.Fatal("No weather data loaded")
	}
	log.Printf("Weather loaded: %d records, hours %.0f to %.0f", series.Len(), wStart, wEnd)

	// Set up WebSocket hub and simulator
	hub := ws.NewHub()
	bridge := ws.NewBridge(hub)
	engine, err := simulator.New(cfg, series, bridge)
	if err != nil {
		log.Fatalf("Failed to build simulation: %v", err)
	}

	handler := ws.NewHandler(hub, engine)

	// Routes
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.Handle("/ws", handler)

	// Serve frontend static files
	if _, err := os.Stat(*frontendDir); err == nil {
		log.Printf("Serving frontend from %s", *frontendDir)
		mux.Handle("/", http.FileServer(http.Dir(*frontendDir)))
	}

	log.Printf("Starting server on %s", *addr)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(path string) (simulator.Config, error) {
	var cfg simulator.Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

func loadWeather(path string) (*weather.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	parser := &ingest.WeatherCSVParser{}
	records, err := parser.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return weather.NewSeries(records), nil
}
