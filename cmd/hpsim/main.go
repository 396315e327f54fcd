package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"dwelling_simulator/internal/ingest"
	"dwelling_simulator/internal/simulator"
	"dwelling_simulator/internal/weather"
)

// collector implements simulator.Callback, keeping every timestep and the
// latest summary.
type collector struct {
	results []simulator.Result
	summary simulator.Summary
}

func (c *collector) OnState(simulator.State)       {}
func (c *collector) OnTimestep(r simulator.Result) { c.results = append(c.results, r) }
func (c *collector) OnSummary(s simulator.Summary) { c.summary = s }

func main() {
	configPath := flag.String("config", "config.json", "simulation config JSON file")
	weatherPath := flag.String("weather", "weather.csv", "hourly weather CSV file")
	start := flag.Float64("start", -1, "override start hour")
	end := flag.Float64("end", -1, "override end hour")
	step := flag.Float64("step", -1, "override timestep in hours")
	verbose := flag.Bool("v", false, "print every timestep")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *start >= 0 {
		cfg.StartHour = *start
	}
	if *end >= 0 {
		cfg.EndHour = *end
	}
	if *step > 0 {
		cfg.StepHours = *step
	}

	series, err := loadWeather(*weatherPath)
	if err != nil {
		log.Fatalf("Failed to load weather data: %v", err)
	}
	wStart, wEnd, _ := series.Range()
	log.Printf("Weather loaded: %d records, hours %.0f to %.0f", series.Len(), wStart, wEnd)

	cb := &collector{}
	engine, err := simulator.New(cfg, series, cb)
	if err != nil {
		log.Fatalf("Failed to build simulation: %v", err)
	}

	summary, err := engine.Run()
	if err != nil {
		log.Fatalf("Simulation failed: %v", err)
	}

	if *verbose {
		printTimesteps(cb.results)
	}
	printSummary(summary, engine)
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

func printTimesteps(results []simulator.Result) {
	fmt.Printf(" %6s │ %7s │ %11s │ %11s │ %12s │ %12s │ %9s\n",
		"Hour", "Ext °C", "Space Dmd", "Water Dmd", "Space Deliv", "Water Deliv", "Elec kWh")
	fmt.Printf("────────┼─────────┼─────────────┼─────────────┼──────────────┼──────────────┼──────────\n")
	for _, r := range results {
		fmt.Printf(" %6.1f │ %7.1f │ %11.3f │ %11.3f │ %12.3f │ %12.3f │ %9.3f\n",
			r.Hour, r.ExternalTemp, r.SpaceDemand, r.WaterDemand,
			r.SpaceDelivered, r.WaterDelivered, r.Electricity)
	}
	fmt.Println()
}

func printSummary(s simulator.Summary, engine *simulator.Engine) {
	fmt.Println()
	fmt.Println("Heat Pump Simulation Summary")
	fmt.Printf("  Timesteps:        %d\n", s.Steps)
	fmt.Printf("  Space demand:     %8.2f kWh\n", s.SpaceDemandKWh)
	fmt.Printf("  Space delivered:  %8.2f kWh\n", s.SpaceDeliveredKWh)
	fmt.Printf("  Water demand:     %8.2f kWh\n", s.WaterDemandKWh)
	fmt.Printf("  Water delivered:  %8.2f kWh\n", s.WaterDeliveredKWh)
	fmt.Printf("  Electricity:      %8.2f kWh\n", s.ElectricityKWh)

	delivered := s.SpaceDeliveredKWh + s.WaterDeliveredKWh
	if s.ElectricityKWh > 0 {
		fmt.Printf("  Seasonal COP:     %8.2f\n", delivered/s.ElectricityKWh)
	}

	fmt.Println()
	fmt.Println("Electricity by end user:")
	for name, perStep := range engine.Supply().ResultsByEndUser() {
		var total float64
		for _, v := range perStep {
			total += v
		}
		fmt.Printf("  %-24s %8.2f kWh\n", name, total)
	}
}
