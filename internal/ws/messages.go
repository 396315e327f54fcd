package ws

import (
	"encoding/json"

	"dwelling_simulator/internal/simulator"
)

// Envelope wraps all WebSocket messages with a type discriminator.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client -> Server messages

type SetSpeedPayload struct {
	Speed float64 `json:"speed"`
}

// Server -> Client messages

type SimStatePayload struct {
	Index   int     `json:"index"`
	Hour    float64 `json:"hour"`
	Speed   float64 `json:"speed"`
	Running bool    `json:"running"`
	Done    bool    `json:"done"`
}

type TimestepPayload struct {
	Index          int     `json:"index"`
	Hour           float64 `json:"hour"`
	ExternalTemp   float64 `json:"external_temp"`
	SpaceDemand    float64 `json:"space_demand_kwh"`
	WaterDemand    float64 `json:"water_demand_kwh"`
	SpaceDelivered float64 `json:"space_delivered_kwh"`
	WaterDelivered float64 `json:"water_delivered_kwh"`
	Electricity    float64 `json:"electricity_kwh"`
}

type SummaryPayload struct {
	Steps             int     `json:"steps"`
	SpaceDemandKWh    float64 `json:"space_demand_kwh"`
	WaterDemandKWh    float64 `json:"water_demand_kwh"`
	SpaceDeliveredKWh float64 `json:"space_delivered_kwh"`
	WaterDeliveredKWh float64 `json:"water_delivered_kwh"`
	ElectricityKWh    float64 `json:"electricity_kwh"`
}

// Message type constants
const (
	// Client -> Server
	TypeSimStart    = "sim:start"
	TypeSimPause    = "sim:pause"
	TypeSimSetSpeed = "sim:set_speed"

	// Server -> Client
	TypeSimState      = "sim:state"
	TypeSimTimestep   = "sim:timestep"
	TypeSummaryUpdate = "summary:update"
)

func NewEnvelope(msgType string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

func SimStateFromEngine(s simulator.State) SimStatePayload {
	return SimStatePayload{
		Index:   s.Index,
		Hour:    s.Hour,
		Speed:   s.Speed,
		Running: s.Running,
		Done:    s.Done,
	}
}

func TimestepFromEngine(r simulator.Result) TimestepPayload {
	return TimestepPayload{
		Index:          r.Index,
		Hour:           r.Hour,
		ExternalTemp:   r.ExternalTemp,
		SpaceDemand:    r.SpaceDemand,
		WaterDemand:    r.WaterDemand,
		SpaceDelivered: r.SpaceDelivered,
		WaterDelivered: r.WaterDelivered,
		Electricity:    r.Electricity,
	}
}

func SummaryFromEngine(s simulator.Summary) SummaryPayload {
	return SummaryPayload{
		Steps:             s.Steps,
		SpaceDemandKWh:    s.SpaceDemandKWh,
		WaterDemandKWh:    s.WaterDemandKWh,
		SpaceDeliveredKWh: s.SpaceDeliveredKWh,
		WaterDeliveredKWh: s.WaterDeliveredKWh,
		ElectricityKWh:    s.ElectricityKWh,
	}
}
