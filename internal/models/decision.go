package models

// ThresholdRow is one named configuration value as stored by operators.
// Names follow the convention "<location>-TMax", "<location>-HMax", "<location>-TMin".
type ThresholdRow struct {
	ID         int        `json:"id"`
	Name       string     `json:"name"`
	Value      float64    `json:"value"`
	DeviceType DeviceType `json:"device_type"`
	LocationID string     `json:"location_id"`
}

// ConfigurationThresholds is the per-location snapshot used by one decision cycle.
type ConfigurationThresholds struct {
	MoistureThreshold float64  `json:"moistureThreshold"`
	TempMin           *float64 `json:"tempMin,omitempty"`
	TempMax           float64  `json:"tempMax"`
	HumidityMax       float64  `json:"humidityMax"`
}

// SensorData is the complete reading set sent to the decision service.
type SensorData struct {
	SoilMoisture float64 `json:"soilMoisture"`
	Temperature  float64 `json:"temperature"`
	Humidity     float64 `json:"humidity"`
}

// DecisionRequest is the body of POST /decide.
type DecisionRequest struct {
	LocationID    string                  `json:"locationId"`
	SensorData    SensorData              `json:"sensorData"`
	Configuration ConfigurationThresholds `json:"configuration"`
}

// Action values returned by the decision service.
const (
	ActionPumpOn  = "PUMP_ON"
	ActionPumpOff = "PUMP_OFF"
	ActionFanOn   = "FAN_ON"
	ActionFanOff  = "FAN_OFF"
	ActionNone    = "NONE"
)

// Urgency values returned by the decision service.
const (
	UrgencyUrgent = "URGENT"
	UrgencyNormal = "NORMAL"
)

// DecisionOutcome is the validated combined decision for both actuators.
type DecisionOutcome struct {
	PumpAction   string `json:"pump_action"`
	PumpDuration int    `json:"pump_duration"` // seconds
	PumpUrgency  string `json:"pump_urgency"`
	FanAction    string `json:"fan_action"`
	FanDuration  int    `json:"fan_duration"` // seconds
	FanUrgency   string `json:"fan_urgency"`
}

// ActuatorDecision is the per-actuator slice of a DecisionOutcome.
type ActuatorDecision struct {
	Kind            ActuatorKind
	On              bool
	DurationSeconds int
	Urgent          bool
}

// ForKind projects the outcome onto one actuator.
func (o DecisionOutcome) ForKind(kind ActuatorKind) ActuatorDecision {
	if kind == ActuatorFan {
		return ActuatorDecision{Kind: kind, On: o.FanAction == ActionFanOn, DurationSeconds: o.FanDuration, Urgent: o.FanUrgency == UrgencyUrgent}
	}
	return ActuatorDecision{Kind: kind, On: o.PumpAction == ActionPumpOn, DurationSeconds: o.PumpDuration, Urgent: o.PumpUrgency == UrgencyUrgent}
}
