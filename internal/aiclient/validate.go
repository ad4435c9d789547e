package aiclient

import (
	"fmt"

	"greenhouse_control/internal/models"
)

// rawOutcome keeps pointers so a missing field can be told apart from a zero one.
type rawOutcome struct {
	PumpAction   *string `json:"pump_action"`
	PumpDuration *int    `json:"pump_duration"`
	PumpUrgency  *string `json:"pump_urgency"`
	FanAction    *string `json:"fan_action"`
	FanDuration  *int    `json:"fan_duration"`
	FanUrgency   *string `json:"fan_urgency"`
}

var (
	pumpActions = map[string]bool{models.ActionPumpOn: true, models.ActionPumpOff: true, models.ActionNone: true}
	fanActions  = map[string]bool{models.ActionFanOn: true, models.ActionFanOff: true, models.ActionNone: true}
	urgencies   = map[string]bool{models.UrgencyUrgent: true, models.UrgencyNormal: true}
)

func (r rawOutcome) validate() (models.DecisionOutcome, error) {
	if r.PumpAction == nil || r.PumpDuration == nil || r.PumpUrgency == nil ||
		r.FanAction == nil || r.FanDuration == nil || r.FanUrgency == nil {
		return models.DecisionOutcome{}, fmt.Errorf("%w: missing required fields", ErrInvalidResponse)
	}
	out := models.DecisionOutcome{
		PumpAction:   *r.PumpAction,
		PumpDuration: *r.PumpDuration,
		PumpUrgency:  *r.PumpUrgency,
		FanAction:    *r.FanAction,
		FanDuration:  *r.FanDuration,
		FanUrgency:   *r.FanUrgency,
	}
	if err := checkChannel("pump", out.PumpAction, out.PumpDuration, out.PumpUrgency, pumpActions, models.ActionPumpOn); err != nil {
		return models.DecisionOutcome{}, err
	}
	if err := checkChannel("fan", out.FanAction, out.FanDuration, out.FanUrgency, fanActions, models.ActionFanOn); err != nil {
		return models.DecisionOutcome{}, err
	}
	return out, nil
}

func checkChannel(name, action string, duration int, urgency string, allowed map[string]bool, on string) error {
	if !allowed[action] {
		return fmt.Errorf("%w: %s action %q", ErrInvalidResponse, name, action)
	}
	if !urgencies[urgency] {
		return fmt.Errorf("%w: %s urgency %q", ErrInvalidResponse, name, urgency)
	}
	if duration < 0 {
		return fmt.Errorf("%w: %s duration %d is negative", ErrInvalidResponse, name, duration)
	}
	if action == on && duration == 0 {
		return fmt.Errorf("%w: %s is %s with zero duration", ErrInvalidResponse, name, action)
	}
	return nil
}
