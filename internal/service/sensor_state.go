package service

import (
	"sync"
	"time"

	"greenhouse_control/internal/models"
)

// SensorStateStore keeps the latest readings of every location in memory.
type SensorStateStore struct {
	mu     sync.RWMutex
	states map[string]models.LatestSensorState
}

func NewSensorStateStore() *SensorStateStore {
	return &SensorStateStore{states: make(map[string]models.LatestSensorState)}
}

// Update overwrites one quantity of the location and bumps its last update.
func (s *SensorStateStore) Update(locationID string, q models.Quantity, value float64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.states[locationID]
	v := value
	switch q {
	case models.QuantitySoilMoisture:
		st.SoilMoisture = &v
	case models.QuantityTemperature:
		st.Temperature = &v
	case models.QuantityHumidity:
		st.Humidity = &v
	default:
		return
	}
	ts := at.UTC()
	st.LastUpdate = &ts
	s.states[locationID] = st
}

// LatestState returns a copy of the location's state.
func (s *SensorStateStore) LatestState(locationID string) (models.LatestSensorState, bool) {
	s.mu.RLock()
	st, ok := s.states[locationID]
	s.mu.RUnlock()
	if !ok {
		return models.LatestSensorState{}, false
	}
	return copyState(st), true
}

func copyState(st models.LatestSensorState) models.LatestSensorState {
	return models.LatestSensorState{
		SoilMoisture: copyPtr(st.SoilMoisture),
		Temperature:  copyPtr(st.Temperature),
		Humidity:     copyPtr(st.Humidity),
		LastUpdate:   copyPtr(st.LastUpdate),
	}
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
