package models

import "time"

// Quantity is the physical value a feed channel reports.
type Quantity string

const (
	QuantitySoilMoisture Quantity = "soil_moisture"
	QuantityTemperature  Quantity = "temperature"
	QuantityHumidity     Quantity = "humidity"
)

// Channel is one polled feed of a sensor device.
type Channel struct {
	Key      string   `json:"key"`
	DeviceID string   `json:"device_id"`
	Quantity Quantity `json:"quantity"`
}

// Channels derives the feed channels of a sensor device.
// Moisture sensors poll their base key; DHT20 sensors poll "<key>-temperature"
// and "<key>-humidity". Actuators have no telemetry channels.
func Channels(d Device) []Channel {
	switch d.Type {
	case DeviceMoistureSensor:
		return []Channel{{Key: d.FeedKey, DeviceID: d.ID, Quantity: QuantitySoilMoisture}}
	case DeviceDHT20Sensor:
		return []Channel{
			{Key: d.FeedKey + "-temperature", DeviceID: d.ID, Quantity: QuantityTemperature},
			{Key: d.FeedKey + "-humidity", DeviceID: d.ID, Quantity: QuantityHumidity},
		}
	default:
		return nil
	}
}

// TelemetrySample is a single accepted feed value.
type TelemetrySample struct {
	DeviceID   string    `json:"device_id"`
	ChannelKey string    `json:"channel_key"`
	Timestamp  time.Time `json:"timestamp"`
	Value      float64   `json:"value"`
}

// MoistureRecord is the persisted form of a soil-moisture sample.
type MoistureRecord struct {
	SensorID     string    `json:"sensor_id"`
	Timestamp    time.Time `json:"timestamp"`
	SoilMoisture float64   `json:"soil_moisture"`
}

// ClimateRecord is a paired DHT20 temperature/humidity sample.
type ClimateRecord struct {
	SensorID    string    `json:"sensor_id"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
}

// LatestSensorState is the most recent reading set of a location.
// Nil fields have not been reported yet.
type LatestSensorState struct {
	SoilMoisture *float64   `json:"soil_moisture,omitempty"`
	Temperature  *float64   `json:"temperature,omitempty"`
	Humidity     *float64   `json:"humidity,omitempty"`
	LastUpdate   *time.Time `json:"last_update,omitempty"`
}

// Complete reports whether all three readings are present.
func (s LatestSensorState) Complete() bool {
	return s.SoilMoisture != nil && s.Temperature != nil && s.Humidity != nil
}
