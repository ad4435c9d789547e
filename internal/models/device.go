package models

// DeviceType enumerates the hardware kinds known to the catalog.
type DeviceType string

const (
	DeviceMoistureSensor DeviceType = "MOISTURE_SENSOR"
	DeviceDHT20Sensor    DeviceType = "DHT20_SENSOR"
	DevicePump           DeviceType = "PUMP"
	DeviceFan            DeviceType = "FAN"
)

// DeviceStatus is the catalog activation flag.
type DeviceStatus string

const (
	StatusActive   DeviceStatus = "ACTIVE"
	StatusInactive DeviceStatus = "INACTIVE"
)

// Device is a row of the device catalog.
type Device struct {
	ID         string       `json:"device_id"`
	Name       string       `json:"name"`
	Type       DeviceType   `json:"type"`
	Status     DeviceStatus `json:"status"`
	LocationID string       `json:"location_id"`
	FeedKey    string       `json:"feed_key"` // base feed key; DHT20 derives two channels from it
}

// IsSensor reports whether the device produces telemetry.
func (d Device) IsSensor() bool {
	return d.Type == DeviceMoistureSensor || d.Type == DeviceDHT20Sensor
}

// ActuatorKind is the closed set of devices the control loop can drive.
type ActuatorKind string

const (
	ActuatorPump ActuatorKind = "PUMP"
	ActuatorFan  ActuatorKind = "FAN"
)

// DeviceType maps the actuator kind to its catalog type.
func (k ActuatorKind) DeviceType() DeviceType {
	if k == ActuatorFan {
		return DeviceFan
	}
	return DevicePump
}
