// Package influx mirrors accepted sensor records into an InfluxDB bucket.
package influx

import (
	"context"
	"fmt"

	"greenhouse_control/internal/models"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

const (
	measurementMoisture = "soil_moisture"
	measurementClimate  = "climate"
)

type Mirror struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
}

func NewMirror(url, token, org, bucket string) *Mirror {
	client := influxdb2.NewClient(url, token)
	return &Mirror{
		client: client,
		write:  client.WriteAPIBlocking(org, bucket),
	}
}

func (m *Mirror) WriteMoisture(ctx context.Context, rec models.MoistureRecord) error {
	p := influxdb2.NewPointWithMeasurement(measurementMoisture).
		AddTag("sensor_id", rec.SensorID).
		AddField("soil_moisture", rec.SoilMoisture).
		SetTime(rec.Timestamp)
	if err := m.write.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("influx write moisture for %q: %w", rec.SensorID, err)
	}
	return nil
}

func (m *Mirror) WriteClimate(ctx context.Context, rec models.ClimateRecord) error {
	p := influxdb2.NewPointWithMeasurement(measurementClimate).
		AddTag("sensor_id", rec.SensorID).
		AddField("temperature", rec.Temperature).
		AddField("humidity", rec.Humidity).
		SetTime(rec.Timestamp)
	if err := m.write.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("influx write climate for %q: %w", rec.SensorID, err)
	}
	return nil
}

func (m *Mirror) Close() {
	m.client.Close()
}
