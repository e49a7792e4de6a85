// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.13
//

package sink

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/mkhts/gopvt"
)

// Influx writes one point per solution to an InfluxDB v2 bucket
type Influx struct {
	client      influxdb2.Client
	write       api.WriteAPIBlocking
	measurement string
	runID       string
}

func NewInflux(url, token, org, bucket, measurement, runID string) *Influx {
	client := influxdb2.NewClient(url, token)
	return &Influx{
		client:      client,
		write:       client.WriteAPIBlocking(org, bucket),
		measurement: measurement,
		runID:       runID,
	}
}

// Write sends the solution stamped with its UTC epoch
func (i *Influx) Write(ctx context.Context, t gopvt.GTime, sol *gopvt.Solution) error {
	p := influxdb2.NewPointWithMeasurement(i.measurement).
		AddTag("run", i.runID).
		AddTag("type", sol.Type.String()).
		AddField("clock_bias", sol.ClockBias).
		AddField("gdop", sol.Dop[gopvt.GDOP]).
		AddField("pdop", sol.Dop[gopvt.PDOP]).
		AddField("ns", len(sol.SV)).
		AddField("iter", sol.Iter).
		SetTime(t.UTC())
	if sol.Type != gopvt.TimeOnly {
		llh := sol.LLH()
		p.AddField("latitude", gopvt.ToDeg(llh.Lat)).
			AddField("longitude", gopvt.ToDeg(llh.Lon)).
			AddField("height", llh.Hei).
			AddField("hdop", sol.Dop[gopvt.HDOP]).
			AddField("vdop", sol.Dop[gopvt.VDOP])
	}
	if err := i.write.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("influx write at %s: %w", t, err)
	}
	return nil
}

func (i *Influx) Close() error {
	i.client.Close()
	return nil
}
