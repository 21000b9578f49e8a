package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/gridbench/gridbench/internal/config"
	"github.com/gridbench/gridbench/internal/generate"
)

// Publishes one generated day of readings over MQTT at an accelerated
// pace. This is the real-time ingest path; the bulk loader bypasses it.
func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	meters := pflag.Int("meters", 10, "number of meters to simulate")
	interval := pflag.Int("interval", 5, "sampling interval in minutes")
	pace := pflag.Duration("pace", 500*time.Millisecond, "delay between published readings")
	seed := pflag.Int64("seed", 0, "PRNG seed (0 derives one from the clock)")
	pflag.Parse()

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	step := time.Duration(*interval) * time.Minute
	stream, err := generate.New(generate.Config{
		Meters:          *meters,
		Days:            1,
		IntervalMinutes: *interval,
		StartDate:       time.Now().UTC().Truncate(step).AddDate(0, 0, -1),
		Seed:            *seed,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	opts := mqtt.NewClientOptions().AddBroker(config.MQTTBroker())
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	var published int64
	for r, ok := stream.Next(); ok; r, ok = stream.Next() {
		payload, err := json.Marshal(r)
		if err != nil {
			log.Fatal().Err(err).Msg("marshal reading")
		}
		token := client.Publish("energy/readings", 0, false, payload)
		token.Wait()
		if token.Error() != nil {
			log.Fatal().Err(token.Error()).Msg("mqtt publish")
		}
		published++
		time.Sleep(*pace)
	}
	log.Info().Int64("readings", published).Msg("simulation done")
}
