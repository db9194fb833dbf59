package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/s21tools/gos21/internal/config"
	"github.com/s21tools/gos21/internal/homeassistant"
	"github.com/s21tools/gos21/internal/metrics"
	"github.com/s21tools/gos21/modbustcp"
	"github.com/s21tools/gos21/s21"
)

var flagConfig = flag.String("config", "config.yaml", "Path to bridge configuration")

func main() {
	flag.Parse()

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	transport, err := modbustcp.New(modbustcp.Config{
		Host:    cfg.Modbus.Host,
		Port:    cfg.Modbus.Port,
		UnitID:  cfg.Modbus.UnitID,
		Timeout: cfg.Modbus.Timeout(),
	})
	if err != nil {
		log.Fatalf("Failed to create transport: %v", err)
	}

	var link s21.Transport = transport
	link = modbustcp.WithRetry(link, modbustcp.RetryConfig{MaxRetries: cfg.Modbus.MaxRetries})
	link = modbustcp.WithBreaker(link, "s21", cfg.Modbus.BreakerFailures, cfg.Modbus.BreakerCooldown())

	client := s21.NewClient(link)
	if err := client.Connect(ctx); err != nil {
		log.Fatalf("Failed to connect to %s:%d: %v", cfg.Modbus.Host, cfg.Modbus.Port, err)
	}
	defer client.Close()

	metrics.Register()
	http.Handle("/metrics", promhttp.Handler())
	httpAddr := fmt.Sprintf(":%d", cfg.Bridge.HTTPPort)
	go func() {
		log.Printf("Starting HTTP server on %s", httpAddr)
		if err := http.ListenAndServe(httpAddr, nil); err != nil {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Receiving on the nil channel blocks forever, so with MQTT disabled the
	// select below degenerates to the plain poll loop.
	var ha *homeassistant.Bridge
	var commands <-chan homeassistant.Command
	if cfg.MQTT.Broker != "" {
		ha = homeassistant.NewBridge(&cfg.MQTT, &cfg.HomeAssistant, client)
		if err := ha.Connect(ctx); err != nil {
			log.Fatalf("Failed to connect to MQTT broker: %v", err)
		}
		defer ha.Disconnect()
		commands = ha.Commands()
	}

	pollOnce := func() {
		st, err := client.Poll(ctx)
		if err != nil {
			metrics.PollFailed()
			log.Printf("Poll failed: %v", err)
			return
		}
		metrics.Update(st)
		if ha != nil {
			if err := ha.PublishState(st); err != nil {
				log.Printf("State publish failed: %v", err)
			}
		}
		log.Printf("Poll complete: power=%t mode=%s fan=%s target=%d°C supply=%.1f°C",
			st.Power, st.HVACMode, st.FanMode, st.TargetTemperature, st.CurrentTemperature)
	}

	// First poll before announcing the entity so discovery carries the
	// firmware version and the unit's real fan levels.
	pollOnce()
	if ha != nil {
		if err := ha.PublishDiscovery(client.State()); err != nil {
			log.Printf("Discovery publish failed: %v", err)
		}
	}

	// The client is not safe for concurrent use; polls and MQTT commands are
	// both applied here, on this goroutine.
	ticker := time.NewTicker(cfg.Bridge.PollInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("Shutting down")
			return
		case cmd := <-commands:
			cmdCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := cmd.Apply(cmdCtx)
			cancel()
			if err != nil {
				log.Printf("Command %s=%q failed: %v", cmd.Name, cmd.Payload, err)
				continue
			}
			log.Printf("Command %s=%q applied", cmd.Name, cmd.Payload)
			pollOnce()
		case <-ticker.C:
			pollOnce()
		}
	}
}
