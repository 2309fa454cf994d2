// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/fittrack/internal/config"
	"github.com/relabs-tech/fittrack/internal/metrics"
	"github.com/relabs-tech/fittrack/internal/pipeline"
	"github.com/relabs-tech/fittrack/internal/timeutil"
	"github.com/relabs-tech/fittrack/internal/transport"
)

// StatusSource exposes the latest cycle snapshot.
type StatusSource interface {
	Status() pipeline.Status
}

// ActivityResponse is the body of GET /api/activity.
type ActivityResponse struct {
	Activity  string    `json:"activity"`
	Value     int       `json:"value"`
	Decision  string    `json:"decision"`
	Smoothed  string    `json:"smoothed"`
	Anomaly   float64   `json:"anomaly"`
	Cycles    int       `json:"cycles"`
	Failures  int       `json:"failures"`
	LastError string    `json:"last_error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewStatusHandler routes /api/activity, /health, /metrics and, when hub is
// set, the /ws activity stream.
func NewStatusHandler(src StatusSource, hub *transport.Hub, m *metrics.Metrics) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/activity", func(w http.ResponseWriter, _ *http.Request) {
		st := src.Status()
		if st.Cycles == 0 && st.Failures == 0 {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}

		resp := ActivityResponse{
			Activity:  st.Published.String(),
			Value:     int(st.Published),
			Decision:  st.Decision.String(),
			Smoothed:  st.Smoothed.String(),
			Anomaly:   st.Anomaly,
			Cycles:    st.Cycles,
			Failures:  st.Failures,
			LastError: st.LastError,
			UpdatedAt: st.UpdatedAt,
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Warn("web: json encode error", "err", err)
		}
	}).Methods(http.MethodGet)

	if m != nil {
		r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	}
	if hub != nil {
		r.Handle("/ws", hub)
	}
	return r
}

// NewRelayHandler serves the activity relayed into hub: /api/activity
// returns the last message, /ws streams new ones.
func NewRelayHandler(hub *transport.Hub) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/activity", func(w http.ResponseWriter, _ *http.Request) {
		msg, ok := hub.Last()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(msg); err != nil {
			slog.Warn("web: json encode error", "err", err)
		}
	}).Methods(http.MethodGet)
	r.Handle("/ws", hub)
	return r
}

// RunWeb subscribes to the MQTT activity topic and serves it over HTTP
// until ctx is done. It runs apart from the tracker, e.g. on a gateway.
func RunWeb(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	hub := transport.NewHub(timeutil.RealClock{}, logger)

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID("fittrack-web-" + uuid.NewString()[:8])

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	logger.Info("web: connected to MQTT broker", "broker", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicActivity, 1, func(_ mqtt.Client, msg mqtt.Message) {
		var m transport.Message
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			logger.Warn("web: MQTT payload unmarshal error", "err", err)
			return
		}
		hub.Broadcast(m)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	logger.Info("web: subscribed", "topic", cfg.TopicActivity)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.WebServerPort),
		Handler:           NewRelayHandler(hub),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("web: server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
