/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	gamesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "truthdare_games_created_total",
			Help: "Games opened since start",
		},
	)
	gamesOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "truthdare_games_open",
			Help: "Games currently held in memory",
		},
	)
	gamesStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "truthdare_setups_total",
			Help: "Rosters submitted from the setup screen",
		},
	)
	challengesFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "truthdare_challenges_total",
			Help: "Challenges finished, by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)
	rosterRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "truthdare_roster_rejected_total",
			Help: "Roster changes refused, by command",
		},
		[]string{"command"},
	)
)

func init() {
	prometheus.MustRegister(gamesCreated)
	prometheus.MustRegister(gamesOpen)
	prometheus.MustRegister(gamesStarted)
	prometheus.MustRegister(challengesFinished)
	prometheus.MustRegister(rosterRejected)
}

func registerMetricsHandler(cfg *Config, mux *httprouter.Router) {
	mux.Handler(http.MethodGet, cfg.prefix+"/metrics", promhttp.Handler())

	logf(cfg, "SERVE: Registered metrics handler at %s/metrics", cfg.prefix)
}
