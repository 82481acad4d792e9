package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("hushd")

var messagesChecked = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "hushd_messages_checked",
	Help: "Number of messages checked, by transport and outcome",
}, []string{"transport", "outcome"})

var gatewayConnections = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "hushd_gateway_connections",
	Help: "Number of currently connected websocket gateway clients",
})

var gatewayBroadcasts = promauto.NewCounter(prometheus.CounterOpts{
	Name: "hushd_gateway_broadcasts",
	Help: "Number of accepted messages broadcast to gateway clients",
})

var gatewayDroppedClients = promauto.NewCounter(prometheus.CounterOpts{
	Name: "hushd_gateway_dropped_clients",
	Help: "Number of gateway clients disconnected for falling behind",
})
