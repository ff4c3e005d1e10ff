package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_submitted_total",
		Help: "Messages accepted into durable storage.",
	})
	MessagesDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_delivered_total",
		Help: "Messages advanced to the delivered status.",
	})
	MessagesRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_read_total",
		Help: "Messages advanced to the read status.",
	})
	PushesDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_pushes_delivered_total",
		Help: "Events pushed to a live connection.",
	})
	PushesQueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_pushes_queued_total",
		Help: "Events queued for replay because the user was offline.",
	})
	LiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_live_connections",
		Help: "Currently registered live connections.",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
