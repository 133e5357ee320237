package transfer

import "github.com/prometheus/client_golang/prometheus"

var (
	TransfersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_file_transfers_total",
		Help: "File transfers by outcome (admitted, rejected, completed, failed)",
	}, []string{"status"})

	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_upload_queue_depth",
		Help: "Transfers currently waiting in the upload queue",
	})

	InFlightUploads = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_uploads_in_flight",
		Help: "Transfers currently being processed",
	})
)

func init() {
	prometheus.MustRegister(TransfersTotal)
	prometheus.MustRegister(QueueDepth)
	prometheus.MustRegister(InFlightUploads)
}
