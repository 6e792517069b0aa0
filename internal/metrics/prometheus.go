package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhooksReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "miles_webhooks_received_total",
		Help: "Total number of webhook deliveries received, accepted or not.",
	})

	WebhooksRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "miles_webhooks_rejected_total",
		Help: "Total number of webhook deliveries rejected, labelled by reason.",
	}, []string{"reason"})

	EventsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "miles_events_stored_total",
		Help: "Total number of events successfully upserted into the store.",
	})

	StoreErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "miles_store_errors_total",
		Help: "Total number of swallowed persistence errors during webhook handling.",
	})

	BroadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "miles_broadcasts_total",
		Help: "Total number of events broadcast to live subscribers.",
	})

	StreamSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "miles_stream_subscribers",
		Help: "Number of currently open live stream connections.",
	})

	ImageCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "miles_image_cache_hits_total",
		Help: "Total number of image requests served from the in-memory cache.",
	})

	ImageCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "miles_image_cache_misses_total",
		Help: "Total number of image requests that required an origin fetch.",
	})

	ImageFetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "miles_image_fetch_errors_total",
		Help: "Total number of failed origin image fetches.",
	})
)
