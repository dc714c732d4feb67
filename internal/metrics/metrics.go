package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultSuccess           = "success"
	ResultNotFound          = "not_found"
	ResultInsufficientStock = "insufficient_stock"
	ResultAlreadyAttributed = "already_attributed"
	ResultError             = "error"
)

var (
	Attributions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ppe_attributions_total",
		Help: "Attribution attempts by result.",
	}, []string{"result"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ppe_notifications_total",
		Help: "Notifications written by type.",
	}, []string{"type"})

	NotificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ppe_notification_failures_total",
		Help: "Notification writes that failed after an attribution committed.",
	})

	StockUnitsAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ppe_stock_units_added_total",
		Help: "Units received into stock.",
	})

	SheetsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ppe_sheets_generated_total",
		Help: "Attribution sheets rendered.",
	})
)

// Handler exposes the default registry on a fiber route.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
