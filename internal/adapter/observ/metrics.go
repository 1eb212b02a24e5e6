package observ

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ModeSync   = "sync"
	ModeAsync  = "async"
	ModeCLI    = "cli"
	ModeWorker = "worker"

	ResultOK    = "ok"
	ResultError = "error"
)

var (
	CartExports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookstore_cart_exports_total",
			Help: "Cart exports by mode (sync, async, worker, cli) and result",
		},
		[]string{"mode", "result"},
	)

	BooksIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookstore_books_ingested_total",
			Help: "Books consumed from the ingest topic by result",
		},
		[]string{"result"},
	)
)

func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

func RecordExport(mode string, err error) {
	CartExports.WithLabelValues(mode, Result(err)).Inc()
}
