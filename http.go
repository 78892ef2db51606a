package vhkb

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/brutella/hap/log"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type status struct {
	Active        bool `json:"active"`
	RotationSpeed int  `json:"rotationSpeed"`
	Timer         int  `json:"timer"`
}

// Router serves the banner, a live status read, and the metrics.
func Router(a *Adapter, g prometheus.Gatherer) http.Handler {
	router := chi.NewRouter()
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Ventilation HomeKit Bridge"))
	})
	router.Get("/status", statusHandler(a))
	router.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return router
}

func statusHandler(a *Adapter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var s status
		var err error

		if s.Active, err = a.GetActive(r.Context()); err != nil {
			statusError(w, err)
			return
		}
		if s.RotationSpeed, err = a.GetRotationSpeed(r.Context()); err != nil {
			statusError(w, err)
			return
		}
		s.Timer = a.GetTimer(r.Context())

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := json.NewEncoder(w).Encode(s); err != nil {
			log.Info.Println(err.Error())
		}
	}
}

func statusError(w http.ResponseWriter, err error) {
	log.Info.Println(err.Error())
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusBadGateway)
	json.NewEncoder(w).Encode(map[string]string{"status": err.Error()})
}

// HTTPServer runs the status service until ctx is done
func HTTPServer(ctx context.Context, addr string, handler http.Handler) {
	srv := &http.Server{
		Handler:      handler,
		Addr:         addr,
		WriteTimeout: 75 * time.Second, // /status can wait out three device timeouts
		ReadTimeout:  15 * time.Second,
	}

	log.Info.Printf("starting http service at %s", addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Info.Println(err.Error())
		}
	}()
	<-ctx.Done()
	log.Info.Printf("stopping http service")

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(sctx)
}
