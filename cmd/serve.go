package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/pulse-cli/internal/analytics"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only dashboard API",
	Long:  "Serves the analytics queries as a JSON API for dashboard frontends. No endpoint writes to the warehouse.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pool, err := pulsePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newServeMux(analytics.New(pool), cfg.Query.DefaultLimit),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// newServeMux wires the analytics service into the dashboard API routes.
func newServeMux(svc *analytics.Service, defaultLimit int) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /api/summary", func(w http.ResponseWriter, r *http.Request) {
		sum, err := svc.ExecutiveSummary(r.Context(), requestFilter(r, defaultLimit))
		respond(w, sum, err)
	})

	mux.HandleFunc("GET /api/states/top", func(w http.ResponseWriter, r *http.Request) {
		out, err := svc.TopStatesByTransactionAmount(r.Context(), requestFilter(r, defaultLimit))
		respond(w, out, err)
	})

	mux.HandleFunc("GET /api/types", func(w http.ResponseWriter, r *http.Request) {
		out, err := svc.TransactionTypeDistribution(r.Context(), requestFilter(r, defaultLimit))
		respond(w, out, err)
	})

	mux.HandleFunc("GET /api/trends", func(w http.ResponseWriter, r *http.Request) {
		f := requestFilter(r, defaultLimit)
		if f.Year == 0 {
			httpError(w, http.StatusBadRequest, "year is required")
			return
		}
		out, err := svc.QuarterlyTrends(r.Context(), f.Year)
		respond(w, out, err)
	})

	mux.HandleFunc("GET /api/districts/top", func(w http.ResponseWriter, r *http.Request) {
		out, err := svc.TopDistrictsByTransaction(r.Context(), requestFilter(r, defaultLimit))
		respond(w, out, err)
	})

	mux.HandleFunc("GET /api/engagement", func(w http.ResponseWriter, r *http.Request) {
		out, err := svc.UserEngagement(r.Context(), requestFilter(r, defaultLimit))
		respond(w, out, err)
	})

	mux.HandleFunc("GET /api/devices", func(w http.ResponseWriter, r *http.Request) {
		out, err := svc.DeviceBrandPopularity(r.Context(), requestFilter(r, defaultLimit))
		respond(w, out, err)
	})

	mux.HandleFunc("GET /api/growth", func(w http.ResponseWriter, r *http.Request) {
		users, err := svc.UserGrowth(r.Context())
		if err != nil {
			respond(w, nil, err)
			return
		}
		yoy, err := svc.YearOverYearGrowth(r.Context())
		respond(w, map[string]any{"users": users, "transactions": yoy}, err)
	})

	mux.HandleFunc("GET /api/insurance/states", func(w http.ResponseWriter, r *http.Request) {
		out, err := svc.InsuranceAdoptionByState(r.Context(), requestFilter(r, defaultLimit))
		respond(w, out, err)
	})

	mux.HandleFunc("GET /api/regions/{domain}/{dim}", func(w http.ResponseWriter, r *http.Request) {
		dim := analytics.RegionDim(r.PathValue("dim"))
		out, err := svc.TopRegions(r.Context(), r.PathValue("domain"), dim, requestFilter(r, defaultLimit))
		respond(w, out, err)
	})

	mux.HandleFunc("GET /api/table/{name}", func(w http.ResponseWriter, r *http.Request) {
		out, err := svc.FetchTable(r.Context(), r.PathValue("name"), requestFilter(r, defaultLimit))
		respond(w, out, err)
	})

	return mux
}

// requestFilter builds an analytics.Filter from query string parameters.
// Malformed numbers are treated as unset, matching the zero-value
// convention of the filter itself.
func requestFilter(r *http.Request, defaultLimit int) analytics.Filter {
	q := r.URL.Query()

	atoi := func(key string) int {
		n, err := strconv.Atoi(q.Get(key))
		if err != nil {
			return 0
		}
		return n
	}

	f := analytics.Filter{
		Year:    atoi("year"),
		Quarter: atoi("quarter"),
		State:   q.Get("state"),
		Limit:   atoi("limit"),
	}
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	return f
}

// respond writes a JSON payload or maps the error to a status code.
// Validation failures from the analytics layer surface as 400s; anything
// else is a 500 with the detail kept in the server log.
func respond(w http.ResponseWriter, payload any, err error) {
	if err != nil {
		if isBadRequest(err) {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		zap.L().Error("query failed", zap.Error(err))
		httpError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// isBadRequest reports whether the error is an input-validation failure
// rather than a store failure.
func isBadRequest(err error) bool {
	msg := err.Error()
	for _, marker := range []string{"invalid table name", "unknown domain", "unknown region dimension"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
