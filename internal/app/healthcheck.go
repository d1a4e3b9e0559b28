package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/specialistvlad/tricore/internal/ctxlog"
	"github.com/specialistvlad/tricore/internal/kernel"
)

// KernelStatus is one entry of the /kernels response.
type KernelStatus struct {
	Role    string   `json:"role"`
	State   string   `json:"state"`
	Exit    string   `json:"exit,omitempty"`
	Modules []string `json:"modules"`
}

// StatusReport is the /kernels response body.
type StatusReport struct {
	RunID   string         `json:"run_id"`
	Role    string         `json:"role"`
	Kernels []KernelStatus `json:"kernels"`
}

// Status reports the state of every kernel.
func (a *App) Status() StatusReport {
	report := StatusReport{RunID: a.RunID(), Role: a.model.Runtime.Role, Kernels: []KernelStatus{}}
	for _, k := range a.Kernels() {
		ks := KernelStatus{
			Role:    k.Role().String(),
			State:   k.State().String(),
			Modules: k.LoadOrder(),
		}
		if ks.Modules == nil {
			ks.Modules = []string{}
		}
		if k.State() == kernel.Terminated {
			ks.Exit = k.Exit().String()
		}
		report.Kernels = append(report.Kernels, ks)
	}
	return report
}

// HealthHandler serves /health and /kernels.
func (a *App) HealthHandler(ctx context.Context) http.Handler {
	logger := ctxlog.FromContext(ctx)
	router := httprouter.New()

	router.GET("/health", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK")
	})

	router.GET("/kernels", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(a.Status()); err != nil {
			logger.Warn("Writing kernel status failed.", "error", err)
		}
	})
	return router
}

// startHealthcheckServer runs the status server in the background.
func (a *App) startHealthcheckServer(ctx context.Context, port int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Configuring health check server.")

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           a.HealthHandler(ctx),
		ReadHeaderTimeout: 5 * time.Second,
	}
	a.mu.Lock()
	a.httpServer = srv
	a.mu.Unlock()

	go func() {
		logger.Info("Health check server starting.", "address", fmt.Sprintf("http://localhost%s/health", srv.Addr))
		// ListenAndServe returns ErrServerClosed on graceful shutdown.
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health check server failed unexpectedly.", "error", err)
		}
	}()
}

func (a *App) closeHealthcheckServer(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	a.mu.Lock()
	srv := a.httpServer
	a.httpServer = nil
	a.mu.Unlock()
	if srv == nil {
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Health check server shutdown failed.", "error", err)
		return
	}
	logger.Debug("Health check server shut down gracefully.")
}
