// Package server serves the live views of a running simulation: the index page, its
// websocket of element updates, the raw field layers as JSON, and prometheus metrics.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"pherosim/catalog"
	"pherosim/server/fastview"
	"pherosim/server/root_view"
	"pherosim/sim"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownGracePeriod = 5 * time.Second

// FieldReader is the part of the field mirror served as JSON.
type FieldReader interface {
	Tracks(typ catalog.Type, owner int) bool
	Peak(typ catalog.Type, owner int) float64
	Snapshot(typ catalog.Type, owner int) [][]float64
}

// Layer is the JSON form of one field layer.
type Layer struct {
	Substance catalog.Type `json:"substance"`
	Owner     int          `json:"owner"`
	Peak      float64      `json:"peak"`
	// Values are indexed [y][x].
	Values [][]float64 `json:"values"`
}

// Server serves one page whose views are pushed over a websocket. The views' update
// channel has a single reader, so concurrent browsers share the stream of updates.
type Server struct {
	addr        string
	rootView    *root_view.RootView
	field       FieldReader
	publishRate float64
	logger      *slog.Logger
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithPublishRate caps the updates per second written to each browser.
func WithPublishRate(perSecond float64) Option {
	return func(s *Server) {
		s.publishRate = perSecond
	}
}

// NewServer builds the views over the simulation's snapshots. initial is rendered into the
// page served to new browsers.
func NewServer(
	ctx context.Context,
	addr string,
	initial sim.Snapshot,
	snapshots <-chan sim.Snapshot,
	field FieldReader,
	opts ...Option,
) (*Server, error) {
	rootView, err := root_view.NewRootView(ctx, initial, snapshots)
	if err != nil {
		return nil, err
	}
	s := &Server{
		addr:        addr,
		rootView:    rootView,
		field:       field,
		publishRate: fastview.DefaultPublishRate,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler routes the server's endpoints.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/", s.serveIndex).Methods(http.MethodGet)
	router.HandleFunc("/ws", s.serveWebsocket)
	router.HandleFunc("/field/{substance}/{owner:[0-9]+}", s.serveField).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler())
	return router
}

// Serve listens until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("serving", slog.String("addr", s.addr))
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// serveWebsocket publishes view updates to the browser until it disconnects.
func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	cli, err := fastview.NewClient(
		s.rootView.Updates(), w, r,
		fastview.WithPublishRate(s.publishRate),
		fastview.WithClientLogger(s.logger))
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	if err = cli.Sync(r.Context()); err != nil {
		s.logger.Warn("client sync ended", slog.String("client", cli.ID()), slog.String("error", err.Error()))
	}
}

// serveField writes one field layer as JSON.
func (s *Server) serveField(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	typ := catalog.Type(vars["substance"])
	owner, err := strconv.Atoi(vars["owner"])
	if err != nil {
		http.Error(w, "bad owner", http.StatusBadRequest)
		return
	}
	if !s.field.Tracks(typ, owner) {
		http.Error(w, fmt.Sprintf("no field for %s/%d", typ, owner), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(Layer{
		Substance: typ,
		Owner:     owner,
		Peak:      s.field.Peak(typ, owner),
		Values:    s.field.Snapshot(typ, owner),
	})
	if err != nil {
		s.logger.Warn("field encode failed", slog.String("error", err.Error()))
	}
}

// serveIndex renders the page with the initial frame.
func (s *Server) serveIndex(w http.ResponseWriter, _ *http.Request) {
	var page bytes.Buffer
	if err := renderTemplate(&page, s.rootView, s.rootView.Initial()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	_, _ = page.WriteTo(w)
}

func renderTemplate(
	w io.Writer,
	vc fastview.ViewComponent,
	data interface{},
) (err error) {
	t := template.New("index.html")
	var tname string
	if tname, err = vc.Parse(t); err != nil {
		return
	}
	if _, err = t.Parse(`{{ template "` + tname + `" . }}`); err != nil {
		return
	}
	return t.Execute(w, data)
}
