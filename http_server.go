package mirrorplot

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"nhooyr.io/websocket"
)

const shutdownTimeout = time.Second

// The JSON body of /plot. Data and Layout are what the plotting widget takes.
type PlotResponse struct {
	Data   []Series `json:"data"`
	Layout Layout   `json:"layout"`
}

type HttpServer struct {
	view   *PlotView
	host   string
	port   uint16
	router *chi.Mux
	logger logrus.FieldLogger

	// Open the system browser once listening.
	OpenBrowser bool
}

func NewHttpServer(view *PlotView, host string, port uint16) *HttpServer {
	s := &HttpServer{
		view:   view,
		host:   host,
		port:   port,
		router: chi.NewRouter(),
		logger: logrus.WithField("tag", "HttpServer"),
	}

	s.router.Get("/plot", s.handlePlot)
	s.router.Get("/layout", s.handleLayout)
	s.router.Get("/errors", s.handleErrors)
	s.router.Get("/ws", s.handleWebSocket)
	s.router.Handle("/*", http.FileServer(http.FS(webuiFS())))

	return s
}

func (s *HttpServer) Handler() http.Handler {
	return s.router
}

func (s *HttpServer) Addr() string {
	return net.JoinHostPort(s.host, strconv.Itoa(int(s.port)))
}

// Holds the request until the load has ended, so an empty data array always
// means the load failed and never that it is still running.
func (s *HttpServer) handlePlot(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	c := make(chan PlotSnapshot, 1)
	s.view.Subscribe(ctx, c)

	select {
	case snapshot := <-c:
		writeJSON(w, PlotResponse{Data: snapshot.Series, Layout: snapshot.Layout})
	case <-ctx.Done():
		s.view.Unsubscribe(context.Background(), c)
		s.logger.WithError(ctx.Err()).Debug("plot request ended before the load")
	}
}

func (s *HttpServer) handleLayout(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, s.view.Layout())
}

// 204 while the load is still running, otherwise the load result.
func (s *HttpServer) handleErrors(w http.ResponseWriter, req *http.Request) {
	if !s.view.LoadEnded() {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, NewLoadEndMessage(s.view.Err()))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

// Waits for the load to end, then sends the snapshot as binary messages and
// closes normally.
func (s *HttpServer) handleWebSocket(w http.ResponseWriter, req *http.Request) {
	c, err := websocket.Accept(w, req, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.WithError(err).Warn("failed to accept new websocket connection")
		return
	}

	// Nothing is read from the client. CloseRead cancels ctx when it goes away.
	ctx := c.CloseRead(req.Context())

	channel := make(chan PlotSnapshot, 1)
	s.view.Subscribe(ctx, channel)
	defer s.view.Unsubscribe(ctx, channel)

	var snapshot PlotSnapshot
	select {
	case snapshot = <-channel:
	case <-ctx.Done():
		s.logger.Info("client closed connection before plot data loaded")
		c.Close(websocket.StatusNormalClosure, "")
		return
	}

	msgs, err := EncodeSnapshot(snapshot)
	if err != nil {
		s.logger.WithError(err).Error("failed to encode plot snapshot")
		c.Close(websocket.StatusInternalError, "encode failed")
		return
	}

	for _, msg := range msgs {
		if err := c.Write(ctx, websocket.MessageBinary, msg); err != nil {
			s.logger.WithError(err).Warn("websocket write failed and closed")
			return
		}
	}

	c.Close(websocket.StatusNormalClosure, "")
}

// Serves until ctx is done, then shuts down gracefully.
func (s *HttpServer) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return err
	}

	return s.Serve(ctx, listener)
}

func (s *HttpServer) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{Handler: s.router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	url := "http://" + listener.Addr().String()
	s.logger.Infof("starting HTTP server at %s", url)
	if s.OpenBrowser {
		openBrowser(url)
	}

	err := srv.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
