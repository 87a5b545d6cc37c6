package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"

	"github.com/cactusdynamics/mirrorplot"
	"github.com/sirupsen/logrus"
	"nhooyr.io/websocket"
)

var errLoadEnded = errors.New("load ended")

type Config struct {
	ServerURL string
	Output    io.Writer
	Logger    logrus.FieldLogger
}

// WSReader reads the plot from a mirrorplot server's /ws endpoint and writes
// every point as a CSV row.
type WSReader struct {
	config    Config
	csvWriter *csv.Writer

	// Set from the LOAD_END message.
	loadErr string
}

func NewWSReader(config Config) *WSReader {
	if config.Logger == nil {
		config.Logger = logrus.WithField("tag", "WSReader")
	}

	return &WSReader{
		config:    config,
		csvWriter: csv.NewWriter(config.Output),
	}
}

func wsURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"

	return u.String(), nil
}

// Reads until the server sends LOAD_END or closes. Returns an error if the
// server reported a failed load.
func (w *WSReader) Connect(ctx context.Context) error {
	endpoint, err := wsURL(w.config.ServerURL)
	if err != nil {
		return err
	}

	w.config.Logger.WithField("url", endpoint).Info("connecting to websocket")

	conn, _, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to websocket: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if err := w.csvWriter.Write([]string{"series", "name", "x", "y"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				w.config.Logger.Info("connection closed normally")
				break
			}
			w.config.Logger.WithError(err).Error("error reading message")
			break
		}

		if err := w.processMessage(data); err != nil {
			if err == errLoadEnded {
				break
			}
			w.config.Logger.WithError(err).Error("error processing message")
		}
	}

	w.csvWriter.Flush()
	if err := w.csvWriter.Error(); err != nil {
		return err
	}

	if w.loadErr != "" {
		return fmt.Errorf("server failed to load plot data: %s", w.loadErr)
	}

	return nil
}

func (w *WSReader) processMessage(data []byte) error {
	msg, err := mirrorplot.DecodeWSMessage(data)
	if err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}

	switch payload := msg.Payload.(type) {
	case mirrorplot.Layout:
		w.config.Logger.WithField("title", payload.Title).Debug("received layout")
	case mirrorplot.SeriesMessage:
		return w.writeSeries(payload)
	case mirrorplot.LoadEndMessage:
		if payload.Error {
			w.config.Logger.WithField("msg", payload.Msg).Error("plot data failed to load")
			w.loadErr = payload.Msg
		} else {
			w.config.Logger.Info("plot data received")
		}
		return errLoadEnded
	default:
		w.config.Logger.Warnf("unknown message type 0x%02x", msg.Header.Type)
	}

	return nil
}

func (w *WSReader) writeSeries(msg mirrorplot.SeriesMessage) error {
	index := strconv.FormatUint(uint64(msg.Index), 10)

	for i := range msg.X {
		row := []string{
			index,
			msg.Style.Name,
			strconv.FormatFloat(msg.X[i], 'g', -1, 64),
			strconv.FormatFloat(msg.Y[i], 'g', -1, 64),
		}
		if err := w.csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.csvWriter.Flush()
	return w.csvWriter.Error()
}

func main() {
	var serverURL = flag.String("url", "http://localhost:5274", "URL of the mirrorplot server")
	var logLevel = flag.String("log-level", "info", "log level")
	flag.Parse()

	logrus.SetOutput(os.Stderr)
	if level, err := logrus.ParseLevel(*logLevel); err == nil {
		logrus.SetLevel(level)
	}

	reader := NewWSReader(Config{
		ServerURL: *serverURL,
		Output:    os.Stdout,
	})

	if err := reader.Connect(context.Background()); err != nil {
		logrus.WithError(err).Error("failed to read plot")
		os.Exit(1)
	}
}
