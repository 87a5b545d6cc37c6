package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"

	"github.com/cactusdynamics/mirrorplot"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var version = "dev"

type rootOptions struct {
	data     string
	logLevel string
}

func newRootCommand(stdout io.Writer) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "mirrorplot",
		Short:         "Plot light bouncing between two translating mirrors",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(level)
			return nil
		},
	}

	root.SetOut(stdout)
	root.PersistentFlags().StringVarP(&opts.data, "data", "d", "data.json", "path or http(s) URL of the simulation output")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newServeCommand(opts),
		newRenderCommand(opts),
		newASCIICommand(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print the mirrorplot version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "mirrorplot %s\n", version)
			},
		},
	)

	return root
}

// Loads the data once and returns the view after the load ended. A failed
// load is logged by the view and leaves the series empty.
func loadView(ctx context.Context, locator string) *mirrorplot.PlotView {
	view := mirrorplot.NewPlotView(mirrorplot.NewLoader(locator, http.DefaultClient), mirrorplot.DefaultLayout())
	view.Mount(ctx)
	view.Wait()
	return view
}

func newServeCommand(root *rootOptions) *cobra.Command {
	var host string
	var port uint16
	var open bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the plot in the browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			view := mirrorplot.NewPlotView(mirrorplot.NewLoader(root.data, http.DefaultClient), mirrorplot.DefaultLayout())
			view.Mount(ctx)
			defer view.Wait()
			defer view.Unmount()

			server := mirrorplot.NewHttpServer(view, host, port)
			server.OpenBrowser = open
			return server.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "host to listen on")
	cmd.Flags().Uint16VarP(&port, "port", "p", 5274, "port to listen on")
	cmd.Flags().BoolVar(&open, "open", false, "open the plot in the system browser")

	return cmd
}

func newRenderCommand(root *rootOptions) *cobra.Command {
	var out string
	var format string
	var width, height int

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the plot to a PNG or SVG file",
		RunE: func(cmd *cobra.Command, args []string) error {
			view := loadView(cmd.Context(), root.data)

			chartFormat := mirrorplot.ChartFormat(format)
			if format == "" {
				chartFormat = mirrorplot.ChartFormatFromPath(out)
			}
			if chartFormat != mirrorplot.ChartPNG && chartFormat != mirrorplot.ChartSVG {
				return fmt.Errorf("unknown format %q, want png or svg", format)
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}

			err = mirrorplot.RenderChart(f, view.Data(), view.Layout(), mirrorplot.ChartOptions{
				Format: chartFormat,
				Width:  width,
				Height: height,
			})
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				return err
			}

			logrus.WithFields(logrus.Fields{
				"out":       out,
				"numSeries": len(view.Data()),
			}).Info("rendered plot")
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "plot.png", "output file")
	cmd.Flags().StringVar(&format, "format", "", "png or svg (default: from the output file extension)")
	cmd.Flags().IntVar(&width, "width", 1024, "image width in pixels")
	cmd.Flags().IntVar(&height, "height", 768, "image height in pixels")

	return cmd
}

func newASCIICommand(root *rootOptions) *cobra.Command {
	var width, height int

	cmd := &cobra.Command{
		Use:   "ascii",
		Short: "Print the plot in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			view := loadView(cmd.Context(), root.data)
			return mirrorplot.RenderASCII(cmd.OutOrStdout(), view.Data(), view.Layout(), mirrorplot.ASCIIOptions{
				Height: height,
				Width:  width,
			})
		},
	}

	cmd.Flags().IntVar(&height, "height", 20, "plot height in rows")
	cmd.Flags().IntVar(&width, "width", 0, "plot width in columns (default: fit the data)")

	return cmd
}

func main() {
	logrus.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCommand(os.Stdout).ExecuteContext(ctx); err != nil {
		logrus.WithError(err).Error("mirrorplot failed")
		os.Exit(1)
	}
}
