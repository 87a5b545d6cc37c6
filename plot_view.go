package mirrorplot

import (
	"context"
	"errors"
	"runtime/trace"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var errUnmounted = errors.New("plot view unmounted before load finished")

// What a renderer needs to draw the plot. Err is the load error, if any; the
// series are empty in that case.
type PlotSnapshot struct {
	Series []Series
	Layout Layout
	Err    error
}

// PlotView owns the display state of one plot. Mount runs the loader exactly
// once and replaces the series wholesale when it succeeds. On failure the
// series stay empty and the error is kept for Err.
type PlotView struct {
	loader Loader
	layout Layout

	mutex sync.Mutex
	wg    sync.WaitGroup

	mounted   bool
	unmounted bool
	cancel    context.CancelFunc

	// Set once the load goroutine has written data and err. Readers that see
	// true can read both without racing the load.
	loadEnded atomic.Bool

	data []Series
	err  error

	// Channels from open websockets waiting for the load to end. Each gets
	// exactly one snapshot, so a buffer of one is enough to never block.
	subscribers []chan<- PlotSnapshot

	logger logrus.FieldLogger
}

func NewPlotView(loader Loader, layout Layout) *PlotView {
	return &PlotView{
		loader: loader,
		layout: layout,
		data:   []Series{},
		logger: logrus.WithFields(logrus.Fields{"tag": "PlotView", "locator": loader.Locator()}),
	}
}

// Starts the one load of this view. Calling Mount again is a no-op.
func (v *PlotView) Mount(ctx context.Context) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	if v.mounted {
		v.logger.Warn("plot view already mounted, ignoring")
		return
	}
	v.mounted = true

	ctx, v.cancel = context.WithCancel(ctx)

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		v.load(ctx)
	}()
}

// Cancels an in-flight load and drops the loaded series. A load that
// completes after this never updates the view.
func (v *PlotView) Unmount() {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	v.unmounted = true
	v.data = []Series{}
	if v.cancel != nil {
		v.cancel()
	}
}

func (v *PlotView) Wait() {
	v.wg.Wait()
}

func (v *PlotView) load(ctx context.Context) {
	traceCtx, task := trace.NewTask(ctx, "PlotViewLoad")
	defer task.End()

	v.logger.Info("calling fetch data")

	var dataset Dataset
	var err error
	trace.WithRegion(traceCtx, "LoaderLoad", func() {
		dataset, err = v.loader.Load(traceCtx)
	})

	var series []Series
	if err != nil {
		v.logger.WithError(err).Error("error fetching plot data")
	} else {
		trace.WithRegion(traceCtx, "BuildSeries", func() {
			series = BuildSeries(dataset)
		})
		v.logger.WithFields(logrus.Fields{
			"numRecords": len(dataset),
			"numSeries":  len(series),
		}).Info("built plot data")
	}

	trace.WithRegion(traceCtx, "Lock", v.mutex.Lock)
	defer v.mutex.Unlock()

	if v.unmounted || ctx.Err() != nil {
		v.logger.Info("plot view unmounted, discarding load result")
		v.err = errUnmounted
	} else if err != nil {
		v.err = err
	} else {
		v.data = series
	}

	// Everything read after loadEnded must be written before this.
	v.loadEnded.Store(true)

	snapshot := v.snapshotLocked()
	for _, c := range v.subscribers {
		c <- snapshot
	}
	v.subscribers = nil
}

// The current series. Empty until a load succeeds. The returned slice is never
// modified by the view afterwards.
func (v *PlotView) Data() []Series {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	return v.data
}

// The load error, nil while loading or after a successful load.
func (v *PlotView) Err() error {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	return v.err
}

func (v *PlotView) LoadEnded() bool {
	return v.loadEnded.Load()
}

func (v *PlotView) Layout() Layout {
	return v.layout
}

func (v *PlotView) Snapshot() PlotSnapshot {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	return v.snapshotLocked()
}

func (v *PlotView) snapshotLocked() PlotSnapshot {
	return PlotSnapshot{
		Series: v.data,
		Layout: v.layout,
		Err:    v.err,
	}
}

// Registers c to receive the snapshot once the load ends. If it already ended,
// the snapshot is sent right away. c must have room for one value.
func (v *PlotView) Subscribe(ctx context.Context, c chan<- PlotSnapshot) {
	traceCtx, task := trace.NewTask(ctx, "Subscribe")
	defer task.End()

	trace.WithRegion(traceCtx, "Lock", v.mutex.Lock)
	defer v.mutex.Unlock()

	if v.loadEnded.Load() {
		c <- v.snapshotLocked()
		return
	}

	v.subscribers = append(v.subscribers, c)
	v.logger.WithField("numSubscribers", len(v.subscribers)).Debug("registered subscriber")
}

// Removes c if it is still waiting. Safe to call after the snapshot was
// delivered.
func (v *PlotView) Unsubscribe(ctx context.Context, c chan<- PlotSnapshot) {
	traceCtx, task := trace.NewTask(ctx, "Unsubscribe")
	defer task.End()

	trace.WithRegion(traceCtx, "Lock", v.mutex.Lock)
	defer v.mutex.Unlock()

	v.subscribers = Filter(v.subscribers, func(channel chan<- PlotSnapshot) bool {
		return channel != c
	})
}
