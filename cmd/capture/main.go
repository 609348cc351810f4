package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"depthrig/internal/bus"
	"depthrig/internal/config"
	"depthrig/internal/depth"
	"depthrig/internal/frame"
	"depthrig/internal/gpu"
	"depthrig/internal/pool"
	"depthrig/internal/readback"
	"depthrig/internal/session"
	"depthrig/internal/unproject"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config.json file")
	frames := flag.Int("frames", 50, "Number of frames to capture")
	rate := flag.Float64("rate", 0, "Capture rate in Hz (default: 5)")
	width := flag.Int("width", 0, "Depth plane width (default: 320)")
	height := flag.Int("height", 0, "Depth plane height (default: 240)")
	sessionRoot := flag.String("out", "", "Session root directory (default: ./sessions)")
	format := flag.String("format", "", "Visual format: png, webp or tga (default: png)")

	flag.Parse()

	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	cfg.Resolve(config.Flags{
		SessionRoot: *sessionRoot,
		Width:       *width,
		Height:      *height,
		Rate:        *rate,
		Format:      *format,
	})

	store := session.Store{Root: cfg.SessionRoot}
	sess, err := store.Create(time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating session: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Session: %s\n", sess.Dir)

	// Capture stack: CPU reference device, single run loop, pooled eye
	// buffers, background raw writer, coverage cloud on the bus.
	dev := gpu.NewCPUDevice()
	loop := gpu.NewRunLoop()
	bufs := pool.New(dev)
	raw := depth.NewWriter(cfg.RawQueue)
	b := bus.New()

	cloud := &unproject.Cloud{
		Stride: cfg.CloudStride,
		Gate:   unproject.Gate{Min: float32(cfg.VisualMin), Max: float32(cfg.VisualMax)},
	}
	b.Subscribe("coverage", cloud.OnFrame)
	defer b.Unsubscribe("coverage")

	visual := depth.DefaultVisualOptions()
	visual.MinDepth = float32(cfg.VisualMin)
	visual.MaxDepth = float32(cfg.VisualMax)

	pipe := readback.New(dev, loop, bufs, raw, b, visual)
	scene := newScene(float32(cfg.Near), cfg.PlaneWidth, cfg.PlaneHeight)

	start := time.Now()
	interval := time.Duration(float64(time.Second) / cfg.CaptureHz)
	ticker := time.NewTicker(interval)

	for i := 0; i < *frames; i++ {
		<-ticker.C
		tick := time.Now()
		ts := tick.UnixNano()

		descs := scene.descriptors(time.Since(start).Seconds(), tick, float32(cfg.Near), float32(cfg.Far))
		tex := scene.texture(dev, descs)

		var outs [2]readback.Output
		for i, eye := range [2]frame.Eye{frame.Left, frame.Right} {
			outs[i].Raw, outs[i].Visual = sess.FramePaths(eye, ts, cfg.VisualFormat)
			if err := sess.AppendDescriptor(eye, descs[i]); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: descriptor log: %v\n", err)
			}
		}

		loop.Post(func() { pipe.ExportFrame(tex, outs, descs) })
	}
	ticker.Stop()

	// Drain in-flight readbacks before teardown.
	loop.Sync()
	raw.Close()
	bufs.Teardown()
	loop.Stop()
	if err := sess.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	allocated, reused := bufs.Stats()
	fmt.Printf("Captured %d frames (%d eyes) in %.1fs\n", *frames, *frames*2, time.Since(start).Seconds())
	fmt.Printf("Buffers: %d allocated, %d reused\n", allocated, reused)
	fmt.Printf("Coverage: %d points\n", cloud.Len())
}
