// Package readback drives the per-frame capture pipeline: kernel dispatch
// into pooled eye buffers, asynchronous host transfer, and hand-off to the
// depth codec and frame bus.
package readback

import (
	"log/slog"

	"depthrig/internal/bus"
	"depthrig/internal/depth"
	"depthrig/internal/frame"
	"depthrig/internal/gpu"
	"depthrig/internal/pool"
)

// Output names the artifact paths for one eye of one frame.
type Output struct {
	Raw    string
	Visual string
}

// Pipeline owns one capture path from source texture to persisted frame.
// ExportFrame and every transfer completion run on the capture run loop;
// only raw blob writes leave it.
type Pipeline struct {
	dev  gpu.Device
	loop *gpu.RunLoop
	pool *pool.Pool
	raw  *depth.Writer
	bus  *bus.Bus

	visual depth.VisualOptions
}

// New wires a pipeline. bus may be nil when no live consumers exist.
func New(dev gpu.Device, loop *gpu.RunLoop, p *pool.Pool, raw *depth.Writer, b *bus.Bus, visual depth.VisualOptions) *Pipeline {
	return &Pipeline{dev: dev, loop: loop, pool: p, raw: raw, bus: b, visual: visual}
}

// ExportFrame captures both eyes of src. It must be called on the capture
// run loop. An uninitialized source texture makes the call a logged no-op;
// per-eye transfer failures drop that eye's frame and return its buffer.
func (p *Pipeline) ExportFrame(src gpu.Texture, outs [2]Output, descs [2]frame.Descriptor) {
	if src == nil || !src.Valid() {
		slog.Warn("readback: skipping frame, source texture not initialized")
		return
	}

	width, height := descs[0].Width, descs[0].Height
	elems := width * height

	left, _ := p.pool.Acquire(elems)
	right, _ := p.pool.Acquire(elems)
	bufs := [2]gpu.Buffer{left, right}

	if err := p.dev.Dispatch(gpu.KernelDepthExtract, src, bufs[:], width, height); err != nil {
		slog.Warn("readback: dispatch failed", "err", err)
		p.pool.Release(left)
		p.pool.Release(right)
		return
	}

	for i, eye := range [2]frame.Eye{frame.Left, frame.Right} {
		buf := bufs[i]
		out := outs[i]
		desc := descs[i]
		p.dev.ReadAsync(buf, p.loop, func(view []float32, err error) {
			defer p.pool.Release(buf)
			if err != nil {
				slog.Warn("readback: transfer failed, dropping frame", "eye", eye.String(), "err", err)
				return
			}
			p.complete(view, eye, out, desc)
		})
	}
}

// complete runs inside one transfer completion. The view is only valid
// until it returns, so every consumer either finishes here or copies.
func (p *Pipeline) complete(view []float32, eye frame.Eye, out Output, desc frame.Descriptor) {
	if out.Raw != "" {
		p.raw.Enqueue(out.Raw, view)
	}

	if out.Visual != "" {
		img := depth.VisualImage(view, desc.Width, desc.Height, desc.Near, p.visual)
		if err := depth.WriteVisual(out.Visual, img); err != nil {
			slog.Warn("readback: visual persist failed", "eye", eye.String(), "err", err)
		}
	}

	if p.bus != nil {
		n := depth.DecodeAll(view, desc.Width*desc.Height, desc.Near)
		p.bus.Publish(frame.Decoded{Values: view[:n], Eye: eye, Desc: desc})
	}
}
