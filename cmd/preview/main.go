package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/image/draw"

	"depthrig/internal/depth"
	"depthrig/internal/frame"
	"depthrig/internal/mathutil"
	"depthrig/internal/session"
	"depthrig/internal/unproject"
)

func main() {
	out := flag.String("out", "coverage.png", "Output image (png, webp or tga)")
	size := flag.Int("size", 512, "Output image size in pixels")
	stride := flag.Int("stride", 4, "Sample every Nth pixel of each plane")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: preview [-out IMG] [-size N] [-stride N] SESSION_DIR")
		os.Exit(2)
	}
	dir := flag.Arg(0)

	pts, err := collect(dir, *stride)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(pts) == 0 {
		fmt.Println("No reliable points in session.")
		os.Exit(0)
	}
	fmt.Printf("Points: %d\n", len(pts))

	img := render(pts, *size)
	if err := depth.WriteVisual(*out, img); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", *out)
}

// collect replays a recorded session through the unprojector: each
// descriptor row is paired with its eye's next raw plane in timestamp order.
func collect(dir string, stride int) ([]mathutil.Vec3, error) {
	eyes, descs, err := session.ReadDescriptors(dir)
	if err != nil {
		return nil, err
	}

	files := map[frame.Eye][]string{}
	next := map[frame.Eye]int{}
	for _, eye := range []frame.Eye{frame.Left, frame.Right} {
		raws, err := filepath.Glob(filepath.Join(dir, eye.String()+"_depth", "*.raw"))
		if err != nil {
			return nil, err
		}
		sort.Strings(raws)
		files[eye] = raws
	}

	cloud := &unproject.Cloud{Stride: stride, Gate: unproject.DefaultGate()}
	for i, eye := range eyes {
		k := next[eye]
		if k >= len(files[eye]) {
			continue
		}
		next[eye] = k + 1

		values, err := depth.ReadRaw(files[eye][k])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			continue
		}
		n := depth.DecodeAll(values, descs[i].Width*descs[i].Height, descs[i].Near)
		cloud.OnFrame(frame.Decoded{Values: values[:n], Eye: eye, Desc: descs[i]})
	}
	return cloud.Points(), nil
}

// render scatters world points onto a top-down (X/Z) plane at 2x
// supersampling, then downsamples with CatmullRom for smooth density.
func render(pts []mathutil.Vec3, size int) *image.NRGBA {
	minX, maxX := pts[0][0], pts[0][0]
	minZ, maxZ := pts[0][2], pts[0][2]
	for _, p := range pts {
		if p[0] < minX {
			minX = p[0]
		}
		if p[0] > maxX {
			maxX = p[0]
		}
		if p[2] < minZ {
			minZ = p[2]
		}
		if p[2] > maxZ {
			maxZ = p[2]
		}
	}
	span := maxX - minX
	if maxZ-minZ > span {
		span = maxZ - minZ
	}
	if span < 0.001 {
		span = 0.001
	}

	super := size * 2
	margin := 16
	scale := float32(super-2*margin) / span

	hits := make([]int, super*super)
	peak := 0
	for _, p := range pts {
		x := int((p[0]-minX)*scale) + margin
		z := int((p[2]-minZ)*scale) + margin
		if x < 0 || x >= super || z < 0 || z >= super {
			continue
		}
		i := z*super + x
		hits[i]++
		if hits[i] > peak {
			peak = hits[i]
		}
	}

	big := image.NewNRGBA(image.Rect(0, 0, super, super))
	for i, h := range hits {
		if h == 0 {
			continue
		}
		v := uint8(64 + 191*h/peak)
		o := i * 4
		big.Pix[o] = v
		big.Pix[o+1] = v
		big.Pix[o+2] = v
		big.Pix[o+3] = 255
	}

	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), big, big.Bounds(), draw.Src, nil)
	return dst
}
