package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/chewxy/math32"

	"depthrig/internal/depth"
	"depthrig/internal/frame"
	"depthrig/internal/session"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "Usage: inspect SESSION_DIR")
		os.Exit(2)
	}
	dir := os.Args[1]

	eyes, descs, err := session.ReadDescriptors(dir)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Frames: %d rows (%d per eye)\n", len(descs), len(descs)/2)
	if len(descs) > 0 {
		d := descs[0]
		fmt.Printf("Plane: %dx%d  near=%.2f far=%.2f\n", d.Width, d.Height, d.Near, d.Far)
		fmt.Printf("Span: %.2fs device time\n", descs[len(descs)-1].DeviceTime-d.DeviceTime)
	}

	for _, eye := range []frame.Eye{frame.Left, frame.Right} {
		raws, _ := filepath.Glob(filepath.Join(dir, eye.String()+"_depth", "*.raw"))
		sort.Strings(raws)
		fmt.Printf("%s eye: %d raw planes\n", eye, len(raws))
		if len(raws) == 0 || len(descs) == 0 {
			continue
		}

		values, err := depth.ReadRaw(raws[0])
		if err != nil {
			fmt.Printf("  Error: %v\n", err)
			continue
		}
		near := float32(0.1)
		for i := range eyes {
			if eyes[i] == eye {
				near = descs[i].Near
				break
			}
		}

		minD, maxD := math32.Inf(1), math32.Inf(-1)
		var sum float64
		valid, invalid := 0, 0
		for _, ndc := range values {
			lin := depth.Decode(ndc, near)
			if math32.IsInf(lin, 0) || math32.IsNaN(lin) {
				invalid++
				continue
			}
			valid++
			sum += float64(lin)
			if lin < minD {
				minD = lin
			}
			if lin > maxD {
				maxD = lin
			}
		}
		fmt.Printf("  %s: %d samples, %d valid, %d invalid\n", filepath.Base(raws[0]), len(values), valid, invalid)
		if valid > 0 {
			fmt.Printf("  Depth: min=%.3fm max=%.3fm mean=%.3fm\n", minD, maxD, sum/float64(valid))
		}
	}
}
