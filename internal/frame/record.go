package frame

import (
	"fmt"
	"strconv"
	"time"
)

// RecordHeader is the column order of descriptor CSV rows, one row per
// captured frame.
var RecordHeader = []string{
	"eye", "device_time", "wall_clock",
	"pos_x", "pos_y", "pos_z",
	"rot_x", "rot_y", "rot_z", "rot_w",
	"tan_left", "tan_right", "tan_up", "tan_down",
	"near", "far", "width", "height",
}

// Record flattens a descriptor into one CSV row.
func Record(eye Eye, d Descriptor) []string {
	f := func(v float32) string {
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return []string{
		eye.String(),
		strconv.FormatFloat(d.DeviceTime, 'g', -1, 64),
		d.WallClock.UTC().Format(time.RFC3339Nano),
		f(d.Pose.Position[0]), f(d.Pose.Position[1]), f(d.Pose.Position[2]),
		f(d.Pose.Orientation[0]), f(d.Pose.Orientation[1]), f(d.Pose.Orientation[2]), f(d.Pose.Orientation[3]),
		f(d.Fov.TanLeft), f(d.Fov.TanRight), f(d.Fov.TanUp), f(d.Fov.TanDown),
		f(d.Near), f(d.Far),
		strconv.Itoa(d.Width), strconv.Itoa(d.Height),
	}
}

// ParseRecord rebuilds an (eye, descriptor) pair from one CSV row.
func ParseRecord(row []string) (Eye, Descriptor, error) {
	var d Descriptor
	if len(row) != len(RecordHeader) {
		return Left, d, fmt.Errorf("frame: record has %d fields, want %d", len(row), len(RecordHeader))
	}

	var eye Eye
	switch row[0] {
	case "left":
		eye = Left
	case "right":
		eye = Right
	default:
		return Left, d, fmt.Errorf("frame: unknown eye %q", row[0])
	}

	var err error
	f := func(s string) float32 {
		if err != nil {
			return 0
		}
		var v float64
		v, err = strconv.ParseFloat(s, 32)
		return float32(v)
	}

	d.DeviceTime, err = strconv.ParseFloat(row[1], 64)
	if err != nil {
		return eye, d, fmt.Errorf("frame: device_time: %w", err)
	}
	d.WallClock, err = time.Parse(time.RFC3339Nano, row[2])
	if err != nil {
		return eye, d, fmt.Errorf("frame: wall_clock: %w", err)
	}

	d.Pose.Position = [3]float32{f(row[3]), f(row[4]), f(row[5])}
	d.Pose.Orientation = [4]float32{f(row[6]), f(row[7]), f(row[8]), f(row[9])}
	d.Fov = Fov{TanLeft: f(row[10]), TanRight: f(row[11]), TanUp: f(row[12]), TanDown: f(row[13])}
	d.Near, d.Far = f(row[14]), f(row[15])
	if err != nil {
		return eye, d, fmt.Errorf("frame: parse record: %w", err)
	}

	if d.Width, err = strconv.Atoi(row[16]); err != nil {
		return eye, d, fmt.Errorf("frame: width: %w", err)
	}
	if d.Height, err = strconv.Atoi(row[17]); err != nil {
		return eye, d, fmt.Errorf("frame: height: %w", err)
	}
	return eye, d, nil
}
