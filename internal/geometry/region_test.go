package geometry

import "testing"

func TestCompute(t *testing.T) {
	fullHD := Display{Width: 1920, Height: 1080, ScaleFactor: 1}
	retina := Display{Width: 1440, Height: 900, ScaleFactor: 2}

	tests := []struct {
		name string
		p    Point
		d    Display
		want Region
	}{
		{
			name: "centred",
			p:    Point{X: 960, Y: 540},
			d:    fullHD,
			want: Region{Left: 860, Top: 490, Width: 200, Height: 100, Local: Point{X: 100, Y: 50}},
		},
		{
			name: "near corner",
			p:    Point{X: 10, Y: 20},
			d:    fullHD,
			want: Region{Left: 0, Top: 0, Width: 200, Height: 100, Local: Point{X: 10, Y: 20}},
		},
		{
			name: "far corner",
			p:    Point{X: 1915, Y: 1075},
			d:    fullHD,
			want: Region{Left: 1720, Top: 980, Width: 200, Height: 100, Local: Point{X: 195, Y: 95}},
		},
		{
			name: "high density centred",
			p:    Point{X: 720, Y: 450},
			d:    retina,
			want: Region{Left: 670, Top: 425, Width: 100, Height: 50, Local: Point{X: 100, Y: 50}},
		},
		{
			name: "high density near edge",
			p:    Point{X: 5, Y: 450},
			d:    retina,
			want: Region{Left: 0, Top: 425, Width: 100, Height: 50, Local: Point{X: 10, Y: 50}},
		},
		{
			name: "secondary display",
			p:    Point{X: 1920 + 960, Y: 540},
			d:    Display{X: 1920, Width: 1920, Height: 1080, ScaleFactor: 1},
			want: Region{Left: 1920 + 860, Top: 490, Width: 200, Height: 100, Local: Point{X: 100, Y: 50}},
		},
		{
			name: "scale below one treated as one",
			p:    Point{X: 960, Y: 540},
			d:    Display{Width: 1920, Height: 1080, ScaleFactor: 0},
			want: Region{Left: 860, Top: 490, Width: 200, Height: 100, Local: Point{X: 100, Y: 50}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compute(tt.p, tt.d, DefaultSize); got != tt.want {
				t.Errorf("Compute() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestComputeFractionalOrigin(t *testing.T) {
	d := Display{Width: 1000, Height: 1000, ScaleFactor: 1.5}

	tests := []struct {
		name string
		p    Point
		want Region
	}{
		{
			name: "far edge",
			p:    Point{X: 999, Y: 500},
			want: Region{Left: 866, Top: 466, Width: 133, Height: 66, Local: Point{X: 199, Y: 51}},
		},
		{
			name: "far bottom",
			p:    Point{X: 500, Y: 999},
			want: Region{Left: 433, Top: 933, Width: 133, Height: 66, Local: Point{X: 100, Y: 99}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compute(tt.p, d, DefaultSize); got != tt.want {
				t.Errorf("Compute() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestComputeStaysInsideDisplay(t *testing.T) {
	displays := []Display{
		{Width: 1920, Height: 1080, ScaleFactor: 1},
		{Width: 1440, Height: 900, ScaleFactor: 2},
		{Width: 1366, Height: 768, ScaleFactor: 1.25},
		{Width: 2560, Height: 1440, ScaleFactor: 1.5},
		{Width: 150, Height: 60, ScaleFactor: 1}, // smaller than the capture
		{X: -1280, Y: 200, Width: 1280, Height: 1024, ScaleFactor: 1.75},
	}

	for _, d := range displays {
		for x := d.X - 10; x <= d.X+d.Width+10; x += 7 {
			for y := d.Y - 10; y <= d.Y+d.Height+10; y += 11 {
				r := Compute(Point{X: x, Y: y}, d, DefaultSize)
				if r.Left < d.X || r.Top < d.Y {
					t.Fatalf("Compute(%d,%d on %+v) origin %d,%d outside display", x, y, d, r.Left, r.Top)
				}
				if r.Left+r.Width > d.X+d.Width || r.Top+r.Height > d.Y+d.Height {
					t.Fatalf("Compute(%d,%d on %+v) = %+v overflows display", x, y, d, r)
				}
				if r.Local.X < 0 || r.Local.Y < 0 || r.Local.X > DefaultSize.Width || r.Local.Y > DefaultSize.Height {
					t.Fatalf("Compute(%d,%d on %+v) local %+v outside image", x, y, d, r.Local)
				}
			}
		}
	}
}

func TestComputeSizeFollowsScale(t *testing.T) {
	tests := []struct {
		scale         float64
		width, height int
	}{
		{1, 200, 100},
		{1.25, 160, 80},
		{1.5, 133, 66},
		{2, 100, 50},
		{3, 66, 33},
	}

	for _, tt := range tests {
		d := Display{Width: 3840, Height: 2160, ScaleFactor: tt.scale}
		r := Compute(Point{X: 1000, Y: 1000}, d, DefaultSize)
		if r.Width != tt.width || r.Height != tt.height {
			t.Errorf("scale %v: size = %dx%d, want %dx%d", tt.scale, r.Width, r.Height, tt.width, tt.height)
		}
	}
}
