package classifier

import (
	"image"
	"math"
)

// lbpImage computes circular local binary patterns. Each neighbor sample is
// bilinearly interpolated; a bit is set when the neighbor is at least as
// bright as the center. The result is (rows-2r) x (cols-2r).
func lbpImage(src *image.Gray, radius, neighbors int) (codes []int, rows, cols int) {
	b := src.Bounds()
	rows, cols = b.Dy()-2*radius, b.Dx()-2*radius
	if rows <= 0 || cols <= 0 {
		return nil, 0, 0
	}
	codes = make([]int, rows*cols)

	px := func(y, x int) float32 {
		return float32(src.Pix[src.PixOffset(b.Min.X+x, b.Min.Y+y)])
	}

	const eps = float32(1.1920929e-07) // float32 epsilon
	for n := range neighbors {
		angle := 2 * math.Pi * float64(n) / float64(neighbors)
		x := float32(float64(radius) * math.Cos(angle))
		y := float32(-float64(radius) * math.Sin(angle))

		fx, fy := int(math.Floor(float64(x))), int(math.Floor(float64(y)))
		cx, cy := int(math.Ceil(float64(x))), int(math.Ceil(float64(y)))
		ty, tx := y-float32(fy), x-float32(fx)
		w1 := (1 - tx) * (1 - ty)
		w2 := tx * (1 - ty)
		w3 := (1 - tx) * ty
		w4 := tx * ty

		for i := radius; i < b.Dy()-radius; i++ {
			for j := radius; j < b.Dx()-radius; j++ {
				t := w1*px(i+fy, j+fx) + w2*px(i+fy, j+cx) + w3*px(i+cy, j+fx) + w4*px(i+cy, j+cx)
				c := px(i, j)
				if t > c || float32(math.Abs(float64(t-c))) < eps {
					codes[(i-radius)*cols+(j-radius)] += 1 << n
				}
			}
		}
	}
	return codes, rows, cols
}

// spatialHistogram splits the pattern image into a gridX x gridY grid and
// concatenates one normalized histogram per cell. Pixels beyond the last
// whole cell are ignored.
func spatialHistogram(codes []int, rows, cols, patterns, gridX, gridY int) []float32 {
	hist := make([]float32, gridX*gridY*patterns)
	width, height := cols/gridX, rows/gridY
	if width == 0 || height == 0 {
		return hist
	}
	total := float32(width * height)

	for gy := range gridY {
		for gx := range gridX {
			cell := hist[(gy*gridX+gx)*patterns : (gy*gridX+gx+1)*patterns]
			for y := gy * height; y < (gy+1)*height; y++ {
				for x := gx * width; x < (gx+1)*width; x++ {
					cell[codes[y*cols+x]]++
				}
			}
			for i := range cell {
				cell[i] /= total
			}
		}
	}
	return hist
}

// histogram is the LBPH feature vector of a face.
func histogram(img *image.Gray, p Params) []float32 {
	codes, rows, cols := lbpImage(img, p.Radius, p.Neighbors)
	return spatialHistogram(codes, rows, cols, 1<<p.Neighbors, p.GridX, p.GridY)
}

// chiSquare is the symmetric chi-square distance 2*sum((a-b)^2/(a+b)).
func chiSquare(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		s := float64(a[i]) + float64(b[i])
		if math.Abs(s) > 2.220446049250313e-16 {
			sum += d * d / s
		}
	}
	return 2 * sum
}

// chiSquareDistance adapts chiSquare to the index distance signature.
func chiSquareDistance(a, b []float32) float32 {
	return float32(chiSquare(a, b))
}
