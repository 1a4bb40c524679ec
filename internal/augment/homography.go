package augment

import (
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Point is a sub-pixel image coordinate.
type Point struct {
	X, Y float64
}

// Homography is a row-major 3x3 projective transform.
type Homography [9]float64

// Identity is the homography that maps every point onto itself.
var Identity = Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}

// PerspectiveTransform computes the homography mapping each src corner onto
// the matching dst corner. Degenerate corner sets return an error.
func PerspectiveTransform(src, dst [4]Point) (Homography, error) {
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := range 4 {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y
		a.SetRow(i, []float64{x, y, 1, 0, 0, 0, -x * u, -y * u})
		a.SetRow(i+4, []float64{0, 0, 0, x, y, 1, -x * v, -y * v})
		b.SetVec(i, u)
		b.SetVec(i+4, v)
	}

	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		return Homography{}, fmt.Errorf("failed to solve perspective transform: %w", err)
	}

	var out Homography
	for i := range 8 {
		out[i] = h.AtVec(i)
		if math.IsNaN(out[i]) || math.IsInf(out[i], 0) {
			return Homography{}, fmt.Errorf("perspective transform is not finite")
		}
	}
	out[8] = 1
	return out, nil
}

// Inverse returns the inverse transform.
func (h Homography) Inverse() (Homography, error) {
	m := mat.NewDense(3, 3, h[:])
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return Homography{}, fmt.Errorf("homography is not invertible: %w", err)
	}

	var out Homography
	for r := range 3 {
		for c := range 3 {
			out[r*3+c] = inv.At(r, c)
		}
	}
	return out, nil
}

// Apply maps a point through the transform.
func (h Homography) Apply(p Point) Point {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if w == 0 {
		return Point{X: math.Inf(1), Y: math.Inf(1)}
	}
	return Point{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}
}

// WarpPerspective renders src through h into an image of the same size.
// Every destination pixel is sampled bilinearly from its inverse-mapped
// source position; anything outside the source is black.
func WarpPerspective(src *image.Gray, h Homography) (*image.Gray, error) {
	inv, err := h.Inverse()
	if err != nil {
		return nil, err
	}

	b := src.Bounds()
	w, ht := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, ht))

	at := func(x, y int) float64 {
		if x < 0 || y < 0 || x >= w || y >= ht {
			return 0
		}
		return float64(src.Pix[src.PixOffset(b.Min.X+x, b.Min.Y+y)])
	}

	for y := range ht {
		for x := range w {
			s := inv.Apply(Point{X: float64(x), Y: float64(y)})
			if math.IsInf(s.X, 0) || math.IsNaN(s.X) || math.IsNaN(s.Y) {
				continue
			}
			x0, y0 := math.Floor(s.X), math.Floor(s.Y)
			fx, fy := s.X-x0, s.Y-y0
			ix, iy := int(x0), int(y0)
			if ix < -1 || iy < -1 || ix >= w || iy >= ht {
				continue
			}

			v := at(ix, iy)*(1-fx)*(1-fy) +
				at(ix+1, iy)*fx*(1-fy) +
				at(ix, iy+1)*(1-fx)*fy +
				at(ix+1, iy+1)*fx*fy
			dst.Pix[y*dst.Stride+x] = uint8(math.Min(255, math.Max(0, math.Round(v))))
		}
	}
	return dst, nil
}
