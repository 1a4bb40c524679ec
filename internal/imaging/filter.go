package imaging

import (
	"image"
	"math"
)

// Equalize performs histogram equalization. The lookup table is built from
// the cumulative histogram starting after the darkest populated bin, so the
// darkest value maps to 0 and the brightest to 255. A single-valued image is
// returned unchanged.
func Equalize(src *image.Gray) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	total := w * h
	if total == 0 {
		return dst
	}

	var hist [256]int
	for y := range h {
		row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := range w {
			hist[row[x]]++
		}
	}

	i := 0
	for hist[i] == 0 {
		i++
	}

	var lut [256]uint8
	if hist[i] == total {
		for p := range dst.Pix {
			dst.Pix[p] = uint8(i)
		}
		return dst
	}

	scale := float32(255) / float32(total-hist[i])
	sum := 0
	for i++; i < 256; i++ {
		sum += hist[i]
		lut[i] = saturate(math.RoundToEven(float64(float32(sum) * scale)))
	}

	for y := range h {
		srcRow := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
		dstRow := dst.Pix[y*dst.Stride:]
		for x := range w {
			dstRow[x] = lut[srcRow[x]]
		}
	}
	return dst
}

// Blur3x3 applies a 3x3 Gaussian blur (kernel 1 2 1 on both axes) with
// reflect-101 borders.
func Blur3x3(src *image.Gray) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return dst
	}

	at := func(x, y int) int {
		return int(src.Pix[src.PixOffset(b.Min.X+reflect101(x, w), b.Min.Y+reflect101(y, h))])
	}

	// horizontal pass keeps sums with weight 4, vertical pass brings it to 16
	tmp := make([]int, w*h)
	for y := range h {
		for x := range w {
			tmp[y*w+x] = at(x-1, y) + 2*at(x, y) + at(x+1, y)
		}
	}
	for y := range h {
		up, down := reflect101(y-1, h), reflect101(y+1, h)
		for x := range w {
			sum := tmp[up*w+x] + 2*tmp[y*w+x] + tmp[down*w+x]
			dst.Pix[y*dst.Stride+x] = uint8((sum + 8) >> 4)
		}
	}
	return dst
}

// reflect101 maps an out-of-range index back into [0, n) mirroring around the
// edge pixel without repeating it (gfedcb|abcdefgh|gfedcba).
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}

func saturate(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}
