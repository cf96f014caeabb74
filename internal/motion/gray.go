package motion

import (
	"image"

	"github.com/e7canasta/camsens/internal/types"
)

// ToGray converts a BGR24 or GRAY8 frame to an 8-bit intensity image.
//
// BGR uses the BT.601 weights in 14-bit fixed point, the same rounding as
// OpenCV's BGR2GRAY, so results match frames converted on the device side.
func ToGray(frame types.Frame) (*image.Gray, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}

	img := image.NewGray(image.Rect(0, 0, frame.Width, frame.Height))
	if frame.Channels == 1 {
		copy(img.Pix, frame.Data)
		return img, nil
	}

	const (
		wB    = 1868
		wG    = 9617
		wR    = 4899
		shift = 14
		round = 1 << (shift - 1)
	)
	src := frame.Data
	for i := range img.Pix {
		o := i * 3
		img.Pix[i] = uint8((int(src[o])*wB + int(src[o+1])*wG + int(src[o+2])*wR + round) >> shift)
	}
	return img, nil
}

// MeanIntensity returns the average pixel value of img
func MeanIntensity(img *image.Gray) float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return 0
	}

	var sum uint64
	for y := 0; y < h; y++ {
		for _, v := range img.Pix[y*img.Stride : y*img.Stride+w] {
			sum += uint64(v)
		}
	}
	return float64(sum) / float64(w*h)
}
