package motion

import (
	"image"

	"github.com/disintegration/gift"
)

// Smoother applies a Gaussian blur before differencing to suppress sensor noise
type Smoother struct {
	g *gift.GIFT
}

// NewSmoother returns nil when sigma <= 0, which Apply treats as identity
func NewSmoother(sigma float32) *Smoother {
	if sigma <= 0 {
		return nil
	}
	return &Smoother{g: gift.New(gift.GaussianBlur(sigma))}
}

// Apply returns a blurred copy of src
func (s *Smoother) Apply(src *image.Gray) *image.Gray {
	if s == nil {
		return src
	}
	dst := image.NewGray(s.g.Bounds(src.Bounds()))
	s.g.Draw(dst, src)
	return dst
}
