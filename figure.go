package calcnotify

import (
	"image"
	"image/png"
	"io"
)

// Figure is anything that can render itself as a PNG. Plotting libraries
// plug in by writing encoded bytes to w.
type Figure interface {
	Render(w io.Writer) error
}

// FigureFunc adapts a plain function to the Figure interface.
type FigureFunc func(w io.Writer) error

func (f FigureFunc) Render(w io.Writer) error { return f(w) }

// ImageFigure wraps a decoded image as a Figure.
func ImageFigure(img image.Image) Figure {
	return FigureFunc(func(w io.Writer) error {
		return png.Encode(w, img)
	})
}
