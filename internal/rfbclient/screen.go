package rfbclient

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
)

// snapshot is a point-in-time copy of the decoded frame buffer, cursor
// already composited in.
type snapshot struct {
	pix    []byte
	width  int
	height int
}

func (c *Client) snapshot() (snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.haveFrame {
		return snapshot{}, fmt.Errorf("rfbclient: no framebuffer received yet")
	}

	pix := append([]byte(nil), c.pix...)
	cur := c.cursor
	if cur != nil && !c.noCursor {
		cur.CompositeOnto(pix, c.width, c.height, c.mouseX, c.mouseY)
	}
	return snapshot{pix: pix, width: c.width, height: c.height}, nil
}

// toImage converts a snapshot's RGB24 pixels to an *image.NRGBA, opaque
// throughout (spec.md §8: the framebuffer carries no alpha channel).
func (s snapshot) toImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, s.width, s.height))
	for y := 0; y < s.height; y++ {
		srcRow := s.pix[y*s.width*3 : (y+1)*s.width*3]
		dstRow := img.Pix[y*img.Stride : y*img.Stride+s.width*4]
		for x := 0; x < s.width; x++ {
			dstRow[x*4+0] = srcRow[x*3+0]
			dstRow[x*4+1] = srcRow[x*3+1]
			dstRow[x*4+2] = srcRow[x*3+2]
			dstRow[x*4+3] = 0xFF
		}
	}
	return img
}

// RefreshScreen requests a framebuffer update from the server and blocks
// until it has been committed (spec.md §8, "refreshScreen").
func (c *Client) RefreshScreen(ctx context.Context, incremental bool) error {
	c.mu.Lock()
	waitOn := c.committed
	c.mu.Unlock()

	w, h := c.engine.Width(), c.engine.Height()
	if err := c.engine.Encoder().FramebufferUpdateRequest(incremental, 0, 0, u16(w), u16(h)); err != nil {
		return fmt.Errorf("rfbclient: refreshScreen: %w", err)
	}

	select {
	case <-waitOn:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("rfbclient: refreshScreen: %w", ctx.Err())
	}
}

// CaptureScreen refreshes the display (non-incrementally) and returns the
// full screen, cursor composited in unless WithNoCursor was set
// (spec.md §8, "captureScreen").
func (c *Client) CaptureScreen(ctx context.Context) (image.Image, error) {
	if err := c.RefreshScreen(ctx, false); err != nil {
		return nil, err
	}
	snap, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	return snap.toImage(), nil
}

// CaptureRegion refreshes the display and returns the sub-image bounded
// by (x, y, x+w, y+h), clipped to the screen (spec.md §8,
// "captureRegion").
func (c *Client) CaptureRegion(ctx context.Context, x, y, w, h int) (image.Image, error) {
	if err := c.RefreshScreen(ctx, false); err != nil {
		return nil, err
	}
	snap, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	full := snap.toImage()
	rect := image.Rect(x, y, x+w, y+h).Intersect(full.Bounds())
	return full.SubImage(rect), nil
}

// ExpectScreen polls the display with incremental updates until its
// histogram matches target's within maxrms, the root-mean-square
// distance between their per-channel histograms (spec.md §8,
// "expectScreen").
func (c *Client) ExpectScreen(ctx context.Context, target image.Image, maxrms float64) error {
	return c.expectRegion(ctx, target, 0, 0, maxrms)
}

// ExpectRegion is ExpectScreen restricted to the box at (x, y) sized to
// target's dimensions (spec.md §8, "expectRegion").
func (c *Client) ExpectRegion(ctx context.Context, target image.Image, x, y int, maxrms float64) error {
	return c.expectRegion(ctx, target, x, y, maxrms)
}

func (c *Client) expectRegion(ctx context.Context, target image.Image, x, y int, maxrms float64) error {
	b := target.Bounds()
	w, h := b.Dx(), b.Dy()
	wantHist := histogram(target)

	incremental := false
	for {
		if incremental {
			snap, err := c.snapshot()
			if err == nil {
				full := snap.toImage()
				rect := image.Rect(x, y, x+w, y+h).Intersect(full.Bounds())
				gotHist := histogram(full.SubImage(rect))
				if rms(gotHist, wantHist) <= maxrms {
					return nil
				}
			}
		}

		if err := c.RefreshScreen(ctx, incremental); err != nil {
			return err
		}
		incremental = true
	}
}

// histogram returns the per-channel pixel-value counts (256 bins each
// for red, green, blue, alpha, concatenated) the way PIL's
// Image.histogram() does, so expectScreen's root-mean-square comparison
// matches the original client's semantics.
func histogram(img image.Image) []int {
	hist := make([]int, 256*4)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bch, a := toNRGBA(img.At(x, y))
			hist[int(r)]++
			hist[256+int(g)]++
			hist[512+int(bch)]++
			hist[768+int(a)]++
		}
	}
	return hist
}

func toNRGBA(c color.Color) (r, g, b, a uint8) {
	nrgba := color.NRGBAModel.Convert(c).(color.NRGBA)
	return nrgba.R, nrgba.G, nrgba.B, nrgba.A
}

// rms returns the root-mean-square distance between two equal-length
// histograms, or +Inf if their lengths differ (PIL raises in that case;
// here it simply never satisfies maxrms).
func rms(a, b []int) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(a)))
}
