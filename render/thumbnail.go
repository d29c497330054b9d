// Package render runs background page rendering for thumbnails and previews.
// Rasterization itself lives behind the Rasterizer interface; this package
// owns the one piece of concurrency in the system: a single background
// goroutine that must be fully quiesced before the document mutation
// protocol runs and restarted unconditionally afterwards.
package render

import (
	"context"
	"image"
	"sync"
	"time"

	xdraw "golang.org/x/image/draw"

	"github.com/wudi/takeoffkit/observability"
)

// ThumbnailScale is the reduced scale used for page-list thumbnails.
const ThumbnailScale = 0.2

// Rasterizer renders one page of the loaded document at a given scale. The
// implementation is an opaque capability; it may hold native document
// handles, which is exactly why the thumbnailer must be stopped before the
// mutation worker touches the same document.
type Rasterizer interface {
	Rasterize(ctx context.Context, page int, scale float64) (image.Image, error)
}

// Thumb is one finished thumbnail.
type Thumb struct {
	Page  int
	Image image.Image
	Err   error
}

// Thumbnailer renders queued pages on one background goroutine and delivers
// results through C. Stop cancels in-flight work and blocks until the
// goroutine has confirmed termination.
type Thumbnailer struct {
	ras Rasterizer
	log observability.Logger

	// MaxDim bounds the longer edge of delivered thumbnails; larger renders
	// are downscaled. Zero means no bound.
	MaxDim int

	C chan Thumb

	mu      sync.Mutex
	queue   chan int
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewThumbnailer creates a stopped thumbnailer. log may be nil.
func NewThumbnailer(ras Rasterizer, log observability.Logger) *Thumbnailer {
	if log == nil {
		log = observability.NopLogger{}
	}
	return &Thumbnailer{
		ras:    ras,
		log:    log,
		MaxDim: 200,
		C:      make(chan Thumb, 16),
	}
}

// Start launches the background goroutine. A no-op if already running.
func (t *Thumbnailer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.queue = make(chan int, 64)
	t.cancel = cancel
	t.done = make(chan struct{})
	t.running = true
	go t.run(ctx, t.queue, t.done)
}

// Stop signals cancellation and blocks until the background goroutine has
// terminated. Queued pages not yet rendered are dropped. A no-op if not
// running.
func (t *Thumbnailer) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	cancel, done := t.cancel, t.done
	t.running = false
	t.mu.Unlock()

	cancel()
	<-done
}

// Request queues a page for rendering. Silently dropped when the
// thumbnailer is stopped or the queue is full; the caller re-requests on
// the next navigation.
func (t *Thumbnailer) Request(page int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	select {
	case t.queue <- page:
	default:
	}
}

// PauseDuring is the render-pause guard: it stops the thumbnailer, runs fn,
// and restarts the thumbnailer on every exit path, whether or not fn
// failed.
func (t *Thumbnailer) PauseDuring(fn func() error) error {
	t.Stop()
	defer t.Start()
	return fn()
}

func (t *Thumbnailer) run(ctx context.Context, queue chan int, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case page := <-queue:
			start := time.Now()
			img, err := t.ras.Rasterize(ctx, page, ThumbnailScale)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				t.log.Warn("thumbnail render failed",
					observability.Int("page", page), observability.Error("err", err))
				t.deliver(ctx, Thumb{Page: page, Err: err})
				continue
			}
			t.log.Debug("thumbnail rendered",
				observability.Int("page", page),
				observability.Float(observability.MetricThumbnailDuration, time.Since(start).Seconds()))
			t.deliver(ctx, Thumb{Page: page, Image: Downscale(img, t.MaxDim)})
		}
	}
}

func (t *Thumbnailer) deliver(ctx context.Context, th Thumb) {
	select {
	case t.C <- th:
	case <-ctx.Done():
	}
}

// Downscale returns img scaled so its longer edge is at most maxDim,
// preserving aspect ratio. Images already within the bound are returned
// unchanged.
func Downscale(img image.Image, maxDim int) image.Image {
	if img == nil || maxDim <= 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	long := w
	if h > long {
		long = h
	}
	if long <= maxDim {
		return img
	}
	scale := float64(maxDim) / float64(long)
	dw := int(float64(w) * scale)
	dh := int(float64(h) * scale)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}
