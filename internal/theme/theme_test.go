package theme

import (
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSystem struct {
	mu       sync.Mutex
	variant  Variant
	err      error
	subErr   error
	onChange func(Variant)
	onEnd    func(error)
	stopped  bool
}

func (f *fakeSystem) Current() (Variant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.variant, f.err
}

func (f *fakeSystem) Subscribe(onChange func(Variant), onEnd func(error)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subErr != nil {
		return nil, f.subErr
	}
	f.onChange = onChange
	f.onEnd = onEnd
	return func() {
		f.mu.Lock()
		f.stopped = true
		f.mu.Unlock()
	}, nil
}

// flip changes the OS theme and fires the notification.
func (f *fakeSystem) flip(v Variant) {
	f.mu.Lock()
	f.variant = v
	cb := f.onChange
	f.mu.Unlock()
	if cb != nil {
		cb(v)
	}
}

type fakeSampler struct {
	fill  color.Color
	err   error
	rects []image.Rectangle
}

func (f *fakeSampler) Sample(r image.Rectangle) (image.Image, error) {
	f.rects = append(f.rects, r)
	if f.err != nil {
		return nil, f.err
	}
	return image.NewUniform(f.fill), nil
}

// uniform returns an image of the given size filled with c.
func uniform(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		r, g, b, a := c.RGBA()
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = uint8(r>>8), uint8(g>>8), uint8(b>>8), uint8(a>>8)
	}
	return img
}

func TestLuminance(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
		want Variant
	}{
		{"white", uniform(4, 4, color.White), Light},
		{"black", uniform(4, 4, color.Black), Dark},
		{"pure green is bright", uniform(2, 2, color.RGBA{G: 0xff, A: 0xff}), Light},
		{"pure blue is dark", uniform(2, 2, color.RGBA{B: 0xff, A: 0xff}), Dark},
		{"mid grey just below threshold", uniform(3, 3, color.RGBA{R: 127, G: 127, B: 127, A: 0xff}), Dark},
		{"mid grey just above threshold", uniform(3, 3, color.RGBA{R: 128, G: 128, B: 128, A: 0xff}), Light},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VariantForLuminance(Luminance(tt.img)))
		})
	}

	assert.InDelta(t, 1.0, Luminance(uniform(1, 1, color.White)), 1e-9)
	assert.Equal(t, 0.0, Luminance(image.NewRGBA(image.Rectangle{})))
}

func TestLuminanceHalfAndHalf(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.White)
	img.Set(1, 0, color.Black)
	assert.InDelta(t, 0.5, Luminance(img), 1e-9)
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{FollowIndicatorArea, FollowSystem, FixedLight, FixedDark} {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	for token, want := range map[string]Mode{
		"follow_system_theme":         FollowSystem,
		"Follow_Indicator_Area_Theme": FollowIndicatorArea,
		" system ":                    FollowSystem,
	} {
		got, err := ParseMode(token)
		require.NoError(t, err, token)
		assert.Equal(t, want, got, token)
	}
	_, err := ParseMode("sepia")
	assert.Error(t, err)
}

func TestForeground(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 0x1f, G: 0x1f, B: 0x1f, A: 0xff}, Light.Foreground())
	assert.Equal(t, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, Dark.Foreground())
}

func TestResolverFixedModes(t *testing.T) {
	r := NewResolver(&fakeSystem{variant: Dark}, nil, FixedLight)
	r.Start()
	assert.Equal(t, Light, r.Resolved())

	r.SetMode(FixedDark)
	assert.Equal(t, Dark, r.Resolved())
	assert.Equal(t, Dark, r.PrepareShow(image.Rect(0, 0, 10, 10)))
}

func TestResolverFollowSystem(t *testing.T) {
	sys := &fakeSystem{variant: Dark}
	r := NewResolver(sys, nil, FollowSystem)
	r.Start()
	defer r.Close()

	assert.False(t, r.Degraded())
	assert.Equal(t, Dark, r.Resolved())
	assert.Equal(t, Dark, r.Resolved(), "resolved is idempotent")

	var notified []Variant
	r.OnSystemThemeChange(func(v Variant) { notified = append(notified, v) })

	sys.flip(Light)
	assert.Equal(t, Light, r.Resolved())

	// Repeated notification with no actual change is swallowed.
	sys.flip(Light)
	assert.Equal(t, []Variant{Light}, notified)
}

func TestResolverSystemChangeWhileFixedKeepsFixed(t *testing.T) {
	sys := &fakeSystem{variant: Light}
	r := NewResolver(sys, nil, FixedLight)
	r.Start()

	sys.flip(Dark)
	assert.Equal(t, Light, r.Resolved())

	r.SetMode(FollowSystem)
	assert.Equal(t, Dark, r.Resolved())
}

func TestResolverDegradedRereadsOnShow(t *testing.T) {
	sys := &fakeSystem{variant: Light, subErr: errors.New("no notifications")}
	r := NewResolver(sys, nil, FollowSystem)
	r.Start()

	assert.True(t, r.Degraded())
	assert.Equal(t, Light, r.Resolved())

	sys.mu.Lock()
	sys.variant = Dark
	sys.mu.Unlock()

	assert.Equal(t, Light, r.Resolved(), "no re-read outside a show")
	assert.Equal(t, Dark, r.PrepareShow(image.Rect(0, 0, 8, 8)))
	assert.Equal(t, Dark, r.Resolved())
}

func TestResolverWatchEndedFallsBackToRereading(t *testing.T) {
	sys := &fakeSystem{variant: Light}
	r := NewResolver(sys, nil, FollowSystem)
	r.Start()
	defer r.Close()
	require.False(t, r.Degraded())

	sys.mu.Lock()
	sys.variant = Dark
	end := sys.onEnd
	sys.mu.Unlock()
	end(errors.New("wait failed"))

	assert.True(t, r.Degraded())
	assert.Equal(t, Dark, r.Resolved(), "re-read when the watch died")

	// No notification will ever arrive now; each show re-reads instead.
	sys.mu.Lock()
	sys.variant = Light
	sys.mu.Unlock()
	assert.Equal(t, Light, r.PrepareShow(image.Rect(0, 0, 8, 8)))
}

func TestResolverSystemReadFailureAssumesLight(t *testing.T) {
	r := NewResolver(&fakeSystem{variant: Dark, err: errors.New("no key")}, nil, FollowSystem)
	r.Start()
	assert.Equal(t, Light, r.Resolved())
}

func TestResolverFollowIndicatorAreaSamplesEveryShow(t *testing.T) {
	sampler := &fakeSampler{fill: color.Black}
	r := NewResolver(&fakeSystem{variant: Light}, sampler, FollowIndicatorArea)
	r.Start()

	rect := image.Rect(928, 508, 992, 572)
	assert.Equal(t, Dark, r.PrepareShow(rect))
	assert.Equal(t, Dark, r.Resolved())

	sampler.fill = color.White
	assert.Equal(t, Light, r.PrepareShow(rect))
	assert.Equal(t, []image.Rectangle{rect, rect}, sampler.rects)
}

func TestResolverSampleFailureAssumesLight(t *testing.T) {
	sampler := &fakeSampler{err: errors.New("BitBlt failed")}
	r := NewResolver(nil, sampler, FollowIndicatorArea)
	r.Start()
	assert.Equal(t, Light, r.PrepareShow(image.Rect(0, 0, 4, 4)))
}

func TestResolverClose(t *testing.T) {
	sys := &fakeSystem{}
	r := NewResolver(sys, nil, FollowSystem)
	r.Start()
	r.Close()
	r.Close()
	assert.True(t, sys.stopped)
}

func TestResolverConcurrentReads(t *testing.T) {
	sys := &fakeSystem{variant: Light}
	r := NewResolver(sys, nil, FollowSystem)
	r.Start()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if i%2 == 0 {
				sys.flip(Dark)
			} else {
				sys.flip(Light)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			v := r.Resolved()
			assert.True(t, v == Light || v == Dark)
		}
	}()
	wg.Wait()
}
