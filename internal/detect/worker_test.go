package detect

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprite-suite/pkg/colorutil"
	"sprite-suite/pkg/geometry"
)

func TestRequestRoundTrip(t *testing.T) {
	p := sheetWith(7, 5, colorutil.White, colorutil.Black, image.Rect(1, 1, 3, 3))
	cfg := DefaultConfig().WithTolerance(33).With8Way(true).WithAlgorithm(AlgorithmContour).WithNoiseReduction(true, 4)

	gotP, gotCfg, err := decodeRequest(encodeRequest(p, cfg))
	require.NoError(t, err)
	assert.Equal(t, p, gotP)
	assert.Equal(t, 33, gotCfg.Tolerance)
	assert.Equal(t, 8, gotCfg.MinSpriteSize)
	assert.True(t, gotCfg.Use8WayConnectivity)
	assert.True(t, gotCfg.NoiseReduction)
	assert.Equal(t, 4, gotCfg.NoiseThreshold)
	assert.Equal(t, AlgorithmContour, gotCfg.Algorithm)
}

func TestDecodeRequestRejectsShortBuffer(t *testing.T) {
	p := NewPixels(4, 4)
	p.Pix = p.Pix[:10]
	_, _, err := decodeRequest(encodeRequest(p, DefaultConfig()))
	assert.Error(t, err)
}

func TestWorkerDetect(t *testing.T) {
	w := NewWorker()
	defer w.Close()

	p := sheetWith(64, 64, colorutil.White, colorutil.Black, image.Rect(5, 5, 15, 15), image.Rect(40, 40, 50, 50))
	res, err := w.Detect(context.Background(), p, syncConfig())
	require.NoError(t, err)
	require.Len(t, res.Components, 2)
	assert.Equal(t, geometry.NewRect(40, 40, 10, 10), res.Components[1].Rect)
	assert.Equal(t, colorutil.White, res.Background)
	assert.Equal(t, 200, res.ProcessedPixels)
}

func TestWorkerPanicBecomesError(t *testing.T) {
	w := newWorker(func([]byte) []byte { panic("boom") }, 1)
	defer w.Close()

	_, err := w.Detect(context.Background(), NewPixels(2, 2), syncConfig())
	require.Error(t, err)
	var pe *ProcessingError
	assert.ErrorAs(t, err, &pe)
	assert.Contains(t, err.Error(), "boom")
}

func TestWorkerClosed(t *testing.T) {
	w := NewWorker()
	w.Close()
	w.Close()
	_, err := w.Detect(context.Background(), NewPixels(1, 1), syncConfig())
	assert.ErrorIs(t, err, ErrWorkerClosed)
}

func TestWorkerContextCancelled(t *testing.T) {
	block := make(chan struct{})
	w := newWorker(func(b []byte) []byte {
		<-block
		return handleRequest(b)
	}, 1)
	defer w.Close()
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := w.Detect(ctx, NewPixels(1, 1), syncConfig())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWorkersServeRequestsConcurrently(t *testing.T) {
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	w := newWorker(func(b []byte) []byte {
		started <- struct{}{}
		<-release
		return handleRequest(b)
	}, 2)
	defer w.Close()

	errs := make(chan error, 2)
	for range 2 {
		go func() {
			_, err := w.Detect(context.Background(), NewPixels(2, 2), syncConfig())
			errs <- err
		}()
	}
	for range 2 {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			close(release)
			t.Fatal("second request waited for the first")
		}
	}
	close(release)
	for range 2 {
		require.NoError(t, <-errs)
	}
}
