package detect

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"sprite-suite/pkg/colorutil"
	"sprite-suite/pkg/geometry"
)

// ErrWorkerClosed is returned by a Worker after Close.
var ErrWorkerClosed = errors.New("detection worker closed")

// Request fields.
const (
	reqWidth protowire.Number = iota + 1
	reqHeight
	reqPixels
	reqTolerance
	reqMinSpriteSize
	reqUse8Way
	reqNoiseReduction
	reqNoiseThreshold
	reqAlgorithm
)

// Response fields.
const (
	respSuccess protowire.Number = iota + 1
	respComponent
	respProcessed
	respTotal
	respError
	respBackground
)

// Component fields.
const (
	compX protowire.Number = iota + 1
	compY
	compW
	compH
	compPixels
)

type job struct {
	payload []byte
	reply   chan []byte
}

// Worker runs detection on a pool of background goroutines fed from one
// job queue. Requests and replies cross the boundary as protobuf
// wire-format messages, one reply per request, so the worker never shares
// memory with its caller.
type Worker struct {
	jobs    chan job
	done    chan struct{}
	once    sync.Once
	process func([]byte) []byte
}

// NewWorker starts one worker goroutine per CPU.
func NewWorker() *Worker {
	return NewWorkers(runtime.NumCPU())
}

// NewWorkers starts n worker goroutines (at least one).
func NewWorkers(n int) *Worker {
	return newWorker(handleRequest, n)
}

func newWorker(process func([]byte) []byte, n int) *Worker {
	w := &Worker{
		jobs:    make(chan job),
		done:    make(chan struct{}),
		process: process,
	}
	for range max(n, 1) {
		go w.loop()
	}
	return w
}

func (w *Worker) loop() {
	for {
		select {
		case j := <-w.jobs:
			j.reply <- w.safeProcess(j.payload)
		case <-w.done:
			return
		}
	}
}

func (w *Worker) safeProcess(payload []byte) (out []byte) {
	defer func() {
		if r := recover(); r != nil {
			out = encodeResponse(ScanResult{}, fmt.Errorf("worker panic: %v", r))
		}
	}()
	return w.process(payload)
}

// Detect sends one request and waits for its reply.
func (w *Worker) Detect(ctx context.Context, p *Pixels, cfg Config) (ScanResult, error) {
	select {
	case <-w.done:
		return ScanResult{}, ErrWorkerClosed
	default:
	}
	j := job{payload: encodeRequest(p, cfg), reply: make(chan []byte, 1)}
	select {
	case w.jobs <- j:
	case <-w.done:
		return ScanResult{}, ErrWorkerClosed
	case <-ctx.Done():
		return ScanResult{}, ctx.Err()
	}
	select {
	case b := <-j.reply:
		return decodeResponse(b)
	case <-ctx.Done():
		return ScanResult{}, ctx.Err()
	}
}

// Close stops the worker goroutines.
func (w *Worker) Close() {
	w.once.Do(func() { close(w.done) })
}

// handleRequest is the worker side: decode, run, encode.
func handleRequest(payload []byte) []byte {
	p, cfg, err := decodeRequest(payload)
	if err != nil {
		return encodeResponse(ScanResult{}, err)
	}
	return encodeResponse(Run(p, cfg), nil)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	return appendVarint(b, num, protowire.EncodeBool(v))
}

func encodeRequest(p *Pixels, cfg Config) []byte {
	b := make([]byte, 0, len(p.Pix)+64)
	b = appendVarint(b, reqWidth, uint64(p.Width))
	b = appendVarint(b, reqHeight, uint64(p.Height))
	b = protowire.AppendTag(b, reqPixels, protowire.BytesType)
	b = protowire.AppendBytes(b, p.Pix)
	b = appendVarint(b, reqTolerance, uint64(cfg.Tolerance))
	b = appendVarint(b, reqMinSpriteSize, uint64(cfg.MinSpriteSize))
	b = appendBool(b, reqUse8Way, cfg.Use8WayConnectivity)
	b = appendBool(b, reqNoiseReduction, cfg.NoiseReduction)
	b = appendVarint(b, reqNoiseThreshold, uint64(cfg.NoiseThreshold))
	b = protowire.AppendTag(b, reqAlgorithm, protowire.BytesType)
	b = protowire.AppendString(b, string(cfg.Algorithm))
	return b
}

// fieldFunc handles one decoded field and returns the bytes consumed, or
// a negative protowire error code.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) int

func walkFields(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errors.Wrap(protowire.ParseError(n), "read tag")
		}
		b = b[n:]
		n = fn(num, typ, b)
		if n < 0 {
			return errors.Wrapf(protowire.ParseError(n), "read field %d", num)
		}
		b = b[n:]
	}
	return nil
}

func consumeVarint(typ protowire.Type, b []byte, dst *uint64) int {
	if typ != protowire.VarintType {
		return -1
	}
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = v
	}
	return n
}

func consumeBytes(typ protowire.Type, b []byte, dst *[]byte) int {
	if typ != protowire.BytesType {
		return -1
	}
	v, n := protowire.ConsumeBytes(b)
	if n >= 0 {
		*dst = v
	}
	return n
}

func decodeRequest(b []byte) (*Pixels, Config, error) {
	var (
		w, h, tol, minSize, use8, noise, noiseThr uint64
		pix, algo                                 []byte
	)
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case reqWidth:
			return consumeVarint(typ, b, &w)
		case reqHeight:
			return consumeVarint(typ, b, &h)
		case reqPixels:
			return consumeBytes(typ, b, &pix)
		case reqTolerance:
			return consumeVarint(typ, b, &tol)
		case reqMinSpriteSize:
			return consumeVarint(typ, b, &minSize)
		case reqUse8Way:
			return consumeVarint(typ, b, &use8)
		case reqNoiseReduction:
			return consumeVarint(typ, b, &noise)
		case reqNoiseThreshold:
			return consumeVarint(typ, b, &noiseThr)
		case reqAlgorithm:
			return consumeBytes(typ, b, &algo)
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
	if err != nil {
		return nil, Config{}, errors.Wrap(err, "decode request")
	}
	p := &Pixels{Width: int(w), Height: int(h), Pix: append([]byte(nil), pix...)}
	if !p.valid() {
		return nil, Config{}, errors.Errorf("decode request: %d pixel bytes for %dx%d image", len(pix), w, h)
	}
	cfg := Config{
		Tolerance:           int(tol),
		MinSpriteSize:       int(minSize),
		Use8WayConnectivity: protowire.DecodeBool(use8),
		NoiseReduction:      protowire.DecodeBool(noise),
		NoiseThreshold:      int(noiseThr),
		Algorithm:           Algorithm(algo),
	}
	return p, cfg, nil
}

func encodeResponse(res ScanResult, err error) []byte {
	var b []byte
	b = appendBool(b, respSuccess, err == nil)
	if err != nil {
		b = protowire.AppendTag(b, respError, protowire.BytesType)
		return protowire.AppendString(b, err.Error())
	}
	for _, c := range res.Components {
		var m []byte
		m = appendVarint(m, compX, uint64(c.Rect.X))
		m = appendVarint(m, compY, uint64(c.Rect.Y))
		m = appendVarint(m, compW, uint64(c.Rect.W))
		m = appendVarint(m, compH, uint64(c.Rect.H))
		m = appendVarint(m, compPixels, uint64(c.PixelCount))
		b = protowire.AppendTag(b, respComponent, protowire.BytesType)
		b = protowire.AppendBytes(b, m)
	}
	b = appendVarint(b, respProcessed, uint64(res.ProcessedPixels))
	b = appendVarint(b, respTotal, uint64(res.TotalPixels))
	bg := res.Background
	b = appendVarint(b, respBackground, uint64(bg.R)<<24|uint64(bg.G)<<16|uint64(bg.B)<<8|uint64(bg.A))
	return b
}

func decodeComponent(b []byte) (Component, error) {
	var x, y, w, h, n uint64
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case compX:
			return consumeVarint(typ, b, &x)
		case compY:
			return consumeVarint(typ, b, &y)
		case compW:
			return consumeVarint(typ, b, &w)
		case compH:
			return consumeVarint(typ, b, &h)
		case compPixels:
			return consumeVarint(typ, b, &n)
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
	return Component{Rect: geometry.NewRect(int(x), int(y), int(w), int(h)), PixelCount: int(n)}, err
}

func decodeResponse(b []byte) (ScanResult, error) {
	var (
		res            ScanResult
		success        uint64
		processed, tot uint64
		bg             uint64
		msg            []byte
		compErr        error
	)
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case respSuccess:
			return consumeVarint(typ, b, &success)
		case respComponent:
			var m []byte
			n := consumeBytes(typ, b, &m)
			if n >= 0 {
				c, err := decodeComponent(m)
				if err != nil && compErr == nil {
					compErr = err
				}
				res.Components = append(res.Components, c)
			}
			return n
		case respProcessed:
			return consumeVarint(typ, b, &processed)
		case respTotal:
			return consumeVarint(typ, b, &tot)
		case respError:
			return consumeBytes(typ, b, &msg)
		case respBackground:
			return consumeVarint(typ, b, &bg)
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
	if err == nil {
		err = compErr
	}
	if err != nil {
		return ScanResult{}, &ProcessingError{Stage: "decode worker response", Err: err}
	}
	if !protowire.DecodeBool(success) {
		return ScanResult{}, &ProcessingError{Stage: "worker", Err: errors.New(string(msg))}
	}
	res.ProcessedPixels = int(processed)
	res.TotalPixels = int(tot)
	res.Background = colorutil.RGBA{R: uint8(bg >> 24), G: uint8(bg >> 16), B: uint8(bg >> 8), A: uint8(bg)}
	return res, nil
}
