package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprite-suite/internal/detect"
	"sprite-suite/internal/store"
	"sprite-suite/internal/version"
)

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	svc := detect.NewService()
	t.Cleanup(svc.Close)
	return New(store.NewProjects(store.NewMemory()), svc,
		WithDetectDefaults(detect.DefaultConfig().WithWorker(false)))
}

func do(t *testing.T, s *Server, method, target, user string, body []byte) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if user != "" {
		req.Header.Set(userHeader, user)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func saveBody(id, name string) []byte {
	return []byte(`{"id":"` + id + `","name":"` + name + `","thumb":"data:image/png;base64,AA==","state":{"fileName":"` + name + `.png","frames":[]}}`)
}

func TestListRequiresUser(t *testing.T) {
	rec, resp := do(t, newTestServer(t), http.MethodGet, "/api/projects", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, userHeader)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestProjectLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec, resp := do(t, s, http.MethodGet, "/api/projects", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(resp.Data))

	rec, resp = do(t, s, http.MethodPost, "/api/projects", "u1", saveBody("p1", "hero"))
	require.Equal(t, http.StatusOK, rec.Code, resp.Error)
	var meta store.Metadata
	require.NoError(t, json.Unmarshal(resp.Data, &meta))
	assert.Equal(t, "p1", meta.ID)
	assert.Equal(t, "hero", meta.Name)
	assert.False(t, meta.UpdatedAt.IsZero())

	do(t, s, http.MethodPost, "/api/projects", "u1", saveBody("p2", "slime"))

	_, resp = do(t, s, http.MethodGet, "/api/projects", "u1", nil)
	var list []store.Metadata
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	require.Len(t, list, 2)
	assert.Equal(t, "p2", list[0].ID)

	rec, resp = do(t, s, http.MethodGet, "/api/projects/p1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"fileName":"hero.png","frames":[]}`, string(resp.Data))

	rec, resp = do(t, s, http.MethodDelete, "/api/projects/p1", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "project deleted", resp.Message)

	rec, _ = do(t, s, http.MethodGet, "/api/projects/p1", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, resp = do(t, s, http.MethodGet, "/api/projects", "u1", nil)
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Len(t, list, 1)
}

func TestSaveProjectRejectsBadBodies(t *testing.T) {
	s := newTestServer(t)

	rec, resp := do(t, s, http.MethodPost, "/api/projects", "u1", []byte(`{"id":`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid request body", resp.Error)

	rec, resp = do(t, s, http.MethodPost, "/api/projects", "u1", []byte(`{"id":"p1","name":"x"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, resp.Error, "state")

	rec, _ = do(t, s, http.MethodPost, "/api/projects", "", saveBody("p1", "x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteRequiresUser(t *testing.T) {
	rec, _ := do(t, newTestServer(t), http.MethodDelete, "/api/projects/p1", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogEvent(t *testing.T) {
	s := newTestServer(t)
	rec, resp := do(t, s, http.MethodPost, "/api/log", "", []byte(`{"eventName":"export_gif","details":{"frames":4}}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "event recorded", resp.Message)

	rec, resp = do(t, s, http.MethodPost, "/api/log", "", []byte(`not json`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
}

func TestVersion(t *testing.T) {
	_, resp := do(t, newTestServer(t), http.MethodGet, "/api/version", "", nil)
	var info version.Info
	require.NoError(t, json.Unmarshal(resp.Data, &info))
	assert.Equal(t, version.Version, info.Version)
}

// sheetPNG is a white 32x8 sheet with three red 4x4 sprites.
func sheetPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.White)
		}
	}
	for _, x0 := range []int{2, 12, 22} {
		for y := 2; y < 6; y++ {
			for x := x0; x < x0+4; x++ {
				img.Set(x, y, color.RGBA{R: 255, A: 255})
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type detectData struct {
	Frames []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
		Rect struct{ X, Y, W, H int }
		Type string `json:"type"`
	} `json:"frames"`
	Width    int           `json:"width"`
	Height   int           `json:"height"`
	Format   string        `json:"format"`
	Stats    *detect.Stats `json:"stats"`
	CellSize *struct{ W, H int }
}

func TestDetect(t *testing.T) {
	rec, resp := do(t, newTestServer(t), http.MethodPost, "/api/detect", "", sheetPNG(t))
	require.Equal(t, http.StatusOK, rec.Code, resp.Error)

	var data detectData
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, 32, data.Width)
	assert.Equal(t, 8, data.Height)
	assert.Equal(t, "png", data.Format)
	require.Len(t, data.Frames, 3)
	for i, f := range data.Frames {
		assert.Equal(t, i, f.ID)
		assert.Equal(t, "simple", f.Type)
		assert.Equal(t, 4, f.Rect.W)
	}
	assert.Equal(t, "sprite_1", data.Frames[1].Name)
	assert.Equal(t, 12, data.Frames[1].Rect.X)
	assert.Nil(t, data.Stats)
}

func TestDetectWithStats(t *testing.T) {
	rec, resp := do(t, newTestServer(t), http.MethodPost, "/api/detect?stats=true&minSpriteSize=4", "", sheetPNG(t))
	require.Equal(t, http.StatusOK, rec.Code, resp.Error)

	var data detectData
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.NotNil(t, data.Stats)
	assert.Equal(t, 3, data.Stats.TotalSprites)
	assert.InDelta(t, 16, data.Stats.AverageSize, 1e-9)
	require.NotNil(t, data.CellSize)
	assert.Equal(t, 4, data.CellSize.W)
	assert.Equal(t, 4, data.CellSize.H)
}

func TestDetectMinSizeDropsSprites(t *testing.T) {
	_, resp := do(t, newTestServer(t), http.MethodPost, "/api/detect?minSpriteSize=17", "", sheetPNG(t))
	var data detectData
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Empty(t, data.Frames)
}

func TestDetectErrors(t *testing.T) {
	s := newTestServer(t)

	rec, resp := do(t, s, http.MethodPost, "/api/detect?tolerance=300", "", sheetPNG(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, resp.Error, "tolerance")

	rec, _ = do(t, s, http.MethodPost, "/api/detect?tolerance=high", "", sheetPNG(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, s, http.MethodPost, "/api/detect?algorithm=magic", "", sheetPNG(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, s, http.MethodPost, "/api/detect", "", []byte("hello, this is text"))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec, _ = do(t, s, http.MethodPost, "/api/detect", "", []byte{0x89, 'P', 'N', 'G', 0, 0, 0, 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDetectBodyLimit(t *testing.T) {
	svc := detect.NewService()
	defer svc.Close()
	s := New(store.NewProjects(store.NewMemory()), svc, WithMaxBody(16))

	rec, resp := do(t, s, http.MethodPost, "/api/detect", "", sheetPNG(t))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.True(t, strings.Contains(resp.Error, "too large"))
}

func TestDetectRefusesOversizedImage(t *testing.T) {
	svc := detect.NewService()
	defer svc.Close()
	s := New(store.NewProjects(store.NewMemory()), svc, WithMaxPixels(1<<20))

	// 2048x2048 of a single gray level compresses to a few kilobytes.
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2048, 2048))))
	require.Less(t, buf.Len(), 64<<10)

	rec, resp := do(t, s, http.MethodPost, "/api/detect", "", buf.Bytes())
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "2048x2048")
	assert.Equal(t, int64(0), svc.ScanCount())
}

func TestDetectAcceptsImageAtPixelLimit(t *testing.T) {
	svc := detect.NewService()
	defer svc.Close()
	s := New(store.NewProjects(store.NewMemory()), svc,
		WithDetectDefaults(detect.DefaultConfig().WithWorker(false)),
		WithMaxPixels(32*8))

	rec, resp := do(t, s, http.MethodPost, "/api/detect", "", sheetPNG(t))
	require.Equal(t, http.StatusOK, rec.Code, resp.Error)
}

func TestDetectConfigFromQuery(t *testing.T) {
	q := map[string][]string{
		"tolerance":           {"25"},
		"use8WayConnectivity": {"true"},
		"useWebWorker":        {"false"},
		"algorithm":           {"contour"},
		"unknown":             {"x"},
	}
	cfg, err := detectConfig(q, detect.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Tolerance)
	assert.True(t, cfg.Use8WayConnectivity)
	assert.False(t, cfg.UseWorker)
	assert.Equal(t, detect.AlgorithmContour, cfg.Algorithm)
	assert.Equal(t, 8, cfg.MinSpriteSize)

	_, err = detectConfig(map[string][]string{"enableCache": {"maybe"}}, detect.DefaultConfig())
	assert.Error(t, err)
}
