// Package export renders a clip or a whole sheet into downloadable
// artifacts: frame data JSON, CSS animation code, ZIP archives, GIFs, an
// SVG slice map and a repacked grid sheet.
package export

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"sprite-suite/internal/sheet"
	"sprite-suite/internal/version"
	"sprite-suite/pkg/geometry"
)

// ErrUnknownFormat is returned for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown export format")

// JSONFormat selects the layout of the frame data file.
type JSONFormat string

const (
	JSONDefault JSONFormat = "default"
	JSONPhaser3 JSONFormat = "phaser3"
	JSONGodot   JSONFormat = "godot"
)

// ParseJSONFormat accepts default, phaser3 or godot; empty means default.
func ParseJSONFormat(s string) (JSONFormat, error) {
	switch f := JSONFormat(s); f {
	case "":
		return JSONDefault, nil
	case JSONDefault, JSONPhaser3, JSONGodot:
		return f, nil
	}
	return "", errors.Wrapf(ErrUnknownFormat, "json format %q", s)
}

// Meta describes the sheet a frame data file belongs to.
type Meta struct {
	App   string        `json:"app"`
	Image string        `json:"image"`
	Size  geometry.Size `json:"size"`
	Clips []MetaClip    `json:"clips"`
}

// MetaClip is a clip as listed in Meta.
type MetaClip struct {
	Name   string   `json:"name"`
	Frames []string `json:"frames"`
}

// NewMeta builds Meta for an image and its clips.
func NewMeta(image string, size geometry.Size, clips []*sheet.Clip) Meta {
	m := Meta{App: "Sprite Sheet Suite " + version.Version, Image: image, Size: size, Clips: []MetaClip{}}
	for _, c := range clips {
		ids := c.FrameIDs
		if ids == nil {
			ids = []string{}
		}
		m.Clips = append(m.Clips, MetaClip{Name: c.Name, Frames: ids})
	}
	return m
}

type defaultFrame struct {
	Name   string         `json:"name"`
	Rect   geometry.Rect  `json:"rect"`
	Offset geometry.Point `json:"offset"`
}

type defaultDoc struct {
	Meta   Meta           `json:"meta"`
	Frames []defaultFrame `json:"frames"`
}

type phaserFrame struct {
	Frame            geometry.Rect `json:"frame"`
	SpriteSourceSize geometry.Rect `json:"spriteSourceSize"`
	SourceSize       geometry.Size `json:"sourceSize"`
	Pivot            phaserPivot   `json:"pivot"`
}

// phaserPivot fields are null when the frame has no extent on that axis.
type phaserPivot struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

type godotFrame struct {
	Frame  geometry.Rect  `json:"frame"`
	Offset geometry.Point `json:"offset"`
}

type keyedDoc struct {
	Frames orderedFrames `json:"frames"`
	Meta   Meta          `json:"meta"`
}

// orderedFrames is a JSON object keyed by frame name that keeps insertion
// order. A repeated name keeps its first position and its last value.
type orderedFrames struct {
	keys   []string
	values map[string]interface{}
}

func (o *orderedFrames) set(key string, v interface{}) {
	if o.values == nil {
		o.values = map[string]interface{}{}
	}
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

func (o orderedFrames) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(o.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func ratio(a float64, b int) *float64 {
	if b == 0 {
		return nil
	}
	r := a / float64(b)
	return &r
}

// JSON renders the frame data file for every sub-frame, indented with two
// spaces.
func JSON(format JSONFormat, meta Meta, frames []sheet.SubFrame) ([]byte, error) {
	var doc interface{}
	switch format {
	case JSONPhaser3:
		var of orderedFrames
		for _, f := range frames {
			of.set(f.Name, phaserFrame{
				Frame:            f.Rect,
				SpriteSourceSize: geometry.NewRect(0, 0, f.Rect.W, f.Rect.H),
				SourceSize:       geometry.Size{W: f.Rect.W, H: f.Rect.H},
				Pivot:            phaserPivot{X: ratio(f.Offset.X, f.Rect.W), Y: ratio(f.Offset.Y, f.Rect.H)},
			})
		}
		doc = keyedDoc{Frames: of, Meta: meta}
	case JSONGodot:
		var of orderedFrames
		for _, f := range frames {
			of.set(f.Name, godotFrame{Frame: f.Rect, Offset: f.Offset})
		}
		doc = keyedDoc{Frames: of, Meta: meta}
	case JSONDefault, "":
		d := defaultDoc{Meta: meta, Frames: make([]defaultFrame, len(frames))}
		for i, f := range frames {
			d.Frames[i] = defaultFrame{Name: f.Name, Rect: f.Rect, Offset: f.Offset}
		}
		doc = d
	default:
		return nil, errors.Wrapf(ErrUnknownFormat, "json format %q", string(format))
	}
	return json.MarshalIndent(doc, "", "  ")
}

// baseName strips the extension from a file name.
func baseName(fileName string) string {
	if i := strings.IndexByte(fileName, '.'); i >= 0 {
		return fileName[:i]
	}
	return fileName
}

// FileName builds a download name such as "hero_phaser3.json".
func FileName(sheetFile, suffix, ext string) string {
	return baseName(sheetFile) + "_" + suffix + "." + ext
}

// jsNum formats a number the way a browser prints it in a template.
func jsNum(v float64) string {
	return strconv.FormatFloat(v+0, 'f', -1, 64)
}
