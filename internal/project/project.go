// Package project provides project document handling and persistence.
package project

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"sprite-suite/internal/sheet"
)

// ErrNoImage is returned when a document carries no embedded sheet image.
var ErrNoImage = errors.New("project has no embedded image")

// Document is a saved editing session: the frame model, undo history and
// optionally the sheet image as a data URL. Its JSON form is shared by
// project files, the session store and the REST backend.
type Document struct {
	FileName string `json:"fileName"`
	ImageSrc string `json:"imageSrc,omitempty"`

	sheet.Snapshot

	// HistoryStack holds serialized snapshots, oldest first.
	HistoryStack []string `json:"historyStack"`
	HistoryIndex int      `json:"historyIndex"`

	CloudProjectID string `json:"cloudProjectId,omitempty"`
}

// NewID returns a fresh cloud project id.
func NewID() string {
	return "proj_" + uuid.NewString()
}

// New creates an empty document for a sheet file.
func New(fileName string) *Document {
	return &Document{
		FileName:     fileName,
		Snapshot:     sheet.Snapshot{Frames: sheet.Frames{}, Clips: []*sheet.Clip{}, Offsets: sheet.Offsets{}},
		HistoryStack: []string{},
		HistoryIndex: -1,
	}
}

// Capture builds a document from the live state and history. h may be nil.
func Capture(fileName string, s *sheet.State, h *sheet.History) *Document {
	d := New(fileName)
	d.Snapshot = s.Snapshot()
	if d.Clips == nil {
		d.Clips = []*sheet.Clip{}
	}
	if h != nil {
		stack, index := h.Stack()
		for _, raw := range stack {
			d.HistoryStack = append(d.HistoryStack, string(raw))
		}
		d.HistoryIndex = index
	}
	return d
}

// Apply loads the document into a state and history. h may be nil.
func (d *Document) Apply(s *sheet.State, h *sheet.History) {
	snap := d.Snapshot
	if snap.Offsets == nil {
		snap.Offsets = sheet.Offsets{}
	}
	s.Restore(snap)
	if h == nil {
		return
	}
	stack := make([]json.RawMessage, len(d.HistoryStack))
	for i, entry := range d.HistoryStack {
		stack[i] = json.RawMessage(entry)
	}
	h.SetStack(stack, d.HistoryIndex)
}

// Decode parses a document. A missing history index reads as -1.
func Decode(data []byte) (*Document, error) {
	d := Document{HistoryIndex: -1}
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, errors.Wrap(err, "decode project")
	}
	if d.Frames == nil {
		d.Frames = sheet.Frames{}
	}
	if d.Offsets == nil {
		d.Offsets = sheet.Offsets{}
	}
	return &d, nil
}

// Encode serializes the document with two-space indentation.
func (d *Document) Encode() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Load loads a project from a file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Save saves the project to a file.
func (d *Document) Save(path string) error {
	data, err := d.Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// SetImage embeds the sheet image as a base64 data URL.
func (d *Document) SetImage(data []byte, mimeType string) {
	d.ImageSrc = "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Image returns the embedded sheet image and its MIME type.
func (d *Document) Image() ([]byte, string, error) {
	if d.ImageSrc == "" {
		return nil, "", ErrNoImage
	}
	rest, ok := strings.CutPrefix(d.ImageSrc, "data:")
	if !ok {
		return nil, "", errors.Errorf("image source is not a data URL: %.32s", d.ImageSrc)
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", errors.New("malformed data URL")
	}
	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, "", errors.Errorf("unsupported data URL encoding %q", header)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", errors.Wrap(err, "decode image data")
	}
	return data, mimeType, nil
}
