package export

import (
	"image"
	"image/png"
	"io"

	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"

	"sprite-suite/internal/sheet"
)

// frameFileName is the archive entry for one aligned frame.
func frameFileName(f sheet.SubFrame) string {
	if f.Name != "" {
		return f.Name + ".png"
	}
	return "frame_" + f.ID + ".png"
}

// FramesZip writes a ZIP with one PNG per clip frame, each aligned on the
// clip's bounding box. A repeated file name is written once, with the
// content of its last occurrence.
func FramesZip(w io.Writer, img image.Image, frames []sheet.SubFrame) error {
	aligned, err := AlignedFrames(img, frames)
	if err != nil {
		return err
	}
	var order []string
	latest := map[string]int{}
	for i, f := range frames {
		name := frameFileName(f)
		if _, ok := latest[name]; !ok {
			order = append(order, name)
		}
		latest[name] = i
	}

	zw := zip.NewWriter(w)
	for _, name := range order {
		fw, err := zw.Create(name)
		if err != nil {
			return errors.Wrapf(err, "create %s", name)
		}
		if err := png.Encode(fw, aligned[latest[name]]); err != nil {
			return errors.Wrapf(err, "encode %s", name)
		}
	}
	return errors.Wrap(zw.Close(), "close zip")
}

// CodeZip writes index.html, style.css and, when sheetData is given, the
// sheet image under opts.Image.
func CodeZip(w io.Writer, frames []sheet.SubFrame, opts CSSOptions, sheetData []byte) error {
	html, css, err := CSSAnimation(frames, opts)
	if err != nil {
		return err
	}
	zw := zip.NewWriter(w)
	files := []struct {
		name string
		data []byte
	}{
		{"index.html", []byte(html)},
		{"style.css", []byte(css)},
	}
	if sheetData != nil {
		name := opts.Image
		if name == "" {
			name = "spritesheet.png"
		}
		files = append(files, struct {
			name string
			data []byte
		}{name, sheetData})
	}
	for _, f := range files {
		fw, err := zw.Create(f.name)
		if err != nil {
			return errors.Wrapf(err, "create %s", f.name)
		}
		if _, err := fw.Write(f.data); err != nil {
			return errors.Wrapf(err, "write %s", f.name)
		}
	}
	return errors.Wrap(zw.Close(), "close zip")
}
