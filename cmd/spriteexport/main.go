// Command spriteexport exports a clip, or a whole sheet, from a saved
// project file.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"sprite-suite/internal/detect"
	"sprite-suite/internal/export"
	"sprite-suite/internal/project"
	"sprite-suite/internal/sheet"
	"sprite-suite/pkg/colorutil"
	"sprite-suite/pkg/geometry"
)

const formats = "json, phaser3, godot, css, zip, codezip, gif, svg, repack"

type options struct {
	projectPath string
	imagePath   string
	clip        string
	format      string
	out         string
	fps         int
	gifSize     int
	transparent bool
	background  string
}

func main() {
	var o options
	flag.StringVar(&o.projectPath, "project", "", "Project file (JSON)")
	flag.StringVar(&o.imagePath, "image", "", "Sheet image; defaults to the image embedded in the project")
	flag.StringVar(&o.clip, "clip", "", "Clip name; defaults to the active clip, or every frame")
	flag.StringVar(&o.format, "format", "json", "Export format: "+formats)
	flag.StringVar(&o.out, "out", "", "Output file; defaults to a name derived from the sheet")
	flag.IntVar(&o.fps, "fps", 12, "Playback rate for css, codezip and gif")
	flag.IntVar(&o.gifSize, "gif-size", export.DefaultGIFSize, "GIF width and height")
	flag.BoolVar(&o.transparent, "transparent", false, "Transparent GIF background")
	flag.StringVar(&o.background, "bg", "#ffffff", "GIF background color")
	flag.Parse()

	if o.projectPath == "" {
		fmt.Println("Usage: spriteexport -project <file> [-clip name] [-format " + strings.ReplaceAll(formats, ", ", "|") + "] [-out path]")
		os.Exit(1)
	}
	if err := run(o); err != nil {
		fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
		os.Exit(1)
	}
}

func run(o options) error {
	doc, err := project.Load(o.projectPath)
	if err != nil {
		return errors.Wrap(err, "load project")
	}
	s := sheet.NewState()
	doc.Apply(s, nil)

	frames, err := selectFrames(s, o.clip)
	if err != nil {
		return err
	}
	sheetName := doc.FileName
	if sheetName == "" {
		sheetName = strings.TrimSuffix(filepath.Base(o.projectPath), filepath.Ext(o.projectPath)) + ".png"
	}

	// The data formats work without pixels.
	img, imgData, err := loadImage(doc, o.imagePath)
	if err != nil && needsPixels(o.format) {
		return err
	}

	var buf bytes.Buffer
	suffix, ext := o.format, o.format
	switch o.format {
	case "json", "phaser3", "godot":
		format := export.JSONDefault
		if o.format != "json" {
			format = export.JSONFormat(o.format)
		}
		size := geometry.Size{}
		if img != nil {
			size = geometry.Size{W: img.Bounds().Dx(), H: img.Bounds().Dy()}
		}
		data, err := export.JSON(format, export.NewMeta(sheetName, size, s.Clips()), frames)
		if err != nil {
			return err
		}
		buf.Write(data)
		suffix, ext = o.format, "json"
		if o.format == "json" {
			suffix = "data"
		}
	case "css":
		_, css, err := export.CSSAnimation(frames, export.CSSOptions{FPS: o.fps, Image: sheetName})
		if err != nil {
			return err
		}
		buf.WriteString(css)
		suffix, ext = "animation", "css"
	case "zip":
		if err := export.FramesZip(&buf, img, frames); err != nil {
			return err
		}
		suffix = "frames"
	case "codezip":
		if err := export.CodeZip(&buf, frames, export.CSSOptions{FPS: o.fps, Image: sheetName}, imgData); err != nil {
			return err
		}
		suffix, ext = "css_animation", "zip"
	case "gif":
		bg, err := colorutil.ParseHex(o.background)
		if err != nil {
			return err
		}
		opts := export.GIFOptions{Width: o.gifSize, Height: o.gifSize, FPS: o.fps, Transparent: o.transparent, Background: bg}
		if err := export.GIF(&buf, img, frames, opts); err != nil {
			return err
		}
		suffix = "animation"
	case "svg":
		b := img.Bounds()
		if err := export.SliceMapSVG(&buf, b.Dx(), b.Dy(), s.Frames(), sheetName); err != nil {
			return err
		}
		suffix = "slices"
	case "repack":
		res, err := export.Repack(img, frames)
		if err != nil {
			return err
		}
		if err := png.Encode(&buf, res.Image); err != nil {
			return errors.Wrap(err, "encode repacked sheet")
		}
		res.Apply(s)
		if err := writeRepackedProject(o, doc, s, res, buf.Bytes()); err != nil {
			return err
		}
		suffix, ext = "repacked", "png"
	default:
		return errors.Wrapf(export.ErrUnknownFormat, "%q (want one of %s)", o.format, formats)
	}

	out := o.out
	if out == "" {
		out = export.FileName(sheetName, suffix, ext)
	}
	if err := os.WriteFile(out, buf.Bytes(), 0644); err != nil {
		return err
	}
	fmt.Printf("Exported %d frames to %s\n", len(frames), out)
	return nil
}

// selectFrames picks the named clip, else the active clip, else all frames.
func selectFrames(s *sheet.State, clipName string) ([]sheet.SubFrame, error) {
	if clipName != "" {
		for _, c := range s.Clips() {
			if c.Name == clipName {
				if err := s.SetActiveClip(c.ID); err != nil {
					return nil, err
				}
				return s.AnimationFrames(), nil
			}
		}
		return nil, errors.Wrapf(sheet.ErrClipNotFound, "%q", clipName)
	}
	s.EnsureDefaultClip()
	if frames := s.AnimationFrames(); len(frames) > 0 {
		return frames, nil
	}
	return s.Flattened(), nil
}

func loadImage(doc *project.Document, path string) (image.Image, []byte, error) {
	var data []byte
	var err error
	if path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, _, err = doc.Image()
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "sheet image")
	}
	pix, _, err := detect.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	return pix.Image(), data, nil
}

func needsPixels(format string) bool {
	switch format {
	case "json", "phaser3", "godot", "css":
		return false
	}
	return true
}

// writeRepackedProject saves the rebuilt frame layout next to the project,
// with the repacked sheet embedded.
func writeRepackedProject(o options, doc *project.Document, s *sheet.State, res *export.RepackResult, sheetPNG []byte) error {
	out := project.Capture(doc.FileName, s, nil)
	out.SetImage(sheetPNG, "image/png")
	path := strings.TrimSuffix(o.projectPath, filepath.Ext(o.projectPath)) + "_repacked.json"
	if err := out.Save(path); err != nil {
		return err
	}
	fmt.Printf("Wrote repacked project %s (%dx%d cells, %dx%d grid)\n", path, res.Cell.W, res.Cell.H, res.Cols, res.Rows)
	return nil
}
