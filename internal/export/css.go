package export

import (
	"fmt"
	"math"
	"strings"

	"sprite-suite/internal/anim"
	"sprite-suite/internal/sheet"
)

// CSSOptions configures the CSS animation demo.
type CSSOptions struct {
	// FPS is the playback rate.
	FPS int
	// Scale enlarges the stage for viewing; 0 means 2.
	Scale float64
	// Image is the sheet file name referenced by the stylesheet.
	Image string
}

const cssHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Sprite Animation</title>
    <link rel="stylesheet" href="style.css">
</head>
<body>
    <div class="stage">
        <div class="sprite"></div>
    </div>
</body>
</html>`

// CSSAnimation renders an HTML page and stylesheet that play the clip with
// a stepped keyframe animation. The stage is the clip's bounding box and
// every keyframe translates the frame by its offset.
func CSSAnimation(frames []sheet.SubFrame, opts CSSOptions) (html, css string, err error) {
	box, err := anim.BoundingBox(frames)
	if err != nil {
		return "", "", err
	}
	if opts.Scale <= 0 {
		opts.Scale = 2
	}
	player := anim.NewPlayer(opts.FPS, len(frames))
	stageW := int(roundHalfUp(box.Width()))
	stageH := int(roundHalfUp(box.Height()))
	n := len(frames)

	var steps strings.Builder
	for i, f := range frames {
		pct := float64(i) / float64(n) * 100
		t := anim.Translate(f, box)
		steps.WriteString(keyframe(fmt.Sprintf("%.2f%%", pct), f, t.X, t.Y))
		steps.WriteByte('\n')
	}
	last := frames[n-1]
	lt := anim.Translate(last, box)

	var b strings.Builder
	fmt.Fprintf(&b, `/* Demo page */
body {
    display: grid;
    place-content: center;
    min-height: 100vh;
    background-color: #2c3e50;
    margin: 0;
}

/* The stage the animation plays on */
.stage {
    padding: 2rem;
    background-color: #1a252f;
    border-radius: 8px;
    border: 2px solid #55687a;
    transform: scale(%s);
    transform-origin: center center;
}

/* The sprite container is the size of the whole animation */
.sprite {
    width: %dpx;
    height: %dpx;
    position: relative;
    overflow: hidden;
}

/* The visible frame, positioned inside the container */
.sprite::before {
    content: '';
    position: absolute;
    left: 0;
    top: 0;
    width: %dpx;
    height: %dpx;
    background-image: url('%s');
    background-repeat: no-repeat;
    image-rendering: pixelated;
    image-rendering: crisp-edges;
    animation: play %.2fs steps(1, end) infinite;
}

@keyframes play {
%s%s
}`,
		jsNum(opts.Scale), stageW, stageH,
		frames[0].Rect.W, frames[0].Rect.H, opts.Image,
		player.Duration().Seconds(),
		steps.String(), keyframe("100%", last, lt.X, lt.Y))
	return cssHTML, b.String(), nil
}

func keyframe(label string, f sheet.SubFrame, tx, ty float64) string {
	return fmt.Sprintf("    %s { width: %dpx; height: %dpx; background-position: -%dpx -%dpx; transform: translate(%spx, %spx); }",
		label, f.Rect.W, f.Rect.H, f.Rect.X, f.Rect.Y, jsNum(tx), jsNum(ty))
}

// roundHalfUp rounds .5 toward positive infinity.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
