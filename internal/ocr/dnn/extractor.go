package dnn

import (
	"context"
	"image"
	"strconv"

	"gocv.io/x/gocv"

	"github.com/GriffinCanCode/wordlens/internal/errors"
	"github.com/GriffinCanCode/wordlens/internal/geometry"
	"github.com/GriffinCanCode/wordlens/internal/ocr"
	"github.com/GriffinCanCode/wordlens/internal/syncx"
)

const (
	detectSize = 320

	recognizeWidth  = 100
	recognizeHeight = 32
)

var eastOutputs = []string{"feature_fusion/Conv_7/Sigmoid", "feature_fusion/concat_3"}

// Extractor implements ocr.Extractor on top of loaded Models.
type Extractor struct {
	models *Models
}

// NewExtractor wraps models, which the caller keeps ownership of.
func NewExtractor(models *Models) *Extractor {
	return &Extractor{models: models}
}

func (e *Extractor) Name() string { return "dnn" }

// Extract detects text regions, picks the first one containing at and
// returns a single box with its transcription.
func (e *Extractor) Extract(ctx context.Context, img []byte, at geometry.Point) ([]ocr.TextBox, error) {
	src, err := gocv.IMDecode(img, gocv.IMReadColor)
	if err != nil || src.Empty() {
		return nil, errors.Wrap(err, errors.OCRRunFailed, "decode capture")
	}
	defer src.Close()

	dets, err := e.detect(src)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.Cancelled, "extract")
	}

	det, ok := pick(dets, at)
	if !ok {
		return nil, errors.Newf(errors.NoRegionAtPoint, "no text region at %d,%d", at.X, at.Y).
			WithMetadata("regions", strconv.Itoa(len(dets)))
	}

	text, err := e.recognize(src, det.Quad)
	if err != nil {
		return nil, err
	}

	r := det.Quad.Bounds()
	return []ocr.TextBox{{
		Left:       r.Min.X,
		Top:        r.Min.Y,
		Width:      r.Dx(),
		Height:     r.Dy(),
		Text:       text,
		Confidence: float64(det.Score),
	}}, nil
}

// pick returns the first detection whose corner proxy contains p.
func pick(dets []Detection, p geometry.Point) (Detection, bool) {
	for _, d := range dets {
		if d.Quad.Contains(float64(p.X), float64(p.Y)) {
			return d, true
		}
	}
	return Detection{}, false
}

// detect runs EAST and returns suppressed detections in image coordinates.
func (e *Extractor) detect(src gocv.Mat) ([]Detection, error) {
	cfg := e.models.cfg
	blob := gocv.BlobFromImage(src, 1.0, image.Pt(detectSize, detectSize),
		gocv.NewScalar(123.68, 116.78, 103.94, 0), true, false)
	defer blob.Close()

	var candidates []Detection
	err := e.models.detector.With(func(net *gocv.Net) error {
		net.SetInput(blob, "")
		outs := net.ForwardLayers(eastOutputs)
		defer func() {
			for _, m := range outs {
				_ = m.Close()
			}
		}()
		if len(outs) != 2 {
			return errors.Newf(errors.OCRRunFailed, "detector returned %d outputs", len(outs))
		}

		scores, err := outs[0].DataPtrFloat32()
		if err != nil {
			return errors.Wrap(err, errors.OCRRunFailed, "read detector scores")
		}
		geo, err := outs[1].DataPtrFloat32()
		if err != nil {
			return errors.Wrap(err, errors.OCRRunFailed, "read detector geometry")
		}
		dims := outs[0].Size()
		if len(dims) != 4 {
			return errors.Newf(errors.OCRRunFailed, "unexpected detector output shape %v", dims)
		}
		candidates = decodeEAST(scores, geo, dims[2], dims[3], cfg.ConfThreshold)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	sx := float64(src.Cols()) / detectSize
	sy := float64(src.Rows()) / detectSize
	rects := make([]image.Rectangle, len(candidates))
	scores := make([]float32, len(candidates))
	for i, c := range candidates {
		rects[i] = c.Quad.Bounds()
		scores[i] = c.Score
	}

	keep := gocv.NMSBoxes(rects, scores, cfg.ConfThreshold, cfg.NMSThreshold)
	out := make([]Detection, 0, len(keep))
	for _, i := range keep {
		d := candidates[i]
		d.Quad = d.Quad.Scale(sx, sy)
		out = append(out, d)
	}
	return out, nil
}

// recognize rectifies q to the recognizer's input size and decodes it.
func (e *Extractor) recognize(src gocv.Mat, q Quad) (string, error) {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)

	from := gocv.NewPoint2fVectorFromPoints([]gocv.Point2f{
		{X: float32(q[0].X), Y: float32(q[0].Y)},
		{X: float32(q[1].X), Y: float32(q[1].Y)},
		{X: float32(q[2].X), Y: float32(q[2].Y)},
		{X: float32(q[3].X), Y: float32(q[3].Y)},
	})
	defer from.Close()
	to := gocv.NewPoint2fVectorFromPoints([]gocv.Point2f{
		{X: 0, Y: recognizeHeight - 1},
		{X: 0, Y: 0},
		{X: recognizeWidth - 1, Y: 0},
		{X: recognizeWidth - 1, Y: recognizeHeight - 1},
	})
	defer to.Close()

	m := gocv.GetPerspectiveTransform2f(from, to)
	defer m.Close()
	crop := gocv.NewMat()
	defer crop.Close()
	gocv.WarpPerspective(gray, &crop, m, image.Pt(recognizeWidth, recognizeHeight))

	blob := gocv.BlobFromImage(crop, 1.0/127.5, image.Pt(recognizeWidth, recognizeHeight),
		gocv.NewScalar(127.5, 127.5, 127.5, 0), false, false)
	defer blob.Close()

	text, err := syncx.Locked(e.models.recognizer, func(net *gocv.Net) (string, error) {
		net.SetInput(blob, "")
		out := net.Forward("")
		defer out.Close()

		data, err := out.DataPtrFloat32()
		if err != nil {
			return "", errors.Wrap(err, errors.RecognizeFailed, "read recognizer output")
		}
		dims := out.Size()
		if len(dims) != 3 {
			return "", errors.Newf(errors.RecognizeFailed, "unexpected recognizer output shape %v", dims)
		}
		return decodeCTC(data, dims[0], dims[2], e.models.vocab), nil
	})
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", errors.New(errors.RecognizeFailed, "recognizer produced no text")
	}
	return text, nil
}
