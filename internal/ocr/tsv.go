package ocr

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/wordlens/internal/errors"
)

// Tesseract TSV columns:
// level page_num block_num par_num line_num word_num left top width height conf text
const (
	tsvColumns = 12
	colLeft    = 6
	colTop     = 7
	colWidth   = 8
	colHeight  = 9
	colConf    = 10
	colText    = 11
)

// ParseTSV converts tesseract TSV output into text boxes in row order.
// Structural rows (page, block, paragraph, line) carry conf -1 and are
// kept; WordLocator never selects them because of their confidence.
func ParseTSV(data []byte) ([]TextBox, error) {
	var boxes []TextBox
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for sc.Scan() {
		line++
		row := strings.TrimRight(sc.Text(), "\r")
		if row == "" || strings.HasPrefix(row, "level\t") {
			continue
		}
		cols := strings.Split(row, "\t")
		if len(cols) != tsvColumns {
			return nil, errors.Newf(errors.OCRRunFailed, "tsv row %d has %d columns, want %d", line, len(cols), tsvColumns)
		}
		box, err := parseRow(cols)
		if err != nil {
			return nil, errors.Wrapf(err, errors.OCRRunFailed, "tsv row %d", line)
		}
		boxes = append(boxes, box)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.OCRRunFailed, "read tsv")
	}
	return boxes, nil
}

func parseRow(cols []string) (TextBox, error) {
	var ints [4]int
	for i, c := range []int{colLeft, colTop, colWidth, colHeight} {
		v, err := strconv.Atoi(cols[c])
		if err != nil {
			return TextBox{}, err
		}
		ints[i] = v
	}
	conf, err := strconv.ParseFloat(cols[colConf], 64)
	if err != nil {
		return TextBox{}, err
	}
	return TextBox{
		Left:       ints[0],
		Top:        ints[1],
		Width:      ints[2],
		Height:     ints[3],
		Text:       cols[colText],
		Confidence: conf / 100,
	}, nil
}
