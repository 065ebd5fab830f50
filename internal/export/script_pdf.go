/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders parsed Dink scenes into documents meant for people rather than tools.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"dinkwriter/internal/dink"
	applog "dinkwriter/internal/log"

	"github.com/jung-kurt/gofpdf"
)

// PDFOptions controls the readable script layout. Units are millimetres.
type PDFOptions struct {
	PageSize     string  // "A4" (default) or "Letter"
	FontSize     float64 // body size in pt; 0 means 11
	ShowLineIDs  bool
	ShowTags     bool
	ShowComments bool
	// NoCompression leaves page streams readable, e.g. for diffing output.
	NoCompression bool
}

// Color is an RGB triple used for the secondary text.
type Color struct{ R, G, B int }

var (
	mutedColor  = Color{R: 110, G: 110, B: 110}
	headerColor = Color{R: 20, G: 20, B: 20}
)

const (
	marginMM     = 20.0
	characterCol = 38.0
)

// WriteScriptPDF renders scenes as a readable script to outPath, creating the parent directory.
func WriteScriptPDF(scenes []dink.Scene, title, outPath string, opt PDFOptions) error {
	if strings.TrimSpace(outPath) == "" {
		return errors.New("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	var buf bytes.Buffer
	if err := RenderScriptPDF(&buf, scenes, title, opt); err != nil {
		return err
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	applog.WithOperation(applog.WithComponent("export"), "pdf").Info("script pdf written",
		slog.String("path", outPath), slog.Int("scenes", len(scenes)), slog.Int("bytes", buf.Len()))
	return nil
}

// RenderScriptPDF writes the PDF document to w.
func RenderScriptPDF(w io.Writer, scenes []dink.Scene, title string, opt PDFOptions) error {
	size := opt.PageSize
	switch strings.ToLower(size) {
	case "", "a4":
		size = "A4"
	case "letter":
		size = "Letter"
	default:
		return fmt.Errorf("unknown page size %q", opt.PageSize)
	}
	fs := opt.FontSize
	if fs <= 0 {
		fs = 11
	}
	lineH := fs * 0.5

	pdf := gofpdf.New("P", "mm", size, "")
	pdf.SetCompression(!opt.NoCompression)
	pdf.SetMargins(marginMM, marginMM, marginMM)
	pdf.SetAutoPageBreak(true, marginMM)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if title == "" {
		title = "Untitled"
	}
	pdf.SetTitle(title, true)
	pdf.SetCreator("dinkwriter", false)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "", 8)
		setTextColor(pdf, mutedColor)
		pdf.CellFormat(0, 6, fmt.Sprintf("%s - %d", tr(title), pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", fs+8)
	setTextColor(pdf, headerColor)
	pdf.MultiCell(0, fs*0.7, tr(title), "", "L", false)
	pdf.Ln(lineH)

	width, _ := pdf.GetPageSize()
	textCol := width - 2*marginMM - characterCol

	for _, sc := range scenes {
		pdf.SetFont("Helvetica", "B", fs+3)
		setTextColor(pdf, headerColor)
		pdf.Bookmark(sc.SceneID, 0, -1)
		pdf.MultiCell(0, fs*0.6, tr("== "+sc.SceneID), "B", "L", false)
		pdf.Ln(lineH / 2)
		for _, bl := range sc.Blocks {
			if bl.BlockID != "" {
				pdf.SetFont("Helvetica", "B", fs+1)
				pdf.Bookmark(bl.BlockID, 1, -1)
				pdf.MultiCell(0, fs*0.55, tr("= "+bl.BlockID), "", "L", false)
			}
			if opt.ShowComments {
				writeComments(pdf, tr, bl.Comments, fs, lineH)
			}
			group := 0
			var braces []string
			for i, sn := range bl.Snippets {
				if i > 0 {
					pdf.Ln(lineH / 2)
				}
				if g := snippetGroup(sn); g != group {
					group = g
					if g > 0 {
						pdf.SetFont("Helvetica", "BI", fs-1)
						setTextColor(pdf, mutedColor)
						pdf.MultiCell(0, lineH, tr(fmt.Sprintf("Group %d", g)), "", "L", false)
					}
				}
				if opt.ShowComments && !slices.Equal(sn.BraceComments, braces) {
					writeComments(pdf, tr, sn.BraceComments, fs, lineH)
				}
				braces = sn.BraceComments
				for _, bt := range sn.Beats {
					writeBeat(pdf, tr, bt, opt, fs, lineH, textCol)
				}
			}
			pdf.Ln(lineH)
		}
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func writeBeat(pdf *gofpdf.Fpdf, tr func(string) string, bt dink.Beat, opt PDFOptions, fs, lineH, textCol float64) {
	if opt.ShowComments {
		writeComments(pdf, tr, bt.Comments, fs, lineH)
	}
	setTextColor(pdf, headerColor)
	x := pdf.GetX()
	y := pdf.GetY()
	switch bt.Type {
	case dink.BeatAction:
		pdf.SetFont("Helvetica", "I", fs)
		pdf.MultiCell(0, lineH, tr(bt.Text), "", "L", false)
	default:
		name := bt.CharacterID
		if bt.Qualifier != "" {
			name += " (" + bt.Qualifier + ")"
		}
		pdf.SetFont("Helvetica", "B", fs)
		pdf.MultiCell(characterCol, lineH, tr(name), "", "L", false)
		nameBottom := pdf.GetY()
		pdf.SetXY(x+characterCol, y)
		text := bt.Text
		if bt.Direction != "" {
			text = "(" + bt.Direction + ") " + text
		}
		pdf.SetFont("Helvetica", "", fs)
		pdf.MultiCell(textCol, lineH, tr(text), "", "L", false)
		if pdf.GetY() < nameBottom {
			pdf.SetY(nameBottom)
		}
	}
	if meta := beatMeta(bt, opt); meta != "" {
		pdf.SetFont("Helvetica", "", fs-3)
		setTextColor(pdf, mutedColor)
		pdf.SetX(x + characterCol)
		pdf.MultiCell(textCol, lineH*0.8, tr(meta), "", "L", false)
	}
}

func writeComments(pdf *gofpdf.Fpdf, tr func(string) string, comments []string, fs, lineH float64) {
	if len(comments) == 0 {
		return
	}
	pdf.SetFont("Helvetica", "I", fs-2)
	setTextColor(pdf, mutedColor)
	for _, c := range comments {
		pdf.MultiCell(0, lineH, tr("// "+c), "", "L", false)
	}
}

// snippetGroup is the shuffle/cycle group of the snippet's first beat, 0 when it has none.
func snippetGroup(sn dink.Snippet) int {
	if len(sn.Beats) == 0 {
		return 0
	}
	return sn.Beats[0].Group
}

func beatMeta(bt dink.Beat, opt PDFOptions) string {
	var parts []string
	if opt.ShowLineIDs {
		id := bt.LineID
		if id == "" {
			id = "(no id)"
		}
		parts = append(parts, id)
	}
	if opt.ShowTags && len(bt.Tags) > 0 {
		parts = append(parts, "#"+strings.Join(bt.Tags, " #"))
	}
	return strings.Join(parts, "  ")
}

func setTextColor(pdf *gofpdf.Fpdf, c Color) {
	pdf.SetTextColor(c.R, c.G, c.B)
}
