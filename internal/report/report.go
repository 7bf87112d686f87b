// Package report renders a checklist run as a PDF summary suitable for
// archiving or handing off after submission.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/tenkenlab/tenken/backend/internal/checklist"
	"github.com/tenkenlab/tenken/backend/internal/draft"
)

var errNilDraft = errors.New("report: draft has no sections")

// fontPathEnv overrides font discovery with an explicit TrueType file.
const fontPathEnv = "TENKEN_PDF_FONT"

// RunSummary bundles everything the PDF needs about one run.
type RunSummary struct {
	Selection   draft.SiteSelection
	Draft       checklist.Draft
	SubmittedAt time.Time
	Inspector   string
}

// Generate renders the run summary and returns the encoded PDF bytes.
func Generate(summary RunSummary) ([]byte, error) {
	if len(summary.Draft.Sections) == 0 {
		return nil, errNilDraft
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 14, 14)
	pdf.SetAutoPageBreak(true, 14)
	pdf.SetTitle("Inspection Run Report", false)

	fontFamily, utf8OK := initUnicodeFont(pdf)

	pdf.AddPage()

	pdf.SetFont(fontFamily, "B", 16)
	pdf.CellFormat(0, 9, "Inspection Run Report", "", 1, "L", false, 0, "")

	pdf.SetFont(fontFamily, "", 10)
	pdf.SetTextColor(60, 60, 60)
	if !summary.SubmittedAt.IsZero() {
		pdf.CellFormat(0, 6, fmt.Sprintf("Submitted at: %s", summary.SubmittedAt.Format("2006-01-02 15:04:05")), "", 1, "L", false, 0, "")
	}
	if strings.TrimSpace(summary.Inspector) != "" {
		pdf.CellFormat(0, 6, fmt.Sprintf("Inspector: %s", safeText(summary.Inspector, utf8OK)), "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)

	sectionTitle(pdf, fontFamily, "Site")
	kv(pdf, fontFamily, utf8OK, "Organization", summary.Selection.Organization)
	kv(pdf, fontFamily, utf8OK, "Business Unit", summary.Selection.BusinessUnit)
	kv(pdf, fontFamily, utf8OK, "Brand", firstNonEmpty(summary.Selection.BrandLabel, summary.Selection.Brand))
	kv(pdf, fontFamily, utf8OK, "Site", firstNonEmpty(summary.Selection.SiteLabel, summary.Selection.SiteID))
	pdf.Ln(2)

	sectionTitle(pdf, fontFamily, "Results")
	counts := stateCounts(summary.Draft)
	kv(pdf, fontFamily, utf8OK, "OK", fmt.Sprintf("%d", counts[checklist.StateOK]))
	kv(pdf, fontFamily, utf8OK, "NG", fmt.Sprintf("%d", counts[checklist.StateNG]))
	kv(pdf, fontFamily, utf8OK, "Hold", fmt.Sprintf("%d", counts[checklist.StateHold]))
	kv(pdf, fontFamily, utf8OK, "N/A", fmt.Sprintf("%d", counts[checklist.StateNA]))
	kv(pdf, fontFamily, utf8OK, "Unset", fmt.Sprintf("%d", counts[checklist.StateUnset]))
	pdf.Ln(2)

	if !utf8OK {
		pdf.SetFont(fontFamily, "", 9)
		pdf.SetTextColor(120, 80, 0)
		pdf.MultiCell(0, 4.5, "- unicode font not available; non-ascii text replaced with '?'", "", "L", false)
		pdf.Ln(2)
	}

	for i, section := range summary.Draft.Sections {
		sectionTitle(pdf, fontFamily, fmt.Sprintf("%d. %s", i+1, safeText(section.Title, utf8OK)))
		for _, item := range section.Items {
			pdf.SetFont(fontFamily, "B", 10)
			pdf.SetTextColor(20, 20, 20)
			pdf.CellFormat(14, 5.2, stateBadge(item.State), "", 0, "L", false, 0, "")
			pdf.SetFont(fontFamily, "", 10)
			pdf.MultiCell(0, 5.2, safeText(item.Label, utf8OK), "", "L", false)
			if strings.TrimSpace(item.Note) != "" {
				kvIndent(pdf, fontFamily, utf8OK, "Note", item.Note)
			}
			if strings.TrimSpace(item.HoldNote) != "" {
				kvIndent(pdf, fontFamily, utf8OK, "Hold Note", item.HoldNote)
			}
			if n := len(item.Photos); n > 0 {
				kvIndent(pdf, fontFamily, utf8OK, "Photos", fmt.Sprintf("%d attached", n))
			}
		}
		pdf.Ln(2)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("report: encode pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func stateCounts(d checklist.Draft) map[checklist.ItemState]int {
	counts := map[checklist.ItemState]int{}
	for _, section := range d.Sections {
		for _, item := range section.Items {
			counts[item.State]++
		}
	}
	return counts
}

func stateBadge(state checklist.ItemState) string {
	switch state {
	case checklist.StateOK:
		return "[OK]"
	case checklist.StateNG:
		return "[NG]"
	case checklist.StateHold:
		return "[HOLD]"
	case checklist.StateNA:
		return "[N/A]"
	default:
		return "[ - ]"
	}
}

func sectionTitle(pdf *gofpdf.Fpdf, fontFamily, title string) {
	pdf.SetFont(fontFamily, "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 7, title, "", 1, "L", false, 0, "")
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(pdf.GetX(), pdf.GetY(), 200, pdf.GetY())
	pdf.Ln(2)
}

func kv(pdf *gofpdf.Fpdf, fontFamily string, utf8OK bool, key, value string) {
	if strings.TrimSpace(value) == "" {
		value = "-"
	}
	pdf.SetFont(fontFamily, "B", 10)
	pdf.SetTextColor(30, 30, 30)
	pdf.CellFormat(36, 5.2, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 10)
	pdf.SetTextColor(20, 20, 20)
	pdf.MultiCell(0, 5.2, safeText(value, utf8OK), "", "L", false)
}

func kvIndent(pdf *gofpdf.Fpdf, fontFamily string, utf8OK bool, key, value string) {
	pdf.SetFont(fontFamily, "", 9)
	pdf.SetTextColor(90, 90, 90)
	pdf.CellFormat(14, 4.6, "", "", 0, "L", false, 0, "")
	pdf.MultiCell(0, 4.6, fmt.Sprintf("%s: %s", key, safeText(value, utf8OK)), "", "L", false)
}

// safeText keeps PDF generation alive when no unicode font could be
// loaded: non-ASCII runes degrade to '?' instead of corrupting output.
func safeText(s string, utf8OK bool) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	s = strings.TrimSpace(s)
	if utf8OK {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 32 && r <= 126 {
			b.WriteRune(r)
		} else {
			b.WriteRune('?')
		}
	}
	return b.String()
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

// initUnicodeFont loads a TrueType font so Japanese checklist labels
// survive the render. Falls back to the Helvetica core font, in which
// case safeText replaces non-ASCII runes.
func initUnicodeFont(pdf *gofpdf.Fpdf) (family string, utf8OK bool) {
	const familyName = "unicode"

	candidates := []string{}
	if v := strings.TrimSpace(os.Getenv(fontPathEnv)); v != "" {
		candidates = append(candidates, v)
	}
	switch runtime.GOOS {
	case "darwin":
		candidates = append(candidates,
			"/System/Library/Fonts/Supplemental/Arial Unicode.ttf",
			"/System/Library/Fonts/Supplemental/AppleGothic.ttf",
		)
	case "windows":
		candidates = append(candidates,
			`C:\Windows\Fonts\arialuni.ttf`,
			`C:\Windows\Fonts\msgothic.ttc`,
		)
	default:
		candidates = append(candidates,
			"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
			"/usr/share/fonts/truetype/noto/NotoSansCJK-Regular.ttc",
			"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
		)
	}

	for _, p := range candidates {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		pdf.AddUTF8Font(familyName, "", p)
		if pdf.Err() {
			pdf.ClearError()
			continue
		}
		pdf.AddUTF8Font(familyName, "B", p)
		if pdf.Err() {
			pdf.ClearError()
		}
		return familyName, true
	}
	return "Helvetica", false
}
