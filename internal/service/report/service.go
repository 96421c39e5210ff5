// Package report 把问诊会话导出为可下载的 PDF 报告。
package report

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/signintech/gopdf"

	"github.com/zhouzirui/z-clinic/backend/internal/model/chat"
)

// ErrFontUnavailable reports that no usable TTF font exists on this host.
var ErrFontUnavailable = errors.New("report: no usable TTF font found")

// DejaVuSans covers Latin, Cyrillic and the Indic scripts the chat can emit.
// Paths cover Debian, Fedora, Alpine and Arch layouts.
var defaultFontPaths = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
}

const (
	fontName  = "DejaVu"
	wrapWidth = 500
	// A4 is 842pt tall; past this Y the next line moves to a fresh page.
	breakY  = 790
	resumeY = 40
)

// Service renders consultation transcripts. Safe for concurrent use; every
// call builds its own document.
type Service struct {
	fontPaths []string
}

func NewService() *Service {
	return &Service{fontPaths: defaultFontPaths}
}

// Transcript renders the whole session as an A4 PDF and returns the bytes.
// Fails with ErrFontUnavailable when the host has no DejaVuSans installed.
func (s *Service) Transcript(session chat.Session) ([]byte, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := s.loadFont(pdf); err != nil {
		return nil, err
	}

	if err := pdf.SetFont(fontName, "", 20); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Medical Consultation Transcript")
	pdf.Br(30)

	if err := pdf.SetFont(fontName, "", 11); err != nil {
		return nil, err
	}
	meta := []string{
		fmt.Sprintf("Session: %s", session.ID),
		fmt.Sprintf("Started: %s", session.CreatedAt.Format("2006-01-02 15:04 MST")),
		fmt.Sprintf("Last active: %s", session.LastActiveAt.Format("2006-01-02 15:04 MST")),
		fmt.Sprintf("Turns: %d", session.TurnCount()),
	}
	if session.LastDetectedLanguage != "" {
		meta = append(meta, fmt.Sprintf("Language: %s", session.LastDetectedLanguage))
	}
	for _, line := range meta {
		pdf.Cell(nil, line)
		pdf.Br(15)
	}
	pdf.Br(10)

	if len(session.Turns) == 0 {
		pdf.Cell(nil, "No messages were exchanged in this session.")
		pdf.Br(13)
	}
	for _, turn := range session.Turns {
		if err := writeTurn(pdf, turn); err != nil {
			return nil, err
		}
	}

	pdf.Br(20)
	if err := pdf.SetFont(fontName, "", 9); err != nil {
		return nil, err
	}
	writeWrapped(pdf, "This consultation is for educational purposes only and should not replace professional medical advice.", 12)

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Service) loadFont(pdf *gopdf.GoPdf) error {
	var lastErr error
	for _, path := range s.fontPaths {
		if err := pdf.AddTTFFont(fontName, path); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return fmt.Errorf("%w: %v", ErrFontUnavailable, lastErr)
}

func writeTurn(pdf *gopdf.GoPdf, turn chat.Turn) error {
	if err := pdf.SetFont(fontName, "", 12); err != nil {
		return err
	}
	writeWrapped(pdf, fmt.Sprintf("%s  [%s]", speakerLabel(turn.Speaker), turn.Timestamp.Format("15:04:05")), 14)

	if err := pdf.SetFont(fontName, "", 11); err != nil {
		return err
	}
	writeWrapped(pdf, turn.Text, 13)
	pdf.Br(8)
	return nil
}

// writeWrapped 按页面宽度折行输出，碰到页底自动换页。
func writeWrapped(pdf *gopdf.GoPdf, text string, lineHeight float64) {
	for _, paragraph := range strings.Split(text, "\n") {
		if paragraph == "" {
			pdf.Br(lineHeight)
			continue
		}
		lines, err := pdf.SplitText(paragraph, wrapWidth)
		if err != nil {
			lines = []string{paragraph}
		}
		for _, line := range lines {
			if pdf.GetY() > breakY {
				pdf.AddPage()
				pdf.SetY(resumeY)
			}
			pdf.Cell(nil, line)
			pdf.Br(lineHeight)
		}
	}
}

func speakerLabel(speaker string) string {
	switch speaker {
	case chat.SpeakerUser:
		return "Patient"
	case chat.SpeakerAssistant:
		return "Doctor"
	default:
		return speaker
	}
}
