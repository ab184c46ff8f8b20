package reports

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding selects the byte encoding of a CSV export.
type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingWindows1252 Encoding = "windows-1252" // what Excel on Spanish-locale Windows opens by default
)

func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "utf-8", "utf8":
		return EncodingUTF8, nil
	case "windows-1252", "cp1252", "latin1":
		return EncodingWindows1252, nil
	}
	return "", fmt.Errorf("unsupported encoding %q", s)
}

func (e Encoding) encoder() *encoding.Encoder {
	if e == EncodingWindows1252 {
		// unmappable runes are replaced
		return encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder())
	}
	return unicode.UTF8.NewEncoder()
}

var csvHeader = []string{
	"folio", "fecha", "carrera", "materia", "docente", "practica",
	"ubicacion", "importancia", "estado", "renglones", "unidades", "usuario", "observacion",
}

// csvExporter writes summaries as CSV rows, converting timestamps to loc.
type csvExporter struct {
	w   *csv.Writer
	tw  io.WriteCloser
	loc *time.Location
}

func newCSVExporter(dst io.Writer, enc Encoding, loc *time.Location) (*csvExporter, error) {
	tw := transform.NewWriter(dst, enc.encoder())
	w := csv.NewWriter(tw)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	return &csvExporter{w: w, tw: tw, loc: loc}, nil
}

func (e *csvExporter) write(rows []LoanSummary) error {
	for _, s := range rows {
		record := []string{
			s.Folio,
			s.CreatedAt.In(e.loc).Format("2006-01-02 15:04"),
			s.CareerName,
			s.SubjectName,
			s.TeacherName,
			s.PracticeName,
			s.Location,
			string(s.Importance),
			string(s.State),
			strconv.Itoa(s.LineCount),
			strconv.Itoa(s.UnitCount),
			s.Username,
			s.Observation,
		}
		if err := e.w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func (e *csvExporter) close() error {
	e.w.Flush()
	if err := e.w.Error(); err != nil {
		return err
	}
	return e.tw.Close()
}
