package trajectory

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"readout/fault"
)

// csvHeader is the column layout written by the external solver.
var csvHeader = []string{"t", "re0", "im0", "re1", "im1"}

// CSV is a Model backed by traces exported from an external solver.
// The file fixes its own time grid.
type CSV struct {
	Grid TimeGrid
	zero Trace
	one  Trace
}

// LoadCSV reads a trace file from path.
func LoadCSV(path string) (*CSV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fault.Configuration("trajectory", "open trace file").Wrap(err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses traces with header t,re0,im0,re1,im1.
func ReadCSV(r io.Reader) (*CSV, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fault.Configuration("trajectory", "read trace header").Wrap(err)
	}
	for i, col := range csvHeader {
		if strings.ToLower(strings.TrimSpace(header[i])) != col {
			return nil, fault.Configuration("trajectory", "trace column %d is %q, want %q", i, header[i], col)
		}
	}

	m := &CSV{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fault.Configuration("trajectory", "read trace row").Wrap(err)
		}
		var v [5]float64
		for i, field := range rec {
			v[i], err = strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fault.Configuration("trajectory", "line %d column %s", line, csvHeader[i]).Wrap(err)
			}
		}
		m.Grid = append(m.Grid, v[0])
		m.zero = append(m.zero, complex(v[1], v[2]))
		m.one = append(m.one, complex(v[3], v[4]))
	}
	if err := m.Grid.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *CSV) Trace(state uint8, grid TimeGrid) (Trace, error) {
	if len(grid) != len(m.Grid) {
		return nil, fault.Configuration("trajectory", "trace file has %d samples, grid has %d", len(m.Grid), len(grid))
	}
	for i := range grid {
		if grid[i] != m.Grid[i] {
			return nil, fault.Configuration("trajectory", "grid differs from trace file at sample %d", i)
		}
	}
	var src Trace
	switch state {
	case 0:
		src = m.zero
	case 1:
		src = m.one
	default:
		return nil, fault.Configuration("trajectory", "state %d is not a logical bit", state)
	}
	return append(Trace(nil), src...), nil
}

// WriteCSV writes traces in the layout ReadCSV accepts.
func WriteCSV(w io.Writer, e *Expected) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for i, t := range e.Grid {
		z, o := e.Zero[i], e.One[i]
		if err := cw.Write([]string{
			fmtFloat(t),
			fmtFloat(real(z)), fmtFloat(imag(z)),
			fmtFloat(real(o)), fmtFloat(imag(o)),
		}); err != nil {
			return fmt.Errorf("write trace row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
