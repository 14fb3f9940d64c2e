package export

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/weather-flow/internal/weather"
)

// DefaultCSVPath is where the flow writes its dataset.
const DefaultCSVPath = "weather.csv"

// DateLayout renders UTC timestamps the way pandas writes tz-aware indexes.
const DateLayout = "2006-01-02 15:04:05-07:00"

// WriteCSV writes ds to path, replacing any existing file. The first column
// is the unnamed row index, followed by "date" and one column per variable.
func WriteCSV(path string, ds *weather.Dataset) error {
	if ds == nil {
		return fmt.Errorf("write %s: nil dataset", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	if err := encode(f, ds); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func encode(f *os.File, ds *weather.Dataset) error {
	w := csv.NewWriter(f)

	header := make([]string, 0, len(ds.Columns)+2)
	header = append(header, "", "date")
	header = append(header, ds.Columns...)
	if err := w.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for i, row := range ds.Rows {
		record[0] = strconv.Itoa(i)
		record[1] = FormatDate(row.Date)
		for j := range ds.Columns {
			var v float64
			if j < len(row.Values) {
				v = row.Values[j]
			} else {
				v = math.NaN()
			}
			record[j+2] = FormatFloat(v)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// FormatDate renders t in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// FormatFloat renders v in its shortest form, keeping a trailing ".0" for
// whole numbers. NaN renders as an empty string.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !math.IsInf(v, 0) && !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
