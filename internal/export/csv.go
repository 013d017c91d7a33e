package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/2beens/fittrack/internal/tracker"
)

var ErrInvalidCSV = errors.New("invalid csv format")

var csvHeader = []string{"Data", "Exercício", "Tipo", "Exercícios Completos", "Repetições", "Total"}

// accepted date formats, tried in order
var (
	dayMonthYearSlash = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)
	yearMonthDay      = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`)
	dayMonthYearDash  = regexp.MustCompile(`(\d{1,2})-(\d{1,2})-(\d{4})`)

	leadingInt = regexp.MustCompile(`^[+-]?\d+`)
)

// WriteCSV writes one row per history record, followed by one row per
// exercise with today's live counters.
func WriteCSV(w io.Writer, exercises tracker.Exercises, history tracker.History, today time.Time) error {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	ids := exercises.SortedIDs()
	for _, id := range ids {
		ex := exercises[id]
		records := slices.Clone(history[id])
		slices.SortStableFunc(records, func(a, b tracker.HistoryRecord) int {
			return strings.Compare(a.Date, b.Date)
		})
		for _, rec := range records {
			date, err := time.Parse(tracker.DateLayout, rec.Date)
			if err != nil {
				// not a calendar date, nothing sensible to export
				continue
			}
			if err := csvWriter.Write(csvRow(date, ex, rec.Completed, rec.Repetitions)); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
		}
	}

	for _, id := range ids {
		ex := exercises[id]
		if err := csvWriter.Write(csvRow(today, ex, ex.Completed, ex.Repetitions)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func csvRow(date time.Time, ex tracker.Exercise, completed, repetitions int) []string {
	return []string{
		date.Format("02/01/2006"),
		ex.Name,
		ex.Icon,
		strconv.Itoa(completed),
		strconv.Itoa(repetitions),
		formatTotal(completed, repetitions),
	}
}

// formatTotal renders completed + repetitions*0.2 with one decimal.
func formatTotal(completed, repetitions int) string {
	tenths := completed*10 + repetitions*2
	sign := ""
	if tenths < 0 {
		sign = "-"
		tenths = -tenths
	}
	return fmt.Sprintf("%s%d.%d", sign, tenths/10, tenths%10)
}

// ParseCSV reads rows in the export format. Rows with fewer than four
// columns or an unrecognised date are skipped.
func ParseCSV(r io.Reader) ([]tracker.ImportedRecord, error) {
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = -1
	csvReader.LazyQuotes = true
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrInvalidCSV)
		}
		return nil, fmt.Errorf("%w: read header: %w", ErrInvalidCSV, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	if !slices.Contains(header, "Data") || !slices.Contains(header, "Exercício") {
		return nil, fmt.Errorf("%w: missing Data/Exercício columns", ErrInvalidCSV)
	}

	var records []tracker.ImportedRecord
	for {
		row, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCSV, err)
		}
		if len(row) < 4 {
			continue
		}

		date, ok := ParseDate(row[0])
		if !ok {
			continue
		}

		rec := tracker.ImportedRecord{
			ExerciseName: strings.TrimSpace(row[1]),
			Date:         date,
			Completed:    parseLeadingInt(row[3]),
		}
		if len(row) > 4 {
			rec.Repetitions = parseLeadingInt(row[4])
		}
		records = append(records, rec)
	}

	return records, nil
}

// ParseDate accepts DD/MM/YYYY, YYYY-MM-DD and DD-MM-YYYY.
// Out of range days and months roll over into the next month/year.
func ParseDate(s string) (time.Time, bool) {
	s = strings.ReplaceAll(s, `"`, "")

	if m := dayMonthYearSlash.FindStringSubmatch(s); m != nil {
		return dateFromParts(m[3], m[2], m[1]), true
	}
	if m := yearMonthDay.FindStringSubmatch(s); m != nil {
		return dateFromParts(m[1], m[2], m[3]), true
	}
	if m := dayMonthYearDash.FindStringSubmatch(s); m != nil {
		return dateFromParts(m[3], m[2], m[1]), true
	}
	return time.Time{}, false
}

func dateFromParts(year, month, day string) time.Time {
	// the regexps guarantee digits
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

// parseLeadingInt parses the leading integer of s, 0 if there is none.
func parseLeadingInt(s string) int {
	digits := leadingInt.FindString(strings.TrimSpace(s))
	if digits == "" {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}
