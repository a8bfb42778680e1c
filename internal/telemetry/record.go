package telemetry

import (
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/thermalctl/internal/errors"
)

// TimeLayout is the record timestamp format, always in local time
const TimeLayout = "2006-01-02 15:04:05"

const (
	fieldSeparator = "|"
	listSeparator  = ","
	minFields      = 5
)

// Format renders the record as one data log line, without the trailing newline:
// timestamp|maxGPU|maxSystem|avgRPM|speed|gpuCSV|sysCSV|fanCSV
func (r *Record) Format() string {
	fields := []string{
		r.Timestamp.In(time.Local).Format(TimeLayout),
		strconv.Itoa(r.MaxGPU),
		strconv.Itoa(r.MaxSystem),
		strconv.Itoa(r.AvgFanRPM),
		strconv.Itoa(r.SpeedPercent),
		joinInts(r.GPUTemps),
		joinInts(r.SystemTemps),
		joinInts(r.FanSpeeds),
	}

	return strings.Join(fields, fieldSeparator)
}

// ParseRecord is the inverse of Format. Empty numeric fields read as 0 and
// the trailing list fields are optional and parsed leniently.
func ParseRecord(line string) (Record, error) {
	errFactory := errors.New()

	fields := strings.Split(strings.TrimSpace(line), fieldSeparator)
	if len(fields) < minFields {
		return Record{}, errFactory.WithData(ErrInvalidRecord, "too few fields")
	}

	ts, err := time.ParseInLocation(TimeLayout, strings.TrimSpace(fields[0]), time.Local)
	if err != nil {
		return Record{}, errFactory.Wrap(ErrInvalidRecord, err)
	}

	numbers := make([]int, minFields-1)
	for i := range numbers {
		if numbers[i], err = parseInt(fields[i+1]); err != nil {
			return Record{}, errFactory.Wrap(ErrInvalidRecord, err)
		}
	}

	rec := Record{
		Timestamp:    ts,
		MaxGPU:       numbers[0],
		MaxSystem:    numbers[1],
		AvgFanRPM:    numbers[2],
		SpeedPercent: numbers[3],
	}

	lists := []*[]int{&rec.GPUTemps, &rec.SystemTemps, &rec.FanSpeeds}
	for i, dst := range lists {
		idx := minFields + i
		if idx >= len(fields) {
			break
		}
		*dst = parseInts(fields[idx])
	}

	return rec, nil
}

func parseInt(field string) (int, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return 0, nil
	}

	return strconv.Atoi(field)
}

// parseInts reads a raw reading list. Elements that are not integers are
// dropped; the list is informational and never invalidates a record.
func parseInts(field string) []int {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil
	}

	parts := strings.Split(field, listSeparator)
	values := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			continue
		}
		values = append(values, v)
	}

	if len(values) == 0 {
		return nil
	}

	return values
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}

	return strings.Join(parts, listSeparator)
}
