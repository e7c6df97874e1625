package flightlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var csvHeader = []string{
	"", "entry_time", "stable_time", "raspador", "pilot", "mission", "maneuver", "option",
	"error", "detail", "result", "instruction", "id", "maneuver_id", "mission_id",
}

// LogPath is where SaveCSV writes a run's log for engine name.
func LogPath(outputDir, name string, t time.Time) string {
	return filepath.Join(outputDir, "log", fmt.Sprintf("%s_%s.csv", DateFileName(t), SafeFileName(name)))
}

// SaveCSV writes rows with a leading index column. It does nothing for an
// empty log and reports whether a file was written.
func SaveCSV(path string, rows []Row) (bool, error) {
	if len(rows) == 0 {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create log folder: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return false, fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return false, err
	}
	for i, r := range rows {
		record := []string{
			strconv.Itoa(i),
			r.EntryTime.Format(time.RFC3339Nano),
			r.StableTime.Format(time.RFC3339Nano),
			r.Raspador, r.Pilot, r.Mission, r.Maneuver, r.Option,
			r.Error, r.Detail, r.Result, r.Instruction,
			r.ID, r.ManeuverID, r.MissionID,
		}
		if err := w.Write(record); err != nil {
			return false, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return false, err
	}
	return true, nil
}

// LoadCSV reads a file written by SaveCSV.
func LoadCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	if len(records[0]) != len(csvHeader) {
		return nil, fmt.Errorf("%s: expected %d columns, got %d", path, len(csvHeader), len(records[0]))
	}

	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		entry, err := time.Parse(time.RFC3339Nano, rec[1])
		if err != nil {
			return nil, fmt.Errorf("row %d entry_time: %w", i, err)
		}
		stable, err := time.Parse(time.RFC3339Nano, rec[2])
		if err != nil {
			return nil, fmt.Errorf("row %d stable_time: %w", i, err)
		}
		rows = append(rows, Row{
			EntryTime:   entry,
			StableTime:  stable,
			Raspador:    rec[3],
			Pilot:       rec[4],
			Mission:     rec[5],
			Maneuver:    rec[6],
			Option:      rec[7],
			Error:       rec[8],
			Detail:      rec[9],
			Result:      rec[10],
			Instruction: rec[11],
			ID:          rec[12],
			ManeuverID:  rec[13],
			MissionID:   rec[14],
		})
	}
	return rows, nil
}
