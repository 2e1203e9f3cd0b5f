package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/balllder/holiday-wheel/internal/store"
)

// ReadPuzzleCSVFile loads "category,answer" rows from a file.
func ReadPuzzleCSVFile(filePath string) ([]store.PuzzleLine, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open puzzle csv %s: %w", filePath, err)
	}
	defer f.Close()
	return ReadPuzzleCSV(f)
}

// ReadPuzzleCSV parses "category,answer" rows. Short or blank rows are
// skipped and a leading "category,answer" header is ignored.
func ReadPuzzleCSV(r io.Reader) ([]store.PuzzleLine, error) {
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	var lines []store.PuzzleLine
	for row := 1; ; row++ {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse puzzle csv: %w", err)
		}
		if len(record) < 2 {
			log.Debug().Int("row", row).Msg("[ReadPuzzleCSV] skipping short record")
			continue
		}
		cat, ans := strings.TrimSpace(record[0]), strings.TrimSpace(record[1])
		if row == 1 && strings.EqualFold(cat, "category") && strings.EqualFold(ans, "answer") {
			continue
		}
		if cat == "" || ans == "" {
			log.Debug().Int("row", row).Msg("[ReadPuzzleCSV] skipping incomplete record")
			continue
		}
		lines = append(lines, store.PuzzleLine{Category: cat, Answer: ans})
	}
	return lines, nil
}
