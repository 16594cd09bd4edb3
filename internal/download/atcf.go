// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package download

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/thewaterinstitute/metget-server/internal/catalog"
)

// decodeATCFBestTrack turns the body of one NHC best-track ("b-deck")
// file into one catalog row per fix line. Grounded on
// nhcdownloader.py's read_nhc_data: each comma-separated line is zipped
// against the ATCF field order (basin, cyclone number, date, technique
// number, technique, forecast period/tau, lat, lon, vmax, mslp, ...);
// best-track files always carry tau=0 per line, so each line's "date"
// field is directly its valid time and its 1-based position in the file
// is used as the advisory number (best-track has no separate advisory
// numbering of its own — it's a continuous fix history, not a sequence
// of forecast advisories).
func decodeATCFBestTrack(r io.Reader, storageKey string) ([]catalog.Row, error) {
	scanner := bufio.NewScanner(r)
	var rows []catalog.Row

	advisory := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		advisory++

		fields := strings.Split(line, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		if len(fields) < 8 {
			return nil, fmt.Errorf("download: atcf line %d: expected at least 8 fields, got %d", advisory, len(fields))
		}

		basin := strings.ToLower(fields[0])
		number, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("download: atcf line %d: cyclone number %q: %w", advisory, fields[1], err)
		}

		validTime, err := time.Parse("2006010215", fields[2])
		if err != nil {
			return nil, fmt.Errorf("download: atcf line %d: date %q: %w", advisory, fields[2], err)
		}
		validTime = validTime.UTC()

		row := catalog.NewTropicalRow(
			catalog.FamilyTropicalAnalysis,
			validTime, validTime,
			"", basin, validTime.Year(), number, advisory,
			"", storageKey, nil,
		)
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("download: reading atcf body: %w", err)
	}
	return rows, nil
}
