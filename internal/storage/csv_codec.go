package storage

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"os"

	"datasync/internal/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readCSV loads a snapshot. A missing or empty file is an empty snapshot;
// anything else that goes wrong is an IOError.
func readCSV(path string) (*models.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.NewTable(), nil
		}
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if first, _ := br.Peek(len(utf8BOM)); bytes.Equal(first, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	r := csv.NewReader(br)
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return models.NewTable(), nil
	}
	if err != nil {
		return nil, &IOError{Op: "parse", Path: path, Err: err}
	}

	table := models.NewTable(header...)
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &IOError{Op: "parse", Path: path, Err: err}
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			row[h] = rec[i]
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func encodeCSV(table *models.Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(table.Header); err != nil {
		return nil, err
	}
	rec := make([]string, len(table.Header))
	for _, row := range table.Rows {
		for i, h := range table.Header {
			rec[i] = row[h]
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
