package storage

import (
	"sort"
	"time"

	"datasync/internal/models"
	json "github.com/goccy/go-json"
	"github.com/spf13/cast"
)

const (
	fieldItems   = "items"
	fieldTrackID = "track_id"
)

// explodeItems turns a record holding an items array into one record per
// element, the element stored under track_id. Listen history arrives in this
// shape. sources[i] is the index of the input record that row i came from, or
// -1 when that record had no items array.
func explodeItems(records []models.Record) (rows []models.Record, sources []int) {
	rows = make([]models.Record, 0, len(records))
	sources = make([]int, 0, len(records))
	for i, r := range records {
		items, ok := r[fieldItems].([]any)
		if !ok {
			rows = append(rows, r)
			sources = append(sources, -1)
			continue
		}
		if len(items) == 0 {
			c := r.Clone()
			delete(c, fieldItems)
			rows = append(rows, c)
			sources = append(sources, i)
			continue
		}
		for _, item := range items {
			c := r.Clone()
			delete(c, fieldItems)
			c[fieldTrackID] = item
			rows = append(rows, c)
			sources = append(sources, i)
		}
	}
	return rows, sources
}

func toRow(r models.Record, chargedAt string) map[string]string {
	row := make(map[string]string, len(r)+1)
	for k, v := range r {
		row[k] = models.FormatValue(v)
	}
	row[models.FieldChargedAt] = chargedAt
	return row
}

// newSnapshot builds a table from scratch with the key column first and
// charged_at last.
func newSnapshot(records []models.Record, keyField, chargedAt string) *models.Table {
	seen := map[string]struct{}{keyField: {}, models.FieldChargedAt: {}}
	var columns []string
	for _, r := range records {
		for k := range r {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)

	header := append([]string{keyField}, columns...)
	table := models.NewTable(append(header, models.FieldChargedAt)...)
	for _, r := range records {
		table.Append(toRow(r, chargedAt))
	}
	return table
}

// watermarkOf returns the latest charged_at of the snapshot. ok is false when
// the snapshot is empty or carries no usable charged_at values.
func watermarkOf(table *models.Table) (watermark time.Time, ok bool) {
	if table.Empty() || !table.HasColumn(models.FieldChargedAt) {
		return time.Time{}, false
	}
	for _, v := range table.Column(models.FieldChargedAt) {
		if v == "" {
			continue
		}
		t, err := parseTimestamp(v)
		if err != nil {
			continue
		}
		if !ok || t.After(watermark) {
			watermark = t
			ok = true
		}
	}
	return watermark, ok
}

// parseTimestamp accepts the charged_at layout, any layout understood by
// cast, and unix seconds. Values without a zone are read as UTC.
func parseTimestamp(v any) (time.Time, error) {
	if n, isNum := v.(json.Number); isNum {
		if sec, err := n.Int64(); err == nil {
			return time.Unix(sec, 0).UTC(), nil
		}
	}
	s := models.FormatValue(v)
	if t, err := time.ParseInLocation(models.ChargedAtLayout, s, time.UTC); err == nil {
		return t, nil
	}
	return cast.ToTimeInDefaultLocationE(s, time.UTC)
}

type classified struct {
	updated []models.Record
	created []models.Record
	// updatedFrom holds the explodeItems source of each updated row.
	updatedFrom []int
}

// classify splits records against the watermark. A record may land in both
// partitions. sources follows explodeItems and may be nil.
func classify(category string, records []models.Record, sources []int, watermark time.Time) (*classified, error) {
	out := &classified{}
	for _, r := range records {
		for _, field := range []string{models.FieldCreatedAt, models.FieldUpdatedAt} {
			if !r.Has(field) {
				return nil, &ValidationError{Category: category, Field: field, Err: ErrMissingColumn}
			}
		}
	}
	for i, r := range records {
		updatedAt, err := parseTimestamp(r[models.FieldUpdatedAt])
		if err != nil {
			return nil, &ValidationError{Category: category, Field: models.FieldUpdatedAt, Err: ErrBadTimestamp}
		}
		createdAt, err := parseTimestamp(r[models.FieldCreatedAt])
		if err != nil {
			return nil, &ValidationError{Category: category, Field: models.FieldCreatedAt, Err: ErrBadTimestamp}
		}
		if updatedAt.After(watermark) {
			out.updated = append(out.updated, r)
			out.updatedFrom = append(out.updatedFrom, sourceOf(sources, i))
		}
		if createdAt.After(watermark) {
			out.created = append(out.created, r)
		}
	}
	return out, nil
}

// applyMerge writes updates over matching rows and then appends records whose
// key the snapshot did not hold before this merge. Every row touched gets
// chargedAt.
//
// Updates for one key are applied in batch order, so the last one wins. A
// plain record overwrites every row sharing its key. The rows of one exploded
// items array replace that key's rows as a group.
func applyMerge(table *models.Table, parts *classified, keyField, chargedAt string) *models.MergeResult {
	known := make(map[string]struct{}, table.Len())
	for _, k := range table.Column(keyField) {
		known[k] = struct{}{}
	}

	result := &models.MergeResult{ChargedAt: chargedAt}
	groups, order := groupByKey(parts, keyField)
	for _, key := range order {
		idx := table.IndexOf(keyField, key)
		if len(idx) == 0 {
			continue
		}
		updates := groups[key]
		for _, u := range updates {
			if u.source < 0 {
				row := toRow(u.rows[0], chargedAt)
				for _, i := range idx {
					table.Overwrite(i, row)
				}
				continue
			}
			rows := make([]map[string]string, 0, len(u.rows))
			for _, r := range u.rows {
				rows = append(rows, toRow(r, chargedAt))
			}
			table.Replace(idx, rows)
			idx = table.IndexOf(keyField, key)
		}
		result.Updated += len(updates[len(updates)-1].rows)
	}

	for _, r := range parts.created {
		if _, exists := known[r.String(keyField)]; exists {
			continue
		}
		table.Append(toRow(r, chargedAt))
		result.Inserted++
	}
	return result
}

// keyUpdate is one input record's worth of updated rows: a single row, or
// every row exploded from one items array.
type keyUpdate struct {
	source int
	rows   []models.Record
}

func groupByKey(parts *classified, keyField string) (map[string][]keyUpdate, []string) {
	groups := make(map[string][]keyUpdate)
	var order []string
	for i, r := range parts.updated {
		key := r.String(keyField)
		src := sourceOf(parts.updatedFrom, i)
		updates, seen := groups[key]
		if !seen {
			order = append(order, key)
		}
		if last := len(updates) - 1; src >= 0 && last >= 0 && updates[last].source == src {
			updates[last].rows = append(updates[last].rows, r)
		} else {
			updates = append(updates, keyUpdate{source: src, rows: []models.Record{r}})
		}
		groups[key] = updates
	}
	return groups, order
}

func sourceOf(sources []int, i int) int {
	if i < len(sources) {
		return sources[i]
	}
	return -1
}
