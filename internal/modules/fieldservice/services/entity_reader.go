package services

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
)

// EntityReader serves fresh entity snapshots to the workflow engine when a
// deferred or cron-driven run carries no event payload.
type EntityReader struct {
	db *gorm.DB
}

// NewEntityReader creates an entity snapshot reader
func NewEntityReader(db *gorm.DB) *EntityReader {
	return &EntityReader{db: db}
}

var snapshotTables = map[string]string{
	"job":     "field_jobs",
	"quote":   "quotes",
	"invoice": "invoices",
	"lead":    "leads",
}

// Snapshot reads the current row for an entity as a generic map
func (r *EntityReader) Snapshot(ctx context.Context, entityType, entityID string) (map[string]interface{}, error) {
	table, ok := snapshotTables[entityType]
	if !ok {
		return nil, fmt.Errorf("unknown entity type %q", entityType)
	}

	var row map[string]interface{}
	err := r.db.WithContext(ctx).Table(table).Where("id = ?", entityID).Take(&row).Error
	if err != nil {
		return nil, err
	}

	// Normalize driver types (time.Time, []byte) through JSON so condition
	// evaluation sees the same shapes an event payload carries.
	data, err := json.Marshal(row)
	if err != nil {
		return nil, err
	}
	var snapshot map[string]interface{}
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}
