package alarm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrWong99/shifra/pkg/kv"
)

// StorageKey is the slot that holds the alarm list.
const StorageKey = "va_alarms"

// Repository loads and saves the alarm list as a JSON array in one
// [kv.Store] slot.
type Repository struct {
	store kv.Store
	key   string
}

// NewRepository returns a Repository using [StorageKey] in store.
func NewRepository(store kv.Store) *Repository {
	return &Repository{store: store, key: StorageKey}
}

// Load returns the persisted alarms in stored order.
//
// A missing slot and a malformed document both yield an empty list; the
// latter is logged as a warning. Entries without a positive id are skipped.
// Only backend failures are returned as errors.
func (r *Repository) Load(ctx context.Context) ([]Alarm, error) {
	data, err := r.store.Get(ctx, r.key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("alarm: load %q: %w", r.key, err)
	}

	var stored []Alarm
	if err := json.Unmarshal(data, &stored); err != nil {
		slog.Warn("alarm: discarding malformed alarm list", "key", r.key, "err", err)
		return nil, nil
	}

	alarms := make([]Alarm, 0, len(stored))
	for _, a := range stored {
		if a.ID <= 0 {
			slog.Warn("alarm: skipping stored alarm without id", "when", a.When, "label", a.Label)
			continue
		}
		alarms = append(alarms, a)
	}
	return alarms, nil
}

// Save replaces the persisted list with alarms.
func (r *Repository) Save(ctx context.Context, alarms []Alarm) error {
	if alarms == nil {
		alarms = []Alarm{}
	}
	data, err := json.Marshal(alarms)
	if err != nil {
		return fmt.Errorf("alarm: encode: %w", err)
	}
	if err := r.store.Set(ctx, r.key, data); err != nil {
		return fmt.Errorf("alarm: save %q: %w", r.key, err)
	}
	return nil
}
