package alarm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/MrWong99/shifra/internal/alarm"
	kvmock "github.com/MrWong99/shifra/pkg/kv/mock"
)

func TestRepository_LoadMissing(t *testing.T) {
	t.Parallel()

	got, err := alarm.NewRepository(kvmock.New()).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Load() = %v, want empty", got)
	}
}

func TestRepository_LoadMalformed(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{`{not json`, `{"id": 1}`, `"text"`} {
		store := kvmock.New()
		store.Put(alarm.StorageKey, []byte(raw))

		got, err := alarm.NewRepository(store).Load(context.Background())
		if err != nil {
			t.Errorf("Load(%s): unexpected error %v", raw, err)
		}
		if len(got) != 0 {
			t.Errorf("Load(%s) = %v, want empty", raw, got)
		}
	}
}

func TestRepository_LoadBackendError(t *testing.T) {
	t.Parallel()

	store := kvmock.New()
	store.GetErr = errors.New("connection refused")

	_, err := alarm.NewRepository(store).Load(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, store.GetErr) {
		t.Errorf("error %v does not wrap backend error", err)
	}
}

func TestRepository_LoadSkipsInvalidIDs(t *testing.T) {
	t.Parallel()

	store := kvmock.New()
	store.Put(alarm.StorageKey, []byte(`[
		{"id": 0, "when": 1, "label": "zero"},
		{"id": 1710000000123, "when": 1710000600000, "label": "tea"},
		{"id": -4, "when": 1, "label": "negative"}
	]`))

	got, err := alarm.NewRepository(store).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []alarm.Alarm{{ID: 1710000000123, When: 1710000600000, Label: "tea"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestRepository_SaveRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := kvmock.New()
	repo := alarm.NewRepository(store)

	if err := repo.Save(ctx, nil); err != nil {
		t.Fatalf("Save(nil): %v", err)
	}
	if raw, _ := store.Value(alarm.StorageKey); string(raw) != "[]" {
		t.Errorf("Save(nil) stored %s, want []", raw)
	}

	alarms := []alarm.Alarm{
		{ID: 10, When: 20, Label: "first"},
		{ID: 11, When: 30, Label: "second", URL: "github.com"},
	}
	if err := repo.Save(ctx, alarms); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw, _ := store.Value(alarm.StorageKey)
	const want = `[{"id":10,"when":20,"label":"first"},{"id":11,"when":30,"label":"second","url":"github.com"}]`
	if string(raw) != want {
		t.Errorf("stored %s, want %s", raw, want)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(alarms, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRepository_SaveError(t *testing.T) {
	t.Parallel()

	store := kvmock.New()
	store.SetErr = errors.New("disk full")

	err := alarm.NewRepository(store).Save(context.Background(), []alarm.Alarm{{ID: 1}})
	if !errors.Is(err, store.SetErr) {
		t.Errorf("Save error = %v, want wrapped %v", err, store.SetErr)
	}
}
