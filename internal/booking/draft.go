package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ramsoftware/website-backend/pkg/kvstore"
)

// DraftKey is the storage key of the saved form.
const DraftKey = "bookingFormData"

// Draft is the saved form: field name to a string, or to a list of strings
// for checkbox groups.
type Draft map[string]interface{}

// DraftStore reads and writes drafts in a client-scoped key-value store.
type DraftStore struct {
	store kvstore.Store
}

// NewDraftStore wraps store.
func NewDraftStore(store kvstore.Store) *DraftStore {
	return &DraftStore{store: store}
}

// Save overwrites the draft.
func (d *DraftStore) Save(ctx context.Context, draft Draft) error {
	raw, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	if err := d.store.Set(ctx, DraftKey, string(raw)); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Load returns the raw saved entries. A missing draft yields (nil, nil).
func (d *DraftStore) Load(ctx context.Context) (map[string]json.RawMessage, error) {
	raw, err := d.store.Get(ctx, DraftKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return entries, nil
}

// Clear removes the draft.
func (d *DraftStore) Clear(ctx context.Context) error {
	if err := d.store.Delete(ctx, DraftKey); err != nil {
		return fmt.Errorf("clear draft: %w", err)
	}
	return nil
}
