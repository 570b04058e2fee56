package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/avoronova/notekeeper/internal/client/models"
	"github.com/avoronova/notekeeper/internal/client/storage"
	"github.com/avoronova/notekeeper/internal/common"
	"github.com/avoronova/notekeeper/internal/logging"
)

const tagsKey = "notekeeper.tags"

// TagService manages the tag catalog. Custom tag names persist in the
// local store; usage counts are derived from the notes on each listing
// rather than maintained incrementally.
type TagService struct {
	kv    storage.KV
	store *storage.NoteStore
	notes *NoteService
	log   logging.Logger
}

func NewTagService(kv storage.KV, store *storage.NoteStore, notes *NoteService, log logging.Logger) *TagService {
	return &TagService{kv: kv, store: store, notes: notes, log: log}
}

// ListTags returns predefined tags first, then custom tags, each with
// its current usage count, alphabetical within each group.
func (s *TagService) ListTags(ctx context.Context) ([]models.Tag, error) {
	custom, err := s.loadCustom(ctx)
	if err != nil {
		return nil, err
	}

	usage, err := s.countUsage(ctx)
	if err != nil {
		return nil, err
	}

	tags := make([]models.Tag, 0, len(models.PredefinedTags)+len(custom))
	for _, name := range models.PredefinedTags {
		tags = append(tags, models.Tag{Name: name, UsageCount: usage[name], Predefined: true})
	}
	sort.Strings(custom)
	for _, name := range custom {
		tags = append(tags, models.Tag{Name: name, UsageCount: usage[name]})
	}
	return tags, nil
}

// AddTag registers a new custom tag name.
func (s *TagService) AddTag(ctx context.Context, name string) error {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return fmt.Errorf("empty tag name")
	}
	if isPredefined(name) {
		return common.ErrTagAlreadyExists
	}

	custom, err := s.loadCustom(ctx)
	if err != nil {
		return err
	}
	for _, existing := range custom {
		if existing == name {
			return common.ErrTagAlreadyExists
		}
	}
	return s.saveCustom(ctx, append(custom, name))
}

// RemoveTag deletes a custom tag from the catalog and strips it from
// every note that carries it. Predefined tags cannot be removed.
func (s *TagService) RemoveTag(ctx context.Context, name string) error {
	name = strings.TrimSpace(strings.ToLower(name))
	if isPredefined(name) {
		return common.ErrPredefinedTag
	}

	custom, err := s.loadCustom(ctx)
	if err != nil {
		return err
	}
	kept := custom[:0]
	found := false
	for _, existing := range custom {
		if existing == name {
			found = true
			continue
		}
		kept = append(kept, existing)
	}
	if !found {
		return common.ErrNotFound
	}
	if err := s.saveCustom(ctx, kept); err != nil {
		return err
	}

	all, err := s.store.GetAll(ctx)
	if err != nil {
		return err
	}
	for _, n := range all {
		if n.IsDeleted || !hasString(n.Tags, name) {
			continue
		}
		// Route the strip through the note service so the edit bumps the
		// local version and is queued for sync like any other change.
		if _, err := s.notes.UpdateNote(ctx, n.UUID, func(m *models.Note) {
			removeString(&m.Tags, name)
		}); err != nil {
			s.log.Warn(ctx, "stripping removed tag from note", "uuid", n.UUID, "error", err)
		}
	}
	return nil
}

func (s *TagService) countUsage(ctx context.Context) (map[string]int, error) {
	notes, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	usage := make(map[string]int)
	for _, n := range notes {
		if n.IsDeleted {
			continue
		}
		for _, t := range n.Tags {
			usage[t]++
		}
	}
	return usage, nil
}

func (s *TagService) loadCustom(ctx context.Context) ([]string, error) {
	raw, ok, err := s.kv.GetItem(ctx, tagsKey)
	if err != nil {
		return nil, fmt.Errorf("loading tag catalog: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		s.log.Warn(ctx, "dropping corrupted tag catalog", "error", err)
		return nil, nil
	}
	return names, nil
}

func (s *TagService) saveCustom(ctx context.Context, names []string) error {
	data, err := json.Marshal(names)
	if err != nil {
		return err
	}
	if err := s.kv.SetItem(ctx, tagsKey, string(data)); err != nil {
		return fmt.Errorf("persisting tag catalog: %w", err)
	}
	return nil
}

func isPredefined(name string) bool {
	for _, p := range models.PredefinedTags {
		if p == name {
			return true
		}
	}
	return false
}

func hasString(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}

func removeString(list *[]string, name string) bool {
	kept := (*list)[:0]
	removed := false
	for _, v := range *list {
		if v == name {
			removed = true
			continue
		}
		kept = append(kept, v)
	}
	*list = kept
	return removed
}
