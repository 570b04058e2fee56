package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avoronova/notekeeper/internal/client/models"
)

// Sync requests an immediate sync pass. If one is already running the
// request is a no-op and the in-flight pass covers it.
func (a *App) Sync(ctx context.Context) error {
	if err := a.orch.TriggerSync(ctx); err != nil {
		return err
	}
	fmt.Println("Sync requested.")
	return nil
}

// Status prints the connectivity and queue snapshot.
func (a *App) Status(ctx context.Context) error {
	st := a.orch.Status()

	fmt.Printf("Online:        %v\n", st.IsOnline)
	fmt.Printf("Authenticated: %v\n", st.IsAuthenticated)
	fmt.Printf("Syncing:       %v\n", st.IsSyncing)
	fmt.Printf("Queued:        %d primary, %d retry\n", st.PrimaryQueueCount, st.RetryQueueCount)
	if !st.LastSyncAt.IsZero() {
		fmt.Printf("Last sync:     %s\n", st.LastSyncAt.Format(time.RFC3339))
	}
	if len(st.RecentErrors) > 0 {
		fmt.Println("Recent errors:")
		for _, e := range st.RecentErrors {
			fmt.Println("  -", e)
		}
	}
	return nil
}

// Tags manages the tag catalog:
//
//	tags                 list tags with usage counts
//	tags add <name>      register a custom tag
//	tags rm <name>       remove a custom tag
//	tags set <note> <names...>   replace a note's tags
func (a *App) Tags(ctx context.Context, args []string) error {
	if len(args) == 0 {
		tags, err := a.tags.ListTags(ctx)
		if err != nil {
			return err
		}
		for _, t := range tags {
			kind := ""
			if t.Predefined {
				kind = " (predefined)"
			}
			fmt.Printf("  %-12s %d%s\n", t.Name, t.UsageCount, kind)
		}
		return nil
	}

	switch args[0] {
	case "add":
		if len(args) < 2 {
			return fmt.Errorf("usage: tags add <name>")
		}
		if err := a.tags.AddTag(ctx, args[1]); err != nil {
			return err
		}
		fmt.Println("Tag added.")
		return nil

	case "rm", "remove":
		if len(args) < 2 {
			return fmt.Errorf("usage: tags rm <name>")
		}
		if err := a.tags.RemoveTag(ctx, args[1]); err != nil {
			return err
		}
		fmt.Println("Tag removed.")
		return nil

	case "set":
		if len(args) < 2 {
			return fmt.Errorf("usage: tags set <note> <names...>")
		}
		uuid, err := a.resolveNote(ctx, args[1:2])
		if err != nil {
			return err
		}
		names := normalizeTags(args[2:])
		if _, err := a.notes.UpdateNote(ctx, uuid, func(n *models.Note) {
			n.Tags = names
		}); err != nil {
			return err
		}
		fmt.Println("Tags updated.")
		return nil

	default:
		return fmt.Errorf("unknown tags command %q", args[0])
	}
}

func normalizeTags(raw []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		name := strings.ToLower(strings.TrimSpace(r))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
