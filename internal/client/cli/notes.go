package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/avoronova/notekeeper/internal/client/models"
)

const dateLayout = "2006-01-02"

// AddNote prompts for a title and body and creates the note. The write
// is local and immediate; sync happens in the background.
func (a *App) AddNote(ctx context.Context) error {
	title, err := getSimpleText(a.reader, "Enter title", os.Stdout)
	if err != nil {
		return err
	}
	content, err := GetMultiline(a.reader, "Enter text", os.Stdout)
	if err != nil {
		return err
	}

	n, err := a.notes.CreateNote(ctx, title, content)
	if err != nil {
		return err
	}
	fmt.Printf("Created %s\n", shortID(n.UUID))
	return nil
}

// List prints all live notes, newest first, and remembers the numbering
// so later commands can refer to notes by position.
func (a *App) List(ctx context.Context) error {
	notes, err := a.notes.ListNotes(ctx)
	if err != nil {
		return err
	}
	if len(notes) == 0 {
		fmt.Println("No notes yet. Use 'add' to create one.")
		a.lastList = nil
		return nil
	}

	a.lastList = make([]string, len(notes))
	for i, n := range notes {
		a.lastList[i] = n.UUID
		fmt.Printf("%3d. %s%s%s  %s\n", i+1, marker(n), n.Title, noteBadges(n), n.Date.Format(dateLayout))
	}
	return nil
}

// Show prints one note in full.
func (a *App) Show(ctx context.Context, args []string) error {
	uuid, err := a.resolveNote(ctx, args)
	if err != nil {
		return err
	}
	n, err := a.notes.GetNote(ctx, uuid)
	if err != nil {
		return err
	}

	fmt.Printf("Title:   %s\n", n.Title)
	fmt.Printf("Date:    %s\n", n.Date.Format(dateLayout))
	if len(n.Tags) > 0 {
		fmt.Printf("Tags:    %s\n", strings.Join(n.Tags, ", "))
	}
	fmt.Printf("Synced:  %s\n", syncState(n))
	if n.Content != "" {
		fmt.Println("---")
		fmt.Println(n.Content)
	}
	if n.IsTaskMode {
		fmt.Println("Tasks:")
		for i, t := range n.Tasks {
			box := "[ ]"
			if t.Completed {
				box = "[x]"
			}
			fmt.Printf("  %d. %s %s\n", i+1, box, t.Text)
		}
	}
	return nil
}

// Delete removes a note. Never-synced notes vanish immediately; synced
// ones become tombstones until the server confirms.
func (a *App) Delete(ctx context.Context, args []string) error {
	uuid, err := a.resolveNote(ctx, args)
	if err != nil {
		return err
	}
	if err := a.notes.DeleteNote(ctx, uuid); err != nil {
		return err
	}
	fmt.Println("Deleted.")
	return nil
}

// Move reassigns a note's logical date: move <note> <yyyy-mm-dd>.
func (a *App) Move(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: move <note> <%s>", dateLayout)
	}
	date, err := time.Parse(dateLayout, args[len(args)-1])
	if err != nil {
		return fmt.Errorf("parsing date %q: %w", args[len(args)-1], err)
	}
	uuid, err := a.resolveNote(ctx, args[:len(args)-1])
	if err != nil {
		return err
	}
	if _, err := a.notes.MoveNoteToDate(ctx, uuid, date); err != nil {
		return err
	}
	fmt.Printf("Moved to %s.\n", date.Format(dateLayout))
	return nil
}

// Pin toggles a note's pinned flag.
func (a *App) Pin(ctx context.Context, args []string) error {
	uuid, err := a.resolveNote(ctx, args)
	if err != nil {
		return err
	}
	n, err := a.notes.TogglePin(ctx, uuid)
	if err != nil {
		return err
	}
	if n.IsPinned {
		fmt.Println("Pinned.")
	} else {
		fmt.Println("Unpinned.")
	}
	return nil
}

// Task manages a note's task list:
//
//	task add <note> <text...>   append a task
//	task toggle <note> <num>    flip one task's completed state
func (a *App) Task(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: task add <note> <text> | task toggle <note> <num>")
	}

	switch args[0] {
	case "add":
		uuid, err := a.resolveNote(ctx, args[1:2])
		if err != nil {
			return err
		}
		text := strings.Join(args[2:], " ")
		if text == "" {
			return fmt.Errorf("task text is empty")
		}
		if _, err := a.notes.AddTask(ctx, uuid, text); err != nil {
			return err
		}
		fmt.Println("Task added.")
		return nil

	case "toggle":
		if len(args) < 3 {
			return fmt.Errorf("usage: task toggle <note> <num>")
		}
		uuid, err := a.resolveNote(ctx, args[1:2])
		if err != nil {
			return err
		}
		n, err := a.notes.GetNote(ctx, uuid)
		if err != nil {
			return err
		}
		num, err := strconv.Atoi(args[2])
		if err != nil || num < 1 || num > len(n.Tasks) {
			return fmt.Errorf("no task %s on this note", args[2])
		}
		if _, err := a.notes.ToggleTask(ctx, uuid, n.Tasks[num-1].UUID); err != nil {
			return err
		}
		fmt.Println("Toggled.")
		return nil

	default:
		return fmt.Errorf("unknown task command %q", args[0])
	}
}

// resolveNote turns a positional number (from the last listing) or a
// UUID prefix into a full note UUID. With no argument it prompts.
func (a *App) resolveNote(ctx context.Context, args []string) (string, error) {
	ref := ""
	if len(args) > 0 {
		ref = args[0]
	} else {
		var err error
		ref, err = getSimpleText(a.reader, "Enter note number", os.Stdout)
		if err != nil {
			return "", err
		}
	}

	if num, err := strconv.Atoi(ref); err == nil {
		if num < 1 || num > len(a.lastList) {
			return "", fmt.Errorf("no note %d in the last listing (run 'list' first)", num)
		}
		return a.lastList[num-1], nil
	}

	notes, err := a.notes.ListNotes(ctx)
	if err != nil {
		return "", err
	}
	for _, n := range notes {
		if strings.HasPrefix(n.UUID, ref) {
			return n.UUID, nil
		}
	}
	return "", fmt.Errorf("no note matching %q", ref)
}

func marker(n *models.Note) string {
	switch {
	case n.Conflicted:
		return "! "
	case n.IsPinned:
		return "* "
	default:
		return "  "
	}
}

func noteBadges(n *models.Note) string {
	b := ""
	if n.NeedsSync() {
		b += " (pending)"
	}
	if n.IsTaskMode {
		done := 0
		for _, t := range n.Tasks {
			if t.Completed {
				done++
			}
		}
		b += fmt.Sprintf(" [%d/%d]", done, len(n.Tasks))
	}
	return b
}

func syncState(n *models.Note) string {
	switch {
	case n.Conflicted:
		return "conflicted"
	case !n.Synced():
		return "never synced"
	case n.NeedsSync():
		return "pending changes"
	default:
		return "up to date (" + n.LastSyncedAt.Format(time.RFC3339) + ")"
	}
}

func shortID(uuid string) string {
	if len(uuid) > 8 {
		return uuid[:8]
	}
	return uuid
}
