// Package cli implements the interactive notekeeper client: a REPL over
// the local store with background sync against the server.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/avoronova/notekeeper/internal/client/api"
	"github.com/avoronova/notekeeper/internal/client/config"
	"github.com/avoronova/notekeeper/internal/client/events"
	"github.com/avoronova/notekeeper/internal/client/queue"
	"github.com/avoronova/notekeeper/internal/client/services"
	"github.com/avoronova/notekeeper/internal/client/storage"
	"github.com/avoronova/notekeeper/internal/client/sync"
	"github.com/avoronova/notekeeper/internal/logging"
)

// App wires the client together: local store, queues, sync machinery and
// the interactive command surface.
type App struct {
	config   *config.Config
	log      logging.Logger
	kv       storage.KV
	closeKV  func() error
	store    *storage.NoteStore
	queues   *queue.Manager
	client   *api.Client
	orch     *sync.Orchestrator
	push     *api.PushListener
	bus      *events.Bus
	notes    *services.NoteService
	tags     *services.TagService
	reader   *bufio.Reader
	userName string

	// lastList maps the numbers of the most recent listing to note UUIDs
	// so commands can refer to notes by position.
	lastList []string
}

func NewApp(c *config.Config, log logging.Logger) (*App, error) {
	ctx := context.Background()

	kv, closeKV := openKV(ctx, c.DatabasePath, log)

	bus := events.NewBus()
	store := storage.NewNoteStore(kv, log)
	queues, err := queue.NewManager(ctx, kv, log)
	if err != nil {
		return nil, fmt.Errorf("restoring sync queues: %w", err)
	}

	client := api.NewClient(c.ServerBaseURL, log)
	batcher := sync.NewBatcher(store, client, log)
	orch := sync.NewOrchestrator(store, queues, batcher, client, bus, log, c.SyncInterval)
	push := api.NewPushListener(client, bus, log)
	noteSvc := services.NewNoteService(store, queues, bus, log)

	return &App{
		config:  c,
		log:     log,
		kv:      kv,
		closeKV: closeKV,
		store:   store,
		queues:  queues,
		client:  client,
		orch:    orch,
		push:    push,
		bus:     bus,
		notes:   noteSvc,
		tags:    services.NewTagService(kv, store, noteSvc, log),
		reader:  bufio.NewReader(os.Stdin),
	}, nil
}

// openKV opens the durable local store. When the database cannot be
// opened or fails its probe the app degrades to an in-memory store so
// the session stays usable; changes then do not survive a restart.
func openKV(ctx context.Context, path string, log logging.Logger) (storage.KV, func() error) {
	kv, err := storage.OpenSQLite(ctx, path)
	if err != nil {
		log.Warn(ctx, "local database unavailable, using in-memory storage", "path", path, "error", err)
		return storage.NewMemoryKV(), func() error { return nil }
	}
	if err := kv.Probe(ctx); err != nil {
		log.Warn(ctx, "local database failed probe, using in-memory storage", "path", path, "error", err)
		kv.Close()
		return storage.NewMemoryKV(), func() error { return nil }
	}
	return kv, kv.Close
}

// Run starts the background sync loops and enters the REPL. It returns
// when the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	defer func() {
		if err := a.closeKV(); err != nil {
			a.log.Warn(ctx, "closing local database", "error", err)
		}
	}()

	go a.orch.Run(ctx)
	go a.push.Run(ctx)

	fmt.Println("Welcome to notekeeper (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(os.Stdin))
}

func (a *App) isLoggedIn() bool {
	return a.client.IsAuthenticated()
}

// getStatus renders the prompt decoration: user name, connectivity and
// pending queue counts.
func (a *App) getStatus() string {
	st := a.orch.Status()

	s := ""
	if a.userName != "" {
		s = a.userName + " "
	}
	if st.IsOnline {
		s += "online"
	} else {
		s += "offline"
	}
	if pending := st.PrimaryQueueCount + st.RetryQueueCount; pending > 0 {
		s += fmt.Sprintf(" %d pending", pending)
	}
	return "(" + s + ")"
}
