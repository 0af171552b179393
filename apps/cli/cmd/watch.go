package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/hitdesk/packages/core/runner"
	"github.com/abdul-hamid-achik/hitdesk/packages/template"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// debouncer runs the most recently triggered func once delay has passed
// without another trigger.
type debouncer struct {
	delay time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	inflight sync.WaitGroup
}

func (d *debouncer) trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelPending()
	d.inflight.Add(1)
	d.timer = time.AfterFunc(d.delay, func() {
		defer d.inflight.Done()
		fn()
	})
}

// stop drops a pending run and waits for one that already started.
func (d *debouncer) stop() {
	d.mu.Lock()
	d.cancelPending()
	d.timer = nil
	d.mu.Unlock()
	d.inflight.Wait()
}

// cancelPending must be called with mu held.
func (d *debouncer) cancelPending() {
	if d.timer != nil && d.timer.Stop() {
		d.inflight.Done()
	}
}

func watchTemplate(ctx context.Context, cmd *cobra.Command, path string, session *runner.Session, formatter outcomeFormatter) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// editors often replace the file, so watch its directory
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching %s for changes... (press Ctrl+C to stop)\n", path)

	// a resend still running when the loop ends must finish before the
	// caller closes the history database
	debounce := &debouncer{delay: WatchDebounceDelay}
	defer debounce.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			debounce.trigger(func() {
				resend(ctx, cmd, path, session, formatter)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}

func resend(ctx context.Context, cmd *cobra.Command, path string, session *runner.Session, formatter outcomeFormatter) {
	fmt.Fprintf(cmd.OutOrStdout(), "\nFile changed: %s\n\n", path)

	file, err := template.Load(path)
	if err != nil {
		logger.Error("template is invalid, not sending", "error", err)
		return
	}
	session.SetTemplate(file.Template)
	session.SetAuth(file.EffectiveAuth())

	out, err := session.Send(ctx)
	if errors.Is(err, runner.ErrSendInProgress) {
		logger.Warn("previous send still running, change skipped")
		return
	}
	if err != nil {
		logger.Error("send failed", "error", err)
		return
	}
	formatter.FormatOutcome(out)
	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching %s for changes... (press Ctrl+C to stop)\n", path)
}
