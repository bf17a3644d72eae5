package monitor

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// WatchTrigger turns raw filesystem events on the monitored roots into a
// debounced scan request. It is a best-effort accelerator: detection still
// rests on the periodic scan, the trigger just shortens the wait after a
// burst of changes. Each root is watched recursively; directories created
// later are added as they appear.
type WatchTrigger struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   zerolog.Logger

	requests chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewWatchTrigger creates a trigger watching the given roots. Roots that do
// not exist yet are skipped with a warning; they are covered once the
// periodic scan observes them.
func NewWatchTrigger(roots []string, debounce time.Duration, logger zerolog.Logger) (*WatchTrigger, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	wt := &WatchTrigger{
		watcher:  watcher,
		debounce: debounce,
		logger:   logger.With().Str("component", "WatchTrigger").Logger(),
		requests: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	for _, root := range roots {
		if err := wt.addRecursive(root); err != nil {
			wt.logger.Warn().Err(err).Str("root", root).Msg("Failed to watch root")
		}
	}
	return wt, nil
}

func (wt *WatchTrigger) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return err
			}
			wt.logger.Debug().Err(err).Str("path", path).Msg("Skipping unwatchable path")
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := wt.watcher.Add(path); err != nil {
			wt.logger.Debug().Err(err).Str("path", path).Msg("Failed to add watch")
		}
		return nil
	})
}

// C delivers one signal per debounced burst of filesystem activity.
func (wt *WatchTrigger) C() <-chan struct{} {
	return wt.requests
}

// Start begins translating watcher events into scan requests.
func (wt *WatchTrigger) Start() {
	wt.wg.Add(1)
	go wt.loop()
	wt.logger.Info().Dur("debounce", wt.debounce).Msg("Watch trigger started")
}

// Stop closes the watcher and waits for the event loop to exit.
func (wt *WatchTrigger) Stop() {
	close(wt.done)
	if err := wt.watcher.Close(); err != nil {
		wt.logger.Error().Err(err).Msg("Failed to close filesystem watcher")
	}
	wt.wg.Wait()
	wt.logger.Info().Msg("Watch trigger stopped")
}

func (wt *WatchTrigger) loop() {
	defer wt.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-wt.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-wt.watcher.Events:
			if !ok {
				return
			}
			wt.handleEvent(event)
			// Restart the debounce window on every event so one signal
			// covers a whole burst.
			if timer == nil {
				timer = time.NewTimer(wt.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(wt.debounce)
			}

		case <-timerC:
			select {
			case wt.requests <- struct{}{}:
			default:
			}

		case err, ok := <-wt.watcher.Errors:
			if !ok {
				return
			}
			wt.logger.Error().Err(err).Msg("Filesystem watcher error")
		}
	}
}

func (wt *WatchTrigger) handleEvent(event fsnotify.Event) {
	wt.logger.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("Filesystem event")

	// New directories need their own watch to keep coverage recursive.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := wt.addRecursive(event.Name); err != nil {
				wt.logger.Debug().Err(err).Str("path", event.Name).Msg("Failed to watch new directory")
			}
		}
	}
}
