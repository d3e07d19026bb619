// Package watch turns file-system notifications into reactz channels.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/zoobzio/reactz"
)

// Files watches paths and emits every fsnotify event for them. Directories
// are watched non-recursively, like fsnotify itself. The channel fails when
// ctx ends and releases the underlying watcher once it is cancelled.
func Files(ctx context.Context, clock reactz.Clock, paths ...string) (*reactz.Channel[fsnotify.Event], error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	for _, p := range paths {
		if err := w.Add(p); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("watch %s: %w", p, err)
		}
	}

	return run(ctx, clock, w, nil), nil
}

// Tree watches root and every directory below it. A directory is skipped
// when an ignore pattern matches its base name or its slash-separated path
// relative to root; patterns use doublestar syntax, so "**/testdata" and
// "build/*" both work. Directories created later are added as they appear.
func Tree(ctx context.Context, clock reactz.Clock, root string, ignore ...string) (*reactz.Channel[fsnotify.Event], error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	skip := func(path string) bool {
		base := filepath.Base(path)
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = base
		}
		rel = filepath.ToSlash(rel)
		for _, pattern := range ignore {
			if ok, _ := doublestar.Match(pattern, base); ok {
				return true
			}
			if ok, _ := doublestar.Match(pattern, rel); ok {
				return true
			}
		}
		return false
	}

	add := func(dir string) error {
		return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() {
				return nil
			}
			if path != dir && skip(path) {
				return filepath.SkipDir
			}
			if err := w.Add(path); err != nil {
				reactz.Logger().Warn().Err(err).Str("path", path).Msg("failed to add watch")
			}
			return nil
		})
	}

	if _, err := os.Stat(root); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", root, err)
	}
	if err := add(root); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", root, err)
	}

	onCreate := func(ev fsnotify.Event) {
		info, err := os.Stat(ev.Name)
		if err != nil || !info.IsDir() || skip(ev.Name) {
			return
		}
		_ = add(ev.Name)
	}

	return run(ctx, clock, w, onCreate), nil
}

func run(ctx context.Context, clock reactz.Clock, w *fsnotify.Watcher, onCreate func(fsnotify.Event)) *reactz.Channel[fsnotify.Event] {
	out := reactz.NewChannel[fsnotify.Event]().WithName("watch").WithClock(clock)

	go func() {
		defer w.Close()

		for {
			select {
			case <-ctx.Done():
				_ = out.Fail(ctx.Err())
				return

			case <-out.Done():
				return

			case ev, ok := <-w.Events:
				if !ok {
					_ = out.Complete()
					return
				}
				if onCreate != nil && ev.Has(fsnotify.Create) {
					onCreate(ev)
				}
				if err := out.Emit(ctx, ev); err != nil {
					return
				}

			case err, ok := <-w.Errors:
				if !ok {
					_ = out.Complete()
					return
				}
				if errors.Is(err, fsnotify.ErrEventOverflow) {
					reactz.Logger().Warn().Err(err).Msg("file events lost")
					continue
				}
				_ = out.Fail(err)
				return
			}
		}
	}()

	return out
}
