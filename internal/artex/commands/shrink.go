package commands

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gingerrexayers/artex-go/internal/artex/lib"
	"github.com/gingerrexayers/artex-go/internal/artex/logging"
	"golang.org/x/term"
)

// Prompter reads one choice character from the operator for each displayed
// action. It exists as an interface so tests can script the prompt.
type Prompter interface {
	ReadChoice() (byte, error)
}

// ReaderPrompter reads choices from a plain byte stream (piped stdin, test
// fixtures), skipping whitespace and newlines.
type ReaderPrompter struct {
	R io.Reader
}

// ReadChoice implements Prompter.
func (p *ReaderPrompter) ReadChoice() (byte, error) {
	buf := make([]byte, 1)
	for {
		if _, err := io.ReadFull(p.R, buf); err != nil {
			return 0, err
		}
		switch buf[0] {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			return buf[0], nil
		}
	}
}

// ShrinkOptions holds the configuration for the shrink command.
type ShrinkOptions struct {
	CacheDir string
	Prompter Prompter
	// Out receives the per-action summaries and the final report. Defaults
	// to os.Stdout.
	Out io.Writer
}

// actionReferences is the set of objects and path-index paths one action
// keeps alive: the six record digests, the key-line object (named by the
// action id), and every hash and path in its two manifests.
type actionReferences struct {
	objects []string
	paths   []string
}

// Shrink walks cached actions oldest first, prompting the operator to remove
// ('r'), skip ('s'), or quit ('q') each, then sweeps every object and
// path-index entry no longer referenced by a surviving action.
func Shrink(opts ShrinkOptions) error {
	logger := logging.Get("shrinker")

	if opts.CacheDir == "" {
		return fmt.Errorf("%w: no cache directory given and ARTIFACT_EXECUTOR_CACHE is unset", lib.ErrConfig)
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	store := lib.NewStore(opts.CacheDir)

	unreferencedObjects, err := listObjects(opts.CacheDir)
	if err != nil {
		return fmt.Errorf("failed to list objects: %w", err)
	}
	unreferencedPaths, err := listIndexedPaths(opts.CacheDir)
	if err != nil {
		return fmt.Errorf("failed to list path-index entries: %w", err)
	}

	actions, err := lib.GetSortedActions(opts.CacheDir)
	if err != nil {
		return fmt.Errorf("failed to list actions: %w", err)
	}

	// First pass, newest first: move every referenced object and path out of
	// the unreferenced sets and into the refcount maps.
	objectRefs := make(map[string]int)
	pathRefs := make(map[string]int)
	references := make(map[string]actionReferences, len(actions))

	for i := len(actions) - 1; i >= 0; i-- {
		action := actions[i]
		refs, err := collectReferences(store, action)
		if err != nil {
			logger.Warn("skipping unreadable action", "action", action.ID[:12], "err", err)
			continue
		}
		references[action.ID] = refs

		for _, object := range refs.objects {
			delete(unreferencedObjects, object)
			objectRefs[object]++
		}
		for _, path := range refs.paths {
			delete(unreferencedPaths, path)
			pathRefs[path]++
		}
	}

	// Display pass, oldest first.
	removed := 0
	for _, action := range actions {
		refs, ok := references[action.ID]
		if !ok {
			continue
		}

		fmt.Fprintln(opts.Out, summarizeAction(store, action, refs, objectRefs))
		fmt.Fprint(opts.Out, "  [r]emove / [s]kip / [q]uit? ")

		choice, err := opts.Prompter.ReadChoice()
		if err != nil {
			return fmt.Errorf("failed to read prompt choice: %w", err)
		}
		fmt.Fprintln(opts.Out, string(choice))

		if choice == 'q' {
			break
		}
		if choice != 'r' {
			continue
		}

		for _, object := range refs.objects {
			objectRefs[object]--
			if objectRefs[object] == 0 {
				delete(objectRefs, object)
				unreferencedObjects[object] = struct{}{}
			}
		}
		for _, path := range refs.paths {
			pathRefs[path]--
			if pathRefs[path] == 0 {
				delete(pathRefs, path)
				unreferencedPaths[path] = struct{}{}
			}
		}

		if err := os.Remove(lib.GetActionPath(opts.CacheDir, action.ID)); err != nil {
			return fmt.Errorf("failed to delete action record %s: %w", action.ID, err)
		}
		removed++
		logger.Info("action removed", "action", action.ID[:12])
	}

	reclaimed, err := sweep(opts.CacheDir, unreferencedObjects, unreferencedPaths)
	if err != nil {
		return err
	}

	fmt.Fprintf(opts.Out, "Removed %d action(s), deleted %d object(s) and %d path-index entr(ies), reclaimed %s.\n",
		removed, len(unreferencedObjects), len(unreferencedPaths), humanize.IBytes(uint64(reclaimed)))
	return nil
}

// collectReferences gathers every object digest and path-index path an action
// record keeps alive.
func collectReferences(store *lib.Store, action lib.ActionDetail) (actionReferences, error) {
	objects := make(map[string]struct{})
	paths := make(map[string]struct{})

	// The key-line object is named by the action id itself.
	objects[action.ID] = struct{}{}
	for _, digest := range action.Record.Digests() {
		objects[digest] = struct{}{}
	}

	for _, manifestHash := range []string{action.Record.Inputs, action.Record.Outputs} {
		body, err := store.ReadObject(manifestHash)
		if err != nil {
			return actionReferences{}, err
		}
		entries, err := lib.ParseManifest(body)
		if err != nil {
			return actionReferences{}, err
		}
		for _, entry := range entries {
			objects[entry.Hash] = struct{}{}
			paths[entry.Path] = struct{}{}
		}
	}

	refs := actionReferences{
		objects: make([]string, 0, len(objects)),
		paths:   make([]string, 0, len(paths)),
	}
	for object := range objects {
		refs.objects = append(refs.objects, object)
	}
	for path := range paths {
		refs.paths = append(refs.paths, path)
	}
	sort.Strings(refs.objects)
	sort.Strings(refs.paths)
	return refs, nil
}

// summarizeAction renders one prompt line: identifier prefix, age, argument
// list, and the min/max bytes attributable to the action. Max sums every
// referenced blob; min sums only blobs uniquely referenced by this action,
// i.e. the bytes removal would actually recover.
func summarizeAction(store *lib.Store, action lib.ActionDetail, refs actionReferences, objectRefs map[string]int) string {
	var minBytes, maxBytes int64
	for _, object := range refs.objects {
		info, err := os.Stat(lib.GetObjectPath(store.CacheDir, object))
		if err != nil {
			continue
		}
		maxBytes += info.Size()
		if objectRefs[object] == 1 {
			minBytes += info.Size()
		}
	}

	args := "(unreadable args)"
	if body, err := store.ReadObject(action.Record.Args); err == nil {
		args = strings.Join(strings.Fields(string(body)), " ")
		if len(args) > 60 {
			args = args[:57] + "..."
		}
	}

	return fmt.Sprintf("action %s  program %s  %s\n  args: %s\n  cached bytes: %s min / %s max",
		action.ID[:12],
		action.Record.Program[:12],
		action.ModTime.Format("2006-01-02 15:04:05"),
		args,
		humanize.IBytes(uint64(minBytes)),
		humanize.IBytes(uint64(maxBytes)))
}

// listObjects returns the set of blob names present in objects/.
func listObjects(cacheDir string) (map[string]struct{}, error) {
	entries, err := os.ReadDir(lib.GetObjectsDir(cacheDir))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]struct{}{}, nil
		}
		return nil, err
	}

	objects := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			objects[entry.Name()] = struct{}{}
		}
	}
	return objects, nil
}

// listIndexedPaths returns the set of absolute real paths mirrored in
// path-index/.
func listIndexedPaths(cacheDir string) (map[string]struct{}, error) {
	indexDir := lib.GetPathIndexDir(cacheDir)
	paths := make(map[string]struct{})

	err := filepath.WalkDir(indexDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			paths[strings.TrimPrefix(path, indexDir)] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// sweep deletes every unreferenced object and path-index leaf, then removes
// directories left empty in the path-index mirror. It returns the number of
// object bytes reclaimed.
func sweep(cacheDir string, unreferencedObjects, unreferencedPaths map[string]struct{}) (int64, error) {
	var reclaimed int64

	for object := range unreferencedObjects {
		objectPath := lib.GetObjectPath(cacheDir, object)
		if info, err := os.Stat(objectPath); err == nil {
			reclaimed += info.Size()
		}
		if err := os.Remove(objectPath); err != nil && !os.IsNotExist(err) {
			return 0, fmt.Errorf("failed to delete object %s: %w", object, err)
		}
	}

	for path := range unreferencedPaths {
		leaf := lib.GetPathIndexPath(cacheDir, path)
		if err := os.Remove(leaf); err != nil && !os.IsNotExist(err) {
			return 0, fmt.Errorf("failed to delete path-index entry %s: %w", path, err)
		}
	}

	if err := removeEmptyDirs(lib.GetPathIndexDir(cacheDir)); err != nil {
		return 0, err
	}
	return reclaimed, nil
}

// removeEmptyDirs prunes empty directories bottom-up under root, leaving root
// itself in place.
func removeEmptyDirs(root string) error {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Deepest first, so parents empty out as children are removed.
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			continue
		}
		if err := os.Remove(dir); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// terminalPrompter reads single characters from the controlling terminal in
// raw mode. The terminal is a dedicated input channel, so choices still work
// when stdin carries piped data.
type terminalPrompter struct {
	tty *os.File
}

// NewTerminalPrompter opens /dev/tty for prompt input. It fails where no
// controlling terminal exists (CI, cron); callers fall back to stdin.
func NewTerminalPrompter() (Prompter, error) {
	tty, err := os.Open("/dev/tty")
	if err != nil {
		return nil, err
	}
	return &terminalPrompter{tty: tty}, nil
}

// ReadChoice implements Prompter.
func (p *terminalPrompter) ReadChoice() (byte, error) {
	fd := int(p.tty.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return 0, err
	}
	defer term.Restore(fd, oldState)

	buf := make([]byte, 1)
	if _, err := io.ReadFull(p.tty, buf); err != nil {
		return 0, err
	}
	if buf[0] == 3 { // Ctrl-C in raw mode
		return 'q', nil
	}
	return buf[0], nil
}
