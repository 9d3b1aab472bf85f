// Package commands contains the command-line operations for the artex application.
package commands

import (
	"fmt"
	"os"

	"github.com/gingerrexayers/artex-go/internal/artex/lib"
	"github.com/gingerrexayers/artex-go/internal/artex/logging"
	"github.com/gingerrexayers/artex-go/internal/artex/types"
)

// ExecuteOptions holds the configuration for the execute command.
type ExecuteOptions struct {
	CacheDir   string
	WorkingDir string
	Env        map[string]string
	Program    string
	Args       []string
	Inputs     []string
	Outputs    []string

	// Tracer runs the program under filesystem tracing on a cache miss.
	Tracer lib.Tracer

	// Rebase rewrites environment values for the sandbox. Defaults to
	// lib.RebasePathsInEnvironment.
	Rebase lib.EnvRebaser
}

// Execute runs an action through the cache: replay on a hit, sandboxed traced
// execution followed by publication on a miss.
func Execute(opts ExecuteOptions) error {
	logger := logging.Get("executor")

	if opts.CacheDir == "" {
		return fmt.Errorf("%w: no cache directory given and ARTIFACT_EXECUTOR_CACHE is unset", lib.ErrConfig)
	}
	if opts.Program == "" {
		return fmt.Errorf("%w: no program given", lib.ErrConfig)
	}
	if opts.Rebase == nil {
		opts.Rebase = lib.RebasePathsInEnvironment
	}

	if _, err := lib.EnsureCacheDirs(opts.CacheDir); err != nil {
		return fmt.Errorf("failed to ensure cache directories: %w", err)
	}
	store := lib.NewStore(opts.CacheDir)

	key, err := lib.ComputeActionKey(store, opts.WorkingDir, opts.Env, opts.Program, opts.Args, opts.Inputs)
	if err != nil {
		return err
	}
	logger.Debug("action keyed", "action", key.ID)

	if record, err := lib.ReadActionRecord(opts.CacheDir, key.ID); err == nil {
		return replayAction(store, key, record)
	}

	logger.Info("cache miss, executing", "action", key.ID[:12])
	return runAction(store, key, opts)
}

// replayAction restores a previously recorded action's outputs from the
// object store without running anything.
func replayAction(store *lib.Store, key lib.ActionKey, record types.ActionRecord) error {
	// Any disagreement between the stored record and the freshly computed
	// digests means the record is corrupt.
	fresh := key.Record(record.Outputs)
	if fresh != record {
		return fmt.Errorf("%w: action %s", lib.ErrHashMismatch, key.ID)
	}

	manifestBody, err := store.ReadObject(record.Outputs)
	if err != nil {
		return fmt.Errorf("failed to read outputs manifest for replay: %w", err)
	}
	entries, err := lib.ParseManifest(manifestBody)
	if err != nil {
		return fmt.Errorf("failed to parse outputs manifest for replay: %w", err)
	}

	for _, entry := range entries {
		objectPath := lib.GetObjectPath(store.CacheDir, entry.Hash)
		if _, err := os.Stat(objectPath); err != nil {
			return fmt.Errorf("%w: object %s for output %s", lib.ErrNotFound, entry.Hash, entry.Path)
		}
		if err := lib.CopyFile(objectPath, entry.Path); err != nil {
			return fmt.Errorf("failed to restore output %s: %w", entry.Path, err)
		}
	}

	logging.Get("executor").Info("cache hit, outputs restored", "action", key.ID[:12], "outputs", len(entries))
	return nil
}

// runAction executes the action in a fresh sandbox, reconciles the trace
// against the declarations, caches the results, and publishes the record.
// The record is written last, so a killed executor never leaves a record
// referring to state that was not fully cached.
func runAction(store *lib.Store, key lib.ActionKey, opts ExecuteOptions) error {
	logger := logging.Get("executor")

	if opts.Tracer == nil {
		return fmt.Errorf("%w: no tracer configured", lib.ErrConfig)
	}

	tempRoot, err := lib.ProcessTempDir()
	if err != nil {
		return fmt.Errorf("failed to create process temp directory: %w", err)
	}

	sandbox, err := lib.NewSandbox(tempRoot)
	if err != nil {
		return err
	}
	defer sandbox.Remove()

	programPath, err := lib.ResolvePath(opts.Program)
	if err != nil {
		return fmt.Errorf("failed to resolve program path: %w", err)
	}
	declaredInputs, err := resolveAll(opts.Inputs)
	if err != nil {
		return err
	}
	declaredOutputs, err := resolveAll(opts.Outputs)
	if err != nil {
		return err
	}

	staged := append(append([]string{}, declaredInputs...), programPath)
	if err := sandbox.StageInputs(staged); err != nil {
		return err
	}
	if err := sandbox.MirrorWorkingDir(opts.WorkingDir); err != nil {
		return fmt.Errorf("failed to mirror working directory: %w", err)
	}

	eventsFile, err := os.CreateTemp(tempRoot, "events-")
	if err != nil {
		return fmt.Errorf("failed to create trace events file: %w", err)
	}
	eventsPath := eventsFile.Name()
	eventsFile.Close()

	spec := lib.CommandSpec{
		Program:    sandbox.Rebase(programPath),
		Args:       opts.Args,
		Env:        opts.Rebase(sandbox.Root, opts.Env),
		WorkingDir: sandbox.Rebase(opts.WorkingDir),
	}
	logger.Debug("running traced program", "program", spec.Program, "wd", spec.WorkingDir)
	if err := opts.Tracer.Trace(spec, eventsPath); err != nil {
		return err
	}

	events, err := readTraceEvents(eventsPath)
	if err != nil {
		return err
	}
	states, err := lib.FoldTraceEvents(events)
	if err != nil {
		return err
	}
	tracedInputs, tracedOutputs := lib.ClassifyTraceStates(states)

	traced := append(append([]string{}, tracedInputs...), tracedOutputs...)
	if err := sandbox.CheckHermeticFiles(store.CacheDir, traced); err != nil {
		return err
	}

	if err := reconcileInputs(store.CacheDir, sandbox, declaredInputs, programPath, tracedInputs); err != nil {
		return err
	}
	outputsManifestHash, err := reconcileAndCacheOutputs(store, sandbox, declaredOutputs, tracedOutputs)
	if err != nil {
		return err
	}

	if err := sandbox.ExtractOutputs(store, declaredOutputs); err != nil {
		return err
	}

	if err := lib.WriteActionRecord(store.CacheDir, key.ID, key.Record(outputsManifestHash)); err != nil {
		return fmt.Errorf("failed to publish action record: %w", err)
	}

	logger.Info("action published", "action", key.ID[:12], "outputs", len(declaredOutputs))
	return nil
}

// readTraceEvents parses the tracer's event log file.
func readTraceEvents(eventsPath string) ([]lib.TraceEvent, error) {
	eventsFile, err := os.Open(eventsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open trace events: %v", lib.ErrTracerFailure, err)
	}
	defer eventsFile.Close()
	return lib.ParseTraceEvents(eventsFile)
}

// reconcileInputs compares the declared inputs against the traced reads after
// stripping the sandbox prefix. A traced input missing from the declarations
// is fatal; a declared input the program never touched is only warned about.
func reconcileInputs(cacheDir string, sandbox *lib.Sandbox, declaredInputs []string, programPath string, tracedInputs []string) error {
	declared := make(map[string]bool, len(declaredInputs)+1)
	for _, path := range declaredInputs {
		declared[path] = false
	}
	declared[programPath] = false

	for _, traced := range tracedInputs {
		realPath := traced
		if sandbox.Contains(traced) {
			realPath = sandbox.StripPrefix(traced)
		}
		if lib.IsPathExempt(cacheDir, realPath) {
			continue
		}
		if _, ok := declared[realPath]; !ok {
			return fmt.Errorf("%w: %s", lib.ErrUndeclaredInput, realPath)
		}
		declared[realPath] = true
	}

	logger := logging.Get("executor")
	for path, touched := range declared {
		if !touched {
			logger.Warn("declared input never read", "path", path)
		}
	}
	return nil
}

// reconcileAndCacheOutputs verifies every declared output was produced in the
// sandbox, ingests the sandbox copies into the object store under their real
// absolute paths, and returns the digest of the resulting outputs manifest.
// Traced writes that were not declared are transient and stay uncached.
func reconcileAndCacheOutputs(store *lib.Store, sandbox *lib.Sandbox, declaredOutputs, tracedOutputs []string) (string, error) {
	produced := make(map[string]bool, len(tracedOutputs))
	for _, traced := range tracedOutputs {
		realPath := traced
		if sandbox.Contains(traced) {
			realPath = sandbox.StripPrefix(traced)
		}
		produced[realPath] = true
	}

	entries := make([]types.ManifestEntry, 0, len(declaredOutputs))
	for _, outputPath := range declaredOutputs {
		if !produced[outputPath] {
			return "", fmt.Errorf("%w: %s", lib.ErrMissingOutput, outputPath)
		}
		delete(produced, outputPath)

		if err := lib.ValidateManifestPath(outputPath); err != nil {
			return "", err
		}
		stamp, err := store.CacheFile(sandbox.Rebase(outputPath), outputPath)
		if err != nil {
			return "", fmt.Errorf("failed to cache output %s: %w", outputPath, err)
		}
		entries = append(entries, types.ManifestEntry{Path: outputPath, Hash: stamp.Hash, Size: stamp.Size})
	}

	logger := logging.Get("executor")
	for extra := range produced {
		logger.Debug("transient write not declared as output", "path", extra)
	}

	manifestHash, err := store.PutObject(lib.BuildManifest(entries))
	if err != nil {
		return "", err
	}
	return manifestHash, nil
}

// resolveAll resolves a list of declared paths to absolute form.
func resolveAll(paths []string) ([]string, error) {
	resolved := make([]string, 0, len(paths))
	for _, path := range paths {
		r, err := lib.ResolvePath(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
		}
		resolved = append(resolved, r)
	}
	return resolved, nil
}
