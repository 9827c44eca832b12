package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/beambalancer/logging"
)

// reloadQuietPeriod coalesces the burst of events an editor produces when saving.
const reloadQuietPeriod = 50 * time.Millisecond

type parameterFile struct {
	Tunables    Tunables `json:"tunables"`
	Calibration struct {
		Low  Offsets `json:"low"`
		High Offsets `json:"high"`
	} `json:"calibration"`
}

// FileParameters is a Parameters backed by a JSON file. Tunables are reloaded whenever the file
// changes on disk; calibration offsets are written back from a background worker so that SetOffsets
// never blocks the tick.
type FileParameters struct {
	*MemoryParameters

	path    string
	logger  logging.Logger
	watcher *fsnotify.Watcher
	dirty   chan struct{}
	// debounced runs reloads once the file has been quiet for reloadQuietPeriod.
	debounced func(f func())

	// writeMu serializes file writes with reloads.
	writeMu sync.Mutex

	cancelCtx               context.Context
	cancelFunc              context.CancelFunc
	activeBackgroundWorkers sync.WaitGroup
}

// NewFileParameters loads path, creating it with DefaultTunables when missing, and starts watching
// it for changes.
func NewFileParameters(path string, logger logging.Logger) (*FileParameters, error) {
	fp := &FileParameters{
		MemoryParameters: NewMemoryParameters(DefaultTunables()),
		path:             filepath.Clean(path),
		logger:           logger,
		dirty:            make(chan struct{}, 1),
		debounced:        debounce.New(reloadQuietPeriod),
	}

	contents, err := fp.readFile()
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Infow("parameter file missing, writing defaults", "path", fp.path)
		if err := fp.writeFile(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		fp.tunables = contents.Tunables
		fp.offsets[SlotLow] = contents.Calibration.Low
		fp.offsets[SlotHigh] = contents.Calibration.High
	}

	// Editors often replace the file, so the directory is watched rather than the file itself.
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "cannot create parameter file watcher")
	}
	if err := watcher.Add(filepath.Dir(fp.path)); err != nil {
		utils.UncheckedError(watcher.Close())
		return nil, errors.Wrapf(err, "cannot watch %s", fp.path)
	}
	fp.watcher = watcher
	fp.cancelCtx, fp.cancelFunc = context.WithCancel(context.Background())

	fp.activeBackgroundWorkers.Add(2)
	utils.ManagedGo(fp.watchLoop, fp.activeBackgroundWorkers.Done)
	utils.ManagedGo(fp.persistLoop, fp.activeBackgroundWorkers.Done)
	return fp, nil
}

// SetOffsets stores offsets and schedules a write of the file.
func (fp *FileParameters) SetOffsets(slot OffsetSlot, offsets Offsets) {
	fp.MemoryParameters.SetOffsets(slot, offsets)
	select {
	case fp.dirty <- struct{}{}:
	default:
	}
}

// Close stops watching, flushes pending offsets and waits for the workers.
func (fp *FileParameters) Close() error {
	fp.cancelFunc()
	err := fp.watcher.Close()
	fp.activeBackgroundWorkers.Wait()
	select {
	case <-fp.dirty:
		if writeErr := fp.writeFile(); writeErr != nil {
			return writeErr
		}
	default:
	}
	return err
}

func (fp *FileParameters) watchLoop() {
	for {
		select {
		case <-fp.cancelCtx.Done():
			return
		case event, ok := <-fp.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != fp.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				fp.debounced(fp.reload)
			}
		case err, ok := <-fp.watcher.Errors:
			if !ok {
				return
			}
			fp.logger.Warnw("parameter file watcher error", "error", err)
		}
	}
}

func (fp *FileParameters) persistLoop() {
	for {
		select {
		case <-fp.cancelCtx.Done():
			return
		case <-fp.dirty:
			if err := fp.writeFile(); err != nil {
				fp.logger.Errorw("failed to persist calibration offsets", "path", fp.path, "error", err)
			}
		}
	}
}

// reload replaces the tunables from disk. Offsets in memory are authoritative once loaded.
func (fp *FileParameters) reload() {
	fp.writeMu.Lock()
	contents, err := fp.readFile()
	fp.writeMu.Unlock()
	if err != nil {
		fp.logger.Warnw("keeping previous tunables", "path", fp.path, "error", err)
		return
	}
	if err := contents.Tunables.Validate(); err != nil {
		fp.logger.Warnw("rejecting invalid tunables", "path", fp.path, "error", err)
		return
	}
	if contents.Tunables == fp.Tunables() {
		return
	}
	fp.SetTunables(contents.Tunables)
	fp.logger.Infow("tunables reloaded", "tunables", contents.Tunables)
}

func (fp *FileParameters) readFile() (*parameterFile, error) {
	//nolint:gosec
	data, err := os.ReadFile(fp.path)
	if err != nil {
		return nil, err
	}
	contents := &parameterFile{Tunables: DefaultTunables()}
	if err := json.Unmarshal(data, contents); err != nil {
		return nil, errors.Wrapf(err, "cannot parse parameter file %s", fp.path)
	}
	return contents, nil
}

// writeFile writes through a temporary file and a rename so that readers never see a partial file.
func (fp *FileParameters) writeFile() error {
	fp.writeMu.Lock()
	defer fp.writeMu.Unlock()

	var contents parameterFile
	contents.Tunables = fp.Tunables()
	contents.Calibration.Low = fp.Offsets(SlotLow)
	contents.Calibration.High = fp.Offsets(SlotHigh)
	data, err := json.MarshalIndent(&contents, "", "  ")
	if err != nil {
		return err
	}
	tmp := fp.path + ".tmp"
	//nolint:gosec
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrapf(err, "cannot write %s", tmp)
	}
	return errors.Wrapf(os.Rename(tmp, fp.path), "cannot replace %s", fp.path)
}
