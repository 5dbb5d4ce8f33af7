// Package mtime answers "is X older than Y?" questions over file
// modification times. Both the whole-project check (is the generated backend
// file current?) and the per-artifact check (does this object need
// recompiling?) are built from the helpers here.
//
// A tie (latest input time == oldest output time) counts as up to date so
// that repeated invocations reach a fixed point.
package mtime

import (
	"os"
	"time"

	"golang.org/x/xerrors"
)

// Latest returns the newest modification time among paths. Paths which do
// not exist are skipped when ignoreMissing is set; otherwise any stat
// failure is returned.
func Latest(paths []string, ignoreMissing bool) (time.Time, error) {
	var latest time.Time
	for _, path := range paths {
		fi, err := os.Stat(path)
		if err != nil {
			if ignoreMissing && os.IsNotExist(err) {
				continue
			}
			return time.Time{}, xerrors.Errorf("stat %s: %w", path, err)
		}
		if m := fi.ModTime(); m.After(latest) {
			latest = m
		}
	}
	return latest, nil
}

// Oldest returns the oldest modification time among paths. All paths must
// exist.
func Oldest(paths []string) (time.Time, error) {
	var oldest time.Time
	for idx, path := range paths {
		fi, err := os.Stat(path)
		if err != nil {
			return time.Time{}, xerrors.Errorf("stat %s: %w", path, err)
		}
		if m := fi.ModTime(); idx == 0 || m.Before(oldest) {
			oldest = m
		}
	}
	return oldest, nil
}

// Missing reports whether any of the paths does not exist.
func Missing(paths []string) (bool, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return true, nil
			}
			return false, xerrors.Errorf("stat %s: %w", path, err)
		}
	}
	return false, nil
}

// NeedsRebuild reports whether outputs must be regenerated from inputs:
// outputs is empty, an output is missing, or the newest existing input is
// strictly newer than the oldest output. Missing inputs are ignored — they
// did not contribute to the previous build either, and are either produced
// by an upstream step or will fail the tool that consumes them.
func NeedsRebuild(inputs, outputs []string) (bool, error) {
	if len(outputs) == 0 {
		return true, nil
	}
	missing, err := Missing(outputs)
	if err != nil {
		return false, err
	}
	if missing {
		return true, nil
	}
	latest, err := Latest(inputs, true)
	if err != nil {
		return false, err
	}
	oldest, err := Oldest(outputs)
	if err != nil {
		return false, err
	}
	return latest.After(oldest), nil
}
