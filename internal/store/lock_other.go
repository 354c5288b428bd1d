//go:build !unix

package store

import "os"

// Platforms without flock get no cross-process exclusion; the single-writer
// assumption is then the caller's responsibility.
func tryLock(*os.File) (bool, error) { return true, nil }

func unlock(*os.File) error { return nil }
