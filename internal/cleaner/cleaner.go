// Package cleaner implements §4.7: release every per-day resource the
// pipeline accumulated, without ever failing the day over a cleanup
// problem.
package cleaner

import (
	"os"

	"github.com/cuong/dayetl/internal/etlcontext"
	"github.com/cuong/dayetl/internal/observability"
)

// Cleaner deletes scratch files and closes the store handle recorded on
// an ETLContext. It is safe to call more than once; a second call finds
// nothing left to do and still marks cleanupPerformed.
type Cleaner struct {
	log observability.Logger
}

// New returns a Cleaner that logs partial-cleanup warnings through log.
func New(log observability.Logger) *Cleaner {
	return &Cleaner{log: log}
}

// Run deletes every path in ec.TempFiles (logging, not failing, on a
// missing or undeletable path), closes ec.StoreHandle if present, and
// unconditionally marks the day's cleanup as performed.
func (c *Cleaner) Run(ec *etlcontext.ETLContext) {
	for _, path := range ec.TempFiles {
		if err := os.RemoveAll(path); err != nil {
			c.log.Warn(observability.Event{
				Category:     "cleanup",
				Event:        "temp_file_cleanup_failed",
				ErrorDetails: path + ": " + err.Error(),
			})
		}
	}

	if ec.StoreHandle != nil {
		if err := ec.StoreHandle.Close(); err != nil {
			c.log.Warn(observability.Event{
				Category:     "cleanup",
				Event:        "store_handle_close_failed",
				ErrorDetails: err.Error(),
			})
		}
	}

	ec.CleanupPerformed = true
}
