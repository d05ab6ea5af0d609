// Package locator resolves, given a symbol and date, the TRADES/DEPTH
// input paths and their -SYNC output counterparts.
package locator

import (
	"fmt"
	"path/filepath"
	"time"
)

// Paths bundles the four file paths one synchronizer run needs.
type Paths struct {
	TradesIn  string
	DepthIn   string
	TradesOut string
	DepthOut  string
}

// Locator resolves Paths for a (symbol, date) pair.
type Locator interface {
	Resolve(symbol string, date time.Time) Paths
}

// Default implements the on-disk naming convention:
// <dir>/<symbol>.scid, <dir>/<symbol>.<date>.depth,
// <dir>/<symbol>-SYNC.scid, <dir>/<symbol>-SYNC.<date>.depth.
type Default struct {
	DataDir   string
	OutputDir string
}

// New returns a Default locator rooted at the given data and output
// directories.
func New(dataDir, outputDir string) Default {
	return Default{DataDir: dataDir, OutputDir: outputDir}
}

func (d Default) Resolve(symbol string, date time.Time) Paths {
	day := date.Format("2006-01-02")
	return Paths{
		TradesIn:  filepath.Join(d.DataDir, fmt.Sprintf("%s.scid", symbol)),
		DepthIn:   filepath.Join(d.DataDir, fmt.Sprintf("%s.%s.depth", symbol, day)),
		TradesOut: filepath.Join(d.OutputDir, fmt.Sprintf("%s-SYNC.scid", symbol)),
		DepthOut:  filepath.Join(d.OutputDir, fmt.Sprintf("%s-SYNC.%s.depth", symbol, day)),
	}
}
