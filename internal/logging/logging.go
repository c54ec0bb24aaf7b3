package logging

import (
	"path/filepath"
	"time"
)

// LogFilePath names the log file for a run started at start. Names sort
// by start time and use UTC so runs on different hosts line up.
func LogFilePath(logsDir string, start time.Time) string {
	return filepath.Join(logsDir, InstrumentationName+"-"+start.UTC().Format("20060102T150405Z")+".log")
}
