package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath builds a session log file path using OS-appropriate path
// separators. Each run gets its own file stamped with the session start.
func LogFilePath(logsDir, appName string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", appName, sessionStart.Format("20060102_150405")),
	)
}
