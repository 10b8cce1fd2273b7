package port

import "time"

type Sink interface {
	// Live line: overwrite last line (no newline)
	WriteLive(line string) error
	// Report block: append the rendered ranking report with its timestamp
	WriteReport(ts time.Time, block string) error
	// Normal newline (for logs)
	NewLine() error
}
