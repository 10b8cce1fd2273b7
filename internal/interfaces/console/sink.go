package console

import (
	"fmt"
	"time"

	"fundwatch/internal/application/port"
)

type Sink struct{}

func NewSink() port.Sink { return &Sink{} }

func (s *Sink) WriteLive(line string) error {
	fmt.Print(line) // no newline
	return nil
}

// Report block is appended with its timestamp; an empty line separates it
// from the live line that keeps redrawing below.
func (s *Sink) WriteReport(ts time.Time, block string) error {
	fmt.Print("\n")
	fmt.Printf("%s\n%s\n", ts.Format("2006-01-02 15:04:05"), block)
	fmt.Print("\n")
	return nil
}

func (s *Sink) NewLine() error {
	fmt.Print("\n")
	return nil
}
