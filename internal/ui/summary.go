package ui

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// CallSummary holds the end-of-call report rendered after hang-up.
type CallSummary struct {
	Duration       time.Duration
	FramesSent     uint64
	FramesReceived uint64
	FramesDropped  uint64
	AudioReceived  uint64
	VideoReceived  uint64
}

// RenderCallSummary prints the end-of-call table to stdout.
func RenderCallSummary(s CallSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.Style().Title.Align = text.AlignCenter

	t.SetTitle("Call Summary")
	t.AppendRows([]table.Row{
		{"Duration", formatCallDuration(s.Duration)},
		{"Frames sent", s.FramesSent},
		{"Frames received", s.FramesReceived},
		{"Audio frames", s.AudioReceived},
		{"Video frames", s.VideoReceived},
	})
	if s.FramesDropped > 0 {
		t.AppendRow(table.Row{"Frames dropped", s.FramesDropped})
	}

	fmt.Println()
	t.Render()
}
