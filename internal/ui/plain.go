package ui

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
)

// plainProgress renders a Counter as log-friendly lines for CI consoles.
type plainProgress struct {
	*Counter
	out   io.Writer
	label string

	lastStep int
}

func (p *plainProgress) Start(total int64) {
	p.Counter.Start(total)
	p.lastStep = 0
	if total > 0 {
		fmt.Fprintf(p.out, "Downloading %s (%s)\n", p.label, humanize.Bytes(uint64(total)))
	} else {
		fmt.Fprintf(p.out, "Downloading %s\n", p.label)
	}
}

func (p *plainProgress) Add(n int) {
	p.Counter.Add(n)

	pct := p.Percent()
	if pct < 0 {
		return
	}
	step := int(pct * 10)
	if step > p.lastStep {
		p.lastStep = step
		current, total := p.Snapshot()
		fmt.Fprintf(p.out, "  %3d%% %s\n", step*10, formatTransfer(current, total))
	}
}

func (p *plainProgress) finish(n int64, err error) {
	if err != nil {
		fmt.Fprintln(p.out, resultLine("Download of "+p.label, err))
		return
	}
	fmt.Fprintln(p.out, successStyle.Render(fmt.Sprintf("✓ Downloaded %s (%s)", p.label, humanize.Bytes(uint64(n)))))
}
