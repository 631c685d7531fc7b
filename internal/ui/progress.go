package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/progress"
)

// PackProgress renders a single-line progress bar for a linear pass over a
// posting store during pack, without pulling in the full bubbletea runtime
// a multi-stage tracker would need.
type PackProgress struct {
	out io.Writer
	bar progress.Model
}

// NewPackProgress creates a progress bar writing carriage-return-terminated
// updates to out.
func NewPackProgress(out io.Writer) *PackProgress {
	return &PackProgress{
		out: out,
		bar: progress.New(
			progress.WithSolidFill(ColorLime),
			progress.WithWidth(40),
		),
	}
}

// Update renders the bar at done/total completion.
func (p *PackProgress) Update(done, total int) {
	if total <= 0 {
		return
	}
	pct := float64(done) / float64(total)
	if pct > 1 {
		pct = 1
	}
	fmt.Fprintf(p.out, "\r%s %d/%d", p.bar.ViewAs(pct), done, total)
}

// Done finishes the bar and moves to a new line.
func (p *PackProgress) Done() {
	fmt.Fprintf(p.out, "\r%s done\n", p.bar.ViewAs(1))
}
