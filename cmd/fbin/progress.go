package main

import (
	"fmt"
	"io"
	"strings"
)

const barWidth = 40

type progressBar struct {
	w     io.Writer
	label string
	last  int
}

func newProgressBar(w io.Writer, label string) *progressBar {
	return &progressBar{w: w, label: label, last: -1}
}

func (p *progressBar) update(done, total int) {
	if total <= 0 || done == p.last {
		return
	}
	p.last = done

	filled := barWidth * done / total
	fmt.Fprintf(p.w, "\r%s [%s%s] %d/%d (%d%%)", p.label, strings.Repeat("=", filled), strings.Repeat(" ", barWidth-filled), done, total, 100*done/total)
	if done == total {
		fmt.Fprintln(p.w)
	}
}
