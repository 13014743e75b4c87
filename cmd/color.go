package cmd

import "github.com/fatih/color"

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func mark(ok bool) string {
	if ok {
		return green(plainMark(ok))
	}
	return red(plainMark(ok))
}

func plainMark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}
