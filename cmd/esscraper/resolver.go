package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"esscraper/provider"
)

// consoleResolver renders the candidate table on stdout and reads the
// selected ID from stdin. There is no timeout; the prompt blocks until the
// user answers.
type consoleResolver struct {
	in *bufio.Reader
}

func newConsoleResolver() *consoleResolver {
	return &consoleResolver{in: bufio.NewReader(os.Stdin)}
}

func (r *consoleResolver) Present(candidates []provider.Candidate) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Name", "URL"})
	for _, c := range candidates {
		t.AppendRow(table.Row{c.ID, c.Name, c.DetailURL})
	}
	t.Render()
}

func (r *consoleResolver) Choose(candidates []provider.Candidate) (int, bool) {
	fmt.Println()
	fmt.Println("Enter an ID to use the metadata and media from that title.")
	fmt.Println("(Hint: Control+Click on the URL to open the page in your browser)")
	fmt.Println()

	line, err := r.in.ReadString('\n')
	if err != nil {
		return 0, false
	}

	idx, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, false
	}
	for _, c := range candidates {
		if c.ID == idx {
			return idx, true
		}
	}
	return 0, false
}
