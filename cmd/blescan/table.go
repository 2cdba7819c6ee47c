package main

import (
	"fmt"
	"strings"
)

type table struct {
	rows    [][]string
	printed int
}

func newTable(headers ...string) *table {
	return &table{rows: [][]string{headers}}
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) print() {
	// determine column widths
	widths := make([]int, len(t.rows[0]))
	for _, row := range t.rows {
		for i, cell := range row {
			if widths[i] < len(cell) {
				widths[i] = len(cell)
			}
		}
	}

	// print rows
	for _, row := range t.rows {
		var cells []string
		for i, cell := range row {
			if i < len(row)-1 {
				cell += strings.Repeat(" ", widths[i]-len(cell))
			}
			cells = append(cells, cell)
		}
		fmt.Println(strings.Join(cells, "   "))
	}

	// save printed lines
	t.printed = len(t.rows)
}

func (t *table) clear() {
	// move cursor up the amount of printed lines
	if t.printed > 0 {
		fmt.Printf("\033[%dA", t.printed)
	}

	// reset rows, but retain headers
	t.rows = t.rows[:1]
}
