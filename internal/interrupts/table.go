// Package interrupts reads the kernel interrupt counter table
// (/proc/interrupts) into per-IRQ cumulative totals.
package interrupts

import (
	"sort"
	"strconv"
	"strings"
)

// Entry is one numbered interrupt line with its per-CPU counts summed.
type Entry struct {
	IRQ   int
	Count uint64
	Label string
}

// Tokens splits the label on whitespace and commas. Shared lines list every
// handler ("idma64.1, i2c_designware.1").
func (e Entry) Tokens() []string {
	return strings.FieldsFunc(e.Label, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
}

// SkippedLine records a line that could not be parsed.
type SkippedLine struct {
	Line   int
	Text   string
	Reason string
}

// Table is one parsed snapshot of the interrupt table.
type Table struct {
	CPUs    int
	Entries map[int]Entry
	Skipped []SkippedLine
}

// Count returns the cumulative count for irq.
func (t Table) Count(irq int) (uint64, bool) {
	e, ok := t.Entries[irq]
	return e.Count, ok
}

// IRQs returns the interrupt numbers present, ascending.
func (t Table) IRQs() []int {
	irqs := make([]int, 0, len(t.Entries))
	for irq := range t.Entries {
		irqs = append(irqs, irq)
	}
	sort.Ints(irqs)
	return irqs
}

// Parse turns the text of /proc/interrupts into a Table. The first line is
// the CPU header; every later line is "IRQ: c0 c1 ... label". Symbolic rows
// (NMI, LOC, ...) are ignored, malformed numbered rows are recorded in
// Skipped. Parse keeps no state between calls.
func Parse(text string) Table {
	t := Table{Entries: make(map[int]Entry)}
	lines := strings.Split(text, "\n")
	if len(lines) == 0 {
		return t
	}
	t.CPUs = len(strings.Fields(lines[0]))

	for i, line := range lines[1:] {
		lineNo := i + 2
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		name, ok := strings.CutSuffix(fields[0], ":")
		if !ok {
			t.skip(lineNo, line, "missing irq separator")
			continue
		}
		irq, err := strconv.Atoi(name)
		if err != nil {
			continue
		}
		if irq < 0 {
			t.skip(lineNo, line, "negative irq")
			continue
		}

		var total uint64
		n := 0
		for n < t.CPUs && 1+n < len(fields) {
			v, err := strconv.ParseUint(fields[1+n], 10, 64)
			if err != nil {
				break
			}
			total += v
			n++
		}
		if n == 0 {
			t.skip(lineNo, line, "no counter columns")
			continue
		}
		if _, dup := t.Entries[irq]; dup {
			t.skip(lineNo, line, "duplicate irq")
			continue
		}
		t.Entries[irq] = Entry{
			IRQ:   irq,
			Count: total,
			Label: strings.Join(fields[1+n:], " "),
		}
	}
	return t
}

func (t *Table) skip(line int, text, reason string) {
	t.Skipped = append(t.Skipped, SkippedLine{Line: line, Text: strings.TrimSpace(text), Reason: reason})
}
