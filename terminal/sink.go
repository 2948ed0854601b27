// Package terminal provides a tcell-backed variable-writer sink that
// renders live scheduler output as intensity bars
package terminal

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/lixenwraith/beatframe/engine"
)

type entry struct {
	value    any
	priority engine.VarPriority
	source   string
}

// Sink implements engine.VariableWriter with internal batching: writes
// from any subsystem coalesce per owner/name, higher priority winning
// until the next Render drains the batch
type Sink struct {
	mu   sync.Mutex
	vars map[string]entry
}

// NewSink creates an empty sink
func NewSink() *Sink {
	return &Sink{vars: make(map[string]entry)}
}

// SetVariable implements engine.VariableWriter
func (s *Sink) SetVariable(owner, name string, value any, priority engine.VarPriority, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(owner, name, value, priority, source)
}

// BatchSetVariables implements engine.VariableWriter
func (s *Sink) BatchSetVariables(owner string, values map[string]any, priority engine.VarPriority, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, value := range values {
		s.setLocked(owner, name, value, priority, source)
	}
}

func (s *Sink) setLocked(owner, name string, value any, priority engine.VarPriority, source string) {
	key := owner + "/" + name
	if cur, ok := s.vars[key]; ok && cur.priority > priority {
		return // pending higher-priority write wins the batch
	}
	s.vars[key] = entry{value: value, priority: priority, source: source}
}

// Snapshot returns a copy of the current variable map, keyed owner/name
func (s *Sink) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.vars))
	for k, e := range s.vars {
		out[k] = e.value
	}
	return out
}

// Render draws all variables to the screen and releases priority holds
// for the next batch. Numeric values render as bars
func (s *Sink) Render(screen tcell.Screen) {
	s.mu.Lock()
	keys := make([]string, 0, len(s.vars))
	for k := range s.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]struct {
		key string
		e   entry
	}, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, struct {
			key string
			e   entry
		}{k, s.vars[k]})
	}
	// Priority holds last for one batch only
	for k, e := range s.vars {
		e.priority = engine.VarPriorityLow
		s.vars[k] = e
	}
	s.mu.Unlock()

	screen.Clear()
	width, _ := screen.Size()
	style := tcell.StyleDefault

	if c, ok := s.colorOf(rows); ok {
		style = style.Foreground(c)
	}

	for y, row := range rows {
		line := fmt.Sprintf("%-28s %v", row.key, row.e.value)
		drawText(screen, 0, y, width, line, style)
		if f, ok := asFloat(row.e.value); ok {
			drawBar(screen, 40, y, width-41, f, style)
		}
	}
	screen.Show()
}

// colorOf picks the choreography pulse color when published
func (s *Sink) colorOf(rows []struct {
	key string
	e   entry
}) (tcell.Color, bool) {
	for _, row := range rows {
		if row.key != "choreo/pulse-color" {
			continue
		}
		hex, ok := row.e.value.(string)
		if !ok {
			return 0, false
		}
		c, err := colorful.Hex(hex)
		if err != nil {
			return 0, false
		}
		r, g, b := c.RGB255()
		return tcell.NewRGBColor(int32(r), int32(g), int32(b)), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func drawText(screen tcell.Screen, x, y, max int, text string, style tcell.Style) {
	for i, r := range text {
		if i >= max {
			return
		}
		screen.SetContent(x+i, y, r, nil, style)
	}
}

func drawBar(screen tcell.Screen, x, y, width int, v float64, style tcell.Style) {
	if width <= 0 {
		return
	}
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	filled := int(v * float64(width))
	for i := 0; i < width; i++ {
		r := ' '
		if i < filled {
			r = '█'
		}
		screen.SetContent(x+i, y, r, nil, style)
	}
}
