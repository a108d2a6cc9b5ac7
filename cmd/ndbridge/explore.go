package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/ndbridge/cursor"
	"github.com/wippyai/ndbridge/ndarray"
	"github.com/wippyai/ndbridge/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

func newExploreCmd(g *globalFlags) *cobra.Command {
	af := &arrayFlags{}
	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Step through an arange array interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) || !term.IsTerminal(int(os.Stdin.Fd())) {
				return errors.New("explore needs an interactive terminal; use iter instead")
			}
			ctx := cmd.Context()
			rt, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			m, err := newExploreModel(ctx, rt, af)
			if err != nil {
				return err
			}
			defer m.close()
			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
	af.register(cmd)
	return cmd
}

type exploreMode int

const (
	modeStep exploreMode = iota
	modeGoto
)

type exploreModel struct {
	ctx    context.Context
	rt     *runtime.Runtime
	arr    *ndarray.Array
	cursor *cursor.Cursor
	input  textinput.Model
	mode   exploreMode

	shape []int
	value any
	multi []int
	index int
	done  bool
	err   error
}

func newExploreModel(ctx context.Context, rt *runtime.Runtime, af *arrayFlags) (*exploreModel, error) {
	m := &exploreModel{ctx: ctx, rt: rt}
	err := rt.Exec(ctx, func(s *runtime.Session) error {
		arr, c, err := af.open(s)
		if err != nil {
			return err
		}
		m.arr, m.cursor = arr, c
		if m.shape, err = c.Shape(); err != nil {
			return err
		}
		return m.step(c)
	})
	if err != nil {
		m.close()
		return nil, err
	}

	ti := textinput.New()
	ti.Placeholder = "1,2"
	ti.Prompt = "multi-index: "
	ti.Width = 30
	m.input = ti
	return m, nil
}

// step advances the cursor and captures the element it lands on.
func (m *exploreModel) step(c *cursor.Cursor) error {
	v, ok, err := c.Next()
	if err != nil {
		return err
	}
	if !ok {
		m.done = true
		return nil
	}
	m.done = false
	m.value = v
	if m.multi, err = c.MultiIndex(); err != nil {
		return err
	}
	m.index, err = c.Index()
	return err
}

// do runs fn against the cursor with the interpreter lock held.
func (m *exploreModel) do(fn func(c *cursor.Cursor) error) {
	m.err = m.rt.Exec(m.ctx, func(*runtime.Session) error {
		return fn(m.cursor)
	})
}

func (m *exploreModel) close() {
	_ = m.rt.Exec(context.Background(), func(s *runtime.Session) error {
		if m.cursor != nil {
			m.cursor.Close()
		}
		s.Free(m.arr)
		return nil
	})
}

func (m *exploreModel) Init() tea.Cmd {
	return nil
}

func (m *exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.mode == modeGoto {
		switch key.String() {
		case "esc":
			m.mode = modeStep
			m.input.Blur()
		case "enter":
			m.mode = modeStep
			m.input.Blur()
			index, err := parseIndex(m.input.Value())
			if err != nil {
				m.err = err
				return m, nil
			}
			m.do(func(c *cursor.Cursor) error {
				if err := c.SeekMultiIndex(index); err != nil {
					return err
				}
				return m.step(c)
			})
		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "n", "right", "enter":
		m.do(m.step)
	case "r":
		m.do(func(c *cursor.Cursor) error {
			if err := c.Reset(); err != nil {
				return err
			}
			return m.step(c)
		})
	case "g":
		m.mode = modeGoto
		m.input.SetValue("")
		m.err = nil
		return m, m.input.Focus()
	}
	return m, nil
}

func (m *exploreModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("ndbridge cursor"))
	b.WriteString(" ")
	b.WriteString(m.arr.String())
	b.WriteString("\n\n")

	row := func(label string, v any) {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-12s", label)))
		b.WriteString(valueStyle.Render(fmt.Sprint(v)))
		b.WriteString("\n")
	}
	row("shape", m.shape)
	if m.done {
		row("position", "past the end")
	} else {
		row("multi-index", m.multi)
		row("index", m.index)
		row("value", m.value)
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.mode == modeGoto {
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter seek • esc back"))
	} else {
		b.WriteString(helpStyle.Render("n next • r reset • g goto • q quit"))
	}
	return b.String()
}

// parseIndex reads a comma-separated multi-index.
func parseIndex(s string) ([]int, error) {
	fields := strings.Split(s, ",")
	index := make([]int, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("bad index %q", f)
		}
		index = append(index, v)
	}
	return index, nil
}
