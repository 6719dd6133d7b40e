// Package tui is an interactive terminal front end for stepping one
// environment by hand.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/napolitain/factory-env/internal/models"
	"github.com/napolitain/factory-env/internal/render"
	"github.com/napolitain/factory-env/internal/resolver"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	helpStyle  = lipgloss.NewStyle().Faint(true)
)

var keyChoices = map[string]models.Choice{
	"a": models.BuildA,
	"b": models.BuildB,
	"p": models.BuildPower,
	"w": models.Wait,
}

// Model is the bubbletea model for one environment
type Model struct {
	env *resolver.Env

	last        *resolver.Outcome
	totalReward float64
	steps       int
	notice      string
	quitting    bool
}

// New resets env and wraps it in a model
func New(env *resolver.Env) Model {
	env.Reset()
	return Model{env: env}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch k := key.String(); k {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "r":
		m.env.Reset()
		m.last = nil
		m.totalReward = 0
		m.steps = 0
		m.notice = "reset"

	default:
		c, ok := keyChoices[k]
		if !ok {
			return m, nil
		}
		if m.env.Done() {
			m.notice = "episode over, press r to reset"
			return m, nil
		}
		o := m.env.Resolve(c)
		m.last = &o
		m.totalReward += o.Reward
		m.steps++
		m.notice = ""
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	s := m.env.State()
	var b strings.Builder

	b.WriteString(titleStyle.Render("Factory Economy") + "\n\n")
	fmt.Fprintf(&b, "Time      %s / %s\n", render.FormatTime(s.Elapsed), render.FormatTime(m.env.Horizon()))
	fmt.Fprintf(&b, "A         %10.1f  (+%d/s)\n", s.ResourceA, s.ProdA())
	fmt.Fprintf(&b, "B         %10.1f  (+%d/s)\n", s.ResourceB, s.ProdB())
	fmt.Fprintf(&b, "Levels    A=%d B=%d Power=%d\n", s.LevelA, s.LevelB, s.LevelPower)
	fmt.Fprintf(&b, "Power     %d / %d\n", s.PowerUse(), s.PowerGen())
	fmt.Fprintf(&b, "Net worth %.1f\n\n", m.env.NetWorth())

	for _, ft := range models.AllFacilityTypes() {
		quote := s.QuoteCost(ft)
		status := okStyle.Render("ready")
		switch {
		case !s.PowerBalanceAllows(ft):
			status = badStyle.Render("needs power")
		case !s.CanAfford(ft):
			wait := resolver.WaitTime(&s, ft)
			if wait > m.env.Remaining() {
				status = badStyle.Render("past horizon")
			} else {
				status = "in " + render.FormatTime(wait)
			}
		}
		fmt.Fprintf(&b, "%-10s %-16s %s\n", ft.Label(), render.FormatCosts(quote), status)
	}

	b.WriteString("\n")
	if m.last != nil {
		result := "waited"
		if m.last.Attempted {
			result = okStyle.Render("bought")
			if !m.last.Purchased {
				result = badStyle.Render("failed")
			}
		}
		fmt.Fprintf(&b, "Last      %s after %s: %s, reward %+.1f\n",
			m.last.Choice, render.FormatTime(m.last.Wait), result, m.last.Reward)
	}
	fmt.Fprintf(&b, "Steps     %d, total reward %.1f\n", m.steps, m.totalReward)
	if m.env.Done() {
		b.WriteString(okStyle.Render("Horizon reached") + "\n")
	}
	if m.notice != "" {
		b.WriteString(m.notice + "\n")
	}

	return panelStyle.Render(b.String()) + "\n" +
		helpStyle.Render("a/b/p build · w wait · r reset · q quit") + "\n"
}

// Run starts the interactive program
func Run(env *resolver.Env) error {
	_, err := tea.NewProgram(New(env)).Run()
	return err
}
