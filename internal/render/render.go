// Package render prints economy states, episode trajectories and policy
// comparisons to the console.
package render

import (
	"fmt"
	"io"
	"math"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/napolitain/factory-env/internal/driver"
	"github.com/napolitain/factory-env/internal/economy"
	"github.com/napolitain/factory-env/internal/models"
)

var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed)
	infoColor    = color.New(color.FgYellow)
)

// Banner prints the CLI title box
func Banner(w io.Writer) {
	titleColor.Fprintln(w, "\n╭───────────────────────────╮")
	titleColor.Fprintln(w, "│  Factory Economy          │")
	titleColor.Fprintln(w, "│  Build / Wait Simulator   │")
	titleColor.Fprintln(w, "╰───────────────────────────╯")
	fmt.Fprintln(w)
}

// State prints one economy snapshot
func State(w io.Writer, s economy.State) {
	infoColor.Fprintf(w, "⏱️  Time: %s\n", FormatTime(s.Elapsed))
	fmt.Fprintf(w, "   Resource A: %10.1f  (+%d/s)\n", s.ResourceA, s.ProdA())
	fmt.Fprintf(w, "   Resource B: %10.1f  (+%d/s)\n", s.ResourceB, s.ProdB())
	fmt.Fprintf(w, "   Facilities: A=%d B=%d Power=%d\n", s.LevelA, s.LevelB, s.LevelPower)

	power := fmt.Sprintf("   Power: %d / %d\n", s.PowerUse(), s.PowerGen())
	if s.PowerUse() > s.PowerGen() {
		errorColor.Fprint(w, power)
	} else {
		fmt.Fprint(w, power)
	}
}

// Trajectory prints every step of an episode as a table
func Trajectory(w io.Writer, ep *driver.Episode) {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"#", "Choice", "Wait", "Bought", "Time", "A", "B", "Levels", "Power", "Reward"}),
	)

	for _, tr := range ep.Transitions {
		obs := tr.Observation
		bought := ""
		if tr.Purchased {
			bought = "✓ " + FormatCosts(tr.Cost)
		} else if tr.Choice != models.Wait {
			bought = "✗"
		}

		row := []string{
			fmt.Sprintf("%d", tr.Step),
			tr.Choice.String(),
			FormatTime(tr.WaitSeconds),
			bought,
			FormatTime(obs[models.ObsElapsed]),
			fmt.Sprintf("%.0f", obs[models.ObsResourceA]),
			fmt.Sprintf("%.0f", obs[models.ObsResourceB]),
			fmt.Sprintf("%.0f/%.0f/%.0f", obs[models.ObsLevelA], obs[models.ObsLevelB], obs[models.ObsLevelPower]),
			fmt.Sprintf("%d/%d", tr.PowerUse, tr.PowerGen),
			fmt.Sprintf("%+.1f", tr.Reward),
		}
		_ = table.Append(row)
	}

	_ = table.Render()
}

// Summary prints the outcome of one episode
func Summary(w io.Writer, ep *driver.Episode) {
	fmt.Fprintf(w, "\n📈 Policy: %s\n", ep.Policy)
	fmt.Fprintf(w, "   • Steps: %d (%d purchases)\n", len(ep.Transitions), ep.Purchases())
	fmt.Fprintf(w, "   • Net worth: %.1f → %.1f\n", ep.InitialNetWorth, ep.FinalNetWorth)
	fmt.Fprintf(w, "   • Total reward: %.1f\n", ep.TotalReward)

	if ep.Done {
		successColor.Fprintf(w, "\n✅ Reached horizon %s\n", FormatTime(ep.Horizon))
	} else {
		errorColor.Fprintf(w, "\n❌ Stopped at %s before horizon %s (step limit)\n",
			FormatTime(ep.Final.Elapsed), FormatTime(ep.Horizon))
	}
}

// Comparison prints one row per episode, marking best
func Comparison(w io.Writer, episodes []*driver.Episode, best *driver.Episode) {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Policy", "Steps", "Purchases", "Levels", "Net Worth", "Reward", "Best"}),
	)

	for _, ep := range episodes {
		mark := ""
		if ep == best {
			mark = "✓"
		}
		row := []string{
			ep.Policy,
			fmt.Sprintf("%d", len(ep.Transitions)),
			fmt.Sprintf("%d", ep.Purchases()),
			fmt.Sprintf("%d/%d/%d", ep.Final.LevelA, ep.Final.LevelB, ep.Final.LevelPower),
			fmt.Sprintf("%.1f", ep.FinalNetWorth),
			fmt.Sprintf("%.1f", ep.TotalReward),
			mark,
		}
		_ = table.Append(row)
	}

	_ = table.Render()
}

// FormatTime renders simulated seconds as HH:MM:SS, rounding to whole seconds
func FormatTime(seconds float64) string {
	if math.IsInf(seconds, 1) {
		return "∞"
	}
	total := int(math.Round(seconds))
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}

// FormatCosts renders a price pair
func FormatCosts(c models.Costs) string {
	return fmt.Sprintf("A:%.0f B:%.0f", c.A, c.B)
}
