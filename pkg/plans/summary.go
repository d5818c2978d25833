package plans

import (
	"fmt"
	"strings"
)

// Summary renders a markdown overview of a declaration: its shared
// definitions followed by one table row per plan.
func Summary(decl *Declaration) string {
	var b strings.Builder

	b.WriteString("# Plans Summary\n\n")
	fmt.Fprintf(&b, "Version: %s\n\n", decl.Version)

	b.WriteString("## Definitions\n\n")
	b.WriteString("### Seasons\n")
	for _, set := range []struct {
		key     string
		seasons []SeasonDecl
	}{
		{"seasons", decl.Definitions.Seasons},
		{"seasons_high_voltage", decl.Definitions.SeasonsHighVoltage},
	} {
		if len(set.seasons) == 0 {
			continue
		}
		fmt.Fprintf(&b, "- %s:\n", set.key)
		for _, s := range set.seasons {
			fmt.Fprintf(&b, "  - %s: %s ~ %s\n", s.Name, s.Start, s.End)
		}
	}
	b.WriteString("\n")

	b.WriteString("### Periods\n")
	fmt.Fprintf(&b, "- %s\n\n", strings.Join(decl.Definitions.Periods, ", "))
	b.WriteString("### Day types\n")
	fmt.Fprintf(&b, "- %s\n\n", strings.Join(decl.Definitions.DayTypes, ", "))

	b.WriteString("## Plans\n\n")
	b.WriteString("| id | name | type | category | season_strategy | notes |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- |\n")
	for _, p := range decl.Plans {
		cells := []string{p.ID, p.Name, p.Type, p.Category, p.SeasonStrategy, planNotes(p)}
		for i, c := range cells {
			cells[i] = strings.ReplaceAll(c, "|", `\|`)
		}
		fmt.Fprintf(&b, "| %s |\n", strings.Join(cells, " | "))
	}
	return b.String()
}

func planNotes(p PlanDecl) string {
	var notes []string
	if p.BasicFee != nil {
		notes = append(notes, "basic_fee")
	}
	if len(p.BasicFees) > 0 {
		notes = append(notes, "basic_fees")
	}
	if len(p.Tiers) > 0 {
		notes = append(notes, fmt.Sprintf("tiers:%d", len(p.Tiers)))
	}
	if len(p.Rates) > 0 {
		notes = append(notes, fmt.Sprintf("rates:%d", len(p.Rates)))
	}
	if len(p.Schedules) > 0 {
		notes = append(notes, fmt.Sprintf("schedules:%d", len(p.Schedules)))
	}
	if p.Over2000KWhSurcharge != nil {
		notes = append(notes, "over_2000_kwh_surcharge")
	}
	if p.Variant != "" {
		notes = append(notes, p.Variant)
	}
	if len(notes) == 0 {
		return "-"
	}
	return strings.Join(notes, ", ")
}
