package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/roach88/deployfin/internal/datemath"
	"github.com/roach88/deployfin/internal/deployment"
	"github.com/roach88/deployfin/internal/lifecycle"
	"github.com/roach88/deployfin/internal/refdata"
	"github.com/roach88/deployfin/internal/store"
	"github.com/roach88/deployfin/internal/syncqueue"
)

// Theme colors
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorRed       = lipgloss.Color("#D14D41")
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	labelStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	valueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	moneyStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	warnStyle = lipgloss.NewStyle().
			Foreground(ColorOrange)

	errStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)
)

// Table represents a bordered text table for CLI output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// RenderFields renders label/value pairs with aligned labels.
func RenderFields(fields [][2]string) string {
	width := 0
	for _, f := range fields {
		width = max(width, len(f[0]))
	}

	var b strings.Builder
	for _, f := range fields {
		b.WriteString("  ")
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-*s", width, f[0])))
		b.WriteString("  ")
		b.WriteString(valueStyle.Render(f[1]))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderTable renders a bordered table with headers and rows.
func RenderTable(t Table) string {
	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}
	if numCols == 0 {
		return ""
	}

	widths := make([]int, numCols)
	for i, h := range t.Headers {
		widths[i] = len(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < numCols {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	border := lipgloss.RoundedBorder()
	rule := func(left, mid, right string) string {
		var b strings.Builder
		b.WriteString(left)
		for i, w := range widths {
			b.WriteString(strings.Repeat(border.Top, w+2))
			if i < numCols-1 {
				b.WriteString(mid)
			}
		}
		b.WriteString(right)
		return dimStyle.Render(b.String()) + "\n"
	}
	line := func(cells []string, style lipgloss.Style) string {
		var b strings.Builder
		b.WriteString(dimStyle.Render(border.Left))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			pad := widths[i] - lipgloss.Width(cell)
			b.WriteString(" ")
			b.WriteString(style.Render(cell))
			b.WriteString(strings.Repeat(" ", pad+1))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render(border.Left))
			}
		}
		b.WriteString(dimStyle.Render(border.Right))
		return b.String() + "\n"
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}

	b.WriteString(rule(border.TopLeft, border.MiddleTop, border.TopRight))
	if len(t.Headers) > 0 {
		b.WriteString(line(t.Headers, headerStyle))
		b.WriteString(rule(border.MiddleLeft, border.Middle, border.MiddleRight))
	}
	for _, row := range t.Rows {
		b.WriteString(line(row, valueStyle))
	}
	b.WriteString(rule(border.BottomLeft, border.MiddleBottom, border.BottomRight))

	return b.String()
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func percent(p float64) string {
	return strconv.FormatFloat(p, 'f', 1, 64) + "%"
}

func date(t time.Time) string {
	return t.Format(datemath.DateLayout)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// renderDeployment renders the deployment record fields.
func renderDeployment(info *deployment.Info) string {
	loc := info.Location.Country
	if info.Location.Region != "" {
		loc = info.Location.Region + ", " + loc
	}
	fields := [][2]string{
		{"ID", info.ID},
		{"Type", string(info.Type)},
		{"Phase", string(info.Phase)},
		{"Location", loc},
		{"Hazardous", yesNo(info.Location.IsHazardous)},
		{"Connectivity", string(info.Location.Connectivity)},
		{"Departure", date(info.DepartureDate)},
		{"Expected return", date(info.ExpectedReturnDate)},
	}
	if info.ActualReturnDate != nil {
		fields = append(fields, [2]string{"Actual return", date(*info.ActualReturnDate)})
	}
	return RenderFields(fields)
}

// renderCountdown renders countdown statistics.
func renderCountdown(c deployment.Countdown) string {
	return RenderFields([][2]string{
		{"Days complete", fmt.Sprintf("%d of %d", c.DaysComplete, c.TotalDays)},
		{"Days remaining", strconv.Itoa(c.DaysRemaining)},
		{"Complete", percent(c.PercentComplete)},
		{"Midtour", date(c.MidtourDate)},
		{"Months deployed", strconv.Itoa(c.MonthsDeployed)},
		{"Weekends remaining", strconv.Itoa(c.WeekendsRemaining)},
	})
}

// renderPay renders the pay adjustments and their totals.
func renderPay(adj deployment.PayAdjustments) string {
	fields := [][2]string{
		{"Hostile fire pay", yesNo(adj.HostileFirePay)},
		{"Imminent danger pay", yesNo(adj.ImminentDangerPay)},
		{"Hardship duty pay", yesNo(adj.HardshipDutyPay)},
		{"Family separation", yesNo(adj.FamilySeparationAllowance)},
		{"Tax exclusion", string(adj.CombatZoneTaxExclusion)},
		{"Savings deposit program", yesNo(adj.SavingsDepositProgram)},
		{"Additional monthly pay", moneyStyle.Render(money(adj.AdditionalMonthlyPay))},
		{"Estimated tax savings", moneyStyle.Render(money(adj.EstimatedTaxSavings))},
	}
	return RenderFields(fields)
}

// renderBudget renders the budget rows and projections.
func renderBudget(b *deployment.Budget) string {
	rows := make([][]string, 0, len(b.Adjustments))
	for _, a := range b.Adjustments {
		rows = append(rows, []string{
			a.CategoryName,
			string(a.Kind),
			money(a.NormalBudget),
			money(a.DeploymentBudget),
		})
	}

	var out strings.Builder
	out.WriteString(RenderTable(Table{
		Title:   "Expense adjustments",
		Headers: []string{"Category", "Kind", "Normal", "Deployed"},
		Rows:    rows,
	}))
	fields := [][2]string{
		{"Normal expenses", money(b.NormalMonthlyExpenses)},
		{"Deployment expenses", money(b.DeploymentMonthlyExpenses)},
		{"Projected monthly savings", moneyStyle.Render(money(b.ProjectedMonthlySavings))},
		{"Projected total savings", moneyStyle.Render(money(b.ProjectedTotalSavings))},
	}
	if b.FamilyBudget != nil {
		fields = append(fields,
			[2]string{"Family allowance", money(b.FamilyBudget.MonthlyAllowance)},
			[2]string{"Emergency fund target", money(b.FamilyBudget.EmergencyFundTarget)})
	}
	out.WriteString(RenderFields(fields))
	return out.String()
}

// renderSavings renders the savings tracker.
func renderSavings(t *deployment.SavingsTracker) string {
	var out strings.Builder

	track := moneyStyle.Render("on track")
	if !t.OnTrack {
		track = warnStyle.Render("behind")
	}
	out.WriteString(RenderFields([][2]string{
		{"Goal", money(t.SavingsGoal)},
		{"Saved", fmt.Sprintf("%s (%s)", money(t.CurrentSavings), percent(t.ProgressPercent))},
		{"Status", track},
		{"Days remaining", strconv.Itoa(t.DaysRemaining)},
	}))

	if len(t.Snapshots) > 0 {
		rows := make([][]string, 0, len(t.Snapshots))
		for _, s := range t.Snapshots {
			rows = append(rows, []string{s.Month, money(s.Income), money(s.Expenses), money(s.NetSavings), money(s.CumulativeSavings)})
		}
		out.WriteString(RenderTable(Table{
			Title:   "Snapshots",
			Headers: []string{"Month", "Income", "Expenses", "Net", "Cumulative"},
			Rows:    rows,
		}))
	}

	rows := make([][]string, 0, len(t.Milestones))
	for _, m := range t.Milestones {
		achieved := "-"
		if m.IsAchieved && m.AchievedAt != nil {
			achieved = date(*m.AchievedAt)
		}
		rows = append(rows, []string{m.ID, m.Name, money(m.TargetAmount), achieved})
	}
	out.WriteString(RenderTable(Table{
		Title:   "Milestones",
		Headers: []string{"ID", "Name", "Target", "Achieved"},
		Rows:    rows,
	}))
	return out.String()
}

// renderQueue renders queue counters and items.
func renderQueue(stats syncqueue.Stats, items []syncqueue.Item) string {
	online := moneyStyle.Render("online")
	if !stats.Online {
		online = warnStyle.Render("offline")
	}
	lastSync := "never"
	if stats.LastSyncAt != nil {
		lastSync = stats.LastSyncAt.Format(time.RFC3339)
	}

	var out strings.Builder
	out.WriteString(RenderFields([][2]string{
		{"Connectivity", online},
		{"Pending", strconv.Itoa(stats.Pending)},
		{"Failed", strconv.Itoa(stats.Failed)},
		{"Synced", strconv.Itoa(stats.Synced)},
		{"Last sync", lastSync},
	}))

	if len(items) > 0 {
		rows := make([][]string, 0, len(items))
		for _, it := range items {
			status := string(it.Status)
			if it.Status == syncqueue.StatusFailed {
				status = errStyle.Render(status)
			}
			rows = append(rows, []string{it.ID, string(it.Type), status, strconv.Itoa(it.RetryCount), it.Error})
		}
		out.WriteString(RenderTable(Table{
			Headers: []string{"ID", "Type", "Status", "Retries", "Error"},
			Rows:    rows,
		}))
	}
	return out.String()
}

// renderDrain renders one queue drain result.
func renderDrain(res syncqueue.Result) string {
	if !res.Ran {
		return "Queue not processed (offline or empty)."
	}
	return fmt.Sprintf("Processed %d item(s): %d synced, %d failed.", res.Attempted, res.Synced, res.Failed)
}

// renderSummary renders the full status page.
func renderSummary(s *lifecycle.Summary) string {
	var out strings.Builder
	out.WriteString(RenderTitle("Deployment " + s.Deployment.ID))
	out.WriteString("\n")
	out.WriteString(renderDeployment(s.Deployment))
	out.WriteString("\n")
	out.WriteString(headerStyle.Render("  Countdown"))
	out.WriteString("\n")
	out.WriteString(renderCountdown(s.Countdown))
	out.WriteString("\n")
	out.WriteString(headerStyle.Render("  Pay"))
	out.WriteString("\n")
	out.WriteString(RenderFields([][2]string{
		{"Additional monthly pay", moneyStyle.Render(money(s.AdditionalMonthlyPay))},
		{"Estimated tax savings", moneyStyle.Render(money(s.EstimatedTaxSavings))},
		{"SDP monthly interest", moneyStyle.Render(money(s.SDPMonthlyInterest))},
	}))
	if s.Budget != nil {
		out.WriteString("\n")
		out.WriteString(renderBudget(s.Budget))
	}
	if s.Savings != nil {
		out.WriteString("\n")
		out.WriteString(renderSavings(s.Savings))
	}
	out.WriteString("\n")
	out.WriteString(headerStyle.Render("  Offline queue"))
	out.WriteString("\n")
	out.WriteString(renderQueue(s.Queue, nil))
	return out.String()
}

// renderHistory renders completed deployments.
func renderHistory(infos []deployment.Info) string {
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		ret := "-"
		if info.ActualReturnDate != nil {
			ret = date(*info.ActualReturnDate)
		}
		rows = append(rows, []string{info.ID, string(info.Type), info.Location.Country, date(info.DepartureDate), ret, string(info.Phase)})
	}
	return RenderTable(Table{
		Headers: []string{"ID", "Type", "Country", "Departed", "Returned", "Phase"},
		Rows:    rows,
	})
}

// renderRevisions renders the state revision log.
func renderRevisions(revs []store.Revision) string {
	rows := make([][]string, 0, len(revs))
	for _, r := range revs {
		rows = append(rows, []string{
			strconv.FormatInt(r.Revision, 10),
			r.SavedAt.Format(time.RFC3339),
			strconv.Itoa(r.Size),
			r.Checksum[:min(12, len(r.Checksum))],
		})
	}
	return RenderTable(Table{
		Headers: []string{"Revision", "Saved", "Bytes", "Checksum"},
		Rows:    rows,
	})
}

// renderTables renders the pay rates and the expense template.
func renderTables(t *refdata.Tables) string {
	r := t.PayRates
	var b strings.Builder
	b.WriteString(RenderTitle("Pay rates"))
	b.WriteString("\n")
	b.WriteString(RenderFields([][2]string{
		{"Hostile fire pay", money(r.HostileFirePay)},
		{"Imminent danger pay", money(r.ImminentDangerPay)},
		{"Family separation", money(r.FamilySeparationAllowance)},
		{"CZTE officer cap", money(r.CZTEMonthlyCap)},
		{"Est. tax rate", r.EstimatedTaxRate.String()},
		{"SDP annual rate", r.SDPAnnualRate.String()},
		{"SDP max deposit", money(r.SDPMaxDeposit)},
	}))
	b.WriteString("\n")

	rows := make([][]string, 0, len(t.ExpenseTemplate))
	for _, c := range t.ExpenseTemplate {
		rows = append(rows, []string{c.ID, c.Name, string(c.Kind), c.Share.String(), c.DeploymentShare.String()})
	}
	b.WriteString(RenderTable(Table{
		Title:   "Expense template",
		Headers: []string{"ID", "Name", "Kind", "Share", "Deployed"},
		Rows:    rows,
	}))
	return b.String()
}
