package ui

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/bubbles/table"
)

// initTables builds the three entity tables with their column sets.
func (m *Model) initTables() {
	st := m.theme.TableStyles()
	m.members = table.New(table.WithColumns(memberColumns()), table.WithStyles(st))
	m.orders = table.New(table.WithColumns(orderColumns(0)), table.WithStyles(st))
	m.finds = table.New(table.WithColumns(findColumns(0)), table.WithStyles(st))
	m.focusTables()
}

func (m *Model) applyTableStyles() {
	st := m.theme.TableStyles()
	m.members.SetStyles(st)
	m.orders.SetStyles(st)
	m.finds.SetStyles(st)
}

// focusTables gives keyboard focus to the table on the current tab only.
func (m *Model) focusTables() {
	for t, tbl := range map[tab]*table.Model{tabMembers: &m.members, tabOrders: &m.orders, tabScouting: &m.finds} {
		if t == m.tab {
			tbl.Focus()
		} else {
			tbl.Blur()
		}
	}
}

func (m *Model) setColumns() {
	m.members.SetColumns(memberColumns())
	m.orders.SetColumns(orderColumns(m.width))
	m.finds.SetColumns(findColumns(m.width))
}

// noteWidth returns the width left for a trailing note column.
func noteWidth(width, used int) int {
	if width < LayoutWideWidth {
		return 0
	}
	if w := width - used; w > 10 {
		return w
	}
	return 10
}

func memberColumns() []table.Column {
	return []table.Column{
		{Title: "User", Width: 26},
		{Title: "State", Width: 12},
		{Title: "Vehicle", Width: 14},
		{Title: "Captain", Width: 26},
		{Title: "Pilot", Width: 5},
		{Title: "Active", Width: 6},
		{Title: "Updated", Width: 10},
	}
}

func orderColumns(width int) []table.Column {
	return []table.Column{
		{Title: "Order", Width: 14},
		{Title: "Type", Width: 7},
		{Title: "State", Width: 16},
		{Title: "Owner", Width: 22},
		{Title: "Seller", Width: 16},
		{Title: "Paid", Width: 7},
		{Title: "Sold", Width: 4},
		{Title: "Updated", Width: 10},
		{Title: "Note", Width: noteWidth(width, 120)},
	}
}

func findColumns(width int) []table.Column {
	return []table.Column{
		{Title: "Find", Width: 14},
		{Title: "Type", Width: 7},
		{Title: "State", Width: 18},
		{Title: "Owner", Width: 22},
		{Title: "Clusters", Width: 8},
		{Title: "Updated", Width: 10},
		{Title: "Note", Width: noteWidth(width, 100)},
	}
}

// updateTables rebuilds table rows from the projected session. Rows are sorted
// newest first so fresh activity stays on screen.
func (m *Model) updateTables() {
	members := append([]memberRow(nil), m.view.Members...)
	sort.SliceStable(members, func(i, j int) bool { return members[i].UpdatedAt > members[j].UpdatedAt })
	rows := make([]table.Row, 0, len(members))
	for _, r := range members {
		user := r.UserID
		if user == m.userID {
			user = "» " + user
		}
		rows = append(rows, table.Row{
			truncate(user, 26),
			titleCase(placeholder(r.State)),
			placeholder(r.Vehicle),
			truncate(placeholder(r.CaptainID), 26),
			yesNo(r.Pilot),
			yesNo(r.Active),
			formatEpochMillis(r.UpdatedAt),
		})
	}
	m.members.SetRows(rows)

	orders := append([]orderRow(nil), m.view.Orders...)
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].UpdatedAt > orders[j].UpdatedAt })
	rows = make([]table.Row, 0, len(orders))
	for _, r := range orders {
		rows = append(rows, table.Row{
			r.OrderID,
			r.Kind,
			titleCase(placeholder(r.State)),
			truncate(placeholder(r.OwnerID), 22),
			truncate(placeholder(r.Seller), 16),
			fmt.Sprintf("%d/%d", r.Paid, r.Shares),
			yesNo(r.Sold),
			formatEpochMillis(r.UpdatedAt),
			r.Note,
		})
	}
	m.orders.SetRows(rows)

	finds := append([]findRow(nil), m.view.Finds...)
	sort.SliceStable(finds, func(i, j int) bool { return finds[i].UpdatedAt > finds[j].UpdatedAt })
	rows = make([]table.Row, 0, len(finds))
	for _, r := range finds {
		rows = append(rows, table.Row{
			r.FindID,
			r.Kind,
			titleCase(placeholder(r.State)),
			truncate(placeholder(r.OwnerID), 22),
			fmt.Sprintf("%d", r.Clusters),
			formatEpochMillis(r.UpdatedAt),
			r.Note,
		})
	}
	m.finds.SetRows(rows)
}

// renderContent renders the body of the current tab.
func (m Model) renderContent() string {
	switch m.tab {
	case tabOrders:
		return m.renderTable(m.orders, len(m.view.Orders), "No work orders yet.")
	case tabScouting:
		return m.renderTable(m.finds, len(m.view.Finds), "No scouting finds yet.")
	case tabLog:
		return m.renderLogs()
	default:
		return m.renderTable(m.members, len(m.view.Members), "No crew in this session.")
	}
}

func (m Model) renderTable(t table.Model, n int, empty string) string {
	if n == 0 {
		return m.theme.Styles().MutedText.Padding(1, 2).Render(empty)
	}
	return t.View()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return ""
}
