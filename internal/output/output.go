// Package output renders issues, the board and notifications for issuectl.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/sumire/issuedesk/internal/board"
	"github.com/sumire/issuedesk/internal/domain"
)

// UI writes colored messages and tables.
type UI struct {
	Out    io.Writer
	ErrOut io.Writer
}

// New creates a UI with default stdout/stderr writers.
func New() *UI {
	return &UI{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

var (
	infoPrefix    = color.New(color.FgHiBlue).Sprint("i")
	successPrefix = color.New(color.FgHiGreen).Sprint("✓")
	warningPrefix = color.New(color.FgHiYellow).Sprint("⚠")
	errorPrefix   = color.New(color.FgHiRed).Sprint("✗")
	cyan          = color.New(color.FgHiCyan).SprintFunc()
	green         = color.New(color.FgHiGreen).SprintFunc()
	yellow        = color.New(color.FgHiYellow).SprintFunc()
	red           = color.New(color.FgHiRed).SprintFunc()
	bold          = color.New(color.Bold).SprintFunc()
)

// StatusColor returns the status colored by board column.
func StatusColor(status domain.IssueStatus) string {
	switch status {
	case domain.IssueStatusOpen:
		return green(string(status))
	case domain.IssueStatusInProgress:
		return yellow(string(status))
	case domain.IssueStatusResolved:
		return cyan(string(status))
	default:
		return string(status)
	}
}

// PriorityColor returns the priority colored by urgency.
func PriorityColor(p domain.Priority) string {
	switch p {
	case domain.PriorityHigh:
		return red(string(p))
	case domain.PriorityMedium:
		return yellow(string(p))
	default:
		return string(p)
	}
}

func (u *UI) Info(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", infoPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Success(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", successPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Warning(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", warningPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Error(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", errorPrefix, fmt.Sprintf(format, a...))
}

// Table creates a new tablewriter configured with consistent styling.
func (u *UI) Table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}

// ShortID returns the last eight characters of an id, which are the random
// part of a ULID and enough to tell cards apart on screen.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[len(id)-8:]
}

// Board renders one column per status, cards stacked top to bottom.
func (u *UI) Board(columns []board.Column) {
	headers := make([]string, len(columns))
	depth := 0
	for i, col := range columns {
		headers[i] = fmt.Sprintf("%s (%d)", col.Status, len(col.Issues))
		depth = max(depth, len(col.Issues))
	}

	table := u.Table(headers)
	for row := 0; row < depth; row++ {
		cells := make([]string, len(columns))
		for i, col := range columns {
			if row < len(col.Issues) {
				cells[i] = card(col.Issues[row])
			}
		}
		_ = table.Append(cells)
	}
	_ = table.Render()
}

func card(issue domain.Issue) string {
	line := fmt.Sprintf("%s %s", cyan(ShortID(issue.ID)), issue.Title)
	if issue.AssignedTo != "" {
		line += " @" + issue.AssignedTo
	}
	return line
}

// Issues renders a list of issues.
func (u *UI) Issues(issues []domain.Issue) {
	table := u.Table([]string{"ID", "Title", "Status", "Priority", "Category", "Assignee", "Ver"})
	for _, issue := range issues {
		_ = table.Append([]string{
			issue.ID,
			issue.Title,
			StatusColor(issue.Status),
			PriorityColor(issue.Priority),
			string(issue.Category),
			issue.AssignedTo,
			fmt.Sprintf("%d", issue.Version),
		})
	}
	_ = table.Render()
}

// Issue renders one issue with its comment thread.
func (u *UI) Issue(issue domain.Issue) {
	fmt.Fprintf(u.Out, "%s  %s\n", bold(issue.Title), StatusColor(issue.Status))
	fmt.Fprintf(u.Out, "ID:        %s (version %d)\n", issue.ID, issue.Version)
	fmt.Fprintf(u.Out, "Category:  %s\n", issue.Category)
	fmt.Fprintf(u.Out, "Priority:  %s\n", PriorityColor(issue.Priority))
	if issue.Creator != nil {
		fmt.Fprintf(u.Out, "Filed by:  %s <%s>\n", issue.Creator.DisplayName, issue.Creator.Email)
	}
	if issue.AssignedTo != "" {
		fmt.Fprintf(u.Out, "Assignee:  %s\n", issue.AssignedTo)
	}
	fmt.Fprintf(u.Out, "Created:   %s\n", issue.CreatedAt.Local().Format("2006-01-02 15:04"))
	if desc := strings.TrimSpace(issue.Description); desc != "" {
		fmt.Fprintf(u.Out, "\n%s\n", desc)
	}

	if len(issue.Comments) == 0 {
		return
	}
	fmt.Fprintf(u.Out, "\n%s\n", bold(fmt.Sprintf("Comments (%d)", len(issue.Comments))))
	for _, c := range issue.Comments {
		fmt.Fprintf(u.Out, "  %s %s: %s\n", c.CreatedAt.Local().Format("01-02 15:04"), cyan(c.User), c.Text)
	}
}

// Notifications renders an inbox, unread entries marked.
func (u *UI) Notifications(notifications []domain.Notification) {
	table := u.Table([]string{"", "ID", "When", "Message"})
	for _, n := range notifications {
		marker := ""
		if !n.IsRead {
			marker = yellow("●")
		}
		_ = table.Append([]string{
			marker,
			n.ID,
			n.CreatedAt.Local().Format("2006-01-02 15:04"),
			n.Text,
		})
	}
	_ = table.Render()
}

// Users renders the user directory.
func (u *UI) Users(users []domain.User) {
	table := u.Table([]string{"ID", "Name", "Email", "Role"})
	for _, user := range users {
		_ = table.Append([]string{user.ID, user.DisplayName, user.Email, string(user.Role)})
	}
	_ = table.Render()
}

// Tally is one labeled count in a breakdown.
type Tally struct {
	Label string
	Count int
}

// Breakdown groups tallies under a heading such as "Status".
type Breakdown struct {
	Name    string
	Tallies []Tally
}

// Stats renders the issue total followed by one table per breakdown.
func (u *UI) Stats(total int, breakdowns []Breakdown) {
	fmt.Fprintf(u.Out, "%s %d\n", bold("Issues:"), total)
	for _, b := range breakdowns {
		fmt.Fprintln(u.Out)
		table := u.Table([]string{b.Name, "Count", "Share"})
		for _, t := range b.Tallies {
			_ = table.Append([]string{t.Label, fmt.Sprintf("%d", t.Count), share(t.Count, total)})
		}
		_ = table.Render()
	}
}

func share(n, total int) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%d%%", n*100/total)
}
