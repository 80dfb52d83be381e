package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gymcoding/invoice-web/invoice"
	"github.com/gymcoding/invoice-web/query"
)

var (
	accent  = lipgloss.Color("#D97706")
	fg      = lipgloss.Color("#E8E6E3")
	dim     = lipgloss.Color("#6B7280")
	faint   = lipgloss.Color("#3F3F46")
	success = lipgloss.Color("#22C55E")
	danger  = lipgloss.Color("#EF4444")
	warning = lipgloss.Color("#F59E0B")
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 2)

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(fg)
	dimStyle    = lipgloss.NewStyle().Foreground(dim)
	faintStyle  = lipgloss.NewStyle().Foreground(faint)
	plainStyle  = lipgloss.NewStyle()

	statusStyles = map[invoice.Status]lipgloss.Style{
		invoice.StatusApproved: lipgloss.NewStyle().Foreground(success),
		invoice.StatusPending:  lipgloss.NewStyle().Foreground(warning),
		invoice.StatusRejected: lipgloss.NewStyle().Foreground(danger),
	}

	amounts = message.NewPrinter(language.Korean)
)

var invoiceColumns = []string{"NUMBER", "CLIENT", "ISSUED", "STATUS", "TOTAL", "ID"}

func renderSeedSummary(s seedSummary) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Seeded %d invoices and %d items into %q", len(s.Invoices), s.Items, s.DataSource)))
	b.WriteString("\n\n")
	b.WriteString(renderTable([]string{"NUMBER", "CLIENT", "ISSUED", "STATUS", "ID"}, seedRows(s.Invoices)))
	return b.String()
}

func seedRows(invs []invoice.Invoice) [][]cell {
	rows := make([][]cell, 0, len(invs))
	for _, inv := range invs {
		rows = append(rows, []cell{
			plain(inv.InvoiceNumber),
			plain(inv.ClientName),
			plain(inv.IssueDate),
			statusCell(inv.Status),
			{text: inv.ID, style: dimStyle},
		})
	}
	return rows
}

func renderPage(page query.Page) string {
	if len(page.Records) == 0 {
		return dimStyle.Render("No invoices found.") + "\n"
	}

	rows := make([][]cell, 0, len(page.Records))
	for _, inv := range page.Records {
		rows = append(rows, []cell{
			plain(inv.InvoiceNumber),
			plain(inv.ClientName),
			plain(inv.IssueDate),
			statusCell(inv.Status),
			amountCell(formatAmount(inv.TotalAmount)),
			{text: inv.ID, style: dimStyle},
		})
	}

	var b strings.Builder
	b.WriteString(renderTable(invoiceColumns, rows))
	b.WriteString("\n")
	if page.HasMore && page.NextCursor != nil {
		b.WriteString(dimStyle.Render("More results: --cursor " + *page.NextCursor))
	} else {
		b.WriteString(dimStyle.Render("End of results."))
	}
	b.WriteString("\n")
	return b.String()
}

func renderInvoice(inv invoice.Invoice) string {
	var head strings.Builder
	head.WriteString(headerStyle.Render(inv.InvoiceNumber))
	head.WriteString("  ")
	head.WriteString(statusCell(inv.Status).render())
	head.WriteString("\n")
	head.WriteString(titleStyle.Render(inv.ClientName))
	head.WriteString("\n")
	head.WriteString(dimStyle.Render(fmt.Sprintf("Issued %s", inv.IssueDate)))
	if inv.ValidUntil != "" {
		head.WriteString(dimStyle.Render(fmt.Sprintf(" · valid until %s", inv.ValidUntil)))
	}

	var b strings.Builder
	b.WriteString(boxStyle.Render(head.String()))
	b.WriteString("\n\n")

	if len(inv.Items) == 0 {
		b.WriteString(dimStyle.Render("No line items."))
		b.WriteString("\n")
	} else {
		rows := make([][]cell, 0, len(inv.Items))
		for _, it := range inv.Items {
			rows = append(rows, []cell{
				plain(it.Description),
				amountCell(it.Quantity.String()),
				amountCell(formatAmount(it.UnitPrice)),
				amountCell(formatAmount(it.Amount)),
			})
		}
		b.WriteString(renderTable([]string{"DESCRIPTION", "QTY", "UNIT PRICE", "AMOUNT"}, rows))
	}

	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Total " + formatAmount(inv.TotalAmount)))
	b.WriteString("\n")
	return b.String()
}

type cell struct {
	text  string
	style lipgloss.Style
	right bool
}

func (c cell) render() string {
	return c.style.Render(c.text)
}

func plain(s string) cell {
	return cell{text: s, style: plainStyle}
}

func amountCell(s string) cell {
	return cell{text: s, style: plainStyle, right: true}
}

func statusCell(st invoice.Status) cell {
	style, ok := statusStyles[st]
	if !ok {
		style = dimStyle
	}
	return cell{text: string(st), style: style}
}

// renderTable lays out rows in columns sized by display width, so Hangul
// and other wide runes stay aligned.
func renderTable(headers []string, rows [][]cell) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, c := range row {
			if w := lipgloss.Width(c.text); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	for i, h := range headers {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(headerStyle.Render(pad(h, widths[i], false)))
	}
	b.WriteString("\n")

	total := 2 * (len(widths) - 1)
	for _, w := range widths {
		total += w
	}
	b.WriteString(faintStyle.Render(strings.Repeat("─", total)))
	b.WriteString("\n")

	for _, row := range rows {
		for i, c := range row {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(c.style.Render(pad(c.text, widths[i], c.right)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func pad(s string, width int, right bool) string {
	gap := width - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	if right {
		return strings.Repeat(" ", gap) + s
	}
	return s + strings.Repeat(" ", gap)
}

// formatAmount groups thousands: 1200000 becomes 1,200,000.
func formatAmount(d decimal.Decimal) string {
	if d.IsInteger() {
		return amounts.Sprintf("%d", d.IntPart())
	}
	return amounts.Sprintf("%.2f", d.InexactFloat64())
}
