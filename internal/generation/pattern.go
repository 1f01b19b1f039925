package generation

import (
	"context"
	"strings"

	"github.com/flowbit/nlsql/internal/models"
)

// UnknownQuestionSQL is returned by the pattern fallback when no rule matches.
const UnknownQuestionSQL = "SELECT 'Sorry, I cannot understand this question. Try asking about total revenue, " +
	"invoices, vendors, customers, monthly sales, or average invoice value.' as message;"

type patternRule struct {
	name    string
	matches func(q string) bool
	sql     string
}

func containsAny(q string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(q, w) {
			return true
		}
	}

	return false
}

func anyOf(words ...string) func(string) bool {
	return func(q string) bool { return containsAny(q, words...) }
}

// patternRules are evaluated in order against the lower-cased question; the first match wins.
// Order matters: e.g. "revenue by month" is answered by the revenue rule.
var patternRules = []patternRule{
	{
		name:    "total revenue",
		matches: anyOf("total revenue", "revenue", "total amount", "total sales", "sales total", "total spend", "spend total"),
		sql:     `SELECT SUM("totalAmount") as total_revenue FROM invoices;`,
	},
	{
		name:    "invoice count",
		matches: anyOf("count invoices", "number of invoices", "how many invoices"),
		sql:     `SELECT COUNT(*) as invoice_count FROM invoices;`,
	},
	{
		name:    "top vendors",
		matches: anyOf("vendors", "suppliers", "top vendors"),
		sql: `SELECT name, COUNT(i.id) as invoice_count, SUM(i."totalAmount") as total_amount FROM vendors v ` +
			`LEFT JOIN invoices i ON v.id = i."vendorId" GROUP BY v.id, v.name ORDER BY total_amount DESC LIMIT 10;`,
	},
	{
		name:    "top customers",
		matches: anyOf("customers", "top customers"),
		sql: `SELECT name, COUNT(i.id) as invoice_count, SUM(i."totalAmount") as total_amount FROM customers c ` +
			`LEFT JOIN invoices i ON c.id = i."customerId" GROUP BY c.id, c.name ORDER BY total_amount DESC LIMIT 10;`,
	},
	{
		name:    "paid invoices",
		matches: anyOf("paid invoices", "paid"),
		sql:     `SELECT COUNT(*) as paid_count, SUM("totalAmount") as paid_amount FROM invoices WHERE status = 'PAID';`,
	},
	{
		name:    "pending invoices",
		matches: anyOf("pending invoices", "pending"),
		sql:     `SELECT COUNT(*) as pending_count, SUM("totalAmount") as pending_amount FROM invoices WHERE status = 'PENDING';`,
	},
	{
		name:    "overdue invoices",
		matches: anyOf("overdue invoices", "overdue"),
		sql:     `SELECT COUNT(*) as overdue_count, SUM("totalAmount") as overdue_amount FROM invoices WHERE status = 'OVERDUE';`,
	},
	{
		name:    "january breakdown",
		matches: anyOf("jan", "january", "month"),
		sql: `SELECT EXTRACT(MONTH FROM "issueDate") as month, COUNT(*) as invoice_count, SUM("totalAmount") as total_amount ` +
			`FROM invoices WHERE EXTRACT(MONTH FROM "issueDate") = 1 GROUP BY EXTRACT(MONTH FROM "issueDate");`,
	},
	{
		name:    "monthly sales",
		matches: anyOf("sales by month", "monthly sales", "revenue by month"),
		sql: `SELECT EXTRACT(MONTH FROM "issueDate") as month, COUNT(*) as invoice_count, SUM("totalAmount") as total_amount ` +
			`FROM invoices GROUP BY EXTRACT(MONTH FROM "issueDate") ORDER BY month;`,
	},
	{
		name: "average invoice",
		matches: func(q string) bool {
			return strings.Contains(q, "average") && containsAny(q, "invoice", "amount")
		},
		sql: `SELECT AVG("totalAmount") as average_invoice_value FROM invoices;`,
	},
	{
		name:    "highest invoice",
		matches: anyOf("highest invoice", "largest invoice", "biggest invoice"),
		sql: `SELECT v.name as vendor, "invoiceNumber", "totalAmount" FROM invoices i ` +
			`JOIN vendors v ON i."vendorId" = v.id ORDER BY "totalAmount" DESC LIMIT 1;`,
	},
	{
		name: "recent invoices",
		matches: func(q string) bool {
			return strings.Contains(q, "last") && containsAny(q, "days", "week", "month")
		},
		sql: `SELECT COUNT(*) as recent_invoices, SUM("totalAmount") as recent_total FROM invoices ` +
			`WHERE "issueDate" >= CURRENT_DATE - INTERVAL '30 days';`,
	},
}

// PatternFallback maps keywords in the question to canned SQL. It never fails.
type PatternFallback struct{}

// NewPatternFallback creates the pattern fallback strategy.
func NewPatternFallback() *PatternFallback {
	return &PatternFallback{}
}

// Name returns the strategy name.
func (s *PatternFallback) Name() string {
	return StrategyPatternFallback
}

// Generate returns the SQL of the first matching rule, or UnknownQuestionSQL.
func (s *PatternFallback) Generate(_ context.Context, question string, _ []models.SimilarityMatch) (Generation, error) {
	return Match(question), nil
}

// Match applies the pattern rules to question.
func Match(question string) Generation {
	q := strings.ToLower(question)

	for _, rule := range patternRules {
		if rule.matches(q) {
			return Generation{
				SQL:         rule.sql,
				Confidence:  ConfidencePatternFallback,
				Explanation: "Matched the " + rule.name + " question pattern",
			}
		}
	}

	return Generation{
		SQL:         UnknownQuestionSQL,
		Confidence:  ConfidencePatternFallback,
		Explanation: "No question pattern matched",
	}
}
