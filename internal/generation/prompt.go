package generation

import (
	"regexp"
	"strings"

	"github.com/flowbit/nlsql/internal/models"
)

const schemaDescription = `Database Schema:
- vendors: id, name, email, phone, address, taxId, createdAt, updatedAt
- customers: id, name, email, phone, address, createdAt, updatedAt
- invoices: id, invoiceNumber, vendorId, customerId, issueDate, dueDate, totalAmount, taxAmount, subtotalAmount, currency, status, category, description, createdAt, updatedAt
- line_items: id, invoiceId, description, quantity, unitPrice, totalPrice, category, createdAt
- payments: id, invoiceId, amount, paymentDate, method, reference, status, createdAt

Status values: DRAFT, PENDING, SENT, PAID, OVERDUE, CANCELLED
Column names are camelCase and must be double-quoted in PostgreSQL (e.g. "totalAmount").`

// BuildPrompt returns the completion prompt for question. examples, when present, are
// included as worked question/SQL pairs ahead of the question.
func BuildPrompt(question string, examples []models.SimilarityMatch) string {
	var b strings.Builder

	b.WriteString("Given this database schema:\n")
	b.WriteString(schemaDescription)
	b.WriteString("\n\n")

	if len(examples) > 0 {
		b.WriteString("Similar questions that were answered before:\n")

		for _, ex := range examples {
			b.WriteString("Question: ")
			b.WriteString(ex.Question)
			b.WriteString("\nSQL: ")
			b.WriteString(strings.TrimSpace(ex.SQL))
			b.WriteString("\n\n")
		}
	}

	b.WriteString("Generate a PostgreSQL query for: ")
	b.WriteString(question)
	b.WriteString("\n\nReturn only the SQL query, no explanation.")

	return b.String()
}

var fencePattern = regexp.MustCompile("(?i)```(?:postgresql|postgres|psql|sql)?")

// StripFences removes markdown code fences (``` with an optional sql language tag) and
// surrounding whitespace from a completion.
func StripFences(s string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(s, ""))
}
