package bootstrap

// Seed is a curated question/SQL pair loaded into an empty index.
type Seed struct {
	Question    string
	SQL         string
	Explanation string
}

// curatedSeeds is loaded in declaration order.
var curatedSeeds = []Seed{
	{
		Question:    "What is the total revenue?",
		SQL:         "SELECT SUM(totalAmount) AS total_revenue FROM invoices;",
		Explanation: "Sums the total amount of all invoices.",
	},
	{
		Question:    "How many invoices are there?",
		SQL:         `SELECT COUNT(*) AS invoice_count FROM invoices;`,
		Explanation: "Counts all invoices.",
	},
	{
		Question: "Who are the top 10 vendors by total invoice amount?",
		SQL: `SELECT v.name, COUNT(i.id) AS invoice_count, SUM(i."totalAmount") AS total_amount ` +
			`FROM vendors v LEFT JOIN invoices i ON v.id = i."vendorId" ` +
			`GROUP BY v.id, v.name ORDER BY total_amount DESC NULLS LAST LIMIT 10;`,
		Explanation: "Ranks vendors by the total amount invoiced.",
	},
	{
		Question: "Who are the top 10 customers by total invoice amount?",
		SQL: `SELECT c.name, COUNT(i.id) AS invoice_count, SUM(i."totalAmount") AS total_amount ` +
			`FROM customers c LEFT JOIN invoices i ON c.id = i."customerId" ` +
			`GROUP BY c.id, c.name ORDER BY total_amount DESC NULLS LAST LIMIT 10;`,
		Explanation: "Ranks customers by the total amount invoiced.",
	},
	{
		Question: "How many invoices are in each status?",
		SQL: `SELECT status, COUNT(*) AS invoice_count, SUM("totalAmount") AS total_amount ` +
			`FROM invoices GROUP BY status ORDER BY invoice_count DESC;`,
		Explanation: "Breaks invoices down by status with counts and totals.",
	},
	{
		Question:    "What is the total amount of paid invoices?",
		SQL:         `SELECT COUNT(*) AS paid_count, SUM("totalAmount") AS paid_amount FROM invoices WHERE status = 'PAID';`,
		Explanation: "Counts and sums invoices with status PAID.",
	},
	{
		Question:    "How many invoices are pending?",
		SQL:         `SELECT COUNT(*) AS pending_count, SUM("totalAmount") AS pending_amount FROM invoices WHERE status = 'PENDING';`,
		Explanation: "Counts and sums invoices with status PENDING.",
	},
	{
		Question:    "How many invoices are overdue?",
		SQL:         `SELECT COUNT(*) AS overdue_count, SUM("totalAmount") AS overdue_amount FROM invoices WHERE status = 'OVERDUE';`,
		Explanation: "Counts and sums invoices with status OVERDUE.",
	},
	{
		Question: "What are the monthly sales totals?",
		SQL: `SELECT DATE_TRUNC('month', "issueDate") AS month, COUNT(*) AS invoice_count, SUM("totalAmount") AS total_amount ` +
			`FROM invoices GROUP BY 1 ORDER BY 1;`,
		Explanation: "Groups invoice totals by issue month.",
	},
	{
		Question:    "What is the average invoice value?",
		SQL:         `SELECT AVG("totalAmount") AS average_invoice_value FROM invoices;`,
		Explanation: "Averages the total amount across invoices.",
	},
	{
		Question: "Which invoices were issued in the last 30 days?",
		SQL: `SELECT "invoiceNumber", "issueDate", "totalAmount", status FROM invoices ` +
			`WHERE "issueDate" >= CURRENT_DATE - INTERVAL '30 days' ORDER BY "issueDate" DESC;`,
		Explanation: "Lists invoices issued within the last 30 days.",
	},
	{
		Question: "Which invoices are due in the next 7 days?",
		SQL: `SELECT "invoiceNumber", "dueDate", "totalAmount", status FROM invoices ` +
			`WHERE "dueDate" BETWEEN CURRENT_DATE AND CURRENT_DATE + INTERVAL '7 days' ` +
			`AND status NOT IN ('PAID', 'CANCELLED') ORDER BY "dueDate";`,
		Explanation: "Lists unpaid invoices falling due within a week.",
	},
	{
		Question: "What is the total revenue this year?",
		SQL: `SELECT SUM("totalAmount") AS total_revenue FROM invoices ` +
			`WHERE "issueDate" >= DATE_TRUNC('year', CURRENT_DATE);`,
		Explanation: "Sums invoice totals issued since the start of the current year.",
	},
	{
		Question:    "What is the total spend by category?",
		SQL:         `SELECT category, SUM("totalAmount") AS total_amount FROM invoices GROUP BY category ORDER BY total_amount DESC;`,
		Explanation: "Sums invoice totals per category.",
	},
	{
		Question: "How much has been received in payments by method?",
		SQL: `SELECT method, COUNT(*) AS payment_count, SUM(amount) AS total_received FROM payments ` +
			`GROUP BY method ORDER BY total_received DESC;`,
		Explanation: "Sums recorded payments per payment method.",
	},
	{
		Question:    "What is the total tax amount?",
		SQL:         `SELECT SUM("taxAmount") AS total_tax FROM invoices;`,
		Explanation: "Sums the tax amount of all invoices.",
	},
}
