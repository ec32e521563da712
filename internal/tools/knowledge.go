package tools

import (
	"sort"
	"strings"
)

// Doc is one knowledge base article.
type Doc struct {
	ID       string
	Title    string
	Category string
	Content  string
}

// Retriever finds knowledge base articles relevant to a query.
type Retriever interface {
	Retrieve(query string, k int) []Doc
}

// KeywordRetriever ranks documents by keyword overlap with the query.
// A stand-in for a vector store; the interface lets one be swapped in.
type KeywordRetriever struct {
	docs []Doc
}

// NewKeywordRetriever creates a retriever over the given documents, or
// over the built-in help articles when docs is nil.
func NewKeywordRetriever(docs []Doc) *KeywordRetriever {
	if docs == nil {
		docs = defaultDocs
	}
	return &KeywordRetriever{docs: docs}
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "can": true,
	"do": true, "for": true, "how": true, "i": true, "in": true,
	"is": true, "it": true, "my": true, "of": true, "on": true,
	"the": true, "to": true, "what": true, "where": true, "you": true,
}

// Retrieve returns up to k documents scored by how many distinct query
// keywords appear in them, best first. Zero-score documents are dropped.
func (r *KeywordRetriever) Retrieve(query string, k int) []Doc {
	if k <= 0 {
		k = 4
	}

	keywords := tokenize(query)
	if len(keywords) == 0 {
		return nil
	}

	type scored struct {
		doc   Doc
		score int
	}
	var hits []scored
	for _, d := range r.docs {
		text := strings.ToLower(d.Title + " " + d.Category + " " + d.Content)
		score := 0
		for kw := range keywords {
			if strings.Contains(text, kw) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{doc: d, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > k {
		hits = hits[:k]
	}
	out := make([]Doc, len(hits))
	for i, h := range hits {
		out[i] = h.doc
	}
	return out
}

func tokenize(s string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	out := make(map[string]bool, len(fields))
	for _, f := range fields {
		if len(f) >= 2 && !stopwords[f] {
			out[f] = true
		}
	}
	return out
}

var defaultDocs = []Doc{
	{
		ID:       "kb-returns",
		Title:    "Return Policy",
		Category: "returns",
		Content: "Items can be returned within 30 days of delivery for a full refund. " +
			"Products must be in original condition with all packaging. " +
			"Start a return from your account page or contact support with your order number.",
	},
	{
		ID:       "kb-refunds",
		Title:    "Refund Processing",
		Category: "refunds",
		Content: "Refunds are issued to the original payment method within 5-7 business days " +
			"after we receive the returned item. Shipping fees are refunded only for " +
			"defective or incorrect items.",
	},
	{
		ID:       "kb-shipping",
		Title:    "Shipping Options and Times",
		Category: "shipping",
		Content: "Standard shipping takes 5-7 business days, express 2-3 days, and " +
			"overnight next business day. Tracking numbers are emailed once the order ships. " +
			"Orders over $50 qualify for free standard shipping.",
	},
	{
		ID:       "kb-warranty",
		Title:    "Warranty Coverage",
		Category: "technical",
		Content: "All TechFlow devices carry a one year limited warranty covering " +
			"manufacturing defects. Accidental damage is not covered. Warranty claims " +
			"require proof of purchase.",
	},
	{
		ID:       "kb-account",
		Title:    "Managing Your Account",
		Category: "account",
		Content: "Update your email, password, shipping address, and payment methods from " +
			"the account settings page. Enable two-factor authentication for extra security. " +
			"Loyalty points accrue on every purchase and unlock tier benefits.",
	},
	{
		ID:       "kb-billing",
		Title:    "Billing and Payment Issues",
		Category: "billing",
		Content: "We accept major credit cards and PayPal. Charges appear as TECHFLOW on " +
			"statements. Duplicate charges usually resolve within 48 hours; contact support " +
			"if a pending charge persists.",
	},
}
