// Package gateway is the HTTP client for the RAG backend. It owns the voice
// conversation upload plus the document and text endpoints, translating
// transport failures and backend error bodies into the client's failure
// taxonomy. The conversation call is a single attempt with no timeout; the
// processing pipeline behind it is long and its latency is unbounded.
package gateway
