// Package crawler drives a domain-scoped, breadth-first crawl: it dequeues a
// URL, renders it in a browser, feeds the discovered in-scope links back into
// the frontier and writes the rendered markup to the mirror. Page-level
// failures are logged and contained; only an unusable seed or an unresolvable
// domain stops a crawl before it starts.
package crawler
