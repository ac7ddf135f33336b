// Command sitemirror mirrors a website to disk as rendered HTML.
//
// Architecture overview:
//   - Rendering: every page is loaded in a real Chrome instance driven by
//     chromedp, so client-side content is present before anything is read.
//     The crawl waits for a readiness selector (configurable per URL pattern)
//     before extracting anchors and the document markup.
//   - Scope: the registrable domain of the seed (public-suffix aware) bounds
//     the crawl. Discovered links are normalized (first "www." dropped,
//     fragment cleared) and admitted only when their host equals that domain
//     and any configured allow rule for the domain passes.
//   - Frontier: a FIFO queue gives breadth-first order. A URL is skipped when
//     its origin+path was already visited or its exact href is pending.
//   - Persistence: https://example.com/a/b/c becomes result/example.com/a/b/c.html;
//     a trailing slash maps to index.html. Writes complete before the next
//     page is rendered.
//   - Recovery: a page that fails to render is logged and abandoned and the
//     browser is restarted. Failed writes and malformed links are logged and
//     the crawl continues.
//
// Operational notes:
//   - Configuration: defaults, then an optional YAML file (--config), then
//     SITEMIRROR_* environment variables, then flags.
//   - Journal: --journal records one SQLite row per page outcome;
//     "sitemirror journal" prints runs and their rows.
//   - Observability: zap logs carry the run ID; --metrics-addr serves
//     /healthz, /readyz and Prometheus /metrics while the crawl runs.
//   - SIGINT/SIGTERM stop the crawl between pages and close the browser.
//
// Quick start:
//
//	sitemirror crawl https://example.com --output result --journal crawl.db
package main
