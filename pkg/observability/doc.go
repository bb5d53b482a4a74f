/*
Package observability turns session lifecycle hooks into Prometheus metrics
and structured log lines.

Metrics registers its collectors on a caller supplied registry and exposes
a domain.LifecycleHooks value that can be handed to session orchestrators.
Several hook sets are merged with Combine.
*/
package observability
