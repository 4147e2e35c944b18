// Package retry provides a bounded retry-with-exponential-backoff wrapper
// around arbitrary operations. Failures are classified as transient or fatal;
// only transient failures are retried, and the attempt ceiling is never
// exceeded. The delay before attempt N doubles each retry, so the total
// suspension before the Nth attempt is InitialDelay * (2^(N-1) - 1).
package retry
