// Package uploader schedules batch publication of encoded clips to the
// remote video platform under a fixed daily transfer budget.
//
// The scheduler pairs a creation-time-ordered file list with a positionally
// aligned metadata document, uploads one file at a time with bounded
// exponential-backoff retry, and persists every attempt to a durable state
// store before moving on. Quota accounting lives entirely in that store:
// a crash mid-batch loses at most the in-flight upload.
package uploader
