// Package youtube uploads encoded performance clips through the YouTube
// Data API v3 with resumable chunked transfers. Server-side failures are
// surfaced as transient errors so the batch scheduler can apply its bounded
// retry policy without knowing the transport.
package youtube
