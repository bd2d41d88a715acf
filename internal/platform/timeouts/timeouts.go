// Package timeouts defines shared timeout constants used across services.
// Centralizing these values prevents drift between service boundaries and
// makes the durations discoverable.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Request caps the time allowed for a single API request, including
// storage work and forecast computation.
const Request = 15 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// MailSend caps one SMTP delivery attempt for invitation mail.
const MailSend = 10 * time.Second

// Embed caps one embedding request to the configured embedding backend.
const Embed = 10 * time.Second
