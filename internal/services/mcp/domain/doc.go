// Package domain translates MCP tool calls into workspace read operations.
//
// Tools are read-only on purpose: agent clients can inspect workspaces,
// risks, forecasts, and the knowledge base, but every mutation still goes
// through the authenticated HTTP API.
package domain
