// Package auth groups credential and token handling.
//
// The password subpackage hashes and verifies user passwords. The token
// subpackage mints and verifies the signed bearer tokens the HTTP API
// authenticates with.
package auth
