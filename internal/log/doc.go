// Package log provides slog-based logging that redacts crawl session
// credentials. Authenticated audits carry cookies and custom auth
// headers loaded from the config file, and those values must never
// reach the log output.
package log
