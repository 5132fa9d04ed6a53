// Package config provides configuration structures and utilities for
// ChoopScoop. It defines the main configuration options for crawling,
// tag classification, state persistence, and report generation.
package config
