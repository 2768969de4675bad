// Package storage handles data persistence in JSONL and SQLite formats.
package storage
