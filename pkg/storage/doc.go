// Package storage provides the file handling shared by the social client and
// the workflows.
//
// Manager stores downloaded photos as <name>.jpg with an optional caption
// sidecar <name>.txt next to it. Writes go through a temporary file and a
// rename so a crash never leaves a half-written photo behind.
//
// ReadLines, WriteLines and AppendLine implement the line-oriented flat files
// (username pool, posted-media ledger, scrape artefacts): UTF-8, one value per
// line, blank lines ignored on read.
package storage
