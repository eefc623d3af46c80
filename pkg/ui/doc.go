// Package ui holds the terminal pieces of igbot: coloured output, the
// bounded y/n and number prompts, the per-stage progress line and
// optional desktop notifications.
package ui
