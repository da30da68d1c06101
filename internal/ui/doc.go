// Package ui renders migration progress and summaries for the terminal.
//
// [Printer] turns [tasks.ProgressUpdate] events into one line per track, prefixed with the status icon
// (found ✅, not_found ❌, skipped ⏭️, exists 📋, cached 🔄, error ⚠️) and colored with the [Palette].
// Colors are dropped automatically when the output is not a terminal.
package ui
