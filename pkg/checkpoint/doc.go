// Package checkpoint keeps the repost journal.
//
// A repost is recorded in the ledger only after the upload succeeds, so a
// crash between the two leaves the media unrecorded and the next run would
// post it again. The journal narrows that window: an entry is written before
// the upload and removed once the ledger insert is done. Entries found at
// start-up belong to an interrupted run and are either reported or promoted
// into the ledger, depending on ledger.at_most_once.
//
// Journals are stored in platform-specific data directories unless
// ledger.journal_dir is set:
//   - Linux: ~/.local/share/igbot/journal/
//   - macOS: ~/Library/Application Support/igbot/journal/
//   - Windows: %APPDATA%/igbot/journal/
package checkpoint
