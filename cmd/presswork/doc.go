// Package main hosts the Presswork CLI entrypoint and command graph.
//
// The Cobra-based command tree covers run submission and inspection, queue
// health, audit ledger browsing and verification, rights registry dry runs,
// and configuration scaffolding. Commands open the SQLite stores directly;
// only the daemon subcommand starts the long-running pipeline loop.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
