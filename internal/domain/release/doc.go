// Package release contains core domain types for the launcher business logic.
//
// It defines Manifest (what the remote authority advertises), Digest
// (algorithm-qualified checksums), InstalledRelease (what is on disk),
// the launch session states, and the error taxonomy shared by the
// resolver, fetcher and supervisor services.
package release
