// Package release abstracts the remote repository holding updater releases.
//
// The Source interface covers exactly what package assembly needs: an
// ordered release listing and asset download. GitHubSource implements it on
// top of the GitHub releases API; its endpoint is overridable so tests can
// run against a local HTTP server.
package release
