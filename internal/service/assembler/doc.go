// Package assembler builds complete firmware update packages.
//
// A run stages the updater binary (local copy or latest remote release) and
// an optional boot image in an ephemeral directory, resolves versions and
// checksums, writes the version.json manifest, bundles everything into an
// uncompressed tar archive and publishes it to the caller's directory.
//
// The whole flow is sequential; any failing step aborts the run and the
// staging directory is discarded.
package assembler
