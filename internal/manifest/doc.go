// Package manifest builds the version.json document describing the binaries
// of an update package.
//
// Only the three recognized binaries (boot.bin, updater.bin, ecoboot.bin)
// get manifest entries; anything else in the package directory is ignored
// here but still ships in the final archive. Checksums are md5 content sums
// because that is what the on-device update parser expects.
package manifest
