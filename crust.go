// Package crust contains the few pieces shared between the crust build
// orchestrator binary and its internal packages.
package crust

// ManifestFilename is the file name of a project build description,
// expected in the project's source directory.
const ManifestFilename = "crust.build"
