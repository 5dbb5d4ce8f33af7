package crust

// Version identifies a crust release. The value is overridden at link time
// for release builds.
var Version = "HEAD"
