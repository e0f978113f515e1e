package version

// Current is the tabletalk release version, without a "v" prefix.
const Current = "0.1.0"
