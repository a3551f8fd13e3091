package stg

// Version is the released version string reported by the CLI.
const Version = "0.4.0"
