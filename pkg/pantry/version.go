package pantry

// Version is the release version reported by the CLI.
const Version = "0.1.0"
