package formwork

// Version is the release of the module, reported by the CLI and adapters.
var Version = "0.3.0"
