package catsync

// Version of the catsync engine.
const Version = "1.3.0"

// BuildDate is injected during compilation via -ldflags.
var BuildDate = "unset"
