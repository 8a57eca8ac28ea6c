package main

// Version is overridden during build with -ldflags "-X main.Version=x.x.x".
var Version = "dev"

// GitCommit is the git commit hash.
var GitCommit = "unknown"

// BuildTime is the build timestamp.
var BuildTime = "unknown"
