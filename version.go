package startup

// Version is the release version of startup.
const Version = "0.1.0"
