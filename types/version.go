package types

// Version is the canonical project version.
// The CLI, the capture frame format and the notification contract share this
// version.
const Version = "0.4.0"
