package settings

const (
	DefaultLogLevel   = "info"
	DefaultGCInterval = "1s"
	DefaultRevision   = 1
)
