package version

const APP = "chemviz"

// set by -ldflags at build time
var (
	VERSION = "dev"
	COMMIT  = "none"
)
