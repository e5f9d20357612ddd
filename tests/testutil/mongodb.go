package testutil

import "time"

// MongoDB test configuration constants
const (
	mongoCtxTimeout                = 10 * time.Second
	mongoPingTimeout               = 2 * time.Second
	mongoContainerStartupTimeout   = 60 * time.Second
	mongoContainerTerminateTimeout = 10 * time.Second

	// maxTestNameLength keeps generated database names under MongoDB's 63 byte limit.
	maxTestNameLength = 40

	testDBPrefix = "collabfront_test_"
)
