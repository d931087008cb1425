package httpapi

import (
	_ "embed"
	"strconv"
	"strings"
	"time"
)

//go:embed assets/index.html
var viewerTemplate string

const pollIntervalPlaceholder = "POLL_INTERVAL_MS"

// viewerPage renders the embedded viewer with its poll interval filled in.
func viewerPage(poll time.Duration) []byte {
	if poll <= 0 {
		poll = defaultPollInterval
	}
	return []byte(strings.ReplaceAll(viewerTemplate, pollIntervalPlaceholder, strconv.FormatInt(poll.Milliseconds(), 10)))
}
