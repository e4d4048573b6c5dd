package changes

import "time"

// timeNow is a package-level variable for testability.
// Tests replace it to pin archive dates.
var timeNow = time.Now
