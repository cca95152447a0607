// Package logtail reads the end of prospector's log file for the Log tab.
//
// # Reading
//
// Read returns the last maxLines lines of a file using a ring buffer, so large
// log files cost O(maxLines) memory and one sequential pass:
//
//	1. Allocate ring buffer of size maxLines
//	2. For each line: store at idx, advance idx modulo maxLines
//	3. If fewer than maxLines were seen, return them as is
//	4. Otherwise return the buffer starting at idx (the oldest line)
//
// A non-positive maxLines returns every line. A missing file returns nil, nil
// since the log is only created once the poller writes to it; other I/O
// errors are returned wrapped.
//
// # Severity
//
// The standard logger writes "date time message" without a level. Classify
// infers one from the message wording (failed, error -> ERROR; ignoring,
// dropping, backing off -> WARN; everything else INFO) and Filter keeps the
// lines at or above a minimum, which backs the Log tab's level toggle.
package logtail
