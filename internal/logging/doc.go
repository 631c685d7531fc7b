// Package logging provides structured JSON logging for geocache, writing
// to stderr and, optionally, to a size-rotating log file.
package logging
