// Package logging sets up structured JSON logging for mdsearch.
//
// Interactive commands log to stderr. The daemon and the MCP server also
// write to a rotating file under ~/.mdsearch/logs/, which `mdsearch logs`
// reads back. In MCP mode nothing is written to stdout or stderr.
package logging
