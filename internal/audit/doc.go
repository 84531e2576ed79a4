// Package audit records changes made through the API to the documents the
// OPC-UA server reads: device registry edits, settings writes and server
// restarts. Entries live in the audit_logs table of the probe history
// database.
package audit
