// Package settings provides typed key/value access to server.json, the
// settings document the OPC-UA server reads at start-up.
//
// Values are exchanged as text together with a ValueType, the way the
// configuration screens submit them:
//
//	store := settings.NewStore("/var/lib/aerion/server.json")
//	if err := store.Write("Port", "4841", settings.Number); err != nil {
//	    return err
//	}
//	port, err := store.Read("Port", settings.Number) // "4841"
//
// A missing document is created as {}. Every write is a locked
// read-modify-write that rewrites the file in place.
package settings
