// Package process supervises the OPC-UA server binary.
//
// When server.managed is set, Aerion Control starts the server, restarts it
// with exponential backoff when it exits, and kills it if its port stops
// accepting connections. The health check dials the port recorded in
// server.json, so a port changed through the settings API is picked up on
// the next check.
//
// Example usage:
//
//	mgr := process.NewManager(process.ServerConfig(cfg.Server, store.Port))
//	mgr.SetLogger(log)
//	if err := mgr.Start(ctx); err != nil {
//	    return err
//	}
//	defer mgr.Stop()
package process
