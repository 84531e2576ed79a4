// Package device provides the device registry shared with the OPC-UA server.
//
// The registry is persisted as clients.json in the server's data directory:
//
//	{
//	  "Clients": [
//	    {"Name": "arm1", "Type": "Robot", "Ip": "192.168.0.20", "Port": 10001},
//	    {"Name": "line", "Type": "PLC", "Ip": "192.168.0.30", "Port": 5007,
//	     "Destination network No.": 0, "Destination station No.": 255,
//	     "Destination Module I/O": 1023, "Destination multidrop station No.": 0,
//	     "UserNodes": [{"Name": "D100", "Parent": "Data"}]}
//	  ]
//	}
//
// The OPC-UA server reads this document when it starts and creates one
// client per record. This package owns every write to it.
//
// # Key Types
//
//   - Record: one registered device
//   - Type: the handshake family (Robot or PLC); unknown values are kept
//     as-is so that probing them reports an unsupported type
//   - UserNode: an extra OPC-UA node exposed under a device
//
// # Thread Safety
//
// Every mutation is a read-modify-write of the whole document performed
// under the repository lock and written with a temp-file rename, so a
// concurrent reader never observes a partially written file and no
// update is lost. Readers receive deep copies.
//
// # Usage
//
//	repo := device.NewJSONFileRepository(cfg.Registry.ClientsPath())
//	registry := device.NewRegistry(repo)
//	registry.SetLogger(log)
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//	rec, err := registry.GetDevice(ctx, "arm1")
package device
